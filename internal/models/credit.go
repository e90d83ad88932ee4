package models

import (
	"time"

	"github.com/google/uuid"
)

// Profile mirrors the Supabase auth profile row. CreditsRemaining is a
// cached projection of the credit_transactions ledger; the ledger rows are
// the source of truth.
type Profile struct {
	ID               uuid.UUID `json:"id"`
	Email            string    `json:"email"`
	FullName         string    `json:"full_name"`
	Plan             string    `json:"plan"`
	CreditsRemaining int       `json:"credits_remaining"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// CreditTransaction is an append-only ledger entry. Amount is signed:
// negative for debits, positive for grants and refunds.
type CreditTransaction struct {
	ID          uuid.UUID     `json:"id"`
	UserID      uuid.UUID     `json:"user_id"`
	ProjectID   uuid.NullUUID `json:"-"`
	Amount      int           `json:"amount"`
	Description string        `json:"description"`
	CreatedAt   time.Time     `json:"created_at"`
}

// RateLimitWindow tracks per-user preview regenerations in a trailing
// one-hour window.
type RateLimitWindow struct {
	UserID      uuid.UUID `json:"user_id"`
	WindowStart time.Time `json:"window_start"`
	RegenCount  int       `json:"regen_count"`
}
