package models

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// Project statuses.
const (
	ProjectDraft      = "draft"
	ProjectProcessing = "processing"
	ProjectCompleted  = "completed"
	ProjectFailed     = "failed"
)

type Project struct {
	ID           uuid.UUID      `json:"id"`
	UserID       uuid.UUID      `json:"user_id"`
	Name         string         `json:"name"`
	Status       string         `json:"status"`
	ErrorMessage sql.NullString `json:"-"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}
