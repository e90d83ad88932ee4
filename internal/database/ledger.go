package database

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"snapstage-backend/internal/models"
)

// refundAttempts bounds the optimistic-lock retries for balance restores.
const refundAttempts = 3

func (c *Client) GetProfile(userID uuid.UUID) (*models.Profile, error) {
	var profile models.Profile
	err := c.db.QueryRow(`
		SELECT id, email, full_name, plan, credits_remaining, created_at, updated_at
		FROM profiles
		WHERE id = $1
	`, userID).Scan(
		&profile.ID, &profile.Email, &profile.FullName, &profile.Plan,
		&profile.CreditsRemaining, &profile.CreatedAt, &profile.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}

	return &profile, nil
}

// DebitCredits deducts amount from the user's balance with an optimistic
// lock: the write only lands if the balance is unchanged since it was read.
// On a lock collision no credit is deducted and ErrConflict is returned so
// the caller can retry or report busy. Every successful debit appends
// exactly one negative ledger transaction.
func (c *Client) DebitCredits(userID uuid.UUID, amount int, projectID uuid.NullUUID, description string) (int, error) {
	profile, err := c.GetProfile(userID)
	if err != nil {
		return 0, err
	}

	if profile.CreditsRemaining < amount {
		return profile.CreditsRemaining, ErrInsufficientCredits
	}

	newBalance := profile.CreditsRemaining - amount
	res, err := c.db.Exec(`
		UPDATE profiles
		SET credits_remaining = $1, updated_at = NOW()
		WHERE id = $2 AND credits_remaining = $3
	`, newBalance, userID, profile.CreditsRemaining)
	if err != nil {
		return 0, fmt.Errorf("failed to debit credits: %w", err)
	}

	affected, _ := res.RowsAffected()
	if affected == 0 {
		return 0, ErrConflict
	}

	if err := c.insertTransaction(userID, -amount, projectID, description); err != nil {
		return newBalance, err
	}

	return newBalance, nil
}

// CreditCredits adds amount to the user's balance and appends a positive
// ledger transaction. Used for refunds and purchased credit grants; a refund
// always writes its compensating transaction row so the ledger keeps
// reconciling with the cached balance.
func (c *Client) CreditCredits(userID uuid.UUID, amount int, projectID uuid.NullUUID, description string) (int, error) {
	var newBalance int
	var lastErr error

	for i := 0; i < refundAttempts; i++ {
		profile, err := c.GetProfile(userID)
		if err != nil {
			return 0, err
		}

		newBalance = profile.CreditsRemaining + amount
		res, err := c.db.Exec(`
			UPDATE profiles
			SET credits_remaining = $1, updated_at = NOW()
			WHERE id = $2 AND credits_remaining = $3
		`, newBalance, userID, profile.CreditsRemaining)
		if err != nil {
			return 0, fmt.Errorf("failed to credit credits: %w", err)
		}

		affected, _ := res.RowsAffected()
		if affected > 0 {
			if err := c.insertTransaction(userID, amount, projectID, description); err != nil {
				return newBalance, err
			}
			return newBalance, nil
		}

		lastErr = ErrConflict
	}

	return 0, lastErr
}

func (c *Client) insertTransaction(userID uuid.UUID, amount int, projectID uuid.NullUUID, description string) error {
	_, err := c.db.Exec(`
		INSERT INTO credit_transactions (id, user_id, project_id, amount, description)
		VALUES ($1, $2, $3, $4, $5)
	`, uuid.New(), userID, projectID, amount, description)
	if err != nil {
		return fmt.Errorf("failed to insert credit transaction: %w", err)
	}

	return nil
}

func (c *Client) ListTransactions(userID uuid.UUID) ([]models.CreditTransaction, error) {
	rows, err := c.db.Query(`
		SELECT id, user_id, project_id, amount, description, created_at
		FROM credit_transactions
		WHERE user_id = $1
		ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	var transactions []models.CreditTransaction
	for rows.Next() {
		var tx models.CreditTransaction
		err := rows.Scan(&tx.ID, &tx.UserID, &tx.ProjectID, &tx.Amount, &tx.Description, &tx.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		transactions = append(transactions, tx)
	}

	return transactions, nil
}
