package database

import (
	"fmt"
	"time"

	"snapstage-backend/internal/models"

	"github.com/google/uuid"
)

// FindRefundCandidates returns requests whose HD credit was deducted but
// that either failed terminally or have sat in hd_generating past the
// staleness cutoff, with no HD artifact to show for it. These are the
// debited-but-undelivered rows the reconciliation sweep auto-refunds.
func (c *Client) FindRefundCandidates(stuckFor time.Duration) ([]models.StagingRequest, error) {
	cutoff := time.Now().Add(-stuckFor)

	rows, err := c.db.Query(`
		SELECT `+stagingRequestColumns+`
		FROM staging_requests r
		WHERE r.hd_credit_deducted = TRUE
		  AND (r.status = $1 OR (r.status = $2 AND r.updated_at < $3))
		  AND NOT EXISTS (
			SELECT 1 FROM staging_outputs o
			WHERE o.request_id = r.id AND o.output_type = $4
		  )
	`, models.StatusFailed, models.StatusHdGenerating, cutoff, models.OutputHd)
	if err != nil {
		return nil, fmt.Errorf("failed to find refund candidates: %w", err)
	}
	defer rows.Close()

	var requests []models.StagingRequest
	for rows.Next() {
		req, err := scanStagingRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan refund candidate: %w", err)
		}
		requests = append(requests, *req)
	}

	return requests, nil
}

// ClearHdCreditFlag resets hd_credit_deducted, conditional on it still being
// set. The conditional write makes the sweep's refund at-most-once even with
// multiple server instances sweeping concurrently.
func (c *Client) ClearHdCreditFlag(requestID uuid.UUID) (bool, error) {
	res, err := c.db.Exec(`
		UPDATE staging_requests
		SET hd_credit_deducted = FALSE, updated_at = NOW()
		WHERE id = $1 AND hd_credit_deducted = TRUE
	`, requestID)
	if err != nil {
		return false, fmt.Errorf("failed to clear hd credit flag: %w", err)
	}

	affected, _ := res.RowsAffected()
	return affected > 0, nil
}
