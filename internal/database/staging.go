package database

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"snapstage-backend/internal/models"
)

const stagingRequestColumns = `
	id, user_id, project_id, original_image_url, style, options_hash, status,
	preview_job_id, hd_job_id, approved_at, approved_by, preview_regen_count,
	hd_credit_deducted, error_message, created_at, updated_at`

func scanStagingRequest(row interface{ Scan(...interface{}) error }) (*models.StagingRequest, error) {
	var req models.StagingRequest
	err := row.Scan(
		&req.ID, &req.UserID, &req.ProjectID, &req.OriginalImageURL,
		&req.Style, &req.OptionsHash, &req.Status,
		&req.PreviewJobID, &req.HdJobID, &req.ApprovedAt, &req.ApprovedBy,
		&req.PreviewRegenCount, &req.HdCreditDeducted, &req.ErrorMessage,
		&req.CreatedAt, &req.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &req, nil
}

func (c *Client) CreateStagingRequest(req *models.StagingRequest) error {
	err := c.db.QueryRow(`
		INSERT INTO staging_requests (id, user_id, project_id, original_image_url, style, options_hash, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at
	`, req.ID, req.UserID, req.ProjectID, req.OriginalImageURL, req.Style, req.OptionsHash, req.Status).
		Scan(&req.CreatedAt, &req.UpdatedAt)
	if err != nil {
		// The partial unique index on (project_id, options_hash) rejects a
		// second active request for the same fingerprint.
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return ErrConflict
		}
		return fmt.Errorf("failed to create staging request: %w", err)
	}

	return nil
}

func (c *Client) GetStagingRequest(requestID, userID uuid.UUID) (*models.StagingRequest, error) {
	req, err := scanStagingRequest(c.db.QueryRow(`
		SELECT `+stagingRequestColumns+`
		FROM staging_requests
		WHERE id = $1 AND user_id = $2
	`, requestID, userID))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get staging request: %w", err)
	}

	return req, nil
}

// FindActiveStagingRequest looks up a non-terminal request with the same
// (project, options hash) pair. This is the idempotency key for preview
// submission.
func (c *Client) FindActiveStagingRequest(projectID uuid.UUID, optionsHash string) (*models.StagingRequest, error) {
	req, err := scanStagingRequest(c.db.QueryRow(`
		SELECT `+stagingRequestColumns+`
		FROM staging_requests
		WHERE project_id = $1 AND options_hash = $2
		  AND status NOT IN ($3, $4)
		ORDER BY created_at DESC
		LIMIT 1
	`, projectID, optionsHash, models.StatusHdReady, models.StatusFailed))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find active staging request: %w", err)
	}

	return req, nil
}

// TransitionStatus advances a request's status only if the stored status
// still matches the expected source state. A stale writer (for example a
// reconciliation loop superseded by a regenerate) gets ErrConflict instead
// of clobbering the newer state.
func (c *Client) TransitionStatus(requestID uuid.UUID, from, to string) error {
	res, err := c.db.Exec(`
		UPDATE staging_requests
		SET status = $1, updated_at = NOW()
		WHERE id = $2 AND status = $3
	`, to, requestID, from)
	if err != nil {
		return fmt.Errorf("failed to transition status: %w", err)
	}

	affected, _ := res.RowsAffected()
	if affected == 0 {
		return ErrConflict
	}

	return nil
}

// MarkFailed sets a request to failed with the given message. Terminal
// requests are left untouched; the bool reports whether the row changed.
func (c *Client) MarkFailed(requestID uuid.UUID, errorMessage string) (bool, error) {
	res, err := c.db.Exec(`
		UPDATE staging_requests
		SET status = $1, error_message = $2, updated_at = NOW()
		WHERE id = $3 AND status NOT IN ($1, $4)
	`, models.StatusFailed, errorMessage, requestID, models.StatusHdReady)
	if err != nil {
		return false, fmt.Errorf("failed to mark request failed: %w", err)
	}

	affected, _ := res.RowsAffected()
	return affected > 0, nil
}

func (c *Client) SetPreviewJobID(requestID uuid.UUID, jobID string) error {
	_, err := c.db.Exec(`
		UPDATE staging_requests
		SET preview_job_id = $1, updated_at = NOW()
		WHERE id = $2
	`, jobID, requestID)
	return err
}

func (c *Client) SetHdJobID(requestID uuid.UUID, jobID string) error {
	_, err := c.db.Exec(`
		UPDATE staging_requests
		SET hd_job_id = $1, updated_at = NOW()
		WHERE id = $2
	`, jobID, requestID)
	return err
}

// MarkApproved records approval, conditional on the preview being ready.
func (c *Client) MarkApproved(requestID, approverID uuid.UUID) error {
	res, err := c.db.Exec(`
		UPDATE staging_requests
		SET status = $1, approved_at = NOW(), approved_by = $2, updated_at = NOW()
		WHERE id = $3 AND status = $4
	`, models.StatusApproved, approverID, requestID, models.StatusPreviewReady)
	if err != nil {
		return fmt.Errorf("failed to approve request: %w", err)
	}

	affected, _ := res.RowsAffected()
	if affected == 0 {
		return ErrConflict
	}

	return nil
}

// MarkHdQueued flips the request into hd_generating and records the credit
// deduction in a single conditional write. The hd_credit_deducted guard
// makes concurrent GenerateHd calls race to at most one winner.
func (c *Client) MarkHdQueued(requestID uuid.UUID) error {
	res, err := c.db.Exec(`
		UPDATE staging_requests
		SET status = $1, hd_credit_deducted = TRUE, updated_at = NOW()
		WHERE id = $2 AND status = $3 AND hd_credit_deducted = FALSE
	`, models.StatusHdGenerating, requestID, models.StatusApproved)
	if err != nil {
		return fmt.Errorf("failed to mark hd queued: %w", err)
	}

	affected, _ := res.RowsAffected()
	if affected == 0 {
		return ErrConflict
	}

	return nil
}

// RevertHdQueued undoes MarkHdQueued after a failed job submission so the
// request returns to approved with the credit flag cleared.
func (c *Client) RevertHdQueued(requestID uuid.UUID) error {
	_, err := c.db.Exec(`
		UPDATE staging_requests
		SET status = $1, hd_credit_deducted = FALSE, hd_job_id = NULL, updated_at = NOW()
		WHERE id = $2 AND status = $3
	`, models.StatusApproved, requestID, models.StatusHdGenerating)
	if err != nil {
		return fmt.Errorf("failed to revert hd queue: %w", err)
	}

	return nil
}

// ResetForRegeneration re-enters preview_generating from preview_ready or
// failed, bumping the regeneration counter. Approved requests never match:
// approval freezes the preview.
func (c *Client) ResetForRegeneration(requestID uuid.UUID) (int, error) {
	var regenCount int
	err := c.db.QueryRow(`
		UPDATE staging_requests
		SET status = $1, preview_regen_count = preview_regen_count + 1,
		    error_message = NULL, preview_job_id = NULL, updated_at = NOW()
		WHERE id = $2 AND status IN ($3, $4) AND approved_at IS NULL
		RETURNING preview_regen_count
	`, models.StatusPreviewGenerating, requestID, models.StatusPreviewReady, models.StatusFailed).
		Scan(&regenCount)
	if err == sql.ErrNoRows {
		return 0, ErrConflict
	}
	if err != nil {
		return 0, fmt.Errorf("failed to reset for regeneration: %w", err)
	}

	return regenCount, nil
}
