package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"snapstage-backend/internal/models"
)

const stagingOutputColumns = `
	id, request_id, output_type, storage_path, url, width, height,
	watermarked, file_size_bytes, expires_at, created_at`

func scanStagingOutput(row interface{ Scan(...interface{}) error }) (*models.StagingOutput, error) {
	var out models.StagingOutput
	err := row.Scan(
		&out.ID, &out.RequestID, &out.OutputType, &out.StoragePath, &out.URL,
		&out.Width, &out.Height, &out.Watermarked, &out.FileSizeBytes,
		&out.ExpiresAt, &out.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CreateStagingOutput(out *models.StagingOutput) error {
	err := c.db.QueryRow(`
		INSERT INTO staging_outputs (id, request_id, output_type, storage_path, url, width, height, watermarked, file_size_bytes, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at
	`, out.ID, out.RequestID, out.OutputType, out.StoragePath, out.URL,
		out.Width, out.Height, out.Watermarked, out.FileSizeBytes, out.ExpiresAt).
		Scan(&out.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create staging output: %w", err)
	}

	return nil
}

func (c *Client) GetStagingOutput(requestID uuid.UUID, outputType string) (*models.StagingOutput, error) {
	out, err := scanStagingOutput(c.db.QueryRow(`
		SELECT `+stagingOutputColumns+`
		FROM staging_outputs
		WHERE request_id = $1 AND output_type = $2
	`, requestID, outputType))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get staging output: %w", err)
	}

	return out, nil
}

// DeleteStagingOutput removes a request's output of the given kind. A
// regenerated preview deletes the prior preview row before the new one is
// written, so the two are never alive at once.
func (c *Client) DeleteStagingOutput(requestID uuid.UUID, outputType string) error {
	_, err := c.db.Exec(`
		DELETE FROM staging_outputs
		WHERE request_id = $1 AND output_type = $2
	`, requestID, outputType)
	if err != nil {
		return fmt.Errorf("failed to delete staging output: %w", err)
	}

	return nil
}

// UpdateStagingOutputURL persists a refreshed signed URL and expiry.
func (c *Client) UpdateStagingOutputURL(outputID uuid.UUID, url string, expiresAt time.Time) error {
	_, err := c.db.Exec(`
		UPDATE staging_outputs
		SET url = $1, expires_at = $2
		WHERE id = $3
	`, url, expiresAt, outputID)
	if err != nil {
		return fmt.Errorf("failed to update staging output url: %w", err)
	}

	return nil
}
