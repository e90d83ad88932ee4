package database

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// InsertAuditLog appends one audit event. Metadata is stored as JSONB.
func (c *Client) InsertAuditLog(userID uuid.UUID, event, resourceID string, metadata map[string]interface{}) error {
	if metadata == nil {
		metadata = map[string]interface{}{}
	}

	metadataJSON, err := json.Marshal(metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal audit metadata: %w", err)
	}

	_, err = c.db.Exec(`
		INSERT INTO audit_logs (id, user_id, event, resource_id, metadata)
		VALUES ($1, $2, $3, $4, $5)
	`, uuid.New(), userID, event, resourceID, metadataJSON)
	if err != nil {
		return fmt.Errorf("failed to insert audit log: %w", err)
	}

	return nil
}
