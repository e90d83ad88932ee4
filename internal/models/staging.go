package models

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// StagingRequest statuses. Transitions are linear per request:
// preview_generating -> preview_ready -> approved -> hd_generating -> hd_ready,
// with failed reachable from any non-terminal state and preview_generating
// re-enterable from preview_ready or failed via regeneration.
const (
	StatusPreviewGenerating = "preview_generating"
	StatusPreviewReady      = "preview_ready"
	StatusApproved          = "approved"
	StatusHdGenerating      = "hd_generating"
	StatusHdReady           = "hd_ready"
	StatusFailed            = "failed"
)

// Output kinds for StagingOutput.
const (
	OutputPreview = "preview"
	OutputHd      = "hd"
)

type StagingRequest struct {
	ID                 uuid.UUID      `json:"id"`
	UserID             uuid.UUID      `json:"user_id"`
	ProjectID          uuid.UUID      `json:"project_id"`
	OriginalImageURL   string         `json:"original_image_url"`
	Style              string         `json:"style"`
	OptionsHash        string         `json:"options_hash"`
	Status             string         `json:"status"`
	PreviewJobID       sql.NullString `json:"-"`
	HdJobID            sql.NullString `json:"-"`
	ApprovedAt         sql.NullTime   `json:"-"`
	ApprovedBy         uuid.NullUUID  `json:"-"`
	PreviewRegenCount  int            `json:"preview_regen_count"`
	HdCreditDeducted   bool           `json:"hd_credit_deducted"`
	ErrorMessage       sql.NullString `json:"-"`
	CreatedAt          time.Time      `json:"created_at"`
	UpdatedAt          time.Time      `json:"updated_at"`
}

type StagingOutput struct {
	ID            uuid.UUID      `json:"id"`
	RequestID     uuid.UUID      `json:"request_id"`
	OutputType    string         `json:"output_type"`
	StoragePath   string         `json:"storage_path"`
	URL           string         `json:"url"`
	Width         int            `json:"width"`
	Height        int            `json:"height"`
	Watermarked   bool           `json:"watermarked"`
	FileSizeBytes int64          `json:"file_size_bytes"`
	ExpiresAt     sql.NullTime   `json:"-"`
	CreatedAt     time.Time      `json:"created_at"`
}
