package staging

import (
	"time"

	"github.com/google/uuid"
	"snapstage-backend/internal/imaging"
	"snapstage-backend/internal/models"
	"snapstage-backend/internal/replicate"
)

// Store is the persistence surface the staging flow needs. Implemented by
// *database.Client. Every status mutation is a conditional update keyed on
// the expected source state; there are no in-process locks, so multiple
// server instances can run the flow concurrently.
type Store interface {
	CreateStagingRequest(req *models.StagingRequest) error
	GetStagingRequest(requestID, userID uuid.UUID) (*models.StagingRequest, error)
	FindActiveStagingRequest(projectID uuid.UUID, optionsHash string) (*models.StagingRequest, error)
	TransitionStatus(requestID uuid.UUID, from, to string) error
	MarkFailed(requestID uuid.UUID, errorMessage string) (bool, error)
	SetPreviewJobID(requestID uuid.UUID, jobID string) error
	SetHdJobID(requestID uuid.UUID, jobID string) error
	MarkApproved(requestID, approverID uuid.UUID) error
	MarkHdQueued(requestID uuid.UUID) error
	RevertHdQueued(requestID uuid.UUID) error
	ResetForRegeneration(requestID uuid.UUID) (int, error)

	CreateStagingOutput(out *models.StagingOutput) error
	GetStagingOutput(requestID uuid.UUID, outputType string) (*models.StagingOutput, error)
	DeleteStagingOutput(requestID uuid.UUID, outputType string) error
	UpdateStagingOutputURL(outputID uuid.UUID, url string, expiresAt time.Time) error
	FindRefundCandidates(stuckFor time.Duration) ([]models.StagingRequest, error)
	ClearHdCreditFlag(requestID uuid.UUID) (bool, error)

	GetProject(projectID, userID uuid.UUID) (*models.Project, error)
	UpdateProjectStatus(projectID uuid.UUID, status string) error
	GetProfile(userID uuid.UUID) (*models.Profile, error)
	InsertAuditLog(userID uuid.UUID, event, resourceID string, metadata map[string]interface{}) error
}

// Ledger mutates the user's credit balance under optimistic locking and
// appends one transaction row per successful mutation.
type Ledger interface {
	DebitCredits(userID uuid.UUID, amount int, projectID uuid.NullUUID, description string) (int, error)
	CreditCredits(userID uuid.UUID, amount int, projectID uuid.NullUUID, description string) (int, error)
}

// RateLimiter budgets preview regenerations per user per trailing hour.
type RateLimiter interface {
	AllowRegeneration(userID uuid.UUID) (bool, int, error)
}

// JobBackend submits generation jobs and polls their status. It performs no
// retries; transport errors propagate to the caller.
type JobBackend interface {
	SubmitPreview(imageURL, style string) (string, error)
	SubmitHd(imageURL, style string) (string, error)
	GetPrediction(predictionID string) (*replicate.Prediction, error)
}

// BlobStore holds produced artifacts and mints time-limited retrieval URLs.
type BlobStore interface {
	Upload(data []byte, storagePath, contentType string) error
	SignedURL(storagePath string, ttl time.Duration) (string, time.Time, error)
	Delete(storagePath string) error
}

// ImageProcessor turns a raw generated image into a storable artifact.
type ImageProcessor interface {
	FetchImage(url string) ([]byte, error)
	MakePreview(raw []byte) (*imaging.Artifact, error)
	MakeHd(raw []byte) (*imaging.Artifact, error)
}

// Mailer delivers the HD-completion notification. Failures are logged, never
// propagated into the staging flow.
type Mailer interface {
	SendStagingCompleted(to, name, projectID, projectName string) error
}
