package staging

import (
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"snapstage-backend/internal/database"
	"snapstage-backend/internal/models"
	"snapstage-backend/internal/replicate"
	"snapstage-backend/internal/storage"
)

const (
	maxRegensPerHour = database.MaxRegensPerHour
	regenRetryAfter  = database.RegenWindow

	// Preview signed URLs are refreshed once less than this much lifetime
	// remains.
	urlRefreshThreshold = 5 * time.Minute

	hdCreditCost = 1
)

// Fingerprint derives the idempotency hash for a staging request from its
// style selector.
func Fingerprint(style string) string {
	sum := md5.Sum([]byte(style))
	return hex.EncodeToString(sum[:])
}

// Service owns the staging request lifecycle: preview generation, approval,
// paid HD generation and download gating. All state lives in the Store; the
// service itself is stateless and safe for concurrent use.
type Service struct {
	store      Store
	ledger     Ledger
	limiter    RateLimiter
	jobs       JobBackend
	blobs      BlobStore
	reconciler *Reconciler
	log        zerolog.Logger
}

func NewService(
	store Store,
	ledger Ledger,
	limiter RateLimiter,
	jobs JobBackend,
	blobs BlobStore,
	reconciler *Reconciler,
	log zerolog.Logger,
) *Service {
	return &Service{
		store:      store,
		ledger:     ledger,
		limiter:    limiter,
		jobs:       jobs,
		blobs:      blobs,
		reconciler: reconciler,
		log:        log,
	}
}

// RequestStatus bundles a request with its current outputs for status reads.
type RequestStatus struct {
	Request *models.StagingRequest
	Preview *models.StagingOutput
	Hd      *models.StagingOutput
}

// RequestPreview queues preview generation for a (project, style) pair. If a
// non-terminal request with the same fingerprint already exists it is
// returned unchanged, guarding against duplicate client submissions. The
// call returns as soon as the job is queued; the reconciliation loop
// advances the request in the background.
func (s *Service) RequestPreview(userID, projectID uuid.UUID, imageURL, style string) (*models.StagingRequest, bool, error) {
	if !replicate.ValidStyle(style) {
		return nil, false, &ValidationError{Msg: "unsupported staging style: " + style}
	}

	optionsHash := Fingerprint(style)

	existing, err := s.store.FindActiveStagingRequest(projectID, optionsHash)
	if err == nil {
		return existing, true, nil
	}
	if !errors.Is(err, database.ErrNotFound) {
		return nil, false, err
	}

	if _, err := s.store.GetProject(projectID, userID); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, false, ErrNotFound
		}
		return nil, false, err
	}

	req := &models.StagingRequest{
		ID:               uuid.New(),
		UserID:           userID,
		ProjectID:        projectID,
		OriginalImageURL: imageURL,
		Style:            style,
		OptionsHash:      optionsHash,
		Status:           models.StatusPreviewGenerating,
	}

	if err := s.store.CreateStagingRequest(req); err != nil {
		// A concurrent duplicate submission can win the unique fingerprint
		// index between our lookup and insert; return the winner.
		if errors.Is(err, database.ErrConflict) {
			if existing, ferr := s.store.FindActiveStagingRequest(projectID, optionsHash); ferr == nil {
				return existing, true, nil
			}
		}
		return nil, false, err
	}

	if err := s.store.UpdateProjectStatus(projectID, models.ProjectProcessing); err != nil {
		s.log.Warn().Err(err).Str("project_id", projectID.String()).Msg("failed to update project status")
	}

	jobID, err := s.jobs.SubmitPreview(imageURL, style)
	if err != nil {
		s.failSubmission(req.ID, projectID, err)
		return nil, false, fmt.Errorf("failed to submit preview job: %w", err)
	}

	if err := s.store.SetPreviewJobID(req.ID, jobID); err != nil {
		s.log.Warn().Err(err).Str("request_id", req.ID.String()).Msg("failed to record preview job id")
	}

	s.reconciler.Watch(req, jobID, TierPreview)

	s.audit(userID, "preview.queued", req.ID.String(), map[string]interface{}{
		"style":     style,
		"projectId": projectID.String(),
	})

	return req, false, nil
}

// GetStatus returns a request with its outputs, re-signing the preview URL
// when it is close to expiry so clients never hold a dead link.
func (s *Service) GetStatus(requestID, userID uuid.UUID) (*RequestStatus, error) {
	req, err := s.store.GetStagingRequest(requestID, userID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	status := &RequestStatus{Request: req}

	if preview, err := s.store.GetStagingOutput(requestID, models.OutputPreview); err == nil {
		status.Preview = s.refreshPreviewURL(preview)
	}
	if hd, err := s.store.GetStagingOutput(requestID, models.OutputHd); err == nil {
		status.Hd = hd
	}

	return status, nil
}

// refreshPreviewURL re-signs a preview URL with less than five minutes of
// life left. Failures are non-fatal; the stale URL is returned.
func (s *Service) refreshPreviewURL(preview *models.StagingOutput) *models.StagingOutput {
	if !preview.ExpiresAt.Valid {
		return preview
	}
	if time.Until(preview.ExpiresAt.Time) >= urlRefreshThreshold {
		return preview
	}

	url, expiresAt, err := s.blobs.SignedURL(preview.StoragePath, storage.PreviewURLTTL)
	if err != nil {
		s.log.Warn().Err(err).Str("output_id", preview.ID.String()).Msg("failed to refresh preview url")
		return preview
	}

	if err := s.store.UpdateStagingOutputURL(preview.ID, url, expiresAt); err != nil {
		s.log.Warn().Err(err).Str("output_id", preview.ID.String()).Msg("failed to persist refreshed url")
	}

	preview.URL = url
	preview.ExpiresAt.Time = expiresAt
	return preview
}

// Regenerate re-runs preview generation with the same style. Legal only from
// preview_ready or failed, never once approved, and rate limited per user. A
// denied call mutates nothing.
func (s *Service) Regenerate(requestID, userID uuid.UUID) (int, int, error) {
	req, err := s.store.GetStagingRequest(requestID, userID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return 0, 0, ErrNotFound
		}
		return 0, 0, err
	}

	if req.Status != models.StatusPreviewReady && req.Status != models.StatusFailed {
		return 0, 0, &InvalidTransitionError{Current: req.Status, Attempted: "regenerate"}
	}
	if req.ApprovedAt.Valid {
		return 0, 0, &InvalidTransitionError{Current: req.Status, Attempted: "regenerate an approved preview"}
	}

	allowed, remaining, err := s.limiter.AllowRegeneration(userID)
	if err != nil {
		return 0, 0, err
	}
	if !allowed {
		return 0, 0, &RateLimitError{RetryAfter: regenRetryAfter}
	}

	// Win the conditional reset before touching the artifact; a concurrent
	// approval must keep its frozen preview output.
	regenCount, err := s.store.ResetForRegeneration(requestID)
	if err != nil {
		if errors.Is(err, database.ErrConflict) {
			return 0, 0, &InvalidTransitionError{Current: req.Status, Attempted: "regenerate"}
		}
		return 0, 0, err
	}

	if err := s.store.DeleteStagingOutput(requestID, models.OutputPreview); err != nil {
		// The loop deletes again before writing the replacement.
		s.log.Warn().Err(err).Str("request_id", requestID.String()).Msg("failed to delete stale preview output")
	}

	jobID, err := s.jobs.SubmitPreview(req.OriginalImageURL, req.Style)
	if err != nil {
		if _, merr := s.store.MarkFailed(requestID, err.Error()); merr != nil {
			s.log.Error().Err(merr).Str("request_id", requestID.String()).Msg("failed to record submission failure")
		}
		return 0, 0, fmt.Errorf("failed to submit preview job: %w", err)
	}

	if err := s.store.SetPreviewJobID(requestID, jobID); err != nil {
		s.log.Warn().Err(err).Str("request_id", requestID.String()).Msg("failed to record preview job id")
	}

	req.PreviewRegenCount = regenCount
	s.reconciler.Watch(req, jobID, TierPreview)

	s.audit(userID, "preview.regenerated", requestID.String(), map[string]interface{}{
		"regenCount": regenCount,
		"remaining":  remaining,
	})

	return regenCount, remaining, nil
}

// Approve locks the preview and gates HD generation. Legal only from
// preview_ready; calling it twice surfaces an invalid transition.
func (s *Service) Approve(requestID, userID uuid.UUID) error {
	req, err := s.store.GetStagingRequest(requestID, userID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}

	if req.Status != models.StatusPreviewReady {
		return &InvalidTransitionError{Current: req.Status, Attempted: "approve"}
	}

	if err := s.store.MarkApproved(requestID, userID); err != nil {
		if errors.Is(err, database.ErrConflict) {
			return &InvalidTransitionError{Current: req.Status, Attempted: "approve"}
		}
		return err
	}

	s.audit(userID, "preview.approved", requestID.String(), nil)

	return nil
}

// GenerateHd deducts one credit and queues the HD-tier job. If the credit
// was already deducted the call is an idempotent no-op. Two concurrent calls
// race on the conditional MarkHdQueued write; the loser's debit is refunded
// with a compensating ledger transaction, so at most one debit sticks.
func (s *Service) GenerateHd(requestID, userID uuid.UUID) (string, int, bool, error) {
	req, err := s.store.GetStagingRequest(requestID, userID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return "", 0, false, ErrNotFound
		}
		return "", 0, false, err
	}

	if req.HdCreditDeducted {
		return req.Status, 0, true, nil
	}

	if req.Status != models.StatusApproved || !req.ApprovedAt.Valid {
		return "", 0, false, ErrNotApproved
	}

	projectID := uuid.NullUUID{UUID: req.ProjectID, Valid: true}

	newBalance, err := s.ledger.DebitCredits(userID, hdCreditCost, projectID, "HD staging - "+req.Style)
	if err != nil {
		if errors.Is(err, database.ErrInsufficientCredits) {
			return "", 0, false, ErrInsufficientCredits
		}
		if errors.Is(err, database.ErrConflict) {
			return "", 0, false, ErrConflict
		}
		return "", 0, false, err
	}

	if err := s.store.MarkHdQueued(requestID); err != nil {
		if errors.Is(err, database.ErrConflict) {
			// A concurrent call queued HD first; give the credit back.
			s.refund(userID, projectID, "Refund: duplicate HD request - "+req.Style)
			current, gerr := s.store.GetStagingRequest(requestID, userID)
			if gerr != nil {
				return models.StatusHdGenerating, 0, true, nil
			}
			return current.Status, 0, true, nil
		}
		// The deducted flag was never set, so the sweep cannot see this
		// debit; compensate it here.
		s.refund(userID, projectID, "Refund: HD queueing failed - "+req.Style)
		return "", 0, false, err
	}

	jobID, err := s.jobs.SubmitHd(req.OriginalImageURL, req.Style)
	if err != nil {
		// Submission never happened: put the request back to approved and
		// compensate the debit.
		if rerr := s.store.RevertHdQueued(requestID); rerr != nil {
			s.log.Error().Err(rerr).Str("request_id", requestID.String()).Msg("failed to revert hd queue")
		}
		s.refund(userID, projectID, "Refund: HD submission failed - "+req.Style)
		return "", 0, false, fmt.Errorf("failed to submit hd job: %w", err)
	}

	if err := s.store.SetHdJobID(requestID, jobID); err != nil {
		s.log.Warn().Err(err).Str("request_id", requestID.String()).Msg("failed to record hd job id")
	}

	s.reconciler.Watch(req, jobID, TierHd)

	s.audit(userID, "hd.queued", requestID.String(), map[string]interface{}{
		"style":            req.Style,
		"creditsRemaining": newBalance,
	})

	return models.StatusHdGenerating, newBalance, false, nil
}

// DownloadHd mints a fresh 7-day signed URL for the HD artifact. Legal only
// from hd_ready and only when the credit was actually deducted.
func (s *Service) DownloadHd(requestID, userID uuid.UUID) (string, *models.StagingOutput, error) {
	req, err := s.store.GetStagingRequest(requestID, userID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return "", nil, ErrNotFound
		}
		return "", nil, err
	}

	if req.Status != models.StatusHdReady {
		return "", nil, &InvalidTransitionError{Current: req.Status, Attempted: "download HD"}
	}
	if !req.HdCreditDeducted {
		return "", nil, ErrHdNotPaid
	}

	output, err := s.store.GetStagingOutput(requestID, models.OutputHd)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return "", nil, ErrNotFound
		}
		return "", nil, err
	}

	url, _, err := s.blobs.SignedURL(output.StoragePath, storage.HdDownloadURLTTL)
	if err != nil {
		return "", nil, fmt.Errorf("failed to sign hd download url: %w", err)
	}

	s.audit(userID, "hd.downloaded", requestID.String(), map[string]interface{}{
		"width":  output.Width,
		"height": output.Height,
	})

	return url, output, nil
}

func (s *Service) failSubmission(requestID, projectID uuid.UUID, cause error) {
	if _, err := s.store.MarkFailed(requestID, cause.Error()); err != nil {
		s.log.Error().Err(err).Str("request_id", requestID.String()).Msg("failed to record submission failure")
	}
	if err := s.store.UpdateProjectStatus(projectID, models.ProjectFailed); err != nil {
		s.log.Warn().Err(err).Str("project_id", projectID.String()).Msg("failed to update project status")
	}
}

// refund compensates a debit that could not be honored. Best-effort: a
// refund failure is logged and picked up by the reconciliation sweep.
func (s *Service) refund(userID uuid.UUID, projectID uuid.NullUUID, description string) {
	if _, err := s.ledger.CreditCredits(userID, hdCreditCost, projectID, description); err != nil {
		s.log.Error().Err(err).Str("user_id", userID.String()).Msg("failed to refund credit")
	}
}

func (s *Service) audit(userID uuid.UUID, event, resourceID string, metadata map[string]interface{}) {
	if err := s.store.InsertAuditLog(userID, event, resourceID, metadata); err != nil {
		s.log.Warn().Err(err).Str("event", event).Msg("failed to write audit log")
	}
}
