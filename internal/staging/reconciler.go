package staging

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"snapstage-backend/internal/imaging"
	"snapstage-backend/internal/models"
	"snapstage-backend/internal/replicate"
	"snapstage-backend/internal/storage"
)

// Tier selects the quality level of a generation job.
type Tier string

const (
	TierPreview Tier = "preview"
	TierHd      Tier = "hd"
)

const (
	defaultPollInterval    = 4 * time.Second
	defaultPreviewAttempts = 30
	defaultHdAttempts      = 40
)

// Reconciler advances staging requests as the generation backend reports
// progress. One goroutine runs per in-flight job; the submitting call never
// waits on it. Each loop self-terminates on a terminal job status or after
// its attempt budget, and always leaves the request in a terminal or
// resumable state; a panic or post-processing error forces status failed.
type Reconciler struct {
	store  Store
	jobs   JobBackend
	blobs  BlobStore
	images ImageProcessor
	mailer Mailer
	log    zerolog.Logger

	pollInterval    time.Duration
	previewAttempts int
	hdAttempts      int

	wg sync.WaitGroup
}

func NewReconciler(
	store Store,
	jobs JobBackend,
	blobs BlobStore,
	images ImageProcessor,
	mailer Mailer,
	log zerolog.Logger,
) *Reconciler {
	return &Reconciler{
		store:           store,
		jobs:            jobs,
		blobs:           blobs,
		images:          images,
		mailer:          mailer,
		log:             log,
		pollInterval:    defaultPollInterval,
		previewAttempts: defaultPreviewAttempts,
		hdAttempts:      defaultHdAttempts,
	}
}

// SetPolling overrides the poll cadence and attempt budgets.
func (r *Reconciler) SetPolling(interval time.Duration, previewAttempts, hdAttempts int) {
	r.pollInterval = interval
	r.previewAttempts = previewAttempts
	r.hdAttempts = hdAttempts
}

// Watch starts the fire-and-forget polling loop for a submitted job.
func (r *Reconciler) Watch(req *models.StagingRequest, jobID string, tier Tier) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer func() {
			if p := recover(); p != nil {
				r.log.Error().Str("request_id", req.ID.String()).Interface("panic", p).Msg("reconciler panicked")
				r.failRequest(req.ID, fmt.Sprintf("internal error: %v", p))
			}
		}()
		r.run(req, jobID, tier)
	}()
}

// Wait blocks until all in-flight loops finish.
func (r *Reconciler) Wait() {
	r.wg.Wait()
}

func (r *Reconciler) run(req *models.StagingRequest, jobID string, tier Tier) {
	attempts := r.previewAttempts
	if tier == TierHd {
		attempts = r.hdAttempts
	}

	for i := 0; i < attempts; i++ {
		time.Sleep(r.pollInterval)

		prediction, err := r.jobs.GetPrediction(jobID)
		if err != nil {
			// Transient transport error; the attempt budget bounds retries.
			r.log.Warn().Err(err).Str("job_id", jobID).Msg("poll failed")
			continue
		}

		switch prediction.Status {
		case replicate.StatusSucceeded:
			if prediction.OutputURL == "" {
				r.failRequest(req.ID, "generation succeeded but returned no output")
				return
			}
			if err := r.complete(req, tier, prediction.OutputURL); err != nil {
				r.log.Error().Err(err).Str("request_id", req.ID.String()).Msg("post-processing failed")
				r.failRequest(req.ID, err.Error())
			}
			return
		case replicate.StatusFailed:
			msg := "AI generation failed"
			if tier == TierHd {
				msg = "HD generation failed"
			}
			if prediction.Error != "" {
				msg = msg + ": " + prediction.Error
			}
			r.failRequest(req.ID, msg)
			return
		}
	}

	msg := "Preview generation timed out"
	if tier == TierHd {
		msg = "HD generation timed out"
	}
	r.failRequest(req.ID, msg)
}

// complete post-processes a succeeded job: fetch the raw output, produce the
// artifact for the tier, upload it, persist the output row and advance the
// request status with a conditional transition. A stale loop whose request
// has since moved on loses the conditional write and backs off.
func (r *Reconciler) complete(req *models.StagingRequest, tier Tier, outputURL string) error {
	raw, err := r.images.FetchImage(outputURL)
	if err != nil {
		return err
	}

	var artifact *imaging.Artifact
	var output models.StagingOutput

	switch tier {
	case TierPreview:
		a, err := r.images.MakePreview(raw)
		if err != nil {
			return err
		}
		artifact = a

		path := storage.OutputPath(req.UserID, req.ID, models.OutputPreview)
		if err := r.blobs.Upload(artifact.Bytes, path, "image/png"); err != nil {
			return err
		}

		url, expiresAt, err := r.blobs.SignedURL(path, storage.PreviewURLTTL)
		if err != nil {
			return err
		}

		output = models.StagingOutput{
			ID:            uuid.New(),
			RequestID:     req.ID,
			OutputType:    models.OutputPreview,
			StoragePath:   path,
			URL:           url,
			Width:         artifact.Width,
			Height:        artifact.Height,
			Watermarked:   true,
			FileSizeBytes: int64(len(artifact.Bytes)),
		}
		output.ExpiresAt.Time = expiresAt
		output.ExpiresAt.Valid = true

	case TierHd:
		a, err := r.images.MakeHd(raw)
		if err != nil {
			return err
		}
		artifact = a

		path := storage.OutputPath(req.UserID, req.ID, models.OutputHd)
		if err := r.blobs.Upload(artifact.Bytes, path, "image/png"); err != nil {
			return err
		}

		// HD rows store the path only; download URLs are minted fresh on
		// every download request.
		output = models.StagingOutput{
			ID:            uuid.New(),
			RequestID:     req.ID,
			OutputType:    models.OutputHd,
			StoragePath:   path,
			URL:           path,
			Width:         artifact.Width,
			Height:        artifact.Height,
			Watermarked:   false,
			FileSizeBytes: int64(len(artifact.Bytes)),
		}
	}

	if err := r.store.DeleteStagingOutput(req.ID, output.OutputType); err != nil {
		return err
	}
	if err := r.store.CreateStagingOutput(&output); err != nil {
		return err
	}

	from, to := models.StatusPreviewGenerating, models.StatusPreviewReady
	if tier == TierHd {
		from, to = models.StatusHdGenerating, models.StatusHdReady
	}

	if err := r.store.TransitionStatus(req.ID, from, to); err != nil {
		// The request moved on while we were post-processing (for example a
		// regenerate superseded this loop). Leave the newer state alone.
		r.log.Warn().Str("request_id", req.ID.String()).Str("from", from).Str("to", to).
			Msg("stale reconciliation loop lost its transition")
		return nil
	}

	if tier == TierHd {
		r.finishHd(req, &output)
	} else {
		r.auditReady(req, "preview.ready", &output)
	}

	return nil
}

// finishHd marks the owning project completed and fires the best-effort
// completion notification.
func (r *Reconciler) finishHd(req *models.StagingRequest, output *models.StagingOutput) {
	if err := r.store.UpdateProjectStatus(req.ProjectID, models.ProjectCompleted); err != nil {
		r.log.Warn().Err(err).Str("project_id", req.ProjectID.String()).Msg("failed to mark project completed")
	}

	profile, err := r.store.GetProfile(req.UserID)
	if err != nil {
		r.log.Warn().Err(err).Str("user_id", req.UserID.String()).Msg("failed to load profile for notification")
	} else if profile.Email != "" {
		name := profile.FullName
		if name == "" {
			name = profile.Email
		}

		projectName := "Your project"
		if project, err := r.store.GetProject(req.ProjectID, req.UserID); err == nil && project.Name != "" {
			projectName = project.Name
		}

		if err := r.mailer.SendStagingCompleted(profile.Email, name, req.ProjectID.String(), projectName); err != nil {
			r.log.Warn().Err(err).Str("user_id", req.UserID.String()).Msg("failed to send completion email")
		}
	}

	r.auditReady(req, "hd.ready", output)
}

func (r *Reconciler) auditReady(req *models.StagingRequest, event string, output *models.StagingOutput) {
	err := r.store.InsertAuditLog(req.UserID, event, req.ID.String(), map[string]interface{}{
		"width":  output.Width,
		"height": output.Height,
	})
	if err != nil {
		r.log.Warn().Err(err).Str("event", event).Msg("failed to write audit log")
	}
}

// failRequest forces a terminal failed status. Terminal requests are left
// untouched, so a stale loop cannot clobber a newer outcome.
func (r *Reconciler) failRequest(requestID uuid.UUID, errorMessage string) {
	changed, err := r.store.MarkFailed(requestID, errorMessage)
	if err != nil {
		r.log.Error().Err(err).Str("request_id", requestID.String()).Msg("failed to mark request failed")
		return
	}
	if changed {
		r.log.Info().Str("request_id", requestID.String()).Str("error", errorMessage).Msg("request failed")
	}
}
