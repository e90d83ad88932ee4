package staging_test

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"snapstage-backend/internal/database"
	"snapstage-backend/internal/models"
	"snapstage-backend/internal/staging"
	"snapstage-backend/internal/storage"
)

func TestRequestPreview_QueuesJob(t *testing.T) {
	f := newFixture()

	req, existing, err := f.service.RequestPreview(f.userID, f.projectID, "https://example.com/room.jpg", "scandinavian")
	require.NoError(t, err)
	assert.False(t, existing)
	assert.Equal(t, models.StatusPreviewGenerating, req.Status)

	stored := f.store.request(req.ID)
	assert.True(t, stored.PreviewJobID.Valid)
	assert.Equal(t, []string{"scandinavian"}, f.jobs.submitted)

	project, err := f.store.GetProject(f.projectID, f.userID)
	require.NoError(t, err)
	assert.Equal(t, models.ProjectProcessing, project.Status)
}

func TestRequestPreview_InvalidStyle(t *testing.T) {
	f := newFixture()

	_, _, err := f.service.RequestPreview(f.userID, f.projectID, "https://example.com/room.jpg", "brutalist-spaceship")

	var validationErr *staging.ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Empty(t, f.jobs.submitted)
}

func TestRequestPreview_DuplicateReturnsExisting(t *testing.T) {
	f := newFixture()

	first, _, err := f.service.RequestPreview(f.userID, f.projectID, "https://example.com/room.jpg", "scandinavian")
	require.NoError(t, err)

	second, existing, err := f.service.RequestPreview(f.userID, f.projectID, "https://example.com/room.jpg", "scandinavian")
	require.NoError(t, err)

	assert.True(t, existing)
	assert.Equal(t, first.ID, second.ID)
	assert.Len(t, f.jobs.submitted, 1)
}

func TestRequestPreview_DifferentStyleIsNewRequest(t *testing.T) {
	f := newFixture()

	first, _, err := f.service.RequestPreview(f.userID, f.projectID, "https://example.com/room.jpg", "scandinavian")
	require.NoError(t, err)

	second, existing, err := f.service.RequestPreview(f.userID, f.projectID, "https://example.com/room.jpg", "industrial")
	require.NoError(t, err)

	assert.False(t, existing)
	assert.NotEqual(t, first.ID, second.ID)
}

func TestRequestPreview_ProjectNotFound(t *testing.T) {
	f := newFixture()

	_, _, err := f.service.RequestPreview(f.userID, uuid.New(), "https://example.com/room.jpg", "scandinavian")
	assert.ErrorIs(t, err, staging.ErrNotFound)
}

func TestRequestPreview_SubmitFailureFailsRequest(t *testing.T) {
	f := newFixture()
	f.jobs.submitErr = assert.AnError

	_, _, err := f.service.RequestPreview(f.userID, f.projectID, "https://example.com/room.jpg", "scandinavian")
	require.Error(t, err)

	found, err := f.store.FindActiveStagingRequest(f.projectID, staging.Fingerprint("scandinavian"))
	assert.ErrorIs(t, err, database.ErrNotFound)
	assert.Nil(t, found)

	project, _ := f.store.GetProject(f.projectID, f.userID)
	assert.Equal(t, models.ProjectFailed, project.Status)
}

func TestGetStatus_RefreshesExpiringPreviewURL(t *testing.T) {
	f := newFixture()
	req := f.seedRequest(models.StatusPreviewReady, false, false)

	output := &models.StagingOutput{
		ID:          uuid.New(),
		RequestID:   req.ID,
		OutputType:  models.OutputPreview,
		StoragePath: "path/preview.png",
		URL:         "https://signed.example/stale",
		Width:       1024,
		Height:      768,
		Watermarked: true,
	}
	output.ExpiresAt.Time = time.Now().Add(time.Minute)
	output.ExpiresAt.Valid = true
	require.NoError(t, f.store.CreateStagingOutput(output))

	status, err := f.service.GetStatus(req.ID, f.userID)
	require.NoError(t, err)

	assert.Equal(t, 1, f.blobs.signed)
	assert.Equal(t, "https://signed.example/path/preview.png", status.Preview.URL)
	assert.Greater(t, time.Until(status.Preview.ExpiresAt.Time), 30*time.Minute)

	persisted, _ := f.store.GetStagingOutput(req.ID, models.OutputPreview)
	assert.Equal(t, status.Preview.URL, persisted.URL)
}

func TestGetStatus_KeepsFreshPreviewURL(t *testing.T) {
	f := newFixture()
	req := f.seedRequest(models.StatusPreviewReady, false, false)

	output := &models.StagingOutput{
		ID:          uuid.New(),
		RequestID:   req.ID,
		OutputType:  models.OutputPreview,
		StoragePath: "path/preview.png",
		URL:         "https://signed.example/fresh",
	}
	output.ExpiresAt.Time = time.Now().Add(30 * time.Minute)
	output.ExpiresAt.Valid = true
	require.NoError(t, f.store.CreateStagingOutput(output))

	status, err := f.service.GetStatus(req.ID, f.userID)
	require.NoError(t, err)

	assert.Equal(t, 0, f.blobs.signed)
	assert.Equal(t, "https://signed.example/fresh", status.Preview.URL)
}

func TestGetStatus_NotFoundForOtherUser(t *testing.T) {
	f := newFixture()
	req := f.seedRequest(models.StatusPreviewReady, false, false)

	_, err := f.service.GetStatus(req.ID, uuid.New())
	assert.ErrorIs(t, err, staging.ErrNotFound)
}

func TestRegenerate_FromPreviewReady(t *testing.T) {
	f := newFixture()
	req := f.seedRequest(models.StatusPreviewReady, false, false)

	count, remaining, err := f.service.Regenerate(req.ID, f.userID)
	require.NoError(t, err)

	assert.Equal(t, 1, count)
	assert.Equal(t, 9, remaining)
	assert.Equal(t, models.StatusPreviewGenerating, f.store.request(req.ID).Status)
	assert.Len(t, f.jobs.submitted, 1)
}

func TestRegenerate_FromFailed(t *testing.T) {
	f := newFixture()
	req := f.seedRequest(models.StatusFailed, false, false)

	count, _, err := f.service.Regenerate(req.ID, f.userID)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.Equal(t, models.StatusPreviewGenerating, f.store.request(req.ID).Status)
}

func TestRegenerate_RejectedOnceApproved(t *testing.T) {
	f := newFixture()
	req := f.seedRequest(models.StatusApproved, true, false)

	_, _, err := f.service.Regenerate(req.ID, f.userID)

	var transitionErr *staging.InvalidTransitionError
	require.ErrorAs(t, err, &transitionErr)
	assert.Empty(t, f.jobs.submitted)
}

func TestRegenerate_RateLimited(t *testing.T) {
	f := newFixture()
	f.limiter.allowed = false
	req := f.seedRequest(models.StatusPreviewReady, false, false)

	_, _, err := f.service.Regenerate(req.ID, f.userID)

	var rateLimitErr *staging.RateLimitError
	require.ErrorAs(t, err, &rateLimitErr)
	assert.Equal(t, time.Hour, rateLimitErr.RetryAfter)

	// Denied call mutates nothing.
	stored := f.store.request(req.ID)
	assert.Equal(t, models.StatusPreviewReady, stored.Status)
	assert.Equal(t, 0, stored.PreviewRegenCount)
	assert.Empty(t, f.jobs.submitted)
}

func TestRegenerate_LostRaceKeepsPreviewOutput(t *testing.T) {
	f := newFixture()
	req := f.seedRequest(models.StatusPreviewReady, false, false)
	require.NoError(t, f.store.CreateStagingOutput(&models.StagingOutput{
		ID:          uuid.New(),
		RequestID:   req.ID,
		OutputType:  models.OutputPreview,
		StoragePath: "path/preview.png",
		URL:         "https://signed.example/path/preview.png",
		Watermarked: true,
	}))
	// A concurrent approval wins between our status read and the reset.
	f.store.resetErr = database.ErrConflict

	_, _, err := f.service.Regenerate(req.ID, f.userID)

	var transitionErr *staging.InvalidTransitionError
	require.ErrorAs(t, err, &transitionErr)

	// The frozen preview artifact survives the lost race.
	output, gerr := f.store.GetStagingOutput(req.ID, models.OutputPreview)
	require.NoError(t, gerr)
	assert.True(t, output.Watermarked)
	assert.Empty(t, f.jobs.submitted)
}

func TestApprove_FromPreviewReady(t *testing.T) {
	f := newFixture()
	req := f.seedRequest(models.StatusPreviewReady, false, false)

	require.NoError(t, f.service.Approve(req.ID, f.userID))

	stored := f.store.request(req.ID)
	assert.Equal(t, models.StatusApproved, stored.Status)
	assert.True(t, stored.ApprovedAt.Valid)
	assert.Equal(t, f.userID, stored.ApprovedBy.UUID)
}

func TestApprove_RejectedWhileGenerating(t *testing.T) {
	f := newFixture()
	req := f.seedRequest(models.StatusPreviewGenerating, false, false)

	err := f.service.Approve(req.ID, f.userID)

	var transitionErr *staging.InvalidTransitionError
	assert.ErrorAs(t, err, &transitionErr)
}

func TestGenerateHd_DebitsAndQueues(t *testing.T) {
	f := newFixture()
	req := f.seedRequest(models.StatusApproved, true, false)

	status, balance, alreadyQueued, err := f.service.GenerateHd(req.ID, f.userID)
	require.NoError(t, err)

	assert.False(t, alreadyQueued)
	assert.Equal(t, models.StatusHdGenerating, status)
	assert.Equal(t, 2, balance)
	assert.Equal(t, 1, f.ledger.debits)

	stored := f.store.request(req.ID)
	assert.True(t, stored.HdCreditDeducted)
	assert.True(t, stored.HdJobID.Valid)
}

func TestGenerateHd_RequiresApproval(t *testing.T) {
	f := newFixture()
	req := f.seedRequest(models.StatusPreviewReady, false, false)

	_, _, _, err := f.service.GenerateHd(req.ID, f.userID)
	assert.ErrorIs(t, err, staging.ErrNotApproved)
	assert.Equal(t, 0, f.ledger.debits)
}

func TestGenerateHd_InsufficientCredits(t *testing.T) {
	f := newFixture()
	f.ledger.balance = 0
	req := f.seedRequest(models.StatusApproved, true, false)

	_, _, _, err := f.service.GenerateHd(req.ID, f.userID)
	assert.ErrorIs(t, err, staging.ErrInsufficientCredits)

	// Failed payment leaves the request untouched.
	stored := f.store.request(req.ID)
	assert.Equal(t, models.StatusApproved, stored.Status)
	assert.False(t, stored.HdCreditDeducted)
}

func TestGenerateHd_IdempotentOnceDeducted(t *testing.T) {
	f := newFixture()
	req := f.seedRequest(models.StatusApproved, true, false)

	_, _, _, err := f.service.GenerateHd(req.ID, f.userID)
	require.NoError(t, err)

	status, _, alreadyQueued, err := f.service.GenerateHd(req.ID, f.userID)
	require.NoError(t, err)

	assert.True(t, alreadyQueued)
	assert.Equal(t, models.StatusHdGenerating, status)
	assert.Equal(t, 1, f.ledger.debits)
	assert.Len(t, f.jobs.submitted, 1)
}

func TestGenerateHd_ConcurrentLoserRefunds(t *testing.T) {
	f := newFixture()
	req := f.seedRequest(models.StatusApproved, true, false)
	f.store.markHdQueuedErr = database.ErrConflict

	_, _, alreadyQueued, err := f.service.GenerateHd(req.ID, f.userID)
	require.NoError(t, err)

	assert.True(t, alreadyQueued)
	assert.Equal(t, 1, f.ledger.debits)
	assert.Equal(t, 1, f.ledger.refunds)
	assert.Equal(t, 3, f.ledger.balance)
	assert.Contains(t, f.ledger.descriptions, "Refund: duplicate HD request - scandinavian")
}

func TestGenerateHd_QueueFailureRefunds(t *testing.T) {
	f := newFixture()
	req := f.seedRequest(models.StatusApproved, true, false)
	f.store.markHdQueuedErr = errors.New("connection reset by peer")

	_, _, _, err := f.service.GenerateHd(req.ID, f.userID)
	require.Error(t, err)

	// The deducted flag never got set, so the sweep cannot recover this
	// debit; the compensating credit must happen inline.
	assert.Equal(t, 1, f.ledger.debits)
	assert.Equal(t, 1, f.ledger.refunds)
	assert.Equal(t, 3, f.ledger.balance)
	assert.Contains(t, f.ledger.descriptions, "Refund: HD queueing failed - scandinavian")

	stored := f.store.request(req.ID)
	assert.Equal(t, models.StatusApproved, stored.Status)
	assert.False(t, stored.HdCreditDeducted)
	assert.Empty(t, f.jobs.submitted)
}

func TestGenerateHd_SubmitFailureRefunds(t *testing.T) {
	f := newFixture()
	f.jobs.submitErr = assert.AnError
	req := f.seedRequest(models.StatusApproved, true, false)

	_, _, _, err := f.service.GenerateHd(req.ID, f.userID)
	require.Error(t, err)

	assert.Equal(t, 1, f.ledger.refunds)
	assert.Equal(t, 3, f.ledger.balance)

	stored := f.store.request(req.ID)
	assert.Equal(t, models.StatusApproved, stored.Status)
	assert.False(t, stored.HdCreditDeducted)
}

func TestDownloadHd_SignsFreshURL(t *testing.T) {
	f := newFixture()
	req := f.seedRequest(models.StatusHdReady, true, true)
	require.NoError(t, f.store.CreateStagingOutput(&models.StagingOutput{
		ID:            uuid.New(),
		RequestID:     req.ID,
		OutputType:    models.OutputHd,
		StoragePath:   "path/hd.png",
		URL:           "path/hd.png",
		Width:         2048,
		Height:        1536,
		FileSizeBytes: 512000,
	}))

	url, output, err := f.service.DownloadHd(req.ID, f.userID)
	require.NoError(t, err)

	assert.Equal(t, "https://signed.example/path/hd.png", url)
	assert.Equal(t, storage.HdDownloadURLTTL, f.blobs.signTTL)
	assert.Equal(t, int64(512000), output.FileSizeBytes)
}

func TestDownloadHd_RejectedBeforeReady(t *testing.T) {
	f := newFixture()
	req := f.seedRequest(models.StatusHdGenerating, true, true)

	_, _, err := f.service.DownloadHd(req.ID, f.userID)

	var transitionErr *staging.InvalidTransitionError
	assert.ErrorAs(t, err, &transitionErr)
}

func TestDownloadHd_RequiresDeductedCredit(t *testing.T) {
	f := newFixture()
	req := f.seedRequest(models.StatusHdReady, true, false)

	_, _, err := f.service.DownloadHd(req.ID, f.userID)
	assert.ErrorIs(t, err, staging.ErrHdNotPaid)
}

func TestFingerprint_StableAcrossCalls(t *testing.T) {
	assert.Equal(t, staging.Fingerprint("scandinavian"), staging.Fingerprint("scandinavian"))
	assert.NotEqual(t, staging.Fingerprint("scandinavian"), staging.Fingerprint("industrial"))
}
