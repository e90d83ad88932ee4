package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"snapstage-backend/internal/models"
	"snapstage-backend/internal/staging"
)

// StagingService is the slice of the staging flow the HTTP layer needs.
// Satisfied by *staging.Service.
type StagingService interface {
	RequestPreview(userID, projectID uuid.UUID, imageURL, style string) (*models.StagingRequest, bool, error)
	GetStatus(requestID, userID uuid.UUID) (*staging.RequestStatus, error)
	Regenerate(requestID, userID uuid.UUID) (int, int, error)
	Approve(requestID, userID uuid.UUID) error
	GenerateHd(requestID, userID uuid.UUID) (string, int, bool, error)
	DownloadHd(requestID, userID uuid.UUID) (string, *models.StagingOutput, error)
}

type StagingHandler struct {
	service StagingService
	log     zerolog.Logger
}

func NewStagingHandler(service StagingService, log zerolog.Logger) *StagingHandler {
	return &StagingHandler{
		service: service,
		log:     log,
	}
}

// RequestPreview queues watermarked preview generation for a project image.
// Resubmitting the same (project, style) pair while a request is in flight
// returns the existing request instead of creating a duplicate.
func (h *StagingHandler) RequestPreview(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req models.PreviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "invalid request body",
			Message: err.Error(),
		})
		return
	}

	projectID, err := uuid.Parse(req.ProjectID)
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid project id"})
		return
	}

	request, existing, err := h.service.RequestPreview(userID, projectID, req.ImageURL, req.Style)
	if err != nil {
		h.respondError(c, err)
		return
	}

	if existing {
		c.JSON(http.StatusOK, models.PreviewQueuedResponse{
			RequestID: request.ID.String(),
			Status:    request.Status,
			Message:   "an identical request is already in progress",
		})
		return
	}

	c.JSON(http.StatusAccepted, models.PreviewQueuedResponse{
		RequestID: request.ID.String(),
		Status:    request.Status,
	})
}

// GetRequest returns the current state of a staging request with its outputs.
func (h *StagingHandler) GetRequest(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	requestID, ok := pathUUID(c, "request_id")
	if !ok {
		return
	}

	status, err := h.service.GetStatus(requestID, userID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	req := status.Request
	response := models.RequestStatusResponse{
		RequestID:  req.ID.String(),
		Status:     req.Status,
		Style:      req.Style,
		RegenCount: req.PreviewRegenCount,
	}
	if req.ApprovedAt.Valid {
		response.ApprovedAt = &req.ApprovedAt.Time
	}
	if req.ErrorMessage.Valid {
		response.ErrorMessage = req.ErrorMessage.String
	}
	if status.Preview != nil {
		response.Preview = &models.OutputInfo{
			URL:    status.Preview.URL,
			Width:  status.Preview.Width,
			Height: status.Preview.Height,
		}
	}
	if status.Hd != nil {
		response.Hd = &models.HdInfo{Ready: req.Status == models.StatusHdReady}
	}

	c.JSON(http.StatusOK, response)
}

// Regenerate re-runs the preview with the same style. Rejected once the
// preview is approved, and rate limited per user.
func (h *StagingHandler) Regenerate(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	requestID, ok := pathUUID(c, "request_id")
	if !ok {
		return
	}

	regenCount, remaining, err := h.service.Regenerate(requestID, userID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, models.RegenerateResponse{
		RequestID:      requestID.String(),
		Status:         models.StatusPreviewGenerating,
		RegenCount:     regenCount,
		RegenRemaining: remaining,
	})
}

// Approve locks the preview so HD generation can be purchased.
func (h *StagingHandler) Approve(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	requestID, ok := pathUUID(c, "request_id")
	if !ok {
		return
	}

	if err := h.service.Approve(requestID, userID); err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.ApproveResponse{
		RequestID: requestID.String(),
		Status:    models.StatusApproved,
	})
}

// GenerateHd deducts one credit and queues the HD-tier job. Calling it again
// while the credit is already deducted is an idempotent no-op.
func (h *StagingHandler) GenerateHd(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	requestID, ok := pathUUID(c, "request_id")
	if !ok {
		return
	}

	status, newBalance, alreadyQueued, err := h.service.GenerateHd(requestID, userID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	if alreadyQueued {
		c.JSON(http.StatusOK, models.GenerateHdResponse{
			RequestID: requestID.String(),
			Status:    status,
			Message:   "HD generation already requested",
		})
		return
	}

	c.JSON(http.StatusAccepted, models.GenerateHdResponse{
		RequestID:        requestID.String(),
		Status:           status,
		CreditsRemaining: newBalance,
	})
}

// DownloadHd mints a fresh 7-day signed URL for the HD artifact.
func (h *StagingHandler) DownloadHd(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	requestID, ok := pathUUID(c, "request_id")
	if !ok {
		return
	}

	url, output, err := h.service.DownloadHd(requestID, userID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.DownloadHdResponse{
		DownloadURL:   url,
		Width:         output.Width,
		Height:        output.Height,
		FileSizeBytes: output.FileSizeBytes,
		ExpiresIn:     "7d",
	})
}

// respondError maps staging flow errors to HTTP status codes.
func (h *StagingHandler) respondError(c *gin.Context, err error) {
	var validationErr *staging.ValidationError
	var transitionErr *staging.InvalidTransitionError
	var rateLimitErr *staging.RateLimitError

	switch {
	case errors.As(err, &validationErr):
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: validationErr.Msg})
	case errors.Is(err, staging.ErrNotFound):
		c.JSON(http.StatusNotFound, models.ErrorResponse{Error: err.Error()})
	case errors.As(err, &transitionErr):
		c.JSON(http.StatusConflict, models.ErrorResponse{Error: "invalid state", Message: err.Error()})
	case errors.As(err, &rateLimitErr):
		c.Header("Retry-After", fmt.Sprintf("%d", int(rateLimitErr.RetryAfter.Seconds())))
		c.JSON(http.StatusTooManyRequests, gin.H{
			"error":        rateLimitErr.Error(),
			"retryAfterMs": rateLimitErr.RetryAfter.Milliseconds(),
		})
	case errors.Is(err, staging.ErrInsufficientCredits):
		c.JSON(http.StatusPaymentRequired, models.ErrorResponse{Error: err.Error()})
	case errors.Is(err, staging.ErrNotApproved), errors.Is(err, staging.ErrHdNotPaid):
		c.JSON(http.StatusForbidden, models.ErrorResponse{Error: err.Error()})
	case errors.Is(err, staging.ErrConflict):
		c.JSON(http.StatusConflict, models.ErrorResponse{Error: err.Error()})
	default:
		h.log.Error().Err(err).Str("path", c.FullPath()).Msg("staging request failed")
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error:   "internal error",
			Message: err.Error(),
		})
	}
}
