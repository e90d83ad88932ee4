package handlers

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"snapstage-backend/internal/config"
	"snapstage-backend/internal/database"
	"snapstage-backend/internal/models"
)

type WebhookHandler struct {
	config   *config.Config
	dbClient *database.Client
	log      zerolog.Logger
}

func NewWebhookHandler(cfg *config.Config, dbClient *database.Client, log zerolog.Logger) *WebhookHandler {
	return &WebhookHandler{
		config:   cfg,
		dbClient: dbClient,
		log:      log,
	}
}

// HandleCreditsWebhook grants purchased credits. Called by the payments
// collaborator after a successful checkout, authenticated with a shared
// secret header.
func (h *WebhookHandler) HandleCreditsWebhook(c *gin.Context) {
	secret := c.GetHeader("X-Webhook-Secret")
	if h.config.CreditsWebhookSecret == "" ||
		subtle.ConstantTimeCompare([]byte(secret), []byte(h.config.CreditsWebhookSecret)) != 1 {
		c.JSON(http.StatusUnauthorized, models.ErrorResponse{Error: "invalid webhook secret"})
		return
	}

	var event models.CreditsWebhookEvent
	if err := c.ShouldBindJSON(&event); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "invalid webhook payload",
			Message: err.Error(),
		})
		return
	}

	userID, err := uuid.Parse(event.UserID)
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid user id"})
		return
	}

	description := event.Description
	if description == "" {
		description = "Credit purchase"
	}

	newBalance, err := h.dbClient.CreditCredits(userID, event.Credits, uuid.NullUUID{}, description)
	if err != nil {
		h.log.Error().Err(err).Str("user_id", event.UserID).Msg("failed to grant credits")
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error:   "failed to grant credits",
			Message: err.Error(),
		})
		return
	}

	if err := h.dbClient.InsertAuditLog(userID, "credits.granted", event.UserID, map[string]interface{}{
		"credits": event.Credits,
	}); err != nil {
		h.log.Warn().Err(err).Msg("failed to write audit log")
	}

	c.JSON(http.StatusOK, models.CreditsResponse{CreditsRemaining: newBalance})
}
