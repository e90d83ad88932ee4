package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"snapstage-backend/internal/database"
	"snapstage-backend/internal/models"
)

type CreditsHandler struct {
	dbClient *database.Client
}

func NewCreditsHandler(dbClient *database.Client) *CreditsHandler {
	return &CreditsHandler{dbClient: dbClient}
}

// GetCredits returns the user's current balance and plan.
func (h *CreditsHandler) GetCredits(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	profile, err := h.dbClient.GetProfile(userID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			c.JSON(http.StatusNotFound, models.ErrorResponse{Error: "profile not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error:   "failed to get credits",
			Message: err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, models.CreditsResponse{
		CreditsRemaining: profile.CreditsRemaining,
		Plan:             profile.Plan,
	})
}

// ListTransactions returns the user's ledger history, newest first.
func (h *CreditsHandler) ListTransactions(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	transactions, err := h.dbClient.ListTransactions(userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error:   "failed to list transactions",
			Message: err.Error(),
		})
		return
	}

	responses := make([]models.TransactionResponse, len(transactions))
	for i, tx := range transactions {
		responses[i] = models.TransactionResponse{
			ID:          tx.ID.String(),
			Amount:      tx.Amount,
			Description: tx.Description,
			CreatedAt:   tx.CreatedAt,
		}
	}

	c.JSON(http.StatusOK, models.TransactionListResponse{Transactions: responses})
}
