package models

type PreviewRequest struct {
	ProjectID string `json:"projectId" binding:"required,uuid"`
	ImageURL  string `json:"imageUrl" binding:"required,url"`
	Style     string `json:"style" binding:"required"`
}

type CreateProjectRequest struct {
	Name string `json:"name"`
}

// CreditsWebhookEvent is posted by the payments collaborator after a
// successful checkout to grant purchased credits.
type CreditsWebhookEvent struct {
	UserID      string `json:"userId" binding:"required,uuid"`
	Credits     int    `json:"credits" binding:"required,gt=0"`
	Description string `json:"description"`
}
