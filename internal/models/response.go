package models

import "time"

type HealthResponse struct {
	Status string `json:"status"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

type PreviewQueuedResponse struct {
	RequestID string `json:"requestId"`
	Status    string `json:"status"`
	Message   string `json:"message,omitempty"`
}

type OutputInfo struct {
	URL    string `json:"url"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

type HdInfo struct {
	Ready bool `json:"ready"`
}

type RequestStatusResponse struct {
	RequestID    string      `json:"requestId"`
	Status       string      `json:"status"`
	Style        string      `json:"style"`
	ApprovedAt   *time.Time  `json:"approvedAt,omitempty"`
	ErrorMessage string      `json:"errorMessage,omitempty"`
	RegenCount   int         `json:"regenCount"`
	Preview      *OutputInfo `json:"preview"`
	Hd           *HdInfo     `json:"hd"`
}

type RegenerateResponse struct {
	RequestID      string `json:"requestId"`
	Status         string `json:"status"`
	RegenCount     int    `json:"regenCount"`
	RegenRemaining int    `json:"regenRemaining"`
}

type ApproveResponse struct {
	RequestID string `json:"requestId"`
	Status    string `json:"status"`
}

type GenerateHdResponse struct {
	RequestID        string `json:"requestId"`
	Status           string `json:"status"`
	CreditsRemaining int    `json:"creditsRemaining,omitempty"`
	Message          string `json:"message,omitempty"`
}

type DownloadHdResponse struct {
	DownloadURL   string `json:"downloadUrl"`
	Width         int    `json:"width"`
	Height        int    `json:"height"`
	FileSizeBytes int64  `json:"fileSizeBytes"`
	ExpiresIn     string `json:"expiresIn"`
}

type ProjectResponse struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Status       string    `json:"status"`
	ErrorMessage string    `json:"error_message,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type ProjectListResponse struct {
	Projects []ProjectResponse `json:"projects"`
}

type CreditsResponse struct {
	CreditsRemaining int    `json:"creditsRemaining"`
	Plan             string `json:"plan"`
}

type TransactionResponse struct {
	ID          string    `json:"id"`
	Amount      int       `json:"amount"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

type TransactionListResponse struct {
	Transactions []TransactionResponse `json:"transactions"`
}
