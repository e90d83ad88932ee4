package email

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Client sends transactional mail through the Resend API.
type Client struct {
	baseURL    string
	apiKey     string
	from       string
	appBaseURL string
	httpClient *http.Client
}

type sendRequest struct {
	From    string `json:"from"`
	To      string `json:"to"`
	Subject string `json:"subject"`
	HTML    string `json:"html"`
	Text    string `json:"text,omitempty"`
}

type sendResponse struct {
	ID string `json:"id"`
}

func NewClient(baseURL, apiKey, from, appBaseURL string) *Client {
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		apiKey:     apiKey,
		from:       from,
		appBaseURL: strings.TrimSuffix(appBaseURL, "/"),
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// SendStagingCompleted notifies the user that their staged room is ready.
func (c *Client) SendStagingCompleted(to, name, projectID, projectName string) error {
	projectURL := fmt.Sprintf("%s/dashboard/projects/%s", c.appBaseURL, projectID)

	return c.send(sendRequest{
		From:    c.from,
		To:      to,
		Subject: "Your staged room is ready!",
		HTML:    stagingCompletedHTML(name, projectName, projectURL),
		Text:    stagingCompletedText(name, projectName, projectURL),
	})
}

func (c *Client) send(req sendRequest) error {
	jsonData, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("failed to marshal email: %w", err)
	}

	httpReq, err := http.NewRequest("POST", c.baseURL+"/emails", bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("failed to send email: status %d, body: %s", resp.StatusCode, string(body))
	}

	var result sendResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}
