package replicate

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Prediction statuses reported by the generation backend.
const (
	StatusStarting   = "starting"
	StatusProcessing = "processing"
	StatusSucceeded  = "succeeded"
	StatusFailed     = "failed"
)

const defaultModel = "black-forest-labs/flux-kontext-pro"

// Output quality per tier. Previews are watermarked and resized anyway, so
// they run at a lower quality for faster turnaround.
const (
	previewQuality = 65
	hdQuality      = 95
)

type Client struct {
	baseURL    string
	apiToken   string
	model      string
	httpClient *http.Client
}

// Prediction is the backend's view of one generation job. OutputURL is only
// set once Status is "succeeded".
type Prediction struct {
	ID        string
	Status    string
	OutputURL string
	Error     string
}

type predictionInput struct {
	InputImage    string `json:"input_image"`
	Prompt        string `json:"prompt"`
	OutputQuality int    `json:"output_quality"`
}

type createPredictionRequest struct {
	Model string          `json:"model"`
	Input predictionInput `json:"input"`
}

type predictionResponse struct {
	ID     string          `json:"id"`
	Status string          `json:"status"`
	Output json.RawMessage `json:"output"`
	Error  string          `json:"error"`
}

func NewClient(baseURL, apiToken string) *Client {
	return &Client{
		baseURL:  strings.TrimSuffix(baseURL, "/"),
		apiToken: apiToken,
		model:    defaultModel,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// SubmitPreview queues a preview-tier generation job and returns its id.
// The call is non-blocking; poll with GetPrediction. Transport errors
// propagate to the caller, which decides whether to retry.
func (c *Client) SubmitPreview(imageURL, style string) (string, error) {
	return c.submit(imageURL, style, previewQuality)
}

// SubmitHd queues an HD-tier generation job and returns its id.
func (c *Client) SubmitHd(imageURL, style string) (string, error) {
	return c.submit(imageURL, style, hdQuality)
}

func (c *Client) submit(imageURL, style string, quality int) (string, error) {
	prompt, err := BuildPrompt(style)
	if err != nil {
		return "", err
	}

	reqBody := createPredictionRequest{
		Model: c.model,
		Input: predictionInput{
			InputImage:    imageURL,
			Prompt:        prompt,
			OutputQuality: quality,
		},
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequest("POST", c.baseURL+"/v1/predictions", bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.apiToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("failed to create prediction: status %d, body: %s", resp.StatusCode, string(body))
	}

	var result predictionResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("failed to decode response: %w, body: %s", err, string(body))
	}

	return result.ID, nil
}

// GetPrediction polls the status of a previously submitted job.
func (c *Client) GetPrediction(predictionID string) (*Prediction, error) {
	req, err := http.NewRequest("GET", c.baseURL+"/v1/predictions/"+predictionID, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.apiToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to get prediction: status %d, body: %s", resp.StatusCode, string(body))
	}

	var result predictionResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w, body: %s", err, string(body))
	}

	prediction := &Prediction{
		ID:     result.ID,
		Status: result.Status,
		Error:  result.Error,
	}

	if result.Status == StatusSucceeded && len(result.Output) > 0 {
		prediction.OutputURL = parseOutputURL(result.Output)
	}

	return prediction, nil
}

// parseOutputURL handles both output shapes the backend returns: a single
// URL string or an array of URL strings.
func parseOutputURL(raw json.RawMessage) string {
	var single string
	if err := json.Unmarshal(raw, &single); err == nil {
		return single
	}

	var multiple []string
	if err := json.Unmarshal(raw, &multiple); err == nil && len(multiple) > 0 {
		return multiple[0]
	}

	return ""
}
