package imaging

import (
	"fmt"
	"io"
	"net/http"
	"time"
)

var fetchClient = &http.Client{
	Timeout: 60 * time.Second,
}

// FetchImage downloads a remote image (the generation backend's output URL)
// and returns its raw bytes.
func (p *Processor) FetchImage(url string) ([]byte, error) {
	resp, err := fetchClient.Get(url)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch image: status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read image body: %w", err)
	}

	return data, nil
}
