package storage

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	storage "github.com/supabase-community/storage-go"
)

// Signed URL lifetimes. Preview URLs are short-lived and refreshed by the
// staging service when close to expiry; HD download URLs are minted fresh
// on every download request.
const (
	PreviewURLTTL    = time.Hour
	HdDownloadURLTTL = 7 * 24 * time.Hour
)

// Client wraps the Supabase Storage bucket holding staging outputs. The
// bucket is private; all retrieval goes through signed URLs.
type Client struct {
	client  *storage.Client
	bucket  string
	baseURL string
}

func NewClient(supabaseURL, serviceRoleKey, bucket string) (*Client, error) {
	baseURL := strings.TrimSuffix(supabaseURL, "/")
	client := storage.NewClient(baseURL+"/storage/v1", serviceRoleKey, nil)

	return &Client{
		client:  client,
		bucket:  bucket,
		baseURL: baseURL,
	}, nil
}

// Upload stores bytes at the given path, overwriting any prior object.
func (s *Client) Upload(data []byte, storagePath, contentType string) error {
	upsert := true
	_, err := s.client.UploadFile(s.bucket, storagePath, bytes.NewReader(data), storage.FileOptions{
		ContentType: &contentType,
		Upsert:      &upsert,
	})
	if err != nil {
		return fmt.Errorf("failed to upload file: %w", err)
	}

	return nil
}

// SignedURL mints a time-limited retrieval URL for a private object and
// returns it together with its expiry time.
func (s *Client) SignedURL(storagePath string, ttl time.Duration) (string, time.Time, error) {
	resp, err := s.client.CreateSignedUrl(s.bucket, storagePath, int(ttl.Seconds()))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to create signed url: %w", err)
	}

	signedURL := resp.SignedURL
	if strings.HasPrefix(signedURL, "/") {
		signedURL = s.baseURL + "/storage/v1" + signedURL
	}

	return signedURL, time.Now().Add(ttl), nil
}

// Delete removes an object from the bucket.
func (s *Client) Delete(storagePath string) error {
	_, err := s.client.RemoveFile(s.bucket, []string{storagePath})
	if err != nil {
		return fmt.Errorf("failed to delete file: %w", err)
	}

	return nil
}

// OutputPath builds the deterministic storage path for a request output:
// {user_id}/{request_id}/{kind}.png
func OutputPath(userID, requestID uuid.UUID, kind string) string {
	return fmt.Sprintf("%s/%s/%s.png", userID.String(), requestID.String(), kind)
}
