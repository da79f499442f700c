package service

import (
	"context"
	"log"
	"net/http"
	"strings"
	"time"
)

// BlobClient asks the website service to delete uploaded files. Deletion is
// best-effort: failures are logged and never block a chat-state transition.
type BlobClient struct {
	baseURL string
	client  *http.Client
}

func NewBlobClient(baseURL string) *BlobClient {
	return &BlobClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

// DeleteFile requests deletion of one uploaded file, authorizing with the
// caller's token so the website service can enforce its own access rules.
func (c *BlobClient) DeleteFile(ctx context.Context, fileURL, token string) {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.baseURL+"/delete-file/", nil)
	if err != nil {
		log.Printf("[Blob] build delete request for %s: %v", fileURL, err)
		return
	}

	q := req.URL.Query()
	q.Set("file_url", fileURL)
	req.URL.RawQuery = q.Encode()
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		log.Printf("[Blob] delete %s: %v", fileURL, err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.Printf("[Blob] delete %s: unexpected status %d", fileURL, resp.StatusCode)
	}
}
