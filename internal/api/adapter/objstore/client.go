// Package objstore persists uploaded files in the hosted object store and
// hands back stable paths that resolve to public URLs.
package objstore

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"path"
	"time"

	"github.com/google/uuid"

	"crownkeys/internal/domain"
)

const requestTimeout = 30 * time.Second

// Client is an HTTP client for the object store's bucket API.
type Client struct {
	baseURL    string
	bucket     string
	serviceKey string
	httpClient *http.Client
}

// NewClient creates a client for the store at baseURL writing into bucket.
func NewClient(baseURL, bucket, serviceKey string) *Client {
	return &Client{
		baseURL:    baseURL,
		bucket:     bucket,
		serviceKey: serviceKey,
		httpClient: &http.Client{Timeout: requestTimeout},
	}
}

// Upload stores the content under a unique object key derived from the
// owner id and original filename, and returns that key.
func (c *Client) Upload(ctx context.Context, ownerID, filename, contentType string, r io.Reader) (string, error) {
	key := ownerID + "/" + uuid.New().String() + path.Ext(filename)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		fmt.Sprintf("%s/storage/v1/object/%s/%s", c.baseURL, c.bucket, key), r)
	if err != nil {
		return "", fmt.Errorf("creating upload request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.serviceKey)
	req.Header.Set("Content-Type", contentType)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("object store upload: %w", domain.ErrUpstream)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("object store upload returned %d: %w", resp.StatusCode, domain.ErrUpstream)
	}
	return key, nil
}

// Delete removes a stored object. Missing objects are not an error: the
// caller is reconciling state, not asserting existence.
func (c *Client) Delete(ctx context.Context, key string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete,
		fmt.Sprintf("%s/storage/v1/object/%s/%s", c.baseURL, c.bucket, key), nil)
	if err != nil {
		return fmt.Errorf("creating delete request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.serviceKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("object store delete: %w", domain.ErrUpstream)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("object store delete returned %d: %w", resp.StatusCode, domain.ErrUpstream)
	}
	return nil
}

// PublicURL returns the public URL for a stored object key.
func (c *Client) PublicURL(key string) string {
	return fmt.Sprintf("%s/storage/v1/object/public/%s/%s", c.baseURL, c.bucket, key)
}
