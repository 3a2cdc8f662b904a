package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// TokenSource supplies the bearer token for a request. It is consulted
// fresh on every call so a re-login takes effect without restarting.
type TokenSource func() (string, error)

// Client talks to the transcription backend's REST surface.
type Client struct {
	baseURL string
	httpc   *http.Client
	token   TokenSource
}

// NewClient creates a backend client. baseURL is the API root, e.g.
// https://api.tivly.se. token may be nil for unauthenticated endpoints.
func NewClient(baseURL string, token TokenSource) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpc:   &http.Client{Timeout: 15 * time.Second},
		token:   token,
	}
}

// JobStatus fetches and normalizes the current status of one job.
func (c *Client) JobStatus(ctx context.Context, jobID string) (*JobStatus, error) {
	if jobID == "" {
		return nil, fmt.Errorf("job id required")
	}

	url := fmt.Sprintf("%s/jobs/%s/status", c.baseURL, jobID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build status request: %w", err)
	}

	if c.token != nil {
		token, err := c.token()
		if err != nil {
			return nil, fmt.Errorf("read token: %w", err)
		}
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch job status: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("job status: unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var raw jobStatusResponse
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode job status: %w", err)
	}

	return raw.normalize(), nil
}
