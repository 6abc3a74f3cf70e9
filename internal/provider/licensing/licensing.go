// Package licensing verifies purchase license keys against the upstream
// licensing service. Verification is a synchronous passthrough; the
// upstream's rejection reason is the one upstream detail allowed back to
// callers.
package licensing

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

type Client struct {
	verifyURL  string
	httpClient *http.Client
}

type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		cl.httpClient = c
	}
}

func NewClient(verifyURL string, opts ...Option) *Client {
	c := &Client{
		verifyURL: verifyURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Configured() bool {
	return c.verifyURL != ""
}

type verifyRequest struct {
	Key string `json:"key"`
}

// Result is the upstream verdict on a license key.
type Result struct {
	Valid  bool   `json:"valid"`
	Email  string `json:"email,omitempty"`
	Reason string `json:"reason,omitempty"`
}

// Verify submits a key to the licensing service. A reachable service that
// rejects the key is not an error: the rejection comes back in Result.
func (c *Client) Verify(ctx context.Context, key string) (*Result, error) {
	if !c.Configured() {
		return nil, fmt.Errorf("licensing client not configured")
	}

	body, err := json.Marshal(verifyRequest{Key: key})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.verifyURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("verify request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("licensing service: status %d", resp.StatusCode)
	}

	var r Result
	if err := json.NewDecoder(resp.Body).Decode(&r); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &r, nil
}
