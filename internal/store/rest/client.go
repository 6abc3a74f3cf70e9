// Package rest implements the store interfaces against a PostgREST-style
// HTTP API: filtered reads via query parameters, conditional writes via
// filtered PATCH, upserts via the Prefer header. This is the production
// driver; race safety rides on the remote store's conditional updates.
package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/dukerupert/cvforge/internal/store"
)

// Client is the shared HTTP transport for all four repositories.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		cl.httpClient = c
	}
}

func NewClient(baseURL, apiKey string, opts ...Option) *Client {
	c := &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: http.DefaultClient,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// New builds the store bundle on a REST client.
func New(c *Client) store.Stores {
	return store.Stores{
		Customers:   &CustomerStore{c: c},
		Credentials: &CredentialStore{c: c},
		MagicLinks:  &MagicLinkStore{c: c},
		Purchases:   &PurchaseStore{c: c},
	}
}

// errStatus is a non-2xx response. Callers translate known statuses
// (409 conflict) into store errors.
type errStatus struct {
	code int
	body string
}

func (e *errStatus) Error() string {
	return fmt.Sprintf("store api: status %d", e.code)
}

func isConflict(err error) bool {
	se, ok := err.(*errStatus)
	return ok && se.code == http.StatusConflict
}

// do issues a request against table with the given filters and decodes the
// JSON response into out when out is non-nil. body is marshaled as JSON.
func (c *Client) do(ctx context.Context, method, table string, filters url.Values, prefer string, body, out any) error {
	u := c.baseURL + "/" + table
	if len(filters) > 0 {
		u += "?" + filters.Encode()
	}

	var payload io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		payload = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, payload)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if prefer != "" {
		req.Header.Set("Prefer", prefer)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("store request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &errStatus{code: resp.StatusCode, body: string(raw)}
	}

	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

func eq(field, value string) url.Values {
	v := url.Values{}
	v.Set(field, "eq."+value)
	return v
}
