// Package etsy looks up shop receipts through the Etsy Open API v3.
package etsy

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
)

const defaultBaseURL = "https://openapi.etsy.com"

type Client struct {
	apiKey      string
	accessToken string
	shopID      string
	baseURL     string
	httpClient  *http.Client
}

type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		cl.httpClient = c
	}
}

func WithBaseURL(u string) Option {
	return func(cl *Client) {
		cl.baseURL = u
	}
}

func NewClient(apiKey, accessToken, shopID string, opts ...Option) *Client {
	c := &Client{
		apiKey:      apiKey,
		accessToken: accessToken,
		shopID:      shopID,
		baseURL:     defaultBaseURL,
		httpClient:  http.DefaultClient,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Configured returns true if credentials and a shop id are set.
func (c *Client) Configured() bool {
	return c.apiKey != "" && c.accessToken != "" && c.shopID != ""
}

// Receipt is the subset of an Etsy shop receipt the redeem flow needs.
type Receipt struct {
	ReceiptID    int64         `json:"receipt_id"`
	BuyerEmail   string        `json:"buyer_email"`
	IsPaid       bool          `json:"is_paid"`
	Transactions []Transaction `json:"transactions"`
}

type Transaction struct {
	Title string `json:"title"`
	SKU   string `json:"sku"`
}

// Template returns the first purchased listing's title, or "" when the
// receipt carries no transactions.
func (r *Receipt) Template() string {
	if len(r.Transactions) == 0 {
		return ""
	}
	return r.Transactions[0].Title
}

// GetReceipt fetches one receipt from the configured shop. A 404 from Etsy
// returns (nil, nil) so callers can distinguish unknown receipts from
// provider failures.
func (c *Client) GetReceipt(ctx context.Context, receiptID string) (*Receipt, error) {
	if !c.Configured() {
		return nil, fmt.Errorf("etsy client not configured")
	}

	endpoint := fmt.Sprintf("%s/v3/application/shops/%s/receipts/%s",
		c.baseURL, url.PathEscape(c.shopID), url.PathEscape(receiptID))
	req, err := http.NewRequestWithContext(ctx, "GET", endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("Authorization", "Bearer "+c.accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch receipt: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, nil
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("etsy API error: status %d", resp.StatusCode)
	}

	var r Receipt
	if err := json.NewDecoder(resp.Body).Decode(&r); err != nil {
		return nil, fmt.Errorf("decode receipt: %w", err)
	}
	return &r, nil
}
