// Package payhip parses and verifies Payhip purchase webhooks.
package payhip

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
)

// Webhook is the subset of Payhip's webhook payload the grant flow needs.
type Webhook struct {
	Type      string `json:"type"`
	ID        string `json:"id"`
	Email     string `json:"email"`
	Signature string `json:"signature"`
	Currency  string `json:"currency"`
	Price     int64  `json:"price"`
	Items     []Item `json:"items"`
}

type Item struct {
	ProductName string `json:"product_name"`
	ProductKey  string `json:"product_key"`
}

// Verifier checks webhook authenticity against the shared Payhip API key.
// Payhip includes the SHA-256 of the account's API key in every delivery.
type Verifier struct {
	expected string
}

func NewVerifier(apiKey string) *Verifier {
	sum := sha256.Sum256([]byte(apiKey))
	return &Verifier{expected: hex.EncodeToString(sum[:])}
}

// Parse decodes a webhook body and verifies its signature. The body is
// rejected before any field is trusted.
func (v *Verifier) Parse(body io.Reader) (*Webhook, error) {
	var wh Webhook
	if err := json.NewDecoder(body).Decode(&wh); err != nil {
		return nil, fmt.Errorf("decode webhook: %w", err)
	}
	if subtle.ConstantTimeCompare([]byte(wh.Signature), []byte(v.expected)) != 1 {
		return nil, fmt.Errorf("webhook signature mismatch")
	}
	return &wh, nil
}

// Paid reports whether the event represents a completed purchase.
func (wh *Webhook) Paid() bool {
	return wh.Type == "paid"
}

// Template returns the purchased product name, or "" for an empty cart.
func (wh *Webhook) Template() string {
	if len(wh.Items) == 0 {
		return ""
	}
	return wh.Items[0].ProductName
}
