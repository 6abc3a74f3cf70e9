package model

import "time"

// Customer is the entitlement record for a purchaser, keyed by normalized
// email. HasAccess alone is meaningless; effective access also needs a
// future AccessExpiresAt (see the entitlement package).
type Customer struct {
	Email           string     `json:"email"`
	HasAccess       bool       `json:"has_access"`
	AccessExpiresAt *time.Time `json:"access_expires_at"`
	Templates       []string   `json:"templates"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// Credential is a login credential, created exactly once per email. There is
// no password-change flow; a second create for the same email must fail.
type Credential struct {
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// MagicLink is a single-use claim token. Only the SHA-256 hash of the raw
// token is ever stored; the raw token lives in the email and the claimer's
// next request. Used links are kept for audit, never reactivated.
type MagicLink struct {
	ID        int64      `json:"id"`
	TokenHash string     `json:"token_hash"`
	Email     string     `json:"customer_email"`
	ExpiresAt time.Time  `json:"expires_at"`
	UsedAt    *time.Time `json:"used_at"`
	CreatedAt time.Time  `json:"created_at"`
}

// Used reports whether the link has been consumed.
func (m *MagicLink) Used() bool {
	return m.UsedAt != nil
}

// Expired reports whether the link is past its expiry at the given time.
func (m *MagicLink) Expired(now time.Time) bool {
	return now.After(m.ExpiresAt)
}

// Purchase records an external purchase event. TransactionID is the
// provider's id and makes duplicate webhook deliveries idempotent.
type Purchase struct {
	ID            string    `json:"id"`
	TransactionID string    `json:"transaction_id"`
	Email         string    `json:"customer_email"`
	Provider      string    `json:"provider"`
	Template      string    `json:"template"`
	CreatedAt     time.Time `json:"created_at"`
}
