// Package token provides the session token codec and the opaque magic-link
// token generator.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrInvalid covers bad signatures, tampered payloads, and malformed
	// token structure.
	ErrInvalid = errors.New("token: invalid")
	// ErrExpired means the signature checked out but the token is past its
	// expiry claim.
	ErrExpired = errors.New("token: expired")
)

// SessionClaims is the signed payload carried in the session cookie.
type SessionClaims struct {
	jwt.RegisteredClaims
	Email string `json:"email"`
}

// Codec signs and verifies compact session tokens. Tokens are three
// dot-joined base64url segments signed with HMAC-SHA256; verification uses
// the library's constant-time signature comparison.
type Codec struct {
	secret []byte
	ttl    time.Duration
}

// NewCodec creates a codec with the given signing secret and token lifetime.
func NewCodec(secret []byte, ttl time.Duration) *Codec {
	return &Codec{secret: secret, ttl: ttl}
}

// Sign issues a token for the given email with issued-at now and expiry
// now + ttl.
func (c *Codec) Sign(email string) (string, error) {
	now := time.Now()
	claims := &SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   email,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.ttl)),
		},
		Email: email,
	}

	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := tok.SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("sign session token: %w", err)
	}
	return signed, nil
}

// Verify parses and validates a token, returning its claims. Any structural
// or signature problem yields ErrInvalid; a valid signature with a past
// expiry yields ErrExpired.
func (c *Codec) Verify(raw string) (*SessionClaims, error) {
	tok, err := jwt.ParseWithClaims(raw, &SessionClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return c.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpired
		}
		return nil, ErrInvalid
	}

	claims, ok := tok.Claims.(*SessionClaims)
	if !ok || !tok.Valid {
		return nil, ErrInvalid
	}
	return claims, nil
}
