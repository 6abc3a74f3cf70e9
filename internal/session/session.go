// Package session issues and reads the browser session credential. Sessions
// are self-contained signed tokens in a cookie; the server keeps no session
// table, so logout is cookie-clear only and tokens remain valid until their
// natural expiry.
package session

import (
	"net/http"
	"time"

	"github.com/dukerupert/cvforge/internal/token"
)

// CookieName is the session cookie.
const CookieName = "cv_session"

// TTL is the session lifetime, matched between the signed claims and the
// cookie max-age.
const TTL = 30 * 24 * time.Hour

type Manager struct {
	codec *token.Codec
}

func NewManager(secret []byte) *Manager {
	return &Manager{codec: token.NewCodec(secret, TTL)}
}

// Create signs a session for email and writes the cookie.
func (m *Manager) Create(w http.ResponseWriter, email string) error {
	signed, err := m.codec.Sign(email)
	if err != nil {
		return err
	}

	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    signed,
		Path:     "/",
		MaxAge:   int(TTL.Seconds()),
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// Read returns the authenticated email, or "" when the request carries no
// valid session. Every failure mode (missing cookie, bad signature, expired
// claims) reads uniformly as anonymous.
func (m *Manager) Read(r *http.Request) string {
	cookie, err := r.Cookie(CookieName)
	if err != nil || cookie.Value == "" {
		return ""
	}

	claims, err := m.codec.Verify(cookie.Value)
	if err != nil {
		return ""
	}
	return claims.Email
}

// Clear overwrites the cookie with an empty, immediately expiring value.
func (m *Manager) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	})
}
