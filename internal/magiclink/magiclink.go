// Package magiclink manages single-use claim tokens: issue, lookup, and
// the exactly-once consume transition.
package magiclink

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dukerupert/cvforge/internal/apperr"
	"github.com/dukerupert/cvforge/internal/store"
	"github.com/dukerupert/cvforge/internal/token"
)

// DefaultTTL is the link lifetime for both purchase-grant and claim flows.
const DefaultTTL = 24 * time.Hour

// State describes a token presented for lookup.
type State string

const (
	// StateInvalid means no link exists for the token.
	StateInvalid State = "invalid"
	// StateExpired means the link was never used and is past expiry.
	StateExpired State = "expired"
	// StateClaimed means the link was consumed, regardless of expiry.
	StateClaimed State = "claimed"
	// StateNew means the link is live and consumable.
	StateNew State = "new"
)

type Service struct {
	links  store.MagicLinkStore
	logger *slog.Logger
}

func NewService(links store.MagicLinkStore, logger *slog.Logger) *Service {
	return &Service{links: links, logger: logger}
}

// Issue mints a fresh token for email and persists its hash with the given
// lifetime. The raw token is returned once and never stored; each call
// creates a new row.
func (s *Service) Issue(ctx context.Context, email string, ttl time.Duration) (string, error) {
	raw, err := token.Generate()
	if err != nil {
		return "", err
	}

	email = strings.ToLower(strings.TrimSpace(email))
	expiresAt := time.Now().Add(ttl)
	if _, err := s.links.Create(ctx, token.Digest(raw), email, expiresAt); err != nil {
		return "", fmt.Errorf("issue magic link: %w", err)
	}

	s.logger.Info("magic link issued", "email", email, "expires_at", expiresAt)
	return raw, nil
}

// Lookup classifies a raw token without consuming it. A used link reads as
// claimed even past its expiry window.
func (s *Service) Lookup(ctx context.Context, raw string) (State, string, error) {
	ml, err := s.links.FindByTokenHash(ctx, token.Digest(raw))
	if err != nil {
		return "", "", fmt.Errorf("lookup magic link: %w", err)
	}
	if ml == nil {
		return StateInvalid, "", nil
	}
	if ml.Used() {
		return StateClaimed, "", nil
	}
	if ml.Expired(time.Now()) {
		return StateExpired, "", nil
	}
	return StateNew, strings.ToLower(ml.Email), nil
}

// Consume performs the unused-to-used transition and returns the link's
// email. Under concurrent attempts on the same token at most one caller
// succeeds; the rest get ErrTokenUsed.
func (s *Service) Consume(ctx context.Context, raw string) (string, error) {
	hash := token.Digest(raw)

	ml, err := s.links.FindByTokenHash(ctx, hash)
	if err != nil {
		return "", fmt.Errorf("consume magic link: %w", err)
	}
	if ml == nil {
		return "", apperr.ErrInvalidToken
	}
	if ml.Used() {
		return "", apperr.ErrTokenUsed
	}
	if ml.Expired(time.Now()) {
		return "", apperr.ErrTokenExpired
	}

	ok, err := s.links.TryMarkUsed(ctx, hash)
	if err != nil {
		return "", fmt.Errorf("consume magic link: %w", err)
	}
	if !ok {
		// Lost the race to a concurrent consumer.
		return "", apperr.ErrTokenUsed
	}

	email := strings.ToLower(ml.Email)
	s.logger.Info("magic link consumed", "email", email)
	return email, nil
}
