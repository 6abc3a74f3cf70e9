package rest

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/dukerupert/cvforge/internal/model"
)

type MagicLinkStore struct {
	c *Client
}

type magicLinkRow struct {
	ID        int64      `json:"id"`
	TokenHash string     `json:"token_hash"`
	Email     string     `json:"customer_email"`
	ExpiresAt time.Time  `json:"expires_at"`
	UsedAt    *time.Time `json:"used_at"`
	CreatedAt time.Time  `json:"created_at"`
}

func (r magicLinkRow) toModel() *model.MagicLink {
	return &model.MagicLink{
		ID:        r.ID,
		TokenHash: r.TokenHash,
		Email:     r.Email,
		ExpiresAt: r.ExpiresAt,
		UsedAt:    r.UsedAt,
		CreatedAt: r.CreatedAt,
	}
}

func (s *MagicLinkStore) Create(ctx context.Context, tokenHash, email string, expiresAt time.Time) (*model.MagicLink, error) {
	body := []map[string]any{{
		"token_hash":     tokenHash,
		"customer_email": email,
		"expires_at":     expiresAt.UTC().Format(time.RFC3339),
	}}

	var rows []magicLinkRow
	err := s.c.do(ctx, http.MethodPost, "magic_links", nil, "return=representation", body, &rows)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return s.FindByTokenHash(ctx, tokenHash)
	}
	return rows[0].toModel(), nil
}

func (s *MagicLinkStore) FindByTokenHash(ctx context.Context, tokenHash string) (*model.MagicLink, error) {
	var rows []magicLinkRow
	if err := s.c.do(ctx, http.MethodGet, "magic_links", eq("token_hash", tokenHash), "", nil, &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0].toModel(), nil
}

// TryMarkUsed is a filtered PATCH: the used_at=is.null filter makes the
// update conditional at the store, so two racing consumers cannot both
// match. The returned representation tells us whether we won.
func (s *MagicLinkStore) TryMarkUsed(ctx context.Context, tokenHash string) (bool, error) {
	filters := url.Values{}
	filters.Set("token_hash", "eq."+tokenHash)
	filters.Set("used_at", "is.null")

	body := map[string]any{
		"used_at": time.Now().UTC().Format(time.RFC3339),
	}

	var rows []magicLinkRow
	err := s.c.do(ctx, http.MethodPatch, "magic_links", filters, "return=representation", body, &rows)
	if err != nil {
		return false, err
	}
	return len(rows) == 1, nil
}

func (s *MagicLinkStore) DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	filters := url.Values{}
	filters.Set("used_at", "is.null")
	filters.Set("expires_at", "lt."+cutoff.UTC().Format(time.RFC3339))

	var rows []magicLinkRow
	err := s.c.do(ctx, http.MethodDelete, "magic_links", filters, "return=representation", nil, &rows)
	if err != nil {
		return 0, err
	}
	return int64(len(rows)), nil
}
