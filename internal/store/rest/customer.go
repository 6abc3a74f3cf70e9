package rest

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/dukerupert/cvforge/internal/model"
)

type CustomerStore struct {
	c *Client
}

type customerRow struct {
	Email           string     `json:"email"`
	HasAccess       bool       `json:"has_access"`
	AccessExpiresAt *time.Time `json:"access_expires_at"`
	Templates       string     `json:"templates"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

func (r customerRow) toModel() *model.Customer {
	return &model.Customer{
		Email:           r.Email,
		HasAccess:       r.HasAccess,
		AccessExpiresAt: r.AccessExpiresAt,
		Templates:       splitTemplates(r.Templates),
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
	}
}

func (s *CustomerStore) FindByEmail(ctx context.Context, email string) (*model.Customer, error) {
	var rows []customerRow
	if err := s.c.do(ctx, http.MethodGet, "customers", eq("email", email), "", nil, &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0].toModel(), nil
}

func (s *CustomerStore) EnsureExists(ctx context.Context, email string) (*model.Customer, error) {
	// ignore-duplicates makes the insert a no-op when the row exists.
	body := []map[string]any{{"email": email}}
	err := s.c.do(ctx, http.MethodPost, "customers", nil,
		"resolution=ignore-duplicates", body, nil)
	if err != nil {
		return nil, err
	}
	return s.FindByEmail(ctx, email)
}

// GrantAccess calls the store's grant_access function so the expiry extend
// and template merge run server-side in a single statement. The function
// upserts the row, sets access_expires_at to period seconds past
// max(now, current expiry), appends the template if new, and returns the
// updated row. A read-modify-write over plain table endpoints would let two
// concurrent grants extend from the same base.
func (s *CustomerStore) GrantAccess(ctx context.Context, email, template string, period time.Duration) (*model.Customer, error) {
	body := map[string]any{
		"p_email":          email,
		"p_template":       template,
		"p_period_seconds": int64(period / time.Second),
	}

	var rows []customerRow
	err := s.c.do(ctx, http.MethodPost, "rpc/grant_access", nil, "", body, &rows)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return s.FindByEmail(ctx, email)
	}
	return rows[0].toModel(), nil
}

func splitTemplates(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, t := range strings.Split(s, ",") {
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}
