package rest

import (
	"context"
	"net/http"
	"time"

	"github.com/dukerupert/cvforge/internal/model"
	"github.com/dukerupert/cvforge/internal/store"
)

type CredentialStore struct {
	c *Client
}

type credentialRow struct {
	Email        string    `json:"email"`
	PasswordHash string    `json:"password_hash"`
	CreatedAt    time.Time `json:"created_at"`
}

func (s *CredentialStore) FindByEmail(ctx context.Context, email string) (*model.Credential, error) {
	var rows []credentialRow
	if err := s.c.do(ctx, http.MethodGet, "users", eq("email", email), "", nil, &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &model.Credential{
		Email:        rows[0].Email,
		PasswordHash: rows[0].PasswordHash,
		CreatedAt:    rows[0].CreatedAt,
	}, nil
}

// Create inserts the credential. A plain POST with no resolution preference
// hits the primary key on email, so a duplicate comes back as 409 and is
// mapped to store.ErrDuplicate; the stored hash is never overwritten.
func (s *CredentialStore) Create(ctx context.Context, email, passwordHash string) error {
	body := []map[string]any{{
		"email":         email,
		"password_hash": passwordHash,
	}}
	err := s.c.do(ctx, http.MethodPost, "users", nil, "", body, nil)
	if err != nil {
		if isConflict(err) {
			return store.ErrDuplicate
		}
		return err
	}
	return nil
}
