package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dukerupert/cvforge/internal/model"
	"github.com/dukerupert/cvforge/internal/store"
)

type CredentialStore struct {
	db *sql.DB
}

func NewCredentialStore(db *sql.DB) *CredentialStore {
	return &CredentialStore{db: db}
}

func (s *CredentialStore) FindByEmail(ctx context.Context, email string) (*model.Credential, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT email, password_hash, created_at FROM credentials WHERE email = ?`, email)

	var c model.Credential
	err := row.Scan(&c.Email, &c.PasswordHash, &c.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get credential by email: %w", err)
	}
	return &c, nil
}

// Create inserts the credential. The primary key on email makes a second
// insert fail here rather than overwrite, even under concurrent signups.
func (s *CredentialStore) Create(ctx context.Context, email, passwordHash string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO credentials (email, password_hash) VALUES (?, ?)`,
		email, passwordHash,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrDuplicate
		}
		return fmt.Errorf("insert credential: %w", err)
	}
	return nil
}
