package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"slices"
	"time"

	"github.com/dukerupert/cvforge/internal/entitlement"
	"github.com/dukerupert/cvforge/internal/model"
)

type CustomerStore struct {
	db *sql.DB
}

func NewCustomerStore(db *sql.DB) *CustomerStore {
	return &CustomerStore{db: db}
}

const customerCols = `email, has_access, access_expires_at, templates, created_at, updated_at`

func scanCustomer(scanner interface{ Scan(...any) error }) (*model.Customer, error) {
	var c model.Customer
	var expiresAt sql.NullTime
	var templates string

	err := scanner.Scan(&c.Email, &c.HasAccess, &expiresAt, &templates, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if expiresAt.Valid {
		c.AccessExpiresAt = &expiresAt.Time
	}
	c.Templates = splitTemplates(templates)
	return &c, nil
}

func (s *CustomerStore) FindByEmail(ctx context.Context, email string) (*model.Customer, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+customerCols+` FROM customers WHERE email = ?`, email)
	c, err := scanCustomer(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get customer by email: %w", err)
	}
	return c, nil
}

func (s *CustomerStore) EnsureExists(ctx context.Context, email string) (*model.Customer, error) {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO customers (email) VALUES (?) ON CONFLICT(email) DO NOTHING`,
		email,
	)
	if err != nil {
		return nil, fmt.Errorf("ensure customer: %w", err)
	}
	return s.FindByEmail(ctx, email)
}

// GrantAccess upserts the customer with access extended by period, merging
// template into the entitled set. The extend and merge run inside one
// transaction so concurrent grants stack instead of overwriting each other.
func (s *CustomerStore) GrantAccess(ctx context.Context, email, template string, period time.Duration) (*model.Customer, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin grant: %w", err)
	}
	defer tx.Rollback()

	var currentExpiry sql.NullTime
	var existing string
	err = tx.QueryRowContext(ctx,
		`SELECT access_expires_at, templates FROM customers WHERE email = ?`, email,
	).Scan(&currentExpiry, &existing)
	if err != nil && err != sql.ErrNoRows {
		return nil, fmt.Errorf("read customer: %w", err)
	}

	var current *time.Time
	if currentExpiry.Valid {
		current = &currentExpiry.Time
	}
	expiresAt := entitlement.Extend(current, time.Now(), period)

	templates := splitTemplates(existing)
	if template != "" && !slices.Contains(templates, template) {
		templates = append(templates, template)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO customers (email, has_access, access_expires_at, templates) VALUES (?, 1, ?, ?)
		 ON CONFLICT(email) DO UPDATE SET
			has_access = 1,
			access_expires_at = excluded.access_expires_at,
			templates = excluded.templates,
			updated_at = CURRENT_TIMESTAMP`,
		email, expiresAt.UTC(), joinTemplates(templates),
	)
	if err != nil {
		return nil, fmt.Errorf("grant access: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit grant: %w", err)
	}
	return s.FindByEmail(ctx, email)
}
