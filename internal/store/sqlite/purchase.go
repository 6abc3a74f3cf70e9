package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/dukerupert/cvforge/internal/model"
	"github.com/dukerupert/cvforge/internal/store"
)

type PurchaseStore struct {
	db *sql.DB
}

func NewPurchaseStore(db *sql.DB) *PurchaseStore {
	return &PurchaseStore{db: db}
}

const purchaseCols = `id, transaction_id, customer_email, provider, template, created_at`

func scanPurchase(scanner interface{ Scan(...any) error }) (*model.Purchase, error) {
	var p model.Purchase
	err := scanner.Scan(&p.ID, &p.TransactionID, &p.Email, &p.Provider, &p.Template, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *PurchaseStore) FindByTransactionID(ctx context.Context, txID string) (*model.Purchase, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+purchaseCols+` FROM purchases WHERE transaction_id = ?`, txID)
	p, err := scanPurchase(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get purchase by transaction id: %w", err)
	}
	return p, nil
}

// Create inserts the purchase. The unique index on transaction_id turns a
// duplicate webhook delivery into ErrDuplicate for the caller to treat as a
// no-op.
func (s *PurchaseStore) Create(ctx context.Context, p *model.Purchase) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO purchases (id, transaction_id, customer_email, provider, template) VALUES (?, ?, ?, ?, ?)`,
		p.ID, p.TransactionID, p.Email, p.Provider, p.Template,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrDuplicate
		}
		return fmt.Errorf("insert purchase: %w", err)
	}
	return nil
}
