package rest

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/dukerupert/cvforge/internal/model"
	"github.com/dukerupert/cvforge/internal/store"
)

type PurchaseStore struct {
	c *Client
}

type purchaseRow struct {
	ID            string    `json:"id"`
	TransactionID string    `json:"transaction_id"`
	Email         string    `json:"customer_email"`
	Provider      string    `json:"provider"`
	Template      string    `json:"template"`
	CreatedAt     time.Time `json:"created_at"`
}

func (s *PurchaseStore) FindByTransactionID(ctx context.Context, txID string) (*model.Purchase, error) {
	var rows []purchaseRow
	if err := s.c.do(ctx, http.MethodGet, "purchases", eq("transaction_id", txID), "", nil, &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	r := rows[0]
	return &model.Purchase{
		ID:            r.ID,
		TransactionID: r.TransactionID,
		Email:         r.Email,
		Provider:      r.Provider,
		Template:      r.Template,
		CreatedAt:     r.CreatedAt,
	}, nil
}

func (s *PurchaseStore) Create(ctx context.Context, p *model.Purchase) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	body := []map[string]any{{
		"id":             p.ID,
		"transaction_id": p.TransactionID,
		"customer_email": p.Email,
		"provider":       p.Provider,
		"template":       p.Template,
	}}
	err := s.c.do(ctx, http.MethodPost, "purchases", nil, "", body, nil)
	if err != nil {
		if isConflict(err) {
			return store.ErrDuplicate
		}
		return err
	}
	return nil
}
