// Package store defines the typed repository interfaces the rest of the
// service talks to. The concurrency-critical operations (mark-used-if-unused,
// create-if-absent) live behind these interfaces so no caller can bypass the
// conditional-write implementations.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/dukerupert/cvforge/internal/model"
)

// ErrDuplicate is returned when a create violates a uniqueness constraint.
var ErrDuplicate = errors.New("store: duplicate")

// CustomerStore persists entitlement records keyed by normalized email.
type CustomerStore interface {
	// FindByEmail returns nil, nil when no customer exists.
	FindByEmail(ctx context.Context, email string) (*model.Customer, error)
	// EnsureExists creates the customer with no access if absent and
	// returns the current row either way.
	EnsureExists(ctx context.Context, email string) (*model.Customer, error)
	// GrantAccess upserts the customer with access extended by period from
	// max(now, current expiry) and merges template into the entitled set.
	// The extend and merge run inside the store's write so two concurrent
	// grants cannot lose a period or a template. Template may be empty.
	GrantAccess(ctx context.Context, email, template string, period time.Duration) (*model.Customer, error)
}

// CredentialStore persists login credentials. One credential per email,
// created exactly once.
type CredentialStore interface {
	// FindByEmail returns nil, nil when no credential exists.
	FindByEmail(ctx context.Context, email string) (*model.Credential, error)
	// Create inserts the credential, returning ErrDuplicate if one already
	// exists. Uniqueness is enforced by the store, never by a prior read.
	Create(ctx context.Context, email, passwordHash string) error
}

// MagicLinkStore persists single-use claim tokens by their hash.
type MagicLinkStore interface {
	Create(ctx context.Context, tokenHash, email string, expiresAt time.Time) (*model.MagicLink, error)
	// FindByTokenHash returns nil, nil when no row matches.
	FindByTokenHash(ctx context.Context, tokenHash string) (*model.MagicLink, error)
	// TryMarkUsed sets used_at only if it is still null. Under concurrent
	// calls for the same hash exactly one caller gets true.
	TryMarkUsed(ctx context.Context, tokenHash string) (bool, error)
	// DeleteExpired removes unused links that expired before cutoff. Used
	// links are kept for audit.
	DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error)
}

// PurchaseStore records external purchase events for webhook idempotency.
type PurchaseStore interface {
	// FindByTransactionID returns nil, nil when the transaction is unseen.
	FindByTransactionID(ctx context.Context, txID string) (*model.Purchase, error)
	// Create inserts the purchase, returning ErrDuplicate when the
	// transaction id was already recorded.
	Create(ctx context.Context, p *model.Purchase) error
}

// Stores bundles the four repositories for wiring.
type Stores struct {
	Customers   CustomerStore
	Credentials CredentialStore
	MagicLinks  MagicLinkStore
	Purchases   PurchaseStore
}
