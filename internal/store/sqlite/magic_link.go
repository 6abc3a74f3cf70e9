package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dukerupert/cvforge/internal/model"
)

type MagicLinkStore struct {
	db *sql.DB
}

func NewMagicLinkStore(db *sql.DB) *MagicLinkStore {
	return &MagicLinkStore{db: db}
}

const magicLinkCols = `id, token_hash, customer_email, expires_at, used_at, created_at`

func scanMagicLink(scanner interface{ Scan(...any) error }) (*model.MagicLink, error) {
	var ml model.MagicLink
	var usedAt sql.NullTime

	err := scanner.Scan(&ml.ID, &ml.TokenHash, &ml.Email, &ml.ExpiresAt, &usedAt, &ml.CreatedAt)
	if err != nil {
		return nil, err
	}

	if usedAt.Valid {
		ml.UsedAt = &usedAt.Time
	}
	return &ml, nil
}

func (s *MagicLinkStore) Create(ctx context.Context, tokenHash, email string, expiresAt time.Time) (*model.MagicLink, error) {
	result, err := s.db.ExecContext(ctx,
		`INSERT INTO magic_links (token_hash, customer_email, expires_at) VALUES (?, ?, ?)`,
		tokenHash, email, expiresAt.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("insert magic link: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	row := s.db.QueryRowContext(ctx, `SELECT `+magicLinkCols+` FROM magic_links WHERE id = ?`, id)
	return scanMagicLink(row)
}

func (s *MagicLinkStore) FindByTokenHash(ctx context.Context, tokenHash string) (*model.MagicLink, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+magicLinkCols+` FROM magic_links WHERE token_hash = ?`, tokenHash)
	ml, err := scanMagicLink(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get magic link by hash: %w", err)
	}
	return ml, nil
}

// TryMarkUsed is the unused-to-used transition. The used_at IS NULL guard
// makes it a compare-and-set; concurrent consumers racing on the same hash
// see exactly one true.
func (s *MagicLinkStore) TryMarkUsed(ctx context.Context, tokenHash string) (bool, error) {
	result, err := s.db.ExecContext(ctx,
		`UPDATE magic_links SET used_at = ? WHERE token_hash = ? AND used_at IS NULL`,
		time.Now().UTC(), tokenHash,
	)
	if err != nil {
		return false, fmt.Errorf("mark magic link used: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n == 1, nil
}

// DeleteExpired removes unused links that expired before cutoff. Consumed
// links stay for audit.
func (s *MagicLinkStore) DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM magic_links WHERE used_at IS NULL AND expires_at <= ?`,
		cutoff.UTC(),
	)
	if err != nil {
		return 0, fmt.Errorf("delete expired magic links: %w", err)
	}
	count, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return count, nil
}
