// Package sqlite implements the store interfaces on the bundled SQLite
// database. It is the driver used by tests and self-hosted deployments.
package sqlite

import (
	"database/sql"
	"errors"
	"strings"

	"github.com/dukerupert/cvforge/internal/store"
	sqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// New builds the store bundle on an open database handle.
func New(db *sql.DB) store.Stores {
	return store.Stores{
		Customers:   NewCustomerStore(db),
		Credentials: NewCredentialStore(db),
		MagicLinks:  NewMagicLinkStore(db),
		Purchases:   NewPurchaseStore(db),
	}
}

// isUniqueViolation reports whether err is a UNIQUE or PRIMARY KEY
// constraint failure.
func isUniqueViolation(err error) bool {
	var serr *sqlite.Error
	if errors.As(err, &serr) {
		code := serr.Code()
		return code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
	}
	return false
}

// joinTemplates flattens a template set for storage.
func joinTemplates(templates []string) string {
	return strings.Join(templates, ",")
}

// splitTemplates parses a stored template set, dropping empty entries.
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
