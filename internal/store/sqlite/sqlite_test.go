package sqlite

import (
	"database/sql"
	"testing"

	"github.com/dukerupert/cvforge/internal/database"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	// An in-memory database exists per connection; pin the pool to one so
	// every query sees the same data.
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	return db
}
