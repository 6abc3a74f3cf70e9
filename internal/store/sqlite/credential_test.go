package sqlite

import (
	"context"
	"errors"
	"testing"

	"github.com/dukerupert/cvforge/internal/store"
)

func TestCredentialCreateAndFind(t *testing.T) {
	cs := NewCredentialStore(setupTestDB(t))
	ctx := context.Background()

	if err := cs.Create(ctx, "alice@example.com", "$2a$10$hash"); err != nil {
		t.Fatalf("create: %v", err)
	}

	c, err := cs.FindByEmail(ctx, "alice@example.com")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if c == nil {
		t.Fatal("expected credential, got nil")
	}
	if c.PasswordHash != "$2a$10$hash" {
		t.Errorf("hash = %q", c.PasswordHash)
	}
}

func TestCredentialFindMissing(t *testing.T) {
	cs := NewCredentialStore(setupTestDB(t))

	c, err := cs.FindByEmail(context.Background(), "nobody@example.com")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if c != nil {
		t.Error("expected nil for missing credential")
	}
}

func TestCredentialCreateDuplicate(t *testing.T) {
	cs := NewCredentialStore(setupTestDB(t))
	ctx := context.Background()

	if err := cs.Create(ctx, "alice@example.com", "hash-one"); err != nil {
		t.Fatalf("create: %v", err)
	}

	err := cs.Create(ctx, "alice@example.com", "hash-two")
	if !errors.Is(err, store.ErrDuplicate) {
		t.Fatalf("err = %v, want ErrDuplicate", err)
	}

	// The original hash must survive; duplicates fail, never overwrite.
	c, err := cs.FindByEmail(ctx, "alice@example.com")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if c.PasswordHash != "hash-one" {
		t.Errorf("hash = %q, want hash-one", c.PasswordHash)
	}
}
