// Package account orchestrates registration, login, and magic-link claims
// over the credential and customer stores.
package account

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/dukerupert/cvforge/internal/apperr"
	"github.com/dukerupert/cvforge/internal/entitlement"
	"github.com/dukerupert/cvforge/internal/magiclink"
	"github.com/dukerupert/cvforge/internal/session"
	"github.com/dukerupert/cvforge/internal/store"
)

const minPasswordLen = 8

type Service struct {
	customers   store.CustomerStore
	credentials store.CredentialStore
	magicLinks  *magiclink.Service
	sessions    *session.Manager
	logger      *slog.Logger
}

func NewService(
	customers store.CustomerStore,
	credentials store.CredentialStore,
	magicLinks *magiclink.Service,
	sessions *session.Manager,
	logger *slog.Logger,
) *Service {
	return &Service{
		customers:   customers,
		credentials: credentials,
		magicLinks:  magicLinks,
		sessions:    sessions,
		logger:      logger,
	}
}

// NormalizeEmail lowercases and trims an email. Every store access goes
// through the normalized form.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validatePassword(password, confirm string) error {
	if len(password) < minPasswordLen {
		return apperr.ErrWeakPassword
	}
	if password != confirm {
		return apperr.ErrPasswordMismatch
	}
	return nil
}

// Signup registers a new credential and opens a session. The duplicate
// check rides on the store's uniqueness constraint, so two concurrent
// signups for the same email cannot both succeed.
func (s *Service) Signup(ctx context.Context, w http.ResponseWriter, email, password, confirm string) error {
	email = NormalizeEmail(email)
	if email == "" {
		return apperr.Validation("email", "Email is required.")
	}
	if err := validatePassword(password, confirm); err != nil {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	if err := s.credentials.Create(ctx, email, string(hash)); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return apperr.ErrAccountExists
		}
		return fmt.Errorf("create credential: %w", err)
	}

	if _, err := s.customers.EnsureExists(ctx, email); err != nil {
		return fmt.Errorf("ensure customer: %w", err)
	}

	s.logger.Info("account created", "email", email)
	return s.sessions.Create(w, email)
}

// Login verifies credentials and entitlement, then opens a session. A
// missing credential and a wrong password produce the same error so the
// endpoint cannot be used to enumerate accounts.
func (s *Service) Login(ctx context.Context, w http.ResponseWriter, email, password string) error {
	email = NormalizeEmail(email)

	cred, err := s.credentials.FindByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("find credential: %w", err)
	}
	if cred == nil {
		return apperr.ErrInvalidCredentials
	}
	if bcrypt.CompareHashAndPassword([]byte(cred.PasswordHash), []byte(password)) != nil {
		return apperr.ErrInvalidCredentials
	}

	customer, err := s.customers.FindByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("find customer: %w", err)
	}
	if !entitlement.HasEffectiveAccess(customer, time.Now()) {
		return apperr.ErrAccessExpired
	}

	return s.sessions.Create(w, email)
}

// ClaimViaMagicLink converts a live claim token into a credential and a
// session. The token is consumed first, so once a claim reaches the
// password or credential checks the link can never authorize a second
// attempt, even when the claim itself fails.
func (s *Service) ClaimViaMagicLink(ctx context.Context, w http.ResponseWriter, rawToken, password, confirm string) (string, error) {
	email, err := s.magicLinks.Consume(ctx, rawToken)
	if err != nil {
		return "", err
	}

	if err := validatePassword(password, confirm); err != nil {
		return "", err
	}

	customer, err := s.customers.FindByEmail(ctx, email)
	if err != nil {
		return "", fmt.Errorf("find customer: %w", err)
	}
	if !entitlement.HasEffectiveAccess(customer, time.Now()) {
		return "", apperr.ErrAccessExpired
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}

	if err := s.credentials.Create(ctx, email, string(hash)); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			// The token was already consumed above, so a stale shared
			// link cannot be replayed against an existing account.
			return "", apperr.ErrAccountExists
		}
		return "", fmt.Errorf("create credential: %w", err)
	}

	s.logger.Info("account claimed", "email", email)
	if err := s.sessions.Create(w, email); err != nil {
		return "", err
	}
	return email, nil
}

// MagicExchange consumes a live token for an entitled customer and opens a
// session without touching credentials (login-by-link).
func (s *Service) MagicExchange(ctx context.Context, w http.ResponseWriter, rawToken string) (string, error) {
	email, err := s.magicLinks.Consume(ctx, rawToken)
	if err != nil {
		return "", err
	}

	customer, err := s.customers.FindByEmail(ctx, email)
	if err != nil {
		return "", fmt.Errorf("find customer: %w", err)
	}
	if !entitlement.HasEffectiveAccess(customer, time.Now()) {
		return "", apperr.ErrAccessExpired
	}

	if err := s.sessions.Create(w, email); err != nil {
		return "", err
	}
	return email, nil
}
