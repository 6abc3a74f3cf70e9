// Package grant turns verified purchases into time-boxed entitlements and
// claim links. It is the only writer of access grants.
package grant

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dukerupert/cvforge/internal/account"
	"github.com/dukerupert/cvforge/internal/email"
	"github.com/dukerupert/cvforge/internal/entitlement"
	"github.com/dukerupert/cvforge/internal/magiclink"
	"github.com/dukerupert/cvforge/internal/model"
	"github.com/dukerupert/cvforge/internal/store"
)

type Service struct {
	customers   store.CustomerStore
	credentials store.CredentialStore
	purchases   store.PurchaseStore
	links       *magiclink.Service
	mailer      *email.Client
	logger      *slog.Logger
}

func NewService(
	customers store.CustomerStore,
	credentials store.CredentialStore,
	purchases store.PurchaseStore,
	links *magiclink.Service,
	mailer *email.Client,
	logger *slog.Logger,
) *Service {
	return &Service{
		customers:   customers,
		credentials: credentials,
		purchases:   purchases,
		links:       links,
		mailer:      mailer,
		logger:      logger,
	}
}

// Purchase describes a verified purchase event from any provider.
type Purchase struct {
	TransactionID string
	Provider      string
	Email         string
	Template      string
}

// Fulfill records the purchase, extends the customer's access by the grant
// period, and mails a single-use claim link. A transaction id that was
// already recorded is a success no-op only when the buyer actually holds
// access: a redelivery after an interrupted fulfillment finishes the grant
// instead of acknowledging it, so a provider retry cannot strand a paid
// customer without access.
func (s *Service) Fulfill(ctx context.Context, p Purchase) error {
	buyer := account.NormalizeEmail(p.Email)
	if buyer == "" {
		return fmt.Errorf("fulfill %s/%s: no buyer email", p.Provider, p.TransactionID)
	}

	err := s.purchases.Create(ctx, &model.Purchase{
		TransactionID: p.TransactionID,
		Email:         buyer,
		Provider:      p.Provider,
		Template:      p.Template,
	})
	if errors.Is(err, store.ErrDuplicate) {
		customer, err := s.customers.FindByEmail(ctx, buyer)
		if err != nil {
			return fmt.Errorf("find customer: %w", err)
		}
		if entitlement.HasEffectiveAccess(customer, time.Now()) {
			s.logger.Info("duplicate purchase delivery ignored",
				"provider", p.Provider, "transaction_id", p.TransactionID)
			return nil
		}
		// The purchase row landed on an earlier delivery but the grant
		// after it did not. Finish the fulfillment on this delivery.
		s.logger.Warn("completing interrupted fulfillment",
			"provider", p.Provider, "transaction_id", p.TransactionID)
		return s.grant(ctx, buyer, p)
	}
	if err != nil {
		return fmt.Errorf("record purchase: %w", err)
	}

	return s.grant(ctx, buyer, p)
}

func (s *Service) grant(ctx context.Context, buyer string, p Purchase) error {
	customer, err := s.customers.GrantAccess(ctx, buyer, p.Template, entitlement.GrantPeriod)
	if err != nil {
		return fmt.Errorf("grant access: %w", err)
	}
	s.logger.Info("access granted",
		"provider", p.Provider, "transaction_id", p.TransactionID,
		"expires_at", customer.AccessExpiresAt)

	return s.sendLink(ctx, buyer, false)
}

// Reissue mails a fresh single-use link to an already-entitled customer.
// Customers who hold a credential get a sign-in link; everyone else gets the
// account-setup wording. Callers decide entitlement, this only mints and
// sends.
func (s *Service) Reissue(ctx context.Context, customerEmail string) error {
	buyer := account.NormalizeEmail(customerEmail)

	cred, err := s.credentials.FindByEmail(ctx, buyer)
	if err != nil {
		return fmt.Errorf("find credential: %w", err)
	}
	return s.sendLink(ctx, buyer, cred != nil)
}

func (s *Service) sendLink(ctx context.Context, customerEmail string, signIn bool) error {
	raw, err := s.links.Issue(ctx, customerEmail, magiclink.DefaultTTL)
	if err != nil {
		return fmt.Errorf("issue link: %w", err)
	}
	if !s.mailer.Configured() {
		s.logger.Warn("email not configured, link not sent", "email", customerEmail)
		return nil
	}
	if signIn {
		if err := s.mailer.SendLoginLink(customerEmail, raw); err != nil {
			return fmt.Errorf("send login link: %w", err)
		}
		return nil
	}
	if err := s.mailer.SendClaimLink(customerEmail, raw); err != nil {
		return fmt.Errorf("send claim link: %w", err)
	}
	return nil
}
