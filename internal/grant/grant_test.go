package grant

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/dukerupert/cvforge/internal/database"
	"github.com/dukerupert/cvforge/internal/email"
	"github.com/dukerupert/cvforge/internal/entitlement"
	"github.com/dukerupert/cvforge/internal/magiclink"
	"github.com/dukerupert/cvforge/internal/model"
	"github.com/dukerupert/cvforge/internal/store"
	"github.com/dukerupert/cvforge/internal/store/sqlite"
)

// postmarkRecorder redirects Postmark API calls to a local test server.
type postmarkRecorder struct {
	target string
}

func (t *postmarkRecorder) RoundTrip(req *http.Request) (*http.Response, error) {
	req.URL.Scheme = "http"
	req.URL.Host = t.target[len("http://"):]
	return http.DefaultTransport.RoundTrip(req)
}

type sentMail struct {
	To       string `json:"To"`
	Subject  string `json:"Subject"`
	TextBody string `json:"TextBody"`
}

type env struct {
	svc    *Service
	stores store.Stores
	links  *magiclink.Service
	mailer *email.Client
	logger *slog.Logger
	sent   *[]sentMail
}

func setup(t *testing.T) *env {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	var sent []sentMail
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var m sentMail
		json.NewDecoder(r.Body).Decode(&m)
		sent = append(sent, m)
		w.Write([]byte(`{"MessageID": "test-id"}`))
	}))
	t.Cleanup(server.Close)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	stores := sqlite.New(db)
	links := magiclink.NewService(stores.MagicLinks, logger)
	mailer := email.NewClient("test-token", "noreply@example.com", "https://cvforge.test",
		email.WithHTTPClient(&http.Client{Transport: &postmarkRecorder{target: server.URL}}))
	svc := NewService(stores.Customers, stores.Credentials, stores.Purchases, links, mailer, logger)

	return &env{svc: svc, stores: stores, links: links, mailer: mailer, logger: logger, sent: &sent}
}

// claimToken pulls the raw token out of a sent claim email.
func claimToken(t *testing.T, m sentMail) string {
	t.Helper()
	i := strings.Index(m.TextBody, "token=")
	if i < 0 {
		t.Fatalf("no token in email body: %q", m.TextBody)
	}
	rest := m.TextBody[i+len("token="):]
	if j := strings.IndexAny(rest, "\n \t"); j >= 0 {
		rest = rest[:j]
	}
	raw, err := url.QueryUnescape(rest)
	if err != nil {
		t.Fatalf("unescape token: %v", err)
	}
	return raw
}

func TestFulfillGrantsAndMails(t *testing.T) {
	e := setup(t)
	ctx := context.Background()

	err := e.svc.Fulfill(ctx, Purchase{
		TransactionID: "txn_1",
		Provider:      "payhip",
		Email:         "Buyer@Example.com",
		Template:      "Modern CV Template",
	})
	if err != nil {
		t.Fatalf("fulfill: %v", err)
	}

	customer, err := e.stores.Customers.FindByEmail(ctx, "buyer@example.com")
	if err != nil {
		t.Fatalf("find customer: %v", err)
	}
	if customer == nil || !customer.HasAccess {
		t.Fatalf("customer = %+v, want access granted", customer)
	}
	wantExpiry := time.Now().Add(entitlement.GrantPeriod)
	if customer.AccessExpiresAt == nil || customer.AccessExpiresAt.Sub(wantExpiry).Abs() > time.Minute {
		t.Errorf("accessExpiresAt = %v, want about %v", customer.AccessExpiresAt, wantExpiry)
	}
	if len(customer.Templates) != 1 || customer.Templates[0] != "Modern CV Template" {
		t.Errorf("templates = %v", customer.Templates)
	}

	if len(*e.sent) != 1 {
		t.Fatalf("sent %d emails, want 1", len(*e.sent))
	}
	if (*e.sent)[0].To != "buyer@example.com" {
		t.Errorf("mail To = %q", (*e.sent)[0].To)
	}

	// The mailed token resolves to a live claim link.
	raw := claimToken(t, (*e.sent)[0])
	state, linkEmail, err := e.links.Lookup(ctx, raw)
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if state != magiclink.StateNew || linkEmail != "buyer@example.com" {
		t.Errorf("link state = %q email = %q", state, linkEmail)
	}
}

func TestFulfillDuplicateDeliveryIsNoOp(t *testing.T) {
	e := setup(t)
	ctx := context.Background()

	p := Purchase{TransactionID: "txn_1", Provider: "payhip", Email: "buyer@example.com", Template: "Modern CV Template"}
	if err := e.svc.Fulfill(ctx, p); err != nil {
		t.Fatalf("first delivery: %v", err)
	}
	customer, _ := e.stores.Customers.FindByEmail(ctx, "buyer@example.com")
	firstExpiry := *customer.AccessExpiresAt

	if err := e.svc.Fulfill(ctx, p); err != nil {
		t.Fatalf("duplicate delivery must succeed: %v", err)
	}

	customer, _ = e.stores.Customers.FindByEmail(ctx, "buyer@example.com")
	if !customer.AccessExpiresAt.Equal(firstExpiry) {
		t.Error("duplicate delivery must not extend access")
	}
	if len(*e.sent) != 1 {
		t.Errorf("sent %d emails, want 1 (no resend on duplicate)", len(*e.sent))
	}
}

// flakyCustomerStore fails a fixed number of grant writes, then recovers.
type flakyCustomerStore struct {
	store.CustomerStore
	failures int
}

func (f *flakyCustomerStore) GrantAccess(ctx context.Context, email, template string, period time.Duration) (*model.Customer, error) {
	if f.failures > 0 {
		f.failures--
		return nil, errors.New("customer store unavailable")
	}
	return f.CustomerStore.GrantAccess(ctx, email, template, period)
}

func TestFulfillRetryCompletesInterruptedGrant(t *testing.T) {
	e := setup(t)
	flaky := &flakyCustomerStore{CustomerStore: e.stores.Customers, failures: 1}
	svc := NewService(flaky, e.stores.Credentials, e.stores.Purchases, e.links, e.mailer, e.logger)
	ctx := context.Background()

	p := Purchase{TransactionID: "txn_1", Provider: "payhip", Email: "buyer@example.com", Template: "Modern CV Template"}
	if err := svc.Fulfill(ctx, p); err == nil {
		t.Fatal("first delivery should fail while the grant write is down")
	}

	// The provider retries the same transaction id. The purchase row is
	// already recorded, but the buyer holds no access, so the retry must
	// finish the grant rather than acknowledge a duplicate.
	if err := svc.Fulfill(ctx, p); err != nil {
		t.Fatalf("retry: %v", err)
	}

	customer, err := e.stores.Customers.FindByEmail(ctx, "buyer@example.com")
	if err != nil {
		t.Fatalf("find customer: %v", err)
	}
	if customer == nil || !customer.HasAccess {
		t.Fatalf("customer = %+v, want access granted after retry", customer)
	}
	if len(*e.sent) != 1 {
		t.Fatalf("sent %d emails, want 1 claim link after the retry", len(*e.sent))
	}

	// Once fulfillment completed, further redeliveries are plain no-ops.
	if err := svc.Fulfill(ctx, p); err != nil {
		t.Fatalf("redelivery after completion: %v", err)
	}
	if len(*e.sent) != 1 {
		t.Errorf("sent %d emails, want no resend after completion", len(*e.sent))
	}
}

func TestFulfillRenewalExtendsFromCurrentExpiry(t *testing.T) {
	e := setup(t)
	ctx := context.Background()

	if err := e.svc.Fulfill(ctx, Purchase{TransactionID: "txn_1", Provider: "payhip", Email: "buyer@example.com", Template: "Modern CV Template"}); err != nil {
		t.Fatalf("first purchase: %v", err)
	}
	if err := e.svc.Fulfill(ctx, Purchase{TransactionID: "txn_2", Provider: "payhip", Email: "buyer@example.com", Template: "Classic CV Template"}); err != nil {
		t.Fatalf("renewal: %v", err)
	}

	customer, err := e.stores.Customers.FindByEmail(ctx, "buyer@example.com")
	if err != nil {
		t.Fatalf("find customer: %v", err)
	}
	wantExpiry := time.Now().Add(2 * entitlement.GrantPeriod)
	if customer.AccessExpiresAt.Sub(wantExpiry).Abs() > time.Minute {
		t.Errorf("accessExpiresAt = %v, want about %v (stacked)", customer.AccessExpiresAt, wantExpiry)
	}
	if len(customer.Templates) != 2 {
		t.Errorf("templates = %v, want both purchases merged", customer.Templates)
	}
}

func TestFulfillNoEmailFails(t *testing.T) {
	e := setup(t)
	if err := e.svc.Fulfill(context.Background(), Purchase{TransactionID: "txn_1", Provider: "payhip"}); err == nil {
		t.Fatal("expected error for missing buyer email")
	}
}

func TestReissueWithoutCredentialSendsSetupLink(t *testing.T) {
	e := setup(t)
	if err := e.svc.Reissue(context.Background(), "Buyer@Example.com"); err != nil {
		t.Fatalf("reissue: %v", err)
	}
	if len(*e.sent) != 1 || (*e.sent)[0].To != "buyer@example.com" {
		t.Fatalf("sent = %+v, want one mail to buyer@example.com", *e.sent)
	}
	if subject := (*e.sent)[0].Subject; !strings.Contains(subject, "set up your account") {
		t.Errorf("subject = %q, want account-setup wording", subject)
	}
}

func TestReissueWithCredentialSendsSignInLink(t *testing.T) {
	e := setup(t)
	ctx := context.Background()

	if err := e.stores.Credentials.Create(ctx, "buyer@example.com", "$2a$10$hash"); err != nil {
		t.Fatalf("create credential: %v", err)
	}
	if err := e.svc.Reissue(ctx, "buyer@example.com"); err != nil {
		t.Fatalf("reissue: %v", err)
	}

	if len(*e.sent) != 1 {
		t.Fatalf("sent %d emails, want 1", len(*e.sent))
	}
	if subject := (*e.sent)[0].Subject; subject != "Sign in to CVForge" {
		t.Errorf("subject = %q, want the sign-in wording for existing accounts", subject)
	}

	// The sign-in mail carries a live single-use link like the claim mail.
	raw := claimToken(t, (*e.sent)[0])
	state, _, err := e.links.Lookup(ctx, raw)
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if state != magiclink.StateNew {
		t.Errorf("link state = %q, want new", state)
	}
}
