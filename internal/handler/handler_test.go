package handler

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dukerupert/cvforge/internal/account"
	"github.com/dukerupert/cvforge/internal/database"
	"github.com/dukerupert/cvforge/internal/email"
	"github.com/dukerupert/cvforge/internal/grant"
	"github.com/dukerupert/cvforge/internal/magiclink"
	"github.com/dukerupert/cvforge/internal/session"
	"github.com/dukerupert/cvforge/internal/store"
	"github.com/dukerupert/cvforge/internal/store/sqlite"
)

// env bundles everything a handler test needs.
type env struct {
	stores   store.Stores
	sessions *session.Manager
	links    *magiclink.Service
	accounts *account.Service
	grants   *grant.Service
	logger   *slog.Logger
	sent     *[]sentMail
}

type sentMail struct {
	To       string `json:"To"`
	TextBody string `json:"TextBody"`
}

type postmarkRecorder struct {
	target string
}

func (t *postmarkRecorder) RoundTrip(req *http.Request) (*http.Response, error) {
	req.URL.Scheme = "http"
	req.URL.Host = t.target[len("http://"):]
	return http.DefaultTransport.RoundTrip(req)
}

func setupEnv(t *testing.T) *env {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	var sent []sentMail
	mailServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var m sentMail
		json.NewDecoder(r.Body).Decode(&m)
		sent = append(sent, m)
		w.Write([]byte(`{"MessageID": "test-id"}`))
	}))
	t.Cleanup(mailServer.Close)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	stores := sqlite.New(db)
	links := magiclink.NewService(stores.MagicLinks, logger)
	sessions := session.NewManager([]byte("test-secret"))
	accounts := account.NewService(stores.Customers, stores.Credentials, links, sessions, logger)
	mailer := email.NewClient("test-token", "noreply@example.com", "https://cvforge.test",
		email.WithHTTPClient(&http.Client{Transport: &postmarkRecorder{target: mailServer.URL}}))
	grants := grant.NewService(stores.Customers, stores.Credentials, stores.Purchases, links, mailer, logger)

	return &env{
		stores:   stores,
		sessions: sessions,
		links:    links,
		accounts: accounts,
		grants:   grants,
		logger:   logger,
		sent:     &sent,
	}
}

// postJSON runs a handler with a JSON body and returns the recorder.
func postJSON(h http.HandlerFunc, body string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	h(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return v
}
