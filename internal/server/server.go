// Package server wires stores, services, and handlers into one router.
package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/dukerupert/cvforge/internal/account"
	"github.com/dukerupert/cvforge/internal/config"
	"github.com/dukerupert/cvforge/internal/email"
	"github.com/dukerupert/cvforge/internal/grant"
	"github.com/dukerupert/cvforge/internal/handler"
	"github.com/dukerupert/cvforge/internal/magiclink"
	"github.com/dukerupert/cvforge/internal/middleware"
	"github.com/dukerupert/cvforge/internal/provider/etsy"
	"github.com/dukerupert/cvforge/internal/provider/licensing"
	"github.com/dukerupert/cvforge/internal/provider/payhip"
	"github.com/dukerupert/cvforge/internal/session"
	"github.com/dukerupert/cvforge/internal/store"
)

type Server struct {
	cfg         *config.Config
	sessions    *session.Manager
	rateLimiter *middleware.RateLimiter
	authH       *handler.AuthHandler
	claimH      *handler.ClaimHandler
	purchaseH   *handler.PurchaseHandler
	licenseH    *handler.LicenseHandler
	logger      *slog.Logger
}

func New(cfg *config.Config, stores store.Stores, logger *slog.Logger) *Server {
	sessions := session.NewManager([]byte(cfg.SessionSecret))
	links := magiclink.NewService(stores.MagicLinks, logger.With("component", "magiclink"))
	mailer := email.NewClient(cfg.PostmarkToken, cfg.FromEmail, cfg.BaseURL)
	accounts := account.NewService(stores.Customers, stores.Credentials, links, sessions,
		logger.With("component", "account"))
	grants := grant.NewService(stores.Customers, stores.Credentials, stores.Purchases, links, mailer,
		logger.With("component", "grant"))

	var etsyClient *etsy.Client
	if cfg.EtsyEnabled() {
		etsyClient = etsy.NewClient(cfg.EtsyAPIKey, cfg.EtsyAccessToken, cfg.EtsyShopID)
	}

	var licenseH *handler.LicenseHandler
	if cfg.LicenseURL != "" {
		licenseH = handler.NewLicenseHandler(licensing.NewClient(cfg.LicenseURL),
			logger.With("component", "license"))
	}

	return &Server{
		cfg:         cfg,
		sessions:    sessions,
		rateLimiter: middleware.NewRateLimiter(),
		authH: handler.NewAuthHandler(accounts, stores.Customers, sessions,
			logger.With("component", "auth")),
		claimH: handler.NewClaimHandler(accounts, links,
			logger.With("component", "claim")),
		purchaseH: handler.NewPurchaseHandler(grants, stores.Customers,
			payhip.NewVerifier(cfg.PayhipSecret), etsyClient,
			logger.With("component", "purchase")),
		licenseH: licenseH,
		logger:   logger,
	}
}

// RateLimiter exposes the limiter for the cleanup task.
func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.rateLimiter
}

func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()

	// Public routes
	mux.HandleFunc("POST /auth", s.rateLimited(s.authH.Dispatch))
	mux.HandleFunc("POST /signup", s.rateLimited(s.authH.Signup))
	mux.HandleFunc("POST /login", s.rateLimited(s.authH.Login))
	mux.HandleFunc("POST /logout", s.authH.Logout)
	mux.HandleFunc("POST /claim", s.rateLimited(s.claimH.Claim))
	mux.HandleFunc("POST /claim-status", s.claimH.ClaimStatus)
	mux.HandleFunc("POST /magic-exchange", s.rateLimited(s.claimH.MagicExchange))
	mux.HandleFunc("POST /request-access", s.rateLimited(s.purchaseH.RequestAccess))
	mux.HandleFunc("GET /health", s.healthHandler)

	if s.cfg.PayhipEnabled() {
		mux.HandleFunc("POST /webhooks/payhip", s.purchaseH.PayhipWebhook)
	}
	if s.cfg.EtsyEnabled() {
		mux.HandleFunc("POST /etsy/redeem", s.rateLimited(s.purchaseH.EtsyRedeem))
	}
	if s.licenseH != nil {
		mux.HandleFunc("POST /license/verify", s.rateLimited(s.licenseH.Verify))
	}

	// Session-protected routes
	requireAuth := middleware.RequireAuth(s.sessions)
	mux.Handle("GET /me", requireAuth(http.HandlerFunc(s.authH.Me)))

	return middleware.RequestLogger(s.logger.With("component", "http"))(mux)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// rateLimited wraps the handler at registration time; the wrapped chain is
// built once, not per request.
func (s *Server) rateLimited(h http.HandlerFunc) http.HandlerFunc {
	return middleware.RateLimit(s.rateLimiter, 10, time.Minute)(h).ServeHTTP
}
