package handler

import (
	"log/slog"
	"net/http"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"

	"github.com/dukerupert/cvforge/internal/account"
	"github.com/dukerupert/cvforge/internal/apperr"
	"github.com/dukerupert/cvforge/internal/auth"
	"github.com/dukerupert/cvforge/internal/entitlement"
	"github.com/dukerupert/cvforge/internal/session"
	"github.com/dukerupert/cvforge/internal/store"
)

type AuthHandler struct {
	accounts  *account.Service
	customers store.CustomerStore
	sessions  *session.Manager
	logger    *slog.Logger
}

func NewAuthHandler(accounts *account.Service, customers store.CustomerStore, sessions *session.Manager, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		accounts:  accounts,
		customers: customers,
		sessions:  sessions,
		logger:    logger,
	}
}

type signupRequest struct {
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
}

func (r signupRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Password, validation.Required),
	)
}

func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := decode(w, r, &req); err != nil {
		respondError(w, h.logger, err)
		return
	}
	if err := h.accounts.Signup(r.Context(), w, req.Email, req.Password, req.ConfirmPassword); err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"email": account.NormalizeEmail(req.Email)})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r loginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Password, validation.Required),
	)
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decode(w, r, &req); err != nil {
		respondError(w, h.logger, err)
		return
	}
	if err := h.accounts.Login(r.Context(), w, req.Email, req.Password); err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"email": account.NormalizeEmail(req.Email)})
}

// Logout clears the session cookie. The token itself stays valid until its
// expiry; there is no server-side session table to revoke from.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.sessions.Clear(w)
	respondJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

type meResponse struct {
	Email           string     `json:"email"`
	HasAccess       bool       `json:"hasAccess"`
	AccessExpiresAt *time.Time `json:"accessExpiresAt"`
	Templates       []string   `json:"templates"`
}

// Me reports the authenticated customer's entitlement. Runs behind
// RequireAuth, which put the email on the context.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	customerEmail := auth.Email(r.Context())
	customer, err := h.customers.FindByEmail(r.Context(), customerEmail)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}

	resp := meResponse{Email: customerEmail, Templates: []string{}}
	if customer != nil {
		resp.HasAccess = entitlement.HasEffectiveAccess(customer, time.Now())
		resp.AccessExpiresAt = customer.AccessExpiresAt
		if customer.Templates != nil {
			resp.Templates = customer.Templates
		}
	}
	respondJSON(w, http.StatusOK, resp)
}

type authActionRequest struct {
	Action          string `json:"action"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
}

func (r authActionRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Action, validation.Required,
			validation.In("signup", "login", "logout", "me")),
	)
}

// Dispatch is the combined POST /auth endpoint: one body, an action field,
// the same semantics as the dedicated routes.
func (h *AuthHandler) Dispatch(w http.ResponseWriter, r *http.Request) {
	var req authActionRequest
	if err := decode(w, r, &req); err != nil {
		respondError(w, h.logger, err)
		return
	}

	switch req.Action {
	case "signup":
		if err := h.accounts.Signup(r.Context(), w, req.Email, req.Password, req.ConfirmPassword); err != nil {
			respondError(w, h.logger, err)
			return
		}
		respondJSON(w, http.StatusOK, map[string]string{"email": account.NormalizeEmail(req.Email)})
	case "login":
		if err := h.accounts.Login(r.Context(), w, req.Email, req.Password); err != nil {
			respondError(w, h.logger, err)
			return
		}
		respondJSON(w, http.StatusOK, map[string]string{"email": account.NormalizeEmail(req.Email)})
	case "logout":
		h.Logout(w, r)
	case "me":
		customerEmail := h.sessions.Read(r)
		if customerEmail == "" {
			respondError(w, h.logger, apperr.Auth("Authentication required."))
			return
		}
		h.Me(w, r.WithContext(auth.WithEmail(r.Context(), customerEmail)))
	}
}
