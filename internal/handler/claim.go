package handler

import (
	"log/slog"
	"net/http"

	validation "github.com/go-ozzo/ozzo-validation"

	"github.com/dukerupert/cvforge/internal/account"
	"github.com/dukerupert/cvforge/internal/magiclink"
)

type ClaimHandler struct {
	accounts *account.Service
	links    *magiclink.Service
	logger   *slog.Logger
}

func NewClaimHandler(accounts *account.Service, links *magiclink.Service, logger *slog.Logger) *ClaimHandler {
	return &ClaimHandler{
		accounts: accounts,
		links:    links,
		logger:   logger,
	}
}

type claimRequest struct {
	Token           string `json:"token"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
}

func (r claimRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Token, validation.Required),
		validation.Field(&r.Password, validation.Required),
	)
}

// Claim consumes a magic link, creates the credential, and opens a session.
func (h *ClaimHandler) Claim(w http.ResponseWriter, r *http.Request) {
	var req claimRequest
	if err := decode(w, r, &req); err != nil {
		respondError(w, h.logger, err)
		return
	}
	claimedEmail, err := h.accounts.ClaimViaMagicLink(r.Context(), w, req.Token, req.Password, req.ConfirmPassword)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"email": claimedEmail})
}

type tokenRequest struct {
	Token string `json:"token"`
}

func (r tokenRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Token, validation.Required),
	)
}

type claimStatusResponse struct {
	State string `json:"state"`
	Email string `json:"email,omitempty"`
}

// ClaimStatus reports a token's state without consuming it, so the claim
// page can render the right form before asking for a password. The email is
// only revealed for a live token.
func (h *ClaimHandler) ClaimStatus(w http.ResponseWriter, r *http.Request) {
	var req tokenRequest
	if err := decode(w, r, &req); err != nil {
		respondError(w, h.logger, err)
		return
	}

	state, linkEmail, err := h.links.Lookup(r.Context(), req.Token)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	resp := claimStatusResponse{State: string(state)}
	if state == magiclink.StateNew {
		resp.Email = linkEmail
	}
	respondJSON(w, http.StatusOK, resp)
}

// MagicExchange consumes a token to open a session for an existing account.
func (h *ClaimHandler) MagicExchange(w http.ResponseWriter, r *http.Request) {
	var req tokenRequest
	if err := decode(w, r, &req); err != nil {
		respondError(w, h.logger, err)
		return
	}
	exchangedEmail, err := h.accounts.MagicExchange(r.Context(), w, req.Token)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"email": exchangedEmail})
}
