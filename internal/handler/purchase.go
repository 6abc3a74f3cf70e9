package handler

import (
	"log/slog"
	"net/http"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"

	"github.com/dukerupert/cvforge/internal/account"
	"github.com/dukerupert/cvforge/internal/apperr"
	"github.com/dukerupert/cvforge/internal/entitlement"
	"github.com/dukerupert/cvforge/internal/grant"
	"github.com/dukerupert/cvforge/internal/provider/etsy"
	"github.com/dukerupert/cvforge/internal/provider/payhip"
	"github.com/dukerupert/cvforge/internal/store"
)

// PurchaseHandler fronts the provider-facing grant flows: the Payhip
// webhook, Etsy receipt redemption, and the manual request-access path.
type PurchaseHandler struct {
	grants    *grant.Service
	customers store.CustomerStore
	payhip    *payhip.Verifier
	etsy      *etsy.Client
	logger    *slog.Logger
}

func NewPurchaseHandler(grants *grant.Service, customers store.CustomerStore, verifier *payhip.Verifier, etsyClient *etsy.Client, logger *slog.Logger) *PurchaseHandler {
	return &PurchaseHandler{
		grants:    grants,
		customers: customers,
		payhip:    verifier,
		etsy:      etsyClient,
		logger:    logger,
	}
}

// PayhipWebhook verifies and fulfills a Payhip delivery. Non-paid events
// and duplicate deliveries both acknowledge with 200 so Payhip stops
// redelivering.
func (h *PurchaseHandler) PayhipWebhook(w http.ResponseWriter, r *http.Request) {
	wh, err := h.payhip.Parse(r.Body)
	if err != nil {
		h.logger.Warn("payhip webhook rejected", "error", err)
		respondError(w, h.logger, apperr.Auth("Invalid webhook signature."))
		return
	}
	if !wh.Paid() {
		h.logger.Info("payhip event ignored", "type", wh.Type, "transaction_id", wh.ID)
		respondJSON(w, http.StatusOK, map[string]bool{"ok": true})
		return
	}

	err = h.grants.Fulfill(r.Context(), grant.Purchase{
		TransactionID: wh.ID,
		Provider:      "payhip",
		Email:         wh.Email,
		Template:      wh.Template(),
	})
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

type etsyRedeemRequest struct {
	ReceiptID string `json:"receiptId"`
	Email     string `json:"email"`
}

func (r etsyRedeemRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.ReceiptID, validation.Required, is.Digit),
		validation.Field(&r.Email, validation.Required, is.Email),
	)
}

// EtsyRedeem looks a receipt up at Etsy and fulfills it when the buyer
// email matches. Unknown receipts and email mismatches share one response.
func (h *PurchaseHandler) EtsyRedeem(w http.ResponseWriter, r *http.Request) {
	var req etsyRedeemRequest
	if err := decode(w, r, &req); err != nil {
		respondError(w, h.logger, err)
		return
	}

	receipt, err := h.etsy.GetReceipt(r.Context(), req.ReceiptID)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	if receipt == nil || !receipt.IsPaid ||
		account.NormalizeEmail(receipt.BuyerEmail) != account.NormalizeEmail(req.Email) {
		respondError(w, h.logger, apperr.Validation("receiptId", "We could not match that receipt to this email."))
		return
	}

	err = h.grants.Fulfill(r.Context(), grant.Purchase{
		TransactionID: "etsy-" + req.ReceiptID,
		Provider:      "etsy",
		Email:         req.Email,
		Template:      receipt.Template(),
	})
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

type requestAccessRequest struct {
	Email string `json:"email"`
}

func (r requestAccessRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
	)
}

// RequestAccess re-sends a claim link to an entitled customer. The response
// is the same whether or not the email is known, so the endpoint cannot be
// used to probe for customers.
func (h *PurchaseHandler) RequestAccess(w http.ResponseWriter, r *http.Request) {
	var req requestAccessRequest
	if err := decode(w, r, &req); err != nil {
		respondError(w, h.logger, err)
		return
	}

	customer, err := h.customers.FindByEmail(r.Context(), account.NormalizeEmail(req.Email))
	if err != nil {
		h.logger.Error("request-access lookup", "error", err)
	} else if entitlement.HasEffectiveAccess(customer, time.Now()) {
		if err := h.grants.Reissue(r.Context(), req.Email); err != nil {
			h.logger.Error("request-access reissue", "error", err)
		}
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"message": "If that email has access, a sign-in link is on its way.",
	})
}
