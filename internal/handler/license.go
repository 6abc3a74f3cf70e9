package handler

import (
	"log/slog"
	"net/http"

	validation "github.com/go-ozzo/ozzo-validation"

	"github.com/dukerupert/cvforge/internal/provider/licensing"
)

type LicenseHandler struct {
	licenses *licensing.Client
	logger   *slog.Logger
}

func NewLicenseHandler(licenses *licensing.Client, logger *slog.Logger) *LicenseHandler {
	return &LicenseHandler{
		licenses: licenses,
		logger:   logger,
	}
}

type licenseVerifyRequest struct {
	Key string `json:"key"`
}

func (r licenseVerifyRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Key, validation.Required),
	)
}

type licenseVerifyResponse struct {
	Valid  bool   `json:"valid"`
	Reason string `json:"reason,omitempty"`
}

// Verify passes a license key through to the licensing service. The
// provider's rejection reason is deliberately surfaced; it is the one
// upstream detail callers are allowed to see.
func (h *LicenseHandler) Verify(w http.ResponseWriter, r *http.Request) {
	var req licenseVerifyRequest
	if err := decode(w, r, &req); err != nil {
		respondError(w, h.logger, err)
		return
	}

	result, err := h.licenses.Verify(r.Context(), req.Key)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, licenseVerifyResponse{
		Valid:  result.Valid,
		Reason: result.Reason,
	})
}
