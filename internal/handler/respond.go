// Package handler holds the HTTP boundary: request decoding, payload
// validation, and conversion of internal failures into the JSON error
// taxonomy. Nothing below this package writes HTTP responses.
package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	validation "github.com/go-ozzo/ozzo-validation"

	"github.com/dukerupert/cvforge/internal/apperr"
)

const maxBodyBytes = 64 << 10

type errorBody struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// respondError converts any failure into the four-kind taxonomy. Upstream
// detail is logged here and never reaches the body.
func respondError(w http.ResponseWriter, logger *slog.Logger, err error) {
	ae := apperr.From(err)
	if ae.Kind == apperr.KindUpstream {
		logger.Error("request failed", "error", err)
	}
	respondJSON(w, ae.Status(), errorBody{Error: ae.Message, Field: ae.Field})
}

// validator is implemented by every request payload.
type validator interface {
	Validate() error
}

// decode reads, size-limits, and validates a JSON request payload. All
// failures come back as validation errors.
func decode(w http.ResponseWriter, r *http.Request, dst validator) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return apperr.Validation("", "Request body must be valid JSON.")
	}
	if err := dst.Validate(); err != nil {
		if ve, ok := err.(validation.Errors); ok {
			for field, fieldErr := range ve {
				return apperr.Validation(field, fieldErr.Error()+".")
			}
		}
		return apperr.Validation("", err.Error())
	}
	return nil
}
