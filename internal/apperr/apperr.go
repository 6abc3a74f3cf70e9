// Package apperr defines the error taxonomy every HTTP handler converts
// internal failures into. No other error type crosses the HTTP boundary.
package apperr

import (
	"errors"
	"net/http"
)

// Kind classifies an error for HTTP status mapping.
type Kind int

const (
	// KindValidation is malformed or missing input.
	KindValidation Kind = iota
	// KindAuth is bad credentials or an invalid, expired, or used token.
	KindAuth
	// KindConflict is a duplicate account or an already-claimed token.
	KindConflict
	// KindUpstream is a store, email, or provider failure. The client sees
	// a generic message; detail goes to the log only.
	KindUpstream
)

// Error is a user-visible failure with a single-sentence message. Message
// must never contain password hashes, signing secrets, or raw tokens.
type Error struct {
	Kind    Kind
	Message string
	// Field names the offending input for validation errors.
	Field string
	err   error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.err
}

// Status maps the error kind to an HTTP status code.
func (e *Error) Status() int {
	switch e.Kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindAuth:
		return http.StatusUnauthorized
	case KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// Validation returns a field-tagged validation error.
func Validation(field, message string) *Error {
	return &Error{Kind: KindValidation, Message: message, Field: field}
}

// Auth returns an authentication/authorization error.
func Auth(message string) *Error {
	return &Error{Kind: KindAuth, Message: message}
}

// Conflict returns a conflict error.
func Conflict(message string) *Error {
	return &Error{Kind: KindConflict, Message: message}
}

// Upstream wraps an internal failure. The wrapped error is for logs; the
// client always sees the generic message.
func Upstream(err error) *Error {
	return &Error{Kind: KindUpstream, Message: "Something went wrong. Please try again.", err: err}
}

// From converts any error into an *Error, wrapping unknown errors as
// upstream failures.
func From(err error) *Error {
	var ae *Error
	if errors.As(err, &ae) {
		return ae
	}
	return Upstream(err)
}

// Sentinel errors shared across the account and magic-link services.
var (
	ErrInvalidToken       = Auth("This link is not valid.")
	ErrTokenExpired       = Auth("This link has expired. Please request a new one.")
	ErrTokenUsed          = Conflict("This link has already been used.")
	ErrInvalidCredentials = Auth("Incorrect email or password.")
	ErrAccessExpired      = Auth("Your access has expired.")
	ErrAccountExists      = Conflict("An account already exists for this email.")
	ErrWeakPassword       = Validation("password", "Password must be at least 8 characters.")
	ErrPasswordMismatch   = Validation("confirmPassword", "Passwords do not match.")
)
