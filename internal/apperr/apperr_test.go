package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestStatusMapping(t *testing.T) {
	tests := []struct {
		name string
		err  *Error
		want int
	}{
		{"validation", Validation("email", "Email is required."), http.StatusBadRequest},
		{"auth", Auth("nope"), http.StatusUnauthorized},
		{"conflict", Conflict("exists"), http.StatusConflict},
		{"upstream", Upstream(errors.New("db down")), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Status(); got != tt.want {
				t.Errorf("status = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestUpstreamHidesDetail(t *testing.T) {
	inner := errors.New("pq: connection refused at 10.0.0.5")
	err := Upstream(inner)
	if err.Error() == inner.Error() {
		t.Error("upstream error must not expose internal detail")
	}
	if !errors.Is(err, inner) {
		t.Error("wrapped error should be reachable via errors.Is")
	}
}

func TestFrom(t *testing.T) {
	if got := From(ErrTokenUsed); got != ErrTokenUsed {
		t.Errorf("From should pass through *Error, got %v", got)
	}

	wrapped := fmt.Errorf("consume: %w", ErrTokenExpired)
	if got := From(wrapped); got != ErrTokenExpired {
		t.Errorf("From should unwrap to the sentinel, got %v", got)
	}

	plain := From(errors.New("boom"))
	if plain.Kind != KindUpstream {
		t.Errorf("unknown errors map to upstream, got kind %d", plain.Kind)
	}
}

func TestValidationField(t *testing.T) {
	err := Validation("token", "Token is required.")
	if err.Field != "token" {
		t.Errorf("field = %q, want token", err.Field)
	}
}
