package middleware

import (
	"net/http"

	"github.com/dukerupert/cvforge/internal/auth"
	"github.com/dukerupert/cvforge/internal/session"
)

// RequireAuth validates the session cookie and stores the customer email on
// the request context. Anonymous requests get a JSON 401.
func RequireAuth(sessions *session.Manager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			email := sessions.Read(r)
			if email == "" {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				w.Write([]byte(`{"error":"Authentication required."}`))
				return
			}
			next.ServeHTTP(w, r.WithContext(auth.WithEmail(r.Context(), email)))
		})
	}
}
