package auth

import "context"

type contextKey struct{}

// WithEmail stores the authenticated customer's email on the context.
func WithEmail(ctx context.Context, email string) context.Context {
	return context.WithValue(ctx, contextKey{}, email)
}

// Email returns the authenticated email, or "" when the request is anonymous.
func Email(ctx context.Context) string {
	email, _ := ctx.Value(contextKey{}).(string)
	return email
}
