package auth

import "context"

// Identity is the authenticated caller resolved from a verified bearer token.
type Identity struct {
	UserID   string
	TenantID string
	Role     string
	TokenID  string
}

type contextKey string

const ctxKey contextKey = "auth_identity"

// NewContext stores an Identity in ctx.
func NewContext(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, ctxKey, id)
}

// FromContext extracts the Identity, or nil if none is set.
func FromContext(ctx context.Context) *Identity {
	v, _ := ctx.Value(ctxKey).(*Identity)
	return v
}
