// Package tenant establishes the request-scoped TenantContext from trusted
// upstream-gateway headers. The tenant model is a pure header-derived value,
// threaded explicitly through the request context: no per-tenant schema, no
// dynamically-scoped global.
package tenant

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// Context holds the resolved tenant + caller identity for the current request.
type Context struct {
	TenantID  uuid.UUID
	UserID    string
	Role      string
	RequestID string
}

type contextKey string

const ctxKey contextKey = "tenant_context"

// NewContext stores a Context in ctx.
func NewContext(ctx context.Context, tc *Context) context.Context {
	return context.WithValue(ctx, ctxKey, tc)
}

// FromContext extracts the Context, or nil if none is set.
func FromContext(ctx context.Context) *Context {
	v, _ := ctx.Value(ctxKey).(*Context)
	return v
}

// MustFromContext extracts the Context and panics if none is set. Retrieval
// outside a live request must fail loudly rather than silently proceed with
// no tenant scoping.
func MustFromContext(ctx context.Context) *Context {
	tc := FromContext(ctx)
	if tc == nil {
		panic(fmt.Errorf("tenant: no tenant context bound to this context"))
	}
	return tc
}
