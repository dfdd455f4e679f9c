package api

import (
	"context"
	"time"

	"github.com/linesmerrill/custody-ledger-api/custody"
)

// QueryTimeout is the default timeout for database queries
const QueryTimeout = 10 * time.Second

// WithQueryTimeout creates a context with query timeout
func WithQueryTimeout(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return context.WithTimeout(parent, QueryTimeout)
}

// Identity is who a request acts as
type Identity struct {
	Role  custody.Role
	Actor string
}

type identityKey struct{}

// WithIdentity stores id in ctx
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFrom returns the identity stored by the auth middleware. Requests
// that never passed through it are PUBLIC.
func IdentityFrom(ctx context.Context) Identity {
	if id, ok := ctx.Value(identityKey{}).(Identity); ok {
		return id
	}
	return Identity{Role: custody.RolePublic, Actor: string(custody.RolePublic)}
}
