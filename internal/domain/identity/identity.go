package identity

import "context"

// Identity is the per-request caller context. It is derived once from
// the request credential and passed by value into every handler and
// filter that branches on caller capability.
type Identity struct {
	// Authenticated is true when the request carried a valid credential.
	Authenticated bool
	// Elevated is true when the credential grants admin capability.
	Elevated bool
}

// Anonymous is the identity of a request without a credential.
var Anonymous = Identity{}

type contextKey struct{}

// WithIdentity returns a context carrying the given identity.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, contextKey{}, id)
}

// FromContext returns the identity stored in ctx, or Anonymous when
// none was set.
func FromContext(ctx context.Context) Identity {
	if id, ok := ctx.Value(contextKey{}).(Identity); ok {
		return id
	}
	return Anonymous
}
