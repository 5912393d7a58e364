package auth

import "context"

type identityCtxKey struct{}

// WithIdentity attaches id to ctx. The middleware does this for every
// request it lets through.
func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityCtxKey{}, id)
}

// IdentityFromContext returns the identity attached by WithIdentity, or nil.
func IdentityFromContext(ctx context.Context) *Identity {
	id, _ := ctx.Value(identityCtxKey{}).(*Identity)
	return id
}

// PrincipalFromContext returns the caller principal, or "" outside an
// authenticated request (stdio sessions, tests).
func PrincipalFromContext(ctx context.Context) string {
	if id := IdentityFromContext(ctx); id != nil {
		return id.Principal
	}
	return ""
}
