package auth

import (
	"slices"
	"time"
)

// AuthMethod names the credential that produced an Identity.
type AuthMethod string

const (
	AuthMethodAPIKey    AuthMethod = "api_key"
	AuthMethodJWT       AuthMethod = "jwt"
	AuthMethodAnonymous AuthMethod = "anonymous"
)

const anonymousPrincipal = "anonymous"

// Identity is the caller attached to an authenticated MCP request.
type Identity struct {
	// Principal is "key:<id>" for API keys and the principal claim for
	// JWTs.
	Principal string
	// KeyID is the hash prefix of the API key, empty for JWTs.
	KeyID  string
	Roles  []string
	Method AuthMethod
	Claims map[string]any

	ExpiresAt time.Time
	IssuedAt  time.Time
}

// HasRole reports whether role was granted by the token.
func (id *Identity) HasRole(role string) bool {
	return slices.Contains(id.Roles, role)
}

// ExpiredAt reports whether the identity has expired at t. Identities
// without an expiry never expire.
func (id *Identity) ExpiredAt(t time.Time) bool {
	return !id.ExpiresAt.IsZero() && !t.Before(id.ExpiresAt)
}

// IsAnonymous reports whether no credential stands behind the identity.
func (id *Identity) IsAnonymous() bool {
	return id.Method == AuthMethodAnonymous || id.Principal == ""
}

// limitKey is the rate limiter bucket of the identity. Anonymous callers
// are told apart by client address.
func (id *Identity) limitKey(client string) string {
	if id.IsAnonymous() {
		return "addr:" + client
	}
	return id.Principal
}

// AnonymousIdentity is attached to requests when authentication is off.
func AnonymousIdentity() *Identity {
	return &Identity{Principal: anonymousPrincipal, Method: AuthMethodAnonymous}
}
