package auth

import (
	"context"
	"net/http"
	"strings"
)

// Authenticator validates credentials and returns an identity.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Context: methods should honor cancellation/deadlines.
// - Errors: Authenticate returns (nil, error) for internal errors;
//   returns (AuthResult, nil) for auth failures (check result.Authenticated).
type Authenticator interface {
	// Name returns a unique identifier for this authenticator.
	Name() string

	// Supports returns true if this authenticator can handle the request.
	Supports(ctx context.Context, req *AuthRequest) bool

	// Authenticate validates credentials and returns a result.
	Authenticate(ctx context.Context, req *AuthRequest) (*AuthResult, error)
}

// AuthRequest contains the information needed for authentication.
type AuthRequest struct {
	// Headers contains HTTP headers (Authorization, X-API-Key, etc.)
	Headers http.Header

	// RemoteAddr is the client address, used for failure tracking.
	RemoteAddr string
}

// GetHeader returns the first value for a header, or empty string.
func (r *AuthRequest) GetHeader(key string) string {
	if r.Headers == nil {
		return ""
	}
	return r.Headers.Get(key)
}

// BearerToken returns the token of an "Authorization: Bearer <token>"
// header. The scheme is matched case-insensitively.
func (r *AuthRequest) BearerToken() (string, bool) {
	scheme, token, ok := strings.Cut(r.GetHeader("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// looksLikeJWT reports whether token has the three dot-separated segments
// of a compact JWS.
func looksLikeJWT(token string) bool {
	return strings.Count(token, ".") == 2
}

// AuthResult is the result of an authentication attempt.
type AuthResult struct {
	// Authenticated is true if authentication succeeded.
	Authenticated bool

	// Identity is the authenticated identity (only if Authenticated=true).
	Identity *Identity

	// Error is the authentication error (only if Authenticated=false).
	Error error

	// Method indicates which authenticator method was used.
	Method string
}

// AuthSuccess creates a successful authentication result.
func AuthSuccess(identity *Identity) *AuthResult {
	return &AuthResult{
		Authenticated: true,
		Identity:      identity,
		Method:        string(identity.Method),
	}
}

// AuthFailure creates a failed authentication result.
func AuthFailure(err error, method string) *AuthResult {
	return &AuthResult{
		Authenticated: false,
		Error:         err,
		Method:        method,
	}
}
