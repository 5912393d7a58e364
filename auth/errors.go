package auth

import "errors"

// Sentinel errors for authentication.
var (
	ErrMissingCredentials = errors.New("auth: missing credentials")
	ErrInvalidCredentials = errors.New("auth: invalid credentials")
	ErrTokenExpired       = errors.New("auth: token expired")
	ErrTokenMalformed     = errors.New("auth: token malformed")

	// Middleware errors
	ErrBlocked     = errors.New("auth: client blocked after repeated failures")
	ErrRateLimited = errors.New("auth: rate limit exceeded")
	ErrNoKeys      = errors.New("auth: no api keys configured")
)
