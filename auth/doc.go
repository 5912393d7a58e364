// Package auth guards the HTTP transport.
//
// Callers present either an API key (as "Authorization: Bearer <key>" or in
// the X-API-Key header) or an HS256 JWT. API keys are kept only as SHA-256
// hashes. Middleware ties the authenticators to net/http: it skips health
// and metrics paths, blocks clients after repeated failures and applies an
// optional per-principal token bucket.
package auth
