package auth

import (
	"encoding/json"
	"errors"
	"math"
	"net"
	"net/http"
	"strconv"
	"sync/atomic"

	"github.com/marioser/dolibarr-mcp/observe"
	"github.com/marioser/dolibarr-mcp/resilience"
)

// Error codes written by Middleware.
const (
	CodeAuthRequired       = "AUTH_REQUIRED"
	CodeInvalidCredentials = "INVALID_CREDENTIALS"
	CodeTokenExpired       = "TOKEN_EXPIRED"
	CodeBlocked            = "IP_BLOCKED"
	CodeRateLimited        = "RATE_LIMITED"
	CodeAuthError          = "AUTH_ERROR"
)

// DefaultBypassPaths are served without credentials.
var DefaultBypassPaths = []string{"/health", "/healthz", "/ready", "/readyz", "/metrics"}

// Config builds a Middleware with New.
type Config struct {
	// APIKeys are the accepted keys in clear text.
	APIKeys []string

	// JWTSecret enables HS256 bearer tokens when set.
	JWTSecret string
	JWT       JWTConfig

	// RateLimit is the per-principal request rate per second. Zero
	// disables rate limiting.
	RateLimit float64
	RateBurst int

	Guard GuardConfig

	// BypassPaths defaults to DefaultBypassPaths.
	BypassPaths []string
}

// Stats is a snapshot of the middleware counters.
type Stats struct {
	Enabled        bool  `json:"auth_enabled"`
	KeysConfigured int   `json:"keys_configured"`
	JWTEnabled     bool  `json:"jwt_enabled"`
	Authenticated  int64 `json:"authenticated_requests"`
	Rejected       int64 `json:"rejected_requests"`
	RateLimited    int64 `json:"rate_limited_requests"`
	Principals     int   `json:"rate_limited_principals"`
	GuardStats
}

// Middleware authenticates HTTP requests before they reach the MCP
// handler.
//
// Contract:
//   - Concurrency: safe for concurrent use.
//   - With no API keys and no JWT secret, authentication is off and every
//     request carries AnonymousIdentity. Rate limiting still applies, keyed
//     by client address.
type Middleware struct {
	auth    Authenticator
	keys    *Keyring
	jwt     bool
	guard   *FailureGuard
	limiter *resilience.KeyedRateLimiter
	bypass  map[string]bool
	logger  observe.Logger

	authenticated atomic.Int64
	rejected      atomic.Int64
	rateLimited   atomic.Int64
}

// New creates a Middleware from cfg. A nil logger discards output.
func New(cfg Config, logger observe.Logger) *Middleware {
	if logger == nil {
		logger = observe.NopLogger()
	}
	m := &Middleware{
		keys:   NewKeyring(cfg.APIKeys...),
		guard:  NewFailureGuard(cfg.Guard),
		bypass: make(map[string]bool),
		logger: logger,
	}

	auths := []Authenticator{NewAPIKeyAuthenticator(m.keys)}
	if cfg.JWTSecret != "" {
		m.jwt = true
		auths = append(auths, NewJWTAuthenticator(cfg.JWT, NewStaticKeyProvider([]byte(cfg.JWTSecret))))
	}
	if m.Enabled() {
		m.auth = NewCompositeAuthenticator(auths...)
	}

	if cfg.RateLimit > 0 {
		m.limiter = resilience.NewKeyedRateLimiter(resilience.RateLimiterConfig{
			Rate:  cfg.RateLimit,
			Burst: cfg.RateBurst,
		}, 0)
	}

	paths := cfg.BypassPaths
	if paths == nil {
		paths = DefaultBypassPaths
	}
	for _, p := range paths {
		m.bypass[p] = true
	}
	return m
}

// Enabled reports whether credentials are required.
func (m *Middleware) Enabled() bool {
	return m.keys.Len() > 0 || m.jwt
}

// Handler wraps next.
func (m *Middleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions || m.bypass[r.URL.Path] {
			next.ServeHTTP(w, r)
			return
		}

		ctx := r.Context()
		client := clientAddr(r)

		identity := AnonymousIdentity()
		if m.auth != nil {
			if m.guard.Blocked(client) {
				m.rejected.Add(1)
				writeError(w, http.StatusForbidden, CodeBlocked, "IP blocked due to too many failed attempts", "")
				return
			}

			req := &AuthRequest{Headers: r.Header, RemoteAddr: client}
			if !m.auth.Supports(ctx, req) {
				m.rejected.Add(1)
				writeError(w, http.StatusUnauthorized, CodeAuthRequired, "Missing API key",
					"Include 'Authorization: Bearer <your-api-key>' header")
				return
			}

			result, err := m.auth.Authenticate(ctx, req)
			if err != nil {
				m.logger.Error(ctx, "authentication error", observe.F("client", client), observe.Err(err))
				writeError(w, http.StatusInternalServerError, CodeAuthError, "Authentication unavailable", "")
				return
			}
			if !result.Authenticated {
				m.rejected.Add(1)
				m.fail(w, r, client, result)
				return
			}
			identity = result.Identity
			m.authenticated.Add(1)
		}

		if m.limiter != nil {
			if ok, retry := m.limiter.Allow(identity.limitKey(client)); !ok {
				m.rateLimited.Add(1)
				w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(retry.Seconds()))))
				writeError(w, http.StatusTooManyRequests, CodeRateLimited, "Rate limit exceeded", "")
				return
			}
		}

		next.ServeHTTP(w, r.WithContext(WithIdentity(ctx, identity)))
	})
}

func (m *Middleware) fail(w http.ResponseWriter, r *http.Request, client string, result *AuthResult) {
	ctx := r.Context()
	count := m.guard.RecordFailure(client)
	fields := []observe.Field{
		observe.F("client", client),
		observe.F("method", result.Method),
		observe.F("failures", count),
		observe.Err(result.Error),
	}
	if m.guard.Suspicious(count) {
		m.logger.Error(ctx, "repeated authentication failures", fields...)
	} else {
		m.logger.Warn(ctx, "authentication failed", fields...)
	}

	if errors.Is(result.Error, ErrTokenExpired) {
		writeError(w, http.StatusUnauthorized, CodeTokenExpired, "Token expired", "")
		return
	}
	writeError(w, http.StatusUnauthorized, CodeInvalidCredentials, "Invalid API key", "")
}

// Stats returns the current counters.
func (m *Middleware) Stats() Stats {
	s := Stats{
		Enabled:        m.Enabled(),
		KeysConfigured: m.keys.Len(),
		JWTEnabled:     m.jwt,
		Authenticated:  m.authenticated.Load(),
		Rejected:       m.rejected.Load(),
		RateLimited:    m.rateLimited.Load(),
		GuardStats:     m.guard.Stats(),
	}
	if m.limiter != nil {
		s.Principals = m.limiter.Len()
	}
	return s
}

// StatsHandler serves Stats as JSON.
func (m *Middleware) StatsHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(m.Stats())
	})
}

func writeError(w http.ResponseWriter, status int, code, message, hint string) {
	body := map[string]string{"error": message, "code": code}
	if hint != "" {
		body["hint"] = hint
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func clientAddr(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
