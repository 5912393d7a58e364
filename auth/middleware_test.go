package auth

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/marioser/dolibarr-mcp/observe"
)

// echoPrincipal writes the principal the middleware attached.
var echoPrincipal = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	_, _ = w.Write([]byte(PrincipalFromContext(r.Context())))
})

func serve(h http.Handler, method, path string, header http.Header) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	req.RemoteAddr = "192.0.2.10:5123"
	for k, v := range header {
		req.Header[k] = v
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	return body["code"]
}

func TestMiddleware_Responses(t *testing.T) {
	token := signToken(t, jwt.SigningMethodHS256, testSecret, jwt.MapClaims{
		"sub": "agent",
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	expired := signToken(t, jwt.SigningMethodHS256, testSecret, jwt.MapClaims{
		"sub": "agent",
		"exp": time.Now().Add(-time.Hour).Unix(),
	})
	h := New(Config{APIKeys: []string{"good"}, JWTSecret: string(testSecret)}, nil).Handler(echoPrincipal)

	tests := []struct {
		name       string
		method     string
		path       string
		header     http.Header
		wantStatus int
		wantCode   string
		wantBody   string
	}{
		{"missing credentials", http.MethodPost, "/mcp", nil, 401, CodeAuthRequired, ""},
		{"wrong key", http.MethodPost, "/mcp", http.Header{"Authorization": {"Bearer bad"}}, 401, CodeInvalidCredentials, ""},
		{"expired token", http.MethodPost, "/mcp", http.Header{"Authorization": {"Bearer " + expired}}, 401, CodeTokenExpired, ""},
		{"api key", http.MethodPost, "/mcp", http.Header{"Authorization": {"Bearer good"}}, 200, "", "key:" + HashAPIKey("good")[:keyIDLen]},
		{"x-api-key", http.MethodPost, "/mcp", http.Header{"X-Api-Key": {"good"}}, 200, "", "key:" + HashAPIKey("good")[:keyIDLen]},
		{"jwt", http.MethodPost, "/mcp", http.Header{"Authorization": {"Bearer " + token}}, 200, "", "agent"},
		{"health bypass", http.MethodGet, "/healthz", nil, 200, "", ""},
		{"metrics bypass", http.MethodGet, "/metrics", nil, 200, "", ""},
		{"preflight", http.MethodOptions, "/mcp", nil, 200, "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(h, tt.method, tt.path, tt.header)
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if tt.wantCode != "" {
				if got := errorCode(t, rec); got != tt.wantCode {
					t.Errorf("code = %q, want %q", got, tt.wantCode)
				}
				return
			}
			if got := rec.Body.String(); got != tt.wantBody {
				t.Errorf("body = %q, want %q", got, tt.wantBody)
			}
		})
	}
}

func TestMiddleware_MissingCredentialsHint(t *testing.T) {
	h := New(Config{APIKeys: []string{"good"}}, nil).Handler(echoPrincipal)
	rec := serve(h, http.MethodPost, "/mcp", nil)

	var body map[string]string
	_ = json.NewDecoder(rec.Body).Decode(&body)
	if body["error"] != "Missing API key" || body["hint"] == "" {
		t.Errorf("body = %v", body)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}
}

func TestMiddleware_Disabled(t *testing.T) {
	m := New(Config{}, nil)
	if m.Enabled() {
		t.Fatal("no keys and no secret should disable auth")
	}
	rec := serve(m.Handler(echoPrincipal), http.MethodPost, "/mcp", nil)
	if rec.Code != http.StatusOK || rec.Body.String() != "anonymous" {
		t.Errorf("status = %d body = %q", rec.Code, rec.Body.String())
	}
}

func TestMiddleware_BlocksRepeatedFailures(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	m := New(Config{
		APIKeys: []string{"good"},
		Guard:   GuardConfig{AlertAfter: 2, BlockAfter: 3},
	}, observe.NewZapLogger(zap.New(core)))
	h := m.Handler(echoPrincipal)

	bad := http.Header{"Authorization": {"Bearer bad"}}
	for range 3 {
		if rec := serve(h, http.MethodPost, "/mcp", bad); rec.Code != http.StatusUnauthorized {
			t.Fatalf("status = %d", rec.Code)
		}
	}

	rec := serve(h, http.MethodPost, "/mcp", http.Header{"Authorization": {"Bearer good"}})
	if rec.Code != http.StatusForbidden || errorCode(t, rec) != CodeBlocked {
		t.Errorf("blocked client: status = %d", rec.Code)
	}

	if n := logs.FilterMessage("repeated authentication failures").Len(); n != 1 {
		t.Errorf("alert entries = %d, want 1", n)
	}
	if n := logs.FilterMessage("authentication failed").Len(); n != 2 {
		t.Errorf("warn entries = %d, want 2", n)
	}

	s := m.Stats()
	if s.Rejected != 4 || s.BlockedClients != 1 || s.FailedAttempts != 3 || s.KeysConfigured != 1 {
		t.Errorf("Stats() = %+v", s)
	}
}

func TestMiddleware_RateLimitPerPrincipal(t *testing.T) {
	m := New(Config{APIKeys: []string{"k1", "k2"}, RateLimit: 1, RateBurst: 1}, nil)
	h := m.Handler(echoPrincipal)
	k1 := http.Header{"Authorization": {"Bearer k1"}}
	k2 := http.Header{"Authorization": {"Bearer k2"}}

	if rec := serve(h, http.MethodPost, "/mcp", k1); rec.Code != http.StatusOK {
		t.Fatalf("first k1 request: %d", rec.Code)
	}
	rec := serve(h, http.MethodPost, "/mcp", k1)
	if rec.Code != http.StatusTooManyRequests || errorCode(t, rec) != CodeRateLimited {
		t.Fatalf("second k1 request: %d", rec.Code)
	}
	if got := rec.Header().Get("Retry-After"); got != "1" {
		t.Errorf("Retry-After = %q, want 1", got)
	}
	if rec := serve(h, http.MethodPost, "/mcp", k2); rec.Code != http.StatusOK {
		t.Errorf("k2 has its own bucket: %d", rec.Code)
	}

	s := m.Stats()
	if s.RateLimited != 1 || s.Principals != 2 || s.Authenticated != 3 {
		t.Errorf("Stats() = %+v", s)
	}
}

func TestMiddleware_StatsHandler(t *testing.T) {
	m := New(Config{APIKeys: []string{"a", "b"}}, nil)
	rec := serve(m.StatsHandler(), http.MethodGet, "/stats", nil)

	var body map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body["auth_enabled"] != true || body["keys_configured"] != float64(2) {
		t.Errorf("body = %v", body)
	}
	if _, ok := body["blocked_clients"]; !ok {
		t.Errorf("guard stats missing: %v", body)
	}
}
