package upstream

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/marioser/dolibarr-mcp/catalog"
	"github.com/marioser/dolibarr-mcp/failure"
)

// pathCounter counts requests per URL path.
type pathCounter struct {
	mu     sync.Mutex
	counts map[string]int
}

func (p *pathCounter) hit(path string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.counts == nil {
		p.counts = map[string]int{}
	}
	p.counts[path]++
}

func (p *pathCounter) get(path string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.counts[path]
}

func TestStatus_UsesAPIRoot(t *testing.T) {
	srv, _ := countingServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/status" {
			t.Errorf("path = %q, want /api/status", r.URL.Path)
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": map[string]any{"code": 200, "dolibarr_version": "20.0.1"}})
	})

	res, err := newTestClient(t, srv, nil).Status(context.Background())
	if err != nil {
		t.Fatalf("Status() = %v", err)
	}
	doc, ok := res.(map[string]any)
	if !ok || doc["success"] == nil {
		t.Errorf("result = %#v", res)
	}
}

func TestStatus_FallbackProbes(t *testing.T) {
	tests := []struct {
		name        string
		modules     int
		users       int
		wantProbe   string
		wantVersion string
	}{
		{"modules answer", http.StatusOK, http.StatusOK, "setup/modules", "Connected"},
		{"users answer", http.StatusForbidden, http.StatusOK, "users", "API Working"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var paths pathCounter
			srv, _ := countingServer(t, func(w http.ResponseWriter, r *http.Request) {
				paths.hit(r.URL.Path)
				switch r.URL.Path {
				case "/api/index.php/setup/modules":
					writeJSON(w, tt.modules, []string{"societe", "facture"})
				case "/api/index.php/users":
					if r.URL.Query().Get("limit") != "1" {
						t.Errorf("users probe query = %q", r.URL.RawQuery)
					}
					writeJSON(w, tt.users, []any{})
				default:
					w.WriteHeader(http.StatusServiceUnavailable)
				}
			})

			res, err := newTestClient(t, srv, nil).Status(context.Background())
			if err != nil {
				t.Fatalf("Status() = %v", err)
			}
			doc := res.(map[string]any)
			if doc["probe"] != tt.wantProbe || doc["dolibarr_version"] != tt.wantVersion {
				t.Errorf("doc = %v", doc)
			}
			if doc["success"] != 1 || doc["api_version"] != "1.0" {
				t.Errorf("doc = %v", doc)
			}
			// The status endpoint gets the retry budget, probes get one attempt.
			if n := paths.get("/api/status"); n != 3 {
				t.Errorf("status attempts = %d, want 3", n)
			}
			if n := paths.get("/api/index.php/setup/modules"); n != 1 {
				t.Errorf("modules attempts = %d, want 1", n)
			}
		})
	}
}

func TestStatus_EmptyModulesListIsNotAnAnswer(t *testing.T) {
	srv, _ := countingServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/index.php/setup/modules":
			writeJSON(w, http.StatusOK, []any{})
		case "/api/index.php/users":
			writeJSON(w, http.StatusOK, []any{map[string]any{"id": "1"}})
		default:
			w.WriteHeader(http.StatusInternalServerError)
		}
	})

	res, err := newTestClient(t, srv, nil).Status(context.Background())
	if err != nil {
		t.Fatalf("Status() = %v", err)
	}
	if doc := res.(map[string]any); doc["probe"] != "users" {
		t.Errorf("probe = %v, want users", doc["probe"])
	}
}

func TestStatus_AllProbesFail(t *testing.T) {
	srv, _ := countingServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := newTestClient(t, srv, nil).Status(context.Background())
	f := mustFailure(t, err)
	if f.Kind != failure.Connection || !f.Retriable || f.Endpoint != StatusEndpoint {
		t.Errorf("failure = %+v", f)
	}
	if f.Message != "Cannot connect to Dolibarr API. Please check your configuration." {
		t.Errorf("message = %q", f.Message)
	}
	if f.CorrelationID == "" || f.Details["status_error"] == nil {
		t.Errorf("failure = %+v", f)
	}
}

func TestStatus_AuthFailureIsKept(t *testing.T) {
	srv, calls := countingServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"error": map[string]any{"code": 401, "message": "Unauthorized"}})
	})

	_, err := newTestClient(t, srv, nil).Status(context.Background())
	f := mustFailure(t, err)
	if f.Kind != failure.Auth {
		t.Errorf("kind = %v, want %v", f.Kind, failure.Auth)
	}
	// one status attempt plus one per probe
	if n := calls.Load(); n != 3 {
		t.Errorf("requests = %d, want 3", n)
	}
}

func TestStatus_ProbesBypassCircuitBreaker(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		probes    int
		wantErr   bool
		wantProbe string
	}{
		// the status call trips the breaker, the modules probe still runs
		{"probe answers with breaker open", http.StatusBadGateway, http.StatusOK, false, "setup/modules"},
		// failing probes leave the breaker closed for later calls
		{"probe failures do not count", http.StatusNotFound, http.StatusBadGateway, true, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var paths pathCounter
			srv, _ := countingServer(t, func(w http.ResponseWriter, r *http.Request) {
				paths.hit(r.URL.Path)
				switch r.URL.Path {
				case "/api/status":
					w.WriteHeader(tt.status)
				case "/api/index.php/setup/modules", "/api/index.php/users":
					writeJSON(w, tt.probes, []string{"societe"})
				default:
					writeJSON(w, http.StatusOK, []any{})
				}
			})
			c := newTestClient(t, srv, func(cfg *Config) {
				cfg.MaxRetries = 0
				cfg.CircuitMaxFailures = 1
				cfg.CircuitReset = time.Minute
			})
			ctx := context.Background()

			res, err := c.Status(ctx)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Status() = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantProbe != "" {
				if doc := res.(map[string]any); doc["probe"] != tt.wantProbe {
					t.Errorf("probe = %v, want %s", doc["probe"], tt.wantProbe)
				}
				return
			}
			if n := paths.get("/api/index.php/users"); n != 1 {
				t.Errorf("users attempts = %d, want 1", n)
			}
			if _, err := c.Execute(ctx, listCustomers, nil); err != nil {
				t.Errorf("Execute() after failed probes = %v, want a closed breaker", err)
			}
		})
	}
}

func TestExecute_StatusTarget(t *testing.T) {
	srv, _ := countingServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"success": map[string]any{"code": 200}})
	})
	d, ok := catalog.Default().Describe("get_status")
	if !ok {
		t.Fatal("get_status is not in the default catalog")
	}

	if _, err := newTestClient(t, srv, nil).Execute(context.Background(), d.Target, nil); err != nil {
		t.Fatalf("Execute() = %v", err)
	}
}
