package health

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/marioser/dolibarr-mcp/cache"
)

// ServiceInfo is reported by the detailed endpoint.
type ServiceInfo struct {
	Service     string
	Version     string
	AuthEnabled bool
}

// Response is the JSON body of /health.
type Response struct {
	Status      string                   `json:"status"`
	Service     string                   `json:"service"`
	Version     string                   `json:"version"`
	AuthEnabled bool                     `json:"auth_enabled"`
	Timestamp   string                   `json:"timestamp"`
	Checks      map[string]CheckResponse `json:"checks,omitempty"`
}

// CheckResponse is the JSON response for a single health check.
type CheckResponse struct {
	Status   string         `json:"status"`
	Message  string         `json:"message,omitempty"`
	Duration string         `json:"duration,omitempty"`
	Details  map[string]any `json:"details,omitempty"`
	Error    string         `json:"error,omitempty"`
}

// NewCheckResponse renders r for JSON output.
func NewCheckResponse(r Result) CheckResponse {
	c := CheckResponse{
		Status:   r.Status.String(),
		Message:  r.Message,
		Duration: r.Duration.String(),
		Details:  r.Details,
	}
	if r.Error != nil {
		c.Error = r.Error.Error()
	}
	return c
}

// Handlers serves the health endpoints.
type Handlers struct {
	agg  *Aggregator
	info ServiceInfo
}

// NewHandlers creates the handlers for agg.
func NewHandlers(agg *Aggregator, info ServiceInfo) *Handlers {
	return &Handlers{agg: agg, info: info}
}

// Register mounts /healthz, /readyz, /health and /health/{check} on mux.
func (h *Handlers) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", h.Liveness)
	mux.HandleFunc("GET /readyz", h.Readiness)
	mux.HandleFunc("GET /health", h.Detailed)
	mux.HandleFunc("GET /health/{check}", h.Single)
}

// Liveness answers 200 while the process runs.
func (h *Handlers) Liveness(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// Readiness runs every check and answers 503 when the service is
// unhealthy. A degraded service is still ready.
func (h *Handlers) Readiness(w http.ResponseWriter, r *http.Request) {
	status := Overall(h.agg.CheckAll(r.Context()))

	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(status.HTTPCode())
	switch status {
	case StatusHealthy:
		_, _ = w.Write([]byte("OK"))
	case StatusDegraded:
		_, _ = w.Write([]byte("DEGRADED"))
	default:
		_, _ = w.Write([]byte("UNHEALTHY"))
	}
}

// Detailed runs every check and reports each one.
func (h *Handlers) Detailed(w http.ResponseWriter, r *http.Request) {
	results := h.agg.CheckAll(r.Context())
	status := Overall(results)

	resp := Response{
		Status:      status.String(),
		Service:     h.info.Service,
		Version:     h.info.Version,
		AuthEnabled: h.info.AuthEnabled,
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
		Checks:      make(map[string]CheckResponse, len(results)),
	}
	for name, result := range results {
		resp.Checks[name] = NewCheckResponse(result)
	}
	writeJSON(w, status.HTTPCode(), resp)
}

// Single runs the check named by the {check} path value.
func (h *Handlers) Single(w http.ResponseWriter, r *http.Request) {
	result, err := h.agg.Check(r.Context(), r.PathValue("check"))
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, result.Status.HTTPCode(), NewCheckResponse(result))
}

// CacheStatsHandler serves the adapter counters as JSON.
func CacheStatsHandler(adapter *cache.Adapter) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, adapter.Stats())
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
