package health

import (
	"context"
	"errors"

	"github.com/marioser/dolibarr-mcp/cache"
	"github.com/marioser/dolibarr-mcp/failure"
)

// CacheChecker pings the cache store and reports the adapter counters.
type CacheChecker struct {
	adapter *cache.Adapter
}

// NewCacheChecker creates a checker for adapter.
func NewCacheChecker(adapter *cache.Adapter) *CacheChecker {
	return &CacheChecker{adapter: adapter}
}

// Name returns "cache".
func (c *CacheChecker) Name() string { return "cache" }

// Check is healthy when the store answers or caching is off, and degraded
// when the store cannot be reached.
func (c *CacheChecker) Check(ctx context.Context) Result {
	stats := c.adapter.Stats()
	details := map[string]any{
		"enabled":        c.adapter.Enabled(),
		"connected":      stats.Connected,
		"hits":           stats.Hits,
		"misses":         stats.Misses,
		"errors":         stats.Errors,
		"hit_rate":       stats.HitRate,
		"total_requests": stats.TotalRequests,
	}

	err := c.adapter.Ping(ctx)
	switch {
	case errors.Is(err, cache.ErrDisabled):
		return Healthy("cache disabled").WithDetails(details)
	case err != nil:
		return Degraded("cache unreachable, serving from upstream", err).WithDetails(details)
	case !stats.Connected:
		// The store answers now but the adapter gave up on it at startup.
		return Degraded("cache reachable but not in use", nil).WithDetails(details)
	}
	return Healthy("cache connected").WithDetails(details)
}

// StatusProber fetches the upstream status document.
type StatusProber interface {
	Status(ctx context.Context) (any, error)
}

// UpstreamChecker runs the Dolibarr status call.
type UpstreamChecker struct {
	prober StatusProber
}

// NewUpstreamChecker creates a checker around prober.
func NewUpstreamChecker(prober StatusProber) *UpstreamChecker {
	return &UpstreamChecker{prober: prober}
}

// Name returns "dolibarr".
func (u *UpstreamChecker) Name() string { return "dolibarr" }

// Check is unhealthy when the status call and every fallback probe fail.
func (u *UpstreamChecker) Check(ctx context.Context) Result {
	doc, err := u.prober.Status(ctx)
	if err != nil {
		details := map[string]any{}
		if f, ok := failure.As(err); ok {
			details["code"] = f.Code
			details["retriable"] = f.Retriable
		}
		msg := "dolibarr unreachable"
		if failure.IsKind(err, failure.Auth) {
			msg = "dolibarr rejected the api key"
		}
		return Unhealthy(msg, err).WithDetails(details)
	}

	details := map[string]any{}
	if v := dolibarrVersion(doc); v != "" {
		details["dolibarr_version"] = v
	}
	if m, ok := doc.(map[string]any); ok && m["probe"] != nil {
		details["probe"] = m["probe"]
	}
	return Healthy("dolibarr reachable").WithDetails(details)
}

// dolibarrVersion reads the version from a status document, either at the
// top level or under "success" as the status endpoint returns it.
func dolibarrVersion(doc any) string {
	m, ok := doc.(map[string]any)
	if !ok {
		return ""
	}
	if v, ok := m["dolibarr_version"].(string); ok {
		return v
	}
	if inner, ok := m["success"].(map[string]any); ok {
		v, _ := inner["dolibarr_version"].(string)
		return v
	}
	return ""
}
