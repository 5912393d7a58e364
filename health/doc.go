// Package health reports whether the server can do useful work.
//
// Two checkers cover the dependencies: CacheChecker pings the cache store
// and reports its counters, UpstreamChecker runs the Dolibarr status call.
// A cache that cannot be reached only degrades the service, since every
// dispatch falls through to the upstream; an unreachable upstream makes it
// unhealthy.
//
// The Aggregator runs checks in parallel under one deadline and Handlers
// exposes them:
//
//	agg := health.NewAggregator()
//	agg.Register(health.NewCacheChecker(adapter))
//	agg.Register(health.NewUpstreamChecker(client))
//
//	h := health.NewHandlers(agg, health.ServiceInfo{Service: "dolibarr-mcp", Version: version})
//	h.Register(mux) // /healthz, /readyz, /health, /health/{check}
package health
