package mcpserver

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/mark3labs/mcp-go/server"

	"github.com/marioser/dolibarr-mcp/auth"
	"github.com/marioser/dolibarr-mcp/cache"
	"github.com/marioser/dolibarr-mcp/health"
	"github.com/marioser/dolibarr-mcp/observe"
)

// Paths served by the HTTP handler.
const (
	MCPPath        = "/mcp"
	StatsPath      = "/stats"
	CacheStatsPath = "/cache/stats"
	MetricsPath    = "/metrics"
)

const shutdownTimeout = 10 * time.Second

// HTTPOptions selects what the HTTP handler serves besides MCP.
// Nil fields are not mounted, except Auth: without it nothing is
// authenticated.
type HTTPOptions struct {
	Auth    *auth.Middleware
	Health  *health.Handlers
	Metrics http.Handler
	Cache   *cache.Adapter
}

// HTTPHandler returns the streamable HTTP transport at /mcp together with
// the supporting endpoints. /mcp and the statistics endpoints sit behind
// the auth middleware; health and metrics paths are bypassed by it.
func (s *Server) HTTPHandler(opts HTTPOptions) http.Handler {
	protect := func(h http.Handler) http.Handler { return h }
	if opts.Auth != nil {
		protect = opts.Auth.Handler
	}

	mux := http.NewServeMux()
	mux.Handle(MCPPath, protect(server.NewStreamableHTTPServer(s.mcp,
		server.WithEndpointPath(MCPPath),
	)))
	if opts.Health != nil {
		opts.Health.Register(mux)
	}
	if opts.Metrics != nil {
		mux.Handle("GET "+MetricsPath, opts.Metrics)
	}
	if opts.Auth != nil {
		mux.Handle("GET "+StatsPath, protect(opts.Auth.StatsHandler()))
	}
	if opts.Cache != nil {
		mux.Handle("GET "+CacheStatsPath, protect(health.CacheStatsHandler(opts.Cache)))
	}
	return mux
}

// ServeHTTP listens on addr until ctx ends, then shuts down gracefully.
func (s *Server) ServeHTTP(ctx context.Context, addr string, handler http.Handler) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.logger.Info(ctx, "serving MCP over http",
			observe.F("addr", addr), observe.F("endpoint", MCPPath), observe.F("tools", len(s.tools)))
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
