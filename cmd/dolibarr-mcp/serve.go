package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/marioser/dolibarr-mcp/config"
	"github.com/marioser/dolibarr-mcp/health"
	"github.com/marioser/dolibarr-mcp/mcpserver"
	"github.com/marioser/dolibarr-mcp/observe"
)

const shutdownTimeout = 10 * time.Second

type serveOptions struct {
	transport string
	host      string
	port      int
}

func newServeCmd(root *rootOptions) *cobra.Command {
	opts := &serveOptions{}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the MCP server over stdio or HTTP",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := root.load(cmd)
			if err != nil {
				return err
			}
			if err := opts.apply(cmd, cfg); err != nil {
				return err
			}
			return serve(cmd.Context(), cfg)
		},
	}
	cmd.Flags().StringVar(&opts.transport, "transport", "", "stdio or http (default from MCP_TRANSPORT)")
	cmd.Flags().StringVar(&opts.host, "host", "", "HTTP listen host (default from MCP_HTTP_HOST)")
	cmd.Flags().IntVar(&opts.port, "port", 0, "HTTP listen port (default from MCP_HTTP_PORT)")
	return cmd
}

// apply overrides cfg with the flags that were set and revalidates.
func (o *serveOptions) apply(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()
	if flags.Changed("transport") {
		cfg.Server.Transport = o.transport
	}
	if flags.Changed("host") {
		cfg.Server.Host = o.host
	}
	if flags.Changed("port") {
		cfg.Server.Port = o.port
	}
	return cfg.Validate()
}

func serve(parent context.Context, cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if err := a.Close(sctx); err != nil {
			a.logger.Error(sctx, "shutdown failed", observe.Err(err))
		}
	}()

	switch cfg.Server.Transport {
	case config.TransportHTTP:
		if !a.auth.Enabled() {
			a.logger.Warn(ctx, "authentication disabled: set MCP_API_KEYS or MCP_JWT_SECRET to protect the HTTP endpoint")
		}
		handler := a.server.HTTPHandler(mcpserver.HTTPOptions{
			Auth: a.auth,
			Health: health.NewHandlers(a.health, health.ServiceInfo{
				Service:     serviceName,
				Version:     version,
				AuthEnabled: a.auth.Enabled(),
			}),
			Metrics: a.observer.MetricsHandler(),
			Cache:   a.cache,
		})
		return a.server.ServeHTTP(ctx, cfg.Server.Addr(), handler)
	case config.TransportStdio:
		return a.server.ServeStdio(ctx, os.Stdin, os.Stdout)
	default:
		return fmt.Errorf("unknown transport %q", cfg.Server.Transport)
	}
}
