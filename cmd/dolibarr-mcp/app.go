package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/marioser/dolibarr-mcp/auth"
	"github.com/marioser/dolibarr-mcp/cache"
	"github.com/marioser/dolibarr-mcp/catalog"
	"github.com/marioser/dolibarr-mcp/config"
	"github.com/marioser/dolibarr-mcp/dispatch"
	"github.com/marioser/dolibarr-mcp/health"
	"github.com/marioser/dolibarr-mcp/mcpserver"
	"github.com/marioser/dolibarr-mcp/observe"
	"github.com/marioser/dolibarr-mcp/upstream"
)

const cacheDialTimeout = 5 * time.Second

// app holds every wired component of a running server.
type app struct {
	cfg        *config.Config
	observer   observe.Observer
	logger     observe.Logger
	upstream   *upstream.Client
	cache      *cache.Adapter
	dispatcher *dispatch.Dispatcher
	auth       *auth.Middleware
	health     *health.Aggregator
	server     *mcpserver.Server
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	obs, err := observe.NewObserver(ctx, cfg.Observe(serviceName, version))
	if err != nil {
		return nil, fmt.Errorf("observer: %w", err)
	}
	mw, err := observe.MiddlewareFromObserver(obs)
	if err != nil {
		_ = obs.Shutdown(ctx)
		return nil, fmt.Errorf("middleware: %w", err)
	}
	a := &app{cfg: cfg, observer: obs, logger: obs.Logger()}

	upCfg := cfg.Upstream()
	upCfg.UserAgent = serviceName + "/" + version
	upCfg.Logger = a.logger
	upCfg.Metrics = mw.Metrics()
	if a.upstream, err = upstream.New(upCfg); err != nil {
		_ = a.Close(ctx)
		return nil, fmt.Errorf("upstream: %w", err)
	}

	a.cache = newCache(ctx, cfg.Cache, a.logger)
	err = observe.RegisterCacheGauges(obs.Meter(), func() observe.CacheSnapshot {
		s := a.cache.Stats()
		return observe.CacheSnapshot{Connected: s.Connected, Hits: s.Hits, Misses: s.Misses, Errors: s.Errors}
	})
	if err != nil {
		a.logger.Warn(ctx, "cache gauges unavailable", observe.Err(err))
	}

	a.dispatcher, err = dispatch.New(dispatch.Options{
		Catalog:      catalog.Default(),
		Upstream:     a.upstream,
		Cache:        a.cache,
		Middleware:   mw,
		SingleFlight: cfg.Cache.SingleFlight,
	})
	if err != nil {
		_ = a.Close(ctx)
		return nil, fmt.Errorf("dispatcher: %w", err)
	}

	a.health = health.NewAggregator()
	a.health.Register(health.NewCacheChecker(a.cache))
	a.health.Register(health.NewUpstreamChecker(a.upstream))

	a.auth = auth.New(cfg.AuthMiddleware(), a.logger)
	a.server = mcpserver.New(a.dispatcher, mcpserver.Options{
		Name:    serviceName,
		Version: version,
		Logger:  a.logger,
	})

	a.logger.Info(ctx, "server configured",
		observe.F("dolibarr_url", cfg.Dolibarr.URL),
		observe.F("cache_backend", cfg.Cache.Backend),
		observe.F("cache_enabled", a.cache.Enabled()),
		observe.F("single_flight", cfg.Cache.SingleFlight),
		observe.F("tools", catalog.Default().Len()),
	)
	return a, nil
}

// newCache builds the cache adapter. Cache problems never stop the
// server: a store that cannot be built yields a disabled adapter.
func newCache(ctx context.Context, cfg config.CacheConfig, logger observe.Logger) *cache.Adapter {
	if !cfg.Enabled {
		logger.Info(ctx, "cache disabled by configuration")
		return cache.Disabled()
	}

	codec, err := cache.CodecByName(cfg.Codec)
	if err != nil {
		logger.Warn(ctx, "cache disabled", observe.Err(err))
		return cache.Disabled()
	}

	var store cache.Store
	switch cfg.Backend {
	case config.BackendMemory:
		store = cache.NewMemoryStore()
	case config.BackendValkey:
		vs, err := cache.DialValkey(cfg.Addr(), cfg.Password, cfg.DB)
		if err != nil {
			logger.Warn(ctx, "cache disabled, valkey client failed",
				observe.F("addr", cfg.Addr()), observe.Err(err))
			return cache.Disabled()
		}
		store = vs
	default:
		store = cache.DialRedis(cache.RedisOptions{
			Addr:        cfg.Addr(),
			Password:    cfg.Password,
			DB:          cfg.DB,
			DialTimeout: cacheDialTimeout,
		})
	}

	return cache.NewAdapter(store, cache.AdapterOptions{
		Codec:          codec,
		Keyer:          cache.NewDefaultKeyer(cfg.Namespace),
		Policy:         cache.Policy{MaxTTL: cfg.MaxTTL},
		ConnectTimeout: cacheDialTimeout,
		OnError: func(op, key string, err error) {
			logger.Warn(context.Background(), "cache operation failed",
				observe.F("op", op), observe.F("key", key), observe.Err(err))
		},
	})
}

// Close releases the cache connection and flushes telemetry.
func (a *app) Close(ctx context.Context) error {
	var errs []error
	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			errs = append(errs, fmt.Errorf("cache: %w", err))
		}
	}
	if err := a.observer.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("observer: %w", err))
	}
	return errors.Join(errs...)
}
