package dispatch

import (
	"context"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/marioser/dolibarr-mcp/cache"
	"github.com/marioser/dolibarr-mcp/catalog"
	"github.com/marioser/dolibarr-mcp/failure"
	"github.com/marioser/dolibarr-mcp/observe"
)

const (
	// DefaultInvalidationTimeout bounds the pattern deletes after a mutation.
	DefaultInvalidationTimeout = 5 * time.Second

	maxParallelInvalidations = 4
)

// Upstream executes a catalog call target.
type Upstream interface {
	Execute(ctx context.Context, target catalog.CallTarget, args map[string]any) (any, error)
}

// Options configures a Dispatcher.
type Options struct {
	Catalog  *catalog.Catalog
	Upstream Upstream

	// Cache defaults to cache.Disabled().
	Cache *cache.Adapter
	// Middleware defaults to a no-op middleware.
	Middleware *observe.Middleware

	// SingleFlight joins concurrent misses on the same key into one
	// upstream call.
	SingleFlight bool
	// InvalidationTimeout bounds invalidation after a successful mutation.
	InvalidationTimeout time.Duration
}

// Result is a successful dispatch.
type Result struct {
	Data      any
	FromCache bool
	Operation string
	Elapsed   time.Duration
}

// Dispatcher routes an operation name and arguments through the catalog,
// the cache and the upstream client.
//
// Contract:
//   - Concurrency: safe for concurrent use.
//   - Errors: every returned error is a *failure.Failure. Cache errors are
//     never returned.
//   - Context: a call whose context has ended by the time the upstream
//     answers does not write a cache entry.
type Dispatcher struct {
	catalog    *catalog.Catalog
	upstream   Upstream
	cache      *cache.Adapter
	middleware *observe.Middleware
	logger     observe.Logger
	metrics    observe.Metrics

	singleFlight        bool
	flights             singleflight.Group
	invalidationTimeout time.Duration

	run observe.DispatchFunc
}

// New creates a Dispatcher.
func New(opts Options) (*Dispatcher, error) {
	if opts.Catalog == nil {
		return nil, ErrNilCatalog
	}
	if opts.Upstream == nil {
		return nil, ErrNilUpstream
	}
	if opts.Cache == nil {
		opts.Cache = cache.Disabled()
	}
	if opts.Middleware == nil {
		opts.Middleware = observe.NewMiddleware(nil, nil, nil)
	}
	if opts.InvalidationTimeout <= 0 {
		opts.InvalidationTimeout = DefaultInvalidationTimeout
	}

	d := &Dispatcher{
		catalog:             opts.Catalog,
		upstream:            opts.Upstream,
		cache:               opts.Cache,
		middleware:          opts.Middleware,
		logger:              opts.Middleware.Logger(),
		metrics:             opts.Middleware.Metrics(),
		singleFlight:        opts.SingleFlight,
		invalidationTimeout: opts.InvalidationTimeout,
	}
	d.run = opts.Middleware.Wrap(d.dispatch)
	return d, nil
}

// Catalog returns the operation table.
func (d *Dispatcher) Catalog() *catalog.Catalog { return d.catalog }

// Cache returns the cache adapter.
func (d *Dispatcher) Cache() *cache.Adapter { return d.cache }

// Dispatch runs one operation: lookup, cache check, upstream call, shaping,
// cache store and invalidation. There is no retry here beyond what the
// upstream client does.
func (d *Dispatcher) Dispatch(ctx context.Context, name string, args map[string]any) (Result, error) {
	start := time.Now()
	data, fromCache, err := d.run(ctx, d.meta(name), args)
	res := Result{Operation: name, Elapsed: time.Since(start)}
	if err != nil {
		return res, err
	}
	res.Data = data
	res.FromCache = fromCache
	return res, nil
}

func (d *Dispatcher) meta(name string) observe.OperationMeta {
	desc, ok := d.catalog.Describe(name)
	if !ok {
		return observe.OperationMeta{Name: name}
	}
	entity, _, _ := strings.Cut(desc.Target.Path, "/")
	return observe.OperationMeta{
		Name:     name,
		Entity:   entity,
		Mutating: desc.Mutating(),
		CacheTTL: d.catalog.TTLFor(name),
		Endpoint: desc.Target.Path,
	}
}

func (d *Dispatcher) dispatch(ctx context.Context, meta observe.OperationMeta, args map[string]any) (any, bool, error) {
	desc, ok := d.catalog.Describe(meta.Name)
	if !ok {
		return nil, false, UnknownOperation(meta.Name)
	}

	if desc.Cacheable && d.cache.IsConnected(ctx) {
		key, err := d.cache.Fingerprint(desc.Name, args)
		if err == nil {
			if v, hit := d.cache.Get(ctx, key); hit {
				return v, true, nil
			}
			v, err := d.fetchAndStore(ctx, desc, args, key)
			return v, false, err
		}
		d.logger.Warn(ctx, "cannot fingerprint arguments, skipping cache",
			observe.F("operation", desc.Name), observe.Err(err))
	}

	v, err := d.fetch(ctx, desc, args)
	if err != nil {
		return nil, false, err
	}
	if desc.Mutating() {
		d.invalidate(ctx, desc)
	}
	return v, false, nil
}

// fetchAndStore runs the upstream call for a cache miss and stores the
// shaped result. With single-flight enabled, concurrent misses on key
// share the first caller's call.
func (d *Dispatcher) fetchAndStore(ctx context.Context, desc catalog.Descriptor, args map[string]any, key string) (any, error) {
	load := func() (any, error) {
		v, err := d.fetch(ctx, desc, args)
		if err != nil {
			return nil, err
		}
		if ctx.Err() != nil {
			return v, nil
		}
		if !d.cache.Set(ctx, key, v, d.catalog.TTLFor(desc.Name)) {
			d.logger.Debug(ctx, "cache store skipped", observe.F("operation", desc.Name))
		}
		return v, nil
	}

	if !d.singleFlight {
		return load()
	}
	v, err, shared := d.flights.Do(key, load)
	if shared {
		d.logger.Debug(ctx, "joined in-flight call", observe.F("operation", desc.Name))
	}
	return v, err
}

func (d *Dispatcher) fetch(ctx context.Context, desc catalog.Descriptor, args map[string]any) (any, error) {
	raw, err := d.upstream.Execute(ctx, desc.Target, args)
	if err != nil {
		return nil, failure.From(err)
	}
	return desc.Shape(raw, args), nil
}

// invalidate drops the cached results of every invalidation target of
// desc. It outlives the caller's cancellation, since the upstream change
// has already happened, and is bounded by the invalidation timeout.
func (d *Dispatcher) invalidate(ctx context.Context, desc catalog.Descriptor) {
	targets := d.catalog.InvalidationTargetsFor(desc.Name)
	if len(targets) == 0 {
		return
	}

	ictx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.invalidationTimeout)
	defer cancel()

	g, gctx := errgroup.WithContext(ictx)
	g.SetLimit(maxParallelInvalidations)
	for _, target := range targets {
		g.Go(func() error {
			removed := d.cache.InvalidateOperation(gctx, target)
			d.metrics.RecordInvalidation(gctx, desc.Name, target, removed)
			d.logger.Debug(gctx, "cache invalidated",
				observe.F("mutation", desc.Name),
				observe.F("target", target),
				observe.F("removed", removed),
			)
			return nil
		})
	}
	_ = g.Wait()
}
