package dispatch

import (
	"context"
	"errors"
	"net/http"
	"reflect"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/marioser/dolibarr-mcp/cache"
	"github.com/marioser/dolibarr-mcp/catalog"
	"github.com/marioser/dolibarr-mcp/failure"
	"github.com/marioser/dolibarr-mcp/observe"
)

// fakeUpstream counts calls per target name and answers with respond.
type fakeUpstream struct {
	mu      sync.Mutex
	calls   map[string]int
	respond func(ctx context.Context, target catalog.CallTarget, args map[string]any) (any, error)
}

func newFakeUpstream(respond func(ctx context.Context, target catalog.CallTarget, args map[string]any) (any, error)) *fakeUpstream {
	return &fakeUpstream{calls: map[string]int{}, respond: respond}
}

func (f *fakeUpstream) Execute(ctx context.Context, target catalog.CallTarget, args map[string]any) (any, error) {
	f.mu.Lock()
	f.calls[target.Name]++
	f.mu.Unlock()
	return f.respond(ctx, target, args)
}

func (f *fakeUpstream) count(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

var customers = []any{
	map[string]any{"id": "1"},
	map[string]any{"id": "2"},
}

func customerUpstream() *fakeUpstream {
	return newFakeUpstream(func(_ context.Context, target catalog.CallTarget, _ map[string]any) (any, error) {
		switch target.Name {
		case "list_customers":
			return customers, nil
		case "get_customer":
			return map[string]any{"id": "1", "name": "Acme"}, nil
		case "create_customer":
			return float64(3), nil
		}
		return nil, errors.New("unexpected target " + target.Name)
	})
}

func testCatalog(t testing.TB, ttl time.Duration) *catalog.Catalog {
	t.Helper()
	c, err := catalog.New(
		catalog.Descriptor{
			Name:      "list_customers",
			Target:    catalog.CallTarget{Name: "list_customers", Method: http.MethodGet, Path: "thirdparties"},
			Cacheable: true,
			TTL:       ttl,
		},
		catalog.Descriptor{
			Name:      "get_customer",
			Target:    catalog.CallTarget{Name: "get_customer", Method: http.MethodGet, Path: "thirdparties/{customer_id}"},
			Cacheable: true,
			TTL:       ttl,
		},
		catalog.Descriptor{
			Name:        "create_customer",
			Target:      catalog.CallTarget{Name: "create_customer", Method: http.MethodPost, Path: "thirdparties", Body: catalog.ArgsBody},
			Invalidates: []string{"list_customers"},
		},
	)
	if err != nil {
		t.Fatalf("catalog.New() = %v", err)
	}
	return c
}

func memoryAdapter() *cache.Adapter {
	return cache.NewAdapter(cache.NewMemoryStore(), cache.AdapterOptions{Policy: cache.DefaultPolicy()})
}

func newTestDispatcher(t testing.TB, up Upstream, adapter *cache.Adapter, mutate func(*Options)) *Dispatcher {
	t.Helper()
	opts := Options{
		Catalog:  testCatalog(t, time.Minute),
		Upstream: up,
		Cache:    adapter,
	}
	if mutate != nil {
		mutate(&opts)
	}
	d, err := New(opts)
	if err != nil {
		t.Fatalf("New() = %v", err)
	}
	return d
}

func mustDispatch(t *testing.T, d *Dispatcher, name string, args map[string]any) Result {
	t.Helper()
	res, err := d.Dispatch(context.Background(), name, args)
	if err != nil {
		t.Fatalf("Dispatch(%s) = %v", name, err)
	}
	return res
}

func TestNew_RequiresCollaborators(t *testing.T) {
	if _, err := New(Options{Upstream: customerUpstream()}); !errors.Is(err, ErrNilCatalog) {
		t.Errorf("missing catalog: err = %v", err)
	}
	if _, err := New(Options{Catalog: testCatalog(t, time.Minute)}); !errors.Is(err, ErrNilUpstream) {
		t.Errorf("missing upstream: err = %v", err)
	}
}

func TestDispatch_MissHitInvalidate(t *testing.T) {
	up := customerUpstream()
	adapter := memoryAdapter()
	d := newTestDispatcher(t, up, adapter, nil)
	args := map[string]any{"limit": 10}

	first := mustDispatch(t, d, "list_customers", args)
	if first.FromCache || up.count("list_customers") != 1 {
		t.Fatalf("first dispatch: fromCache=%v calls=%d", first.FromCache, up.count("list_customers"))
	}
	if !reflect.DeepEqual(first.Data, customers) {
		t.Errorf("first data = %#v", first.Data)
	}

	second := mustDispatch(t, d, "list_customers", map[string]any{"limit": 10})
	if !second.FromCache || up.count("list_customers") != 1 {
		t.Fatalf("second dispatch: fromCache=%v calls=%d", second.FromCache, up.count("list_customers"))
	}
	if !reflect.DeepEqual(second.Data, customers) {
		t.Errorf("cached data = %#v", second.Data)
	}

	if res := mustDispatch(t, d, "create_customer", map[string]any{"name": "Acme"}); res.FromCache {
		t.Error("mutations are never served from cache")
	}

	third := mustDispatch(t, d, "list_customers", args)
	if third.FromCache || up.count("list_customers") != 2 {
		t.Errorf("after mutation: fromCache=%v calls=%d", third.FromCache, up.count("list_customers"))
	}

	stats := adapter.Stats()
	if stats.Hits != 1 || stats.Misses != 2 {
		t.Errorf("stats = %+v, want 1 hit and 2 misses", stats)
	}
}

func TestDispatch_ArgumentsSelectTheEntry(t *testing.T) {
	up := customerUpstream()
	d := newTestDispatcher(t, up, memoryAdapter(), nil)

	mustDispatch(t, d, "list_customers", map[string]any{"limit": 10, "page": 0})
	mustDispatch(t, d, "list_customers", map[string]any{"page": 0, "limit": 10})
	mustDispatch(t, d, "list_customers", map[string]any{"limit": 20})

	if n := up.count("list_customers"); n != 2 {
		t.Errorf("upstream calls = %d, want 2", n)
	}
}

func TestDispatch_InvalidationOnlyTouchesTargets(t *testing.T) {
	up := customerUpstream()
	d := newTestDispatcher(t, up, memoryAdapter(), nil)
	byID := map[string]any{"customer_id": 1}

	mustDispatch(t, d, "get_customer", byID)
	mustDispatch(t, d, "create_customer", map[string]any{"name": "Acme"})

	if res := mustDispatch(t, d, "get_customer", byID); !res.FromCache {
		t.Error("get_customer is not an invalidation target of create_customer and should stay cached")
	}
}

func TestDispatch_UnknownOperation(t *testing.T) {
	up := customerUpstream()
	d := newTestDispatcher(t, up, memoryAdapter(), nil)

	res, err := d.Dispatch(context.Background(), "list_planets", nil)
	f, ok := failure.As(err)
	if !ok {
		t.Fatalf("err = %v, want a failure", err)
	}
	if f.Kind != failure.NotFound || f.Code != UnknownOperationCode || f.Retriable {
		t.Errorf("failure = %+v", f)
	}
	if res.Operation != "list_planets" || res.Data != nil {
		t.Errorf("result = %+v", res)
	}
	if len(up.calls) != 0 {
		t.Errorf("upstream calls = %v", up.calls)
	}
}

func TestDispatch_TTLExpiry(t *testing.T) {
	mr := miniredis.RunT(t)
	adapter := cache.NewAdapter(cache.DialRedis(cache.RedisOptions{Addr: mr.Addr()}), cache.AdapterOptions{})
	t.Cleanup(func() { _ = adapter.Close() })

	up := customerUpstream()
	d := newTestDispatcher(t, up, adapter, func(o *Options) {
		o.Catalog = testCatalog(t, 2*time.Second)
	})

	mustDispatch(t, d, "list_customers", nil)
	if res := mustDispatch(t, d, "list_customers", nil); !res.FromCache {
		t.Fatal("second dispatch within the TTL should hit")
	}

	mr.FastForward(3 * time.Second)

	if res := mustDispatch(t, d, "list_customers", nil); res.FromCache {
		t.Error("entry served after its TTL")
	}
	if n := up.count("list_customers"); n != 2 {
		t.Errorf("upstream calls = %d, want 2", n)
	}
}

func TestDispatch_CacheUnavailable(t *testing.T) {
	store := cache.NewMemoryStore()
	_ = store.Close()
	adapter := cache.NewAdapter(store, cache.AdapterOptions{})

	up := customerUpstream()
	d := newTestDispatcher(t, up, adapter, nil)

	for i := range 3 {
		res := mustDispatch(t, d, "list_customers", nil)
		if res.FromCache {
			t.Errorf("dispatch %d served from an unreachable cache", i)
		}
	}
	mustDispatch(t, d, "create_customer", map[string]any{"name": "Acme"})

	if n := up.count("list_customers"); n != 3 {
		t.Errorf("upstream calls = %d, want 3", n)
	}
	if adapter.Stats().Connected {
		t.Error("adapter should report disconnected")
	}
}

// brokenStore answers Ping but fails every other operation.
type brokenStore struct{}

var errBroken = errors.New("connection reset")

func (brokenStore) Get(context.Context, string) ([]byte, error)              { return nil, errBroken }
func (brokenStore) Set(context.Context, string, []byte, time.Duration) error { return errBroken }
func (brokenStore) Delete(context.Context, string) error                     { return errBroken }
func (brokenStore) DeleteByPattern(context.Context, string) (int, error)     { return 0, errBroken }
func (brokenStore) Ping(context.Context) error                               { return nil }
func (brokenStore) Close() error                                             { return nil }

func TestDispatch_CacheErrorsDegradeToMiss(t *testing.T) {
	adapter := cache.NewAdapter(brokenStore{}, cache.AdapterOptions{})
	up := customerUpstream()
	d := newTestDispatcher(t, up, adapter, nil)

	for range 2 {
		if res := mustDispatch(t, d, "list_customers", nil); res.FromCache {
			t.Error("served from a failing cache")
		}
	}
	mustDispatch(t, d, "create_customer", map[string]any{"name": "Acme"})

	if n := up.count("list_customers"); n != 2 {
		t.Errorf("upstream calls = %d, want 2", n)
	}
	// two failed gets, two failed sets and one failed pattern delete
	if got := adapter.Stats().Errors; got != 5 {
		t.Errorf("cache errors = %d, want 5", got)
	}
}

func TestDispatch_DisabledCache(t *testing.T) {
	up := customerUpstream()
	d := newTestDispatcher(t, up, nil, nil)

	mustDispatch(t, d, "list_customers", nil)
	mustDispatch(t, d, "list_customers", nil)
	if n := up.count("list_customers"); n != 2 {
		t.Errorf("upstream calls = %d, want 2", n)
	}
}

func TestDispatch_FailuresAreNotCached(t *testing.T) {
	var fail atomic.Bool
	fail.Store(true)
	up := newFakeUpstream(func(context.Context, catalog.CallTarget, map[string]any) (any, error) {
		if fail.Load() {
			return nil, failure.FromStatus(http.StatusServiceUnavailable, "maintenance")
		}
		return customers, nil
	})
	d := newTestDispatcher(t, up, memoryAdapter(), nil)

	_, err := d.Dispatch(context.Background(), "list_customers", nil)
	if !failure.IsKind(err, failure.TransientServer) {
		t.Fatalf("err = %v", err)
	}

	fail.Store(false)
	if res := mustDispatch(t, d, "list_customers", nil); res.FromCache {
		t.Error("a failure must not leave a cache entry")
	}
	if n := up.count("list_customers"); n != 2 {
		t.Errorf("upstream calls = %d, want 2", n)
	}
}

func TestDispatch_FailedMutationKeepsCache(t *testing.T) {
	up := newFakeUpstream(func(_ context.Context, target catalog.CallTarget, _ map[string]any) (any, error) {
		if target.Name == "create_customer" {
			return nil, failure.ValidationError("thirdparties", []string{"name"}, nil)
		}
		return customers, nil
	})
	d := newTestDispatcher(t, up, memoryAdapter(), nil)

	mustDispatch(t, d, "list_customers", nil)
	_, err := d.Dispatch(context.Background(), "create_customer", map[string]any{})
	if f, ok := failure.As(err); !ok || f.Kind != failure.Validation || len(f.MissingFields) != 1 {
		t.Fatalf("err = %v", err)
	}
	if res := mustDispatch(t, d, "list_customers", nil); !res.FromCache {
		t.Error("a failed mutation must not invalidate")
	}
}

func TestDispatch_PlainErrorsAreClassified(t *testing.T) {
	up := newFakeUpstream(func(context.Context, catalog.CallTarget, map[string]any) (any, error) {
		return nil, errors.New("boom")
	})
	d := newTestDispatcher(t, up, memoryAdapter(), nil)

	_, err := d.Dispatch(context.Background(), "list_customers", nil)
	f, ok := failure.As(err)
	if !ok || f.Kind != failure.Unclassified || f.CorrelationID == "" {
		t.Errorf("err = %#v", err)
	}
}

func TestDispatch_CancelledCallDoesNotStore(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	up := newFakeUpstream(func(context.Context, catalog.CallTarget, map[string]any) (any, error) {
		cancel()
		return customers, nil
	})
	adapter := memoryAdapter()
	d := newTestDispatcher(t, up, adapter, nil)

	if _, err := d.Dispatch(ctx, "list_customers", nil); err != nil {
		t.Fatalf("Dispatch() = %v", err)
	}
	if res := mustDispatch(t, d, "list_customers", nil); res.FromCache {
		t.Error("a call abandoned by its caller wrote a cache entry")
	}
}

func TestDispatch_InvalidationOutlivesCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	up := newFakeUpstream(func(_ context.Context, target catalog.CallTarget, _ map[string]any) (any, error) {
		if target.Name == "create_customer" {
			cancel()
			return float64(3), nil
		}
		return customers, nil
	})
	d := newTestDispatcher(t, up, memoryAdapter(), nil)

	mustDispatch(t, d, "list_customers", nil)
	if _, err := d.Dispatch(ctx, "create_customer", map[string]any{"name": "Acme"}); err != nil {
		t.Fatalf("Dispatch() = %v", err)
	}
	if res := mustDispatch(t, d, "list_customers", nil); res.FromCache {
		t.Error("stale entry served after a mutation whose caller went away")
	}
}

func TestDispatch_SingleFlight(t *testing.T) {
	release := make(chan struct{})
	up := newFakeUpstream(func(context.Context, catalog.CallTarget, map[string]any) (any, error) {
		<-release
		return customers, nil
	})
	d := newTestDispatcher(t, up, memoryAdapter(), func(o *Options) { o.SingleFlight = true })

	const callers = 8
	var wg sync.WaitGroup
	errs := make(chan error, callers)
	for range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := d.Dispatch(context.Background(), "list_customers", map[string]any{"limit": 5})
			errs <- err
		}()
	}

	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Errorf("Dispatch() = %v", err)
		}
	}
	if n := up.count("list_customers"); n != 1 {
		t.Errorf("upstream calls = %d, want 1", n)
	}
}

func TestDispatch_ConcurrentUse(t *testing.T) {
	up := customerUpstream()
	d := newTestDispatcher(t, up, memoryAdapter(), nil)

	var wg sync.WaitGroup
	for i := range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			name := "list_customers"
			args := map[string]any{"limit": i % 5}
			if i%10 == 0 {
				name, args = "create_customer", map[string]any{"name": "Acme"}
			}
			if _, err := d.Dispatch(context.Background(), name, args); err != nil {
				t.Errorf("Dispatch(%s) = %v", name, err)
			}
		}()
	}
	wg.Wait()
}

func TestDispatch_LogsOutcome(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	logger := observe.NewZapLogger(zap.New(core))
	up := customerUpstream()
	d := newTestDispatcher(t, up, memoryAdapter(), func(o *Options) {
		o.Middleware = observe.NewMiddleware(nil, nil, logger)
	})

	mustDispatch(t, d, "list_customers", nil)
	mustDispatch(t, d, "list_customers", nil)
	mustDispatch(t, d, "create_customer", map[string]any{"name": "Acme"})
	_, _ = d.Dispatch(context.Background(), "nope", nil)

	completed := logs.FilterMessage("dispatch completed").All()
	if len(completed) != 3 {
		t.Fatalf("completed entries = %d, want 3", len(completed))
	}
	wantCached := []bool{false, true, false}
	for i, e := range completed {
		if got := e.ContextMap()["cached"]; got != wantCached[i] {
			t.Errorf("entry %d cached = %v, want %v", i, got, wantCached[i])
		}
	}

	failed := logs.FilterMessage("dispatch failed").All()
	if len(failed) != 1 || failed[0].ContextMap()["code"] != UnknownOperationCode {
		t.Errorf("failed entries = %v", failed)
	}

	inv := logs.FilterMessage("cache invalidated").All()
	if len(inv) != 1 {
		t.Fatalf("invalidation entries = %d, want 1", len(inv))
	}
	fields := inv[0].ContextMap()
	if fields["target"] != "list_customers" || fields["removed"] != int64(1) {
		t.Errorf("invalidation fields = %v", fields)
	}
}

func TestDispatch_Meta(t *testing.T) {
	d := newTestDispatcher(t, customerUpstream(), nil, nil)

	tests := []struct {
		name string
		want observe.OperationMeta
	}{
		{"list_customers", observe.OperationMeta{Name: "list_customers", Entity: "thirdparties", CacheTTL: time.Minute, Endpoint: "thirdparties"}},
		{"get_customer", observe.OperationMeta{Name: "get_customer", Entity: "thirdparties", CacheTTL: time.Minute, Endpoint: "thirdparties/{customer_id}"}},
		{"create_customer", observe.OperationMeta{Name: "create_customer", Entity: "thirdparties", Mutating: true, Endpoint: "thirdparties"}},
		{"unknown", observe.OperationMeta{Name: "unknown"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := d.meta(tt.name); got != tt.want {
				t.Errorf("meta() = %+v, want %+v", got, tt.want)
			}
		})
	}
}
