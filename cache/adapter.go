package cache

import (
	"context"
	"errors"
	"math"
	"sync"
	"sync/atomic"
	"time"
)

// DefaultConnectTimeout bounds the first PING against the store.
const DefaultConnectTimeout = 5 * time.Second

// ErrorHook observes adapter-level errors. op is one of "connect", "get",
// "decode", "set", "encode", "delete" or "delete_pattern".
type ErrorHook func(op, key string, err error)

// AdapterOptions configures an Adapter. Zero values select defaults.
type AdapterOptions struct {
	Codec          Codec
	Keyer          Keyer
	Policy         Policy
	ConnectTimeout time.Duration
	OnError        ErrorHook
}

// Adapter is the best-effort front of a Store. No method returns an error:
// store failures degrade to a miss, a false write or a zero delete count,
// and are counted in Stats.
//
// The adapter connects once, on first use, and keeps reporting that result.
// A store that was unreachable at that moment stays disabled for the life
// of the adapter.
type Adapter struct {
	store          Store
	codec          Codec
	keyer          Keyer
	policy         Policy
	connectTimeout time.Duration
	onError        ErrorHook

	connectOnce sync.Once
	connected   atomic.Bool

	hits   atomic.Int64
	misses atomic.Int64
	errors atomic.Int64
}

// NewAdapter wraps store. A nil store yields a permanently disconnected adapter.
func NewAdapter(store Store, opts AdapterOptions) *Adapter {
	if opts.Codec == nil {
		opts.Codec = JSONCodec{}
	}
	if opts.Keyer == nil {
		opts.Keyer = NewDefaultKeyer("")
	}
	if opts.ConnectTimeout <= 0 {
		opts.ConnectTimeout = DefaultConnectTimeout
	}
	return &Adapter{
		store:          store,
		codec:          opts.Codec,
		keyer:          opts.Keyer,
		policy:         opts.Policy,
		connectTimeout: opts.ConnectTimeout,
		onError:        opts.OnError,
	}
}

// Disabled returns an adapter that never caches.
func Disabled() *Adapter {
	return NewAdapter(nil, AdapterOptions{Policy: NoCachePolicy()})
}

// IsConnected reports the connection state, attempting the single
// connection on first call. The caller's cancellation does not abort
// that attempt; it is bounded by the connect timeout instead.
func (a *Adapter) IsConnected(ctx context.Context) bool {
	a.connectOnce.Do(func() {
		if !a.Enabled() {
			return
		}
		pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.connectTimeout)
		defer cancel()
		if err := a.store.Ping(pctx); err != nil {
			a.fail("connect", "", err)
			return
		}
		a.connected.Store(true)
	})
	return a.connected.Load()
}

// Enabled reports whether the adapter has a store and a policy that
// allows caching.
func (a *Adapter) Enabled() bool {
	return a.store != nil && !a.policy.Disabled
}

// Ping checks the store right now. Unlike IsConnected it is not cached and
// does not change the connection state.
func (a *Adapter) Ping(ctx context.Context) error {
	if !a.Enabled() {
		return ErrDisabled
	}
	return a.store.Ping(ctx)
}

// Fingerprint derives the key for operation and args.
func (a *Adapter) Fingerprint(operation string, args map[string]any) (string, error) {
	return a.keyer.Key(operation, args)
}

// Get returns the decoded value for key. A miss, an undecodable entry or an
// unreachable store all return false. Undecodable entries are removed.
func (a *Adapter) Get(ctx context.Context, key string) (any, bool) {
	if !a.IsConnected(ctx) {
		return nil, false
	}
	if err := ValidateKey(key); err != nil {
		a.fail("get", key, err)
		return nil, false
	}

	raw, err := a.store.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		a.misses.Add(1)
		return nil, false
	}
	if err != nil {
		a.fail("get", key, err)
		return nil, false
	}

	v, err := a.codec.Decode(raw)
	if err != nil {
		a.fail("decode", key, err)
		_ = a.store.Delete(ctx, key)
		return nil, false
	}
	a.hits.Add(1)
	return v, true
}

// Set encodes value and stores it for ttl, clamped by the policy.
// It reports whether the entry was written.
func (a *Adapter) Set(ctx context.Context, key string, value any, ttl time.Duration) bool {
	if !a.policy.ShouldCache(ttl) || !a.IsConnected(ctx) {
		return false
	}
	if err := ValidateKey(key); err != nil {
		a.fail("set", key, err)
		return false
	}

	raw, err := a.codec.Encode(value)
	if err != nil {
		a.fail("encode", key, err)
		return false
	}
	if err := a.store.Set(ctx, key, raw, a.policy.EffectiveTTL(ttl)); err != nil {
		a.fail("set", key, err)
		return false
	}
	return true
}

// Delete removes key and reports success.
func (a *Adapter) Delete(ctx context.Context, key string) bool {
	if !a.IsConnected(ctx) {
		return false
	}
	if err := a.store.Delete(ctx, key); err != nil {
		a.fail("delete", key, err)
		return false
	}
	return true
}

// DeleteByPattern removes every key matching pattern. It returns 0 when the
// store is unreachable.
func (a *Adapter) DeleteByPattern(ctx context.Context, pattern string) int {
	if !a.IsConnected(ctx) {
		return 0
	}
	n, err := a.store.DeleteByPattern(ctx, pattern)
	if err != nil {
		a.fail("delete_pattern", pattern, err)
	}
	return n
}

// InvalidateOperation drops every cached result of operation.
func (a *Adapter) InvalidateOperation(ctx context.Context, operation string) int {
	return a.DeleteByPattern(ctx, a.keyer.Pattern(operation))
}

// Close releases the underlying store.
func (a *Adapter) Close() error {
	if a.store == nil {
		return nil
	}
	return a.store.Close()
}

func (a *Adapter) fail(op, key string, err error) {
	a.errors.Add(1)
	if a.onError != nil {
		a.onError(op, key, err)
	}
}

// Stats is a point-in-time snapshot of the adapter counters.
type Stats struct {
	Connected     bool    `json:"connected"`
	Hits          int64   `json:"hits"`
	Misses        int64   `json:"misses"`
	Errors        int64   `json:"errors"`
	HitRate       float64 `json:"hit_rate"`
	TotalRequests int64   `json:"total_requests"`
}

// Stats returns the current counters. HitRate is a percentage rounded to
// one decimal place. It never triggers a connection attempt.
func (a *Adapter) Stats() Stats {
	hits := a.hits.Load()
	misses := a.misses.Load()
	total := hits + misses
	var rate float64
	if total > 0 {
		rate = math.Round(float64(hits)/float64(total)*1000) / 10
	}
	return Stats{
		Connected:     a.connected.Load(),
		Hits:          hits,
		Misses:        misses,
		Errors:        a.errors.Load(),
		HitRate:       rate,
		TotalRequests: total,
	}
}
