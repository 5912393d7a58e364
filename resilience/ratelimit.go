package resilience

import (
	"context"
	"sync"
	"time"
)

// RateLimiterConfig configures the rate limiter.
type RateLimiterConfig struct {
	// Rate is the number of operations allowed per second.
	// Default: 10
	Rate float64

	// Burst is the bucket size.
	// Default: Rate rounded up, minimum 1
	Burst int

	// WaitOnLimit makes Execute wait for a token instead of failing.
	WaitOnLimit bool

	// MaxWait caps a single wait for a token.
	// Default: 1 second
	MaxWait time.Duration
}

func (c RateLimiterConfig) withDefaults() RateLimiterConfig {
	if c.Rate <= 0 {
		c.Rate = 10
	}
	if c.Burst <= 0 {
		c.Burst = int(c.Rate + 0.999)
		if c.Burst < 1 {
			c.Burst = 1
		}
	}
	if c.MaxWait <= 0 {
		c.MaxWait = time.Second
	}
	return c
}

// RateLimiter is a token bucket.
type RateLimiter struct {
	config RateLimiterConfig
	now    func() time.Time

	mu          sync.Mutex
	tokens      float64
	lastRefresh time.Time
}

// NewRateLimiter creates a full bucket.
func NewRateLimiter(config RateLimiterConfig) *RateLimiter {
	return newRateLimiter(config.withDefaults(), time.Now)
}

func newRateLimiter(config RateLimiterConfig, now func() time.Time) *RateLimiter {
	return &RateLimiter{
		config:      config,
		now:         now,
		tokens:      float64(config.Burst),
		lastRefresh: now(),
	}
}

// Allow takes one token if available.
func (rl *RateLimiter) Allow() bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.refillLocked()
	if rl.tokens >= 1 {
		rl.tokens--
		return true
	}
	return false
}

// RetryAfter is how long until the next token is available.
func (rl *RateLimiter) RetryAfter() time.Duration {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.refillLocked()
	if rl.tokens >= 1 {
		return 0
	}
	return time.Duration((1 - rl.tokens) / rl.config.Rate * float64(time.Second))
}

// Wait blocks until a token is available, MaxWait passes or ctx ends.
func (rl *RateLimiter) Wait(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if rl.Allow() {
		return nil
	}

	wait := rl.RetryAfter()
	if wait > rl.config.MaxWait {
		return ErrRateLimitExceeded
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		if rl.Allow() {
			return nil
		}
		return ErrRateLimitExceeded
	}
}

// Execute runs op if a token is available.
func (rl *RateLimiter) Execute(ctx context.Context, op func(context.Context) error) error {
	if rl.config.WaitOnLimit {
		if err := rl.Wait(ctx); err != nil {
			return err
		}
	} else if !rl.Allow() {
		return ErrRateLimitExceeded
	}
	return op(ctx)
}

func (rl *RateLimiter) refillLocked() {
	now := rl.now()
	elapsed := now.Sub(rl.lastRefresh)
	rl.lastRefresh = now

	rl.tokens += elapsed.Seconds() * rl.config.Rate
	if rl.tokens > float64(rl.config.Burst) {
		rl.tokens = float64(rl.config.Burst)
	}
}

// Tokens returns the current number of available tokens.
func (rl *RateLimiter) Tokens() float64 {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.refillLocked()
	return rl.tokens
}

// KeyedRateLimiter keeps one bucket per key, such as per principal.
// Buckets idle for longer than IdleTTL are dropped on the next sweep.
type KeyedRateLimiter struct {
	config  RateLimiterConfig
	idleTTL time.Duration
	now     func() time.Time

	mu        sync.Mutex
	buckets   map[string]*keyedBucket
	lastSweep time.Time
}

type keyedBucket struct {
	limiter  *RateLimiter
	lastSeen time.Time
}

// NewKeyedRateLimiter creates a limiter with one bucket per key.
// Non-positive idleTTL defaults to ten minutes.
func NewKeyedRateLimiter(config RateLimiterConfig, idleTTL time.Duration) *KeyedRateLimiter {
	if idleTTL <= 0 {
		idleTTL = 10 * time.Minute
	}
	return &KeyedRateLimiter{
		config:    config.withDefaults(),
		idleTTL:   idleTTL,
		now:       time.Now,
		buckets:   make(map[string]*keyedBucket),
		lastSweep: time.Now(),
	}
}

// Allow takes a token from key's bucket. When it fails, the returned
// duration is the suggested Retry-After.
func (k *KeyedRateLimiter) Allow(key string) (bool, time.Duration) {
	rl := k.bucket(key)
	if rl.Allow() {
		return true, 0
	}
	return false, rl.RetryAfter()
}

// Len returns the number of live buckets.
func (k *KeyedRateLimiter) Len() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.buckets)
}

func (k *KeyedRateLimiter) bucket(key string) *RateLimiter {
	k.mu.Lock()
	defer k.mu.Unlock()

	now := k.now()
	if now.Sub(k.lastSweep) >= k.idleTTL {
		for name, b := range k.buckets {
			if now.Sub(b.lastSeen) >= k.idleTTL {
				delete(k.buckets, name)
			}
		}
		k.lastSweep = now
	}

	b, ok := k.buckets[key]
	if !ok {
		b = &keyedBucket{limiter: newRateLimiter(k.config, k.now)}
		k.buckets[key] = b
	}
	b.lastSeen = now
	return b.limiter
}
