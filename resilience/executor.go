package resilience

import (
	"context"
	"time"
)

// Executor composes resilience patterns around one operation.
type Executor struct {
	rateLimiter    *RateLimiter
	bulkhead       *Bulkhead
	circuitBreaker *CircuitBreaker
	retry          *Retry
	timeout        *Timeout
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// NewExecutor creates a new resilience executor. Nil patterns are skipped.
func NewExecutor(opts ...ExecutorOption) *Executor {
	e := &Executor{}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// WithRateLimiter adds rate limiting to the executor.
func WithRateLimiter(rl *RateLimiter) ExecutorOption {
	return func(e *Executor) { e.rateLimiter = rl }
}

// WithBulkhead adds bulkhead isolation to the executor.
func WithBulkhead(b *Bulkhead) ExecutorOption {
	return func(e *Executor) { e.bulkhead = b }
}

// WithCircuitBreaker adds a circuit breaker to the executor.
func WithCircuitBreaker(cb *CircuitBreaker) ExecutorOption {
	return func(e *Executor) { e.circuitBreaker = cb }
}

// WithRetry adds retry logic to the executor.
func WithRetry(r *Retry) ExecutorOption {
	return func(e *Executor) { e.retry = r }
}

// WithTimeout bounds every attempt by d.
func WithTimeout(d time.Duration) ExecutorOption {
	return func(e *Executor) { e.timeout = NewTimeout(d) }
}

// Execute runs op through the configured patterns, outermost first:
// rate limiter, bulkhead, circuit breaker, retry, per-attempt timeout.
//
// The breaker sees one outcome per Execute, after retries. The timeout
// applies to each attempt, so the worst case is roughly
// timeout*(MaxRetries+1) plus the retry backoff.
func (e *Executor) Execute(ctx context.Context, op func(context.Context) error) error {
	execute := op

	if e.timeout != nil {
		inner := execute
		execute = func(ctx context.Context) error {
			return e.timeout.Execute(ctx, inner)
		}
	}
	if e.retry != nil {
		inner := execute
		execute = func(ctx context.Context) error {
			return e.retry.Execute(ctx, inner)
		}
	}
	if e.circuitBreaker != nil {
		inner := execute
		execute = func(ctx context.Context) error {
			return e.circuitBreaker.Execute(ctx, inner)
		}
	}
	if e.bulkhead != nil {
		inner := execute
		execute = func(ctx context.Context) error {
			return e.bulkhead.Execute(ctx, inner)
		}
	}
	if e.rateLimiter != nil {
		inner := execute
		execute = func(ctx context.Context) error {
			return e.rateLimiter.Execute(ctx, inner)
		}
	}

	return execute(ctx)
}

// Once runs op through every pattern except retry. Used for calls that
// must not consume or repeat the retry budget.
func (e *Executor) Once(ctx context.Context, op func(context.Context) error) error {
	saved := *e
	saved.retry = nil
	return saved.Execute(ctx, op)
}

// CircuitBreaker returns the configured breaker, or nil.
func (e *Executor) CircuitBreaker() *CircuitBreaker { return e.circuitBreaker }

// Bulkhead returns the configured bulkhead, or nil.
func (e *Executor) Bulkhead() *Bulkhead { return e.bulkhead }
