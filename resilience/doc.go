// Package resilience wraps calls to a flaky dependency.
//
// Retry re-runs an operation with exponential backoff, BaseDelay * 2^n for
// zero-indexed retry n, and only for errors its RetryIf accepts. Timeout
// bounds each attempt separately. Bulkhead caps concurrency, CircuitBreaker
// stops calling a dependency that keeps failing, and RateLimiter and
// KeyedRateLimiter are token buckets.
//
// Executor composes them:
//
//	exec := resilience.NewExecutor(
//	    resilience.WithBulkhead(resilience.NewBulkhead(resilience.BulkheadConfig{MaxConcurrent: 16})),
//	    resilience.WithRetry(resilience.NewRetry(resilience.RetryConfig{
//	        MaxRetries: 2,
//	        BaseDelay:  500 * time.Millisecond,
//	        RetryIf:    isTransient,
//	    })),
//	    resilience.WithTimeout(30*time.Second),
//	)
//	err := exec.Execute(ctx, call)
package resilience
