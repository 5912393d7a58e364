package resilience

import (
	"context"
	"math"
	"math/rand/v2"
	"time"
)

// RetryConfig configures the retry behavior.
type RetryConfig struct {
	// MaxRetries is the number of attempts after the first one.
	// Zero disables retrying.
	MaxRetries int

	// BaseDelay is the wait before the first retry. Retry n (zero-indexed)
	// waits BaseDelay * 2^n.
	// Default: 500ms
	BaseDelay time.Duration

	// MaxDelay caps a single wait. Zero means no cap.
	MaxDelay time.Duration

	// Jitter adds up to 25% on top of each wait.
	Jitter bool

	// RetryIf decides whether err is worth another attempt.
	// Default: all non-nil errors.
	RetryIf func(err error) bool

	// OnRetry is called before each wait. attempt is zero-indexed.
	OnRetry func(attempt int, err error, delay time.Duration)
}

// Retry re-runs an operation with exponential backoff.
type Retry struct {
	config RetryConfig
}

// NewRetry creates a new retry handler.
func NewRetry(config RetryConfig) *Retry {
	if config.MaxRetries < 0 {
		config.MaxRetries = 0
	}
	if config.BaseDelay <= 0 {
		config.BaseDelay = 500 * time.Millisecond
	}
	if config.RetryIf == nil {
		config.RetryIf = func(err error) bool { return err != nil }
	}
	return &Retry{config: config}
}

// Execute runs op at most MaxRetries+1 times. It returns the first success,
// the first error RetryIf rejects, the last error once retries are
// exhausted, or the context error if ctx ends during a wait.
func (r *Retry) Execute(ctx context.Context, op func(context.Context) error) error {
	for attempt := 0; ; attempt++ {
		err := op(ctx)
		if err == nil {
			return nil
		}
		if !r.config.RetryIf(err) || attempt >= r.config.MaxRetries {
			return err
		}

		delay := r.Delay(attempt)
		if r.config.OnRetry != nil {
			r.config.OnRetry(attempt, err, delay)
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// Delay returns the wait before retry attempt (zero-indexed), without jitter
// unless configured.
func (r *Retry) Delay(attempt int) time.Duration {
	delay := time.Duration(float64(r.config.BaseDelay) * math.Pow(2, float64(attempt)))
	if r.config.MaxDelay > 0 && delay > r.config.MaxDelay {
		delay = r.config.MaxDelay
	}
	if r.config.Jitter && delay >= 4 {
		// #nosec G404 -- jitter is non-cryptographic timing variance.
		delay += time.Duration(rand.Int64N(int64(delay / 4)))
	}
	return delay
}

// MaxBackoff is the sum of all waits when every retry is used, ignoring jitter.
func (r *Retry) MaxBackoff() time.Duration {
	var total time.Duration
	for i := 0; i < r.config.MaxRetries; i++ {
		delay := time.Duration(float64(r.config.BaseDelay) * math.Pow(2, float64(i)))
		if r.config.MaxDelay > 0 && delay > r.config.MaxDelay {
			delay = r.config.MaxDelay
		}
		total += delay
	}
	return total
}

// Config returns the retry configuration.
func (r *Retry) Config() RetryConfig {
	return r.config
}
