package resilience

import (
	"context"
	"errors"
	"time"
)

// Timeout bounds a single attempt.
type Timeout struct {
	d time.Duration
}

// NewTimeout creates a timeout of d. Non-positive d defaults to 30 seconds.
func NewTimeout(d time.Duration) *Timeout {
	if d <= 0 {
		d = 30 * time.Second
	}
	return &Timeout{d: d}
}

// Execute runs op with a derived deadline. The operation must honor ctx.
// When the derived deadline fires, and not the caller's, the result is
// ErrTimeout. Caller cancellation is returned as is.
func (t *Timeout) Execute(ctx context.Context, op func(context.Context) error) error {
	attemptCtx, cancel := context.WithTimeout(ctx, t.d)
	defer cancel()

	err := op(attemptCtx)
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if errors.Is(attemptCtx.Err(), context.DeadlineExceeded) {
		return ErrTimeout
	}
	return err
}

// Duration returns the per-attempt limit.
func (t *Timeout) Duration() time.Duration {
	return t.d
}
