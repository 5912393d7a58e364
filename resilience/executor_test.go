package resilience

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestExecutor_Empty(t *testing.T) {
	e := NewExecutor()
	called := false
	if err := e.Execute(context.Background(), func(context.Context) error { called = true; return nil }); err != nil || !called {
		t.Errorf("Execute() = %v, called = %v", err, called)
	}
}

func TestExecutor_TimeoutIsPerAttempt(t *testing.T) {
	e := NewExecutor(
		WithRetry(NewRetry(RetryConfig{
			MaxRetries: 2,
			BaseDelay:  time.Millisecond,
			RetryIf:    func(err error) bool { return errors.Is(err, ErrTimeout) },
		})),
		WithTimeout(20*time.Millisecond),
	)

	var attempts atomic.Int32
	err := e.Execute(context.Background(), func(ctx context.Context) error {
		if attempts.Add(1) < 3 {
			<-ctx.Done()
			return ctx.Err()
		}
		return nil
	})
	if err != nil {
		t.Errorf("Execute() = %v; third attempt should get a fresh deadline", err)
	}
	if attempts.Load() != 3 {
		t.Errorf("attempts = %d, want 3", attempts.Load())
	}
}

func TestExecutor_BreakerSeesOneOutcomePerCall(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{MaxFailures: 2})
	e := NewExecutor(
		WithCircuitBreaker(cb),
		WithRetry(NewRetry(RetryConfig{MaxRetries: 3, BaseDelay: time.Microsecond})),
	)

	_ = e.Execute(context.Background(), failOp)
	if cb.State() != StateClosed {
		t.Errorf("one exhausted call should count once, state = %v", cb.State())
	}
	_ = e.Execute(context.Background(), failOp)
	if cb.State() != StateOpen {
		t.Errorf("state = %v, want open", cb.State())
	}
}

func TestExecutor_OnceSkipsRetry(t *testing.T) {
	e := NewExecutor(WithRetry(NewRetry(RetryConfig{MaxRetries: 5, BaseDelay: time.Microsecond})))

	attempts := 0
	_ = e.Once(context.Background(), func(context.Context) error {
		attempts++
		return errTransient
	})
	if attempts != 1 {
		t.Errorf("Once made %d attempts, want 1", attempts)
	}

	attempts = 0
	_ = e.Execute(context.Background(), func(context.Context) error {
		attempts++
		return errTransient
	})
	if attempts != 6 {
		t.Errorf("Execute made %d attempts after Once, want 6", attempts)
	}
}

func TestExecutor_BulkheadOutsideRetry(t *testing.T) {
	b := NewBulkhead(BulkheadConfig{MaxConcurrent: 1})
	e := NewExecutor(WithBulkhead(b), WithRetry(NewRetry(RetryConfig{MaxRetries: 2, BaseDelay: time.Microsecond})))

	_ = e.Execute(context.Background(), func(context.Context) error {
		if m := b.Metrics(); m.Active != 1 {
			t.Errorf("Active inside op = %d, want 1", m.Active)
		}
		return errTransient
	})
	if e.Bulkhead() != b || e.CircuitBreaker() != nil {
		t.Error("accessors should return configured patterns")
	}
}
