package resilience

import (
	"context"
	"errors"
	"testing"
	"time"
)

var errTransient = errors.New("transient")

func TestNewRetry_Defaults(t *testing.T) {
	r := NewRetry(RetryConfig{MaxRetries: -1})

	if r.config.MaxRetries != 0 {
		t.Errorf("MaxRetries = %d, want 0", r.config.MaxRetries)
	}
	if r.config.BaseDelay != 500*time.Millisecond {
		t.Errorf("BaseDelay = %v, want 500ms", r.config.BaseDelay)
	}
	if r.config.RetryIf == nil {
		t.Error("RetryIf should default")
	}
}

func TestRetry_AttemptBound(t *testing.T) {
	tests := []struct {
		maxRetries int
		want       int
	}{
		{0, 1},
		{1, 2},
		{2, 3},
		{4, 5},
	}

	for _, tt := range tests {
		r := NewRetry(RetryConfig{MaxRetries: tt.maxRetries, BaseDelay: time.Microsecond})
		attempts := 0
		err := r.Execute(context.Background(), func(context.Context) error {
			attempts++
			return errTransient
		})
		if !errors.Is(err, errTransient) {
			t.Errorf("maxRetries=%d: err = %v, want last error", tt.maxRetries, err)
		}
		if attempts != tt.want {
			t.Errorf("maxRetries=%d: attempts = %d, want %d", tt.maxRetries, attempts, tt.want)
		}
	}
}

func TestRetry_SuccessOnRetry(t *testing.T) {
	r := NewRetry(RetryConfig{MaxRetries: 3, BaseDelay: time.Millisecond})

	attempts := 0
	err := r.Execute(context.Background(), func(context.Context) error {
		attempts++
		if attempts < 3 {
			return errTransient
		}
		return nil
	})
	if err != nil {
		t.Errorf("Execute() error = %v", err)
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}
}

func TestRetry_RetryIfRejects(t *testing.T) {
	permanent := errors.New("validation")
	r := NewRetry(RetryConfig{
		MaxRetries: 5,
		BaseDelay:  time.Millisecond,
		RetryIf:    func(err error) bool { return errors.Is(err, errTransient) },
	})

	attempts := 0
	err := r.Execute(context.Background(), func(context.Context) error {
		attempts++
		return permanent
	})
	if !errors.Is(err, permanent) || attempts != 1 {
		t.Errorf("err = %v, attempts = %d; want permanent error after 1 attempt", err, attempts)
	}
}

func TestRetry_DelaySchedule(t *testing.T) {
	r := NewRetry(RetryConfig{MaxRetries: 4, BaseDelay: 500 * time.Millisecond})

	want := []time.Duration{500 * time.Millisecond, time.Second, 2 * time.Second, 4 * time.Second}
	for attempt, w := range want {
		if got := r.Delay(attempt); got != w {
			t.Errorf("Delay(%d) = %v, want %v", attempt, got, w)
		}
	}
	if got := r.MaxBackoff(); got != 7500*time.Millisecond {
		t.Errorf("MaxBackoff() = %v, want 7.5s", got)
	}

	capped := NewRetry(RetryConfig{MaxRetries: 3, BaseDelay: time.Second, MaxDelay: 1500 * time.Millisecond})
	if got := capped.Delay(2); got != 1500*time.Millisecond {
		t.Errorf("capped Delay(2) = %v, want 1.5s", got)
	}
}

func TestRetry_Jitter(t *testing.T) {
	r := NewRetry(RetryConfig{BaseDelay: 100 * time.Millisecond, Jitter: true})
	for i := 0; i < 50; i++ {
		d := r.Delay(0)
		if d < 100*time.Millisecond || d >= 125*time.Millisecond {
			t.Fatalf("jittered Delay(0) = %v, want [100ms, 125ms)", d)
		}
	}
}

func TestRetry_OnRetry(t *testing.T) {
	var seen []int
	var delays []time.Duration
	r := NewRetry(RetryConfig{
		MaxRetries: 2,
		BaseDelay:  time.Millisecond,
		OnRetry: func(attempt int, _ error, delay time.Duration) {
			seen = append(seen, attempt)
			delays = append(delays, delay)
		},
	})

	_ = r.Execute(context.Background(), func(context.Context) error { return errTransient })

	if len(seen) != 2 || seen[0] != 0 || seen[1] != 1 {
		t.Errorf("OnRetry attempts = %v, want [0 1]", seen)
	}
	if len(delays) != 2 || delays[1] != 2*delays[0] {
		t.Errorf("OnRetry delays = %v, want doubling", delays)
	}
}

func TestRetry_ContextCancelledDuringWait(t *testing.T) {
	r := NewRetry(RetryConfig{MaxRetries: 3, BaseDelay: time.Hour})
	ctx, cancel := context.WithCancel(context.Background())

	attempts := 0
	done := make(chan error, 1)
	go func() {
		done <- r.Execute(ctx, func(context.Context) error {
			attempts++
			return errTransient
		})
	}()
	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("err = %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Execute did not return after cancel")
	}
	if attempts != 1 {
		t.Errorf("attempts = %d, want 1", attempts)
	}
}
