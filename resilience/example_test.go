package resilience_test

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/marioser/dolibarr-mcp/resilience"
)

var errBadGateway = errors.New("502 bad gateway")

func ExampleRetry_Execute() {
	r := resilience.NewRetry(resilience.RetryConfig{
		MaxRetries: 2,
		BaseDelay:  time.Millisecond,
		RetryIf:    func(err error) bool { return errors.Is(err, errBadGateway) },
	})

	attempts := 0
	err := r.Execute(context.Background(), func(context.Context) error {
		attempts++
		if attempts < 2 {
			return errBadGateway
		}
		return nil
	})
	fmt.Println("attempts:", attempts, "err:", err)
	// Output:
	// attempts: 2 err: <nil>
}

func ExampleRetry_Delay() {
	r := resilience.NewRetry(resilience.RetryConfig{MaxRetries: 3, BaseDelay: 500 * time.Millisecond})
	for i := 0; i < 3; i++ {
		fmt.Println(r.Delay(i))
	}
	fmt.Println("total:", r.MaxBackoff())
	// Output:
	// 500ms
	// 1s
	// 2s
	// total: 3.5s
}

func ExampleCircuitBreaker_State() {
	cb := resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
		MaxFailures:  2,
		ResetTimeout: time.Minute,
	})
	ctx := context.Background()

	fmt.Println(cb.State())
	for i := 0; i < 2; i++ {
		_ = cb.Execute(ctx, func(context.Context) error { return errBadGateway })
	}
	fmt.Println(cb.State())
	// Output:
	// closed
	// open
}

func ExampleNewExecutor() {
	exec := resilience.NewExecutor(
		resilience.WithBulkhead(resilience.NewBulkhead(resilience.BulkheadConfig{MaxConcurrent: 4})),
		resilience.WithRetry(resilience.NewRetry(resilience.RetryConfig{MaxRetries: 1, BaseDelay: time.Millisecond})),
		resilience.WithTimeout(time.Second),
	)

	err := exec.Execute(context.Background(), func(context.Context) error { return nil })
	fmt.Println(err)
	// Output:
	// <nil>
}
