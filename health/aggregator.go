package health

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// DefaultCheckTimeout bounds a CheckAll run.
const DefaultCheckTimeout = 10 * time.Second

// Aggregator runs a set of checkers in parallel.
type Aggregator struct {
	timeout time.Duration

	mu       sync.RWMutex
	checkers map[string]Checker
	order    []string
}

// NewAggregator creates an aggregator. Non-positive timeout selects
// DefaultCheckTimeout.
func NewAggregator(timeout ...time.Duration) *Aggregator {
	t := DefaultCheckTimeout
	if len(timeout) > 0 && timeout[0] > 0 {
		t = timeout[0]
	}
	return &Aggregator{
		timeout:  t,
		checkers: make(map[string]Checker),
	}
}

// Register adds checker under its name, replacing any previous one.
func (a *Aggregator) Register(checker Checker) {
	a.mu.Lock()
	defer a.mu.Unlock()

	name := checker.Name()
	if _, exists := a.checkers[name]; !exists {
		a.order = append(a.order, name)
	}
	a.checkers[name] = checker
}

// CheckerNames returns the names of all registered checkers in
// registration order.
func (a *Aggregator) CheckerNames() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()

	names := make([]string, len(a.order))
	copy(names, a.order)
	return names
}

// Check runs a single named health check.
func (a *Aggregator) Check(ctx context.Context, name string) (Result, error) {
	a.mu.RLock()
	checker, ok := a.checkers[name]
	a.mu.RUnlock()
	if !ok {
		return Result{}, ErrCheckerNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()
	return runCheck(ctx, checker), nil
}

// CheckAll runs every checker in parallel. A checker still running when
// the timeout fires is reported unhealthy.
func (a *Aggregator) CheckAll(ctx context.Context) map[string]Result {
	a.mu.RLock()
	checkers := make([]Checker, 0, len(a.order))
	for _, name := range a.order {
		checkers = append(checkers, a.checkers[name])
	}
	a.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	results := make([]Result, len(checkers))
	var g errgroup.Group
	for i, checker := range checkers {
		g.Go(func() error {
			results[i] = runCheck(ctx, checker)
			return nil
		})
	}
	_ = g.Wait()

	out := make(map[string]Result, len(checkers))
	for i, checker := range checkers {
		out[checker.Name()] = results[i]
	}
	return out
}

// Overall is the worst status in results, or healthy when empty.
func Overall(results map[string]Result) Status {
	status := StatusHealthy
	for _, r := range results {
		status = status.Worse(r.Status)
	}
	return status
}

func runCheck(ctx context.Context, checker Checker) Result {
	start := time.Now()
	resultCh := make(chan Result, 1)

	go func() {
		resultCh <- checker.Check(ctx)
	}()

	var result Result
	select {
	case result = <-resultCh:
	case <-ctx.Done():
		result = Unhealthy("check timed out", ErrCheckTimeout)
	}
	result.Duration = time.Since(start)
	result.Timestamp = start
	return result
}
