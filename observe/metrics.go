package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/marioser/dolibarr-mcp/failure"
)

// Dispatch outcomes.
const (
	OutcomeCached = "cached"
	OutcomeFresh  = "fresh"
	OutcomeFailed = "failed"
)

// Metrics records dispatch, invalidation and upstream retry metrics.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: implementations must not panic.
type Metrics interface {
	// RecordDispatch records one dispatch with its outcome and duration.
	RecordDispatch(ctx context.Context, meta OperationMeta, fromCache bool, duration time.Duration, err error)

	// RecordInvalidation records the keys removed after a mutation.
	RecordInvalidation(ctx context.Context, mutation, target string, removed int)

	// RecordRetry records one local upstream retry.
	RecordRetry(ctx context.Context, endpoint string, err error)
}

// CacheSnapshot is the subset of cache counters exported as gauges.
type CacheSnapshot struct {
	Connected bool
	Hits      int64
	Misses    int64
	Errors    int64
}

type metricsImpl struct {
	totalCount   metric.Int64Counter
	errorCount   metric.Int64Counter
	durationHist metric.Float64Histogram
	invalidated  metric.Int64Counter
	retries      metric.Int64Counter
}

// NewMetrics creates the dispatch instruments on meter.
func NewMetrics(meter metric.Meter) (Metrics, error) {
	totalCount, err := meter.Int64Counter(
		"dolibarr.dispatch.total",
		metric.WithDescription("Total number of dispatched operations"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return nil, err
	}

	errorCount, err := meter.Int64Counter(
		"dolibarr.dispatch.errors",
		metric.WithDescription("Total number of failed dispatches"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, err
	}

	durationHist, err := meter.Float64Histogram(
		"dolibarr.dispatch.duration_ms",
		metric.WithDescription("Dispatch duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	invalidated, err := meter.Int64Counter(
		"dolibarr.cache.invalidated_keys",
		metric.WithDescription("Cache keys removed by mutation invalidation"),
		metric.WithUnit("{key}"),
	)
	if err != nil {
		return nil, err
	}

	retries, err := meter.Int64Counter(
		"dolibarr.upstream.retries",
		metric.WithDescription("Local upstream retry attempts"),
		metric.WithUnit("{retry}"),
	)
	if err != nil {
		return nil, err
	}

	return &metricsImpl{
		totalCount:   totalCount,
		errorCount:   errorCount,
		durationHist: durationHist,
		invalidated:  invalidated,
		retries:      retries,
	}, nil
}

func (m *metricsImpl) RecordDispatch(ctx context.Context, meta OperationMeta, fromCache bool, duration time.Duration, err error) {
	outcome := OutcomeFresh
	switch {
	case err != nil:
		outcome = OutcomeFailed
	case fromCache:
		outcome = OutcomeCached
	}
	opt := metric.WithAttributes(
		attribute.String("operation", meta.Name),
		attribute.String("outcome", outcome),
	)

	m.totalCount.Add(ctx, 1, opt)
	if err != nil {
		m.errorCount.Add(ctx, 1, metric.WithAttributes(
			attribute.String("operation", meta.Name),
			attribute.String("kind", kindOf(err)),
		))
	}
	m.durationHist.Record(ctx, float64(duration.Microseconds())/1000, opt)
}

func (m *metricsImpl) RecordInvalidation(ctx context.Context, mutation, target string, removed int) {
	m.invalidated.Add(ctx, int64(removed), metric.WithAttributes(
		attribute.String("mutation", mutation),
		attribute.String("target", target),
	))
}

func (m *metricsImpl) RecordRetry(ctx context.Context, endpoint string, err error) {
	m.retries.Add(ctx, 1, metric.WithAttributes(
		attribute.String("endpoint", endpoint),
		attribute.String("kind", kindOf(err)),
	))
}

// RegisterCacheGauges exports the values returned by snapshot as observable
// instruments, read on each collection.
func RegisterCacheGauges(meter metric.Meter, snapshot func() CacheSnapshot) error {
	connected, err := meter.Int64ObservableGauge("dolibarr.cache.connected",
		metric.WithDescription("1 when the cache store is reachable"))
	if err != nil {
		return err
	}
	hits, err := meter.Int64ObservableCounter("dolibarr.cache.hits", metric.WithUnit("{hit}"))
	if err != nil {
		return err
	}
	misses, err := meter.Int64ObservableCounter("dolibarr.cache.misses", metric.WithUnit("{miss}"))
	if err != nil {
		return err
	}
	errs, err := meter.Int64ObservableCounter("dolibarr.cache.errors", metric.WithUnit("{error}"))
	if err != nil {
		return err
	}

	_, err = meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		s := snapshot()
		var up int64
		if s.Connected {
			up = 1
		}
		o.ObserveInt64(connected, up)
		o.ObserveInt64(hits, s.Hits)
		o.ObserveInt64(misses, s.Misses)
		o.ObserveInt64(errs, s.Errors)
		return nil
	}, connected, hits, misses, errs)
	return err
}

func kindOf(err error) string {
	if f, ok := failure.As(err); ok {
		return f.Kind.String()
	}
	return failure.Unclassified.String()
}

// NopMetrics returns a Metrics that records nothing.
func NopMetrics() Metrics {
	return nopMetrics{}
}

type nopMetrics struct{}

func (nopMetrics) RecordDispatch(context.Context, OperationMeta, bool, time.Duration, error) {}
func (nopMetrics) RecordInvalidation(context.Context, string, string, int)                   {}
func (nopMetrics) RecordRetry(context.Context, string, error)                                {}
