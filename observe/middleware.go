package observe

import (
	"context"
	"time"

	"github.com/marioser/dolibarr-mcp/failure"
)

// DispatchFunc is the signature the Middleware wraps. fromCache reports
// whether the result was served from the cache.
type DispatchFunc func(ctx context.Context, meta OperationMeta, args map[string]any) (result any, fromCache bool, err error)

// Middleware wraps dispatch with tracing, metrics and logging.
//
// Contract:
//   - Concurrency: Wrap() returns a thread-safe DispatchFunc.
//   - Context: the span context is propagated to the wrapped function.
//   - Errors: errors from the wrapped function are recorded and returned unchanged.
//   - Ownership: arguments and results pass through unmodified and are never logged.
type Middleware struct {
	tracer  Tracer
	metrics Metrics
	logger  Logger
}

// NewMiddleware creates a Middleware. Nil components fall back to no-ops.
func NewMiddleware(tracer Tracer, metrics Metrics, logger Logger) *Middleware {
	if tracer == nil {
		tracer = NopTracer()
	}
	if metrics == nil {
		metrics = NopMetrics()
	}
	if logger == nil {
		logger = NopLogger()
	}
	return &Middleware{
		tracer:  tracer,
		metrics: metrics,
		logger:  logger,
	}
}

// Metrics returns the metrics sink used by the middleware.
func (m *Middleware) Metrics() Metrics {
	return m.metrics
}

// Logger returns the logger used by the middleware.
func (m *Middleware) Logger() Logger {
	return m.logger
}

// Wrap wraps fn with tracing, metrics and logging.
func (m *Middleware) Wrap(fn DispatchFunc) DispatchFunc {
	return func(ctx context.Context, meta OperationMeta, args map[string]any) (any, bool, error) {
		ctx, span := m.tracer.StartSpan(ctx, meta)
		start := time.Now()

		result, fromCache, err := fn(ctx, meta, args)

		elapsed := time.Since(start)
		m.tracer.EndSpan(span, fromCache, err)
		m.metrics.RecordDispatch(ctx, meta, fromCache, elapsed, err)

		log := m.logger.WithOperation(meta.Name)
		fields := []Field{
			F("elapsed_ms", float64(elapsed.Microseconds())/1000),
			F("cached", fromCache),
		}
		if err == nil {
			log.Info(ctx, "dispatch completed", fields...)
			return result, fromCache, nil
		}

		f := failure.From(err)
		fields = append(fields,
			F("code", f.Code),
			F("kind", f.Kind.String()),
			F("status", f.Status),
			F("retriable", f.Retriable),
			Err(err),
		)
		if f.CorrelationID != "" {
			fields = append(fields, F("correlation_id", f.CorrelationID))
		}
		if f.Status >= 500 {
			log.Error(ctx, "dispatch failed", fields...)
		} else {
			log.Warn(ctx, "dispatch failed", fields...)
		}
		return result, fromCache, err
	}
}

// MiddlewareFromObserver creates a Middleware from an Observer.
func MiddlewareFromObserver(obs Observer) (*Middleware, error) {
	if obs == nil {
		return nil, ErrNilObserver
	}
	metrics, err := NewMetrics(obs.Meter())
	if err != nil {
		return nil, err
	}
	return NewMiddleware(NewTracer(obs.Tracer()), metrics, obs.Logger()), nil
}
