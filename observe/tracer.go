package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"

	"github.com/marioser/dolibarr-mcp/failure"
)

// OperationMeta describes a dispatched operation for telemetry purposes.
type OperationMeta struct {
	Name     string        // Operation name (required)
	Entity   string        // Entity family, e.g. "customers" (optional)
	Mutating bool          // Whether the operation changes upstream state
	CacheTTL time.Duration // Zero for uncacheable operations
	Endpoint string        // Upstream endpoint template (optional)
}

// Cacheable reports whether the operation has a positive TTL.
func (m OperationMeta) Cacheable() bool {
	return m.CacheTTL > 0
}

// SpanName returns the deterministic span name: dispatch.<name>.
func (m OperationMeta) SpanName() string {
	return "dispatch." + m.Name
}

// Tracer wraps OpenTelemetry tracing with per-operation span management.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: EndSpan must be best-effort and must not panic.
type Tracer interface {
	// StartSpan starts a new span for a dispatch.
	StartSpan(ctx context.Context, meta OperationMeta) (context.Context, trace.Span)

	// EndSpan ends the span, recording the cache outcome and any error.
	EndSpan(span trace.Span, fromCache bool, err error)
}

type tracerImpl struct {
	tracer trace.Tracer
}

// NewTracer wraps the given OpenTelemetry tracer.
func NewTracer(t trace.Tracer) Tracer {
	return &tracerImpl{tracer: t}
}

func (t *tracerImpl) StartSpan(ctx context.Context, meta OperationMeta) (context.Context, trace.Span) {
	attrs := []attribute.KeyValue{
		attribute.String("operation.name", meta.Name),
		attribute.Bool("operation.mutating", meta.Mutating),
		attribute.Bool("operation.cacheable", meta.Cacheable()),
	}
	if meta.Entity != "" {
		attrs = append(attrs, attribute.String("operation.entity", meta.Entity))
	}
	if meta.Endpoint != "" {
		attrs = append(attrs, attribute.String("upstream.endpoint", meta.Endpoint))
	}
	if meta.Cacheable() {
		attrs = append(attrs, attribute.Int64("cache.ttl_s", int64(meta.CacheTTL/time.Second)))
	}

	return t.tracer.Start(ctx, meta.SpanName(),
		trace.WithAttributes(attrs...),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

func (t *tracerImpl) EndSpan(span trace.Span, fromCache bool, err error) {
	span.SetAttributes(attribute.Bool("cache.hit", fromCache))
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		if f, ok := failure.As(err); ok {
			span.SetAttributes(
				attribute.String("failure.kind", f.Kind.String()),
				attribute.String("failure.code", f.Code),
				attribute.Int("failure.status", f.Status),
			)
			if f.CorrelationID != "" {
				span.SetAttributes(attribute.String("failure.correlation_id", f.CorrelationID))
			}
		}
		span.RecordError(err)
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// NopTracer returns a tracer that records nothing.
func NopTracer() Tracer {
	return &tracerImpl{tracer: tracenoop.NewTracerProvider().Tracer("noop")}
}
