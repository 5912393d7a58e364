package observe

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/trace"
)

// logrusLogger adapts a *logrus.Entry to Logger.
type logrusLogger struct {
	e *logrus.Entry
}

// NewLogrusLogger wraps l. A nil l uses logrus.StandardLogger().
func NewLogrusLogger(l *logrus.Logger) Logger {
	if l == nil {
		l = logrus.StandardLogger()
	}
	return &logrusLogger{e: logrus.NewEntry(l)}
}

func newLogrusFromConfig(cfg LogConfig) (Logger, func(), error) {
	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %q", ErrInvalidLogLevel, cfg.Level)
	}

	var out io.Writer
	closeFn := func() {}
	switch cfg.Output {
	case "stderr":
		out = os.Stderr
	case "stdout":
		out = os.Stdout
	default:
		f, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("observe: open log output %q: %w", cfg.Output, err)
		}
		out = f
		closeFn = func() { _ = f.Close() }
	}

	l := logrus.New()
	l.SetOutput(out)
	l.SetLevel(level)
	if cfg.Format == "console" {
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, TimestampFormat: time.RFC3339Nano})
	} else {
		l.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: time.RFC3339Nano,
			FieldMap:        logrus.FieldMap{logrus.FieldKeyTime: "timestamp"},
		})
	}
	return NewLogrusLogger(l), closeFn, nil
}

func (g *logrusLogger) Info(ctx context.Context, msg string, fields ...Field) {
	g.entry(ctx, fields).Info(msg)
}

func (g *logrusLogger) Warn(ctx context.Context, msg string, fields ...Field) {
	g.entry(ctx, fields).Warn(msg)
}

func (g *logrusLogger) Error(ctx context.Context, msg string, fields ...Field) {
	g.entry(ctx, fields).Error(msg)
}

func (g *logrusLogger) Debug(ctx context.Context, msg string, fields ...Field) {
	g.entry(ctx, fields).Debug(msg)
}

func (g *logrusLogger) WithOperation(name string) Logger {
	return &logrusLogger{e: g.e.WithField("operation", name)}
}

func (g *logrusLogger) entry(ctx context.Context, fields []Field) *logrus.Entry {
	lf := make(logrus.Fields, len(fields)+2)
	for _, f := range fields {
		lf[f.Key] = redact(f)
	}
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		lf["trace_id"] = sc.TraceID().String()
		lf["span_id"] = sc.SpanID().String()
	}
	return g.e.WithContext(ctx).WithFields(lf)
}

var _ Logger = (*logrusLogger)(nil)
