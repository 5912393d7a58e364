package observe

import (
	"context"
	"fmt"
	"slices"
	"time"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is a minimal structured logging interface.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Context: the span context carried by ctx, if any, is attached to the entry.
// - Errors: logging must be best-effort and must not panic.
type Logger interface {
	Info(ctx context.Context, msg string, fields ...Field)
	Warn(ctx context.Context, msg string, fields ...Field)
	Error(ctx context.Context, msg string, fields ...Field)
	Debug(ctx context.Context, msg string, fields ...Field)

	// WithOperation returns a logger that tags every entry with the
	// operation name.
	WithOperation(name string) Logger
}

// Field represents a structured log field.
type Field struct {
	Key   string
	Value any
}

// F is shorthand for Field{Key: key, Value: value}.
func F(key string, value any) Field {
	return Field{Key: key, Value: value}
}

// Err returns an "error" field holding err's message.
func Err(err error) Field {
	if err == nil {
		return Field{Key: "error", Value: nil}
	}
	return Field{Key: "error", Value: err.Error()}
}

// Log backends.
const (
	BackendZap    = "zap"
	BackendLogrus = "logrus"
)

// LogConfig configures the logger built by NewLogger.
type LogConfig struct {
	// Level is debug, info, warn or error. Empty means info.
	Level string
	// Format is json or console. Empty means json.
	Format string
	// Output is stderr, stdout or a file path. Empty means stderr, since
	// the stdio transport owns stdout.
	Output string
	// Backend is zap or logrus. Empty means zap.
	Backend string
	// Disabled discards every entry.
	Disabled bool
}

// Validate checks the level, format and backend names.
func (c LogConfig) Validate() error {
	if !slices.Contains(ValidLogLevels, c.Level) {
		return fmt.Errorf("%w: %q", ErrInvalidLogLevel, c.Level)
	}
	switch c.Format {
	case "", "json", "console":
	default:
		return fmt.Errorf("%w: %q", ErrInvalidLogFormat, c.Format)
	}
	switch c.Backend {
	case "", BackendZap, BackendLogrus:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidLogBackend, c.Backend)
	}
	return nil
}

func (c LogConfig) withDefaults() LogConfig {
	if c.Level == "" {
		c.Level = "info"
	}
	if c.Format == "" {
		c.Format = "json"
	}
	if c.Output == "" {
		c.Output = "stderr"
	}
	if c.Backend == "" {
		c.Backend = BackendZap
	}
	return c
}

// NewLogger builds the logger described by cfg. The returned func flushes
// buffered entries and releases the output; call it on shutdown.
func NewLogger(cfg LogConfig) (Logger, func(), error) {
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	if cfg.Disabled {
		return NopLogger(), func() {}, nil
	}
	cfg = cfg.withDefaults()

	switch cfg.Backend {
	case BackendLogrus:
		return newLogrusFromConfig(cfg)
	default:
		l, closeFn, err := buildZap(cfg)
		if err != nil {
			return nil, nil, err
		}
		return NewZapLogger(l), closeFn, nil
	}
}

func buildZap(cfg LogConfig) (*zap.Logger, func(), error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %q", ErrInvalidLogLevel, cfg.Level)
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "timestamp"
	encCfg.EncodeTime = zapcore.TimeEncoderOfLayout(time.RFC3339Nano)

	var enc zapcore.Encoder
	if cfg.Format == "console" {
		encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
		enc = zapcore.NewConsoleEncoder(encCfg)
	} else {
		enc = zapcore.NewJSONEncoder(encCfg)
	}

	ws, closeOut, err := zap.Open(cfg.Output)
	if err != nil {
		return nil, nil, fmt.Errorf("observe: open log output %q: %w", cfg.Output, err)
	}

	l := zap.New(zapcore.NewCore(enc, ws, level), zap.ErrorOutput(ws))
	return l, func() {
		_ = l.Sync()
		closeOut()
	}, nil
}

// zapLogger adapts a *zap.Logger to Logger.
type zapLogger struct {
	l *zap.Logger
}

// NewZapLogger wraps l. A nil l yields a no-op logger.
func NewZapLogger(l *zap.Logger) Logger {
	if l == nil {
		l = zap.NewNop()
	}
	return &zapLogger{l: l}
}

func (z *zapLogger) Info(ctx context.Context, msg string, fields ...Field) {
	z.log(ctx, zapcore.InfoLevel, msg, fields)
}

func (z *zapLogger) Warn(ctx context.Context, msg string, fields ...Field) {
	z.log(ctx, zapcore.WarnLevel, msg, fields)
}

func (z *zapLogger) Error(ctx context.Context, msg string, fields ...Field) {
	z.log(ctx, zapcore.ErrorLevel, msg, fields)
}

func (z *zapLogger) Debug(ctx context.Context, msg string, fields ...Field) {
	z.log(ctx, zapcore.DebugLevel, msg, fields)
}

func (z *zapLogger) WithOperation(name string) Logger {
	return &zapLogger{l: z.l.With(zap.String("operation", name))}
}

func (z *zapLogger) log(ctx context.Context, level zapcore.Level, msg string, fields []Field) {
	ce := z.l.Check(level, msg)
	if ce == nil {
		return
	}
	zf := make([]zap.Field, 0, len(fields)+2)
	for _, f := range fields {
		zf = append(zf, zap.Any(f.Key, redact(f)))
	}
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		zf = append(zf,
			zap.String("trace_id", sc.TraceID().String()),
			zap.String("span_id", sc.SpanID().String()),
		)
	}
	ce.Write(zf...)
}

func redact(f Field) any {
	if isRedactedField(f.Key) {
		return "[REDACTED]"
	}
	return f.Value
}

func isRedactedField(key string) bool {
	return slices.Contains(RedactedFields, key)
}

// NopLogger returns a logger that discards everything.
func NopLogger() Logger {
	return nopLogger{}
}

type nopLogger struct{}

func (nopLogger) Info(context.Context, string, ...Field)  {}
func (nopLogger) Warn(context.Context, string, ...Field)  {}
func (nopLogger) Error(context.Context, string, ...Field) {}
func (nopLogger) Debug(context.Context, string, ...Field) {}
func (l nopLogger) WithOperation(string) Logger           { return l }

var (
	_ Logger = (*zapLogger)(nil)
	_ Logger = nopLogger{}
)
