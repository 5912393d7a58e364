package observe

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	zapobserver "go.uber.org/zap/zaptest/observer"
)

func newObservedLogger(level zapcore.Level) (Logger, *zapobserver.ObservedLogs) {
	core, logs := zapobserver.New(level)
	return NewZapLogger(zap.New(core)), logs
}

func TestZapLogger_OperationAndFields(t *testing.T) {
	logger, logs := newObservedLogger(zapcore.DebugLevel)

	logger.WithOperation("get_customers").Info(context.Background(), "dispatch completed",
		F("elapsed_ms", 1.5),
		F("cached", true),
	)

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}
	e := entries[0]
	if e.Message != "dispatch completed" || e.Level != zapcore.InfoLevel {
		t.Errorf("entry = %q at %v", e.Message, e.Level)
	}
	fields := e.ContextMap()
	if fields["operation"] != "get_customers" {
		t.Errorf("operation = %v", fields["operation"])
	}
	if fields["elapsed_ms"] != 1.5 || fields["cached"] != true {
		t.Errorf("fields = %v", fields)
	}
}

func TestZapLogger_RedactsSensitiveKeys(t *testing.T) {
	logger, logs := newObservedLogger(zapcore.InfoLevel)

	logger.Info(context.Background(), "request",
		F("DOLAPIKEY", "abc123"),
		F("api_key", "abc123"),
		F("password", "hunter2"),
		F("endpoint", "thirdparties"),
	)

	fields := logs.All()[0].ContextMap()
	for _, key := range []string{"DOLAPIKEY", "api_key", "password"} {
		if fields[key] != "[REDACTED]" {
			t.Errorf("%s = %v, want [REDACTED]", key, fields[key])
		}
	}
	if fields["endpoint"] != "thirdparties" {
		t.Errorf("endpoint = %v", fields["endpoint"])
	}
}

func TestZapLogger_LevelFiltering(t *testing.T) {
	logger, logs := newObservedLogger(zapcore.WarnLevel)
	ctx := context.Background()

	logger.Debug(ctx, "debug")
	logger.Info(ctx, "info")
	logger.Warn(ctx, "warn")
	logger.Error(ctx, "error", Err(errors.New("boom")))

	if logs.Len() != 2 {
		t.Fatalf("got %d entries, want 2", logs.Len())
	}
	if got := logs.FilterMessage("error").All()[0].ContextMap()["error"]; got != "boom" {
		t.Errorf("error field = %v", got)
	}
}

func TestZapLogger_AttachesSpanContext(t *testing.T) {
	logger, logs := newObservedLogger(zapcore.InfoLevel)
	tp := sdktrace.NewTracerProvider()
	ctx, span := tp.Tracer("test").Start(context.Background(), "op")
	defer span.End()

	logger.Info(ctx, "inside span")

	fields := logs.All()[0].ContextMap()
	if fields["trace_id"] != span.SpanContext().TraceID().String() {
		t.Errorf("trace_id = %v", fields["trace_id"])
	}
	if fields["span_id"] != span.SpanContext().SpanID().String() {
		t.Errorf("span_id = %v", fields["span_id"])
	}
}

func TestNewZapLogger_NilIsNop(t *testing.T) {
	logger := NewZapLogger(nil)
	logger.WithOperation("x").Error(context.Background(), "dropped")
}

func TestLogrusLogger_JSONOutput(t *testing.T) {
	var buf bytes.Buffer
	l := logrus.New()
	l.SetOutput(&buf)
	l.SetFormatter(&logrus.JSONFormatter{})
	logger := NewLogrusLogger(l).WithOperation("create_invoice")

	logger.Warn(context.Background(), "dispatch failed",
		F("code", "VALIDATION_ERROR"),
		F("token", "secret-value"),
	)

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, buf.String())
	}
	if entry["operation"] != "create_invoice" || entry["code"] != "VALIDATION_ERROR" {
		t.Errorf("entry = %v", entry)
	}
	if entry["token"] != "[REDACTED]" {
		t.Errorf("token = %v, want [REDACTED]", entry["token"])
	}
	if entry["level"] != "warning" || entry["msg"] != "dispatch failed" {
		t.Errorf("level/msg = %v/%v", entry["level"], entry["msg"])
	}
}

func TestNewLogger_Backends(t *testing.T) {
	for _, backend := range []string{"", BackendZap, BackendLogrus} {
		t.Run("backend="+backend, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "server.log")
			logger, closeFn, err := NewLogger(LogConfig{Level: "info", Output: path, Backend: backend})
			if err != nil {
				t.Fatalf("NewLogger() = %v", err)
			}
			logger.WithOperation("get_status").Info(context.Background(), "hello", F("secret", "s3"))
			logger.Debug(context.Background(), "filtered out")
			closeFn()

			data, err := os.ReadFile(path)
			if err != nil {
				t.Fatal(err)
			}
			lines := strings.Split(strings.TrimSpace(string(data)), "\n")
			if len(lines) != 1 {
				t.Fatalf("got %d lines, want 1:\n%s", len(lines), data)
			}
			var entry map[string]any
			if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
				t.Fatalf("line is not JSON: %v", err)
			}
			if entry["operation"] != "get_status" || entry["secret"] != "[REDACTED]" {
				t.Errorf("entry = %v", entry)
			}
			if _, ok := entry["timestamp"]; !ok {
				t.Errorf("entry has no timestamp: %v", entry)
			}
		})
	}
}

func TestNewLogger_Invalid(t *testing.T) {
	if _, _, err := NewLogger(LogConfig{Level: "loud"}); !errors.Is(err, ErrInvalidLogLevel) {
		t.Errorf("NewLogger(bad level) = %v", err)
	}
	if _, _, err := NewLogger(LogConfig{Output: filepath.Join(t.TempDir(), "missing", "dir", "x.log")}); err == nil {
		t.Error("NewLogger with unwritable output should fail")
	}
}

func TestNopLogger(t *testing.T) {
	l := NopLogger()
	if l.WithOperation("x") == nil {
		t.Fatal("WithOperation should return a logger")
	}
	l.Info(context.Background(), "ignored")
}
