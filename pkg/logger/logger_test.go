package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"go.opentelemetry.io/otel/trace"
)

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &out); err != nil {
		t.Fatalf("unmarshal log line: %v", err)
	}
	return out
}

func TestNewWithWriter_ServiceAttribute(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter("review-service", "info", &buf)
	l.Info("hello")

	out := decodeLine(t, &buf)
	if got := out["service"]; got != "review-service" {
		t.Errorf("service = %v, want %q", got, "review-service")
	}
}

func TestNewWithWriter_LevelFilters(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter("test", "warn", &buf)
	l.Info("dropped")

	if buf.Len() != 0 {
		t.Errorf("info line should be filtered at warn level, got %q", buf.String())
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"info":    slog.LevelInfo,
		"WARN":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"bogus":   slog.LevelInfo,
		"":        slog.LevelInfo,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestWithContext_CorrelationID(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter("test", "info", &buf)

	ctx := WithCorrelationID(context.Background(), "req-123")
	WithContext(ctx, l).Info("hello")

	out := decodeLine(t, &buf)
	if got := out["correlation_id"]; got != "req-123" {
		t.Errorf("correlation_id = %v, want %q", got, "req-123")
	}
}

func TestWithContext_NoSpan(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter("test", "info", &buf)

	WithContext(context.Background(), l).Info("no span")

	out := decodeLine(t, &buf)
	if _, ok := out["trace_id"]; ok {
		t.Error("trace_id should not be present when no span in context")
	}
}

func TestWithContext_WithValidSpan(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter("test", "info", &buf)

	traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: trace.FlagsSampled,
	})
	ctx := trace.ContextWithSpanContext(context.Background(), sc)

	WithContext(ctx, l).Info("with span")

	out := decodeLine(t, &buf)
	if got := out["trace_id"]; got != "4bf92f3577b34da6a3ce929d0e0e4736" {
		t.Errorf("trace_id = %v", got)
	}
	if got := out["span_id"]; got != "00f067aa0ba902b7" {
		t.Errorf("span_id = %v", got)
	}
}

func TestWithContext_UserID(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter("test", "info", &buf)

	ctx := WithUserID(context.Background(), "user-789")
	WithContext(ctx, l).Info("with user")

	out := decodeLine(t, &buf)
	if got := out["user_id"]; got != "user-789" {
		t.Errorf("user_id = %v, want %q", got, "user-789")
	}
}

func TestFromContext_Default(t *testing.T) {
	if FromContext(context.Background()) != slog.Default() {
		t.Error("expected slog.Default() when no logger stored")
	}
}

func TestFor_PrefersStoredLogger(t *testing.T) {
	var stored, fallback bytes.Buffer
	ctx := NewContext(context.Background(), NewWithWriter("stored", "info", &stored))

	For(ctx, NewWithWriter("fallback", "info", &fallback)).Info("x")

	if stored.Len() == 0 {
		t.Error("expected stored logger to be used")
	}
	if fallback.Len() != 0 {
		t.Error("fallback logger should not be used when one is stored")
	}
}

func TestFor_EnrichesFallback(t *testing.T) {
	var buf bytes.Buffer
	ctx := WithCorrelationID(context.Background(), "corr-9")

	For(ctx, NewWithWriter("fallback", "info", &buf)).Info("x")

	out := decodeLine(t, &buf)
	if got := out["correlation_id"]; got != "corr-9" {
		t.Errorf("correlation_id = %v, want %q", got, "corr-9")
	}
}
