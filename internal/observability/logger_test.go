package observability_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/Sumatoshi-tech/histeq/internal/observability"
)

func newJSONLogger(buf *bytes.Buffer) *slog.Logger {
	inner := slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug})

	return slog.New(observability.NewTracingHandler(inner, "histeq", "", observability.ModeServe))
}

func decodeRecord(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()

	var record map[string]any

	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))

	return record
}

func TestTracingHandler_AddsSpanContext(t *testing.T) {
	t.Parallel()

	tp := sdktrace.NewTracerProvider()

	t.Cleanup(func() { require.NoError(t, tp.Shutdown(context.Background())) })

	ctx, span := tp.Tracer("test").Start(context.Background(), "op")
	defer span.End()

	var buf bytes.Buffer

	newJSONLogger(&buf).InfoContext(ctx, "traced")

	record := decodeRecord(t, &buf)
	assert.Equal(t, span.SpanContext().TraceID().String(), record["trace_id"])
	assert.Equal(t, span.SpanContext().SpanID().String(), record["span_id"])
	assert.Equal(t, "serve", record["mode"])
	assert.NotContains(t, record, "env")
}

func TestTracingHandler_NoSpanContext(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	newJSONLogger(&buf).Info("plain")

	record := decodeRecord(t, &buf)
	assert.NotContains(t, record, "trace_id")
	assert.Equal(t, "histeq", record["service"])
}

func TestTracingHandler_GroupKeepsServiceTopLevel(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	newJSONLogger(&buf).WithGroup("run").With("threshold", 8).Info("grouped", "leaves", 2)

	record := decodeRecord(t, &buf)
	assert.Equal(t, "histeq", record["service"])

	group, ok := record["run"].(map[string]any)
	require.True(t, ok)
	assert.InDelta(t, 8, group["threshold"], 0)
	assert.InDelta(t, 2, group["leaves"], 0)
}

func TestTracingHandler_EnabledFollowsInner(t *testing.T) {
	t.Parallel()

	inner := slog.NewTextHandler(&bytes.Buffer{}, &slog.HandlerOptions{Level: slog.LevelWarn})
	handler := observability.NewTracingHandler(inner, "histeq", "prod", observability.ModeCLI)

	assert.False(t, handler.Enabled(context.Background(), slog.LevelInfo))
	assert.True(t, handler.Enabled(context.Background(), slog.LevelError))
}
