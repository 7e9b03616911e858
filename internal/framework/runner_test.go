package framework_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/Sumatoshi-tech/histeq/internal/framework"
	"github.com/Sumatoshi-tech/histeq/internal/observability"
	"github.com/Sumatoshi-tech/histeq/pkg/histeq"
)

func newRecordingTracer(t *testing.T) (*tracetest.InMemoryExporter, *sdktrace.TracerProvider) {
	t.Helper()

	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))

	t.Cleanup(func() { require.NoError(t, tp.Shutdown(context.Background())) })

	return exporter, tp
}

func spanNames(spans tracetest.SpanStubs) map[string]int {
	names := make(map[string]int)
	for _, s := range spans {
		names[s.Name]++
	}

	return names
}

func TestParseMode(t *testing.T) {
	t.Parallel()

	mode, err := framework.ParseMode("")
	require.NoError(t, err)
	assert.Equal(t, framework.ModeDivide, mode)

	mode, err = framework.ParseMode(" Global ")
	require.NoError(t, err)
	assert.Equal(t, framework.ModeGlobal, mode)

	_, err = framework.ParseMode("adaptive")
	require.ErrorIs(t, err, framework.ErrUnknownMode)
}

func TestRunner_DivideMatchesPartitioner(t *testing.T) {
	t.Parallel()

	input := []uint8{0, 0, 10, 10, 200, 200, 250, 250}

	runner := &framework.Runner{Threshold: 3, Workers: 1}

	res, err := runner.Run(context.Background(), input)
	require.NoError(t, err)

	assert.Equal(t, []uint8{255, 255, 255, 255, 255, 255, 255, 255}, res.Output)
	assert.Equal(t, framework.ModeDivide, res.Mode)
	assert.Equal(t, 4, res.Stats.Leaves)
	assert.Equal(t, 2, res.Stats.MaxDepth)
	assert.Equal(t, 8, res.Before.Total())
	assert.Equal(t, 8, res.After[255])
}

func TestRunner_Global(t *testing.T) {
	t.Parallel()

	input := []uint8{0, 0, 10, 10, 200, 200, 250, 250}

	runner := &framework.Runner{Mode: framework.ModeGlobal}

	res, err := runner.Run(context.Background(), input)
	require.NoError(t, err)

	assert.Equal(t, []uint8{63, 63, 127, 127, 191, 191, 255, 255}, res.Output)
	assert.Equal(t, 1, res.Stats.Leaves)
	assert.Equal(t, []uint8{0, 0, 10, 10, 200, 200, 250, 250}, input)
}

func TestRunner_InvalidConfig(t *testing.T) {
	t.Parallel()

	_, err := (&framework.Runner{Threshold: 0}).Run(context.Background(), []uint8{1})
	require.ErrorIs(t, err, histeq.ErrInvalidThreshold)

	_, err = (&framework.Runner{Threshold: 4, Mode: "median"}).Run(context.Background(), []uint8{1})
	require.ErrorIs(t, err, framework.ErrUnknownMode)

	require.NoError(t, (&framework.Runner{Mode: framework.ModeGlobal}).Validate())
}

func TestRunner_CancelledContext(t *testing.T) {
	t.Parallel()

	exporter, tp := newRecordingTracer(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	runner := &framework.Runner{Threshold: 2, Workers: 2, Tracer: tp.Tracer("test")}

	_, err := runner.Run(ctx, make([]uint8, 64))
	require.ErrorIs(t, err, context.Canceled)

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "histeq.run", spans[0].Name)
}

func TestRunner_EmitsLeafSpansWithoutFilter(t *testing.T) {
	t.Parallel()

	exporter, tp := newRecordingTracer(t)

	runner := &framework.Runner{Threshold: 16, Workers: 4, Tracer: tp.Tracer("test")}

	res, err := runner.Run(context.Background(), make([]uint8, 64))
	require.NoError(t, err)

	names := spanNames(exporter.GetSpans())
	assert.Equal(t, 1, names["histeq.run"])
	assert.Equal(t, res.Stats.Leaves, names[observability.SpanLeaf])
}

func TestRunner_FilteredLeafSpans(t *testing.T) {
	t.Parallel()

	exporter, tp := newRecordingTracer(t)
	filtered := observability.NewFilteringTracerProvider(tp)

	runner := &framework.Runner{Threshold: 16, Workers: 1, Tracer: filtered.Tracer("test")}

	_, err := runner.Run(context.Background(), make([]uint8, 64))
	require.NoError(t, err)

	names := spanNames(exporter.GetSpans())
	assert.Equal(t, map[string]int{"histeq.run": 1}, names)
}

func TestRunner_RecordsMetrics(t *testing.T) {
	t.Parallel()

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	metrics, err := observability.NewEqualizeMetrics(mp.Meter("test"))
	require.NoError(t, err)

	runner := &framework.Runner{Threshold: 16, Workers: 1, Metrics: metrics}

	res, err := runner.Run(context.Background(), make([]uint8, 100))
	require.NoError(t, err)

	var rm metricdata.ResourceMetrics

	require.NoError(t, reader.Collect(context.Background(), &rm))

	var leaves int64

	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != "histeq.equalize.leaves.total" {
				continue
			}

			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok)

			for _, dp := range sum.DataPoints {
				leaves += dp.Value
			}
		}
	}

	assert.Equal(t, int64(res.Stats.Leaves), leaves)
}
