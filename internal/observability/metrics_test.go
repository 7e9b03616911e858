package observability_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/Sumatoshi-tech/histeq/internal/observability"
)

func newTestReader() (*sdkmetric.ManualReader, *sdkmetric.MeterProvider) {
	reader := sdkmetric.NewManualReader()

	return reader, sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
}

func collectMetrics(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()

	var rm metricdata.ResourceMetrics

	require.NoError(t, reader.Collect(context.Background(), &rm))

	return rm
}

func findMetric(rm metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for idx := range rm.ScopeMetrics {
		for midx := range rm.ScopeMetrics[idx].Metrics {
			if rm.ScopeMetrics[idx].Metrics[midx].Name == name {
				return &rm.ScopeMetrics[idx].Metrics[midx]
			}
		}
	}

	return nil
}

func sumValue(t *testing.T, rm metricdata.ResourceMetrics, name string) int64 {
	t.Helper()

	m := findMetric(rm, name)
	require.NotNil(t, m, "%s not found", name)

	sum, ok := m.Data.(metricdata.Sum[int64])
	require.True(t, ok, "%s is not an int64 sum", name)

	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}

	return total
}

func TestREDMetrics_RecordRequest(t *testing.T) {
	t.Parallel()

	reader, mp := newTestReader()

	red, err := observability.NewREDMetrics(mp.Meter("test"))
	require.NoError(t, err)

	ctx := context.Background()
	red.RecordRequest(ctx, "equalize", observability.StatusOK, 100*time.Millisecond)
	red.RecordRequest(ctx, "equalize", observability.StatusError, time.Millisecond)

	rm := collectMetrics(t, reader)

	assert.Equal(t, int64(2), sumValue(t, rm, "histeq.requests.total"))
	assert.Equal(t, int64(1), sumValue(t, rm, "histeq.errors.total"))
	assert.NotNil(t, findMetric(rm, "histeq.request.duration.seconds"))
}

func TestREDMetrics_TrackInflight(t *testing.T) {
	t.Parallel()

	reader, mp := newTestReader()

	red, err := observability.NewREDMetrics(mp.Meter("test"))
	require.NoError(t, err)

	done := red.TrackInflight(context.Background(), "histogram")
	assert.Equal(t, int64(1), sumValue(t, collectMetrics(t, reader), "histeq.inflight.requests"))

	done()
	assert.Equal(t, int64(0), sumValue(t, collectMetrics(t, reader), "histeq.inflight.requests"))
}

func TestEqualizeMetrics_RecordRun(t *testing.T) {
	t.Parallel()

	reader, mp := newTestReader()

	em, err := observability.NewEqualizeMetrics(mp.Meter("test"))
	require.NoError(t, err)

	ctx := context.Background()
	em.RecordRun(ctx, observability.RunStats{
		Mode:     "divide",
		Samples:  4096,
		Leaves:   8,
		MaxDepth: 3,
		Workers:  4,
		Duration: time.Millisecond,
	})
	em.RecordLeaf(ctx, 512, time.Microsecond)

	rm := collectMetrics(t, reader)

	assert.Equal(t, int64(1), sumValue(t, rm, "histeq.equalize.runs.total"))
	assert.Equal(t, int64(4096), sumValue(t, rm, "histeq.equalize.samples.total"))
	assert.Equal(t, int64(8), sumValue(t, rm, "histeq.equalize.leaves.total"))

	runs := findMetric(rm, "histeq.equalize.runs.total")
	sum, ok := runs.Data.(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, sum.DataPoints, 1)

	parallel, ok := sum.DataPoints[0].Attributes.Value(attribute.Key("parallel"))
	require.True(t, ok)
	assert.True(t, parallel.AsBool())

	leafSamples := findMetric(rm, "histeq.equalize.leaf.samples")
	require.NotNil(t, leafSamples)

	hist, ok := leafSamples.Data.(metricdata.Histogram[float64])
	require.True(t, ok)
	require.Len(t, hist.DataPoints, 1)
	assert.Equal(t, uint64(1), hist.DataPoints[0].Count)
}

func TestEqualizeMetrics_NilReceiver(t *testing.T) {
	t.Parallel()

	var em *observability.EqualizeMetrics

	assert.NotPanics(t, func() {
		em.RecordRun(context.Background(), observability.RunStats{})
		em.RecordLeaf(context.Background(), 1, 0)
	})
}

func TestRuntimeMetrics_Observe(t *testing.T) {
	t.Parallel()

	reader, mp := newTestReader()

	_, err := observability.NewRuntimeMetrics(mp.Meter("test"))
	require.NoError(t, err)

	rm := collectMetrics(t, reader)

	m := findMetric(rm, "histeq.runtime.goroutines")
	require.NotNil(t, m)

	gauge, ok := m.Data.(metricdata.Gauge[int64])
	require.True(t, ok)
	require.Len(t, gauge.DataPoints, 1)
	assert.Positive(t, gauge.DataPoints[0].Value)

	assert.NotNil(t, findMetric(rm, "histeq.runtime.gomaxprocs"))
	assert.NotNil(t, findMetric(rm, "histeq.runtime.heap.objects.bytes"))
}
