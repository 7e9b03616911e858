package observability

import (
	"context"
	"fmt"
	"math"
	runtimemetrics "runtime/metrics"

	"go.opentelemetry.io/otel/metric"
)

const (
	metricGoroutines = "histeq.runtime.goroutines"
	metricGOMAXPROCS = "histeq.runtime.gomaxprocs"
	metricHeapBytes  = "histeq.runtime.heap.objects.bytes"

	sampleGoroutines = "/sched/goroutines:goroutines"
	sampleGOMAXPROCS = "/sched/gomaxprocs:threads"
	sampleHeapBytes  = "/memory/classes/heap/objects:bytes"
)

// RuntimeMetrics reports scheduler and heap figures read from runtime/metrics
// on every collection cycle. The serve command registers it so that worker
// pool pressure is visible next to request metrics.
type RuntimeMetrics struct {
	goroutines metric.Int64ObservableGauge
	gomaxprocs metric.Int64ObservableGauge
	heapBytes  metric.Int64ObservableGauge
}

// NewRuntimeMetrics creates the observable gauges and registers their callback.
func NewRuntimeMetrics(mt metric.Meter) (*RuntimeMetrics, error) {
	b := newMetricBuilder(mt)

	rm := &RuntimeMetrics{
		goroutines: b.gauge(metricGoroutines, "Current number of live goroutines", "{goroutine}"),
		gomaxprocs: b.gauge(metricGOMAXPROCS, "Current GOMAXPROCS setting", "{thread}"),
		heapBytes:  b.gauge(metricHeapBytes, "Bytes occupied by live and unswept heap objects", "By"),
	}

	if b.err != nil {
		return nil, b.err
	}

	_, err := mt.RegisterCallback(rm.observe, rm.goroutines, rm.gomaxprocs, rm.heapBytes)
	if err != nil {
		return nil, fmt.Errorf("register runtime metrics callback: %w", err)
	}

	return rm, nil
}

func (rm *RuntimeMetrics) observe(_ context.Context, obs metric.Observer) error {
	samples := []runtimemetrics.Sample{
		{Name: sampleGoroutines},
		{Name: sampleGOMAXPROCS},
		{Name: sampleHeapBytes},
	}

	runtimemetrics.Read(samples)

	obs.ObserveInt64(rm.goroutines, sampleValue(samples[0]))
	obs.ObserveInt64(rm.gomaxprocs, sampleValue(samples[1]))
	obs.ObserveInt64(rm.heapBytes, sampleValue(samples[2]))

	return nil
}

// sampleValue converts a uint64 runtime sample to int64, clamping on
// overflow and returning zero for unsupported samples.
func sampleValue(s runtimemetrics.Sample) int64 {
	if s.Value.Kind() != runtimemetrics.KindUint64 {
		return 0
	}

	v := s.Value.Uint64()
	if v > math.MaxInt64 {
		return math.MaxInt64
	}

	return int64(v)
}
