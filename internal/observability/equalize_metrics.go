package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	metricRunsTotal     = "histeq.equalize.runs.total"
	metricSamplesTotal  = "histeq.equalize.samples.total"
	metricLeavesTotal   = "histeq.equalize.leaves.total"
	metricRunDuration   = "histeq.equalize.run.duration.seconds"
	metricLeafDuration  = "histeq.equalize.leaf.duration.seconds"
	metricLeafSamples   = "histeq.equalize.leaf.samples"
	metricRecursionMax  = "histeq.equalize.depth.max"
	attrRunMode         = "mode"
	attrWorkersParallel = "parallel"
)

// leafSampleBoundaries spans single-sample leaves to multi-megabyte leaves.
var leafSampleBoundaries = []float64{1, 16, 64, 256, 1024, 4096, 16384, 65536, 262144, 1048576}

// EqualizeMetrics holds instruments describing equalization runs and leaves.
type EqualizeMetrics struct {
	runsTotal    metric.Int64Counter
	samplesTotal metric.Int64Counter
	leavesTotal  metric.Int64Counter
	runDuration  metric.Float64Histogram
	leafDuration metric.Float64Histogram
	leafSamples  metric.Float64Histogram
	maxDepth     metric.Float64Histogram
}

// RunStats is the subset of a run's statistics recorded as metrics,
// decoupled from the histeq package types.
type RunStats struct {
	Mode     string
	Samples  int
	Leaves   int
	MaxDepth int
	Workers  int
	Duration time.Duration
}

// NewEqualizeMetrics creates equalization instruments from the given meter.
func NewEqualizeMetrics(mt metric.Meter) (*EqualizeMetrics, error) {
	b := newMetricBuilder(mt)

	em := &EqualizeMetrics{
		runsTotal:    b.counter(metricRunsTotal, "Total equalization runs", "{run}"),
		samplesTotal: b.counter(metricSamplesTotal, "Total samples equalized", "{sample}"),
		leavesTotal:  b.counter(metricLeavesTotal, "Total leaves equalized", "{leaf}"),
		runDuration:  b.histogram(metricRunDuration, "Equalization run duration in seconds", "s", durationBucketBoundaries...),
		leafDuration: b.histogram(metricLeafDuration, "Per-leaf equalization duration in seconds", "s", durationBucketBoundaries...),
		leafSamples:  b.histogram(metricLeafSamples, "Samples per leaf", "{sample}", leafSampleBoundaries...),
		maxDepth:     b.histogram(metricRecursionMax, "Deepest bisection level reached per run", "{level}"),
	}

	if b.err != nil {
		return nil, b.err
	}

	return em, nil
}

// RecordLeaf records one equalized leaf. Safe to call on a nil receiver.
func (em *EqualizeMetrics) RecordLeaf(ctx context.Context, samples int, elapsed time.Duration) {
	if em == nil {
		return
	}

	em.leafDuration.Record(ctx, elapsed.Seconds())
	em.leafSamples.Record(ctx, float64(samples))
}

// RecordRun records a completed run. Safe to call on a nil receiver.
func (em *EqualizeMetrics) RecordRun(ctx context.Context, stats RunStats) {
	if em == nil {
		return
	}

	attrs := metric.WithAttributes(
		attribute.String(attrRunMode, stats.Mode),
		attribute.Bool(attrWorkersParallel, stats.Workers > 1),
	)

	em.runsTotal.Add(ctx, 1, attrs)
	em.samplesTotal.Add(ctx, int64(stats.Samples), attrs)
	em.leavesTotal.Add(ctx, int64(stats.Leaves), attrs)
	em.runDuration.Record(ctx, stats.Duration.Seconds(), attrs)
	em.maxDepth.Record(ctx, float64(stats.MaxDepth), attrs)
}
