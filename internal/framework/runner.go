// Package framework orchestrates equalization runs: it wraps the histeq
// partitioner with spans, metrics, and logs shared by every entry point.
package framework

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/Sumatoshi-tech/histeq/internal/observability"
	"github.com/Sumatoshi-tech/histeq/pkg/histeq"
)

// tracerName is the default OTel tracer name for the framework package.
const tracerName = "histeq"

// Runner equalizes sample streams with a fixed configuration. A Runner is
// safe for concurrent use.
type Runner struct {
	// Threshold is the leaf threshold for ModeDivide.
	Threshold int

	// Workers is the leaf worker count. Zero selects runtime.NumCPU.
	Workers int

	// Mode selects divide-and-conquer or single-pass equalization.
	Mode Mode

	// Tracer creates run and leaf spans. When nil, falls back to otel.Tracer("histeq").
	Tracer trace.Tracer

	// Metrics records run and leaf instruments. Nil disables recording.
	Metrics *observability.EqualizeMetrics

	// Logger receives run summaries. Nil falls back to slog.Default().
	Logger *slog.Logger
}

// Result is the outcome of one run.
type Result struct {
	Output    []uint8
	Mode      Mode
	Threshold int
	Stats     histeq.Stats

	Before histeq.Histogram
	After  histeq.Histogram
}

// tracer returns the configured tracer, falling back to the global provider.
func (runner *Runner) tracer() trace.Tracer {
	if runner.Tracer != nil {
		return runner.Tracer
	}

	return otel.Tracer(tracerName)
}

func (runner *Runner) logger() *slog.Logger {
	if runner.Logger != nil {
		return runner.Logger
	}

	return slog.Default()
}

// Validate checks the runner configuration without running it.
func (runner *Runner) Validate() error {
	_, err := ParseMode(string(runner.Mode))
	if err != nil {
		return err
	}

	if runner.mode() == ModeDivide && runner.Threshold < 1 {
		return fmt.Errorf("%w: %d", histeq.ErrInvalidThreshold, runner.Threshold)
	}

	return nil
}

func (runner *Runner) mode() Mode {
	if runner.Mode == "" {
		return ModeDivide
	}

	return runner.Mode
}

// Run equalizes input into a freshly allocated output buffer.
func (runner *Runner) Run(ctx context.Context, input []uint8) (*Result, error) {
	mode := runner.mode()

	ctx, span := runner.tracer().Start(ctx, "histeq.run",
		trace.WithAttributes(
			attribute.String("histeq.mode", string(mode)),
			attribute.Int("histeq.samples", len(input)),
			attribute.Int("histeq.threshold", runner.Threshold),
		))
	defer span.End()

	err := runner.Validate()
	if err != nil {
		observability.RecordSpanError(span, err, observability.ErrTypeValidation, observability.ErrSourceClient)

		return nil, err
	}

	res := &Result{
		Output:    make([]uint8, len(input)),
		Mode:      mode,
		Threshold: runner.Threshold,
		Before:    histeq.ComputeHistogram(input),
	}

	if mode == ModeGlobal {
		res.Stats = runner.global(input, res.Output)
	} else {
		res.Stats, err = runner.divide(ctx, input, res.Output)
		if err != nil {
			errType := observability.ErrTypeInternal
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				errType = observability.ErrTypeCancelled
			}

			observability.RecordSpanError(span, err, errType, "")

			return nil, err
		}
	}

	res.After = histeq.ComputeHistogram(res.Output)

	span.SetAttributes(
		attribute.Int("histeq.leaves", res.Stats.Leaves),
		attribute.Int("histeq.depth.max", res.Stats.MaxDepth),
		attribute.Int("histeq.workers", res.Stats.Workers),
	)

	runner.Metrics.RecordRun(ctx, observability.RunStats{
		Mode:     string(mode),
		Samples:  res.Stats.Samples,
		Leaves:   res.Stats.Leaves,
		MaxDepth: res.Stats.MaxDepth,
		Workers:  res.Stats.Workers,
		Duration: res.Stats.Duration,
	})

	runner.logger().DebugContext(ctx, "equalization complete",
		"mode", mode,
		"samples", res.Stats.Samples,
		"leaves", res.Stats.Leaves,
		"max_depth", res.Stats.MaxDepth,
		"workers", res.Stats.Workers,
		"duration", res.Stats.Duration,
	)

	return res, nil
}

func (runner *Runner) global(input, output []uint8) histeq.Stats {
	start := time.Now()

	copy(output, histeq.EqualizeGlobal(input))

	return histeq.Stats{
		Samples:  len(input),
		Leaves:   1,
		Workers:  1,
		Duration: time.Since(start),
	}
}

func (runner *Runner) divide(ctx context.Context, input, output []uint8) (histeq.Stats, error) {
	partitioner, err := histeq.NewPartitioner(runner.Threshold,
		histeq.WithWorkers(runner.Workers),
		histeq.WithLeafHook(runner.observeLeaf),
	)
	if err != nil {
		return histeq.Stats{}, err
	}

	stats, err := partitioner.Equalize(ctx, input, output)
	if err != nil {
		return stats, fmt.Errorf("equalize %d samples: %w", len(input), err)
	}

	return stats, nil
}

// observeLeaf emits a span covering the leaf's work and records leaf metrics.
// The span is suppressed by the filtering provider unless leaf tracing is on.
func (runner *Runner) observeLeaf(ctx context.Context, leaf histeq.Leaf, elapsed time.Duration) {
	end := time.Now()

	_, span := runner.tracer().Start(ctx, observability.SpanLeaf,
		trace.WithTimestamp(end.Add(-elapsed)),
		trace.WithAttributes(
			attribute.Int("histeq.leaf.left", leaf.Left),
			attribute.Int("histeq.leaf.right", leaf.Right),
			attribute.Int("histeq.leaf.depth", leaf.Depth),
		))
	span.End(trace.WithTimestamp(end))

	runner.Metrics.RecordLeaf(ctx, leaf.Len(), elapsed)
}
