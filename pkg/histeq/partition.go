package histeq

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"
)

// Stats describes a completed equalization run.
type Stats struct {
	Samples  int
	Leaves   int
	MaxDepth int
	Workers  int
	Duration time.Duration
}

// LeafHook is called after each leaf has been equalized. It may be called
// from several goroutines at once when the partitioner runs in parallel.
type LeafHook func(ctx context.Context, leaf Leaf, elapsed time.Duration)

// Option configures a Partitioner.
type Option func(*Partitioner)

// WithWorkers sets the number of leaf workers. Zero selects runtime.NumCPU;
// one selects the sequential recursive path.
func WithWorkers(workers int) Option {
	return func(p *Partitioner) {
		p.workers = workers
	}
}

// WithLeafHook registers a callback invoked once per leaf.
func WithLeafHook(hook LeafHook) Option {
	return func(p *Partitioner) {
		p.hook = hook
	}
}

// Partitioner bisects a sample stream into leaves shorter than a threshold
// and equalizes each leaf against its own histogram.
type Partitioner struct {
	hook      LeafHook
	threshold int
	workers   int
}

// NewPartitioner creates a partitioner. The threshold must be at least 1.
func NewPartitioner(threshold int, opts ...Option) (*Partitioner, error) {
	if threshold < 1 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidThreshold, threshold)
	}

	p := &Partitioner{threshold: threshold}

	for _, opt := range opts {
		opt(p)
	}

	if p.workers <= 0 {
		p.workers = runtime.NumCPU()
	}

	return p, nil
}

// Threshold returns the configured leaf threshold.
func (p *Partitioner) Threshold() int {
	return p.threshold
}

// Workers returns the resolved worker count.
func (p *Partitioner) Workers() int {
	return p.workers
}

// isLeaf reports whether r is equalized directly. Ranges of one sample or
// fewer cannot be bisected into smaller pieces and are always leaves.
func (p *Partitioner) isLeaf(r Range) bool {
	return r.Len() < p.threshold || r.Len() <= 1
}

// Equalize equalizes the whole input into output.
func (p *Partitioner) Equalize(ctx context.Context, input, output []uint8) (Stats, error) {
	if len(input) != len(output) {
		return Stats{}, fmt.Errorf("%w: input=%d output=%d", ErrLengthMismatch, len(input), len(output))
	}

	return p.EqualizeRange(ctx, input, output, Range{Left: 0, Right: len(input)})
}

// EqualizeRange equalizes r of input into the same region of output.
// Nothing outside r is written.
func (p *Partitioner) EqualizeRange(ctx context.Context, input, output []uint8, r Range) (Stats, error) {
	if len(input) != len(output) {
		return Stats{}, fmt.Errorf("%w: input=%d output=%d", ErrLengthMismatch, len(input), len(output))
	}

	if !r.Within(len(input)) {
		return Stats{}, fmt.Errorf("%w: %s with %d samples", ErrInvalidRange, r, len(input))
	}

	start := time.Now()
	stats := Stats{Samples: r.Len(), Workers: p.workers}

	var err error

	if p.workers == 1 {
		err = p.recurse(ctx, input, output, Leaf{Range: r}, &stats)
	} else {
		err = p.parallel(ctx, input, output, r, &stats)
	}

	stats.Duration = time.Since(start)

	return stats, err
}

// Plan returns the leaves visited for a stream of n samples, left to right.
func (p *Partitioner) Plan(n int) []Leaf {
	var leaves []Leaf

	p.walk(Range{Left: 0, Right: max(n, 0)}, func(leaf Leaf) bool {
		leaves = append(leaves, leaf)

		return true
	})

	return leaves
}

// walk visits leaves of r in left-to-right order using an explicit stack.
// Visiting stops early when visit returns false.
func (p *Partitioner) walk(r Range, visit func(Leaf) bool) {
	stack := []Leaf{{Range: r}}

	for len(stack) > 0 {
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if p.isLeaf(top.Range) {
			if !visit(top) {
				return
			}

			continue
		}

		lower, upper := top.Split()
		stack = append(stack,
			Leaf{Range: upper, Depth: top.Depth + 1},
			Leaf{Range: lower, Depth: top.Depth + 1},
		)
	}
}

func (p *Partitioner) recurse(ctx context.Context, input, output []uint8, node Leaf, stats *Stats) error {
	if !p.isLeaf(node.Range) {
		lower, upper := node.Split()

		err := p.recurse(ctx, input, output, Leaf{Range: lower, Depth: node.Depth + 1}, stats)
		if err != nil {
			return err
		}

		return p.recurse(ctx, input, output, Leaf{Range: upper, Depth: node.Depth + 1}, stats)
	}

	err := ctx.Err()
	if err != nil {
		return fmt.Errorf("equalize %s: %w", node.Range, err)
	}

	start := time.Now()
	equalized := EqualizeLocal(input[node.Left:node.Right])
	copy(output[node.Left:node.Right], equalized)

	stats.record(node)
	p.notify(ctx, node, time.Since(start))

	return nil
}

// leafResult carries an equalized leaf from a worker to the collector.
type leafResult struct {
	leaf    Leaf
	samples []uint8
}

// parallel flattens the bisection into a worklist consumed by a worker pool.
// A single collector copies results into output by index.
func (p *Partitioner) parallel(ctx context.Context, input, output []uint8, r Range, stats *Stats) error {
	err := ctx.Err()
	if err != nil {
		return fmt.Errorf("equalize %s: %w", r, err)
	}

	group, groupCtx := errgroup.WithContext(ctx)

	jobs := make(chan Leaf, p.workers)
	results := make(chan leafResult, p.workers)

	group.Go(func() error {
		defer close(jobs)

		var sendErr error

		p.walk(r, func(leaf Leaf) bool {
			select {
			case jobs <- leaf:
				return true
			case <-groupCtx.Done():
				sendErr = fmt.Errorf("dispatch %s: %w", leaf.Range, groupCtx.Err())

				return false
			}
		})

		return sendErr
	})

	var workers errgroup.Group

	for range p.workers {
		workers.Go(func() error {
			for leaf := range jobs {
				start := time.Now()
				equalized := EqualizeLocal(input[leaf.Left:leaf.Right])

				select {
				case results <- leafResult{leaf: leaf, samples: equalized}:
				case <-groupCtx.Done():
					return fmt.Errorf("equalize %s: %w", leaf.Range, groupCtx.Err())
				}

				p.notify(groupCtx, leaf, time.Since(start))
			}

			return nil
		})
	}

	group.Go(func() error {
		defer close(results)

		return workers.Wait()
	})

	for res := range results {
		copy(output[res.leaf.Left:res.leaf.Right], res.samples)
		stats.record(res.leaf)
	}

	return group.Wait()
}

func (p *Partitioner) notify(ctx context.Context, leaf Leaf, elapsed time.Duration) {
	if p.hook != nil {
		p.hook(ctx, leaf, elapsed)
	}
}

func (s *Stats) record(leaf Leaf) {
	s.Leaves++
	s.MaxDepth = max(s.MaxDepth, leaf.Depth)
}
