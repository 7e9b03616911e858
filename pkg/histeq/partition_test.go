package histeq_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/histeq/pkg/histeq"
)

func equalize(t *testing.T, in []uint8, threshold, workers int) []uint8 {
	t.Helper()

	p, err := histeq.NewPartitioner(threshold, histeq.WithWorkers(workers))
	require.NoError(t, err)

	out := make([]uint8, len(in))

	_, err = p.Equalize(context.Background(), in, out)
	require.NoError(t, err)

	return out
}

func TestNewPartitioner_RejectsNonPositiveThreshold(t *testing.T) {
	t.Parallel()

	for _, threshold := range []int{0, -1, -1000} {
		p, err := histeq.NewPartitioner(threshold)
		require.ErrorIs(t, err, histeq.ErrInvalidThreshold)
		assert.Nil(t, p)
	}
}

func TestNewPartitioner_DefaultWorkers(t *testing.T) {
	t.Parallel()

	p, err := histeq.NewPartitioner(10)
	require.NoError(t, err)

	assert.Equal(t, 10, p.Threshold())
	assert.Positive(t, p.Workers())
}

func TestPartitioner_LengthMismatch(t *testing.T) {
	t.Parallel()

	p, err := histeq.NewPartitioner(4, histeq.WithWorkers(1))
	require.NoError(t, err)

	_, err = p.Equalize(context.Background(), make([]uint8, 8), make([]uint8, 7))
	require.ErrorIs(t, err, histeq.ErrLengthMismatch)
}

func TestPartitioner_InvalidRange(t *testing.T) {
	t.Parallel()

	p, err := histeq.NewPartitioner(4, histeq.WithWorkers(1))
	require.NoError(t, err)

	in := make([]uint8, 8)
	out := make([]uint8, 8)

	for _, r := range []histeq.Range{{Left: -1, Right: 2}, {Left: 5, Right: 3}, {Left: 0, Right: 9}} {
		_, err = p.EqualizeRange(context.Background(), in, out, r)
		require.ErrorIs(t, err, histeq.ErrInvalidRange, "range %s", r)
	}
}

func TestPartitioner_EmptyRangeIsNoop(t *testing.T) {
	t.Parallel()

	p, err := histeq.NewPartitioner(4, histeq.WithWorkers(1))
	require.NoError(t, err)

	in := []uint8{1, 2, 3, 4, 5, 6}
	out := []uint8{9, 9, 9, 9, 9, 9}

	stats, err := p.EqualizeRange(context.Background(), in, out, histeq.Range{Left: 3, Right: 3})
	require.NoError(t, err)

	assert.Equal(t, []uint8{9, 9, 9, 9, 9, 9}, out)
	assert.Equal(t, 1, stats.Leaves)
	assert.Zero(t, stats.Samples)
}

func TestPartitioner_EmptyStream(t *testing.T) {
	t.Parallel()

	for _, workers := range []int{1, 4} {
		p, err := histeq.NewPartitioner(3, histeq.WithWorkers(workers))
		require.NoError(t, err)

		stats, err := p.Equalize(context.Background(), []uint8{}, []uint8{})
		require.NoError(t, err)
		assert.Equal(t, 1, stats.Leaves)
	}
}

func TestPartitioner_RangeWritesOnlyInside(t *testing.T) {
	t.Parallel()

	p, err := histeq.NewPartitioner(2, histeq.WithWorkers(1))
	require.NoError(t, err)

	in := randomSamples(6, 32)
	out := make([]uint8, len(in))

	for i := range out {
		out[i] = 42
	}

	_, err = p.EqualizeRange(context.Background(), in, out, histeq.Range{Left: 8, Right: 20})
	require.NoError(t, err)

	for i := range out {
		if i < 8 || i >= 20 {
			assert.Equal(t, uint8(42), out[i], "index %d", i)
		}
	}
}

func TestPartitioner_SingleLeafMatchesLocal(t *testing.T) {
	t.Parallel()

	in := randomSamples(7, 999)

	// A range is a leaf iff its length is strictly below the threshold.
	out := equalize(t, in, len(in)+1, 1)

	assert.Equal(t, histeq.EqualizeLocal(in), out)
}

func TestPartitioner_ThresholdEqualToLengthSplitsOnce(t *testing.T) {
	t.Parallel()

	p, err := histeq.NewPartitioner(8, histeq.WithWorkers(1))
	require.NoError(t, err)

	leaves := p.Plan(8)

	require.Len(t, leaves, 2)
	assert.Equal(t, histeq.Range{Left: 0, Right: 4}, leaves[0].Range)
	assert.Equal(t, histeq.Range{Left: 4, Right: 8}, leaves[1].Range)
}

func TestPartitioner_ThresholdSplitDiffersFromGlobal(t *testing.T) {
	t.Parallel()

	in := []uint8{0, 0, 10, 10, 200, 200, 250, 250}

	p, err := histeq.NewPartitioner(3, histeq.WithWorkers(1))
	require.NoError(t, err)

	leaves := p.Plan(len(in))
	require.Len(t, leaves, 4)

	for i, leaf := range leaves {
		assert.Equal(t, histeq.Range{Left: 2 * i, Right: 2*i + 2}, leaf.Range)
		assert.Equal(t, 2, leaf.Depth)
	}

	out := equalize(t, in, 3, 1)

	// Every leaf holds a single level, so each maps to 255 locally.
	assert.Equal(t, []uint8{255, 255, 255, 255, 255, 255, 255, 255}, out)
	assert.Equal(t, []uint8{63, 63, 127, 127, 191, 191, 255, 255}, histeq.EqualizeGlobal(in))
	assert.NotEqual(t, histeq.EqualizeGlobal(in), out)
}

func TestPartitioner_PlanTilesStream(t *testing.T) {
	t.Parallel()

	for _, threshold := range []int{1, 2, 3, 7, 64, 1000} {
		p, err := histeq.NewPartitioner(threshold, histeq.WithWorkers(1))
		require.NoError(t, err)

		for n := 0; n <= 300; n++ {
			leaves := p.Plan(n)
			require.NotEmpty(t, leaves)

			next := 0

			for _, leaf := range leaves {
				require.Equal(t, next, leaf.Left, "threshold=%d n=%d", threshold, n)
				require.GreaterOrEqual(t, leaf.Right, leaf.Left)
				require.True(t, leaf.Len() < threshold || leaf.Len() <= 1)

				next = leaf.Right
			}

			require.Equal(t, n, next, "threshold=%d n=%d", threshold, n)
		}
	}
}

func TestPartitioner_StatsMatchPlan(t *testing.T) {
	t.Parallel()

	in := randomSamples(8, 10_000)

	for _, workers := range []int{1, 3} {
		p, err := histeq.NewPartitioner(100, histeq.WithWorkers(workers))
		require.NoError(t, err)

		plan := p.Plan(len(in))
		maxDepth := 0

		for _, leaf := range plan {
			maxDepth = max(maxDepth, leaf.Depth)
		}

		stats, err := p.Equalize(context.Background(), in, make([]uint8, len(in)))
		require.NoError(t, err)

		assert.Equal(t, len(plan), stats.Leaves)
		assert.Equal(t, maxDepth, stats.MaxDepth)
		assert.Equal(t, len(in), stats.Samples)
		assert.Equal(t, workers, stats.Workers)
	}
}

func TestPartitioner_EachLeafMatchesLocalEqualization(t *testing.T) {
	t.Parallel()

	in := randomSamples(9, 5000)
	out := equalize(t, in, 333, 1)

	p, err := histeq.NewPartitioner(333)
	require.NoError(t, err)

	for _, leaf := range p.Plan(len(in)) {
		assert.Equal(t, histeq.EqualizeLocal(in[leaf.Left:leaf.Right]), out[leaf.Left:leaf.Right], "leaf %s", leaf.Range)
	}
}

func TestPartitioner_ParallelMatchesSequential(t *testing.T) {
	t.Parallel()

	in := randomSamples(10, 65_537)

	for _, threshold := range []int{1, 2, 17, 1000, 70_000} {
		sequential := equalize(t, in, threshold, 1)

		for _, workers := range []int{2, 4, 16} {
			assert.Equal(t, sequential, equalize(t, in, threshold, workers), "threshold=%d workers=%d", threshold, workers)
		}
	}
}

func TestPartitioner_LeafHookSeesEveryLeaf(t *testing.T) {
	t.Parallel()

	var (
		mu   sync.Mutex
		seen []histeq.Range
	)

	hook := func(_ context.Context, leaf histeq.Leaf, elapsed time.Duration) {
		mu.Lock()
		defer mu.Unlock()

		assert.GreaterOrEqual(t, elapsed, time.Duration(0))

		seen = append(seen, leaf.Range)
	}

	p, err := histeq.NewPartitioner(50, histeq.WithWorkers(4), histeq.WithLeafHook(hook))
	require.NoError(t, err)

	in := randomSamples(11, 1234)

	_, err = p.Equalize(context.Background(), in, make([]uint8, len(in)))
	require.NoError(t, err)

	expected := make([]histeq.Range, 0)
	for _, leaf := range p.Plan(len(in)) {
		expected = append(expected, leaf.Range)
	}

	assert.ElementsMatch(t, expected, seen)
}

func TestPartitioner_CancelledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	in := randomSamples(12, 4096)

	for _, workers := range []int{1, 4} {
		p, err := histeq.NewPartitioner(16, histeq.WithWorkers(workers))
		require.NoError(t, err)

		_, err = p.Equalize(ctx, in, make([]uint8, len(in)))
		require.ErrorIs(t, err, context.Canceled)
	}
}

func TestPartitioner_ThresholdOneTerminates(t *testing.T) {
	t.Parallel()

	in := []uint8{5, 1, 9}
	out := equalize(t, in, 1, 1)

	assert.Equal(t, []uint8{255, 255, 255}, out)
}
