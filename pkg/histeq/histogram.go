package histeq

// HistogramSize is the number of distinct 8-bit intensities.
const HistogramSize = 256

// MaxIntensity is the largest representable sample value.
const MaxIntensity = HistogramSize - 1

// Histogram counts occurrences of each intensity in a sample range.
type Histogram [HistogramSize]int

// Cumulative is the prefix-sum form of a Histogram.
type Cumulative [HistogramSize]int

// ComputeHistogram counts every intensity in samples.
// An empty slice yields an all-zero histogram.
func ComputeHistogram(samples []uint8) Histogram {
	var hist Histogram

	for _, v := range samples {
		hist[v]++
	}

	return hist
}

// Total returns the number of samples counted.
func (h *Histogram) Total() int {
	total := 0

	for _, c := range h {
		total += c
	}

	return total
}

// Levels returns the count of every intensity that occurs at least once.
func (h *Histogram) Levels() map[int]int {
	levels := make(map[int]int)

	for level, count := range h {
		if count > 0 {
			levels[level] = count
		}
	}

	return levels
}

// ComputeCumulative builds the cumulative histogram left to right.
func ComputeCumulative(hist Histogram) Cumulative {
	var cdf Cumulative

	cdf[0] = hist[0]

	for i := 1; i < HistogramSize; i++ {
		cdf[i] = cdf[i-1] + hist[i]
	}

	return cdf
}

// Remap returns floor(cdf[v] * 255 / length) for a leaf of the given length.
// The product is computed in 64 bits. length must be positive.
func (c *Cumulative) Remap(v uint8, length int) uint8 {
	return uint8(int64(c[v]) * MaxIntensity / int64(length)) //nolint:gosec // cdf[v] <= length, so the quotient is <= 255.
}
