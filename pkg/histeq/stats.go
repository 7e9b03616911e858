package histeq

import "math"

// IntensityStats summarizes the distribution described by a Histogram.
// All fields are zero for an empty histogram.
type IntensityStats struct {
	Total          int     `json:"total"           yaml:"total"`
	Min            int     `json:"min"             yaml:"min"`
	Max            int     `json:"max"             yaml:"max"`
	Median         int     `json:"median"          yaml:"median"`
	DistinctLevels int     `json:"distinct_levels" yaml:"distinct_levels"`
	Mean           float64 `json:"mean"            yaml:"mean"`
	StdDev         float64 `json:"stddev"          yaml:"stddev"`
	Entropy        float64 `json:"entropy_bits"    yaml:"entropy_bits"`
}

// Stats computes intensity statistics. Standard deviation is the population
// form (divided by n).
func (h *Histogram) Stats() IntensityStats {
	total := h.Total()
	if total == 0 {
		return IntensityStats{}
	}

	st := IntensityStats{Total: total, Min: -1}

	var sum float64

	for level, count := range h {
		if count == 0 {
			continue
		}

		if st.Min < 0 {
			st.Min = level
		}

		st.Max = level
		st.DistinctLevels++
		sum += float64(level) * float64(count)
	}

	st.Mean = sum / float64(total)

	var sumSq, entropy float64

	for level, count := range h {
		if count == 0 {
			continue
		}

		diff := float64(level) - st.Mean
		sumSq += diff * diff * float64(count)

		prob := float64(count) / float64(total)
		entropy -= prob * math.Log2(prob)
	}

	st.StdDev = math.Sqrt(sumSq / float64(total))
	st.Entropy = entropy
	st.Median = h.Quantile(0.5)

	return st
}

// Quantile returns the smallest level whose cumulative share reaches q.
// q is clamped to [0, 1]. An empty histogram yields 0.
func (h *Histogram) Quantile(q float64) int {
	total := h.Total()
	if total == 0 {
		return 0
	}

	q = max(0, min(q, 1))
	target := int(math.Ceil(q * float64(total)))
	target = max(target, 1)

	cdf := ComputeCumulative(*h)

	for level, running := range cdf {
		if running >= target {
			return level
		}
	}

	return MaxIntensity
}
