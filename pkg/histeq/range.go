package histeq

import "fmt"

// Range is a half-open interval [Left, Right) over a sample stream.
type Range struct {
	Left  int `json:"left"  yaml:"left"`
	Right int `json:"right" yaml:"right"`
}

// Len returns the number of samples covered by the range.
func (r Range) Len() int {
	return r.Right - r.Left
}

// Split bisects the range at floor((Left+Right)/2).
func (r Range) Split() (lower, upper Range) {
	middle := (r.Left + r.Right) / 2

	return Range{Left: r.Left, Right: middle}, Range{Left: middle, Right: r.Right}
}

// Within reports whether the range is well formed for a stream of n samples.
func (r Range) Within(n int) bool {
	return r.Left >= 0 && r.Left <= r.Right && r.Right <= n
}

// String formats the range as [left,right).
func (r Range) String() string {
	return fmt.Sprintf("[%d,%d)", r.Left, r.Right)
}

// Leaf is a range equalized directly, tagged with its recursion depth.
type Leaf struct {
	Range
	Depth int `json:"depth" yaml:"depth"`
}
