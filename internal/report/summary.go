// Package report renders equalization results for people: terminal tables,
// colored status lines, HTML histogram plots, and saved run summaries.
package report

import (
	"time"

	"github.com/Sumatoshi-tech/histeq/internal/framework"
	"github.com/Sumatoshi-tech/histeq/pkg/histeq"
	"github.com/Sumatoshi-tech/histeq/pkg/persist"
)

// Summary describes one equalization run.
type Summary struct {
	Input     string        `json:"input"               yaml:"input"`
	Output    string        `json:"output,omitempty"    yaml:"output,omitempty"`
	Mode      string        `json:"mode"                yaml:"mode"`
	Threshold int           `json:"threshold,omitempty" yaml:"threshold,omitempty"`
	Workers   int           `json:"workers"             yaml:"workers"`
	Samples   int           `json:"samples"             yaml:"samples"`
	Leaves    int           `json:"leaves"              yaml:"leaves"`
	MaxDepth  int           `json:"max_depth"           yaml:"max_depth"`
	Duration  time.Duration `json:"duration_ns"         yaml:"duration"`

	Before histeq.IntensityStats `json:"before" yaml:"before"`
	After  histeq.IntensityStats `json:"after"  yaml:"after"`
}

// NewSummary builds a Summary from a completed run.
func NewSummary(input, output string, res *framework.Result) Summary {
	s := Summary{
		Input:    input,
		Output:   output,
		Mode:     string(res.Mode),
		Workers:  res.Stats.Workers,
		Samples:  res.Stats.Samples,
		Leaves:   res.Stats.Leaves,
		MaxDepth: res.Stats.MaxDepth,
		Duration: res.Stats.Duration,
		Before:   res.Before.Stats(),
		After:    res.After.Stats(),
	}

	if res.Mode == framework.ModeDivide {
		s.Threshold = res.Threshold
	}

	return s
}

// Save writes the summary as JSON or YAML depending on the extension of path.
func (s Summary) Save(path string) error {
	return persist.SaveFile(path, s)
}
