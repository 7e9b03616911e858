package report

import (
	"fmt"
	"io"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/Sumatoshi-tech/histeq/pkg/histeq"
)

const floatPrecision = 2

func newTable(w io.Writer) table.Writer {
	tbl := table.NewWriter()
	tbl.SetOutputMirror(w)
	tbl.SetStyle(table.StyleLight)
	tbl.Style().Options.SeparateRows = false

	return tbl
}

// WriteTable prints the run parameters followed by before/after statistics.
func WriteTable(w io.Writer, s Summary) {
	run := newTable(w)
	run.SetTitle("Run")
	run.AppendRow(table.Row{"Input", s.Input})

	if s.Output != "" {
		run.AppendRow(table.Row{"Output", s.Output})
	}

	run.AppendRow(table.Row{"Mode", s.Mode})

	if s.Threshold > 0 {
		run.AppendRow(table.Row{"Threshold", humanize.Comma(int64(s.Threshold))})
	}

	run.AppendRows([]table.Row{
		{"Samples", fmt.Sprintf("%s (%s)", humanize.Comma(int64(s.Samples)), humanize.IBytes(uint64(s.Samples)))},
		{"Leaves", humanize.Comma(int64(s.Leaves))},
		{"Max depth", s.MaxDepth},
		{"Workers", s.Workers},
		{"Duration", s.Duration.String()},
	})
	run.Render()

	cmp := newTable(w)
	cmp.SetTitle("Intensity")
	cmp.AppendHeader(table.Row{"Metric", "Before", "After"})
	cmp.AppendRows(statRows(s.Before, s.After))
	cmp.Render()
}

// WriteStatsTable prints statistics for a single histogram.
func WriteStatsTable(w io.Writer, title string, st histeq.IntensityStats) {
	tbl := newTable(w)
	tbl.SetTitle(title)
	tbl.AppendHeader(table.Row{"Metric", "Value"})

	for _, row := range statRows(st) {
		tbl.AppendRow(row)
	}

	tbl.Render()
}

// statRows lays out one column per stats value.
func statRows(columns ...histeq.IntensityStats) []table.Row {
	fields := []struct {
		name  string
		value func(histeq.IntensityStats) string
	}{
		{"Samples", func(st histeq.IntensityStats) string { return humanize.Comma(int64(st.Total)) }},
		{"Min", func(st histeq.IntensityStats) string { return strconv.Itoa(st.Min) }},
		{"Max", func(st histeq.IntensityStats) string { return strconv.Itoa(st.Max) }},
		{"Median", func(st histeq.IntensityStats) string { return strconv.Itoa(st.Median) }},
		{"Mean", func(st histeq.IntensityStats) string { return formatFloat(st.Mean) }},
		{"Std dev", func(st histeq.IntensityStats) string { return formatFloat(st.StdDev) }},
		{"Levels used", func(st histeq.IntensityStats) string { return strconv.Itoa(st.DistinctLevels) }},
		{"Entropy (bits)", func(st histeq.IntensityStats) string { return formatFloat(st.Entropy) }},
	}

	rows := make([]table.Row, 0, len(fields))

	for _, f := range fields {
		row := table.Row{f.name}
		for _, st := range columns {
			row = append(row, f.value(st))
		}

		rows = append(rows, row)
	}

	return rows
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', floatPrecision, 64)
}
