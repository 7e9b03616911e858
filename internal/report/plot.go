package report

import (
	"fmt"
	"io"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/Sumatoshi-tech/histeq/pkg/histeq"
)

const (
	chartWidth    = "100%"
	chartHeight   = "420px"
	dataZoomEnd   = 100
	colorBefore   = "#5470c6"
	colorAfter    = "#91cc75"
	pageTitle     = "Histogram Equalization"
	cdfPercentMax = 100
)

// Series is one named histogram drawn on a plot.
type Series struct {
	Name      string
	Histogram histeq.Histogram
}

// WritePlot renders an HTML page with a per-level bar chart and a cumulative
// distribution line chart for every series.
func WritePlot(w io.Writer, title string, series ...Series) error {
	page := components.NewPage()
	page.PageTitle = pageTitle

	page.AddCharts(
		histogramChart(title, series),
		cumulativeChart(series),
	)

	err := page.Render(w)
	if err != nil {
		return fmt.Errorf("render plot: %w", err)
	}

	return nil
}

func levelLabels() []string {
	labels := make([]string, histeq.HistogramSize)
	for level := range labels {
		labels[level] = strconv.Itoa(level)
	}

	return labels
}

func seriesColor(idx int) string {
	if idx == 0 {
		return colorBefore
	}

	return colorAfter
}

func histogramChart(title string, series []Series) *charts.Bar {
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: title, Subtitle: "Samples per intensity level"}),
		charts.WithInitializationOpts(opts.Initialization{Width: chartWidth, Height: chartHeight}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Top: "bottom"}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "slider", Start: 0, End: dataZoomEnd}),
	)

	bar.SetXAxis(levelLabels())

	for idx, s := range series {
		data := make([]opts.BarData, histeq.HistogramSize)
		for level, count := range s.Histogram {
			data[level] = opts.BarData{Value: count}
		}

		bar.AddSeries(s.Name, data, charts.WithItemStyleOpts(opts.ItemStyle{Color: seriesColor(idx)}))
	}

	return bar
}

func cumulativeChart(series []Series) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: "Cumulative distribution", Subtitle: "Percent of samples at or below each level"}),
		charts.WithInitializationOpts(opts.Initialization{Width: chartWidth, Height: chartHeight}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Top: "bottom"}),
	)

	line.SetXAxis(levelLabels())

	for idx, s := range series {
		cdf := histeq.ComputeCumulative(s.Histogram)
		total := s.Histogram.Total()

		data := make([]opts.LineData, histeq.HistogramSize)
		for level := range data {
			pct := 0.0
			if total > 0 {
				pct = float64(cdf[level]) * cdfPercentMax / float64(total)
			}

			data[level] = opts.LineData{Value: pct}
		}

		line.AddSeries(s.Name, data, charts.WithItemStyleOpts(opts.ItemStyle{Color: seriesColor(idx)}))
	}

	return line
}
