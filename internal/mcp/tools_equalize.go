package mcp

import (
	"context"
	"encoding/base64"
	"fmt"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Sumatoshi-tech/histeq/internal/framework"
	"github.com/Sumatoshi-tech/histeq/internal/report"
	"github.com/Sumatoshi-tech/histeq/pkg/histeq"
	"github.com/Sumatoshi-tech/histeq/pkg/rawio"
)

// EqualizeResult is returned by histeq_equalize.
type EqualizeResult struct {
	Summary report.Summary `json:"summary"`
	Samples string         `json:"samples,omitempty"`
}

// HistogramResult is returned by histeq_histogram.
type HistogramResult struct {
	Input  string                `json:"input,omitempty"`
	Stats  histeq.IntensityStats `json:"stats"`
	Levels map[int]int           `json:"levels"`
}

// handleEqualize processes histeq_equalize tool calls.
func (s *Server) handleEqualize(
	ctx context.Context,
	_ *mcpsdk.CallToolRequest,
	input EqualizeInput,
) (*mcpsdk.CallToolResult, ToolOutput, error) {
	samples, source, err := s.load(input.source())
	if err != nil {
		return errorResult(err)
	}

	runner := s.runner
	if input.Threshold != 0 {
		runner.Threshold = input.Threshold
	}

	if input.Workers != 0 {
		runner.Workers = input.Workers
	}

	if input.Mode != "" {
		mode, modeErr := framework.ParseMode(input.Mode)
		if modeErr != nil {
			return errorResult(modeErr)
		}

		runner.Mode = mode
	}

	res, err := runner.Run(ctx, samples)
	if err != nil {
		return errorResult(err)
	}

	out := EqualizeResult{Summary: report.NewSummary(source, input.OutputPath, res)}

	if input.OutputPath != "" {
		err = rawio.WriteSamples(input.OutputPath, res.Output)
		if err != nil {
			return errorResult(fmt.Errorf("write output: %w", err))
		}
	} else {
		out.Samples = base64.StdEncoding.EncodeToString(res.Output)
	}

	return jsonResult(out)
}

// handleHistogram processes histeq_histogram tool calls.
func (s *Server) handleHistogram(
	_ context.Context,
	_ *mcpsdk.CallToolRequest,
	input HistogramInput,
) (*mcpsdk.CallToolResult, ToolOutput, error) {
	samples, source, err := s.load(input.source())
	if err != nil {
		return errorResult(err)
	}

	hist := histeq.ComputeHistogram(samples)

	return jsonResult(HistogramResult{
		Input:  source,
		Stats:  hist.Stats(),
		Levels: hist.Levels(),
	})
}
