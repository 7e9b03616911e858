package mcp

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Sumatoshi-tech/histeq/pkg/rawio"
)

// Tool name constants.
const (
	ToolNameEqualize  = "histeq_equalize"
	ToolNameHistogram = "histeq_histogram"
)

// Sentinel errors for tool input validation.
var (
	// ErrNoInput indicates neither samples nor input_path was given.
	ErrNoInput = errors.New("one of samples or input_path is required")
	// ErrAmbiguousInput indicates both samples and input_path were given.
	ErrAmbiguousInput = errors.New("samples and input_path are mutually exclusive")
	// ErrInvalidSamples indicates the samples field is not valid base64.
	ErrInvalidSamples = errors.New("samples must be standard base64")
)

// sampleSource selects where samples come from. Exactly one field is set.
type sampleSource struct {
	samples   string
	inputPath string
}

// EqualizeInput is the input schema for the histeq_equalize tool.
type EqualizeInput struct {
	Samples    string `json:"samples,omitempty"     jsonschema:"base64-encoded raw 8-bit samples"`
	InputPath  string `json:"input_path,omitempty"  jsonschema:"path to a raw sample file (.lz4 is decompressed)"`
	Threshold  int    `json:"threshold,omitempty"   jsonschema:"leaf threshold; ranges shorter than this are equalized directly (default: server setting)"`
	Workers    int    `json:"workers,omitempty"     jsonschema:"number of leaf workers (default: server setting)"`
	Mode       string `json:"mode,omitempty"        jsonschema:"divide or global (default: server setting)"`
	OutputPath string `json:"output_path,omitempty" jsonschema:"write equalized samples here instead of returning them"`
}

func (in EqualizeInput) source() sampleSource {
	return sampleSource{samples: in.Samples, inputPath: in.InputPath}
}

// HistogramInput is the input schema for the histeq_histogram tool.
type HistogramInput struct {
	Samples   string `json:"samples,omitempty"    jsonschema:"base64-encoded raw 8-bit samples"`
	InputPath string `json:"input_path,omitempty" jsonschema:"path to a raw sample file (.lz4 is decompressed)"`
}

func (in HistogramInput) source() sampleSource {
	return sampleSource{samples: in.Samples, inputPath: in.InputPath}
}

// ToolOutput is a generic wrapper for tool results.
type ToolOutput struct {
	Data any `json:"data"`
}

// errorResult builds a CallToolResult with isError set.
func errorResult(err error) (*mcpsdk.CallToolResult, ToolOutput, error) {
	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{
			&mcpsdk.TextContent{Text: err.Error()},
		},
		IsError: true,
	}, ToolOutput{}, nil
}

// jsonResult builds a CallToolResult with JSON-encoded content.
func jsonResult(value any) (*mcpsdk.CallToolResult, ToolOutput, error) {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return errorResult(fmt.Errorf("encode result: %w", err))
	}

	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{
			&mcpsdk.TextContent{Text: string(data)},
		},
	}, ToolOutput{Data: value}, nil
}

// load resolves the sample source, enforcing the byte limit for both forms.
func (s *Server) load(in sampleSource) ([]uint8, string, error) {
	switch {
	case in.samples != "" && in.inputPath != "":
		return nil, "", ErrAmbiguousInput
	case in.inputPath != "":
		return rawio.ReadSamples(in.inputPath, rawio.Options{MaxSize: s.maxBytes})
	case in.samples != "":
		decoded, err := base64.StdEncoding.DecodeString(in.samples)
		if err != nil {
			return nil, "", fmt.Errorf("%w: %w", ErrInvalidSamples, err)
		}

		samples, err := rawio.ReadStream(bytes.NewReader(decoded), rawio.Options{MaxSize: s.maxBytes})
		if err != nil {
			return nil, "", err
		}

		return samples, "", nil
	default:
		return nil, "", ErrNoInput
	}
}
