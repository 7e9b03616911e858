// Package config loads histeq settings from a YAML file, HISTEQ_* environment
// variables, and built-in defaults.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
)

// Config is the top-level configuration struct for histeq.
// Field tags use mapstructure for viper unmarshalling.
type Config struct {
	Equalize  EqualizeConfig  `mapstructure:"equalize"`
	Input     InputConfig     `mapstructure:"input"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	Server    ServerConfig    `mapstructure:"server"`
}

// EqualizeConfig holds the equalization knobs.
type EqualizeConfig struct {
	Threshold int    `mapstructure:"threshold"`
	Workers   int    `mapstructure:"workers"`
	Mode      string `mapstructure:"mode"`
}

// InputConfig bounds and shapes raw sample input.
type InputConfig struct {
	MaxSize string `mapstructure:"max_size"`
	Width   int    `mapstructure:"width"`
	Height  int    `mapstructure:"height"`
}

// LoggingConfig controls the slog handler.
type LoggingConfig struct {
	Level string `mapstructure:"level"`
	JSON  bool   `mapstructure:"json"`
}

// TelemetryConfig controls OTLP export.
type TelemetryConfig struct {
	OTLPEndpoint string  `mapstructure:"otlp_endpoint"`
	OTLPHeaders  string  `mapstructure:"otlp_headers"`
	OTLPInsecure bool    `mapstructure:"otlp_insecure"`
	Environment  string  `mapstructure:"environment"`
	SampleRatio  float64 `mapstructure:"sample_ratio"`
	TraceLeaves  bool    `mapstructure:"trace_leaves"`
}

// ServerConfig holds HTTP server settings for the serve command.
type ServerConfig struct {
	Addr         string        `mapstructure:"addr"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
	MaxBody      string        `mapstructure:"max_body"`
}

// Sentinel errors for configuration validation.
var (
	// ErrInvalidThreshold indicates the leaf threshold is below 1.
	ErrInvalidThreshold = errors.New("equalize.threshold must be at least 1")
	// ErrInvalidWorkers indicates the workers value is negative.
	ErrInvalidWorkers = errors.New("equalize.workers must be non-negative")
	// ErrInvalidMode indicates an unknown equalization mode.
	ErrInvalidMode = errors.New("equalize.mode must be divide or global")
	// ErrInvalidMaxSize indicates an unparsable or zero input size limit.
	ErrInvalidMaxSize = errors.New("input.max_size must be a positive size")
	// ErrInvalidDimensions indicates a negative or half-specified raster shape.
	ErrInvalidDimensions = errors.New("input.width and input.height must both be positive or both zero")
	// ErrInvalidSampleRatio indicates the sample ratio is out of range.
	ErrInvalidSampleRatio = errors.New("telemetry.sample_ratio must be between 0 and 1")
	// ErrInvalidMaxBody indicates an unparsable or zero request body limit.
	ErrInvalidMaxBody = errors.New("server.max_body must be a positive size")
	// ErrInvalidTimeout indicates a negative server timeout.
	ErrInvalidTimeout = errors.New("server timeouts must be non-negative")
)

const (
	modeDivide = "divide"
	modeGlobal = "global"

	sampleRatioMax = 1.0
)

// Validate checks Config invariants and returns the first error found.
func (c *Config) Validate() error {
	err := c.validateEqualize()
	if err != nil {
		return err
	}

	err = c.validateInput()
	if err != nil {
		return err
	}

	if c.Telemetry.SampleRatio < 0 || c.Telemetry.SampleRatio > sampleRatioMax {
		return ErrInvalidSampleRatio
	}

	return c.validateServer()
}

func (c *Config) validateEqualize() error {
	if c.Equalize.Threshold < 1 {
		return ErrInvalidThreshold
	}

	if c.Equalize.Workers < 0 {
		return ErrInvalidWorkers
	}

	switch c.Equalize.Mode {
	case "", modeDivide, modeGlobal:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidMode, c.Equalize.Mode)
	}

	return nil
}

func (c *Config) validateInput() error {
	_, err := c.Input.MaxSizeBytes()
	if err != nil {
		return err
	}

	if c.Input.Width < 0 || c.Input.Height < 0 || (c.Input.Width == 0) != (c.Input.Height == 0) {
		return ErrInvalidDimensions
	}

	return nil
}

func (c *Config) validateServer() error {
	if c.Server.ReadTimeout < 0 || c.Server.WriteTimeout < 0 || c.Server.IdleTimeout < 0 {
		return ErrInvalidTimeout
	}

	_, err := c.Server.MaxBodyBytes()

	return err
}

// ExpectedSamples returns width*height, or zero when no shape is configured.
func (in InputConfig) ExpectedSamples() int {
	return in.Width * in.Height
}

// MaxSizeBytes parses MaxSize as a humanized byte count.
func (in InputConfig) MaxSizeBytes() (int64, error) {
	return parsePositiveSize(in.MaxSize, ErrInvalidMaxSize)
}

// MaxBodyBytes parses MaxBody as a humanized byte count.
func (s ServerConfig) MaxBodyBytes() (int64, error) {
	return parsePositiveSize(s.MaxBody, ErrInvalidMaxBody)
}

func parsePositiveSize(raw string, sentinel error) (int64, error) {
	size, err := humanize.ParseBytes(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %q: %w", sentinel, raw, err)
	}

	if size == 0 || size > uint64(maxSizeBytes) {
		return 0, fmt.Errorf("%w: %q", sentinel, raw)
	}

	return int64(size), nil
}

// maxSizeBytes caps parsed limits well below int64 overflow.
const maxSizeBytes = int64(1) << 50
