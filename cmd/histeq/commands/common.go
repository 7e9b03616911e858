// Package commands implements the histeq subcommands.
package commands

import (
	"context"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/histeq/internal/config"
	"github.com/Sumatoshi-tech/histeq/internal/framework"
	"github.com/Sumatoshi-tech/histeq/internal/observability"
	"github.com/Sumatoshi-tech/histeq/internal/report"
	"github.com/Sumatoshi-tech/histeq/pkg/version"
)

// Persistent flag names shared with the root command.
const (
	flagConfig  = "config"
	flagVerbose = "verbose"
	flagQuiet   = "quiet"
	flagNoColor = "no-color"
)

// session is the per-invocation state every command builds first.
type session struct {
	cfg       *config.Config
	providers observability.Providers
	metrics   *observability.EqualizeMetrics
}

// newSession loads configuration and initializes observability for mode.
// Adjustments run after the verbosity flags are applied.
// The caller must call close when done.
func newSession(
	cmd *cobra.Command,
	mode observability.AppMode,
	opts observability.Options,
	adjust ...func(*observability.Config),
) (*session, error) {
	cfg, err := config.LoadConfig(stringFlag(cmd, flagConfig))
	if err != nil {
		return nil, err
	}

	obsCfg := cfg.ApplyToObservability(version.Version, mode)

	switch {
	case boolFlag(cmd, flagVerbose):
		obsCfg.LogLevel = slog.LevelDebug
	case boolFlag(cmd, flagQuiet):
		obsCfg.LogLevel = slog.LevelWarn
	}

	for _, fn := range adjust {
		fn(&obsCfg)
	}

	if opts.LogOutput == nil {
		opts.LogOutput = cmd.ErrOrStderr()
	}

	if boolFlag(cmd, flagNoColor) {
		report.SetColor(false)
	}

	providers, err := observability.Init(obsCfg, opts)
	if err != nil {
		return nil, err
	}

	metrics, err := observability.NewEqualizeMetrics(providers.Meter)
	if err != nil {
		_ = providers.Shutdown(context.Background())

		return nil, err
	}

	return &session{cfg: cfg, providers: providers, metrics: metrics}, nil
}

// runner builds a framework.Runner from the loaded configuration.
func (s *session) runner() framework.Runner {
	return framework.Runner{
		Threshold: s.cfg.Equalize.Threshold,
		Workers:   s.cfg.Equalize.Workers,
		Mode:      framework.Mode(s.cfg.Equalize.Mode),
		Tracer:    s.providers.Tracer,
		Metrics:   s.metrics,
		Logger:    s.providers.Logger,
	}
}

func (s *session) close() {
	err := s.providers.Shutdown(context.Background())
	if err != nil {
		s.providers.Logger.Warn("observability shutdown failed", "error", err)
	}
}

func stringFlag(cmd *cobra.Command, name string) string {
	value, err := cmd.Flags().GetString(name)
	if err != nil {
		return ""
	}

	return value
}

func boolFlag(cmd *cobra.Command, name string) bool {
	value, err := cmd.Flags().GetBool(name)
	if err != nil {
		return false
	}

	return value
}

// isQuiet reports whether status output should be suppressed.
func isQuiet(cmd *cobra.Command, silent bool) bool {
	return silent || boolFlag(cmd, flagQuiet)
}

// statusWriter returns where human-readable output goes.
func statusWriter(cmd *cobra.Command, quiet bool) io.Writer {
	if quiet {
		return io.Discard
	}

	return cmd.OutOrStdout()
}
