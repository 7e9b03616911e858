package commands

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/histeq/internal/mcp"
	"github.com/Sumatoshi-tech/histeq/internal/observability"
	"github.com/Sumatoshi-tech/histeq/pkg/version"
)

// NewMCPCommand creates the MCP server command.
func NewMCPCommand() *cobra.Command {
	var debug bool

	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Start MCP server for AI agent integration",
		Long: `Start a Model Context Protocol (MCP) server on stdio transport.

The MCP server exposes histogram equalization as tools that AI agents
can discover and invoke:
  - histeq_equalize: Equalize a raw 8-bit stream (base64 samples or a file path)
  - histeq_histogram: Intensity histogram and statistics of a raw stream`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cobraCmd *cobra.Command, _ []string) error {
			sess, err := newMCPSession(cobraCmd, debug)
			if err != nil {
				return err
			}
			defer sess.close()

			red, err := observability.NewREDMetrics(sess.providers.Meter)
			if err != nil {
				return err
			}

			maxBytes, err := sess.cfg.Input.MaxSizeBytes()
			if err != nil {
				return err
			}

			srv := mcp.NewServer(mcp.ServerDeps{
				Version:       version.Version,
				Logger:        sess.providers.Logger,
				Metrics:       red,
				Tracer:        sess.providers.Tracer,
				Runner:        sess.runner(),
				MaxInputBytes: maxBytes,
			})

			return srv.Run(cobraCmd.Context())
		},
	}

	cmd.Flags().BoolVar(&debug, "debug", false, "Enable debug logging to stderr")

	return cmd
}

// newMCPSession forces JSON logs on stderr, since stdout carries the protocol.
func newMCPSession(cmd *cobra.Command, debug bool) (*session, error) {
	return newSession(cmd, observability.ModeMCP, observability.Options{LogOutput: cmd.ErrOrStderr()},
		func(cfg *observability.Config) {
			cfg.LogJSON = true
			cfg.LogLevel = slog.LevelInfo

			if debug {
				cfg.LogLevel = slog.LevelDebug
			}
		})
}
