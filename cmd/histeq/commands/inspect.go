package commands

import (
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/histeq/internal/observability"
	"github.com/Sumatoshi-tech/histeq/internal/report"
	"github.com/Sumatoshi-tech/histeq/pkg/histeq"
	"github.com/Sumatoshi-tech/histeq/pkg/rawio"
)

// NewInspectCommand creates the inspect command.
func NewInspectCommand() *cobra.Command {
	var plotPath string

	cmd := &cobra.Command{
		Use:   "inspect <input>",
		Short: "Print intensity statistics of a raw stream",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := newSession(cmd, observability.ModeCLI, observability.Options{})
			if err != nil {
				return err
			}
			defer sess.close()

			maxSize, err := sess.cfg.Input.MaxSizeBytes()
			if err != nil {
				return err
			}

			samples, inputPath, err := rawio.ReadSamples(args[0], rawio.Options{
				MaxSize:  maxSize,
				Expected: sess.cfg.Input.ExpectedSamples(),
			})
			if err != nil {
				return err
			}

			hist := histeq.ComputeHistogram(samples)
			report.WriteStatsTable(cmd.OutOrStdout(), inputPath, hist.Stats())

			if plotPath == "" {
				return nil
			}

			return writePlotFile(plotPath, inputPath, report.Series{Name: "input", Histogram: hist})
		},
	}

	cmd.Flags().StringVar(&plotPath, "plot", "", "Write an HTML histogram plot")

	return cmd
}
