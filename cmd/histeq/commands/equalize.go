package commands

import (
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/histeq/internal/config"
	"github.com/Sumatoshi-tech/histeq/internal/framework"
	"github.com/Sumatoshi-tech/histeq/internal/observability"
	"github.com/Sumatoshi-tech/histeq/internal/report"
	"github.com/Sumatoshi-tech/histeq/pkg/rawio"
)

// EqualizeCommand holds the flags of `histeq equalize`.
type EqualizeCommand struct {
	output      string
	threshold   int
	workers     int
	global      bool
	width       int
	height      int
	summaryPath string
	plotPath    string
	silent      bool

	cpuprofile  string
	heapprofile string
}

// NewEqualizeCommand creates the equalize command.
func NewEqualizeCommand() *cobra.Command {
	ec := &EqualizeCommand{}

	cmd := &cobra.Command{
		Use:   "equalize <input>",
		Short: "Equalize a raw 8-bit grayscale stream",
		Long: `Equalize a headerless 8-bit grayscale stream with divide-and-conquer
histogram equalization.

The stream is bisected until every piece holds fewer samples than the
threshold, and each piece is equalized against its own histogram. Files
ending in .lz4 are read and written as LZ4 frames.`,
		Args: cobra.ExactArgs(1),
		RunE: ec.run,
	}

	cmd.Flags().StringVarP(&ec.output, "output", "o", "", "Output path (default: <input>_equalized_image.raw)")
	cmd.Flags().IntVar(&ec.threshold, "threshold", config.DefaultThreshold, "Leaf threshold in samples")
	cmd.Flags().IntVar(&ec.workers, "workers", 0, "Number of parallel leaf workers (0 = use CPU count)")
	cmd.Flags().BoolVar(&ec.global, "global", false, "Equalize the whole stream against one histogram")
	cmd.Flags().IntVar(&ec.width, "width", 0, "Expected raster width (requires --height)")
	cmd.Flags().IntVar(&ec.height, "height", 0, "Expected raster height (requires --width)")
	cmd.Flags().StringVar(&ec.summaryPath, "summary", "", "Write a run summary (.json, .yaml, .yml)")
	cmd.Flags().StringVar(&ec.plotPath, "plot", "", "Write an HTML histogram plot")
	cmd.Flags().BoolVar(&ec.silent, "silent", false, "Print only errors")

	cmd.Flags().StringVar(&ec.cpuprofile, "cpuprofile", "", "Write CPU profile to file")
	cmd.Flags().StringVar(&ec.heapprofile, "heapprofile", "", "Write heap profile to file")

	return cmd
}

func (ec *EqualizeCommand) run(cmd *cobra.Command, args []string) error {
	sess, err := newSession(cmd, observability.ModeCLI, observability.Options{})
	if err != nil {
		return err
	}
	defer sess.close()

	ec.applyFlags(cmd, sess.cfg)

	err = sess.cfg.Validate()
	if err != nil {
		return err
	}

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

	stopProfiles, err := framework.Profiles{CPU: ec.cpuprofile, Heap: ec.heapprofile}.Start(sess.providers.Logger)
	if err != nil {
		return err
	}

	runner := sess.runner()

	res, err := runner.Run(cmd.Context(), samples)

	stopProfiles()

	if err != nil {
		return err
	}

	outputPath := ec.output
	if outputPath == "" {
		outputPath = rawio.DefaultOutputPath(inputPath)
	}

	err = rawio.WriteSamples(outputPath, res.Output)
	if err != nil {
		return err
	}

	summary := report.NewSummary(inputPath, outputPath, res)

	err = ec.writeArtifacts(summary, res)
	if err != nil {
		return err
	}

	quiet := isQuiet(cmd, ec.silent)
	out := statusWriter(cmd, quiet)

	if res.Mode == framework.ModeDivide && res.Stats.Leaves == 1 && len(samples) > 1 {
		report.Warn(out, "threshold %d exceeds the input length; the stream was equalized as a single leaf", res.Threshold)
	}

	report.Success(out, "Histogram equalization using %s completed. Equalized image saved as %s",
		modeDescription(res.Mode), outputPath)

	if !quiet {
		report.WriteTable(out, summary)
		_, _ = fmt.Fprintf(out, "%s in, %s out\n",
			humanize.Bytes(uint64(len(samples))), humanize.Bytes(uint64(len(res.Output))))
	}

	return nil
}

// applyFlags overrides configuration with the flags set on the command line.
func (ec *EqualizeCommand) applyFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()

	if flags.Changed("threshold") {
		cfg.Equalize.Threshold = ec.threshold
	}

	if flags.Changed("workers") {
		cfg.Equalize.Workers = ec.workers
	}

	if flags.Changed("global") {
		cfg.Equalize.Mode = string(framework.ModeDivide)
		if ec.global {
			cfg.Equalize.Mode = string(framework.ModeGlobal)
		}
	}

	if flags.Changed("width") {
		cfg.Input.Width = ec.width
	}

	if flags.Changed("height") {
		cfg.Input.Height = ec.height
	}
}

func (ec *EqualizeCommand) writeArtifacts(summary report.Summary, res *framework.Result) error {
	if ec.summaryPath != "" {
		err := summary.Save(ec.summaryPath)
		if err != nil {
			return err
		}
	}

	if ec.plotPath == "" {
		return nil
	}

	return writePlotFile(ec.plotPath, summary.Input,
		report.Series{Name: "input", Histogram: res.Before},
		report.Series{Name: "equalized", Histogram: res.After},
	)
}

func writePlotFile(path, title string, series ...report.Series) (err error) {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create plot: %w", err)
	}

	defer func() {
		closeErr := file.Close()
		if err == nil && closeErr != nil {
			err = fmt.Errorf("close plot: %w", closeErr)
		}
	}()

	return report.WritePlot(file, title, series...)
}

func modeDescription(mode framework.Mode) string {
	if mode == framework.ModeGlobal {
		return "a single global histogram"
	}

	return "divide-and-conquer algorithm"
}
