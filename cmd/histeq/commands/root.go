package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/histeq/pkg/version"
)

// NewRootCommand assembles the histeq command tree.
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "histeq",
		Short: "Histeq - divide-and-conquer histogram equalization",
		Long: `Histeq equalizes raw 8-bit grayscale streams by recursively splitting
them into pieces shorter than a threshold and equalizing each piece against
its own histogram.

Commands:
  equalize  Equalize a raw stream into a new file
  inspect   Print intensity statistics of a raw stream
  serve     Serve equalization over HTTP
  mcp       Start the MCP stdio server`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().String(flagConfig, "", "config file (default: .histeq.yaml in CWD or $HOME)")
	rootCmd.PersistentFlags().BoolP(flagVerbose, "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolP(flagQuiet, "q", false, "suppress output")
	rootCmd.PersistentFlags().Bool(flagNoColor, false, "disable colored output")

	rootCmd.AddCommand(NewEqualizeCommand())
	rootCmd.AddCommand(NewInspectCommand())
	rootCmd.AddCommand(NewServeCommand())
	rootCmd.AddCommand(NewMCPCommand())
	rootCmd.AddCommand(newVersionCommand())

	return rootCmd
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, _ []string) {
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), version.String())
		},
	}
}
