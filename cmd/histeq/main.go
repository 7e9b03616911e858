// Package main provides the entry point for the histeq CLI tool.
package main

import (
	"os"

	"github.com/Sumatoshi-tech/histeq/cmd/histeq/commands"
	"github.com/Sumatoshi-tech/histeq/internal/report"
	"github.com/Sumatoshi-tech/histeq/pkg/version"
)

func main() {
	version.InitBinaryVersion()

	err := commands.NewRootCommand().Execute()
	if err != nil {
		report.Failure(os.Stderr, "Error: %v", err)
		os.Exit(1)
	}
}
