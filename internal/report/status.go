package report

import (
	"fmt"
	"io"

	"github.com/fatih/color"
)

// SetColor forces colored output on or off, overriding terminal detection.
func SetColor(enabled bool) {
	color.NoColor = !enabled //nolint:reassign // intentional override of library global
}

// Success prints a green status line.
func Success(w io.Writer, format string, args ...any) {
	printLine(w, color.FgGreen, format, args...)
}

// Warn prints a yellow status line.
func Warn(w io.Writer, format string, args ...any) {
	printLine(w, color.FgYellow, format, args...)
}

// Failure prints a red status line.
func Failure(w io.Writer, format string, args ...any) {
	printLine(w, color.FgRed, format, args...)
}

func printLine(w io.Writer, attr color.Attribute, format string, args ...any) {
	_, _ = color.New(attr).Fprintln(w, fmt.Sprintf(format, args...))
}
