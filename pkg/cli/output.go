package cli

import (
	"fmt"
	"io"
	"os"
)

// ANSI color codes
const (
	colorReset  = "\033[0m"
	colorGreen  = "\033[32m"
	colorRed    = "\033[31m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
)

var colorsEnabled = true

func init() {
	// Respect NO_COLOR environment variable
	if os.Getenv("NO_COLOR") != "" {
		colorsEnabled = false
		return
	}
	// Check if stdout is a terminal
	if fileInfo, err := os.Stdout.Stat(); err == nil {
		if (fileInfo.Mode() & os.ModeCharDevice) == 0 {
			colorsEnabled = false
		}
	}
}

// color returns the color code if colors are enabled, empty string otherwise
func color(c string) string {
	if colorsEnabled {
		return c
	}
	return ""
}

// printSetupStep prints a setup step with spinner-style prefix
func printSetupStep(w io.Writer, msg string) {
	fmt.Fprintf(w, "  %s⏳%s %s\n", color(colorCyan), color(colorReset), msg)
}

// printSetupSuccess prints a success message for setup
func printSetupSuccess(w io.Writer, msg string) {
	fmt.Fprintf(w, "  %s✓%s %s\n", color(colorGreen), color(colorReset), msg)
}

// printStep prints one orchestration step as "<step>: Passed" or "<step>: Failed".
func printStep(w io.Writer, step string, passed bool) {
	if passed {
		fmt.Fprintf(w, "  %s✓%s %s: Passed\n", color(colorGreen), color(colorReset), step)
		return
	}
	fmt.Fprintf(w, "  %s✗%s %s: %sFailed%s\n", color(colorRed), color(colorReset), step, color(colorYellow), color(colorReset))
}
