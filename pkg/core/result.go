package core

import (
	"strings"
)

// ActionResult is the outcome of a single device command.
// Output is captured on both the success and the failure path.
type ActionResult struct {
	Succeeded bool     `json:"succeeded"`
	ExitCode  int      `json:"exitCode"`
	Output    []string `json:"output,omitempty"`

	// Err is set only when the process could not be started at all.
	Err error `json:"-"`
}

// NewActionResult builds a result from a process exit code and raw output.
func NewActionResult(exitCode int, raw string) ActionResult {
	return ActionResult{
		Succeeded: exitCode == 0,
		ExitCode:  exitCode,
		Output:    SplitLines(raw),
	}
}

// Text returns the output joined back into one string.
func (r ActionResult) Text() string {
	return strings.Join(r.Output, "\n")
}

// FirstLine returns the first output line, or "".
func (r ActionResult) FirstLine() string {
	if len(r.Output) == 0 {
		return ""
	}
	return r.Output[0]
}

// LastLine returns the last output line, or "".
func (r ActionResult) LastLine() string {
	if len(r.Output) == 0 {
		return ""
	}
	return r.Output[len(r.Output)-1]
}

// SplitLines splits raw process output into lines, dropping a trailing
// newline and carriage returns.
func SplitLines(raw string) []string {
	raw = strings.ReplaceAll(raw, "\r\n", "\n")
	raw = strings.TrimRight(raw, "\n")
	if raw == "" {
		return nil
	}
	return strings.Split(raw, "\n")
}
