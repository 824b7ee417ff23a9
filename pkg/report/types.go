// Package report writes a JSON record of one msgrelay run.
//
// Each run produces <dir>/<start>-<command>.json. The file is rewritten
// atomically after every step so a crashed run still leaves the steps that
// completed.
package report

import "time"

// Version is the report schema version.
const Version = "1.0.0"

// Status represents the execution status.
type Status string

// Status values.
const (
	StatusRunning Status = "running"
	StatusPassed  Status = "passed"
	StatusFailed  Status = "failed"
)

// IsTerminal returns true if the status is a final state.
func (s Status) IsTerminal() bool {
	return s == StatusPassed || s == StatusFailed
}

// Report is the whole run record.
type Report struct {
	Version   string     `json:"version"`
	Command   string     `json:"command"`
	Status    Status     `json:"status"`
	StartTime time.Time  `json:"startTime"`
	EndTime   *time.Time `json:"endTime,omitempty"`
	Device    Device     `json:"device"`
	Summary   Summary    `json:"summary"`
	Steps     []Step     `json:"steps"`
	Error     string     `json:"error,omitempty"`
}

// Device contains device information.
type Device struct {
	Serial  string `json:"serial,omitempty"`
	Model   string `json:"model,omitempty"`
	Display string `json:"display,omitempty"`
}

// Summary contains aggregated step counts.
type Summary struct {
	Total  int `json:"total"`
	Passed int `json:"passed"`
	Failed int `json:"failed"`
}

// Step is one orchestration step, such as "Launch WeChat".
type Step struct {
	Name   string    `json:"name"`
	Status Status    `json:"status"`
	Time   time.Time `json:"time"`
}
