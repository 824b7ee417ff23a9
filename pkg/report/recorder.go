package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/devicelab-dev/msgrelay/pkg/logger"
)

// Recorder collects the steps of one run and keeps the report file current.
// A Recorder with an empty directory records in memory only.
type Recorder struct {
	mu     sync.Mutex
	path   string
	report Report
	now    func() time.Time
}

// NewRecorder starts a report for command. dir may be empty.
func NewRecorder(dir, command string) *Recorder {
	return newRecorder(dir, command, time.Now)
}

func newRecorder(dir, command string, now func() time.Time) *Recorder {
	start := now()
	r := &Recorder{
		report: Report{
			Version:   Version,
			Command:   command,
			Status:    StatusRunning,
			StartTime: start,
			Steps:     []Step{},
		},
		now: now,
	}
	if dir != "" {
		r.path = filepath.Join(dir, fmt.Sprintf("%s-%s.json", start.Format("20060102-150405"), command))
	}
	return r
}

// Path returns the report file, or "" when the recorder has no directory.
func (r *Recorder) Path() string {
	return r.path
}

// SetDevice records the device the run is using.
func (r *Recorder) SetDevice(d Device) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.report.Device = d
	r.flushLocked()
}

// Step records one step. It has the signature of an app progress callback.
func (r *Recorder) Step(name string, passed bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	status := StatusPassed
	if !passed {
		status = StatusFailed
	}
	r.report.Steps = append(r.report.Steps, Step{Name: name, Status: status, Time: r.now()})
	r.flushLocked()
}

// End finishes the run. A nil err marks it passed even if individual steps
// failed, since several steps are allowed to fail.
func (r *Recorder) End(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	end := r.now()
	r.report.EndTime = &end
	r.report.Status = StatusPassed
	if err != nil {
		r.report.Status = StatusFailed
		r.report.Error = err.Error()
	}
	r.flushLocked()
}

// Snapshot returns a copy of the current report.
func (r *Recorder) Snapshot() Report {
	r.mu.Lock()
	defer r.mu.Unlock()

	snap := r.report
	snap.Steps = append([]Step(nil), r.report.Steps...)
	return snap
}

func (r *Recorder) flushLocked() {
	r.report.Summary = r.computeSummary()
	if r.path == "" {
		return
	}
	if err := atomicWriteJSON(r.path, r.report); err != nil {
		logger.Warn("write report %s: %v", r.path, err)
	}
}

func (r *Recorder) computeSummary() Summary {
	s := Summary{Total: len(r.report.Steps)}
	for _, step := range r.report.Steps {
		if step.Status == StatusPassed {
			s.Passed++
		} else {
			s.Failed++
		}
	}
	return s
}

// atomicWriteJSON writes v to path through a temp file and a rename, so
// readers never see a partial file.
func atomicWriteJSON(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".report-*.json")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}
