package device

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/devicelab-dev/msgrelay/pkg/core"
	"github.com/devicelab-dev/msgrelay/pkg/logger"
)

// Handle identifies the connected device. It is filled once by Open and
// never changes afterwards.
type Handle struct {
	Serial      string
	TransportID string
	Model       string
	Display     core.Size
}

// Options configures Open.
type Options struct {
	ADBPath         string        // adb binary; empty searches PATH and ANDROID_HOME
	Serial          string        // device serial; empty picks the first attached device
	Runner          Runner        // process runner; nil uses ExecRunner
	CommandInterval time.Duration // minimum spacing between device commands
}

// Session is an open connection to one device.
type Session struct {
	Handle Handle
	Exec   *Executor

	adbPath string
	runner  Runner
}

// Open resolves the device, then queries its display size.
func Open(opts Options) (*Session, error) {
	runner := opts.Runner
	if runner == nil {
		runner = ExecRunner{}
	}

	adbPath := opts.ADBPath
	if _, isExec := runner.(ExecRunner); isExec {
		path, err := FindADB(opts.ADBPath)
		if err != nil {
			return nil, err
		}
		adbPath = path
	} else if adbPath == "" {
		adbPath = "adb"
	}

	entries, err := List(runner, adbPath)
	if err != nil {
		return nil, err
	}
	entry, err := selectDevice(entries, opts.Serial)
	if err != nil {
		return nil, err
	}
	if entry.State != "" && entry.State != "device" {
		return nil, core.ErrDeviceNotFound.WithMessage(
			fmt.Sprintf("device %s is %s", entry.Serial, entry.State))
	}

	s := &Session{
		Handle: Handle{
			Serial:      entry.Serial,
			TransportID: entry.TransportID,
			Model:       entry.Model,
		},
		Exec:    NewExecutor(adbPath, entry.Serial, runner, ExecutorOptions{Interval: opts.CommandInterval}),
		adbPath: adbPath,
		runner:  runner,
	}

	res := s.Exec.Shell("wm", "size")
	if !res.Succeeded {
		return nil, core.ErrCommandFailed.WithMessage("wm size failed: " + res.LastLine())
	}
	size, err := ParseDisplaySize(res.Output)
	if err != nil {
		return nil, err
	}
	s.Handle.Display = size

	logger.Info("Opened device %s (transport %s, display %s)", s.Handle.Serial, s.Handle.TransportID, size)
	return s, nil
}

func selectDevice(entries []Entry, serial string) (Entry, error) {
	if len(entries) == 0 {
		return Entry{}, core.ErrDeviceNotFound
	}
	if serial == "" {
		return entries[0], nil
	}
	for _, e := range entries {
		if e.Serial == serial {
			return e, nil
		}
	}
	return Entry{}, core.ErrDeviceNotFound.WithMessage(fmt.Sprintf("device %s not attached", serial))
}

// IsListed reports whether the session's device still shows up in `adb devices`.
func (s *Session) IsListed() bool {
	entries, err := List(s.runner, s.adbPath)
	if err != nil {
		return false
	}
	for _, e := range entries {
		if e.Serial == s.Handle.Serial {
			return true
		}
	}
	return false
}

// ParseDisplaySize parses `wm size` output. With an override present the
// last line ("Override size: ...") wins.
func ParseDisplaySize(lines []string) (core.Size, error) {
	if len(lines) == 0 {
		return core.Size{}, fmt.Errorf("empty wm size output")
	}
	line := strings.TrimSpace(lines[len(lines)-1])
	if idx := strings.LastIndex(line, ":"); idx != -1 {
		line = strings.TrimSpace(line[idx+1:])
	}
	parts := strings.Split(line, "x")
	if len(parts) != 2 {
		return core.Size{}, fmt.Errorf("unexpected wm size output: %s", line)
	}

	width, err1 := strconv.Atoi(strings.TrimSpace(parts[0]))
	height, err2 := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err1 != nil || err2 != nil {
		return core.Size{}, fmt.Errorf("failed to parse screen size: %s", line)
	}
	return core.Size{Width: width, Height: height}, nil
}
