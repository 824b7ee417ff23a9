// Package screen captures uiautomator dumps and bundles dumping, locating
// and acting into the capability set the app modules are built on.
package screen

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/cenkalti/backoff"

	"github.com/devicelab-dev/msgrelay/pkg/core"
	"github.com/devicelab-dev/msgrelay/pkg/logger"
	"github.com/devicelab-dev/msgrelay/pkg/metrics"
)

// DumpCommand is streamed from the device into a local temp file.
var DumpCommand = []string{"exec-out", "uiautomator", "dump", "/dev/tty"}

// StreamExecutor runs a command with stdout sent to w.
// *device.Executor satisfies it.
type StreamExecutor interface {
	ExecuteTo(w io.Writer, args ...string) core.ActionResult
	Serial() string
}

// DumperOptions tunes a Dumper.
type DumperOptions struct {
	TempDir    string        // directory for dump files; empty uses os.TempDir
	Retries    int           // extra attempts after a transient failure
	RetryDelay time.Duration // constant delay between attempts
}

// Dumper captures the current UI hierarchy. Each capture uses its own temp
// file, removed before Dump returns.
type Dumper struct {
	exec StreamExecutor
	opts DumperOptions
	now  func() time.Time
}

// NewDumper creates a Dumper.
func NewDumper(exec StreamExecutor, opts DumperOptions) *Dumper {
	if opts.Retries < 0 {
		opts.Retries = 0
	}
	return &Dumper{exec: exec, opts: opts, now: time.Now}
}

// Dump captures one ScreenDump. A device failure is returned as
// core.ErrDumpUnavailable once the retries are used up. An unusable temp
// dir gives core.ErrInvalidConfig at once.
func (d *Dumper) Dump() (core.ScreenDump, error) {
	var dump core.ScreenDump
	op := func() error {
		var err error
		dump, err = d.capture()
		var execErr *core.ExecutionError
		if errors.As(err, &execErr) && !execErr.Category.IsTransient() {
			return backoff.Permanent(err)
		}
		return err
	}

	err := backoff.RetryNotify(op, d.policy(), func(err error, next time.Duration) {
		logger.Debug("ui dump failed, retrying in %s: %v", next, err)
	})

	metrics.ScreenDumps.WithLabelValues(metrics.Outcome(err == nil)).Inc()
	if err != nil {
		return core.ScreenDump{}, err
	}
	return dump, nil
}

// policy allows exactly Retries extra attempts. WithMaxRetries treats 0
// as unlimited, so a zero budget stops after the first attempt.
func (d *Dumper) policy() backoff.BackOff {
	if d.opts.Retries == 0 {
		return &backoff.StopBackOff{}
	}
	return backoff.WithMaxRetries(backoff.NewConstantBackOff(d.opts.RetryDelay), uint64(d.opts.Retries))
}

func (d *Dumper) capture() (core.ScreenDump, error) {
	f, err := os.CreateTemp(d.opts.TempDir, dumpFilePattern(d.exec.Serial()))
	if err != nil {
		return core.ScreenDump{}, core.ErrInvalidConfig.WithCause(err).WithMessage("dump temp file")
	}
	path := f.Name()
	defer os.Remove(path)

	res := d.exec.ExecuteTo(f, DumpCommand...)
	if cerr := f.Close(); cerr != nil {
		return core.ScreenDump{}, core.ErrDumpUnavailable.WithCause(cerr)
	}
	if res.Err != nil {
		return core.ScreenDump{}, core.ErrDumpUnavailable.WithCause(res.Err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return core.ScreenDump{}, core.ErrDumpUnavailable.WithCause(err)
	}

	raw := firstLine(string(data))
	if !strings.Contains(raw, "<hierarchy") {
		msg := strings.TrimSpace(raw)
		if msg == "" {
			msg = res.LastLine()
		}
		return core.ScreenDump{}, core.ErrDumpUnavailable.WithMessage(fmt.Sprintf("ui dump unavailable: %s", msg))
	}
	return core.ScreenDump{Raw: raw, CapturedAt: d.now()}, nil
}

// firstLine returns the dump line. uiautomator appends a status line after
// the hierarchy.
func firstLine(s string) string {
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		s = s[:idx]
	}
	return strings.TrimRight(s, "\r")
}

func dumpFilePattern(serial string) string {
	return TempPattern("uidump", serial, ".xml")
}

// TempPattern returns an os.CreateTemp pattern namespaced by kind and
// device serial, so runs against different devices never share files.
func TempPattern(kind, serial, ext string) string {
	return "msgrelay-" + kind + "-" + sanitize(serial) + "-*" + ext
}

// sanitize makes a serial safe for a file name. Network serials look like
// "192.168.1.5:5555".
func sanitize(serial string) string {
	if serial == "" {
		return "device"
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			return r
		}
		return '_'
	}, serial)
}
