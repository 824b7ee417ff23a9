// Package device provides Android device access via ADB.
package device

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/devicelab-dev/msgrelay/pkg/core"
	"github.com/devicelab-dev/msgrelay/pkg/logger"
	"github.com/devicelab-dev/msgrelay/pkg/metrics"
)

// wakeKeyCode is KEYCODE_WAKEUP. It lights the screen without toggling it.
const wakeKeyCode = "224"

// Runner starts a process and waits for it.
// A non-zero exit is reported through exitCode with a nil error; err is
// reserved for processes that could not be started.
type Runner interface {
	Run(stdout, stderr io.Writer, name string, args ...string) (exitCode int, err error)
}

// ExecRunner runs processes with os/exec.
type ExecRunner struct{}

// Run implements Runner.
func (ExecRunner) Run(stdout, stderr io.Writer, name string, args ...string) (int, error) {
	cmd := exec.Command(name, args...)
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	err := cmd.Run()
	if err == nil {
		return 0, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode(), nil
	}
	return -1, err
}

// ExecutorOptions tunes an Executor.
type ExecutorOptions struct {
	// Interval is the minimum spacing between two device commands.
	// Zero disables pacing.
	Interval time.Duration
	// NoWake skips the wake key event sent before each command.
	NoWake bool
}

// Executor sends commands to one device through `adb -s <serial>`.
// It never retries; retry policy belongs to the caller.
type Executor struct {
	adbPath string
	serial  string
	runner  Runner
	limiter *rate.Limiter
	wake    bool
}

// NewExecutor creates an Executor for the given serial.
func NewExecutor(adbPath, serial string, runner Runner, opts ExecutorOptions) *Executor {
	if runner == nil {
		runner = ExecRunner{}
	}
	limit := rate.Inf
	if opts.Interval > 0 {
		limit = rate.Every(opts.Interval)
	}
	return &Executor{
		adbPath: adbPath,
		serial:  serial,
		runner:  runner,
		limiter: rate.NewLimiter(limit, 1),
		wake:    !opts.NoWake,
	}
}

// Serial returns the device serial number.
func (e *Executor) Serial() string {
	return e.serial
}

// Execute runs a command and captures its combined output.
func (e *Executor) Execute(args ...string) core.ActionResult {
	var out bytes.Buffer
	return e.execute(&out, &out, &out, args)
}

// ExecuteTo runs a command with stdout streamed to w.
// Only stderr is captured into the result's Output.
func (e *Executor) ExecuteTo(w io.Writer, args ...string) core.ActionResult {
	var errOut bytes.Buffer
	return e.execute(w, &errOut, &errOut, args)
}

// Shell runs `adb shell <args...>`.
func (e *Executor) Shell(args ...string) core.ActionResult {
	return e.Execute(append([]string{"shell"}, args...)...)
}

func (e *Executor) execute(stdout, stderr io.Writer, captured *bytes.Buffer, args []string) core.ActionResult {
	if e.wake {
		var discard bytes.Buffer
		e.invoke(&discard, &discard, []string{"shell", "input", "keyevent", wakeKeyCode})
	}

	code, err := e.invoke(stdout, stderr, args)
	result := core.NewActionResult(code, captured.String())
	if err != nil {
		result.Succeeded = false
		result.Err = err
	}

	metrics.DeviceCommands.WithLabelValues(metrics.Outcome(result.Succeeded)).Inc()
	if result.Succeeded {
		logger.Debug("adb %s: ok", strings.Join(args, " "))
	} else {
		logger.Debug("adb %s: exit %d: %s", strings.Join(args, " "), code, result.LastLine())
	}
	return result
}

func (e *Executor) invoke(stdout, stderr io.Writer, args []string) (int, error) {
	_ = e.limiter.Wait(context.Background())

	cmdArgs := make([]string, 0, len(args)+2)
	if e.serial != "" {
		cmdArgs = append(cmdArgs, "-s", e.serial)
	}
	cmdArgs = append(cmdArgs, args...)

	code, err := e.runner.Run(stdout, stderr, e.adbPath, cmdArgs...)
	if err != nil {
		return code, fmt.Errorf("adb %s: %w", strings.Join(args, " "), err)
	}
	return code, nil
}

// FindADB locates the ADB binary.
// An explicit path wins; otherwise PATH, then the SDK platform-tools.
func FindADB(configured string) (string, error) {
	if configured != "" {
		if path, err := exec.LookPath(configured); err == nil {
			return path, nil
		}
		return "", fmt.Errorf("adb not found at %s", configured)
	}

	// Try PATH first
	if path, err := exec.LookPath("adb"); err == nil {
		return path, nil
	}

	if home := getAndroidHome(); home != "" {
		path := filepath.Join(home, "platform-tools", "adb")
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}

	return "", fmt.Errorf("adb not found in PATH; set ANDROID_HOME or --adb")
}

// getAndroidHome returns ANDROID_HOME environment variable
func getAndroidHome() string {
	// Try multiple env vars
	if home := os.Getenv("ANDROID_HOME"); home != "" {
		return home
	}
	if home := os.Getenv("ANDROID_SDK_ROOT"); home != "" {
		return home
	}
	return ""
}
