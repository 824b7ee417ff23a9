// Package action sends input events and app intents to the device.
// Every operation reports failure as false; nothing here returns an error
// or panics on a device-side failure.
package action

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/devicelab-dev/msgrelay/pkg/core"
	"github.com/devicelab-dev/msgrelay/pkg/logger"
)

// Android key codes.
const (
	KeyHome      = 3
	KeyBack      = 4
	KeyPower     = 26
	KeyScreenOff = 223
	KeyWakeUp    = 224
	KeyCopy      = 278
	KeyPaste     = 279
)

// DefaultAnchor is the vertical swipe anchor as a fraction of display height.
const DefaultAnchor = 0.6

// Direction is a vertical swipe direction.
type Direction int

const (
	Up Direction = iota
	Down
)

func (d Direction) String() string {
	if d == Down {
		return "down"
	}
	return "up"
}

// ParseDirection parses "up" or "down".
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(s) {
	case "up":
		return Up, nil
	case "down":
		return Down, nil
	}
	return Up, fmt.Errorf("unknown swipe direction %q", s)
}

// Executor runs one adb command. *device.Executor satisfies it.
type Executor interface {
	Execute(args ...string) core.ActionResult
}

// Driver issues actions against one device.
type Driver struct {
	exec    Executor
	display core.Size
	anchor  float64
}

// New creates a Driver. An anchor outside (0, 1) falls back to DefaultAnchor.
func New(exec Executor, display core.Size, anchor float64) *Driver {
	if anchor <= 0 || anchor >= 1 {
		anchor = DefaultAnchor
	}
	return &Driver{exec: exec, display: display, anchor: anchor}
}

// Display returns the device display size.
func (d *Driver) Display() core.Size {
	return d.display
}

// Anchor returns the swipe start point: horizontally centered, at the
// anchor fraction of the display height, rounded down. It doubles as the
// "middle of the screen" tap target.
func (d *Driver) Anchor() core.Point {
	return core.Point{
		X: d.display.Width / 2,
		Y: int(math.Floor(float64(d.display.Height)*d.anchor + 1e-9)),
	}
}

func (d *Driver) shell(args ...string) bool {
	return d.exec.Execute(append([]string{"shell"}, args...)...).Succeeded
}

// Tap taps at (x, y). Any other number of coordinates returns false without
// touching the device.
func (d *Driver) Tap(coords ...int) bool {
	if len(coords) != 2 {
		logger.Debug("tap: expected 2 coordinates, got %d", len(coords))
		return false
	}
	return d.shell("input", "tap", strconv.Itoa(coords[0]), strconv.Itoa(coords[1]))
}

// TapPoint taps p.
func (d *Driver) TapPoint(p core.Point) bool {
	return d.Tap(p.X, p.Y)
}

// Swipe swipes vertically from the anchor to half its height (Up) or one
// and a half times its height (Down).
func (d *Driver) Swipe(dir Direction) bool {
	from := d.Anchor()
	toY := from.Y / 2
	if dir == Down {
		toY = from.Y + from.Y/2
	}
	return d.shell("input", "swipe",
		strconv.Itoa(from.X), strconv.Itoa(from.Y),
		strconv.Itoa(from.X), strconv.Itoa(toY))
}

// KeyEvent sends one key code.
func (d *Driver) KeyEvent(code int) bool {
	return d.shell("input", "keyevent", strconv.Itoa(code))
}

func (d *Driver) Back() bool      { return d.KeyEvent(KeyBack) }
func (d *Driver) Home() bool      { return d.KeyEvent(KeyHome) }
func (d *Driver) Power() bool     { return d.KeyEvent(KeyPower) }
func (d *Driver) ScreenOff() bool { return d.KeyEvent(KeyScreenOff) }
func (d *Driver) Paste() bool     { return d.KeyEvent(KeyPaste) }
func (d *Driver) Copy() bool      { return d.KeyEvent(KeyCopy) }
func (d *Driver) Wake() bool      { return d.KeyEvent(KeyWakeUp) }

// KeepAwake sends the wake key 2*times times. Each event costs one device
// round trip, so this also serves as a coarse wait.
func (d *Driver) KeepAwake(times int) bool {
	ok := true
	for i := 0; i < 2*times; i++ {
		ok = d.Wake() && ok
	}
	return ok
}

// InputText types text into the focused field. `input text` only accepts
// ASCII, so the text is romanized first; see InputChunks.
func (d *Driver) InputText(text string) bool {
	chunks := InputChunks(text)
	if len(chunks) == 0 {
		return false
	}
	for _, chunk := range chunks {
		if !d.shell("input", "text", chunk) {
			return false
		}
	}
	return true
}

// PullScreenshot captures the screen to devicePath and pulls it to
// localPath. The pull is skipped if the capture failed.
func (d *Driver) PullScreenshot(devicePath, localPath string) bool {
	if !d.shell("screencap", "-p", devicePath) {
		return false
	}
	return d.exec.Execute("pull", devicePath, localPath).Succeeded
}

// StartActivity launches a component such as "com.tencent.mm/.ui.LauncherUI".
func (d *Driver) StartActivity(component string) bool {
	return d.shell("am", "start", "-n", component)
}

// LaunchPackage launches a package's default activity through monkey.
func (d *Driver) LaunchPackage(pkg string) bool {
	return d.shell("monkey", "-p", pkg, "1")
}

// ForceStop stops a package.
func (d *Driver) ForceStop(pkg string) bool {
	return d.shell("am", "force-stop", pkg)
}

// IsInstalled reports whether pkg is installed. The package list filter is
// a substring match, so the exact "package:<pkg>" line is required.
func (d *Driver) IsInstalled(pkg string) bool {
	res := d.exec.Execute("shell", "pm", "list", "packages", pkg)
	if !res.Succeeded {
		return false
	}
	for _, line := range res.Output {
		if strings.TrimSpace(line) == "package:"+pkg {
			return true
		}
	}
	return false
}

// SetScreenOffTimeout sets the system screen-off timeout.
func (d *Driver) SetScreenOffTimeout(timeout time.Duration) bool {
	return d.shell("settings", "put", "system", "screen_off_timeout", strconv.FormatInt(timeout.Milliseconds(), 10))
}

// MkdirAll creates a device directory and its parents.
func (d *Driver) MkdirAll(devicePath string) bool {
	return d.shell("mkdir", "-p", devicePath)
}

// Remove deletes a device file.
func (d *Driver) Remove(devicePath string) bool {
	return d.shell("rm", "-f", devicePath)
}

// ScanMedia asks the media scanner to index a device file so gallery apps
// see it.
func (d *Driver) ScanMedia(devicePath string) bool {
	return d.shell("am", "broadcast", "-a", "android.intent.action.MEDIA_SCANNER_SCAN_FILE", "-d", "file://"+devicePath)
}
