// Package app drives the target applications. Each app module is composed
// from a screen.Screen; lifecycle transitions are detected purely by polling
// for marker text in fresh dumps.
package app

import (
	"fmt"
	"time"

	"github.com/devicelab-dev/msgrelay/pkg/config"
	"github.com/devicelab-dev/msgrelay/pkg/core"
	"github.com/devicelab-dev/msgrelay/pkg/logger"
	"github.com/devicelab-dev/msgrelay/pkg/poll"
	"github.com/devicelab-dev/msgrelay/pkg/screen"
)

// System permission dialog shown over an app on launch.
const (
	permissionDialogMarker = `text="权限申请"`
	permissionCancelMarker = `text="取消"`
)

// State is the lifecycle state of an app as last observed.
type State int

const (
	NotRunning State = iota
	Foreground
	Parked
)

func (s State) String() string {
	switch s {
	case Foreground:
		return "foreground"
	case Parked:
		return "parked"
	default:
		return "not running"
	}
}

// Progress receives one line per orchestration step.
type Progress func(step string, passed bool)

// Options are the polling settings shared by all app modules.
type Options struct {
	Retries  config.Retries
	Delay    time.Duration
	Sleep    func(time.Duration) // replaces time.Sleep, for tests
	Progress Progress
}

func (o Options) loop(maxAttempts int) poll.Loop {
	return poll.Loop{MaxAttempts: maxAttempts, Delay: o.Delay, Sleep: o.Sleep}
}

func (o Options) sleep(d time.Duration) {
	if d <= 0 {
		return
	}
	if o.Sleep != nil {
		o.Sleep(d)
		return
	}
	time.Sleep(d)
}

func (o Options) report(step string, passed bool) {
	if passed {
		logger.Info("%s: Passed", step)
	} else {
		logger.Warn("%s: Failed", step)
	}
	if o.Progress != nil {
		o.Progress(step, passed)
	}
}

// App is one target application on the device.
type App struct {
	Name string

	cfg    config.App
	screen *screen.Screen
	opts   Options
	state  State
}

// New creates an App. cfg.RunMarker must identify the app's foreground UI;
// with an empty marker the app is never reported as running.
func New(name string, cfg config.App, s *screen.Screen, opts Options) *App {
	return &App{Name: name, cfg: cfg, screen: s, opts: opts}
}

// Screen returns the capability set the app drives.
func (a *App) Screen() *screen.Screen {
	return a.screen
}

// State returns the last observed lifecycle state.
func (a *App) State() State {
	return a.state
}

// IsRunning reports whether the app is in the foreground. A permission
// dialog covering it is dismissed first.
func (a *App) IsRunning() bool {
	if a.cfg.RunMarker == "" {
		return false
	}
	dump := a.screen.Dump()
	if _, ok := a.screen.Locate(dump, permissionDialogMarker, true); ok {
		if p, ok := a.screen.Locate(dump, permissionCancelMarker, true); ok {
			logger.Info("%s: dismissing permission dialog", a.Name)
			a.screen.Driver().TapPoint(p)
			dump = a.screen.Dump()
		}
	}

	_, running := a.screen.Locate(dump, a.cfg.RunMarker, true)
	if running {
		a.state = Foreground
	} else if a.state == Foreground {
		a.state = NotRunning
	}
	return running
}

// IsInstalled reports whether the app's package is installed.
func (a *App) IsInstalled() bool {
	return a.screen.Driver().IsInstalled(a.cfg.Package)
}

// Launch starts the app's activity and waits for its run marker,
// re-launching between checks.
func (a *App) Launch() poll.Result {
	d := a.screen.Driver()
	d.StartActivity(a.cfg.Activity)
	d.KeepAwake(1)

	return a.opts.loop(a.opts.Retries.Launch).Until(a.IsRunning, func() {
		d.KeepAwake(1)
		d.StartActivity(a.cfg.Activity)
	})
}

// LaunchMonkey starts the app through its launcher intent.
func (a *App) LaunchMonkey() bool {
	return a.screen.Driver().LaunchPackage(a.cfg.Package)
}

// EnsureForeground launches the app unless it is already running.
func (a *App) EnsureForeground() error {
	if a.IsRunning() {
		return nil
	}
	if res := a.Launch(); !res.Succeeded {
		return core.ErrAppNotRunning.WithMessage(fmt.Sprintf("%s did not start after %d attempts", a.Name, res.Attempts))
	}
	return nil
}

// Shutdown force-stops the app and waits until its run marker is gone,
// re-issuing the stop between checks.
func (a *App) Shutdown() poll.Result {
	d := a.screen.Driver()
	d.ForceStop(a.cfg.Package)

	res := a.opts.loop(a.opts.Retries.Launch).Until(func() bool { return !a.IsRunning() }, func() {
		d.ForceStop(a.cfg.Package)
		d.KeepAwake(1)
	})
	if res.Succeeded {
		a.state = NotRunning
	}
	return res
}

// Park returns to the home screen and turns the screen off. This ends the
// app session.
func (a *App) Park() bool {
	d := a.screen.Driver()
	ok := d.Home()
	ok = d.ScreenOff() && ok
	a.state = Parked
	return ok
}
