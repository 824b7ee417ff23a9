package app

import (
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/devicelab-dev/msgrelay/pkg/action"
	"github.com/devicelab-dev/msgrelay/pkg/config"
	"github.com/devicelab-dev/msgrelay/pkg/core"
	"github.com/devicelab-dev/msgrelay/pkg/logger"
	"github.com/devicelab-dev/msgrelay/pkg/metrics"
	"github.com/devicelab-dev/msgrelay/pkg/poll"
	"github.com/devicelab-dev/msgrelay/pkg/screen"
)

// DingTalk UI markers.
const (
	orgNameLabel          = "com.alibaba.android.rimet:id/tv_org_name"
	collaborateTabMarker  = `"协作"`
	dingContactsTabMarker = `"通讯录"`
	checkInIconMarker     = `"考勤打卡"`
	continueCheckInMarker = `text="继续打卡"`
)

// The check-in icon is not tappable under the title bar or the bottom
// tabs; these are fractions of the display height.
const (
	topEdge    = 0.09
	bottomEdge = 0.79
)

// CheckInDeps are the collaborators of a check-in.
type CheckInDeps struct {
	WeChat           *WeChat        // notification target
	Shots            *Screenshotter // evidence capture
	Listed           func() bool    // device still attached
	ScreenOffTimeout time.Duration  // applied before starting
	Rand             func(n int64) int64
	Now              func() time.Time
}

// DingTalk performs the daily attendance check-in.
type DingTalk struct {
	*App
	checkIn config.CheckInConfig
	deps    CheckInDeps
}

// NewDingTalk creates the DingTalk module. Rand and Now default to
// math/rand and time.Now.
func NewDingTalk(cfg config.App, checkIn config.CheckInConfig, s *screen.Screen, opts Options, deps CheckInDeps) *DingTalk {
	if deps.Rand == nil {
		deps.Rand = rand.Int63n
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &DingTalk{App: New("DingTalk", cfg, s, opts), checkIn: checkIn, deps: deps}
}

// CurrentCompany returns the organization shown on the work console, or "".
func (t *DingTalk) CurrentCompany() string {
	return t.screen.ReadText(orgNameLabel, "text=", false)
}

// SwitchCompany taps the current organization name, then the target one,
// and reports whether the switch took effect.
func (t *DingTalk) SwitchCompany(current, target string) bool {
	if current == "" || target == "" {
		return false
	}
	if !t.screen.TapMarker(current) {
		return false
	}
	if !t.screen.TapMarker(target) {
		return false
	}
	return t.CurrentCompany() == target
}

// WorkConsolePoint returns the work console tab, which has no label of its
// own: it sits halfway between the collaborate and contacts tabs.
func (t *DingTalk) WorkConsolePoint() (core.Point, bool) {
	dump := t.screen.Dump()
	left, ok := t.screen.Locate(dump, collaborateTabMarker, true)
	if !ok {
		return core.Point{}, false
	}
	right, ok := t.screen.Locate(dump, dingContactsTabMarker, true)
	if !ok {
		return core.Point{}, false
	}
	return core.Point{X: left.X + (right.X-left.X)/2, Y: left.Y}, true
}

func (t *DingTalk) tapWorkConsole() bool {
	p, ok := t.WorkConsolePoint()
	if !ok {
		return false
	}
	return t.screen.Driver().TapPoint(p)
}

// CheckIn runs the whole check-in: wait a random delay, restart DingTalk,
// select the company, check in, capture evidence, notify the configured
// WeChat contact and park the device.
func (t *DingTalk) CheckIn() error {
	if t.checkIn.Company == "" {
		return core.ErrMissingRequired.WithMessage("checkIn.company is required")
	}
	if t.deps.Shots == nil {
		return core.ErrMissingRequired.WithMessage("check-in needs a screenshotter")
	}

	d := t.screen.Driver()
	logger.Info("Check in started at %s", t.deps.Now().Format("2006/01/02 Monday 15:04:05"))

	t.opts.report(fmt.Sprintf("Set system screen off timeout %s", t.deps.ScreenOffTimeout),
		d.SetScreenOffTimeout(t.deps.ScreenOffTimeout))

	if t.deps.Listed != nil && !t.deps.Listed() {
		t.opts.report("Check Android devices list", false)
		return core.ErrDeviceNotFound.WithMessage("device is no longer attached")
	}
	t.opts.report("Check Android devices list", true)

	wait := t.checkIn.Jitter.Pick(t.deps.Rand)
	t.opts.report(fmt.Sprintf("Wait a random %s", wait), true)
	t.opts.sleep(wait)

	shutdown := t.Shutdown()
	t.opts.report("Shutdown DingTalk", shutdown.Succeeded)
	if !shutdown.Succeeded {
		return core.ErrRetryExhausted.WithMessage("DingTalk did not stop")
	}

	if err := t.EnsureForeground(); err != nil {
		t.opts.report("Launch DingTalk", false)
		return err
	}
	t.opts.report("Launch DingTalk", true)

	if err := t.openWorkConsole(); err != nil {
		return err
	}
	if err := t.tapCheckInIcon(); err != nil {
		return err
	}

	// The org name disappears once the check-in page is up. That page
	// often fails to dump, so a timeout here is not fatal.
	page := t.screen.WaitGone(t.checkIn.Company, t.opts.loop(t.opts.Retries.CheckInPage), nil)
	if page.Succeeded {
		t.opts.report("Verify the check-in page", true)
	} else {
		t.opts.report("Verify the check-in page (checking in anyway)", false)
	}

	mid := d.Anchor()
	d.TapPoint(mid)
	d.KeepAwake(1)
	d.TapPoint(mid)
	d.KeepAwake(1)

	if p, ok := t.screen.Find(continueCheckInMarker); ok {
		logger.Info("Organization changed before, continue check in")
		d.TapPoint(p)
		d.KeepAwake(1)
		d.TapPoint(p)
	}
	t.opts.report("Check in", true)

	d.KeepAwake(1)
	shot, err := t.deps.Shots.Capture()
	d.KeepAwake(1)
	t.opts.report("Take screenshot & return home screen", err == nil && d.Home())
	if err != nil {
		t.Park()
		return err
	}
	defer shot.Release()
	metrics.Relayed.WithLabelValues("checkin").Inc()

	notifyErr := t.notify()
	t.Park()
	return notifyErr
}

func (t *DingTalk) openWorkConsole() error {
	d := t.screen.Driver()
	t.tapWorkConsole()

	current, res := poll.Probe(t.opts.loop(t.opts.Retries.Element), func() (string, bool) {
		c := t.CurrentCompany()
		return c, c != ""
	}, func() {
		d.KeepAwake(1)
		t.tapWorkConsole()
	})
	t.opts.report("Tap work console icon", res.Succeeded)
	if !res.Succeeded {
		return core.ErrRetryExhausted.WithMessage("work console did not open")
	}

	if current == t.checkIn.Company {
		t.opts.report(fmt.Sprintf("Verify if the current company is %s", t.checkIn.Company), true)
		return nil
	}
	t.opts.report(fmt.Sprintf("Verify if the current company is %s", t.checkIn.Company), false)

	switched := t.opts.loop(t.opts.Retries.Element).Until(func() bool {
		return t.SwitchCompany(current, t.checkIn.Company)
	}, func() { d.KeepAwake(1) })
	t.opts.report(fmt.Sprintf("Change to company %s", t.checkIn.Company), switched.Succeeded)
	if !switched.Succeeded {
		return core.ErrRetryExhausted.WithMessage("could not switch to " + t.checkIn.Company)
	}
	return nil
}

func (t *DingTalk) tapCheckInIcon() error {
	d := t.screen.Driver()
	icon, res := t.screen.WaitFor(checkInIconMarker, t.opts.loop(t.opts.Retries.Element), nil)
	if !res.Succeeded {
		t.opts.report("Press checkin icon", false)
		return core.ErrRetryExhausted.WithMessage("check-in icon not found")
	}

	display := d.Display()
	tappable := core.Rect{
		X0: 0,
		Y0: int(float64(display.Height)*topEdge) + 1,
		X1: display.Width,
		Y1: int(float64(display.Height) * bottomEdge),
	}
	switch {
	case tappable.Contains(icon):
		return t.tapIcon(icon)
	case icon.Y < tappable.Y0:
		d.Swipe(action.Down)
	default:
		d.Swipe(action.Up)
	}
	if p, ok := t.screen.Find(checkInIconMarker); ok {
		icon = p
	}
	return t.tapIcon(icon)
}

func (t *DingTalk) tapIcon(icon core.Point) error {
	d := t.screen.Driver()
	ok := d.TapPoint(icon)
	t.opts.report("Press checkin icon", ok)
	if !ok {
		return core.ErrCommandFailed.WithMessage("tap on check-in icon failed")
	}
	return nil
}

func (t *DingTalk) notify() error {
	if t.deps.WeChat == nil || t.checkIn.NotifyUser == "" {
		return nil
	}
	msg := fmt.Sprintf("%s checked in at: %s.", CompanyTag(t.checkIn.Company), t.deps.Now().Format("01/02 Mon 15:04"))
	if err := t.deps.WeChat.SendMessage(t.checkIn.NotifyUser, msg); err != nil {
		return fmt.Errorf("notify %s: %w", t.checkIn.NotifyUser, err)
	}
	if err := t.deps.WeChat.SendLastPicture(t.checkIn.NotifyUser); err != nil {
		return fmt.Errorf("send check-in screenshot to %s: %w", t.checkIn.NotifyUser, err)
	}
	return nil
}

// CompanyTag romanizes a company name for the notification and capitalizes
// its first letter ("北京科技" becomes "Beijingkeji").
func CompanyTag(company string) string {
	tag := action.Romanize(company)
	if tag == "" {
		return tag
	}
	return strings.ToUpper(tag[:1]) + tag[1:]
}
