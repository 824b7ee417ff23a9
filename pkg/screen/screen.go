package screen

import (
	"github.com/devicelab-dev/msgrelay/pkg/action"
	"github.com/devicelab-dev/msgrelay/pkg/core"
	"github.com/devicelab-dev/msgrelay/pkg/locator"
	"github.com/devicelab-dev/msgrelay/pkg/logger"
	"github.com/devicelab-dev/msgrelay/pkg/poll"
)

// Source produces dumps. *Dumper satisfies it.
type Source interface {
	Dump() (core.ScreenDump, error)
}

// Screen is the {dump, locate, act} capability set. Every lookup takes a
// fresh dump; coordinates are never reused across calls.
type Screen struct {
	source  Source
	locator locator.Locator
	driver  *action.Driver
}

// New creates a Screen. A nil locator uses the text locator.
func New(source Source, loc locator.Locator, driver *action.Driver) *Screen {
	if loc == nil {
		loc = locator.TextLocator{}
	}
	return &Screen{source: source, locator: loc, driver: driver}
}

// Driver returns the action driver.
func (s *Screen) Driver() *action.Driver {
	return s.driver
}

// Dump captures the screen. An unavailable dump is logged and returned as
// an empty dump, which matches nothing.
func (s *Screen) Dump() core.ScreenDump {
	dump, err := s.source.Dump()
	if err != nil {
		logger.Warn("dump screen failed: %v", err)
		return core.ScreenDump{}
	}
	return dump
}

// Find locates marker on a fresh dump. The dump is scanned from the
// bottom and the last match kept, so the match nearest the top wins.
func (s *Screen) Find(marker string) (core.Point, bool) {
	return s.find(marker, true)
}

// FindLast locates the match of marker nearest the bottom of a fresh dump.
func (s *Screen) FindLast(marker string) (core.Point, bool) {
	return s.find(marker, false)
}

func (s *Screen) find(marker string, fromBottom bool) (core.Point, bool) {
	return s.Locate(s.Dump(), marker, fromBottom)
}

// Locate resolves marker against an existing dump. Use it only to compare
// several markers on the same screen state; the point is stale once an
// action has been sent.
func (s *Screen) Locate(dump core.ScreenDump, marker string, fromBottom bool) (core.Point, bool) {
	el, ok := s.locator.Element(dump, marker, fromBottom)
	if !ok {
		return core.Point{}, false
	}
	return el.Center, true
}

// Has reports whether marker is on screen.
func (s *Screen) Has(marker string) bool {
	_, ok := s.Find(marker)
	return ok
}

// ReadText reads attribute values from a fresh dump.
func (s *Screen) ReadText(label, subLabel string, readAll bool) string {
	return s.ReadDump(s.Dump(), label, subLabel, readAll)
}

// ReadDump reads attribute values from an existing dump.
func (s *Screen) ReadDump(dump core.ScreenDump, label, subLabel string, readAll bool) string {
	return s.locator.Text(dump, label, subLabel, readAll)
}

// TapMarker taps marker if it is on screen.
func (s *Screen) TapMarker(marker string) bool {
	p, ok := s.Find(marker)
	if !ok {
		return false
	}
	return s.driver.TapPoint(p)
}

// WaitFor polls until marker appears, running action between checks.
// A nil action keeps the screen awake for one round.
func (s *Screen) WaitFor(marker string, loop poll.Loop, action func()) (core.Point, poll.Result) {
	if action == nil {
		action = s.keepAwake
	}
	return poll.Probe(loop, func() (core.Point, bool) { return s.Find(marker) }, action)
}

// WaitGone polls until marker is no longer on screen.
func (s *Screen) WaitGone(marker string, loop poll.Loop, action func()) poll.Result {
	if action == nil {
		action = s.keepAwake
	}
	return loop.Until(func() bool { return !s.Has(marker) }, action)
}

// ScrollTo swipes in dir until marker is visible.
func (s *Screen) ScrollTo(marker string, dir action.Direction, loop poll.Loop) (core.Point, bool) {
	p, res := poll.Probe(loop, func() (core.Point, bool) { return s.Find(marker) }, func() { s.driver.Swipe(dir) })
	return p, res.Succeeded
}

func (s *Screen) keepAwake() {
	s.driver.KeepAwake(1)
}
