package app

import (
	"fmt"
	"strings"
	"testing"

	"github.com/devicelab-dev/msgrelay/pkg/action"
	"github.com/devicelab-dev/msgrelay/pkg/config"
	"github.com/devicelab-dev/msgrelay/pkg/core"
	"github.com/devicelab-dev/msgrelay/pkg/device"
	"github.com/devicelab-dev/msgrelay/pkg/screen"
)

// phone is a scripted device: it serves the dump of the current screen and
// moves between screens when a matching command is sent.
type phone struct {
	runner  *device.ScriptedRunner
	screens map[string]string
	current string
	rules   []phoneRule
	shown   []string
}

type phoneRule struct {
	from   string // "" matches any screen
	prefix string
	to     string
}

func newPhone(start string) *phone {
	p := &phone{runner: &device.ScriptedRunner{}, screens: map[string]string{}, current: start}
	p.runner.Hook = p.hook
	return p
}

func (p *phone) screen(name string, nodes ...string) *phone {
	p.screens[name] = dumpOf(nodes...)
	return p
}

func (p *phone) on(from, prefix, to string) *phone {
	p.rules = append(p.rules, phoneRule{from: from, prefix: prefix, to: to})
	return p
}

func (p *phone) hook(cmd string) (device.Reply, bool) {
	if strings.Contains(cmd, "uiautomator dump") {
		p.shown = append(p.shown, p.current)
		return device.Reply{Stdout: p.screens[p.current]}, true
	}
	for _, r := range p.rules {
		if (r.from == "" || r.from == p.current) && strings.HasPrefix(cmd, r.prefix) {
			p.current = r.to
			break
		}
	}
	return device.Reply{}, false
}

// deviceFailure is a command that ran and exited non-zero.
var deviceFailure = device.Reply{Stderr: "error: device offline", ExitCode: 1}

func dumpOf(nodes ...string) string {
	return `<?xml version='1.0' encoding='UTF-8' standalone='yes' ?><hierarchy rotation="0">` +
		strings.Join(nodes, "") + `</hierarchy>`
}

// node renders a TextView with the given text.
func node(text, bounds string) string {
	return nodeAttrs(fmt.Sprintf(`text="%s" resource-id="" class="android.widget.TextView" content-desc=""`, text), bounds)
}

func nodeAttrs(attrs, bounds string) string {
	return fmt.Sprintf(`<node index="0" %s bounds="%s" />`, attrs, bounds)
}

// harness wires a runner to a Screen on a 1080x2400 display.
type harness struct {
	runner *device.ScriptedRunner
	screen *screen.Screen
	opts   Options
	steps  []string
	tmp    string
}

func newHarness(t *testing.T, r *device.ScriptedRunner) *harness {
	t.Helper()
	h := &harness{runner: r, tmp: t.TempDir()}
	exec := device.NewExecutor("adb", "ABC123", r, device.ExecutorOptions{NoWake: true})
	dumper := screen.NewDumper(exec, screen.DumperOptions{TempDir: h.tmp})
	driver := action.New(exec, core.Size{Width: 1080, Height: 2400}, 0)
	h.screen = screen.New(dumper, nil, driver)
	h.opts = Options{
		Retries: config.Retries{Launch: 3, Element: 3, Scroll: 3, CheckInPage: 3, Send: 3, Relay: 5},
		Progress: func(step string, passed bool) {
			h.steps = append(h.steps, fmt.Sprintf("%s: %v", step, passed))
		},
	}
	return h
}

func (h *harness) shots() *Screenshotter {
	s := NewScreenshotter(h.screen.Driver(), "ABC123", h.tmp, "")
	s.newID = func() string { return "test-id" }
	return s
}

func (h *harness) hasCommand(cmd string) bool {
	for _, c := range h.runner.Commands() {
		if c == cmd {
			return true
		}
	}
	return false
}
