package cli

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strconv"

	"github.com/google/uuid"
	"github.com/urfave/cli/v2"

	"github.com/devicelab-dev/msgrelay/pkg/action"
	"github.com/devicelab-dev/msgrelay/pkg/app"
	"github.com/devicelab-dev/msgrelay/pkg/config"
	"github.com/devicelab-dev/msgrelay/pkg/core"
	"github.com/devicelab-dev/msgrelay/pkg/device"
)

var devicesCommand = &cli.Command{
	Name:   "devices",
	Usage:  "List attached devices",
	Action: withConfig("devices", runDevices),
}

var dumpCommand = &cli.Command{
	Name:  "dump",
	Usage: "Print the current uiautomator dump",
	Description: `Print the raw single-line dump that markers are matched against.

Examples:
  msgrelay dump
  msgrelay dump | tr '>' '\n' | grep 通讯录`,
	Action: withDevice("dump", runDump),
}

var findCommand = &cli.Command{
	Name:      "find",
	Usage:     "Print the tap point of a marker",
	ArgsUsage: "<marker>",
	Flags: []cli.Flag{
		&cli.BoolFlag{
			Name:  "last",
			Usage: "Return the match nearest the bottom of the screen instead of the top",
		},
	},
	Action: withDevice("find", runFind),
}

var readCommand = &cli.Command{
	Name:      "read",
	Usage:     "Print attribute values from elements containing a label",
	ArgsUsage: "<label> <sub-label>",
	Description: `Print the value following <sub-label> in every element containing
<label>, one per line.

Examples:
  msgrelay read com.alibaba.android.rimet:id/tv_org_name text= --first`,
	Flags: []cli.Flag{
		&cli.BoolFlag{
			Name:  "first",
			Usage: "Print only the first value",
		},
	},
	Action: withDevice("read", runRead),
}

var tapCommand = &cli.Command{
	Name:      "tap",
	Usage:     "Tap a screen coordinate",
	ArgsUsage: "<x> <y>",
	Action:    withDevice("tap", runTap),
}

var swipeCommand = &cli.Command{
	Name:      "swipe",
	Usage:     "Swipe up or down from the swipe anchor",
	ArgsUsage: "<up|down>",
	Action:    withDevice("swipe", runSwipe),
}

var keyCommand = &cli.Command{
	Name:      "key",
	Usage:     "Send a key event",
	ArgsUsage: "<code|home|back|power|wake|off>",
	Action:    withDevice("key", runKey),
}

var textCommand = &cli.Command{
	Name:      "text",
	Usage:     "Type text into the focused field (Han characters are romanized)",
	ArgsUsage: "<text>",
	Action:    withDevice("text", runText),
}

var screenshotCommand = &cli.Command{
	Name:      "screenshot",
	Usage:     "Save a screenshot to a local file",
	ArgsUsage: "[out.png]",
	Description: `Without an output file the screenshot is saved under
<home>/artifacts/screenshots.`,
	Action:    withDevice("screenshot", runScreenshot),
}

var namedKeys = map[string]int{
	"home":  action.KeyHome,
	"back":  action.KeyBack,
	"power": action.KeyPower,
	"wake":  action.KeyWakeUp,
	"off":   action.KeyScreenOff,
	"copy":  action.KeyCopy,
	"paste": action.KeyPaste,
}

func runDevices(c *cli.Context, cfg *config.Config) error {
	adbPath := cfg.ADB
	runner := newRunner()
	if _, isExec := runner.(device.ExecRunner); isExec {
		p, err := device.FindADB(cfg.ADB)
		if err != nil {
			return err
		}
		adbPath = p
	}

	entries, err := device.List(runner, adbPath)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Fprintln(c.App.Writer, "No devices attached.")
		return nil
	}
	for _, e := range entries {
		fmt.Fprintf(c.App.Writer, "%s\t%s\t%s\n", e.Serial, e.State, e.Model)
	}
	return nil
}

func runDump(c *cli.Context, e *env) error {
	dump := e.screen.Dump()
	if dump.Raw == "" {
		return core.ErrDumpUnavailable
	}
	fmt.Fprintln(e.out, dump.Raw)
	return nil
}

func runFind(c *cli.Context, e *env) error {
	marker := c.Args().First()
	if marker == "" {
		return fmt.Errorf("find needs a marker")
	}
	var (
		p  core.Point
		ok bool
	)
	if c.Bool("last") {
		p, ok = e.screen.FindLast(marker)
	} else {
		p, ok = e.screen.Find(marker)
	}
	if !ok {
		return core.ErrElementNotFound.WithMessage(fmt.Sprintf("%s not found", marker))
	}
	fmt.Fprintf(e.out, "%d %d\n", p.X, p.Y)
	return nil
}

func runRead(c *cli.Context, e *env) error {
	if c.NArg() != 2 {
		return fmt.Errorf("read needs a label and a sub-label")
	}
	text := e.screen.ReadText(c.Args().Get(0), c.Args().Get(1), !c.Bool("first"))
	if text != "" {
		fmt.Fprintln(e.out, text)
	}
	return nil
}

func runTap(c *cli.Context, e *env) error {
	coords := make([]int, 0, c.NArg())
	for _, arg := range c.Args().Slice() {
		v, err := strconv.Atoi(arg)
		if err != nil {
			return fmt.Errorf("invalid coordinate %q", arg)
		}
		coords = append(coords, v)
	}
	if !e.driver().Tap(coords...) {
		return core.ErrCommandFailed.WithMessage("tap needs exactly two coordinates on a responsive device")
	}
	return nil
}

func runSwipe(c *cli.Context, e *env) error {
	dir, err := action.ParseDirection(c.Args().First())
	if err != nil {
		return err
	}
	if !e.driver().Swipe(dir) {
		return core.ErrCommandFailed.WithMessage("swipe " + dir.String() + " failed")
	}
	return nil
}

func runKey(c *cli.Context, e *env) error {
	arg := c.Args().First()
	code, ok := namedKeys[arg]
	if !ok {
		v, err := strconv.Atoi(arg)
		if err != nil {
			return fmt.Errorf("unknown key %q", arg)
		}
		code = v
	}
	if !e.driver().KeyEvent(code) {
		return core.ErrCommandFailed.WithMessage(fmt.Sprintf("key event %d failed", code))
	}
	return nil
}

func runText(c *cli.Context, e *env) error {
	if c.NArg() == 0 {
		return fmt.Errorf("text needs an argument")
	}
	if !e.driver().InputText(c.Args().First()) {
		return core.ErrCommandFailed.WithMessage("input text failed")
	}
	return nil
}

func runScreenshot(c *cli.Context, e *env) error {
	id := uuid.NewString()
	out := c.Args().First()
	if out == "" {
		dir := config.GetArtifactsDir("screenshots")
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
		out = filepath.Join(dir, "screenshot-"+id+".png")
	}

	d := e.driver()
	devicePath := path.Join(app.DefaultDeviceDir, "msgrelay-"+id+".png")
	d.MkdirAll(app.DefaultDeviceDir)
	ok := d.PullScreenshot(devicePath, out)
	d.Remove(devicePath)
	if !ok {
		return core.ErrCommandFailed.WithMessage("screenshot capture failed")
	}
	printSetupSuccess(e.out, "Saved "+out)
	return nil
}
