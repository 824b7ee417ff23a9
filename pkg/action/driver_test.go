package action

import (
	"strings"
	"testing"
	"time"

	"github.com/devicelab-dev/msgrelay/pkg/core"
	"github.com/devicelab-dev/msgrelay/pkg/device"
)

func newTestDriver(r *device.ScriptedRunner) *Driver {
	exec := device.NewExecutor("adb", "ABC123", r, device.ExecutorOptions{NoWake: true})
	return New(exec, core.Size{Width: 1080, Height: 2400}, 0)
}

func TestTap_Arity(t *testing.T) {
	tests := []struct {
		name   string
		coords []int
	}{
		{"zero", nil},
		{"one", []int{100}},
		{"three", []int{1, 2, 3}},
		{"four", []int{1, 2, 3, 4}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &device.ScriptedRunner{}
			d := newTestDriver(r)
			if d.Tap(tt.coords...) {
				t.Error("expected false")
			}
			if len(r.Calls) != 0 {
				t.Errorf("expected no device calls, got %v", r.Commands())
			}
		})
	}
}

func TestTap(t *testing.T) {
	r := &device.ScriptedRunner{}
	d := newTestDriver(r)

	if !d.TapPoint(core.Point{X: 200, Y: 300}) {
		t.Fatal("expected tap to succeed")
	}
	if got := r.Commands(); len(got) != 1 || got[0] != "shell input tap 200 300" {
		t.Errorf("commands = %v", got)
	}
}

func TestTap_NonZeroExit(t *testing.T) {
	r := (&device.ScriptedRunner{}).On("shell input tap", device.Reply{ExitCode: 1})
	if newTestDriver(r).Tap(1, 2) {
		t.Error("expected false on non-zero exit")
	}
}

func TestSwipe(t *testing.T) {
	tests := []struct {
		dir  Direction
		want string
	}{
		{Up, "shell input swipe 540 1440 540 720"},
		{Down, "shell input swipe 540 1440 540 2160"},
	}
	for _, tt := range tests {
		t.Run(tt.dir.String(), func(t *testing.T) {
			r := &device.ScriptedRunner{}
			newTestDriver(r).Swipe(tt.dir)
			if got := r.Commands(); len(got) != 1 || got[0] != tt.want {
				t.Errorf("commands = %v, want %q", got, tt.want)
			}
		})
	}
}

func TestAnchor_Custom(t *testing.T) {
	d := New(nil, core.Size{Width: 1000, Height: 2000}, 0.5)
	if got := d.Anchor(); got != (core.Point{X: 500, Y: 1000}) {
		t.Errorf("Anchor() = %v", got)
	}
	d = New(nil, core.Size{Width: 1000, Height: 2000}, 1.5)
	if got := d.Anchor(); got.Y != 1200 {
		t.Errorf("out-of-range anchor should fall back to default, got %v", got)
	}
}

func TestAnchor_RoundsDown(t *testing.T) {
	tests := []struct {
		height int
		want   int
	}{
		{2400, 1440},
		{2341, 1404},
		{1920, 1152},
		{2340, 1404},
	}
	for _, tt := range tests {
		d := New(nil, core.Size{Width: 1080, Height: tt.height}, 0)
		if got := d.Anchor().Y; got != tt.want {
			t.Errorf("height %d: Anchor().Y = %d, want %d", tt.height, got, tt.want)
		}
	}
}

func TestParseDirection(t *testing.T) {
	if d, err := ParseDirection("DOWN"); err != nil || d != Down {
		t.Errorf("ParseDirection(DOWN) = %v, %v", d, err)
	}
	if _, err := ParseDirection("left"); err == nil {
		t.Error("expected error for left")
	}
}

func TestNamedKeys(t *testing.T) {
	r := &device.ScriptedRunner{}
	d := newTestDriver(r)

	d.Back()
	d.Home()
	d.Power()
	d.ScreenOff()
	d.Paste()
	d.Copy()

	want := []string{
		"shell input keyevent 4",
		"shell input keyevent 3",
		"shell input keyevent 26",
		"shell input keyevent 223",
		"shell input keyevent 279",
		"shell input keyevent 278",
	}
	got := r.Commands()
	if len(got) != len(want) {
		t.Fatalf("commands = %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("command %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestKeepAwake(t *testing.T) {
	r := &device.ScriptedRunner{}
	newTestDriver(r).KeepAwake(3)
	if n := r.Count("shell input keyevent 224"); n != 6 {
		t.Errorf("wake events = %d, want 6", n)
	}
}

func TestPullScreenshot(t *testing.T) {
	r := &device.ScriptedRunner{}
	d := newTestDriver(r)

	if !d.PullScreenshot("/sdcard/a.png", "/tmp/a.png") {
		t.Fatal("expected success")
	}
	got := r.Commands()
	if len(got) != 2 || got[0] != "shell screencap -p /sdcard/a.png" || got[1] != "pull /sdcard/a.png /tmp/a.png" {
		t.Errorf("commands = %v", got)
	}
}

func TestPullScreenshot_CaptureFails(t *testing.T) {
	r := (&device.ScriptedRunner{}).On("shell screencap", device.Reply{ExitCode: 1})
	d := newTestDriver(r)

	if d.PullScreenshot("/sdcard/a.png", "/tmp/a.png") {
		t.Error("expected false")
	}
	if r.Count("pull") != 0 {
		t.Error("pull must not run after a failed capture")
	}
}

func TestIsInstalled(t *testing.T) {
	r := (&device.ScriptedRunner{}).On("shell pm list packages", device.Reply{
		Stdout: "package:com.tencent.mm.plugin\npackage:com.tencent.mm\n",
	})
	d := newTestDriver(r)

	if !d.IsInstalled("com.tencent.mm") {
		t.Error("expected com.tencent.mm to be installed")
	}
	if d.IsInstalled("com.tencent") {
		t.Error("prefix match must not count as installed")
	}
}

func TestAppIntents(t *testing.T) {
	r := &device.ScriptedRunner{}
	d := newTestDriver(r)

	d.StartActivity("com.tencent.mm/.ui.LauncherUI")
	d.LaunchPackage("com.samsung.android.messaging")
	d.ForceStop("com.samsung.android.messaging")
	d.SetScreenOffTimeout(30 * time.Minute)
	d.ScanMedia("/sdcard/Pictures/x.png")

	want := []string{
		"shell am start -n com.tencent.mm/.ui.LauncherUI",
		"shell monkey -p com.samsung.android.messaging 1",
		"shell am force-stop com.samsung.android.messaging",
		"shell settings put system screen_off_timeout 1800000",
		"shell am broadcast -a android.intent.action.MEDIA_SCANNER_SCAN_FILE -d file:///sdcard/Pictures/x.png",
	}
	got := r.Commands()
	if len(got) != len(want) {
		t.Fatalf("commands = %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("command %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestInputText(t *testing.T) {
	r := &device.ScriptedRunner{}
	d := newTestDriver(r)

	if !d.InputText("hello world") {
		t.Fatal("expected success")
	}
	if got := r.Commands(); got[0] != "shell input text hello%sworld" {
		t.Errorf("command = %q", got[0])
	}

	r.Reset()
	if d.InputText("😀") {
		t.Error("text that encodes to nothing should return false")
	}
	if len(r.Calls) != 0 {
		t.Errorf("expected no device call, got %v", r.Commands())
	}
}

func TestInputText_LiteralPercentS(t *testing.T) {
	r := &device.ScriptedRunner{}
	d := newTestDriver(r)

	if !d.InputText("save 50%s now") {
		t.Fatal("expected success")
	}
	want := []string{"shell input text save%s50%", "shell input text s%snow"}
	got := r.Commands()
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("commands = %q, want %q", got, want)
	}
}

func TestInputChunks(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"hello world", []string{"hello%sworld"}},
		{"100%", []string{"100%"}},
		{"%s", []string{"%", "s"}},
		{"a%s%sb", []string{"a%", "s%", "sb"}},
		{"😀", nil},
	}
	for _, tt := range tests {
		got := InputChunks(tt.in)
		if strings.Join(got, "|") != strings.Join(tt.want, "|") || len(got) != len(tt.want) {
			t.Errorf("InputChunks(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestEncodeInputText(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"hello", "hello"},
		{"a b", "a%sb"},
		{"你好", "nihao"},
		{"Café 你好", "Cafe%snihao"},
		{"a&b;c", `a\&b\;c`},
		{`say "hi"`, `say%s\"hi\"`},
		{"it's $5 (now)", `it\'s%s\$5%s\(now\)`},
		{`C:\tmp`, `C:\\tmp`},
		{"a|b>c<d`e", "a\\|b\\>c\\<d\\`e"},
		{"😀ok", "ok"},
	}
	for _, tt := range tests {
		if got := EncodeInputText(tt.in); got != tt.want {
			t.Errorf("EncodeInputText(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestRomanize(t *testing.T) {
	if got := Romanize("北京科技"); got != "beijingkeji" {
		t.Errorf("Romanize = %q", got)
	}
	if got := Romanize("Ångström"); got != "Angstrom" {
		t.Errorf("Romanize = %q", got)
	}
}
