package app

import (
	"errors"
	"testing"

	"github.com/devicelab-dev/msgrelay/pkg/config"
	"github.com/devicelab-dev/msgrelay/pkg/core"
)

// relayPhone holds one unread conversation in the SMS app and a WeChat
// chat with 张三.
func relayPhone() *phone {
	return messagesPhone().
		screen("wchats", node("张三", "[0,400][1080,500]"), chatsTab, contactsTab).
		screen("wchat", voiceToggle, inputBox, sendButton, moreButton).
		screen("wsent", voiceToggle, inputBox, moreButton).
		screen("more", voiceToggle, node("相册", "[0,2200][200,2300]")).
		screen("album", node("发送(1/9)", "[880,50][1080,150]")).
		on("", "shell am start -n com.tencent.mm", "wchats").
		on("", "shell am start -n com.samsung.android.messaging", "read").
		on("wchats", "shell input tap 540 450", "wchat").
		on("wchat", "shell input tap 990 2150", "wsent").
		on("", "shell input tap 1030 2050", "more").
		on("more", "shell input tap 100 2250", "album").
		on("album", "shell input tap 980 100", "wsent")
}

func newTestRelay(h *harness, budget int) *Relay {
	cfg := config.Default()
	return &Relay{
		Messages: NewMessages(cfg.Messages, h.screen, h.opts),
		WeChat:   NewWeChat(cfg.WeChat, h.screen, h.opts),
		Shots:    h.shots(),
		Budget:   budget,
	}
}

func TestRelay_Run(t *testing.T) {
	p := relayPhone()
	h := newHarness(t, p.runner)
	r := newTestRelay(h, 5)

	n, err := r.Run("张三")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if n != 1 {
		t.Errorf("relayed %d, want 1", n)
	}
	if c := h.runner.Count("shell screencap"); c != 1 {
		t.Errorf("screenshots = %d, want 1", c)
	}
	if !h.hasCommand("shell input tap 980 100") {
		t.Error("picture not sent")
	}

	got := h.runner.Commands()
	if got[len(got)-2] != "shell input keyevent 4" || got[len(got)-1] != "shell input keyevent 223" {
		t.Errorf("last commands %v, want back then screen off", got[len(got)-2:])
	}
	if r.WeChat.State() != Parked {
		t.Errorf("WeChat state = %v, want parked", r.WeChat.State())
	}
}

func TestRelay_Run_NothingUnread(t *testing.T) {
	p := relayPhone()
	p.rules[0].to = "read" // the inbox opens with everything read
	h := newHarness(t, p.runner)

	n, err := newTestRelay(h, 5).Run("张三")
	if err != nil || n != 0 {
		t.Fatalf("Run = %d, %v", n, err)
	}
	if h.runner.Count("shell am start -n com.tencent.mm") != 0 {
		t.Error("WeChat should not be opened")
	}
}

func TestRelay_Run_ZeroBudget(t *testing.T) {
	p := relayPhone()
	h := newHarness(t, p.runner)

	n, err := newTestRelay(h, 0).Run("张三")
	if err != nil || n != 0 {
		t.Fatalf("Run = %d, %v", n, err)
	}
	if h.runner.Count("shell screencap") != 0 {
		t.Error("nothing should be captured")
	}
}

func TestRelay_Run_SendFails(t *testing.T) {
	p := relayPhone()
	p.screens["album"] = dumpOf(node("原图", "[100,2300][300,2400]"))
	h := newHarness(t, p.runner)

	n, err := newTestRelay(h, 5).Run("张三")
	if !errors.Is(err, core.ErrRetryExhausted) {
		t.Fatalf("expected ErrRetryExhausted, got %v", err)
	}
	if n != 0 {
		t.Errorf("relayed %d, want 0", n)
	}
}

func TestRelay_RelayText(t *testing.T) {
	p := relayPhone()
	h := newHarness(t, p.runner)

	text, err := newTestRelay(h, 5).RelayText("张三")
	if err != nil {
		t.Fatalf("RelayText: %v", err)
	}
	if want := "验证码 1234\n余额 100\n"; text != want {
		t.Errorf("text = %q, want %q", text, want)
	}
	// 验证码 and 余额 romanize to pinyin
	if !h.hasCommand("shell input text yanzhengma%s1234%syue%s100") {
		t.Errorf("unexpected input in %v", h.runner.Commands())
	}
}

func TestRelay_RelayText_NothingUnread(t *testing.T) {
	p := relayPhone()
	p.rules[0].to = "read"
	h := newHarness(t, p.runner)

	text, err := newTestRelay(h, 5).RelayText("张三")
	if err != nil || text != "" {
		t.Fatalf("RelayText = %q, %v", text, err)
	}
	got := h.runner.Commands()
	if got[len(got)-1] != "shell input keyevent 223" {
		t.Errorf("device not parked: %v", got)
	}
}
