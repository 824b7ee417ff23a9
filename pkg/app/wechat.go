package app

import (
	"fmt"
	"strings"

	"github.com/agnivade/levenshtein"

	"github.com/devicelab-dev/msgrelay/pkg/action"
	"github.com/devicelab-dev/msgrelay/pkg/config"
	"github.com/devicelab-dev/msgrelay/pkg/core"
	"github.com/devicelab-dev/msgrelay/pkg/logger"
	"github.com/devicelab-dev/msgrelay/pkg/metrics"
	"github.com/devicelab-dev/msgrelay/pkg/screen"
)

// WeChat UI markers.
const (
	chatsTabMarker      = `"微信"`
	contactsTabMarker   = "通讯录"
	sendMessageMarker   = `text="发消息"`
	inputBoxMarker      = "android.widget.EditText"
	moreFunctionsMarker = `content-desc="更多功能按钮`
	albumMarker         = `text="相册"`
	authorizeMarker     = `text="去授权"`
	alwaysAllowMarker   = `text="总是允许"`
	originalPhotoMarker = `text="原图"`
	checkBoxMarker      = `class="android.widget.CheckBox"`
	sendButtonPrefix    = `text="发送`
	sendButtonMarker    = `text="发送"`
	voiceToggleMarker   = `"切换到按住说话"`
)

// WeChat sends pictures and text to a contact.
type WeChat struct {
	*App
}

// NewWeChat creates the WeChat module.
func NewWeChat(cfg config.WeChatConfig, s *screen.Screen, opts Options) *WeChat {
	return &WeChat{App: New("WeChat", cfg.App, s, opts)}
}

// ReturnMainPage backs out until the main tabs are visible, then opens the
// chats tab.
func (w *WeChat) ReturnMainPage() bool {
	d := w.screen.Driver()
	res := w.opts.loop(w.opts.Retries.Element).Until(func() bool {
		return w.screen.Has(w.cfg.RunMarker)
	}, func() { d.Back() })
	if !res.Succeeded {
		return false
	}
	return w.screen.TapMarker(chatsTabMarker)
}

// ChatWith opens the chat with user, looking on the current page first and
// then scrolling the contacts list. selectInput focuses the text box.
// An unknown user gives core.ErrUserNotFound.
func (w *WeChat) ChatWith(user string, selectInput bool) error {
	if err := w.EnsureForeground(); err != nil {
		return err
	}

	marker := `"` + user + `"`
	p, ok := w.screen.Find(marker)
	if !ok {
		w.ReturnMainPage()
		w.screen.TapMarker(contactsTabMarker)
		p, ok = w.screen.ScrollTo(marker, action.Up, w.opts.loop(w.opts.Retries.Scroll))
	}
	if !ok {
		return w.userNotFound(user)
	}

	d := w.screen.Driver()
	d.TapPoint(p)
	if !w.screen.TapMarker(sendMessageMarker) {
		logger.Debug("WeChat: no %s button, assuming the chat is open", sendMessageMarker)
	}
	if selectInput && !w.screen.TapMarker(inputBoxMarker) {
		return core.ErrElementNotFound.WithMessage("chat input box not found")
	}
	return nil
}

func (w *WeChat) userNotFound(user string) error {
	err := core.ErrUserNotFound.WithMessage(fmt.Sprintf("user %q not found", user))
	if hint := closestName(user, w.screen.ReadText("", "text=", true)); hint != "" {
		return err.WithDetails(map[string]interface{}{"closest": hint}).
			WithMessage(fmt.Sprintf("user %q not found, closest visible name is %q", user, hint))
	}
	return err
}

// closestName picks the visible name nearest to user by edit distance.
func closestName(user, visible string) string {
	best, bestDist := "", -1
	for _, name := range strings.Split(visible, "\n") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		dist := levenshtein.ComputeDistance(user, name)
		if bestDist < 0 || dist < bestDist {
			best, bestDist = name, dist
		}
	}
	return best
}

// SendLastPicture sends the newest album picture to user as an original
// photo.
func (w *WeChat) SendLastPicture(user string) error {
	if err := w.ChatWith(user, false); err != nil {
		return err
	}

	logger.Info("WeChat: sending last picture to %s", user)
	// Each step is optional: the grant dialogs only appear on first use.
	for _, marker := range []string{
		moreFunctionsMarker,
		albumMarker,
		authorizeMarker,
		alwaysAllowMarker,
		originalPhotoMarker,
		checkBoxMarker,
	} {
		if !w.screen.TapMarker(marker) {
			logger.Debug("WeChat: %s not shown", marker)
		}
	}

	d := w.screen.Driver()
	res := w.opts.loop(w.opts.Retries.Send).Until(func() bool {
		return w.screen.TapMarker(sendButtonPrefix)
	}, func() { d.KeepAwake(2) })
	if !res.Succeeded {
		return core.ErrRetryExhausted.WithMessage(fmt.Sprintf("send button not found after %d attempts", res.Attempts))
	}

	if !w.screen.Has(voiceToggleMarker) {
		logger.Warn("WeChat: picture sent to %s but the chat view was not restored", user)
	}
	metrics.Relayed.WithLabelValues("picture").Inc()
	return nil
}

// SendMessage types msg into the chat with user and sends it.
func (w *WeChat) SendMessage(user, msg string) error {
	if err := w.ChatWith(user, true); err != nil {
		return err
	}

	d := w.screen.Driver()
	if !d.InputText(msg) {
		return core.ErrCommandFailed.WithMessage("input text failed")
	}
	d.KeepAwake(1)
	w.screen.TapMarker(sendButtonMarker)
	// The first tap can land while the keyboard is still animating.
	if w.screen.Has(sendButtonMarker) {
		w.screen.TapMarker(sendButtonMarker)
	}
	metrics.Relayed.WithLabelValues("text").Inc()
	return nil
}
