package app

import (
	"fmt"
	"strings"

	"github.com/devicelab-dev/msgrelay/pkg/action"
	"github.com/devicelab-dev/msgrelay/pkg/config"
	"github.com/devicelab-dev/msgrelay/pkg/core"
	"github.com/devicelab-dev/msgrelay/pkg/logger"
	"github.com/devicelab-dev/msgrelay/pkg/screen"
)

// Messages reads SMS from the device's messaging app.
type Messages struct {
	*App
	msg config.MessagesConfig
}

// NewMessages creates the Messages module.
func NewMessages(cfg config.MessagesConfig, s *screen.Screen, opts Options) *Messages {
	return &Messages{App: New("Messages", cfg.App, s, opts), msg: cfg}
}

// Restart force-stops the app, launches it again and waits for its
// conversation list, so unread markers reflect the current inbox.
func (m *Messages) Restart() error {
	d := m.screen.Driver()
	m.opts.report("Shutdown Message App for restarting", d.ForceStop(m.cfg.Package))
	m.opts.report("Launch Message App", m.LaunchMonkey())

	res := m.opts.loop(m.opts.Retries.Launch).Until(m.IsRunning, func() { d.KeepAwake(1) })
	if !res.Succeeded {
		return core.ErrAppNotRunning.WithMessage(fmt.Sprintf("%s did not reach the conversation list", m.Name))
	}
	return nil
}

// ReadMessages returns the text of every message row on screen,
// newline-separated.
func (m *Messages) ReadMessages() string {
	return m.screen.ReadText(m.msg.ItemLabel, m.msg.TextAttr, true)
}

// ReadNew opens each unread conversation in turn and returns the messages
// read from them. At most Retries.Relay conversations are opened.
func (m *Messages) ReadNew() string {
	var sb strings.Builder
	d := m.screen.Driver()
	for i := 0; i < m.opts.Retries.Relay; i++ {
		p, ok := m.screen.Find(m.msg.UnreadMarker)
		if !ok {
			break
		}
		d.TapPoint(p)
		sb.WriteString(m.ReadMessages())
		sb.WriteString("\n")
		d.Back()
	}

	if sb.Len() > 0 {
		logger.Info("New messages fetched.")
	} else {
		logger.Info("All messages have been read.")
	}
	return sb.String()
}

// ReadNewAsScreenshot opens one unread conversation and captures it.
// found is false when nothing is unread.
func (m *Messages) ReadNewAsScreenshot(shots *Screenshotter) (shot Screenshot, found bool, err error) {
	p, ok := m.screen.Find(m.msg.UnreadMarker)
	if !ok {
		logger.Info("All messages have been read.")
		return Screenshot{}, false, nil
	}

	m.screen.Driver().TapPoint(p)
	logger.Info("Reading 1 new message to screenshot")
	shot, err = shots.Capture()
	if err != nil {
		return Screenshot{}, true, err
	}
	return shot, true, nil
}

// ReadFrom opens the notification messages tab, scrolls to sender and
// returns the messages in that thread.
func (m *Messages) ReadFrom(sender string) (string, error) {
	if !m.screen.TapMarker(m.msg.NotificationTab) {
		return "", core.ErrElementNotFound.WithMessage("notification messages tab not found")
	}

	p, ok := m.screen.ScrollTo(sender, action.Up, m.opts.loop(m.opts.Retries.Scroll))
	if !ok {
		return "", core.ErrElementNotFound.WithMessage(fmt.Sprintf("no messages from %s", sender))
	}
	m.screen.Driver().TapPoint(p)
	return m.ReadMessages(), nil
}
