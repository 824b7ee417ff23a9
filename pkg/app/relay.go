package app

import (
	"fmt"
	"strings"

	"github.com/devicelab-dev/msgrelay/pkg/logger"
	"github.com/devicelab-dev/msgrelay/pkg/metrics"
)

// Relay forwards unread SMS conversations to a WeChat contact as
// screenshots.
type Relay struct {
	Messages *Messages
	WeChat   *WeChat
	Shots    *Screenshotter
	Budget   int // maximum conversations relayed per run
}

// Run relays every unread conversation to user, up to Budget of them, and
// parks the device. It returns how many were relayed.
func (r *Relay) Run(user string) (int, error) {
	if err := r.Messages.Restart(); err != nil {
		return 0, err
	}

	relayed := 0
	for {
		if relayed >= r.Budget {
			logger.Warn("relay budget of %d reached, unread messages may remain", r.Budget)
			break
		}
		if relayed > 0 {
			if err := r.Messages.EnsureForeground(); err != nil {
				return relayed, err
			}
		}

		shot, found, err := r.Messages.ReadNewAsScreenshot(r.Shots)
		if err != nil {
			return relayed, err
		}
		if !found {
			break
		}

		err = r.WeChat.SendLastPicture(user)
		if rerr := shot.Release(); rerr != nil {
			logger.Warn("remove local screenshot %s: %v", shot.LocalPath, rerr)
		}
		if err != nil {
			return relayed, fmt.Errorf("relay message %d: %w", relayed+1, err)
		}
		relayed++
		metrics.Relayed.WithLabelValues("sms").Inc()
	}

	d := r.WeChat.Screen().Driver()
	d.Back()
	d.ScreenOff()
	r.WeChat.state = Parked
	logger.Info("relayed %d conversation(s) to %s", relayed, user)
	return relayed, nil
}

// RelayText forwards unread messages to user as one text message.
func (r *Relay) RelayText(user string) (string, error) {
	if err := r.Messages.Restart(); err != nil {
		return "", err
	}
	text := r.Messages.ReadNew()
	if strings.TrimSpace(text) == "" {
		r.Messages.Park()
		return "", nil
	}
	// input text cannot carry newlines
	flat := strings.Join(strings.Fields(text), " ")
	if err := r.WeChat.SendMessage(user, flat); err != nil {
		return text, err
	}
	r.WeChat.Park()
	return text, nil
}
