package cli

import (
	"fmt"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/devicelab-dev/msgrelay/pkg/app"
	"github.com/devicelab-dev/msgrelay/pkg/config"
)

var relayCommand = &cli.Command{
	Name:      "relay",
	Usage:     "Forward unread SMS conversations to a WeChat contact",
	ArgsUsage: "<wechat-user>",
	Description: `Restart the SMS app, open each unread conversation, screenshot it and
send the screenshot to the WeChat contact. At most retries.relay
conversations are forwarded per run. The phone is parked afterwards.

Examples:
  msgrelay relay 张三
  msgrelay relay --text 张三`,
	Flags: []cli.Flag{
		&cli.BoolFlag{
			Name:  "text",
			Usage: "Send the messages as one text message instead of screenshots",
		},
	},
	Action: withDevice("relay", runRelay),
}

var sendCommand = &cli.Command{
	Name:      "send",
	Usage:     "Send a text message, or the newest album picture, to a WeChat contact",
	ArgsUsage: "<wechat-user> [message]",
	Flags: []cli.Flag{
		&cli.BoolFlag{
			Name:  "picture",
			Usage: "Send the newest album picture instead of a message",
		},
	},
	Action: withDevice("send", runSend),
}

var messagesCommand = &cli.Command{
	Name:  "messages",
	Usage: "Print unread SMS, or the thread of one sender, without relaying",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:  "from",
			Usage: "Read the thread of this sender under the notification messages tab",
		},
	},
	Action: withDevice("messages", runMessages),
}

var checkInCommand = &cli.Command{
	Name:  "checkin",
	Usage: "Run the DingTalk attendance check-in",
	Description: `Wait a random delay, restart DingTalk, select the company, check in,
screenshot the result and notify the WeChat contact.

Examples:
  msgrelay checkin
  msgrelay checkin --company 北京科技 --notify 张三 --no-wait`,
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:    "company",
			Usage:   "Organization to check in for (overrides checkIn.company)",
			EnvVars: []string{"MSGRELAY_COMPANY"},
		},
		&cli.StringFlag{
			Name:    "notify",
			Usage:   "WeChat contact to notify (overrides checkIn.notifyUser)",
			EnvVars: []string{"MSGRELAY_NOTIFY"},
		},
		&cli.BoolFlag{
			Name:  "no-wait",
			Usage: "Skip the random delay before starting",
		},
	},
	Action: withDevice("checkin", runCheckIn),
}

func runRelay(c *cli.Context, e *env) error {
	if c.NArg() != 1 {
		return fmt.Errorf("relay needs exactly one WeChat user")
	}
	user := c.Args().First()

	r := &app.Relay{
		Messages: e.messages(),
		WeChat:   e.wechat(),
		Shots:    e.screenshotter(),
		Budget:   e.cfg.Retries.Relay,
	}

	if c.Bool("text") {
		text, err := r.RelayText(user)
		if err != nil {
			return err
		}
		if text == "" {
			fmt.Fprintln(e.out, "No unread messages.")
		} else {
			fmt.Fprintf(e.out, "Relayed to %s:\n%s", user, text)
		}
		return nil
	}

	n, err := r.Run(user)
	if err != nil {
		return err
	}
	fmt.Fprintf(e.out, "Relayed %d conversation(s) to %s.\n", n, user)
	return nil
}

func runSend(c *cli.Context, e *env) error {
	user := c.Args().First()
	if user == "" {
		return fmt.Errorf("send needs a WeChat user")
	}

	w := e.wechat()
	if c.Bool("picture") {
		if err := w.SendLastPicture(user); err != nil {
			return err
		}
	} else {
		if c.NArg() < 2 {
			return fmt.Errorf("send needs a message, or --picture")
		}
		if err := w.SendMessage(user, c.Args().Get(1)); err != nil {
			return err
		}
	}
	w.Park()
	e.options().Progress("Send to "+user, true)
	return nil
}

func runMessages(c *cli.Context, e *env) error {
	m := e.messages()
	if err := m.Restart(); err != nil {
		return err
	}
	defer m.Park()

	var text string
	if sender := c.String("from"); sender != "" {
		var err error
		if text, err = m.ReadFrom(sender); err != nil {
			return err
		}
	} else {
		text = m.ReadNew()
	}
	if text == "" {
		fmt.Fprintln(e.out, "No messages.")
		return nil
	}
	fmt.Fprintln(e.out, strings.TrimRight(text, "\n"))
	return nil
}

func runCheckIn(c *cli.Context, e *env) error {
	checkIn := e.cfg.CheckIn
	if v := c.String("company"); v != "" {
		checkIn.Company = v
	}
	if v := c.String("notify"); v != "" {
		checkIn.NotifyUser = v
	}
	if c.Bool("no-wait") {
		checkIn.Jitter = config.Jitter{}
	}

	t := app.NewDingTalk(e.cfg.DingTalk, checkIn, e.screen, e.options(), app.CheckInDeps{
		WeChat:           e.wechat(),
		Shots:            e.screenshotter(),
		Listed:           e.session.IsListed,
		ScreenOffTimeout: e.cfg.ScreenOffTimeout,
	})
	return t.CheckIn()
}
