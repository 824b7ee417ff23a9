// Package cli provides the command-line interface for msgrelay.
package cli

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
)

// Version is set at build time.
var Version = "dev"

// GlobalFlags are available to all commands.
var GlobalFlags = []cli.Flag{
	&cli.StringFlag{
		Name:    "device",
		Aliases: []string{"s"},
		Usage:   "Device serial (default: first attached device)",
		EnvVars: []string{"MSGRELAY_DEVICE", "ANDROID_SERIAL"},
	},
	&cli.StringFlag{
		Name:    "adb",
		Usage:   "Path to the adb binary (default: PATH, then $ANDROID_HOME/platform-tools)",
		EnvVars: []string{"MSGRELAY_ADB"},
	},
	&cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to config.yaml (default: <home>/config.yaml)",
		EnvVars: []string{"MSGRELAY_CONFIG"},
	},
	&cli.BoolFlag{
		Name:    "verbose",
		Usage:   "Log debug lines to stderr",
		EnvVars: []string{"MSGRELAY_VERBOSE"},
	},
	&cli.StringFlag{
		Name:    "log-file",
		Usage:   "Log file (default: <home>/logs/msgrelay.log)",
		EnvVars: []string{"MSGRELAY_LOG_FILE"},
	},
	&cli.StringFlag{
		Name:    "metrics-file",
		Usage:   "Write Prometheus metrics to this textfile when the command ends",
		EnvVars: []string{"MSGRELAY_METRICS_FILE"},
	},
	&cli.StringFlag{
		Name:    "report-dir",
		Usage:   "Write a JSON report of each run to this directory",
		EnvVars: []string{"MSGRELAY_REPORT_DIR"},
	},
	&cli.StringFlag{
		Name:    "locator",
		Usage:   "Element locator (text, tree)",
		EnvVars: []string{"MSGRELAY_LOCATOR"},
	},
}

func newApp() *cli.App {
	return &cli.App{
		Name:    "msgrelay",
		Usage:   "Relay SMS to WeChat and check in on DingTalk through adb",
		Version: Version,
		Description: `msgrelay drives an attached Android phone through adb and uiautomator
dumps. It forwards unread SMS conversations to a WeChat contact and runs
the daily DingTalk check-in.

Examples:
  msgrelay relay 张三
  msgrelay --device 9f11ca4d checkin --company 北京科技 --notify 张三
  msgrelay find '"通讯录"'`,
		Flags: GlobalFlags,
		Commands: []*cli.Command{
			relayCommand,
			sendCommand,
			messagesCommand,
			checkInCommand,
			devicesCommand,
			dumpCommand,
			findCommand,
			readCommand,
			tapCommand,
			swipeCommand,
			keyCommand,
			textCommand,
			screenshotCommand,
		},
	}
}

// Execute runs the CLI.
func Execute() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
