// Package config handles configuration for msgrelay.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/devicelab-dev/msgrelay/pkg/core"
)

// Config represents the msgrelay configuration (config.yaml).
type Config struct {
	// Device settings
	ADB    string `yaml:"adb"`    // adb binary; empty searches PATH and ANDROID_HOME
	Device string `yaml:"device"` // device serial; empty picks the first attached device

	// Local files
	TempDir      string `yaml:"tempDir"`      // dump and screenshot temp files
	ArtifactsDir string `yaml:"artifactsDir"` // keep local screenshots here when set
	MetricsFile  string `yaml:"metricsFile"`  // Prometheus textfile written at exit
	LogFile      string `yaml:"logFile"`      // log file; empty uses <home>/logs/msgrelay.log
	ReportDir    string `yaml:"reportDir"`    // JSON run reports; empty disables them

	// Engine tuning
	Locator          string        `yaml:"locator"`          // "text" or "tree"
	CommandInterval  time.Duration `yaml:"commandInterval"`  // minimum spacing between device commands
	DumpRetries      int           `yaml:"dumpRetries"`      // extra attempts for an unavailable dump
	RetryDelay       time.Duration `yaml:"retryDelay"`       // delay between polling attempts
	SwipeAnchor      float64       `yaml:"swipeAnchor"`      // swipe start as a fraction of display height
	ScreenOffTimeout time.Duration `yaml:"screenOffTimeout"` // set before a check-in

	Retries  Retries        `yaml:"retries"`
	WeChat   WeChatConfig   `yaml:"wechat"`
	Messages MessagesConfig `yaml:"messages"`
	DingTalk App            `yaml:"dingtalk"`
	CheckIn  CheckInConfig  `yaml:"checkIn"`
}

// Retries holds the attempt budgets of the polling loops.
type Retries struct {
	Launch      int `yaml:"launch"`      // app launch / shutdown
	Element     int `yaml:"element"`     // waiting for an element to appear
	Scroll      int `yaml:"scroll"`      // swipes while searching a list
	CheckInPage int `yaml:"checkInPage"` // waiting for the check-in page
	Send        int `yaml:"send"`        // waiting for the send button
	Relay       int `yaml:"relay"`       // messages relayed per run
}

// App identifies a target application.
type App struct {
	Package   string `yaml:"package"`
	Activity  string `yaml:"activity"`
	RunMarker string `yaml:"runMarker"` // present in the dump while the app is in the foreground
}

// WeChatConfig configures the chat app messages are relayed to.
type WeChatConfig struct {
	App `yaml:",inline"`
}

// MessagesConfig configures the SMS app messages are read from.
type MessagesConfig struct {
	App             `yaml:",inline"`
	ItemLabel       string `yaml:"itemLabel"`       // resource id of a message row
	TextAttr        string `yaml:"textAttr"`        // attribute holding the message text
	UnreadMarker    string `yaml:"unreadMarker"`    // marker of an unread conversation
	NotificationTab string `yaml:"notificationTab"` // marker of the notification messages tab
}

// CheckInConfig configures the DingTalk check-in.
type CheckInConfig struct {
	Company    string `yaml:"company"`    // organization to check in for
	NotifyUser string `yaml:"notifyUser"` // WeChat contact notified afterwards
	Jitter     Jitter `yaml:"jitter"`     // random wait before starting
}

// Jitter is a random delay in [Min, Max].
type Jitter struct {
	Min time.Duration `yaml:"min"`
	Max time.Duration `yaml:"max"`
}

// Pick returns a delay in [Min, Max] using rnd, which must return a value
// in [0, n).
func (j Jitter) Pick(rnd func(n int64) int64) time.Duration {
	if j.Max <= j.Min {
		return j.Min
	}
	return j.Min + time.Duration(rnd(int64(j.Max-j.Min)+1))
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Locator:          "text",
		DumpRetries:      2,
		RetryDelay:       time.Second,
		SwipeAnchor:      0.6,
		ScreenOffTimeout: 30 * time.Minute,
		Retries: Retries{
			Launch:      10,
			Element:     10,
			Scroll:      10,
			CheckInPage: 10,
			Send:        10,
			Relay:       20,
		},
		WeChat: WeChatConfig{App: App{
			Package:   "com.tencent.mm",
			Activity:  "com.tencent.mm/.ui.LauncherUI",
			RunMarker: `"通讯录"`,
		}},
		Messages: MessagesConfig{
			App: App{
				Package:   "com.samsung.android.messaging",
				Activity:  "com.samsung.android.messaging/com.android.mms.ui.ConversationComposer",
				RunMarker: `"对话"`,
			},
			ItemLabel:       "com.samsung.android.messaging:id/base_list_item_data",
			TextAttr:        "content-desc",
			UnreadMarker:    "条未读信息",
			NotificationTab: `"通知类信息"`,
		},
		DingTalk: App{
			Package:   "com.alibaba.android.rimet",
			Activity:  "com.alibaba.android.rimet/.biz.LaunchHomeActivity",
			RunMarker: `"协作"`,
		},
		CheckIn: CheckInConfig{
			Jitter: Jitter{Min: time.Minute, Max: 10 * time.Minute},
		},
	}
}

// Validate rejects values the engine cannot work with.
func (c *Config) Validate() error {
	switch c.Locator {
	case "", "text", "tree":
	default:
		return invalid("locator must be text or tree, got %q", c.Locator)
	}
	if c.SwipeAnchor <= 0 || c.SwipeAnchor >= 1 {
		return invalid("swipeAnchor must be between 0 and 1, got %v", c.SwipeAnchor)
	}
	if c.DumpRetries < 0 {
		return invalid("dumpRetries must not be negative")
	}
	if c.CommandInterval < 0 || c.RetryDelay < 0 || c.ScreenOffTimeout < 0 {
		return invalid("durations must not be negative")
	}

	budgets := map[string]int{
		"launch":      c.Retries.Launch,
		"element":     c.Retries.Element,
		"scroll":      c.Retries.Scroll,
		"checkInPage": c.Retries.CheckInPage,
		"send":        c.Retries.Send,
		"relay":       c.Retries.Relay,
	}
	for name, v := range budgets {
		if v < 0 {
			return invalid("retries.%s must not be negative", name)
		}
	}

	if c.CheckIn.Jitter.Min < 0 || c.CheckIn.Jitter.Max < c.CheckIn.Jitter.Min {
		return invalid("checkIn.jitter must satisfy 0 <= min <= max")
	}
	for name, app := range map[string]App{"wechat": c.WeChat.App, "messages": c.Messages.App, "dingtalk": c.DingTalk} {
		if app.Package == "" || app.Activity == "" {
			return core.ErrMissingRequired.WithMessage(fmt.Sprintf("%s.package and %s.activity are required", name, name))
		}
	}
	return nil
}

func invalid(format string, args ...interface{}) error {
	return core.ErrInvalidConfig.WithMessage(fmt.Sprintf(format, args...))
}

// Load loads configuration from a file on top of Default.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path) //#nosec G304 -- user-provided config file
	if err != nil {
		return nil, err
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, core.ErrInvalidConfig.WithCause(err).WithMessage("parse " + path)
	}

	return cfg, nil
}

// LoadFromDir looks for config.yaml or config.yml in the directory.
func LoadFromDir(dir string) (*Config, error) {
	// Try config.yaml first
	configPath := filepath.Join(dir, "config.yaml")
	if _, err := os.Stat(configPath); err == nil {
		return Load(configPath)
	}

	// Try config.yml
	configPath = filepath.Join(dir, "config.yml")
	if _, err := os.Stat(configPath); err == nil {
		return Load(configPath)
	}

	// No config file found, use the defaults
	return Default(), nil
}
