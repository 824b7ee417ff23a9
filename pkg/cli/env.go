package cli

import (
	"fmt"
	"io"

	"github.com/urfave/cli/v2"

	"github.com/devicelab-dev/msgrelay/pkg/action"
	"github.com/devicelab-dev/msgrelay/pkg/app"
	"github.com/devicelab-dev/msgrelay/pkg/config"
	"github.com/devicelab-dev/msgrelay/pkg/device"
	"github.com/devicelab-dev/msgrelay/pkg/locator"
	"github.com/devicelab-dev/msgrelay/pkg/logger"
	"github.com/devicelab-dev/msgrelay/pkg/metrics"
	"github.com/devicelab-dev/msgrelay/pkg/report"
	"github.com/devicelab-dev/msgrelay/pkg/screen"
)

// newRunner creates the process runner for adb. Tests replace it.
var newRunner = func() device.Runner { return device.ExecRunner{} }

// env is everything a device command needs, built once per invocation.
type env struct {
	cfg     *config.Config
	out     io.Writer
	session *device.Session
	screen  *screen.Screen
	record  *report.Recorder
}

func (e *env) driver() *action.Driver {
	return e.screen.Driver()
}

func (e *env) options() app.Options {
	return app.Options{
		Retries: e.cfg.Retries,
		Delay:   e.cfg.RetryDelay,
		Progress: func(step string, passed bool) {
			printStep(e.out, step, passed)
			e.record.Step(step, passed)
		},
	}
}

func (e *env) wechat() *app.WeChat {
	return app.NewWeChat(e.cfg.WeChat, e.screen, e.options())
}

func (e *env) messages() *app.Messages {
	return app.NewMessages(e.cfg.Messages, e.screen, e.options())
}

func (e *env) screenshotter() *app.Screenshotter {
	return app.NewScreenshotter(e.driver(), e.session.Handle.Serial, e.cfg.TempDir, e.cfg.ArtifactsDir)
}

// loadConfig reads the config file and applies the global flags on top.
func loadConfig(c *cli.Context) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if path := c.String("config"); path != "" {
		cfg, err = config.Load(path)
	} else {
		cfg, err = config.LoadFromDir(config.GetHome())
	}
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	applyFlags(c, cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyFlags overrides config values with the global flags that were set.
func applyFlags(c *cli.Context, cfg *config.Config) {
	if v := c.String("device"); v != "" {
		cfg.Device = v
	}
	if v := c.String("adb"); v != "" {
		cfg.ADB = v
	}
	if v := c.String("locator"); v != "" {
		cfg.Locator = v
	}
	if v := c.String("log-file"); v != "" {
		cfg.LogFile = v
	}
	if v := c.String("metrics-file"); v != "" {
		cfg.MetricsFile = v
	}
	if v := c.String("report-dir"); v != "" {
		cfg.ReportDir = v
	}
	if cfg.LogFile == "" {
		cfg.LogFile = config.DefaultLogFile()
	}
}

// withConfig wraps a command that does not need a device: it loads the
// config, starts logging and records the run metrics.
func withConfig(name string, fn func(c *cli.Context, cfg *config.Config) error) cli.ActionFunc {
	return func(c *cli.Context) (err error) {
		cfg, err := loadConfig(c)
		if err != nil {
			return err
		}
		if lerr := logger.Configure(logger.Options{
			Path:    cfg.LogFile,
			Console: c.Bool("verbose"),
			Verbose: c.Bool("verbose"),
		}); lerr != nil {
			fmt.Fprintf(c.App.ErrWriter, "Warning: Failed to initialize logger: %v\n", lerr)
		}
		defer logger.Close()

		logger.Info("=== %s started ===", name)
		defer func() {
			metrics.LastRun.WithLabelValues(name, metrics.Outcome(err == nil)).SetToCurrentTime()
			if cfg.MetricsFile != "" {
				if werr := metrics.WriteTextfile(cfg.MetricsFile); werr != nil {
					logger.Warn("write metrics %s: %v", cfg.MetricsFile, werr)
				}
			}
			if err != nil {
				logger.Error("%s failed: %v", name, err)
			} else {
				logger.Info("=== %s finished ===", name)
			}
		}()
		return fn(c, cfg)
	}
}

// withDevice wraps a command that drives the device.
func withDevice(name string, fn func(c *cli.Context, e *env) error) cli.ActionFunc {
	return withConfig(name, func(c *cli.Context, cfg *config.Config) (err error) {
		record := report.NewRecorder(cfg.ReportDir, name)
		defer func() {
			record.End(err)
			if record.Path() != "" {
				logger.Info("Report written to %s", record.Path())
			}
		}()

		e, err := openEnv(c, cfg)
		if err != nil {
			return err
		}
		e.record = record
		record.SetDevice(report.Device{
			Serial:  e.session.Handle.Serial,
			Model:   e.session.Handle.Model,
			Display: e.session.Handle.Display.String(),
		})
		return fn(c, e)
	})
}

func openEnv(c *cli.Context, cfg *config.Config) (*env, error) {
	out := c.App.Writer

	if cfg.Device != "" {
		printSetupStep(out, fmt.Sprintf("Connecting to device %s...", cfg.Device))
	} else {
		printSetupStep(out, "Connecting to device...")
	}
	session, err := device.Open(device.Options{
		ADBPath:         cfg.ADB,
		Serial:          cfg.Device,
		Runner:          newRunner(),
		CommandInterval: cfg.CommandInterval,
	})
	if err != nil {
		return nil, fmt.Errorf("connect to device: %w", err)
	}
	printSetupSuccess(out, fmt.Sprintf("Connected to %s (display %s)", session.Handle.Serial, session.Handle.Display))

	dumper := screen.NewDumper(session.Exec, screen.DumperOptions{
		TempDir:    cfg.TempDir,
		Retries:    cfg.DumpRetries,
		RetryDelay: cfg.RetryDelay,
	})
	driver := action.New(session.Exec, session.Handle.Display, cfg.SwipeAnchor)

	return &env{
		cfg:     cfg,
		out:     out,
		session: session,
		screen:  screen.New(dumper, locator.New(cfg.Locator), driver),
	}, nil
}
