package app

import (
	"os"
	"path"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/devicelab-dev/msgrelay/pkg/action"
	"github.com/devicelab-dev/msgrelay/pkg/core"
	"github.com/devicelab-dev/msgrelay/pkg/screen"
)

// DefaultDeviceDir is where screenshots are stored on the device. They stay
// there so the chat app's album picker can find them.
const DefaultDeviceDir = "/sdcard/Pictures/msgrelay"

// Screenshot is one captured screen.
type Screenshot struct {
	DevicePath string
	LocalPath  string

	keep bool
}

// Release removes the local copy unless it was written to an artifacts
// directory.
func (s Screenshot) Release() error {
	if s.keep || s.LocalPath == "" {
		return nil
	}
	return os.Remove(s.LocalPath)
}

// Screenshotter captures the screen to the device and pulls a local copy.
type Screenshotter struct {
	driver       *action.Driver
	serial       string
	deviceDir    string
	tempDir      string
	artifactsDir string
	newID        func() string
}

// NewScreenshotter creates a Screenshotter. An empty artifactsDir gives
// temporary local copies that Release deletes.
func NewScreenshotter(driver *action.Driver, serial, tempDir, artifactsDir string) *Screenshotter {
	return &Screenshotter{
		driver:       driver,
		serial:       serial,
		deviceDir:    DefaultDeviceDir,
		tempDir:      tempDir,
		artifactsDir: artifactsDir,
		newID:        uuid.NewString,
	}
}

// Capture takes a screenshot and registers it with the media scanner.
func (s *Screenshotter) Capture() (Screenshot, error) {
	id := s.newID()
	shot := Screenshot{DevicePath: path.Join(s.deviceDir, "msgrelay-"+id+".png")}

	if s.artifactsDir != "" {
		if err := os.MkdirAll(s.artifactsDir, 0755); err != nil {
			return Screenshot{}, err
		}
		shot.LocalPath = filepath.Join(s.artifactsDir, "screenshot-"+id+".png")
		shot.keep = true
	} else {
		f, err := os.CreateTemp(s.tempDir, screen.TempPattern("screenshot", s.serial, ".png"))
		if err != nil {
			return Screenshot{}, err
		}
		f.Close()
		shot.LocalPath = f.Name()
	}

	s.driver.MkdirAll(s.deviceDir)
	if !s.driver.PullScreenshot(shot.DevicePath, shot.LocalPath) {
		shot.Release()
		return Screenshot{}, core.ErrCommandFailed.WithMessage("screenshot capture failed")
	}
	s.driver.ScanMedia(shot.DevicePath)
	return shot, nil
}
