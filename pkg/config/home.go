package config

import (
	"os"
	"path/filepath"
	"sync"
)

const envHome = "MSGRELAY_HOME"

var (
	homeOnce sync.Once
	homeDir  string
)

// GetHome returns the msgrelay home directory.
//
// Resolution order:
//  1. $MSGRELAY_HOME environment variable
//  2. Parent of the binary's directory (if binary is in <home>/bin/)
//  3. Current working directory (development fallback)
func GetHome() string {
	homeOnce.Do(func() {
		homeDir = resolveHome()
	})
	return homeDir
}

// GetLogsDir returns <home>/logs.
func GetLogsDir() string {
	return filepath.Join(GetHome(), "logs")
}

// GetArtifactsDir returns <home>/artifacts/<kind>.
func GetArtifactsDir(kind string) string {
	return filepath.Join(GetHome(), "artifacts", kind)
}

// DefaultLogFile returns <home>/logs/msgrelay.log.
func DefaultLogFile() string {
	return filepath.Join(GetLogsDir(), "msgrelay.log")
}

func resolveHome() string {
	// 1. Environment variable
	if env := os.Getenv(envHome); env != "" {
		return env
	}

	// 2. Binary-relative: if binary is at <home>/bin/msgrelay, use <home>
	if execPath, err := os.Executable(); err == nil {
		if resolved, err := filepath.EvalSymlinks(execPath); err == nil {
			execPath = resolved
		}
		binDir := filepath.Dir(execPath)
		if filepath.Base(binDir) == "bin" {
			return filepath.Dir(binDir)
		}
	}

	// 3. Current working directory
	if cwd, err := os.Getwd(); err == nil {
		return cwd
	}

	return "."
}

// ResetHome resets the cached home directory (for testing).
func ResetHome() {
	homeOnce = sync.Once{}
	homeDir = ""
}
