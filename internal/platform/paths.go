// Package platform resolves the per-user locations tasklist reads and writes.
package platform

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// DefaultAppName names the config and log directories when no override is given.
const DefaultAppName = "tasklist"

// devSuffix separates dev-mode directories from release ones.
const devSuffix = "-dev"

// ErrNoBaseDir is returned when the OS reports no usable home or config directory.
var ErrNoBaseDir = errors.New("no base directory")

// Paths holds the resolved locations for one app name. The client keeps no task
// data on disk; it only reads config and writes dev logs.
type Paths struct {
	ConfigPath string
	LogDir     string
}

// Options selects the app name and dev-mode variant.
type Options struct {
	AppName string
	DevMode bool
}

// DirName returns the directory name used under every base directory.
func (o Options) DirName() string {
	name := strings.TrimSpace(o.AppName)
	if name == "" {
		name = DefaultAppName
	}
	if o.DevMode {
		name += devSuffix
	}
	return name
}

// Resolve returns the paths for the running OS and environment.
func Resolve(opts Options) (Paths, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return Paths{}, fmt.Errorf("user config dir: %w", err)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return Paths{}, fmt.Errorf("user home dir: %w", err)
	}
	return For(runtime.GOOS, os.Getenv, configDir, home, opts.DirName())
}

// For resolves paths for goos. Config lives under the user config dir; logs
// follow each platform's convention for per-user state:
//
//	linux:   $XDG_STATE_HOME/<app>/log, else ~/.local/state/<app>/log
//	darwin:  ~/Library/Logs/<app>
//	windows: %LOCALAPPDATA%\<app>\log, else next to the config
func For(goos string, getenv func(string) string, userConfigDir, home, dirName string) (Paths, error) {
	if getenv == nil {
		getenv = func(string) string { return "" }
	}
	dirName = strings.TrimSpace(dirName)
	if dirName == "" {
		return Paths{}, errors.New("empty app name")
	}
	if strings.TrimSpace(userConfigDir) == "" {
		return Paths{}, fmt.Errorf("%w: config", ErrNoBaseDir)
	}

	configBase := userConfigDir
	if goos == "linux" {
		if v := strings.TrimSpace(getenv("XDG_CONFIG_HOME")); v != "" {
			configBase = v
		}
	}
	if goos == "windows" {
		if v := strings.TrimSpace(getenv("APPDATA")); v != "" {
			configBase = v
		}
	}
	appConfigDir := filepath.Join(configBase, dirName)

	var logDir string
	switch goos {
	case "linux":
		stateBase := strings.TrimSpace(getenv("XDG_STATE_HOME"))
		if stateBase == "" {
			if strings.TrimSpace(home) == "" {
				return Paths{}, fmt.Errorf("%w: home", ErrNoBaseDir)
			}
			stateBase = filepath.Join(home, ".local", "state")
		}
		logDir = filepath.Join(stateBase, dirName, "log")
	case "darwin":
		if strings.TrimSpace(home) == "" {
			return Paths{}, fmt.Errorf("%w: home", ErrNoBaseDir)
		}
		logDir = filepath.Join(home, "Library", "Logs", dirName)
	case "windows":
		if v := strings.TrimSpace(getenv("LOCALAPPDATA")); v != "" {
			logDir = filepath.Join(v, dirName, "log")
		} else {
			logDir = filepath.Join(appConfigDir, "log")
		}
	default:
		logDir = filepath.Join(appConfigDir, "log")
	}

	return Paths{
		ConfigPath: filepath.Join(appConfigDir, "config.toml"),
		LogDir:     logDir,
	}, nil
}
