// Package paths resolves configuration and data directory locations and
// describes the on-disk layout of a catalogue data directory.
package paths

import (
	"os"
	"path/filepath"
	"runtime"
)

// AppName is the directory name used under platform config/data roots.
const AppName = "catalogue"

// Environment variable names for directory overrides.
const (
	EnvConfigDir = "CATALOGUE_CONFIG_DIR"
	EnvDataDir   = "CATALOGUE_DATA_DIR"
)

// platformDir holds platform-detection functions that can be overridden in tests.
var platformDir = struct {
	homeDir       func() (string, error)
	userConfigDir func() (string, error)
}{
	homeDir:       os.UserHomeDir,
	userConfigDir: os.UserConfigDir,
}

// DefaultConfigDir returns the platform-specific default configuration directory.
//
// Linux:   $XDG_CONFIG_HOME/catalogue (fallback ~/.config/catalogue)
// macOS:   ~/Library/Application Support/catalogue
// Windows: %APPDATA%/catalogue
func DefaultConfigDir() (string, error) {
	switch runtime.GOOS {
	case "linux":
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			return filepath.Join(xdg, AppName), nil
		}
		home, err := platformDir.homeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, ".config", AppName), nil
	default:
		// os.UserConfigDir is ~/Library/Application Support on macOS and
		// %APPDATA% on Windows.
		dir, err := platformDir.userConfigDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(dir, AppName), nil
	}
}

// DefaultDataDir returns the platform-specific default data directory.
//
// Linux:   $XDG_DATA_HOME/catalogue (fallback ~/.local/share/catalogue)
// macOS:   ~/Library/Application Support/catalogue
// Windows: %APPDATA%/catalogue
func DefaultDataDir() (string, error) {
	switch runtime.GOOS {
	case "linux":
		if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
			return filepath.Join(xdg, AppName), nil
		}
		home, err := platformDir.homeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, ".local", "share", AppName), nil
	default:
		// Config and data share one directory off Linux; the catalogue
		// keeps config.yaml beside catalogue.db and images/ there.
		dir, err := platformDir.userConfigDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(dir, AppName), nil
	}
}

// ResolveConfigDir returns the configuration directory following the precedence
// chain: flag > CATALOGUE_CONFIG_DIR env > DefaultConfigDir().
//
// Explicit locations are made absolute so that config.yaml written by
// "catalogue init" stays valid when the command is rerun from another
// working directory.
func ResolveConfigDir(flag string) (string, error) {
	if flag != "" {
		return filepath.Abs(flag)
	}
	if env := os.Getenv(EnvConfigDir); env != "" {
		return filepath.Abs(env)
	}
	return DefaultConfigDir()
}

// ResolveDataDir returns the data directory following the precedence chain:
// flag > configYAMLValue > CATALOGUE_DATA_DIR env > DefaultDataDir().
//
// configYAMLValue is the data_dir key of config.yaml. A catalogue never
// lives in the working directory: with no override the database, images
// and logs go under the per-user data directory.
func ResolveDataDir(flag, configYAMLValue string) (string, error) {
	if flag != "" {
		return filepath.Abs(flag)
	}
	if configYAMLValue != "" {
		return filepath.Abs(configYAMLValue)
	}
	if env := os.Getenv(EnvDataDir); env != "" {
		return filepath.Abs(env)
	}
	return DefaultDataDir()
}
