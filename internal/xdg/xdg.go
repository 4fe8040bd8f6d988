// Package xdg resolves XDG Base Directory paths for formplay: config for
// config.toml, state for logs, data for the session store. Directories are
// created private (0700) on first use and fall back to the conventional
// locations under $HOME when the XDG variables are unset.
package xdg

import (
	"os"
	"path/filepath"
)

// AppName is the directory name used under every XDG base.
const AppName = "formplay"

// ConfigDir returns $XDG_CONFIG_HOME/formplay, or ~/.config/formplay.
func ConfigDir() (string, error) {
	return appDir("XDG_CONFIG_HOME", ".config")
}

// StateDir returns $XDG_STATE_HOME/formplay, or ~/.local/state/formplay.
func StateDir() (string, error) {
	return appDir("XDG_STATE_HOME", ".local", "state")
}

// DataDir returns $XDG_DATA_HOME/formplay, or ~/.local/share/formplay.
func DataDir() (string, error) {
	return appDir("XDG_DATA_HOME", ".local", "share")
}

func appDir(env string, fallback ...string) (string, error) {
	base := os.Getenv(env)
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		base = filepath.Join(append([]string{home}, fallback...)...)
	}
	dir := filepath.Join(base, AppName)
	if err := os.MkdirAll(dir, 0o700); err != nil { // private dir
		return "", err
	}
	return dir, nil
}
