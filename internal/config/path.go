// Package config resolves settings from the config file, BALANCE_* and
// provider environment variables into typed component configs.
package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

const appName = "balance"

// ExpandPath expands a leading ~ and $VARS.
func ExpandPath(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			path = home + path[1:]
		}
	}
	return os.ExpandEnv(path)
}

// xdgDir returns $envVar/balance, or ~/fallback/balance when envVar is unset.
func xdgDir(envVar, fallback string) string {
	if base := os.Getenv(envVar); base != "" {
		return filepath.Join(base, appName)
	}
	return filepath.Join(ExpandPath("~"), fallback, appName)
}

// Dir returns the directory holding config.yaml, ~/.config/balance.
func Dir() string {
	return xdgDir("XDG_CONFIG_HOME", ".config")
}

// DefaultDatabasePath is where the statement cache and audit trail live
// unless database.path says otherwise.
func DefaultDatabasePath() string {
	return filepath.Join(xdgDir("XDG_DATA_HOME", filepath.Join(".local", "share")), appName+".db")
}

// Save writes the current settings to the config file in use, or to
// config.yaml under Dir when none was read.
func Save() (string, error) {
	path := viper.ConfigFileUsed()
	if path == "" {
		path = filepath.Join(Dir(), "config.yaml")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return "", err
	}
	return path, viper.WriteConfigAs(path)
}
