package config

import (
	"path/filepath"

	"github.com/spf13/viper"
)

// SettingsDir returns the directory holding the active settings file, or the
// project-local dot directory when no config file was read.
func SettingsDir() string {
	if used := viper.ConfigFileUsed(); used != "" {
		return filepath.Dir(used)
	}
	return "./.parley"
}

// BuildSettingsPath joins target onto the settings directory
func BuildSettingsPath(target string) string {
	return filepath.Join(SettingsDir(), target)
}
