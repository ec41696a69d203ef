package config

import (
	"path/filepath"
)

var (
	// AppName is used in generating file system paths.
	AppName = "carpulse"
)

// ConfigDir returns the directory path for configuration files.
// Returns ~/.config/carpulse by default.
func ConfigDir(homeDir string) string {
	return filepath.Join(homeDir, ".config", AppName)
}

// CacheDir returns the directory path for cache files.
// Returns ~/.cache/carpulse by default.
func CacheDir(homeDir string) string {
	return filepath.Join(homeDir, ".cache", AppName)
}

// LogDir returns the directory path for log files.
// Returns ~/.local/share/carpulse/logs by default.
func LogDir(homeDir string) string {
	return filepath.Join(homeDir, ".local", "share", AppName, "logs")
}

// ConfigFilePath returns the full path to the config.yaml file.
// Returns ~/.config/carpulse/config.yaml by default.
func ConfigFilePath(homeDir string) string {
	return filepath.Join(ConfigDir(homeDir), "config.yaml")
}

// CatalogFilePath returns the full path to the catalog.yaml file that
// maps countries to manufacturers and manufacturers to powertrain
// profiles and scrape sources.
// Returns ~/.config/carpulse/catalog.yaml by default.
func CatalogFilePath(homeDir string) string {
	return filepath.Join(ConfigDir(homeDir), "catalog.yaml")
}
