package config

import (
	"os"
	"path/filepath"
	"runtime"
)

// Platform identifiers.
const (
	platformLinux  = "linux"
	platformDarwin = "darwin"
)

// Application directory name used across all platforms.
const appName = "yomiyougu"

// Config file name.
const configFileName = "config.toml"

// DefaultConfigDir returns the platform-specific directory for config files.
// On Linux, respects XDG_CONFIG_HOME (defaults to ~/.config/yomiyougu).
// On macOS, uses ~/Library/Application Support/yomiyougu per Apple guidelines.
// Other platforms fall back to ~/.config/yomiyougu.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	switch runtime.GOOS {
	case platformLinux:
		return linuxConfigDir(home)
	case platformDarwin:
		return filepath.Join(home, "Library", "Application Support", appName)
	default:
		return filepath.Join(home, ".config", appName)
	}
}

// linuxConfigDir returns the XDG-compliant config directory for Linux.
func linuxConfigDir(home string) string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, appName)
	}

	return filepath.Join(home, ".config", appName)
}

// DefaultDataDir returns the platform-specific directory for application
// data: the catalog database, managed archive storage, settings.json, and
// device_id.json.
// On Linux, respects XDG_DATA_HOME (defaults to ~/.local/share/yomiyougu).
// On macOS, uses ~/Library/Application Support/yomiyougu (macOS convention
// collapses config and data into one directory).
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	switch runtime.GOOS {
	case platformLinux:
		return linuxDataDir(home)
	case platformDarwin:
		return filepath.Join(home, "Library", "Application Support", appName)
	default:
		return filepath.Join(home, ".local", "share", appName)
	}
}

// linuxDataDir returns the XDG-compliant data directory for Linux.
func linuxDataDir(home string) string {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, appName)
	}

	return filepath.Join(home, ".local", "share", appName)
}

// DefaultCacheDir returns the platform-specific directory for page cache
// files.
// On Linux, respects XDG_CACHE_HOME (defaults to ~/.cache/yomiyougu).
// On macOS, uses ~/Library/Caches/yomiyougu per Apple guidelines.
func DefaultCacheDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	switch runtime.GOOS {
	case platformLinux:
		return linuxCacheDir(home)
	case platformDarwin:
		return filepath.Join(home, "Library", "Caches", appName)
	default:
		return filepath.Join(home, ".cache", appName)
	}
}

// linuxCacheDir returns the XDG-compliant cache directory for Linux.
func linuxCacheDir(home string) string {
	if xdg := os.Getenv("XDG_CACHE_HOME"); xdg != "" {
		return filepath.Join(xdg, appName)
	}

	return filepath.Join(home, ".cache", appName)
}

// DefaultConfigPath returns the full path to the default config file. Used
// as the fallback when neither YOMIYOUGU_CONFIG nor --config is specified.
func DefaultConfigPath() string {
	dir := DefaultConfigDir()
	if dir == "" {
		return ""
	}

	return filepath.Join(dir, configFileName)
}

// DatabasePath returns the catalog.db path under the data directory.
func DatabasePath(dataDir string) string {
	return filepath.Join(dataDir, "catalog.db")
}

// SettingsPath returns the settings.json path under the data directory.
func SettingsPath(dataDir string) string {
	return filepath.Join(dataDir, "settings.json")
}

// DeviceIDPath returns the device_id.json path under the data directory.
func DeviceIDPath(dataDir string) string {
	return filepath.Join(dataDir, "device_id.json")
}

// DefaultManagedDir returns the directory managed imports are copied into
// when the caller doesn't keep the archive at its original path.
func DefaultManagedDir(dataDir string) string {
	return filepath.Join(dataDir, "library")
}
