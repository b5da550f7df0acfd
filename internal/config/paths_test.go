package config

import (
	"path/filepath"
	"testing"
)

func TestLinuxConfigDirRespectsXDG(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/xdg/config")
	got := linuxConfigDir("/home/reader")
	want := filepath.Join("/xdg/config", appName)
	if got != want {
		t.Fatalf("linuxConfigDir = %q, want %q", got, want)
	}
}

func TestLinuxConfigDirFallsBackToHome(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "")
	got := linuxConfigDir("/home/reader")
	want := filepath.Join("/home/reader", ".config", appName)
	if got != want {
		t.Fatalf("linuxConfigDir = %q, want %q", got, want)
	}
}

func TestLinuxDataDirRespectsXDG(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", "/xdg/data")
	got := linuxDataDir("/home/reader")
	want := filepath.Join("/xdg/data", appName)
	if got != want {
		t.Fatalf("linuxDataDir = %q, want %q", got, want)
	}
}

func TestLinuxCacheDirRespectsXDG(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", "/xdg/cache")
	got := linuxCacheDir("/home/reader")
	want := filepath.Join("/xdg/cache", appName)
	if got != want {
		t.Fatalf("linuxCacheDir = %q, want %q", got, want)
	}
}

func TestDefaultConfigPathJoinsDirAndFileName(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/xdg/config")
	got := DefaultConfigPath()
	want := filepath.Join("/xdg/config", appName, configFileName)
	if got != want {
		t.Fatalf("DefaultConfigPath = %q, want %q", got, want)
	}
}

func TestDerivedDataPaths(t *testing.T) {
	dataDir := "/data/yomiyougu"

	if got, want := DatabasePath(dataDir), filepath.Join(dataDir, "catalog.db"); got != want {
		t.Fatalf("DatabasePath = %q, want %q", got, want)
	}
	if got, want := SettingsPath(dataDir), filepath.Join(dataDir, "settings.json"); got != want {
		t.Fatalf("SettingsPath = %q, want %q", got, want)
	}
	if got, want := DeviceIDPath(dataDir), filepath.Join(dataDir, "device_id.json"); got != want {
		t.Fatalf("DeviceIDPath = %q, want %q", got, want)
	}
	if got, want := DefaultManagedDir(dataDir), filepath.Join(dataDir, "library"); got != want {
		t.Fatalf("DefaultManagedDir = %q, want %q", got, want)
	}
}
