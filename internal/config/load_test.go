package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestLoadOrDefaultMissingFile(t *testing.T) {
	cfg, err := LoadOrDefault(filepath.Join(t.TempDir(), "missing.toml"), testLogger())
	if err != nil {
		t.Fatalf("LoadOrDefault: %v", err)
	}
	if cfg.Logging.LogLevel != defaultLogLevel {
		t.Fatalf("expected default log level, got %q", cfg.Logging.LogLevel)
	}
}

func TestLoadParsesKnownKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := "[logging]\nlog_level = \"debug\"\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := Load(path, testLogger())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Logging.LogLevel != "debug" {
		t.Fatalf("expected debug log level, got %q", cfg.Logging.LogLevel)
	}
}

func TestLoadRejectsUnknownKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := "bogus_key = 1\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	if _, err := Load(path, testLogger()); err == nil {
		t.Fatal("expected an error for an unknown key")
	}
}

func TestResolveAppliesLibraryDirOverrideChain(t *testing.T) {
	cfg, err := Resolve(EnvOverrides{LibraryDir: "/env/lib"}, CLIOverrides{LibraryDir: "/cli/lib"}, testLogger())
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if cfg.Library.RootDir != "/cli/lib" {
		t.Fatalf("expected CLI override to win, got %q", cfg.Library.RootDir)
	}
}
