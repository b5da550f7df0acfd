package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/BurntSushi/toml"
)

// CLIOverrides holds values sourced from command-line flags.
type CLIOverrides struct {
	ConfigPath string
	LibraryDir string
}

// Load reads and parses a TOML config file, validates it, and returns the
// resulting Config. Unknown keys are rejected to catch typos early.
func Load(path string, logger *slog.Logger) (*Config, error) {
	logger.Debug("loading config file", "path", path)

	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file %s: %w", path, err)
	}

	md, err := toml.Decode(string(data), cfg)
	if err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}

	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("config file %s: unknown key %q", path, undecoded[0].String())
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	logger.Debug("config file parsed successfully", "path", path)

	return cfg, nil
}

// LoadOrDefault reads a TOML config file if it exists, otherwise returns a
// Config populated with all default values. This supports the zero-config
// first-run experience: users can start without creating a config file.
func LoadOrDefault(path string, logger *slog.Logger) (*Config, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		logger.Debug("config file not found, using defaults", "path", path)

		return DefaultConfig(), nil
	}

	return Load(path, logger)
}

// Resolve loads the config file (or defaults) and applies the override
// chain: defaults -> config file -> environment variables -> CLI flags. It
// also fills in the library root directory default when unset.
func Resolve(env EnvOverrides, cli CLIOverrides, logger *slog.Logger) (*Config, error) {
	cfgPath := ResolveConfigPath(env, cli, logger)

	cfg, err := LoadOrDefault(cfgPath, logger)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	if env.LibraryDir != "" {
		cfg.Library.RootDir = env.LibraryDir
	}
	if cli.LibraryDir != "" {
		cfg.Library.RootDir = cli.LibraryDir
	}

	if cfg.Library.RootDir == "" {
		cfg.Library.RootDir = DefaultDataDir()
	}
	if cfg.Library.ManagedDir == "" {
		cfg.Library.ManagedDir = DefaultManagedDir(cfg.Library.RootDir)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	logger.Debug("config resolved",
		slog.String("library_root", cfg.Library.RootDir),
		slog.String("managed_dir", cfg.Library.ManagedDir),
	)

	return cfg, nil
}

// ResolveConfigPath determines the config file path using the three-layer
// priority: CLI flag > environment variable > platform default.
func ResolveConfigPath(env EnvOverrides, cli CLIOverrides, logger *slog.Logger) string {
	cfgPath := DefaultConfigPath()
	source := "default"

	if env.ConfigPath != "" {
		cfgPath = env.ConfigPath
		source = "env"
	}

	if cli.ConfigPath != "" {
		cfgPath = cli.ConfigPath
		source = "cli"
	}

	logger.Debug("config path resolved", "path", cfgPath, "source", source)

	return cfgPath
}

// EnsureDataDirs creates the data directory tree (database, managed
// storage, settings) the resolved config points at.
func EnsureDataDirs(cfg *Config) error {
	for _, dir := range []string{cfg.Library.RootDir, cfg.Library.ManagedDir} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("creating data directory %s: %w", dir, err)
		}
	}

	return nil
}
