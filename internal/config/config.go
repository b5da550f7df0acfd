// Package config implements TOML configuration loading, validation, and
// platform-specific path resolution for yomiyougu.
package config

// Config is the top-level configuration structure. Unlike the teacher's
// multi-drive, multi-account schema, yomiyougu manages exactly one local
// library and at most one cloud account, so there is no drive-section or
// profile layer to decode.
type Config struct {
	Library LibraryConfig `toml:"library"`
	Logging LoggingConfig `toml:"logging"`
	Cloud   CloudConfig   `toml:"cloud"`
}

// LibraryConfig controls where the catalog database, imported archives,
// and page cache live on disk.
type LibraryConfig struct {
	RootDir      string `toml:"root_dir"`
	ManagedDir   string `toml:"managed_dir"`
	PageCacheMiB int    `toml:"page_cache_mib"`
}

// LoggingConfig controls log output behavior.
type LoggingConfig struct {
	LogLevel  string `toml:"log_level"`
	LogFile   string `toml:"log_file"`
	LogFormat string `toml:"log_format"`
}

// CloudConfig controls whether the cloud sync orchestrator runs at all.
// The OAuth exchange itself is never performed by this module (see
// cloudsync.TokenSource); this section only records whether a shell has
// configured one.
type CloudConfig struct {
	Enabled      bool   `toml:"enabled"`
	SyncInterval string `toml:"sync_interval"`
	BaseURL      string `toml:"base_url"`
}
