package config

// Default values for configuration options, used both as the starting
// point for TOML decoding and as the fallback when no config file exists.
const (
	defaultPageCacheMiB = 256
	defaultLogLevel     = "info"
	defaultLogFormat    = "auto"
	defaultSyncInterval = "15m"
)

// DefaultConfig returns a Config populated with all default values.
func DefaultConfig() *Config {
	return &Config{
		Library: LibraryConfig{
			PageCacheMiB: defaultPageCacheMiB,
		},
		Logging: LoggingConfig{
			LogLevel:  defaultLogLevel,
			LogFormat: defaultLogFormat,
		},
		Cloud: CloudConfig{
			Enabled:      false,
			SyncInterval: defaultSyncInterval,
		},
	}
}
