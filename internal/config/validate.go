package config

import (
	"errors"
	"fmt"
	"time"
)

// Validate checks all configuration values and returns all errors found.
// It accumulates every error rather than stopping at the first, so users
// see a complete report and can fix all issues in one pass.
func Validate(cfg *Config) error {
	var errs []error

	errs = append(errs, validateLogging(&cfg.Logging)...)
	errs = append(errs, validateCloud(&cfg.Cloud)...)

	if cfg.Library.PageCacheMiB < 0 {
		errs = append(errs, fmt.Errorf("page_cache_mib: must be >= 0, got %d", cfg.Library.PageCacheMiB))
	}

	return errors.Join(errs...)
}

var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

var validLogFormats = map[string]bool{
	"auto": true,
	"text": true,
	"json": true,
}

func validateLogging(l *LoggingConfig) []error {
	var errs []error

	if !validLogLevels[l.LogLevel] {
		errs = append(errs, fmt.Errorf("log_level: must be one of debug, info, warn, error; got %q", l.LogLevel))
	}

	if !validLogFormats[l.LogFormat] {
		errs = append(errs, fmt.Errorf("log_format: must be one of auto, text, json; got %q", l.LogFormat))
	}

	return errs
}

func validateCloud(c *CloudConfig) []error {
	if !c.Enabled {
		return nil
	}

	if _, err := time.ParseDuration(c.SyncInterval); err != nil {
		return []error{fmt.Errorf("sync_interval: invalid duration %q: %w", c.SyncInterval, err)}
	}

	return nil
}
