package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return DefaultConfig()
}

func TestValidate_ValidDefaults(t *testing.T) {
	err := Validate(validConfig())
	assert.NoError(t, err)
}

func TestValidate_BadLogLevel(t *testing.T) {
	cfg := validConfig()
	cfg.Logging.LogLevel = "verbose"

	err := Validate(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "log_level")
}

func TestValidate_BadLogFormat(t *testing.T) {
	cfg := validConfig()
	cfg.Logging.LogFormat = "xml"

	err := Validate(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "log_format")
}

func TestValidate_NegativePageCache(t *testing.T) {
	cfg := validConfig()
	cfg.Library.PageCacheMiB = -1

	err := Validate(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "page_cache_mib")
}

func TestValidate_CloudEnabledRequiresValidInterval(t *testing.T) {
	cfg := validConfig()
	cfg.Cloud.Enabled = true
	cfg.Cloud.SyncInterval = "not-a-duration"

	err := Validate(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sync_interval")
}

func TestValidate_CloudDisabledIgnoresBadInterval(t *testing.T) {
	cfg := validConfig()
	cfg.Cloud.Enabled = false
	cfg.Cloud.SyncInterval = "not-a-duration"

	assert.NoError(t, Validate(cfg))
}
