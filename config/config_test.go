package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/reqmesh/cache"
	"github.com/hupe1980/reqmesh/capability"
	"github.com/hupe1980/reqmesh/logging"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 100, cfg.Cache.Short.MaxEntries)
	assert.Equal(t, 5*time.Minute, cfg.Cache.Short.TTL)
	assert.Equal(t, 50, cfg.Cache.Medium.MaxEntries)
	assert.Equal(t, 30*time.Minute, cfg.Cache.Medium.TTL)
	assert.Equal(t, 20, cfg.Cache.Long.MaxEntries)
	assert.Equal(t, 24*time.Hour, cfg.Cache.Long.TTL)
	assert.Equal(t, uint64(5), cfg.Cache.PromoteToMediumHits)
	assert.Equal(t, uint64(10), cfg.Cache.PromoteToLongHits)

	assert.Equal(t, 5*time.Second, cfg.Capability.TaskTimeout)
	assert.Equal(t, 2, cfg.Capability.MaxAttempts)
	assert.Equal(t, time.Second, cfg.Capability.RetryDelay)
	assert.Equal(t, "medium", cfg.Capability.CacheTier)

	assert.Equal(t, "default", cfg.Session.Scope)
	assert.Equal(t, 30*time.Second, cfg.Session.AutoSaveInterval)
	assert.Equal(t, time.Hour, cfg.Session.ExpiryWindow)
	assert.Equal(t, 6, cfg.Session.QuestionsTotal)

	assert.Equal(t, 100, cfg.Recovery.LogCapacity)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "reqmesh.yaml")
	content := `
cache:
  short:
    max_entries: 10
    ttl: 1m
capability:
  task_timeout: 2s
  max_attempts: 3
session:
  questions_total: 8
logging:
  level: debug
  format: text
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	// Overridden values.
	assert.Equal(t, 10, cfg.Cache.Short.MaxEntries)
	assert.Equal(t, time.Minute, cfg.Cache.Short.TTL)
	assert.Equal(t, 2*time.Second, cfg.Capability.TaskTimeout)
	assert.Equal(t, 3, cfg.Capability.MaxAttempts)
	assert.Equal(t, 8, cfg.Session.QuestionsTotal)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "text", cfg.Logging.Format)

	// Untouched keys keep their defaults.
	assert.Equal(t, 50, cfg.Cache.Medium.MaxEntries)
	assert.Equal(t, time.Second, cfg.Capability.RetryDelay)
	assert.Equal(t, "default", cfg.Session.Scope)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("REQMESH_CAPABILITY_MAX_ATTEMPTS", "4")
	t.Setenv("REQMESH_SESSION_SCOPE", "staging")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 4, cfg.Capability.MaxAttempts)
	assert.Equal(t, "staging", cfg.Session.Scope)
}

func TestOptionTranslation(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	var cacheCfg cache.Config
	cfg.CacheOptions(logging.NoOpLogger{})(&cacheCfg)
	assert.Equal(t, 100, cacheCfg.Short.MaxEntries)
	assert.Equal(t, uint64(10), cacheCfg.PromoteToLongHits)
	assert.NotNil(t, cacheCfg.Logger)

	var orchCfg capability.Config
	cfg.OrchestratorOptions(logging.NoOpLogger{})(&orchCfg)
	assert.Equal(t, 5*time.Second, orchCfg.TaskTimeout)
	assert.Equal(t, cache.TierMedium, orchCfg.CacheTier)
}

func TestLoggerConfigTranslation(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	cfg.Logging.Level = "warn"
	cfg.Logging.Format = "text"

	lc := cfg.LoggerConfig()
	assert.Equal(t, logging.LogLevelWarn, lc.Level)
	assert.Equal(t, "text", lc.Format)
}
