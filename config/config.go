// Package config loads runtime configuration from a file or environment
// variables via viper and translates it into the per-component option
// functions the constructors accept.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/hupe1980/reqmesh/cache"
	"github.com/hupe1980/reqmesh/capability"
	"github.com/hupe1980/reqmesh/logging"
	"github.com/hupe1980/reqmesh/recovery"
	"github.com/hupe1980/reqmesh/session"
)

// Config stores all tunables of the runtime. Values are read by viper from a
// config file or REQMESH_* environment variables, with working defaults for
// every field.
type Config struct {
	Cache      CacheConfig      `mapstructure:"cache"`
	Capability CapabilityConfig `mapstructure:"capability"`
	Session    SessionConfig    `mapstructure:"session"`
	Recovery   RecoveryConfig   `mapstructure:"recovery"`
	Logging    LoggingConfig    `mapstructure:"logging"`
}

// TierConfig bounds one cache tier.
type TierConfig struct {
	MaxEntries int           `mapstructure:"max_entries"`
	TTL        time.Duration `mapstructure:"ttl"`
}

// CacheConfig stores tiered cache tunables.
type CacheConfig struct {
	Short               TierConfig    `mapstructure:"short"`
	Medium              TierConfig    `mapstructure:"medium"`
	Long                TierConfig    `mapstructure:"long"`
	PromoteToMediumHits uint64        `mapstructure:"promote_to_medium_hits"`
	PromoteToLongHits   uint64        `mapstructure:"promote_to_long_hits"`
	SweepInterval       time.Duration `mapstructure:"sweep_interval"`
}

// CapabilityConfig stores orchestrator tunables.
type CapabilityConfig struct {
	TaskTimeout time.Duration `mapstructure:"task_timeout"`
	MaxAttempts int           `mapstructure:"max_attempts"`
	RetryDelay  time.Duration `mapstructure:"retry_delay"`
	CacheTier   string        `mapstructure:"cache_tier"`
}

// SessionConfig stores session manager tunables.
type SessionConfig struct {
	Scope            string        `mapstructure:"scope"`
	AutoSaveInterval time.Duration `mapstructure:"auto_save_interval"`
	ExpiryWindow     time.Duration `mapstructure:"expiry_window"`
	QuestionsTotal   int           `mapstructure:"questions_total"`
	BarWidth         int           `mapstructure:"bar_width"`
}

// RecoveryConfig stores recovery handler tunables.
type RecoveryConfig struct {
	LogCapacity    int           `mapstructure:"log_capacity"`
	LockRetries    int           `mapstructure:"lock_retries"`
	LockBackoff    time.Duration `mapstructure:"lock_backoff"`
	RateLimitDelay time.Duration `mapstructure:"rate_limit_delay"`
}

// LoggingConfig stores logging tunables.
type LoggingConfig struct {
	Level     string `mapstructure:"level"`  // debug, info, warn, error
	Format    string `mapstructure:"format"` // json or text
	AddSource bool   `mapstructure:"add_source"`
}

// Load reads configuration from the given file, or from the working
// directory plus REQMESH_* environment variables when configPath is empty.
// Absent keys take the component defaults.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("reqmesh")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix("REQMESH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configPath != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("config: reading %q: %w", v.ConfigFileUsed(), err)
		}
		// No file present: defaults plus environment only.
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshalling: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	cacheDef := cache.DefaultConfig()
	v.SetDefault("cache.short.max_entries", cacheDef.Short.MaxEntries)
	v.SetDefault("cache.short.ttl", cacheDef.Short.TTL)
	v.SetDefault("cache.medium.max_entries", cacheDef.Medium.MaxEntries)
	v.SetDefault("cache.medium.ttl", cacheDef.Medium.TTL)
	v.SetDefault("cache.long.max_entries", cacheDef.Long.MaxEntries)
	v.SetDefault("cache.long.ttl", cacheDef.Long.TTL)
	v.SetDefault("cache.promote_to_medium_hits", cacheDef.PromoteToMediumHits)
	v.SetDefault("cache.promote_to_long_hits", cacheDef.PromoteToLongHits)
	v.SetDefault("cache.sweep_interval", cacheDef.SweepInterval)

	capDef := capability.DefaultConfig()
	v.SetDefault("capability.task_timeout", capDef.TaskTimeout)
	v.SetDefault("capability.max_attempts", capDef.MaxAttempts)
	v.SetDefault("capability.retry_delay", capDef.RetryDelay)
	v.SetDefault("capability.cache_tier", string(capDef.CacheTier))

	sessDef := session.DefaultConfig()
	v.SetDefault("session.scope", sessDef.Scope)
	v.SetDefault("session.auto_save_interval", sessDef.AutoSaveInterval)
	v.SetDefault("session.expiry_window", sessDef.ExpiryWindow)
	v.SetDefault("session.questions_total", sessDef.QuestionsTotal)
	v.SetDefault("session.bar_width", sessDef.BarWidth)

	recDef := recovery.DefaultConfig()
	v.SetDefault("recovery.log_capacity", recDef.LogCapacity)
	v.SetDefault("recovery.lock_retries", recDef.LockRetries)
	v.SetDefault("recovery.lock_backoff", recDef.LockBackoff)
	v.SetDefault("recovery.rate_limit_delay", recDef.RateLimitDelay)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.add_source", false)
}

// CacheOptions translates the cache section into a cache.New option.
func (c *Config) CacheOptions(logger logging.Logger) func(cfg *cache.Config) {
	return func(cfg *cache.Config) {
		cfg.Short = cache.TierConfig{MaxEntries: c.Cache.Short.MaxEntries, TTL: c.Cache.Short.TTL}
		cfg.Medium = cache.TierConfig{MaxEntries: c.Cache.Medium.MaxEntries, TTL: c.Cache.Medium.TTL}
		cfg.Long = cache.TierConfig{MaxEntries: c.Cache.Long.MaxEntries, TTL: c.Cache.Long.TTL}
		cfg.PromoteToMediumHits = c.Cache.PromoteToMediumHits
		cfg.PromoteToLongHits = c.Cache.PromoteToLongHits
		cfg.SweepInterval = c.Cache.SweepInterval
		cfg.Logger = logger
	}
}

// OrchestratorOptions translates the capability section into a
// capability.NewOrchestrator option.
func (c *Config) OrchestratorOptions(logger logging.Logger) func(cfg *capability.Config) {
	return func(cfg *capability.Config) {
		cfg.TaskTimeout = c.Capability.TaskTimeout
		cfg.MaxAttempts = c.Capability.MaxAttempts
		cfg.RetryDelay = c.Capability.RetryDelay
		cfg.CacheTier = cache.TierName(c.Capability.CacheTier)
		cfg.Logger = logger
	}
}

// SessionOptions translates the session section into a session.NewManager
// option.
func (c *Config) SessionOptions(logger logging.Logger) func(cfg *session.Config) {
	return func(cfg *session.Config) {
		cfg.Scope = c.Session.Scope
		cfg.AutoSaveInterval = c.Session.AutoSaveInterval
		cfg.ExpiryWindow = c.Session.ExpiryWindow
		cfg.QuestionsTotal = c.Session.QuestionsTotal
		cfg.BarWidth = c.Session.BarWidth
		cfg.Logger = logger
	}
}

// RecoveryOptions translates the recovery section into a recovery.NewHandler
// option.
func (c *Config) RecoveryOptions(logger logging.Logger) func(cfg *recovery.Config) {
	return func(cfg *recovery.Config) {
		cfg.LogCapacity = c.Recovery.LogCapacity
		cfg.LockRetries = c.Recovery.LockRetries
		cfg.LockBackoff = c.Recovery.LockBackoff
		cfg.RateLimitDelay = c.Recovery.RateLimitDelay
		cfg.Logger = logger
	}
}

// LoggerConfig translates the logging section into a logging.LoggerConfig.
func (c *Config) LoggerConfig() *logging.LoggerConfig {
	cfg := logging.DefaultLoggerConfig()
	cfg.Level = parseLevel(c.Logging.Level)
	if c.Logging.Format != "" {
		cfg.Format = c.Logging.Format
	}
	cfg.AddSource = c.Logging.AddSource
	return cfg
}

func parseLevel(s string) logging.LogLevel {
	switch strings.ToLower(s) {
	case "debug":
		return logging.LogLevelDebug
	case "warn", "warning":
		return logging.LogLevelWarn
	case "error":
		return logging.LogLevelError
	default:
		return logging.LogLevelInfo
	}
}
