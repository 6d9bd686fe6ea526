// Package config loads application settings from an optional YAML file with
// environment-variable overrides on top of built-in defaults.
package config

import (
	"log/slog"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultTimezone = "UTC"
	configPathEnv   = "SAM_RADAR_CONFIG"
	apiKeyEnv       = "SAM_API_KEY"
	baseURLEnv      = "SAM_API_BASE_URL"
	databaseURLEnv  = "DATABASE_URL"
	stateDirEnv     = "SAM_RADAR_STATE_DIR"
)

// Config holds high-level settings required across the application.
type Config struct {
	SAM       SAMConfig       `yaml:"sam"`
	Defaults  DefaultsConfig  `yaml:"defaults"`
	Cache     CacheConfig     `yaml:"cache"`
	State     StateConfig     `yaml:"state"`
	Database  DatabaseConfig  `yaml:"database"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// SAMConfig describes how to reach the SAM.gov opportunities API.
type SAMConfig struct {
	BaseURL          string `yaml:"baseUrl"`
	APIKey           string `yaml:"apiKey"`
	TimeoutSeconds   int    `yaml:"timeoutSeconds"`
	MaxRetries       int    `yaml:"maxRetries"`
	InterCallDelayMs int    `yaml:"interCallDelayMs"`
}

// DefaultsConfig sets the query defaults applied when a caller omits them.
type DefaultsConfig struct {
	State string `yaml:"state"`
	Limit int    `yaml:"limit"`
}

// CacheConfig controls the per-code response cache.
type CacheConfig struct {
	TTLSeconds int `yaml:"ttlSeconds"`
}

// StateConfig controls run-snapshot persistence.
type StateConfig struct {
	Dir  string `yaml:"dir"`
	Keep int    `yaml:"keep"`
}

// DatabaseConfig describes Postgres connection details.
type DatabaseConfig struct {
	URL string `yaml:"url"`
}

// SchedulerConfig defines when the scheduled fetch should run.
type SchedulerConfig struct {
	CronExpression string         `yaml:"cronExpression"`
	Timezone       string         `yaml:"timezone"`
	location       *time.Location `yaml:"-"`
}

// Location resolves the scheduler timezone string to a time.Location.
func (s SchedulerConfig) Location() *time.Location {
	if s.location != nil {
		return s.location
	}
	loc, _ := time.LoadLocation(defaultTimezone)
	return loc
}

// LoggingConfig selects the log level for the process-wide slog handler.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// SlogLevel maps the configured level name onto a slog.Level, defaulting to
// info for unknown values.
func (l LoggingConfig) SlogLevel() slog.Level {
	switch l.Level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Load reads YAML configuration (if present) and applies environment
// overrides.
func Load() Config {
	cfg := defaultConfig()

	if path := os.Getenv(configPathEnv); path != "" {
		if raw, err := os.ReadFile(path); err != nil {
			slog.Warn("config file unreadable, using defaults", "path", path, "error", err)
		} else {
			var fileCfg Config
			if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
				slog.Warn("config file unparseable, using defaults", "path", path, "error", err)
			} else {
				cfg = mergeConfig(cfg, fileCfg)
			}
		}
	}

	cfg.applyEnvOverrides()
	cfg.bindTimezone()

	return cfg
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(apiKeyEnv); v != "" {
		c.SAM.APIKey = v
	}
	if v := os.Getenv(baseURLEnv); v != "" {
		c.SAM.BaseURL = v
	}
	if v := os.Getenv(databaseURLEnv); v != "" {
		c.Database.URL = v
	}
	if v := os.Getenv(stateDirEnv); v != "" {
		c.State.Dir = v
	}
}

func (c *Config) bindTimezone() {
	tz := c.Scheduler.Timezone
	if tz == "" {
		tz = defaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		slog.Warn("unknown scheduler timezone, reverting to UTC", "timezone", tz)
		loc, _ = time.LoadLocation(defaultTimezone)
	}
	c.Scheduler.location = loc
}

func mergeConfig(base, override Config) Config {
	if override.SAM.BaseURL != "" {
		base.SAM.BaseURL = override.SAM.BaseURL
	}
	if override.SAM.APIKey != "" {
		base.SAM.APIKey = override.SAM.APIKey
	}
	if override.SAM.TimeoutSeconds > 0 {
		base.SAM.TimeoutSeconds = override.SAM.TimeoutSeconds
	}
	if override.SAM.MaxRetries > 0 {
		base.SAM.MaxRetries = override.SAM.MaxRetries
	}
	if override.SAM.InterCallDelayMs > 0 {
		base.SAM.InterCallDelayMs = override.SAM.InterCallDelayMs
	}

	if override.Defaults.State != "" {
		base.Defaults.State = override.Defaults.State
	}
	if override.Defaults.Limit > 0 {
		base.Defaults.Limit = override.Defaults.Limit
	}

	if override.Cache.TTLSeconds > 0 {
		base.Cache.TTLSeconds = override.Cache.TTLSeconds
	}

	if override.State.Dir != "" {
		base.State.Dir = override.State.Dir
	}
	if override.State.Keep > 0 {
		base.State.Keep = override.State.Keep
	}

	if override.Database.URL != "" {
		base.Database.URL = override.Database.URL
	}

	if override.Scheduler.CronExpression != "" {
		base.Scheduler.CronExpression = override.Scheduler.CronExpression
	}
	if override.Scheduler.Timezone != "" {
		base.Scheduler.Timezone = override.Scheduler.Timezone
	}

	if override.Logging.Level != "" {
		base.Logging.Level = override.Logging.Level
	}

	return base
}

func defaultConfig() Config {
	tz, _ := time.LoadLocation(defaultTimezone)
	return Config{
		SAM: SAMConfig{
			BaseURL:          "https://api.sam.gov/opportunities/v2/search",
			TimeoutSeconds:   30,
			MaxRetries:       3,
			InterCallDelayMs: 500,
		},
		Defaults: DefaultsConfig{
			State: "CO",
			Limit: 50,
		},
		Cache: CacheConfig{TTLSeconds: 900},
		State: StateConfig{Dir: "data/state", Keep: 30},
		Scheduler: SchedulerConfig{
			CronExpression: "0 6 * * *",
			Timezone:       defaultTimezone,
			location:       tz,
		},
		Logging: LoggingConfig{Level: "info"},
	}
}
