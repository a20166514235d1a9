package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/orderhub-lab/orderhub-analytics/internal/scheduler"
)

// Config is the top-level configuration for the analytics service.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Database  DatabaseConfig  `koanf:"database"`
	Analytics AnalyticsConfig `koanf:"analytics"`
	Revenue   RevenueConfig   `koanf:"revenue"`
}

// ServerConfig holds the HTTP server configuration.
type ServerConfig struct {
	Port int    `koanf:"port"`
	Host string `koanf:"host"`
	Mode string `koanf:"mode"` // "debug" or "release"
}

// DatabaseConfig holds the connection settings for the ordering platform's
// postgres instance.
type DatabaseConfig struct {
	DSN          string `koanf:"dsn"`
	MaxOpenConns int    `koanf:"max_open_conns"`
	MaxIdleConns int    `koanf:"max_idle_conns"`
	AutoMigrate  bool   `koanf:"auto_migrate"`
}

// AnalyticsConfig drives the product analysis jobs.
type AnalyticsConfig struct {
	Enabled        bool   `koanf:"enabled"`
	BootstrapDelay string `koanf:"bootstrap_delay"` // parsed as time.Duration
	RefreshTime    string `koanf:"refresh_time"`    // HH:MM wall clock
	Timezone       string `koanf:"timezone"`        // IANA name, defines day boundaries
	WorkerCount    int    `koanf:"worker_count"`
}

// RevenueConfig drives the revenue refresh job.
type RevenueConfig struct {
	Enabled     bool   `koanf:"enabled"`
	RefreshTime string `koanf:"refresh_time"` // HH:MM wall clock
}

// BootstrapDelayDuration returns the parsed bootstrap delay. Call Validate
// first.
func (c AnalyticsConfig) BootstrapDelayDuration() time.Duration {
	d, _ := time.ParseDuration(c.BootstrapDelay)
	return d
}

// RefreshClock returns the parsed analysis refresh fire time. Call Validate
// first.
func (c AnalyticsConfig) RefreshClock() scheduler.ClockTime {
	ct, _ := scheduler.ParseClock(c.RefreshTime)
	return ct
}

// RefreshClock returns the parsed revenue refresh fire time. Call Validate
// first.
func (c RevenueConfig) RefreshClock() scheduler.ClockTime {
	ct, _ := scheduler.ParseClock(c.RefreshTime)
	return ct
}

// Location resolves the configured timezone. Day boundaries for every job
// and every API date parameter come from this location.
func (c AnalyticsConfig) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid analytics.timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server.port %d (must be 1-65535)", c.Server.Port)
	}
	if strings.TrimSpace(c.Server.Host) == "" {
		return fmt.Errorf("server.host is required")
	}
	if c.Server.Mode != "debug" && c.Server.Mode != "release" {
		return fmt.Errorf("invalid server.mode %q (must be debug or release)", c.Server.Mode)
	}

	if strings.TrimSpace(c.Database.DSN) == "" {
		return fmt.Errorf("database.dsn is required")
	}
	if c.Database.MaxOpenConns <= 0 {
		return fmt.Errorf("database.max_open_conns must be > 0")
	}
	if c.Database.MaxIdleConns <= 0 {
		return fmt.Errorf("database.max_idle_conns must be > 0")
	}

	delay, err := time.ParseDuration(c.Analytics.BootstrapDelay)
	if err != nil {
		return fmt.Errorf("invalid analytics.bootstrap_delay %q: %w", c.Analytics.BootstrapDelay, err)
	}
	if delay < 0 {
		return fmt.Errorf("analytics.bootstrap_delay must be >= 0")
	}
	if _, err := scheduler.ParseClock(c.Analytics.RefreshTime); err != nil {
		return fmt.Errorf("invalid analytics.refresh_time: %w", err)
	}
	if _, err := c.Analytics.Location(); err != nil {
		return err
	}
	if c.Analytics.WorkerCount <= 0 {
		return fmt.Errorf("analytics.worker_count must be > 0")
	}

	if _, err := scheduler.ParseClock(c.Revenue.RefreshTime); err != nil {
		return fmt.Errorf("invalid revenue.refresh_time: %w", err)
	}

	return nil
}

// Load parses config from an optional YAML file plus ORDERHUB_-prefixed
// environment variables, then validates it. Env keys map double underscores
// to dots, e.g. ORDERHUB_DATABASE__DSN sets database.dsn.
func Load(configPath string) (*Config, error) {
	k := koanf.New(".")

	defaults := map[string]interface{}{
		"server.port":               8080,
		"server.host":               "0.0.0.0",
		"server.mode":               "release",
		"database.dsn":              "",
		"database.max_open_conns":   25,
		"database.max_idle_conns":   25,
		"database.auto_migrate":     true,
		"analytics.enabled":         true,
		"analytics.bootstrap_delay": "5s",
		"analytics.refresh_time":    "01:00",
		"analytics.timezone":        "Asia/Ho_Chi_Minh",
		"analytics.worker_count":    10,
		"revenue.enabled":           true,
		"revenue.refresh_time":      "23:00",
	}
	for key, value := range defaults {
		k.Set(key, value)
	}

	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	if err := k.Load(env.Provider("ORDERHUB_", ".", func(s string) string {
		return strings.Replace(strings.ToLower(strings.TrimPrefix(s, "ORDERHUB_")), "__", ".", -1)
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}
