// Package config loads the service configuration: YAML file, environment
// overrides, defaults, in that order of increasing precedence for the
// environment and decreasing for the file.
package config

import "time"

// Config is the full service configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Catalog   CatalogConfig   `yaml:"catalog"`
	Audit     AuditConfig     `yaml:"audit"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	MaxBodyBytes    int64         `yaml:"max_body_bytes"`
}

// CatalogConfig names the catalog inputs and toggles.
type CatalogConfig struct {
	DictionariesDir    string `yaml:"dictionaries_dir"`
	RulesetsDir        string `yaml:"rulesets_dir"`
	MerchantConfigPath string `yaml:"merchant_config_path"`

	// Watch reloads the catalog when any of its files change on disk.
	Watch bool `yaml:"watch"`

	// AcceptLegacyDates converts DD.MM.YYYY payload dates instead of
	// rejecting them.
	AcceptLegacyDates bool `yaml:"accept_legacy_dates"`
}

// AuditConfig selects the audit backend.
type AuditConfig struct {
	// Backend is one of "log", "sqlite" or "memory".
	Backend       string            `yaml:"backend"`
	SQLite        AuditSQLiteConfig `yaml:"sqlite"`
	RetentionDays int               `yaml:"retention_days"`
	PruneSchedule string            `yaml:"prune_schedule"`
}

// AuditSQLiteConfig configures the sqlite audit backend.
type AuditSQLiteConfig struct {
	Path string `yaml:"path"`
}

// TelemetryConfig controls the metrics endpoint.
type TelemetryConfig struct {
	MetricsEnabled bool   `yaml:"metrics_enabled"`
	MetricsPath    string `yaml:"metrics_path"`
}

// LoggingConfig controls the structured logger.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}
