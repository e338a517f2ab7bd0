package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// envPrefix namespaces every environment override.
const envPrefix = "CERES_"

// Load builds the configuration: defaults, then the YAML file at path (if
// path is non-empty), then CERES_* environment overrides. The result is
// validated before it is returned.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	setString(&cfg.Server.Addr, "SERVER_ADDR")
	setString(&cfg.Catalog.DictionariesDir, "CATALOG_DICTIONARIES_DIR")
	setString(&cfg.Catalog.RulesetsDir, "CATALOG_RULESETS_DIR")
	setString(&cfg.Catalog.MerchantConfigPath, "CATALOG_MERCHANT_CONFIG")
	setBool(&cfg.Catalog.Watch, "CATALOG_WATCH")
	setBool(&cfg.Catalog.AcceptLegacyDates, "CATALOG_ACCEPT_LEGACY_DATES")
	setString(&cfg.Audit.Backend, "AUDIT_BACKEND")
	setString(&cfg.Audit.SQLite.Path, "AUDIT_SQLITE_PATH")
	setInt(&cfg.Audit.RetentionDays, "AUDIT_RETENTION_DAYS")
	setBool(&cfg.Telemetry.MetricsEnabled, "METRICS_ENABLED")
	setString(&cfg.Logging.Level, "LOG_LEVEL")
	setString(&cfg.Logging.Format, "LOG_FORMAT")
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(envPrefix + key); ok {
		*dst = v
	}
}

func setBool(dst *bool, key string) {
	if v, ok := os.LookupEnv(envPrefix + key); ok {
		if parsed, err := strconv.ParseBool(v); err == nil {
			*dst = parsed
		}
	}
}

func setInt(dst *int, key string) {
	if v, ok := os.LookupEnv(envPrefix + key); ok {
		if parsed, err := strconv.Atoi(v); err == nil {
			*dst = parsed
		}
	}
}
