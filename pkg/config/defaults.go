package config

import "time"

// Default returns the built-in configuration. A service started with no
// config file serves on :8080 with a log-backed audit trail and a catalog
// rooted at ./catalog.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:            ":8080",
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    10 * time.Second,
			ShutdownTimeout: 15 * time.Second,
			MaxBodyBytes:    1 << 20,
		},
		Catalog: CatalogConfig{
			DictionariesDir:    "catalog/dictionaries",
			RulesetsDir:        "catalog/rulesets",
			MerchantConfigPath: "catalog/merchant_config.yaml",
		},
		Audit: AuditConfig{
			Backend:       "log",
			SQLite:        AuditSQLiteConfig{Path: "ceres_audit.db"},
			RetentionDays: 90,
			PruneSchedule: "0 3 * * *",
		},
		Telemetry: TelemetryConfig{
			MetricsEnabled: true,
			MetricsPath:    "/metrics",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}
