package config

import "fmt"

var auditBackends = map[string]bool{
	"log":    true,
	"sqlite": true,
	"memory": true,
}

// Validate rejects configurations the service cannot run with.
func (c Config) Validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr must not be empty")
	}
	if c.Server.MaxBodyBytes <= 0 {
		return fmt.Errorf("server.max_body_bytes must be positive")
	}
	if c.Catalog.DictionariesDir == "" {
		return fmt.Errorf("catalog.dictionaries_dir must not be empty")
	}
	if c.Catalog.RulesetsDir == "" {
		return fmt.Errorf("catalog.rulesets_dir must not be empty")
	}
	if c.Catalog.MerchantConfigPath == "" {
		return fmt.Errorf("catalog.merchant_config_path must not be empty")
	}
	if !auditBackends[c.Audit.Backend] {
		return fmt.Errorf("audit.backend %q is not one of log, sqlite, memory", c.Audit.Backend)
	}
	if c.Audit.Backend == "sqlite" {
		if c.Audit.SQLite.Path == "" {
			return fmt.Errorf("audit.sqlite.path must not be empty")
		}
		if c.Audit.RetentionDays <= 0 {
			return fmt.Errorf("audit.retention_days must be positive")
		}
	}
	return nil
}
