package catalog

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"paygate-hq/ceres/pkg/rules/ast"
)

// Rule groups read per request: the regulatory files are shared across all
// beneficiary types, format and cross-field files are type-specific.
var regulatoryGroups = []string{
	"regulatory/usa_links",
	"regulatory/fatca",
}

func typeGroups(beneficiaryType string) []string {
	return []string{
		beneficiaryType + "/format",
		beneficiaryType + "/cross_fields",
	}
}

// Config names the three read-only inputs the catalog is built from.
type Config struct {
	DictionariesDir    string
	RulesetsDir        string
	MerchantConfigPath string
}

// Catalog is the process-wide loaded configuration. It is constructed once
// at startup and passed to the evaluation entry point; there is no hidden
// global. Reload swaps in a freshly built snapshot atomically.
type Catalog struct {
	cfg    Config
	logger *slog.Logger

	// reloadMu serializes Reload; readers go through the atomic pointer
	// and are never blocked.
	reloadMu sync.Mutex
	snap     atomic.Pointer[Snapshot]
}

// Open builds the catalog from disk. Any load error is fatal: the service
// must not start (or must not accept the ruleset) on malformed
// configuration.
func Open(cfg Config, logger *slog.Logger) (*Catalog, error) {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Catalog{cfg: cfg, logger: logger.With("component", "catalog")}
	if err := c.Reload(); err != nil {
		return nil, err
	}
	return c, nil
}

// Snapshot returns the current immutable snapshot.
func (c *Catalog) Snapshot() *Snapshot {
	return c.snap.Load()
}

// Reload builds a complete new snapshot and swaps it in. On error the
// previous snapshot keeps serving.
func (c *Catalog) Reload() error {
	c.reloadMu.Lock()
	defer c.reloadMu.Unlock()

	snap, err := loadSnapshot(c.cfg)
	if err != nil {
		return err
	}
	c.snap.Store(snap)

	stats := snap.Stats()
	c.logger.Info("catalog loaded",
		"dictionaries", stats.Dictionaries,
		"rule_files", stats.RuleFiles,
		"rules", stats.Rules,
		"versions", stats.Versions,
	)
	return nil
}

// Snapshot is one immutable, consistent view of the full catalog. Safe for
// concurrent read-only use across evaluations.
type Snapshot struct {
	dicts     *Store
	merchants *merchantConfig

	// ruleFiles maps "<version>/<group>" (extension stripped) to the
	// loaded, dictionary-resolved rules of that file.
	ruleFiles map[string][]*ast.Rule
	versions  []string
	loadedAt  time.Time
}

func loadSnapshot(cfg Config) (*Snapshot, error) {
	dicts, err := LoadDictionaries(cfg.DictionariesDir)
	if err != nil {
		return nil, err
	}
	merchants, err := loadMerchantConfig(cfg.MerchantConfigPath)
	if err != nil {
		return nil, err
	}

	snap := &Snapshot{
		dicts:     dicts,
		merchants: merchants,
		ruleFiles: make(map[string][]*ast.Rule),
		loadedAt:  time.Now(),
	}

	versionEntries, err := os.ReadDir(cfg.RulesetsDir)
	if err != nil {
		return nil, &LoadError{Path: cfg.RulesetsDir, Message: "cannot read rulesets directory", Cause: err}
	}
	for _, entry := range versionEntries {
		if !entry.IsDir() {
			continue
		}
		version := entry.Name()
		versionDir := filepath.Join(cfg.RulesetsDir, version)
		if err := snap.loadVersion(version, versionDir); err != nil {
			return nil, err
		}
		snap.versions = append(snap.versions, version)
	}
	sort.Strings(snap.versions)

	if len(snap.versions) == 0 {
		return nil, &LoadError{Path: cfg.RulesetsDir, Message: "no ruleset versions found"}
	}
	defaultVersion := merchants.Default.RulesetVersion
	if !snap.hasVersion(defaultVersion) {
		return nil, &LoadError{
			Path:    cfg.RulesetsDir,
			Message: fmt.Sprintf("default ruleset version %q has no directory", defaultVersion),
		}
	}
	return snap, nil
}

func (s *Snapshot) loadVersion(version, dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return &LoadError{Path: path, Message: "cannot walk ruleset directory", Cause: err}
		}
		if d.IsDir() || !hasCatalogExtension(d.Name()) {
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return &LoadError{Path: path, Message: "cannot read rule file", Cause: err}
		}
		rules, err := parseRuleFile(path, data, s.dicts)
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return &LoadError{Path: path, Message: "cannot relativize rule path", Cause: err}
		}
		group := strings.TrimSuffix(filepath.ToSlash(rel), filepath.Ext(rel))
		s.ruleFiles[version+"/"+group] = rules
		return nil
	})
}

func (s *Snapshot) hasVersion(version string) bool {
	for _, v := range s.versions {
		if v == version {
			return true
		}
	}
	return false
}

// Dictionaries returns the loaded dictionary store.
func (s *Snapshot) Dictionaries() *Store {
	return s.dicts
}

// DefaultRulesetVersion returns the system default ruleset version.
func (s *Snapshot) DefaultRulesetVersion() string {
	return s.merchants.Default.RulesetVersion
}

// MerchantPolicy resolves the effective policy for the merchant id.
func (s *Snapshot) MerchantPolicy(merchantID string) *MerchantPolicy {
	return s.merchants.Resolve(merchantID)
}

// RulesFor assembles the rule catalog for a beneficiary type at the
// selected ruleset version: regulatory groups first, then the type's
// format and cross-field groups, file order preserved within each group.
// A group absent from the selected version falls back to the default
// version; absent from both is an error naming every attempted location.
func (s *Snapshot) RulesFor(beneficiaryType, version string) ([]*ast.Rule, error) {
	fallback := s.DefaultRulesetVersion()
	groups := append(append([]string{}, regulatoryGroups...), typeGroups(beneficiaryType)...)

	var out []*ast.Rule
	for _, group := range groups {
		rules, ok := s.ruleFiles[version+"/"+group]
		if !ok && fallback != version {
			rules, ok = s.ruleFiles[fallback+"/"+group]
		}
		if !ok {
			msg := fmt.Sprintf("rule file not found: rulesets/%s/%s", version, group)
			if fallback != version {
				msg += fmt.Sprintf(" (and no fallback in rulesets/%s/%s)", fallback, group)
			}
			return nil, &LoadError{Path: group, Message: msg}
		}
		out = append(out, rules...)
	}
	return out, nil
}

// Stats summarizes the snapshot for logging and the lint command.
type Stats struct {
	Dictionaries int
	RuleFiles    int
	Rules        int
	Versions     []string
	LoadedAt     time.Time
}

// Stats returns summary counts for the snapshot.
func (s *Snapshot) Stats() Stats {
	total := 0
	for _, rules := range s.ruleFiles {
		total += len(rules)
	}
	return Stats{
		Dictionaries: s.dicts.Len(),
		RuleFiles:    len(s.ruleFiles),
		Rules:        total,
		Versions:     s.versions,
		LoadedAt:     s.loadedAt,
	}
}
