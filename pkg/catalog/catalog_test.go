package catalog

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"paygate-hq/ceres/pkg/rules/ast"
)

// writeCatalog lays out a minimal valid catalog tree and returns its Config.
func writeCatalog(t *testing.T, files map[string]string) Config {
	t.Helper()
	root := t.TempDir()
	defaults := map[string]string{
		"dictionaries/citizenship.yaml": `
blocked:
  - "USA"
  - "PRK"
`,
		"dictionaries/country_codes.yaml": `
values:
  "643": Russian Federation
  "840": United States
`,
		"merchant_config.yaml": `
default:
  ruleset_version: v1
  required_fields: [inn, birth_date]
  required_fields_by_type:
    organization: [inn]
  field_aliases:
    email: contacts_email
merchants:
  merchant-7:
    overrides:
      - field: snils
        required: true
  merchant-8:
    ruleset_version: v2
    overrides:
      - field: birth_date
        required: false
        beneficiary_type: individual
`,
		"rulesets/v1/regulatory/usa_links.yaml": `
rules:
  - name: citizenship-blocked
    conditions:
      all:
        - fact: citizenship
          operator: in
          value:
            $ref: dictionaries.citizenship.blocked
    event:
      type: COMPLIANCE_BLOCK
      params:
        field: citizenship
        code: CITIZENSHIP_BLOCKED
        category: REGULATORY
        message: Citizenship is not serviceable
        ruleId: reg_citizenship
`,
		"rulesets/v1/regulatory/fatca.yaml": `
rules:
  - name: fatca-escalation
    conditions:
      all:
        - fact: passport.isForeignIdDoc
          operator: in
          value: [true]
    event:
      type: COMPLIANCE_ESCALATION
      params:
        code: FATCA_REVIEW
        category: REGULATORY
        message: Manual FATCA review required
        ruleId: reg_fatca
`,
		"rulesets/v1/individual/format.yaml": `
rules:
  - name: inn-format
    conditions:
      all:
        - fact: inn
          operator: matchesRegex
          value: "^\\d{12}$"
    event:
      type: VALIDATION_ERROR
      params:
        field: inn
        code: INN_FORMAT
        category: FORMAT
        message: Tax id must be 12 digits
        ruleId: fmt_inn
`,
		"rulesets/v1/individual/cross_fields.yaml": `
rules:
  - name: issue-before-expiry
    conditions:
      all:
        - fact: passport.expiry_date
          operator: dateBefore
          value:
            $fact: passport.issue_date
    event:
      type: VALIDATION_ERROR
      params:
        field: passport.expiry_date
        code: PASSPORT_DATES_INVERTED
        category: CROSS
        message: Passport expires before it was issued
        ruleId: cross_passport
`,
	}
	for rel, content := range defaults {
		if override, ok := files[rel]; ok {
			content = override
			delete(files, rel)
		}
		writeFile(t, root, rel, content)
	}
	for rel, content := range files {
		writeFile(t, root, rel, content)
	}
	return Config{
		DictionariesDir:    filepath.Join(root, "dictionaries"),
		RulesetsDir:        filepath.Join(root, "rulesets"),
		MerchantConfigPath: filepath.Join(root, "merchant_config.yaml"),
	}
}

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", rel, err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", rel, err)
	}
}

func TestOpenLoadsCatalog(t *testing.T) {
	cfg := writeCatalog(t, nil)
	cat, err := Open(cfg, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	stats := cat.Snapshot().Stats()
	if stats.Dictionaries != 2 {
		t.Errorf("dictionaries = %d, want 2", stats.Dictionaries)
	}
	if stats.RuleFiles != 4 {
		t.Errorf("rule files = %d, want 4", stats.RuleFiles)
	}
	if stats.Rules != 4 {
		t.Errorf("rules = %d, want 4", stats.Rules)
	}
}

func TestDictionaryValueKeysDerived(t *testing.T) {
	cfg := writeCatalog(t, nil)
	cat, err := Open(cfg, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	keys, err := cat.Snapshot().Dictionaries().Resolve("dictionaries.country_codes.values_keys")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	list, ok := keys.([]any)
	if !ok || len(list) != 2 {
		t.Fatalf("values_keys = %#v, want list of 2", keys)
	}
	// Numeric-looking keys are coerced so membership checks line up with
	// JSON-decoded payload numbers.
	if list[0] != 643.0 || list[1] != 840.0 {
		t.Errorf("values_keys = %#v, want [643 840] as floats", list)
	}
}

func TestResolveErrors(t *testing.T) {
	cfg := writeCatalog(t, nil)
	cat, err := Open(cfg, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	dicts := cat.Snapshot().Dictionaries()

	for _, ref := range []string{
		"citizenship.blocked",
		"dictionaries.missing.blocked",
		"dictionaries.citizenship.nope",
	} {
		if _, err := dicts.Resolve(ref); err == nil {
			t.Errorf("Resolve(%q): expected error", ref)
		}
	}
}

func TestDictRefsResolvedAtLoad(t *testing.T) {
	cfg := writeCatalog(t, nil)
	cat, err := Open(cfg, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	rules, err := cat.Snapshot().RulesFor("individual", "v1")
	if err != nil {
		t.Fatalf("RulesFor: %v", err)
	}
	for _, rule := range rules {
		rule.Conditions.Walk(func(n *ast.ConditionNode) {
			if n.IsLeaf() && n.Value.Kind == ast.ValueDictRef {
				t.Errorf("rule %q still carries an unresolved dictionary reference", rule.Name)
			}
		})
	}
}

func TestLoadRejectsBadCatalogs(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
		wantMsg string
	}{
		{
			name: "unknown operator",
			file: "rulesets/v1/individual/format.yaml",
			content: `
rules:
  - name: bad-op
    conditions:
      all:
        - fact: inn
          operator: lessThanOrEqual
          value: 10
    event:
      type: VALIDATION_ERROR
      params: {code: X, category: FORMAT}
`,
			wantMsg: "unknown operator",
		},
		{
			name: "dangling dictionary reference",
			file: "rulesets/v1/individual/format.yaml",
			content: `
rules:
  - name: bad-ref
    conditions:
      all:
        - fact: citizenship
          operator: in
          value:
            $ref: dictionaries.citizenship.allowed
    event:
      type: COMPLIANCE_BLOCK
      params: {code: X, category: REGULATORY}
`,
			wantMsg: "not found",
		},
		{
			name: "invalid regex pattern",
			file: "rulesets/v1/individual/format.yaml",
			content: `
rules:
  - name: bad-regex
    conditions:
      all:
        - fact: inn
          operator: matchesRegex
          value: "([0-9]"
    event:
      type: VALIDATION_ERROR
      params: {code: X, category: FORMAT}
`,
			wantMsg: "invalid pattern",
		},
		{
			name: "rule without conditions",
			file: "rulesets/v1/individual/format.yaml",
			content: `
rules:
  - name: empty
    conditions: {}
    event:
      type: VALIDATION_ERROR
      params: {code: X, category: FORMAT}
`,
			wantMsg: "no conditions",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := writeCatalog(t, map[string]string{tt.file: tt.content})
			_, err := Open(cfg, nil)
			if err == nil {
				t.Fatal("Open: expected error")
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("error = %q, want substring %q", err, tt.wantMsg)
			}
		})
	}
}

func TestReloadKeepsSnapshotOnFailure(t *testing.T) {
	cfg := writeCatalog(t, nil)
	cat, err := Open(cfg, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	before := cat.Snapshot()

	bad := filepath.Join(cfg.RulesetsDir, "v1", "individual", "format.yaml")
	if err := os.WriteFile(bad, []byte("rules: [{name: broken"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := cat.Reload(); err == nil {
		t.Fatal("Reload: expected error on broken rule file")
	}
	if cat.Snapshot() != before {
		t.Error("failed reload replaced the serving snapshot")
	}
}

func TestRulesForVersionFallback(t *testing.T) {
	cfg := writeCatalog(t, map[string]string{
		// v2 overrides only the format group; everything else falls back.
		"rulesets/v2/individual/format.yaml": `
rules:
  - name: inn-format-v2
    conditions:
      all:
        - fact: inn
          operator: matchesRegex
          value: "^\\d{10,12}$"
    event:
      type: VALIDATION_ERROR
      params:
        field: inn
        code: INN_FORMAT
        category: FORMAT
        ruleId: fmt_inn_v2
`,
	})
	cat, err := Open(cfg, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	rules, err := cat.Snapshot().RulesFor("individual", "v2")
	if err != nil {
		t.Fatalf("RulesFor: %v", err)
	}

	var names []string
	for _, r := range rules {
		names = append(names, r.Name)
	}
	want := []string{"citizenship-blocked", "fatca-escalation", "inn-format-v2", "issue-before-expiry"}
	if len(names) != len(want) {
		t.Fatalf("rules = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("rules[%d] = %q, want %q", i, names[i], want[i])
		}
	}
}

func TestRulesForMissingGroupNamesBothLocations(t *testing.T) {
	cfg := writeCatalog(t, nil)
	cat, err := Open(cfg, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	_, err = cat.Snapshot().RulesFor("organization", "v1")
	if err == nil {
		t.Fatal("RulesFor: expected error for missing type groups")
	}
	if !strings.Contains(err.Error(), "rulesets/v1/organization/format") {
		t.Errorf("error %q does not name the missing location", err)
	}
}

func TestMerchantPolicyResolve(t *testing.T) {
	cfg := writeCatalog(t, nil)
	cat, err := Open(cfg, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	snap := cat.Snapshot()

	t.Run("unknown merchant gets defaults", func(t *testing.T) {
		p := snap.MerchantPolicy("nobody")
		if p.RulesetVersion != "v1" {
			t.Errorf("version = %q, want v1", p.RulesetVersion)
		}
		got := p.EffectiveRequiredFields("individual")
		if len(got) != 2 || got[0] != "inn" || got[1] != "birth_date" {
			t.Errorf("required = %v, want [inn birth_date]", got)
		}
	})

	t.Run("untyped override applies everywhere", func(t *testing.T) {
		p := snap.MerchantPolicy("merchant-7")
		indiv := p.EffectiveRequiredFields("individual")
		org := p.EffectiveRequiredFields("organization")
		if !contains(indiv, "snils") || !contains(org, "snils") {
			t.Errorf("snils missing: individual=%v organization=%v", indiv, org)
		}
	})

	t.Run("typed override scoped to its type", func(t *testing.T) {
		p := snap.MerchantPolicy("merchant-8")
		if p.RulesetVersion != "v2" {
			t.Errorf("version = %q, want v2", p.RulesetVersion)
		}
		indiv := p.EffectiveRequiredFields("individual")
		if contains(indiv, "birth_date") {
			t.Errorf("typed removal did not apply to individual: %v", indiv)
		}
		if !contains(indiv, "inn") {
			t.Errorf("typed removal dropped unrelated fields: %v", indiv)
		}
		org := p.EffectiveRequiredFields("organization")
		if !contains(org, "inn") || contains(org, "birth_date") {
			t.Errorf("typed override leaked into organization list: %v", org)
		}
	})

	t.Run("aliases expand to fact prefixes", func(t *testing.T) {
		p := snap.MerchantPolicy("nobody")
		p.RequiredFields = append(p.RequiredFields, "email")
		got := p.EffectiveRequiredFields("individual")
		if !contains(got, "contacts_email") {
			t.Errorf("alias not expanded: %v", got)
		}
	})

	t.Run("resolve does not mutate defaults", func(t *testing.T) {
		p := snap.MerchantPolicy("merchant-7")
		p.RequiredFields[0] = "mutated"
		fresh := snap.MerchantPolicy("nobody")
		if fresh.RequiredFields[0] != "inn" {
			t.Error("default policy leaked through a resolved copy")
		}
	})
}

func contains(list []string, v string) bool {
	for _, e := range list {
		if e == v {
			return true
		}
	}
	return false
}
