package validator

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"paygate-hq/ceres/pkg/catalog"
	"paygate-hq/ceres/pkg/validator/verdict"
)

func newTestService(t *testing.T, cfg Config) *Service {
	t.Helper()
	root := t.TempDir()
	files := map[string]string{
		"dictionaries/citizenship.yaml": `
blocked: ["USA", "PRK"]
`,
		"dictionaries/doc_types.yaml": `
values:
  "21": "PASSPORT RF"
  "10": "FOREIGN PASSPORT"
foreign_iddoc_codes: [10]
`,
		"merchant_config.yaml": `
default:
  ruleset_version: v1
  required_fields: [inn, birth_date]
  field_aliases:
    email: contacts_email
merchants:
  lean-merchant:
    overrides:
      - field: birth_date
        required: false
  pinned-merchant:
    ruleset_version: v9
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
  - name: foreign-iddoc-escalation
    conditions:
      all:
        - fact: passport.isForeignIdDoc
          operator: in
          value: [true]
    event:
      type: COMPLIANCE_ESCALATION
      params:
        code: FOREIGN_IDDOC_REVIEW
        category: REGULATORY
        message: Foreign identity document requires manual review
        ruleId: reg_foreign_iddoc
`,
		"rulesets/v1/individual/format.yaml": `
rules:
  - name: inn_present
    conditions:
      all:
        - fact: inn
          operator: fieldPresent
          value: false
    event:
      type: VALIDATION_ERROR
      params:
        field: inn
        code: INN_REQUIRED
        category: REQUIRED
        message: Tax id is required
        ruleId: req_inn
  - name: birth_date_present
    conditions:
      all:
        - fact: birth_date
          operator: fieldPresent
          value: false
    event:
      type: VALIDATION_ERROR
      params:
        field: birth_date
        code: BIRTH_DATE_REQUIRED
        category: REQUIRED
        message: Birth date is required
        ruleId: req_birth_date
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
  - name: inn-checksum
    conditions:
      all:
        - fact: inn
          operator: fieldPresent
          value: true
        - fact: inn
          operator: validInnChecksum
          value: false
    event:
      type: VALIDATION_ERROR
      params:
        field: inn
        code: INN_CHECKSUM
        category: FORMAT
        message: Tax id control digits do not match
        ruleId: fmt_inn_checksum
`,
		"rulesets/v1/individual/cross_fields.yaml": `
rules:
  - name: passport-expiry-after-issue
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
  - name: birth-date-in-future
    conditions:
      all:
        - fact: birth_date
          operator: dateAfterToday
          value: true
    event:
      type: VALIDATION_ERROR
      params:
        field: birth_date
        code: BIRTH_DATE_IN_FUTURE
        category: CROSS
        message: Birth date cannot be in the future
        ruleId: cross_birth_date
`,
	}
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	cat, err := catalog.Open(catalog.Config{
		DictionariesDir:    filepath.Join(root, "dictionaries"),
		RulesetsDir:        filepath.Join(root, "rulesets"),
		MerchantConfigPath: filepath.Join(root, "merchant_config.yaml"),
	}, nil)
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	return New(cat, cfg, nil, nil)
}

func validPayload() map[string]any {
	return map[string]any{
		"beneficiary_type": "individual",
		"inn":              "526018159021",
		"birth_date":       "1990-05-17",
		"citizenship":      "RUS",
		"passport": map[string]any{
			"doc_type":    21.0,
			"issue_date":  "2015-06-01",
			"expiry_date": "2035-06-01",
		},
	}
}

func TestValidateHappyPath(t *testing.T) {
	svc := newTestService(t, Config{})
	v, err := svc.Validate(context.Background(), validPayload(), "any-merchant")
	if err != nil {
		t.Fatal(err)
	}
	if v.Status != verdict.StatusOK {
		t.Errorf("status = %s, errors = %+v", v.Status, v.Errors)
	}
	if v.RulesetVersion != "v1" {
		t.Errorf("rulesetVersion = %s", v.RulesetVersion)
	}
}

func TestValidateBlockedCitizenship(t *testing.T) {
	svc := newTestService(t, Config{})
	payload := validPayload()
	payload["citizenship"] = "USA"

	v, err := svc.Validate(context.Background(), payload, "any-merchant")
	if err != nil {
		t.Fatal(err)
	}
	if v.Status != verdict.StatusComplianceBlock {
		t.Fatalf("status = %s, want COMPLIANCE_BLOCK", v.Status)
	}
	if len(v.Errors) != 1 || v.Errors[0].Code != "CITIZENSHIP_BLOCKED" {
		t.Errorf("errors = %+v", v.Errors)
	}
}

func TestValidateMissingRequiredField(t *testing.T) {
	svc := newTestService(t, Config{})
	payload := validPayload()
	delete(payload, "inn")

	v, err := svc.Validate(context.Background(), payload, "any-merchant")
	if err != nil {
		t.Fatal(err)
	}
	if v.Status != verdict.StatusValidationError {
		t.Fatalf("status = %s", v.Status)
	}
	if len(v.Errors) != 1 || v.Errors[0].Code != "INN_REQUIRED" {
		t.Errorf("errors = %+v, want only INN_REQUIRED", v.Errors)
	}
}

func TestValidateFormatError(t *testing.T) {
	svc := newTestService(t, Config{})
	payload := validPayload()
	payload["inn"] = "12345"

	v, err := svc.Validate(context.Background(), payload, "any-merchant")
	if err != nil {
		t.Fatal(err)
	}
	if v.Status != verdict.StatusValidationError {
		t.Fatalf("status = %s", v.Status)
	}
	found := false
	for _, d := range v.Errors {
		if d.Code == "INN_FORMAT" {
			found = true
		}
		if d.Code == "INN_REQUIRED" {
			t.Error("present field reported as missing")
		}
	}
	if !found {
		t.Errorf("errors = %+v, want INN_FORMAT", v.Errors)
	}
}

func TestValidateMerchantOverrideDropsPresenceRule(t *testing.T) {
	svc := newTestService(t, Config{})
	payload := validPayload()
	delete(payload, "birth_date")

	t.Run("default merchant requires birth_date", func(t *testing.T) {
		v, err := svc.Validate(context.Background(), payload, "strict-merchant")
		if err != nil {
			t.Fatal(err)
		}
		if v.Status != verdict.StatusValidationError {
			t.Fatalf("status = %s, errors = %+v", v.Status, v.Errors)
		}
	})

	t.Run("lean merchant does not", func(t *testing.T) {
		v, err := svc.Validate(context.Background(), payload, "lean-merchant")
		if err != nil {
			t.Fatal(err)
		}
		if v.Status != verdict.StatusOK {
			t.Errorf("status = %s, errors = %+v", v.Status, v.Errors)
		}
	})
}

func TestValidateMissingBeneficiaryType(t *testing.T) {
	svc := newTestService(t, Config{})
	payload := validPayload()
	delete(payload, "beneficiary_type")

	v, err := svc.Validate(context.Background(), payload, "any-merchant")
	if err != nil {
		t.Fatal(err)
	}
	if v.Status != verdict.StatusValidationError {
		t.Fatalf("status = %s", v.Status)
	}
	if len(v.Errors) != 1 || v.Errors[0].Code != "BENEFICIARY_TYPE_MISSING" {
		t.Errorf("errors = %+v", v.Errors)
	}
	if v.Errors[0].RuleID != "beneficiary_type_present" {
		t.Errorf("ruleId = %q, want beneficiary_type_present", v.Errors[0].RuleID)
	}

	t.Run("reports the system default version", func(t *testing.T) {
		// A merchant pinned to another version still gets the default:
		// without a type no ruleset was ever selected.
		v, err := svc.Validate(context.Background(), payload, "pinned-merchant")
		if err != nil {
			t.Fatal(err)
		}
		if v.RulesetVersion != "v1" {
			t.Errorf("rulesetVersion = %q, want v1", v.RulesetVersion)
		}
	})
}

func TestValidateDateShortCircuit(t *testing.T) {
	svc := newTestService(t, Config{})
	payload := validPayload()
	payload["birth_date"] = "17/05/1990"
	delete(payload, "inn") // would normally add INN_REQUIRED

	v, err := svc.Validate(context.Background(), payload, "any-merchant")
	if err != nil {
		t.Fatal(err)
	}
	if v.Status != verdict.StatusValidationError {
		t.Fatalf("status = %s", v.Status)
	}
	// Date normalization failures end the run before rules execute.
	if len(v.Errors) != 1 || v.Errors[0].Code != "DATE_INVALID_FORMAT" {
		t.Errorf("errors = %+v, want only DATE_INVALID_FORMAT", v.Errors)
	}
}

func TestValidateLegacyDates(t *testing.T) {
	payload := validPayload()
	payload["birth_date"] = "17.05.1990"

	t.Run("rejected by default", func(t *testing.T) {
		svc := newTestService(t, Config{})
		v, err := svc.Validate(context.Background(), payload, "any-merchant")
		if err != nil {
			t.Fatal(err)
		}
		if v.Status != verdict.StatusValidationError {
			t.Errorf("status = %s", v.Status)
		}
	})

	t.Run("converted when enabled", func(t *testing.T) {
		svc := newTestService(t, Config{AcceptLegacyDates: true})
		v, err := svc.Validate(context.Background(), payload, "any-merchant")
		if err != nil {
			t.Fatal(err)
		}
		if v.Status != verdict.StatusOK {
			t.Errorf("status = %s, errors = %+v", v.Status, v.Errors)
		}
	})
}

func TestValidateCrossFieldWithFactReference(t *testing.T) {
	svc := newTestService(t, Config{})
	payload := validPayload()
	payload["passport"].(map[string]any)["expiry_date"] = "2010-06-01"

	v, err := svc.Validate(context.Background(), payload, "any-merchant")
	if err != nil {
		t.Fatal(err)
	}
	if v.Status != verdict.StatusValidationError {
		t.Fatalf("status = %s", v.Status)
	}
	if len(v.Errors) != 1 || v.Errors[0].Code != "PASSPORT_DATES_INVERTED" {
		t.Errorf("errors = %+v", v.Errors)
	}
}

func TestValidateEscalationIsAuditOnly(t *testing.T) {
	svc := newTestService(t, Config{})
	payload := validPayload()
	payload["passport"].(map[string]any)["doc_type"] = 10.0

	v, err := svc.Validate(context.Background(), payload, "any-merchant")
	if err != nil {
		t.Fatal(err)
	}
	if v.Status != verdict.StatusOK {
		t.Fatalf("status = %s, errors = %+v", v.Status, v.Errors)
	}
	if len(v.Escalations) != 1 || v.Escalations[0].Code != "FOREIGN_IDDOC_REVIEW" {
		t.Errorf("escalations = %+v", v.Escalations)
	}
}

func TestValidateUnknownBeneficiaryTypeIsFault(t *testing.T) {
	svc := newTestService(t, Config{})
	payload := validPayload()
	payload["beneficiary_type"] = "partnership"

	if _, err := svc.Validate(context.Background(), payload, "any-merchant"); err == nil {
		t.Fatal("expected an error for a type with no rule groups")
	}
}
