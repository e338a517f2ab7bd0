package catalog

import (
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

// fallbackRulesetVersion is used when the merchant document does not name a
// default ruleset version.
const fallbackRulesetVersion = "v1"

// MerchantPolicy is the effective policy for one merchant: which ruleset
// version applies and which payload fields are required.
type MerchantPolicy struct {
	RulesetVersion       string              `yaml:"ruleset_version"`
	RequiredFields       []string            `yaml:"required_fields"`
	RequiredFieldsByType map[string][]string `yaml:"required_fields_by_type"`

	// FieldAliases maps short required-field names from merchant overrides
	// to the fact prefix they stand for (e.g. "email" -> "contacts_email").
	// Matching is explicit, never substring-based.
	FieldAliases map[string]string `yaml:"field_aliases"`
}

// Override is one per-merchant required-field operation. required: true
// adds the field (idempotent), required: false removes it. Without a
// beneficiary type the override applies to the flat list and to every
// per-type list.
type Override struct {
	Field           string `yaml:"field"`
	Required        bool   `yaml:"required"`
	BeneficiaryType string `yaml:"beneficiary_type"`
}

type merchantOverrides struct {
	RulesetVersion string     `yaml:"ruleset_version"`
	Overrides      []Override `yaml:"overrides"`
}

type merchantConfig struct {
	Default   MerchantPolicy               `yaml:"default"`
	Merchants map[string]merchantOverrides `yaml:"merchants"`
}

func loadMerchantConfig(path string) (*merchantConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{Path: path, Message: "cannot read merchant config", Cause: err}
	}
	var cfg merchantConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, &ParseError{Path: path, Message: "invalid merchant config", Cause: err}
	}
	if cfg.Default.RulesetVersion == "" {
		cfg.Default.RulesetVersion = fallbackRulesetVersion
	}
	return &cfg, nil
}

// Resolve merges the merchant's override set onto the default policy.
// An unknown merchant id returns the default policy unmodified.
func (c *merchantConfig) Resolve(merchantID string) *MerchantPolicy {
	policy := c.Default.clone()

	override, ok := c.Merchants[merchantID]
	if !ok {
		return policy
	}
	if override.RulesetVersion != "" {
		policy.RulesetVersion = override.RulesetVersion
	}

	for _, op := range override.Overrides {
		if op.BeneficiaryType != "" {
			list, ok := policy.RequiredFieldsByType[op.BeneficiaryType]
			if !ok {
				// A type without its own list inherits the flat list
				// before the first typed override lands on it.
				list = slices.Clone(policy.RequiredFields)
			}
			policy.RequiredFieldsByType[op.BeneficiaryType] = applyOverride(list, op)
			continue
		}
		policy.RequiredFields = applyOverride(policy.RequiredFields, op)
		for benType, list := range policy.RequiredFieldsByType {
			policy.RequiredFieldsByType[benType] = applyOverride(list, op)
		}
	}
	return policy
}

func applyOverride(list []string, op Override) []string {
	if !op.Required {
		out := make([]string, 0, len(list))
		for _, f := range list {
			if f != op.Field {
				out = append(out, f)
			}
		}
		return out
	}
	if slices.Contains(list, op.Field) {
		return list
	}
	return append(list, op.Field)
}

// EffectiveRequiredFields returns the required-field list that applies to
// the beneficiary type, with field aliases expanded to fact prefixes.
func (p *MerchantPolicy) EffectiveRequiredFields(beneficiaryType string) []string {
	raw := p.RequiredFields
	if byType, ok := p.RequiredFieldsByType[beneficiaryType]; ok {
		raw = byType
	}
	out := make([]string, len(raw))
	for i, f := range raw {
		if alias, ok := p.FieldAliases[f]; ok {
			out[i] = alias
		} else {
			out[i] = f
		}
	}
	return out
}

func (p *MerchantPolicy) clone() *MerchantPolicy {
	out := &MerchantPolicy{
		RulesetVersion:       p.RulesetVersion,
		RequiredFields:       slices.Clone(p.RequiredFields),
		RequiredFieldsByType: make(map[string][]string, len(p.RequiredFieldsByType)),
		FieldAliases:         make(map[string]string, len(p.FieldAliases)),
	}
	for k, v := range p.RequiredFieldsByType {
		out.RequiredFieldsByType[k] = slices.Clone(v)
	}
	for k, v := range p.FieldAliases {
		out.FieldAliases[k] = v
	}
	return out
}
