package engine

import (
	"strings"

	"paygate-hq/ceres/pkg/rules/ast"
)

// presenceSuffix marks rules that only enforce "this field was supplied".
const presenceSuffix = "_present"

// FilterPresenceRules drops every presence rule whose field the merchant
// policy does not require. Non-presence rules always survive. A presence
// rule's base name matches a required field either exactly or as a
// compound extension of it ("passport" requires "passport_series" too);
// matching is token-wise, never substring.
func FilterPresenceRules(rules []*ast.Rule, requiredFields []string) []*ast.Rule {
	out := make([]*ast.Rule, 0, len(rules))
	for _, rule := range rules {
		base, isPresence := strings.CutSuffix(rule.Name, presenceSuffix)
		if !isPresence || requiredField(base, requiredFields) {
			out = append(out, rule)
		}
	}
	return out
}

func requiredField(base string, requiredFields []string) bool {
	for _, required := range requiredFields {
		if base == required || strings.HasPrefix(base, required+"_") {
			return true
		}
	}
	return false
}
