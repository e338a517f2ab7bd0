package engine

import (
	"paygate-hq/ceres/pkg/rules/ast"
	"paygate-hq/ceres/pkg/validator/facts"
)

// ResolveFactRefs returns a copy of the rules with every fact-reference
// comparison value replaced by the referenced fact's current value. A
// reference to a fact the payload does not carry resolves to the unknown
// marker, so the downstream operator fails closed instead of erroring.
// Catalog rules are never mutated.
func ResolveFactRefs(rules []*ast.Rule, table facts.Table) []*ast.Rule {
	out := make([]*ast.Rule, len(rules))
	for i, rule := range rules {
		clone := rule.Clone()
		clone.Conditions.Walk(func(n *ast.ConditionNode) {
			if n.IsLeaf() && n.Value != nil && n.Value.Kind == ast.ValueFactRef {
				n.Value = ast.Literal(table.Get(n.Value.Ref))
			}
		})
		out[i] = clone
	}
	return out
}
