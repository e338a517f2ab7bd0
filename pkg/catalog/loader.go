package catalog

import (
	"fmt"
	"regexp"

	"gopkg.in/yaml.v3"

	"paygate-hq/ceres/pkg/rules/ast"
)

// Intermediate documents mirroring the rule-file YAML shape. The loader
// decodes into these and builds validated ast nodes from them, so the ast
// package stays free of serialization concerns.

type ruleFileDoc struct {
	Rules []ruleDoc `yaml:"rules"`
}

type ruleDoc struct {
	Name       string       `yaml:"name"`
	Conditions conditionDoc `yaml:"conditions"`
	Event      ast.Event    `yaml:"event"`
}

type conditionDoc struct {
	All      []conditionDoc `yaml:"all"`
	Any      []conditionDoc `yaml:"any"`
	Fact     string         `yaml:"fact"`
	Operator string         `yaml:"operator"`
	Value    yaml.Node      `yaml:"value"`
}

// parseRuleFile decodes one rule file and builds its rules: conditions
// become tagged ast nodes, dictionary references are resolved against the
// store, operator names and regex literals are checked. Every failure is
// fatal and names the offending rule.
func parseRuleFile(path string, data []byte, dicts *Store) ([]*ast.Rule, error) {
	var doc ruleFileDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, &ParseError{Path: path, Message: "invalid rule document", Cause: err}
	}
	if len(doc.Rules) == 0 {
		return nil, &ParseError{Path: path, Message: "rule file defines no rules"}
	}

	rules := make([]*ast.Rule, 0, len(doc.Rules))
	for _, rd := range doc.Rules {
		if rd.Name == "" {
			return nil, &ParseError{Path: path, Message: "rule without a name"}
		}
		cond, err := buildCondition(&rd.Conditions)
		if err != nil {
			return nil, &ParseError{Path: path, Message: fmt.Sprintf("rule %q", rd.Name), Cause: err}
		}
		if cond == nil {
			return nil, &ParseError{Path: path, Message: fmt.Sprintf("rule %q has no conditions", rd.Name)}
		}
		if err := resolveDictRefs(cond, dicts); err != nil {
			return nil, &ParseError{Path: path, Message: fmt.Sprintf("rule %q", rd.Name), Cause: err}
		}
		if err := checkLeafValues(cond); err != nil {
			return nil, &ParseError{Path: path, Message: fmt.Sprintf("rule %q", rd.Name), Cause: err}
		}
		if rd.Event.Type == "" {
			return nil, &ParseError{Path: path, Message: fmt.Sprintf("rule %q has no event type", rd.Name)}
		}
		rules = append(rules, &ast.Rule{
			Name:       rd.Name,
			Conditions: cond,
			Event:      rd.Event,
		})
	}
	return rules, nil
}

// buildCondition converts one intermediate node into a tagged ast node.
func buildCondition(doc *conditionDoc) (*ast.ConditionNode, error) {
	if len(doc.All) > 0 && len(doc.Any) > 0 {
		return nil, fmt.Errorf("condition mixes all and any in one node")
	}

	if len(doc.All) > 0 || len(doc.Any) > 0 {
		children := doc.All
		nodeType := ast.ConditionTypeAll
		if len(doc.Any) > 0 {
			children = doc.Any
			nodeType = ast.ConditionTypeAny
		}
		node := &ast.ConditionNode{Type: nodeType}
		for i := range children {
			child, err := buildCondition(&children[i])
			if err != nil {
				return nil, err
			}
			if child == nil {
				return nil, fmt.Errorf("empty condition inside %s group", nodeType)
			}
			node.Children = append(node.Children, child)
		}
		return node, nil
	}

	if doc.Fact == "" && doc.Operator == "" && doc.Value.IsZero() {
		return nil, nil
	}
	if doc.Fact == "" {
		return nil, fmt.Errorf("condition leaf without a fact")
	}
	op := ast.Operator(doc.Operator)
	if !op.Known() {
		return nil, fmt.Errorf("unknown operator %q", doc.Operator)
	}
	if doc.Value.IsZero() {
		return nil, fmt.Errorf("condition on fact %q has no comparison value", doc.Fact)
	}
	value, err := buildValue(&doc.Value)
	if err != nil {
		return nil, fmt.Errorf("condition on fact %q: %w", doc.Fact, err)
	}
	return &ast.ConditionNode{
		Type:     ast.ConditionTypeLeaf,
		Fact:     doc.Fact,
		Operator: op,
		Value:    value,
	}, nil
}

// buildValue turns a raw YAML value into a tagged value node. Mappings are
// only legal as single-key $ref / $fact markers; everything else is an
// inline literal.
func buildValue(node *yaml.Node) (*ast.ValueNode, error) {
	if node.Kind == yaml.MappingNode {
		var marker map[string]string
		if err := node.Decode(&marker); err != nil {
			return nil, fmt.Errorf("comparison value object is not a reference marker: %w", err)
		}
		if len(marker) != 1 {
			return nil, fmt.Errorf("comparison value object must hold exactly one $ref or $fact key")
		}
		if ref, ok := marker["$ref"]; ok {
			return ast.DictRef(ref), nil
		}
		if ref, ok := marker["$fact"]; ok {
			return ast.FactRef(ref), nil
		}
		return nil, fmt.Errorf("comparison value object is neither $ref nor $fact")
	}

	var literal any
	if err := node.Decode(&literal); err != nil {
		return nil, fmt.Errorf("invalid comparison value: %w", err)
	}
	return ast.Literal(literal), nil
}

// resolveDictRefs replaces every dictionary-reference value with the
// dereferenced dictionary data. Unresolvable references are fatal.
func resolveDictRefs(node *ast.ConditionNode, dicts *Store) error {
	var walkErr error
	node.Walk(func(n *ast.ConditionNode) {
		if walkErr != nil || !n.IsLeaf() || n.Value == nil || n.Value.Kind != ast.ValueDictRef {
			return
		}
		resolved, err := dicts.Resolve(n.Value.Ref)
		if err != nil {
			walkErr = err
			return
		}
		n.Value = ast.Literal(resolved)
	})
	return walkErr
}

// checkLeafValues enforces the per-operator comparison-value shapes that
// can be checked at load time, so bad catalogs fail before the first
// request instead of during evaluation.
func checkLeafValues(node *ast.ConditionNode) error {
	var walkErr error
	node.Walk(func(n *ast.ConditionNode) {
		if walkErr != nil || !n.IsLeaf() {
			return
		}
		if n.Value.Kind == ast.ValueFactRef {
			// Resolved per request; nothing to check yet.
			return
		}
		switch n.Operator {
		case ast.OperatorFieldPresent, ast.OperatorAllSameDigits, ast.OperatorValidInnChecksum,
			ast.OperatorContainsGarbageChars, ast.OperatorDateAfterToday, ast.OperatorValidDateFormat:
			if _, ok := n.Value.Literal.(bool); !ok {
				walkErr = fmt.Errorf("operator %s on fact %q requires a boolean comparison value", n.Operator, n.Fact)
			}
		case ast.OperatorMatchesRegex:
			pattern, ok := n.Value.Literal.(string)
			if !ok {
				walkErr = fmt.Errorf("operator %s on fact %q requires a string pattern", n.Operator, n.Fact)
				return
			}
			if _, err := regexp.Compile(pattern); err != nil {
				walkErr = fmt.Errorf("operator %s on fact %q: invalid pattern: %w", n.Operator, n.Fact, err)
			}
		case ast.OperatorIn, ast.OperatorNotIn:
			if _, ok := n.Value.Literal.([]any); !ok {
				walkErr = fmt.Errorf("operator %s on fact %q requires a list comparison value", n.Operator, n.Fact)
			}
		case ast.OperatorContains:
			if _, ok := n.Value.Literal.(string); !ok {
				walkErr = fmt.Errorf("operator %s on fact %q requires a string comparison value", n.Operator, n.Fact)
			}
		case ast.OperatorDateBefore:
			if _, ok := n.Value.Literal.(string); !ok {
				walkErr = fmt.Errorf("operator %s on fact %q requires a date string or $fact reference", n.Operator, n.Fact)
			}
		}
	})
	return walkErr
}
