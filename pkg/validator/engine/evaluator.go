package engine

import (
	"fmt"
	"time"

	"paygate-hq/ceres/pkg/rules/ast"
	"paygate-hq/ceres/pkg/validator/facts"
)

// Evaluator runs rule condition trees against a fact table.
type Evaluator struct {
	// now supplies the reference instant for date operators; overridable
	// in tests.
	now func() time.Time
}

// New returns an evaluator using the wall clock.
func New() *Evaluator {
	return &Evaluator{now: time.Now}
}

// NewAt returns an evaluator with a fixed reference instant.
func NewAt(now func() time.Time) *Evaluator {
	return &Evaluator{now: now}
}

// Evaluate runs every rule in catalog order and collects the events of the
// rules whose conditions hold. Evaluation is exhaustive across rules; only
// within a single condition tree do combinators short-circuit.
func (e *Evaluator) Evaluate(rules []*ast.Rule, table facts.Table) ([]ast.Event, error) {
	now := e.now()
	var events []ast.Event
	for _, rule := range rules {
		fired, err := e.evalNode(rule.Conditions, table, now)
		if err != nil {
			return nil, fmt.Errorf("rule %q: %w", rule.Name, err)
		}
		if fired {
			events = append(events, rule.Event)
		}
	}
	return events, nil
}

func (e *Evaluator) evalNode(node *ast.ConditionNode, table facts.Table, now time.Time) (bool, error) {
	if node == nil {
		return true, nil
	}
	switch node.Type {
	case ast.ConditionTypeAll:
		for _, child := range node.Children {
			ok, err := e.evalNode(child, table, now)
			if err != nil {
				return false, err
			}
			if !ok {
				return false, nil
			}
		}
		return true, nil

	case ast.ConditionTypeAny:
		for _, child := range node.Children {
			ok, err := e.evalNode(child, table, now)
			if err != nil {
				return false, err
			}
			if ok {
				return true, nil
			}
		}
		return false, nil

	case ast.ConditionTypeLeaf:
		return e.evalLeaf(node, table, now)
	}
	return false, fmt.Errorf("condition node has unknown type %q", node.Type)
}

func (e *Evaluator) evalLeaf(node *ast.ConditionNode, table facts.Table, now time.Time) (bool, error) {
	if node.Value == nil {
		return false, fmt.Errorf("fact %q: leaf has no comparison value", node.Fact)
	}
	switch node.Value.Kind {
	case ast.ValueLiteral:
	case ast.ValueFactRef:
		return false, fmt.Errorf("fact %q: unresolved fact reference %q", node.Fact, node.Value.Ref)
	case ast.ValueDictRef:
		return false, fmt.Errorf("fact %q: unresolved dictionary reference %q", node.Fact, node.Value.Ref)
	default:
		return false, fmt.Errorf("fact %q: unknown value kind %q", node.Fact, node.Value.Kind)
	}
	return applyOperator(node.Operator, table.Get(node.Fact), node.Value.Literal, now)
}
