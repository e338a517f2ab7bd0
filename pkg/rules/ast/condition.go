package ast

// ConditionType represents the type of a condition node.
type ConditionType string

const (
	ConditionTypeLeaf ConditionType = "leaf" // fact operator value
	ConditionTypeAll  ConditionType = "all"  // AND of children, short-circuit on false
	ConditionTypeAny  ConditionType = "any"  // OR of children, short-circuit on true
)

// Operator names a comparison in the closed operator registry. Unknown
// names are rejected when the catalog is loaded, never at evaluation time.
type Operator string

const (
	// OperatorFieldPresent asserts presence polarity: present == expected.
	OperatorFieldPresent Operator = "fieldPresent"

	// OperatorMatchesRegex fires on format mismatch: true when the fact is
	// present and does NOT match the pattern.
	OperatorMatchesRegex Operator = "matchesRegex"

	// OperatorAllSameDigits asserts the "all identical digits" property
	// against an expected boolean.
	OperatorAllSameDigits Operator = "allSameDigits"

	// OperatorValidInnChecksum asserts the 12-digit tax-id control digits
	// against an expected boolean. A value that is not 12 digits long
	// computes as invalid.
	OperatorValidInnChecksum Operator = "validInnChecksum"

	// OperatorIn is true when the fact value is an element of the list.
	OperatorIn Operator = "in"

	// OperatorNotIn is true when the fact value is not an element of the list.
	OperatorNotIn Operator = "notIn"

	// OperatorContains is true when the fact is a non-empty string
	// containing the substring.
	OperatorContains Operator = "contains"

	// OperatorContainsGarbageChars asserts forbidden-punctuation presence
	// against an expected boolean.
	OperatorContainsGarbageChars Operator = "containsGarbageChars"

	// OperatorDateAfterToday asserts "date is in the future" against an
	// expected boolean. Unparsable dates compute as false.
	OperatorDateAfterToday Operator = "dateAfterToday"

	// OperatorDateBefore is true when both values parse as dates and the
	// fact date is strictly before the comparison date.
	OperatorDateBefore Operator = "dateBefore"

	// OperatorValidDateFormat asserts canonical-date validity against an
	// expected boolean.
	OperatorValidDateFormat Operator = "validDateFormat"
)

// Operators is the closed registry. The catalog loader rejects any rule
// whose leaf names an operator outside this set.
var Operators = map[Operator]bool{
	OperatorFieldPresent:         true,
	OperatorMatchesRegex:         true,
	OperatorAllSameDigits:        true,
	OperatorValidInnChecksum:     true,
	OperatorIn:                   true,
	OperatorNotIn:                true,
	OperatorContains:             true,
	OperatorContainsGarbageChars: true,
	OperatorDateAfterToday:       true,
	OperatorValidDateFormat:      true,
	OperatorDateBefore:           true,
}

// Known reports whether the operator is part of the closed registry.
func (o Operator) Known() bool {
	return Operators[o]
}

// ConditionNode is one node of a rule's condition tree.
type ConditionNode struct {
	Type     ConditionType
	Fact     string     // leaf: dotted fact path
	Operator Operator   // leaf
	Value    *ValueNode // leaf: comparison value
	Children []*ConditionNode
}

// IsLeaf returns true for a fact/operator/value comparison node.
func (c *ConditionNode) IsLeaf() bool {
	return c.Type == ConditionTypeLeaf
}

// Clone returns a deep copy of the condition subtree.
func (c *ConditionNode) Clone() *ConditionNode {
	if c == nil {
		return nil
	}
	out := &ConditionNode{
		Type:     c.Type,
		Fact:     c.Fact,
		Operator: c.Operator,
		Value:    c.Value.Clone(),
	}
	if len(c.Children) > 0 {
		out.Children = make([]*ConditionNode, len(c.Children))
		for i, child := range c.Children {
			out.Children[i] = child.Clone()
		}
	}
	return out
}

// Walk visits every node of the subtree in depth-first order.
func (c *ConditionNode) Walk(visit func(*ConditionNode)) {
	if c == nil {
		return
	}
	visit(c)
	for _, child := range c.Children {
		child.Walk(visit)
	}
}
