package ast

// ValueKind discriminates the variants of a comparison value.
type ValueKind string

const (
	// ValueLiteral is an inline scalar or list carried by the rule file.
	ValueLiteral ValueKind = "literal"

	// ValueDictRef is a reference to a dictionary entry
	// (e.g. "dictionaries.citizenship.blocked"). Only present between
	// parsing and dictionary resolution; a loaded catalog has none.
	ValueDictRef ValueKind = "dict_ref"

	// ValueFactRef is a reference to another fact's current value
	// (e.g. "passport.issue_date"). Resolved per request.
	ValueFactRef ValueKind = "fact_ref"
)

// ValueNode is the comparison value of a leaf condition.
type ValueNode struct {
	Kind    ValueKind
	Literal any    // set when Kind == ValueLiteral
	Ref     string // dotted path, set for ValueDictRef / ValueFactRef
}

// Literal returns a literal value node.
func Literal(v any) *ValueNode {
	return &ValueNode{Kind: ValueLiteral, Literal: v}
}

// DictRef returns a dictionary-reference value node.
func DictRef(path string) *ValueNode {
	return &ValueNode{Kind: ValueDictRef, Ref: path}
}

// FactRef returns a fact-reference value node.
func FactRef(path string) *ValueNode {
	return &ValueNode{Kind: ValueFactRef, Ref: path}
}

// Clone returns a deep copy of the value node. Literal lists are copied so
// that per-request rewrites never alias catalog data.
func (v *ValueNode) Clone() *ValueNode {
	if v == nil {
		return nil
	}
	c := &ValueNode{Kind: v.Kind, Ref: v.Ref, Literal: cloneLiteral(v.Literal)}
	return c
}

func cloneLiteral(v any) any {
	switch val := v.(type) {
	case []any:
		out := make([]any, len(val))
		for i, e := range val {
			out[i] = cloneLiteral(e)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, e := range val {
			out[k] = cloneLiteral(e)
		}
		return out
	default:
		return val
	}
}
