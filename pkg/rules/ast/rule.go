package ast

// EventType classifies the diagnostic a rule emits when it fires.
type EventType string

const (
	EventValidationError      EventType = "VALIDATION_ERROR"
	EventValidationWarning    EventType = "VALIDATION_WARNING"
	EventComplianceBlock      EventType = "COMPLIANCE_BLOCK"
	EventComplianceEscalation EventType = "COMPLIANCE_ESCALATION"
)

// Compliance reports whether the event type signals a compliance check.
func (t EventType) Compliance() bool {
	return t == EventComplianceBlock || t == EventComplianceEscalation
}

// Category ranks a diagnostic for suppression and ordering.
type Category string

const (
	CategoryRequired   Category = "REQUIRED"
	CategoryFormat     Category = "FORMAT"
	CategoryDict       Category = "DICT"
	CategoryCross      Category = "CROSS"
	CategoryRegulatory Category = "REGULATORY"
)

// EventParams carries the diagnostic payload attached to a rule event.
type EventParams struct {
	Field    string   `yaml:"field" json:"field,omitempty"`
	Code     string   `yaml:"code" json:"code,omitempty"`
	Category Category `yaml:"category" json:"category,omitempty"`
	Message  string   `yaml:"message" json:"message,omitempty"`
	RuleID   string   `yaml:"ruleId" json:"ruleId,omitempty"`
}

// Event is the diagnostic a rule emits when its conditions hold.
type Event struct {
	Type   EventType   `yaml:"type"`
	Params EventParams `yaml:"params"`
}

// Rule is a single catalog rule: a named condition tree plus the event it
// fires. Rules are immutable after catalog load; per-request rewrites work
// on clones.
type Rule struct {
	Name       string
	Conditions *ConditionNode
	Event      Event
}

// Clone returns a deep copy of the rule.
func (r *Rule) Clone() *Rule {
	if r == nil {
		return nil
	}
	return &Rule{
		Name:       r.Name,
		Conditions: r.Conditions.Clone(),
		Event:      r.Event,
	}
}

// FactPaths returns the set of fact paths referenced anywhere in the rules:
// every leaf's fact plus every fact-reference comparison value. The engine
// uses it to pre-fill absent facts with the Unknown marker.
func FactPaths(rules []*Rule) map[string]bool {
	paths := make(map[string]bool)
	for _, rule := range rules {
		rule.Conditions.Walk(func(n *ConditionNode) {
			if n.IsLeaf() {
				paths[n.Fact] = true
				if n.Value != nil && n.Value.Kind == ValueFactRef {
					paths[n.Value.Ref] = true
				}
			}
		})
	}
	return paths
}
