// Package verdict turns the raw event stream of a rule evaluation into a
// deterministic verdict: deduplicated, suppressed, ordered diagnostics and
// a single outcome status. Two evaluations of the same payload against the
// same catalog produce byte-identical verdicts regardless of rule file
// ordering accidents.
package verdict

import "paygate-hq/ceres/pkg/rules/ast"

// Status is the overall outcome of one validation.
type Status string

const (
	StatusOK              Status = "OK"
	StatusValidationError Status = "VALIDATION_ERROR"
	StatusComplianceBlock Status = "COMPLIANCE_BLOCK"
)

// Diagnostic is one reported finding, shaped for the response body.
type Diagnostic struct {
	Field    string       `json:"field,omitempty"`
	Code     string       `json:"code"`
	Category ast.Category `json:"category,omitempty"`
	Message  string       `json:"message,omitempty"`
	RuleID   string       `json:"ruleId,omitempty"`
}

// Verdict is the aggregated result of one validation run.
type Verdict struct {
	Status         Status       `json:"status"`
	RulesetVersion string       `json:"rulesetVersion"`
	Errors         []Diagnostic `json:"errors,omitempty"`
	Warnings       []Diagnostic `json:"warnings,omitempty"`

	// Escalations never reach the response body; they are recorded in the
	// audit trail only.
	Escalations []Diagnostic `json:"-"`
}

// normalize shapes one event into a diagnostic, filling the fields a
// sparse catalog entry may omit: the code falls back to the event type,
// the category to REGULATORY for compliance events and FORMAT otherwise.
func normalize(ev ast.Event) Diagnostic {
	d := Diagnostic{
		Field:    ev.Params.Field,
		Code:     ev.Params.Code,
		Category: ev.Params.Category,
		Message:  ev.Params.Message,
		RuleID:   ev.Params.RuleID,
	}
	if d.Code == "" {
		d.Code = string(ev.Type)
	}
	if d.Category == "" {
		if ev.Type.Compliance() {
			d.Category = ast.CategoryRegulatory
		} else {
			d.Category = ast.CategoryFormat
		}
	}
	return d
}
