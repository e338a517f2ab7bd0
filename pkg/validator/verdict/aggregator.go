package verdict

import (
	"sort"

	"paygate-hq/ceres/pkg/rules/ast"
)

// categoryRank orders diagnostics by severity class. Unknown categories
// sort last so a catalog typo cannot displace real findings.
var categoryRank = map[ast.Category]int{
	ast.CategoryRequired:   1,
	ast.CategoryFormat:     2,
	ast.CategoryDict:       3,
	ast.CategoryCross:      4,
	ast.CategoryRegulatory: 5,
}

const unknownCategoryRank = 99

// Aggregate builds the verdict from the fired events. The error pipeline
// runs dedupe, then per-field suppression, then the canonical sort;
// warnings are deduplicated and sorted but never suppressed; escalations
// pass through for the audit trail.
func Aggregate(events []ast.Event, rulesetVersion string) Verdict {
	var (
		errorDiags   []Diagnostic
		warningDiags []Diagnostic
		escalations  []Diagnostic
		blocked      bool
		hasErrors    bool
	)
	for _, ev := range events {
		switch ev.Type {
		case ast.EventComplianceBlock:
			blocked = true
			errorDiags = append(errorDiags, normalize(ev))
		case ast.EventValidationError:
			hasErrors = true
			errorDiags = append(errorDiags, normalize(ev))
		case ast.EventValidationWarning:
			warningDiags = append(warningDiags, normalize(ev))
		case ast.EventComplianceEscalation:
			escalations = append(escalations, normalize(ev))
		}
	}

	errorDiags = dedupe(errorDiags)
	errorDiags = suppress(errorDiags)
	sortDiags(errorDiags)

	warningDiags = dedupe(warningDiags)
	sortDiags(warningDiags)

	v := Verdict{
		Status:         StatusOK,
		RulesetVersion: rulesetVersion,
		Warnings:       warningDiags,
		Escalations:    escalations,
	}
	switch {
	case blocked:
		v.Status = StatusComplianceBlock
		v.Errors = errorDiags
	case hasErrors:
		// The event type decides the status; the category filter only
		// shapes the client-facing list, so a purely regulatory error
		// still fails the validation with an empty list.
		v.Status = StatusValidationError
		v.Errors = dropCategory(errorDiags, ast.CategoryRegulatory)
	}
	return v
}

// dedupe keeps the first diagnostic per (field, code) pair. Catalog order
// decides which duplicate survives.
func dedupe(diags []Diagnostic) []Diagnostic {
	type key struct{ field, code string }
	seen := make(map[key]bool, len(diags))
	out := diags[:0]
	for _, d := range diags {
		k := key{d.Field, d.Code}
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, d)
	}
	return out
}

// suppress drops diagnostics made redundant by a stronger finding on the
// same field: a missing field silences its format, dictionary and
// cross-field findings, and a format failure silences cross-field checks
// that would compare a malformed value. Field-less diagnostics are never
// suppressed.
func suppress(diags []Diagnostic) []Diagnostic {
	type fieldState struct{ required, format bool }
	byField := make(map[string]fieldState)
	for _, d := range diags {
		if d.Field == "" {
			continue
		}
		state := byField[d.Field]
		switch d.Category {
		case ast.CategoryRequired:
			state.required = true
		case ast.CategoryFormat:
			state.format = true
		}
		byField[d.Field] = state
	}

	out := diags[:0]
	for _, d := range diags {
		if d.Field != "" {
			state := byField[d.Field]
			switch d.Category {
			case ast.CategoryFormat, ast.CategoryDict:
				if state.required {
					continue
				}
			case ast.CategoryCross:
				if state.required || state.format {
					continue
				}
			}
		}
		out = append(out, d)
	}
	return out
}

func sortDiags(diags []Diagnostic) {
	sort.SliceStable(diags, func(i, j int) bool {
		ri, rj := rank(diags[i].Category), rank(diags[j].Category)
		if ri != rj {
			return ri < rj
		}
		if diags[i].Field != diags[j].Field {
			return diags[i].Field < diags[j].Field
		}
		return diags[i].Code < diags[j].Code
	})
}

func rank(c ast.Category) int {
	if r, ok := categoryRank[c]; ok {
		return r
	}
	return unknownCategoryRank
}

func dropCategory(diags []Diagnostic, category ast.Category) []Diagnostic {
	out := diags[:0]
	for _, d := range diags {
		if d.Category != category {
			out = append(out, d)
		}
	}
	return out
}
