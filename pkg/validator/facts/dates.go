package facts

import (
	"regexp"
	"strings"
	"time"

	"paygate-hq/ceres/pkg/rules/ast"
)

// CanonicalDateLayout is the only date format rules ever see.
const CanonicalDateLayout = "2006-01-02"

const legacyDateLayout = "02.01.2006"

// dateFields are the payload paths normalized before any rule runs.
var dateFields = []string{
	"birth_date",
	"beneficiary_date",
	"passport.issue_date",
	"passport.expiry_date",
}

var (
	canonicalDateRe = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	legacyDateRe    = regexp.MustCompile(`^\d{2}\.\d{2}\.\d{4}$`)
)

// NormalizeDates rewrites every known date field of the payload to the
// canonical YYYY-MM-DD form. The input is never mutated. Legacy DD.MM.YYYY
// values convert only when acceptLegacy is set. Any other non-empty value
// produces a DATE_INVALID_FORMAT diagnostic for its field; the caller
// short-circuits evaluation when the returned events are non-empty.
func NormalizeDates(payload map[string]any, acceptLegacy bool) (map[string]any, []ast.Event) {
	out := clonePayload(payload)
	var events []ast.Event

	for _, field := range dateFields {
		raw, ok := lookupPath(out, field)
		if !ok || IsAbsent(raw) {
			continue
		}
		s, isString := raw.(string)
		if isString {
			if canonical, ok := normalizeDate(s, acceptLegacy); ok {
				setPath(out, field, canonical)
				continue
			}
		}
		events = append(events, invalidDateEvent(field))
	}
	return out, events
}

func normalizeDate(s string, acceptLegacy bool) (string, bool) {
	if canonicalDateRe.MatchString(s) {
		if _, err := time.Parse(CanonicalDateLayout, s); err != nil {
			return "", false
		}
		return s, true
	}
	if acceptLegacy && legacyDateRe.MatchString(s) {
		parsed, err := time.Parse(legacyDateLayout, s)
		if err != nil {
			return "", false
		}
		return parsed.Format(CanonicalDateLayout), true
	}
	return "", false
}

func invalidDateEvent(field string) ast.Event {
	return ast.Event{
		Type: ast.EventValidationError,
		Params: ast.EventParams{
			Field:    field,
			Code:     "DATE_INVALID_FORMAT",
			Category: ast.CategoryFormat,
			Message:  "Date must use the YYYY-MM-DD format",
			RuleID:   "date_format",
		},
	}
}

// ParseCanonical parses a canonical date string. Used by date operators;
// anything that does not parse is handled by each operator's fail-closed
// default.
func ParseCanonical(s string) (time.Time, bool) {
	if !canonicalDateRe.MatchString(s) {
		return time.Time{}, false
	}
	t, err := time.Parse(CanonicalDateLayout, s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

func clonePayload(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		if nested, ok := v.(map[string]any); ok {
			out[k] = clonePayload(nested)
			continue
		}
		out[k] = v
	}
	return out
}

func lookupPath(m map[string]any, path string) (any, bool) {
	cur := m
	for {
		i := strings.IndexByte(path, '.')
		if i < 0 {
			v, ok := cur[path]
			return v, ok
		}
		next, ok := cur[path[:i]].(map[string]any)
		if !ok {
			return nil, false
		}
		cur, path = next, path[i+1:]
	}
}

func setPath(m map[string]any, path string, v any) {
	cur := m
	for {
		i := strings.IndexByte(path, '.')
		if i < 0 {
			cur[path] = v
			return
		}
		next, ok := cur[path[:i]].(map[string]any)
		if !ok {
			return
		}
		cur, path = next, path[i+1:]
	}
}
