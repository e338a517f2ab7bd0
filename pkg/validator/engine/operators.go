package engine

import (
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"paygate-hq/ceres/pkg/rules/ast"
	"paygate-hq/ceres/pkg/validator/facts"
)

// garbageChars is the forbidden punctuation class checked by
// containsGarbageChars. Quotes and brackets have no place in name fields.
const garbageChars = "()[]{}<>,;:#!%?«»\"_+=$*|~`&^@"

// patternCache holds compiled patterns keyed by source. Patterns were
// already compile-checked at catalog load, so Compile here cannot fail for
// loaded rules.
var patternCache sync.Map

func compiledPattern(pattern string) (*regexp.Regexp, error) {
	if cached, ok := patternCache.Load(pattern); ok {
		return cached.(*regexp.Regexp), nil
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, err
	}
	patternCache.Store(pattern, re)
	return re, nil
}

// applyOperator dispatches one leaf comparison. The comparison value must
// be a literal by the time evaluation runs; references left in the tree
// are a wiring bug and reported as errors.
func applyOperator(op ast.Operator, factValue any, comparison any, now time.Time) (bool, error) {
	switch op {
	case ast.OperatorFieldPresent:
		expected, err := expectBool(op, comparison)
		if err != nil {
			return false, err
		}
		return !facts.IsAbsent(factValue) == expected, nil

	case ast.OperatorMatchesRegex:
		pattern, ok := comparison.(string)
		if !ok {
			return false, fmt.Errorf("operator %s: comparison value %T is not a string pattern", op, comparison)
		}
		if facts.IsAbsent(factValue) {
			return false, nil
		}
		s, ok := facts.Stringify(factValue)
		if !ok {
			return false, nil
		}
		re, err := compiledPattern(pattern)
		if err != nil {
			return false, fmt.Errorf("operator %s: %w", op, err)
		}
		// Fires on mismatch: the rule's event is the format diagnostic.
		return !re.MatchString(s), nil

	case ast.OperatorAllSameDigits:
		expected, err := expectBool(op, comparison)
		if err != nil {
			return false, err
		}
		return allSameDigits(factValue) == expected, nil

	case ast.OperatorValidInnChecksum:
		expected, err := expectBool(op, comparison)
		if err != nil {
			return false, err
		}
		return validInnChecksum(factValue) == expected, nil

	case ast.OperatorIn:
		list, ok := comparison.([]any)
		if !ok {
			return false, fmt.Errorf("operator %s: comparison value %T is not a list", op, comparison)
		}
		return facts.ContainsScalar(list, factValue), nil

	case ast.OperatorNotIn:
		list, ok := comparison.([]any)
		if !ok {
			return false, fmt.Errorf("operator %s: comparison value %T is not a list", op, comparison)
		}
		return !facts.ContainsScalar(list, factValue), nil

	case ast.OperatorContains:
		substr, ok := comparison.(string)
		if !ok {
			return false, fmt.Errorf("operator %s: comparison value %T is not a string", op, comparison)
		}
		s, isString := factValue.(string)
		if !isString || s == "" {
			return false, nil
		}
		return strings.Contains(s, substr), nil

	case ast.OperatorContainsGarbageChars:
		expected, err := expectBool(op, comparison)
		if err != nil {
			return false, err
		}
		return containsGarbageChars(factValue) == expected, nil

	case ast.OperatorDateAfterToday:
		expected, err := expectBool(op, comparison)
		if err != nil {
			return false, err
		}
		return dateAfterToday(factValue, now) == expected, nil

	case ast.OperatorDateBefore:
		other, ok := comparison.(string)
		if !ok {
			// A fact reference that resolved to a non-string comparison
			// value cannot order dates; the check fails closed.
			if facts.IsAbsent(comparison) {
				return false, nil
			}
			return false, fmt.Errorf("operator %s: comparison value %T is not a date string", op, comparison)
		}
		return dateBefore(factValue, other), nil

	case ast.OperatorValidDateFormat:
		expected, err := expectBool(op, comparison)
		if err != nil {
			return false, err
		}
		s, isString := factValue.(string)
		valid := isString && s != ""
		if valid {
			_, valid = facts.ParseCanonical(s)
		}
		return valid == expected, nil
	}
	return false, fmt.Errorf("operator %q is not registered", op)
}

func expectBool(op ast.Operator, comparison any) (bool, error) {
	b, ok := comparison.(bool)
	if !ok {
		return false, fmt.Errorf("operator %s: comparison value %T is not a boolean", op, comparison)
	}
	return b, nil
}

// allSameDigits reports whether the value renders as two or more
// identical digits, the classic filler tax id. Numeric facts are
// stringified first, so a payload carrying the id as a JSON number is
// caught too.
func allSameDigits(v any) bool {
	s, ok := facts.Stringify(v)
	if !ok || len(s) < 2 {
		return false
	}
	first := s[0]
	if first < '0' || first > '9' {
		return false
	}
	for i := 1; i < len(s); i++ {
		if s[i] != first {
			return false
		}
	}
	return true
}

// innChecksumCoefficients are the weight rows for the two control digits of
// a 12-digit personal tax id.
var (
	innCoefficients11 = []int{7, 2, 4, 10, 3, 5, 9, 4, 6, 8}
	innCoefficients12 = []int{3, 7, 2, 4, 10, 3, 5, 9, 4, 6, 8}
)

// validInnChecksum verifies both control digits of a 12-digit tax id.
// Anything that is not exactly 12 digits is invalid.
func validInnChecksum(v any) bool {
	s, ok := facts.Stringify(v)
	if !ok || len(s) != 12 {
		return false
	}
	digits := make([]int, 12)
	for i := 0; i < 12; i++ {
		c := s[i]
		if c < '0' || c > '9' {
			return false
		}
		digits[i] = int(c - '0')
	}
	return innControlDigit(digits, innCoefficients11) == digits[10] &&
		innControlDigit(digits, innCoefficients12) == digits[11]
}

func innControlDigit(digits, coefficients []int) int {
	sum := 0
	for i, c := range coefficients {
		sum += c * digits[i]
	}
	return sum % 11 % 10
}

func containsGarbageChars(v any) bool {
	s, ok := facts.Stringify(v)
	if !ok {
		return false
	}
	return strings.ContainsAny(s, garbageChars)
}

func dateAfterToday(v any, now time.Time) bool {
	s, ok := v.(string)
	if !ok {
		return false
	}
	d, ok := facts.ParseCanonical(s)
	if !ok {
		return false
	}
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	return d.After(today)
}

func dateBefore(v any, other string) bool {
	s, ok := v.(string)
	if !ok {
		return false
	}
	left, ok := facts.ParseCanonical(s)
	if !ok {
		return false
	}
	right, ok := facts.ParseCanonical(other)
	if !ok {
		return false
	}
	return left.Before(right)
}
