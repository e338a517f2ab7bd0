package facts

import "strconv"

// ScalarEqual compares two scalar values with numeric coercion: a payload
// number decoded as float64 must match a catalog integer and vice versa.
// Non-scalar values never compare equal.
func ScalarEqual(a, b any) bool {
	if fa, aok := toFloat(a); aok {
		fb, bok := toFloat(b)
		return bok && fa == fb
	}
	switch av := a.(type) {
	case string:
		bv, ok := b.(string)
		return ok && av == bv
	case bool:
		bv, ok := b.(bool)
		return ok && av == bv
	case nil:
		return b == nil
	}
	return false
}

// ContainsScalar reports whether v is an element of list under ScalarEqual.
func ContainsScalar(list []any, v any) bool {
	for _, e := range list {
		if ScalarEqual(e, v) {
			return true
		}
	}
	return false
}

// Stringify renders a scalar fact value as a string for lookups and
// pattern matching. Unknown and nil render as the empty string; floats
// use the shortest exact representation so 643.0 becomes "643".
func Stringify(v any) (string, bool) {
	switch val := v.(type) {
	case nil:
		return "", true
	case unknownMarker:
		return "", true
	case string:
		return val, true
	case bool:
		return strconv.FormatBool(val), true
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64), true
	case int:
		return strconv.Itoa(val), true
	case int64:
		return strconv.FormatInt(val, 10), true
	}
	return "", false
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	}
	return 0, false
}
