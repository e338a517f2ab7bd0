package facts

import (
	"paygate-hq/ceres/pkg/catalog"
)

// unknownMarker is the private type behind Unknown so no payload value can
// collide with it.
type unknownMarker struct{}

// Unknown is the sentinel stored for every fact a rule references but the
// payload does not carry. Operators treat it the same as an empty value.
var Unknown any = unknownMarker{}

// IsUnknown reports whether v is the absent-fact sentinel.
func IsUnknown(v any) bool {
	_, ok := v.(unknownMarker)
	return ok
}

// IsAbsent reports whether v counts as "no value" for presence checks:
// nil, the unknown marker, or an empty string.
func IsAbsent(v any) bool {
	if v == nil || IsUnknown(v) {
		return true
	}
	s, ok := v.(string)
	return ok && s == ""
}

// Table is the flat fact table for one evaluation. Keys are dotted paths.
type Table map[string]any

// Flatten builds a fact table from a decoded payload. Nested objects
// contribute dotted paths; arrays stay opaque values at their own path.
func Flatten(payload map[string]any) Table {
	t := make(Table, len(payload))
	flattenInto(t, "", payload)
	return t
}

func flattenInto(t Table, prefix string, m map[string]any) {
	for k, v := range m {
		path := k
		if prefix != "" {
			path = prefix + "." + k
		}
		if nested, ok := v.(map[string]any); ok {
			flattenInto(t, path, nested)
			continue
		}
		t[path] = v
	}
}

// Get returns the fact value, or Unknown when the path was never set.
func (t Table) Get(path string) any {
	if v, ok := t[path]; ok {
		return v
	}
	return Unknown
}

// CompleteAbsent fills every referenced fact path missing from the table
// with the Unknown marker, so rule evaluation never distinguishes "key
// absent" from "explicitly unknown".
func (t Table) CompleteAbsent(paths map[string]bool) {
	for path := range paths {
		if _, ok := t[path]; !ok {
			t[path] = Unknown
		}
	}
}

// Derive attaches the document-type facts computed from the doc_types
// dictionary: the expected document name for the payload's doc type code,
// and whether that code identifies a foreign identity document. Both stay
// Unknown when the code is absent or not in the dictionary.
func (t Table) Derive(dicts *catalog.Store) {
	code, ok := t["passport.doc_type"]
	if !ok || IsAbsent(code) {
		return
	}
	key, ok := Stringify(code)
	if !ok {
		return
	}

	if name, err := dicts.Resolve("dictionaries.doc_types.values." + key); err == nil {
		t["passport.doc_type_expected_name"] = name
	}

	if foreign, err := dicts.Resolve("dictionaries.doc_types.foreign_iddoc_codes"); err == nil {
		if list, ok := foreign.([]any); ok {
			t["passport.isForeignIdDoc"] = ContainsScalar(list, code)
		}
	}
}
