package catalog

import (
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// refRoot is the fixed first segment every dictionary reference must carry.
const refRoot = "dictionaries"

// derivedKeysField is attached to any dictionary exposing a "values"
// mapping: a parallel list of its keys, so "code not among the valid set"
// checks do not rebuild the key list per evaluation.
const derivedKeysField = "values_keys"

// Store holds every loaded reference dictionary, keyed by file name without
// extension. Immutable once loaded; safe for concurrent reads.
type Store struct {
	dicts map[string]any
}

// LoadDictionaries reads every dictionary file in dir once. Files may be
// YAML or JSON; anything that does not decode is a fatal load error.
func LoadDictionaries(dir string) (*Store, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, &LoadError{Path: dir, Message: "cannot read dictionaries directory", Cause: err}
	}

	dicts := make(map[string]any)
	for _, entry := range entries {
		if entry.IsDir() || !hasCatalogExtension(entry.Name()) {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, &LoadError{Path: path, Message: "cannot read dictionary file", Cause: err}
		}
		var doc any
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, &ParseError{Path: path, Message: "invalid dictionary document", Cause: err}
		}
		name := strings.TrimSuffix(entry.Name(), filepath.Ext(entry.Name()))
		dicts[name] = doc
	}

	for _, doc := range dicts {
		deriveValueKeys(doc)
	}

	return &Store{dicts: dicts}, nil
}

// deriveValueKeys attaches the values_keys list to dictionaries shaped as
// {values: {code: name}}. Numeric-looking keys are coerced to numbers to
// match the payload's decoded scalar types.
func deriveValueKeys(doc any) {
	m, ok := doc.(map[string]any)
	if !ok {
		return
	}
	values, ok := m["values"].(map[string]any)
	if !ok {
		return
	}
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	coerced := make([]any, len(keys))
	for i, k := range keys {
		if f, err := strconv.ParseFloat(k, 64); err == nil {
			coerced[i] = f
		} else {
			coerced[i] = k
		}
	}
	m[derivedKeysField] = coerced
}

// Get returns the named dictionary.
func (s *Store) Get(name string) (any, bool) {
	d, ok := s.dicts[name]
	return d, ok
}

// Names returns the loaded dictionary names, sorted.
func (s *Store) Names() []string {
	names := make([]string, 0, len(s.dicts))
	for n := range s.dicts {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of loaded dictionaries.
func (s *Store) Len() int {
	return len(s.dicts)
}

// Resolve dereferences a dotted path of the form
// "dictionaries.<name>.<field>...". A path not rooted at the expected
// prefix, or that walks off the loaded data, returns a RefError.
func (s *Store) Resolve(path string) (any, error) {
	parts := strings.Split(path, ".")
	if parts[0] != refRoot {
		return nil, &RefError{Ref: path, Reason: "must start with " + strconv.Quote(refRoot)}
	}
	var cur any = s.dicts
	for _, part := range parts[1:] {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, &RefError{Ref: path, Reason: "segment " + strconv.Quote(part) + " does not address a mapping"}
		}
		cur, ok = m[part]
		if !ok {
			return nil, &RefError{Ref: path, Reason: "segment " + strconv.Quote(part) + " not found"}
		}
	}
	return cur, nil
}

func hasCatalogExtension(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml", ".json":
		return true
	}
	return false
}
