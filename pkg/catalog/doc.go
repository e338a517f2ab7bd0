// Package catalog loads and owns the read-only configuration the validator
// evaluates against: reference dictionaries, versioned rule files and the
// merchant policy document.
//
// A Catalog holds an immutable Snapshot behind an atomic pointer. Reload
// builds a complete new snapshot and swaps it in only if every file loads
// cleanly; readers never observe a partially-updated catalog and a failed
// reload keeps the previous snapshot serving. Any malformed file, unknown
// operator or unresolvable dictionary reference is a fatal load error.
package catalog
