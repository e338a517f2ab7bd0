// Package engine evaluates loaded rule trees against a fact table. The
// operator set is closed and statically dispatched; every operator fails
// closed, so an absent or malformed fact makes the checked property false
// rather than raising an evaluation error. Errors are reserved for catalog
// defects that slipped past load-time checks.
package engine
