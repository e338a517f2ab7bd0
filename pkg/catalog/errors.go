package catalog

import "fmt"

// LoadError indicates a file or directory could not be read or is missing.
type LoadError struct {
	Path    string
	Message string
	Cause   error
}

func (e *LoadError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("catalog load failed for %q: %s: %v", e.Path, e.Message, e.Cause)
	}
	return fmt.Sprintf("catalog load failed for %q: %s", e.Path, e.Message)
}

func (e *LoadError) Unwrap() error {
	return e.Cause
}

// ParseError indicates a file was read but its content is not valid.
type ParseError struct {
	Path    string
	Message string
	Cause   error
}

func (e *ParseError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("catalog parse failed for %q: %s: %v", e.Path, e.Message, e.Cause)
	}
	return fmt.Sprintf("catalog parse failed for %q: %s", e.Path, e.Message)
}

func (e *ParseError) Unwrap() error {
	return e.Cause
}

// RefError indicates an unresolvable dictionary reference inside a rule.
type RefError struct {
	Ref    string
	Reason string
}

func (e *RefError) Error() string {
	return fmt.Sprintf("dictionary reference %q: %s", e.Ref, e.Reason)
}
