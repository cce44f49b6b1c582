package registry

import (
	"fmt"
	"strings"
)

// UnknownPatternError is returned when a pattern name was never registered.
type UnknownPatternError struct {
	Name string
}

func (e *UnknownPatternError) Error() string {
	return fmt.Sprintf("unknown pattern %q", e.Name)
}

// UnknownHelperError is returned when a helper name was never registered.
type UnknownHelperError struct {
	Name string
	// RequiredBy names the helper that declared the dependency, if any.
	RequiredBy string
}

func (e *UnknownHelperError) Error() string {
	if e.RequiredBy != "" {
		return fmt.Sprintf("unknown helper %q required by %q", e.Name, e.RequiredBy)
	}
	return fmt.Sprintf("unknown helper %q", e.Name)
}

// CyclicPatternError is returned when resolving a pattern or a helper
// re-enters itself. Chain lists the names from the first entry to the repeat.
type CyclicPatternError struct {
	Chain []string
}

func (e *CyclicPatternError) Error() string {
	return fmt.Sprintf("cyclic pattern dependency: %s", strings.Join(e.Chain, " -> "))
}
