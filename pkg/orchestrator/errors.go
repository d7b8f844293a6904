package orchestrator

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidArgument marks requests rejected before any resolution work:
// a missing name or a missing ambient view context.
var ErrInvalidArgument = errors.New("invalid argument")

// ErrNotFound marks renders whose reference matched no template in any
// searched location. Use errors.As with *NotFoundError to recover the
// searched list.
var ErrNotFound = errors.New("template not found")

// NotFoundError reports a failed resolution together with every location the
// search probed, in probe order. When a fallback reference was configured its
// probes follow the primary's.
type NotFoundError struct {
	// Name is the reference that could not be resolved.
	Name string
	// Searched lists every probed location in order.
	Searched []string
}

// Error implements error.
func (e *NotFoundError) Error() string {
	if len(e.Searched) == 0 {
		return fmt.Sprintf("partial: template %q not found", e.Name)
	}
	return fmt.Sprintf("partial: template %q not found, searched: %s",
		e.Name, strings.Join(e.Searched, ", "))
}

// Unwrap lets errors.Is(err, ErrNotFound) match.
func (e *NotFoundError) Unwrap() error {
	return ErrNotFound
}
