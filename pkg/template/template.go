// Package template defines the engine-agnostic contracts the resolver and
// renderer rely on. Engines live in subpackages and adapt concrete template
// libraries to these seams.
package template

import (
	"context"
	"errors"
	"io"
)

// ErrNotExist reports that an exact template path has no backing source.
// Engines wrap it so resolvers can distinguish a miss from an I/O or compile
// failure with errors.Is.
var ErrNotExist = errors.New("template: does not exist")

// Template is an open handle on a resolved template. The party that obtained
// the handle owns it and must call Release exactly once when rendering
// finishes, on success and failure alike.
type Template interface {
	// Path returns the exact path the handle was opened with.
	Path() string
	// Render executes the template with vars, writing output to w. Errors
	// from the underlying engine are returned as is.
	Render(ctx context.Context, w io.Writer, vars map[string]any) error
	// Release returns the handle's resources. Implementations tolerate a
	// second call but callers must not rely on that.
	Release() error
}

// Engine opens templates by exact path. Search strategy lives above this
// seam: engines never guess locations, they answer for one path at a time.
type Engine interface {
	// Open returns a handle for path or an error wrapping ErrNotExist when
	// nothing backs it. Compile and I/O failures surface as themselves.
	Open(ctx context.Context, path string) (Template, error)
}
