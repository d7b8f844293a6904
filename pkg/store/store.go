// Package store provides persistent template storage. Stored templates are
// exposed through an fs.FS view so they plug into the engine adapter the same
// way embedded or on-disk template trees do.
package store

import (
	"errors"
	"io/fs"
	"time"
)

// TemplateStore persists template sources keyed by slash-separated path.
// Implementations must be safe for concurrent use.
type TemplateStore interface {
	// Put stores a template source under path, overwriting any previous
	// version.
	Put(path string, source []byte) error

	// Get retrieves a template source.
	// Returns ErrNotFound if the path doesn't exist.
	Get(path string) ([]byte, error)

	// List returns metadata for every stored template, ordered by path.
	// Returns an empty slice (not an error) for an empty store.
	List() ([]Info, error)

	// Delete removes a template.
	// Returns nil if the path doesn't exist.
	Delete(path string) error

	// FS returns a read-only fs.FS view over the stored templates.
	FS() fs.FS

	// Close releases any resources (connections, files).
	Close() error
}

// Info provides template metadata without loading the source.
type Info struct {
	Path      string
	Size      int64
	UpdatedAt time.Time
}

// Sentinel errors for template store operations.
var (
	// ErrNotFound indicates a template doesn't exist.
	ErrNotFound = errors.New("template not found")

	// ErrStoreClosed indicates the store has been closed.
	ErrStoreClosed = errors.New("template store closed")
)
