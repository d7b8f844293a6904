package partial

import (
	"io/fs"

	"github.com/goliatone/go-partial/pkg/template/pongo2"
)

// NewEngine builds the default pongo2-backed template engine. Hosts with a
// different template system implement the Engine seam directly instead.
func NewEngine(options ...pongo2.Option) (Engine, error) {
	return pongo2.New(options...)
}

// NewEngineFromFS is shorthand for the common wiring over an fs.FS, which may
// be an embed.FS, an os.DirFS, or a database-backed template store.
func NewEngineFromFS(files fs.FS) (Engine, error) {
	return pongo2.New(pongo2.WithFS(files))
}

// NewEngineFromDir loads templates from a directory on disk.
func NewEngineFromDir(dir string) (Engine, error) {
	return pongo2.New(pongo2.WithBaseDir(dir))
}
