package store

import (
	"bytes"
	"errors"
	"io/fs"
	"path"
	"time"
)

// storeFS exposes a TemplateStore as a read-only fs.FS so stored templates
// can feed any engine that loads from a filesystem.
type storeFS struct {
	store *SQLiteStore
}

var (
	_ fs.FS     = (*storeFS)(nil)
	_ fs.StatFS = (*storeFS)(nil)
)

// Open implements fs.FS.
func (sf *storeFS) Open(name string) (fs.File, error) {
	if !fs.ValidPath(name) {
		return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrInvalid}
	}

	source, err := sf.store.Get(name)
	if errors.Is(err, ErrNotFound) {
		return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrNotExist}
	}
	if err != nil {
		return nil, &fs.PathError{Op: "open", Path: name, Err: err}
	}

	info, err := sf.store.stat(name)
	if err != nil {
		return nil, &fs.PathError{Op: "open", Path: name, Err: err}
	}

	return &templateFile{
		reader: bytes.NewReader(source),
		info:   fileInfo{info: info},
	}, nil
}

// Stat implements fs.StatFS. Engines use it to probe for a template without
// loading the source.
func (sf *storeFS) Stat(name string) (fs.FileInfo, error) {
	if !fs.ValidPath(name) {
		return nil, &fs.PathError{Op: "stat", Path: name, Err: fs.ErrInvalid}
	}

	info, err := sf.store.stat(name)
	if errors.Is(err, ErrNotFound) {
		return nil, &fs.PathError{Op: "stat", Path: name, Err: fs.ErrNotExist}
	}
	if err != nil {
		return nil, &fs.PathError{Op: "stat", Path: name, Err: err}
	}

	return fileInfo{info: info}, nil
}

// templateFile is an in-memory fs.File over a stored template source.
type templateFile struct {
	reader *bytes.Reader
	info   fileInfo
}

func (f *templateFile) Read(p []byte) (int, error) { return f.reader.Read(p) }

func (f *templateFile) Stat() (fs.FileInfo, error) { return f.info, nil }

func (f *templateFile) Close() error { return nil }

// fileInfo adapts Info to fs.FileInfo.
type fileInfo struct {
	info Info
}

func (fi fileInfo) Name() string       { return path.Base(fi.info.Path) }
func (fi fileInfo) Size() int64        { return fi.info.Size }
func (fi fileInfo) Mode() fs.FileMode  { return 0o444 }
func (fi fileInfo) ModTime() time.Time { return fi.info.UpdatedAt }
func (fi fileInfo) IsDir() bool        { return false }
func (fi fileInfo) Sys() any           { return nil }
