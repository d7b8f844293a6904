// Package buffer provides the shared allocation scope partial renders write
// into. Buffers are checked out per render, accumulate output as an ordered
// chunk sequence, and return to the scope when released.
package buffer

import (
	"errors"
	"io"
	"sync"
)

// DefaultSizeHint is the initial capacity of a fresh buffer, tuned for the
// typical size of a rendered partial.
const DefaultSizeHint = 1024

var errReleased = errors.New("buffer: write after release")

// Scope is a goroutine-safe checkout pool of render buffers. The zero value
// is not usable; construct with NewScope.
type Scope struct {
	pool sync.Pool
	hint int
}

// ScopeOption configures a Scope.
type ScopeOption func(*Scope)

// WithSizeHint sets the initial capacity of buffers created by the scope.
func WithSizeHint(n int) ScopeOption {
	return func(s *Scope) {
		if n > 0 {
			s.hint = n
		}
	}
}

// NewScope builds a buffer scope.
func NewScope(options ...ScopeOption) *Scope {
	s := &Scope{hint: DefaultSizeHint}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(s)
	}
	s.pool.New = func() any {
		return &Buffer{buf: make([]byte, 0, s.hint)}
	}
	return s
}

var defaultScope = NewScope()

// Default returns the process-wide scope used when a renderer is not handed
// its own.
func Default() *Scope {
	return defaultScope
}

// Get checks a reset buffer out of the scope.
func (s *Scope) Get() *Buffer {
	b := s.pool.Get().(*Buffer)
	b.buf = b.buf[:0]
	b.marks = b.marks[:0]
	b.scope = s
	return b
}

// put returns a buffer to the pool. Called through Buffer.Release.
func (s *Scope) put(b *Buffer) {
	s.pool.Put(b)
}

// Buffer accumulates one render's output. A buffer has a single owner at a
// time and is not safe for concurrent writes; the scope handing it out is.
type Buffer struct {
	buf   []byte
	marks []int
	scope *Scope
}

var _ io.Writer = (*Buffer)(nil)

// Write appends p as one chunk. The data is copied; p may be reused by the
// caller.
func (b *Buffer) Write(p []byte) (int, error) {
	if b.scope == nil {
		return 0, errReleased
	}
	b.buf = append(b.buf, p...)
	b.marks = append(b.marks, len(b.buf))
	return len(p), nil
}

// WriteString appends s as one chunk.
func (b *Buffer) WriteString(s string) (int, error) {
	if b.scope == nil {
		return 0, errReleased
	}
	b.buf = append(b.buf, s...)
	b.marks = append(b.marks, len(b.buf))
	return len(s), nil
}

// Bytes returns the accumulated content. The slice aliases the buffer's
// backing array and is invalid after Release.
func (b *Buffer) Bytes() []byte {
	return b.buf
}

// String copies the accumulated content out as a string.
func (b *Buffer) String() string {
	return string(b.buf)
}

// Len reports the accumulated content size.
func (b *Buffer) Len() int {
	return len(b.buf)
}

// Chunks reports how many writes the buffer absorbed since checkout.
func (b *Buffer) Chunks() int {
	return len(b.marks)
}

// WriteTo copies the accumulated content into w.
func (b *Buffer) WriteTo(w io.Writer) (int64, error) {
	if len(b.buf) == 0 {
		return 0, nil
	}
	n, err := w.Write(b.buf)
	return int64(n), err
}

// Release returns the buffer to its scope. The buffer and any slice obtained
// from Bytes must not be used afterwards. A second release is a no-op.
func (b *Buffer) Release() {
	scope := b.scope
	if scope == nil {
		return
	}
	b.scope = nil
	scope.put(b)
}
