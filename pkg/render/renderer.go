// Package render drives a resolved template into a pooled output buffer. The
// renderer owns the template handle for the duration of the call and releases
// it on every exit path, success, failure, and cancellation alike.
package render

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/goliatone/go-partial/pkg/buffer"
	"github.com/goliatone/go-partial/pkg/template"
	"github.com/goliatone/go-partial/pkg/view"
)

// Renderer renders templates into buffers checked out of a shared scope. It
// is stateless apart from the scope and safe for concurrent use.
type Renderer struct {
	scope *buffer.Scope
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithScope overrides the buffer scope renders are served from.
func WithScope(scope *buffer.Scope) Option {
	return func(r *Renderer) {
		if scope != nil {
			r.scope = scope
		}
	}
}

// New builds a Renderer backed by the default buffer scope unless overridden.
func New(options ...Option) *Renderer {
	r := &Renderer{scope: buffer.Default()}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(r)
	}
	return r
}

// Render executes tmpl against viewCtx into a buffer checked out from the
// scope. On success the caller owns the returned buffer and releases it after
// consuming the content. Template failures are returned exactly as the engine
// produced them. The handle is released exactly once before Render returns.
func (r *Renderer) Render(ctx context.Context, tmpl template.Template, viewCtx *view.Context) (out *buffer.Buffer, err error) {
	if tmpl == nil {
		return nil, errors.New("render: template is required")
	}

	// Ownership of the handle transfers here; nothing below may return
	// without the release firing.
	defer func() {
		if rerr := tmpl.Release(); rerr != nil && err == nil {
			err = fmt.Errorf("render: release template %q: %w", tmpl.Path(), rerr)
			if out != nil {
				out.Release()
				out = nil
			}
		}
	}()

	if ctx == nil {
		return nil, errors.New("render: context is required")
	}
	if viewCtx == nil {
		return nil, errors.New("render: view context is required")
	}
	if cerr := ctx.Err(); cerr != nil {
		return nil, cerr
	}

	buf := r.scope.Get()
	bound := viewCtx.Bound(&cancelWriter{ctx: ctx, w: buf})

	if err := tmpl.Render(ctx, bound.Sink(), bound.TemplateVars()); err != nil {
		buf.Release()
		return nil, err
	}
	return buf, nil
}

// Async carries the completion of a RenderAsync call.
type Async struct {
	Buffer *buffer.Buffer
	Err    error
}

// RenderAsync issues Render on its own goroutine and signals completion on
// the returned channel. The channel receives exactly one value.
func (r *Renderer) RenderAsync(ctx context.Context, tmpl template.Template, viewCtx *view.Context) <-chan Async {
	done := make(chan Async, 1)
	go func() {
		defer close(done)
		buf, err := r.Render(ctx, tmpl, viewCtx)
		done <- Async{Buffer: buf, Err: err}
	}()
	return done
}

// cancelWriter observes cancellation at every flush into the underlying
// buffer, turning a cancelled context into a write error the engine
// propagates out of the render.
type cancelWriter struct {
	ctx context.Context
	w   io.Writer
}

func (cw *cancelWriter) Write(p []byte) (int, error) {
	if err := cw.ctx.Err(); err != nil {
		return 0, err
	}
	return cw.w.Write(p)
}
