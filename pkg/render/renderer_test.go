package render_test

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/goliatone/go-partial/pkg/buffer"
	"github.com/goliatone/go-partial/pkg/render"
	"github.com/goliatone/go-partial/pkg/view"
)

// fakeTemplate scripts render behaviour and counts releases.
type fakeTemplate struct {
	path     string
	chunks   []string
	failWith error
	onChunk  func(i int)
	released int
}

func (t *fakeTemplate) Path() string { return t.path }

func (t *fakeTemplate) Render(_ context.Context, w io.Writer, _ map[string]any) error {
	for i, chunk := range t.chunks {
		if t.onChunk != nil {
			t.onChunk(i)
		}
		if _, err := io.WriteString(w, chunk); err != nil {
			return err
		}
	}
	return t.failWith
}

func (t *fakeTemplate) Release() error {
	t.released++
	return nil
}

func TestRenderWritesBufferAndReleasesOnce(t *testing.T) {
	tmpl := &fakeTemplate{path: "Views/Shared/_Row.tmpl", chunks: []string{"<p>", "ok", "</p>"}}
	renderer := render.New(render.WithScope(buffer.NewScope()))

	buf, err := renderer.Render(context.Background(), tmpl, view.NewContext())
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	defer buf.Release()

	if got := buf.String(); got != "<p>ok</p>" {
		t.Fatalf("buffer content mismatch: %q", got)
	}
	if buf.Chunks() != 3 {
		t.Fatalf("expected 3 chunks, got %d", buf.Chunks())
	}
	if tmpl.released != 1 {
		t.Fatalf("expected exactly one release, got %d", tmpl.released)
	}
}

func TestRenderFailurePropagatesUnmodified(t *testing.T) {
	boom := errors.New("template exploded")
	tmpl := &fakeTemplate{path: "bad.tmpl", chunks: []string{"partial "}, failWith: boom}
	renderer := render.New()

	buf, err := renderer.Render(context.Background(), tmpl, view.NewContext())
	if buf != nil {
		t.Fatalf("expected nil buffer on failure")
	}
	if err != boom {
		t.Fatalf("expected the engine error unmodified, got %v", err)
	}
	if tmpl.released != 1 {
		t.Fatalf("expected exactly one release on failure, got %d", tmpl.released)
	}
}

func TestRenderCancelledBeforeStart(t *testing.T) {
	tmpl := &fakeTemplate{path: "row.tmpl", chunks: []string{"never"}}
	renderer := render.New()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := renderer.Render(ctx, tmpl, view.NewContext())
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if tmpl.released != 1 {
		t.Fatalf("release must fire on the cancellation path, got %d", tmpl.released)
	}
}

func TestRenderCancelledMidRender(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	tmpl := &fakeTemplate{
		path:   "row.tmpl",
		chunks: []string{"first", "second"},
		onChunk: func(i int) {
			if i == 1 {
				cancel()
			}
		},
	}
	renderer := render.New()

	_, err := renderer.Render(ctx, tmpl, view.NewContext())
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation at the flush boundary, got %v", err)
	}
	if tmpl.released != 1 {
		t.Fatalf("expected exactly one release, got %d", tmpl.released)
	}
}

func TestRenderAsyncSignalsCompletion(t *testing.T) {
	tmpl := &fakeTemplate{path: "row.tmpl", chunks: []string{"<li>async</li>"}}
	renderer := render.New()

	select {
	case result := <-renderer.RenderAsync(context.Background(), tmpl, view.NewContext()):
		if result.Err != nil {
			t.Fatalf("async render: %v", result.Err)
		}
		defer result.Buffer.Release()
		if got := result.Buffer.String(); got != "<li>async</li>" {
			t.Fatalf("async content mismatch: %q", got)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("async render did not complete")
	}
}

func TestRenderValidatesArguments(t *testing.T) {
	renderer := render.New()

	if _, err := renderer.Render(context.Background(), nil, view.NewContext()); err == nil {
		t.Fatalf("expected error for nil template")
	}
	tmpl := &fakeTemplate{path: "row.tmpl"}
	if _, err := renderer.Render(context.Background(), tmpl, nil); err == nil {
		t.Fatalf("expected error for nil view context")
	}
	if tmpl.released != 1 {
		t.Fatalf("handle ownership transfers even on rejected calls, released %d times", tmpl.released)
	}
}
