package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-partial/pkg/template"
	"github.com/goliatone/go-partial/pkg/view"
)

type stubTemplate struct {
	path     string
	render   func(w io.Writer, vars map[string]any) error
	released int
}

func (s *stubTemplate) Path() string { return s.path }

func (s *stubTemplate) Render(_ context.Context, w io.Writer, vars map[string]any) error {
	if s.render == nil {
		return nil
	}
	return s.render(w, vars)
}

func (s *stubTemplate) Release() error {
	s.released++
	return nil
}

type stubEngine struct {
	templates map[string]*stubTemplate
	opened    []string
}

func newStubEngine() *stubEngine {
	return &stubEngine{templates: map[string]*stubTemplate{}}
}

func (e *stubEngine) add(path string, render func(w io.Writer, vars map[string]any) error) *stubTemplate {
	tmpl := &stubTemplate{path: path, render: render}
	e.templates[path] = tmpl
	return tmpl
}

func (e *stubEngine) addStatic(path, body string) *stubTemplate {
	return e.add(path, func(w io.Writer, _ map[string]any) error {
		_, err := io.WriteString(w, body)
		return err
	})
}

func (e *stubEngine) Open(_ context.Context, path string) (template.Template, error) {
	e.opened = append(e.opened, path)
	tmpl, ok := e.templates[path]
	if !ok {
		return nil, fmt.Errorf("stub: open %q: %w", path, template.ErrNotExist)
	}
	return tmpl, nil
}

func TestOrchestrator_RendersPartial(t *testing.T) {
	engine := newStubEngine()
	engine.addStatic("views/shared/_note.tmpl", "<p>ok</p>")

	orch := New(
		WithEngine(engine),
		WithLocations("views/home", "views/shared"),
	)

	result, err := orch.Render(context.Background(), Request{
		Name:    "_note",
		Ambient: view.NewContext(),
	})
	if err != nil {
		t.Fatalf("render: %v", err)
	}

	if got := string(result.Content); got != "<p>ok</p>" {
		t.Fatalf("content mismatch: want %q, got %q", "<p>ok</p>", got)
	}
	if result.TemplatePath != "views/shared/_note.tmpl" {
		t.Fatalf("unexpected template path: %s", result.TemplatePath)
	}
	if result.RenderID == "" {
		t.Fatal("expected render id")
	}
}

func TestOrchestrator_ValidatesRequest(t *testing.T) {
	engine := newStubEngine()
	orch := New(WithEngine(engine))

	cases := []struct {
		name string
		req  Request
	}{
		{name: "MissingName", req: Request{Ambient: view.NewContext()}},
		{name: "BlankName", req: Request{Name: "   ", Ambient: view.NewContext()}},
		{name: "MissingAmbient", req: Request{Name: "_row"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := orch.Render(context.Background(), tc.req)
			if !errors.Is(err, ErrInvalidArgument) {
				t.Fatalf("expected ErrInvalidArgument, got %v", err)
			}
		})
	}

	if len(engine.opened) != 0 {
		t.Fatalf("invalid requests must not reach the engine, opened %v", engine.opened)
	}
}

func TestOrchestrator_RequiresEngine(t *testing.T) {
	orch := New()

	_, err := orch.Render(context.Background(), Request{
		Name:    "_row",
		Ambient: view.NewContext(),
	})
	if err == nil || !strings.Contains(err.Error(), "template engine is required") {
		t.Fatalf("expected engine requirement error, got %v", err)
	}
}

func TestOrchestrator_NotFoundListsSearchedLocations(t *testing.T) {
	engine := newStubEngine()
	orch := New(
		WithEngine(engine),
		WithLocations("Views/Home", "Views/Shared"),
	)

	_, err := orch.Render(context.Background(), Request{
		Name:    "_Row",
		Ambient: view.NewContext(),
	})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	var notFound *NotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("expected *NotFoundError, got %T", err)
	}
	if notFound.Name != "_Row" {
		t.Fatalf("unexpected name: %s", notFound.Name)
	}

	want := []string{"Views/Home/_Row.tmpl", "Views/Shared/_Row.tmpl"}
	if diff := cmp.Diff(want, notFound.Searched); diff != "" {
		t.Fatalf("searched locations mismatch (-want +got):\n%s", diff)
	}

	for _, location := range want {
		if !strings.Contains(err.Error(), location) {
			t.Fatalf("error message should name %q: %s", location, err)
		}
	}
}

func TestOrchestrator_FallbackRendersWhenPrimaryMisses(t *testing.T) {
	engine := newStubEngine()
	engine.addStatic("views/shared/_placeholder.tmpl", "<p>placeholder</p>")

	orch := New(
		WithEngine(engine),
		WithLocations("views/home", "views/shared"),
	)

	result, err := orch.Render(context.Background(), Request{
		Name:     "_missing",
		Fallback: "_placeholder",
		Ambient:  view.NewContext(),
	})
	if err != nil {
		t.Fatalf("render: %v", err)
	}

	if got := string(result.Content); got != "<p>placeholder</p>" {
		t.Fatalf("expected fallback output, got %q", got)
	}
}

func TestOrchestrator_FallbackMissConcatenatesSearched(t *testing.T) {
	engine := newStubEngine()
	orch := New(
		WithEngine(engine),
		WithLocations("views/home", "views/shared"),
	)

	_, err := orch.Render(context.Background(), Request{
		Name:     "_missing",
		Fallback: "_also_missing",
		Ambient:  view.NewContext(),
	})

	var notFound *NotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("expected *NotFoundError, got %v", err)
	}

	want := []string{
		"views/home/_missing.tmpl",
		"views/shared/_missing.tmpl",
		"views/home/_also_missing.tmpl",
		"views/shared/_also_missing.tmpl",
	}
	if diff := cmp.Diff(want, notFound.Searched); diff != "" {
		t.Fatalf("searched locations mismatch (-want +got):\n%s", diff)
	}
}

func TestOrchestrator_ModelExpressionBindsChildModel(t *testing.T) {
	engine := newStubEngine()
	engine.add("views/shared/_field.tmpl", func(w io.Writer, vars map[string]any) error {
		_, err := fmt.Fprintf(w, "%v|%v", vars["model"], vars["field_prefix"])
		return err
	})

	orch := New(WithEngine(engine), WithLocations("views/shared"))

	ambient := view.NewContext(
		view.WithModel("parent-model"),
		view.WithFieldPrefix("Order"),
	)

	result, err := orch.Render(context.Background(), Request{
		Name:    "_field",
		Model:   &view.Expression{Value: "child-model", FieldName: "Item"},
		Ambient: ambient,
	})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if got := string(result.Content); got != "child-model|Order.Item" {
		t.Fatalf("expression binding mismatch: %q", got)
	}

	// Without an expression the ambient model and prefix pass through.
	result, err = orch.Render(context.Background(), Request{
		Name:    "_field",
		Ambient: ambient,
	})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if got := string(result.Content); got != "parent-model|Order" {
		t.Fatalf("inherited binding mismatch: %q", got)
	}
}

func TestOrchestrator_OverridesWinCaseInsensitive(t *testing.T) {
	engine := newStubEngine()
	engine.add("views/shared/_summary.tmpl", func(w io.Writer, vars map[string]any) error {
		if _, dup := vars["Title"]; dup {
			return errors.New("case-folded duplicate leaked into template vars")
		}
		_, err := fmt.Fprintf(w, "%v|%v", vars["title"], vars["Count"])
		return err
	})

	orch := New(WithEngine(engine), WithLocations("views/shared"))

	ambient := view.NewContext(view.WithData(map[string]any{
		"Title": "Y",
		"Count": "1",
	}))

	result, err := orch.Render(context.Background(), Request{
		Name:      "_summary",
		Overrides: map[string]any{"title": "X"},
		Ambient:   ambient,
	})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if got := string(result.Content); got != "X|1" {
		t.Fatalf("override merge mismatch: %q", got)
	}

	// The ambient context is untouched.
	if got, _ := ambient.Data().Get("Title"); got != "Y" {
		t.Fatalf("ambient data mutated: %v", got)
	}
}

func TestOrchestrator_RenderFailurePropagatesUnmodified(t *testing.T) {
	boom := errors.New("template exploded")

	engine := newStubEngine()
	tmpl := engine.add("views/shared/_broken.tmpl", func(io.Writer, map[string]any) error {
		return boom
	})

	orch := New(WithEngine(engine), WithLocations("views/shared"))

	_, err := orch.Render(context.Background(), Request{
		Name:    "_broken",
		Ambient: view.NewContext(),
	})
	if err != boom {
		t.Fatalf("render failure must pass through unmodified, got %v", err)
	}
	if tmpl.released != 1 {
		t.Fatalf("expected exactly one release, got %d", tmpl.released)
	}
}

func TestOrchestrator_ReleasesHandleOnSuccess(t *testing.T) {
	engine := newStubEngine()
	tmpl := engine.addStatic("views/shared/_row.tmpl", "<tr></tr>")

	orch := New(WithEngine(engine), WithLocations("views/shared"))

	if _, err := orch.Render(context.Background(), Request{
		Name:    "_row",
		Ambient: view.NewContext(),
	}); err != nil {
		t.Fatalf("render: %v", err)
	}
	if tmpl.released != 1 {
		t.Fatalf("expected exactly one release, got %d", tmpl.released)
	}
}

func TestOrchestrator_AliasResolvesBeforeSearch(t *testing.T) {
	engine := newStubEngine()
	engine.addStatic("themes/base/card.tmpl", "<div>card</div>")
	engine.addStatic("views/shared/card.tmpl", "<div>wrong</div>")

	orch := New(
		WithEngine(engine),
		WithLocations("views/shared"),
		WithAliases(map[string]string{"card": "themes/base/card.tmpl"}),
	)

	result, err := orch.Render(context.Background(), Request{
		Name:    "card",
		Ambient: view.NewContext(),
	})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if got := string(result.Content); got != "<div>card</div>" {
		t.Fatalf("alias should win over search: %q", got)
	}
}

func TestOrchestrator_SanitizeStripsUntrustedMarkup(t *testing.T) {
	engine := newStubEngine()
	engine.addStatic("views/shared/_ugc.tmpl", `<p>ok</p><script>alert(1)</script>`)

	orch := New(WithEngine(engine), WithLocations("views/shared"))

	result, err := orch.Render(context.Background(), Request{
		Name:     "_ugc",
		Sanitize: true,
		Ambient:  view.NewContext(),
	})
	if err != nil {
		t.Fatalf("render: %v", err)
	}

	got := string(result.Content)
	if strings.Contains(got, "<script>") {
		t.Fatalf("script should be stripped: %q", got)
	}
	if !strings.Contains(got, "<p>ok</p>") {
		t.Fatalf("benign markup should survive: %q", got)
	}
}

func TestOrchestrator_RenderAsyncDelivers(t *testing.T) {
	engine := newStubEngine()
	engine.addStatic("views/shared/_note.tmpl", "<p>async</p>")

	orch := New(WithEngine(engine), WithLocations("views/shared"))

	done := orch.RenderAsync(context.Background(), Request{
		Name:    "_note",
		Ambient: view.NewContext(),
	})

	completion := <-done
	if completion.Err != nil {
		t.Fatalf("async render: %v", completion.Err)
	}
	if got := string(completion.Result.Content); got != "<p>async</p>" {
		t.Fatalf("async content mismatch: %q", got)
	}
	if _, open := <-done; open {
		t.Fatal("completion channel should close after one value")
	}
}

func TestOrchestrator_NestedPartialHelper(t *testing.T) {
	engine := newStubEngine()
	engine.add("views/shared/_card.tmpl", func(w io.Writer, vars map[string]any) error {
		nested, ok := vars["partial"].(func(string, ...any) (string, error))
		if !ok {
			return fmt.Errorf("partial helper missing, got %T", vars["partial"])
		}
		inner, err := nested("_badge", "new")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(w, "<div>%s</div>", inner)
		return err
	})
	badge := engine.add("views/shared/_badge.tmpl", func(w io.Writer, vars map[string]any) error {
		_, err := fmt.Fprintf(w, "<em>%v</em>", vars["model"])
		return err
	})

	orch := New(WithEngine(engine), WithLocations("views/shared"))

	result, err := orch.Render(context.Background(), Request{
		Name:    "_card",
		Ambient: view.NewContext(),
	})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if got := string(result.Content); got != "<div><em>new</em></div>" {
		t.Fatalf("nested composition mismatch: %q", got)
	}
	if badge.released != 1 {
		t.Fatalf("nested handle should release once, got %d", badge.released)
	}
}

func TestOrchestrator_NestedPartialResolvesPathRelative(t *testing.T) {
	engine := newStubEngine()
	engine.add("views/widgets/_panel.tmpl", func(w io.Writer, vars map[string]any) error {
		nested := vars["partial"].(func(string, ...any) (string, error))
		inner, err := nested("./_panel_header")
		if err != nil {
			return err
		}
		_, err = io.WriteString(w, inner+"<section></section>")
		return err
	})
	engine.addStatic("views/widgets/_panel_header.tmpl", "<h2>panel</h2>")

	orch := New(WithEngine(engine), WithLocations("views/shared"))

	result, err := orch.Render(context.Background(), Request{
		Name:    "views/widgets/_panel",
		Ambient: view.NewContext(),
	})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if got := string(result.Content); got != "<h2>panel</h2><section></section>" {
		t.Fatalf("path-relative nesting mismatch: %q", got)
	}
}

func TestOrchestrator_CancelledContextShortCircuits(t *testing.T) {
	engine := newStubEngine()
	engine.addStatic("views/shared/_note.tmpl", "<p>never</p>")

	orch := New(WithEngine(engine), WithLocations("views/shared"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := orch.Render(ctx, Request{
		Name:    "_note",
		Ambient: view.NewContext(),
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if len(engine.opened) != 0 {
		t.Fatalf("cancelled request must not reach the engine, opened %v", engine.opened)
	}
}
