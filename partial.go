// Package partial renders named template partials: references are resolved
// through a multi-stage search, executed in a context derived from the
// caller's, and buffered so the output splices into the enclosing response
// exactly as produced.
package partial

import (
	"context"
	"log/slog"

	theme "github.com/goliatone/go-theme"
	"github.com/microcosm-cc/bluemonday"

	"github.com/goliatone/go-partial/pkg/buffer"
	"github.com/goliatone/go-partial/pkg/observability"
	"github.com/goliatone/go-partial/pkg/orchestrator"
	"github.com/goliatone/go-partial/pkg/render"
	"github.com/goliatone/go-partial/pkg/template"
	"github.com/goliatone/go-partial/pkg/view"
)

// Request describes one partial invocation; alias exported via the root
// package for convenience.
type Request = orchestrator.Request

// Result is a completed partial render.
type Result = orchestrator.Result

// Async carries the completion of a RenderAsync call.
type Async = orchestrator.Async

// Option customises the orchestrator configuration.
type Option = orchestrator.Option

// NotFoundError reports a failed resolution together with every searched
// location.
type NotFoundError = orchestrator.NotFoundError

// Expression binds a model value and an optional field name into a child
// render.
type Expression = view.Expression

// Context is the ambient view context partial renders derive from.
type Context = view.Context

// ContextOption configures a root view context.
type ContextOption = view.ContextOption

// Engine is the template engine collaborator contract.
type Engine = template.Engine

// Template is the owned, releasable template handle.
type Template = template.Template

// ErrNotFound marks renders whose reference matched no searched location.
var ErrNotFound = orchestrator.ErrNotFound

// ErrInvalidArgument marks requests rejected before any resolution work.
var ErrInvalidArgument = orchestrator.ErrInvalidArgument

// NewOrchestrator exposes the orchestrator constructor from the top-level
// module so most callers only import this package.
func NewOrchestrator(options ...Option) *orchestrator.Orchestrator {
	return orchestrator.New(options...)
}

// NewContext builds a root view context for a host request.
func NewContext(options ...ContextOption) *Context {
	return view.NewContext(options...)
}

// WithModel seeds the root context's model payload.
func WithModel(model any) ContextOption {
	return view.WithModel(model)
}

// WithData seeds the root context's view-data dictionary.
func WithData(values map[string]any) ContextOption {
	return view.WithData(values)
}

// WithFieldPrefix seeds the dotted field prefix inherited by child contexts.
func WithFieldPrefix(prefix string) ContextOption {
	return view.WithFieldPrefix(prefix)
}

// WithTemplatePath records the path of the template the context belongs to,
// the anchor for path-relative references.
func WithTemplatePath(path string) ContextOption {
	return view.WithTemplatePath(path)
}

// RenderHTML resolves and renders one partial against a fresh root context.
// It is the simplest entry point for callers that just want the composed
// markup.
func RenderHTML(ctx context.Context, engine Engine, name string, model any, options ...Option) ([]byte, error) {
	return RenderHTMLInContext(ctx, engine, name, model, NewContext(), options...)
}

// RenderHTMLInContext renders one partial inside the supplied ambient view
// context, so view-data, field prefixes, and path-relative references chain
// from the caller.
func RenderHTMLInContext(ctx context.Context, engine Engine, name string, model any, ambient *Context, options ...Option) ([]byte, error) {
	opts := append([]Option{orchestrator.WithEngine(engine)}, options...)
	orch := orchestrator.New(opts...)

	req := Request{Name: name, Ambient: ambient}
	if model != nil {
		req.Model = &Expression{Value: model}
	}

	result, err := orch.Render(ctx, req)
	if err != nil {
		return nil, err
	}
	return result.Content, nil
}

// WithEngine injects the template engine partials are opened against.
func WithEngine(engine Engine) Option {
	return orchestrator.WithEngine(engine)
}

// WithLocations sets the directories searched when a reference is looked up
// by name, in priority order.
func WithLocations(locations ...string) Option {
	return orchestrator.WithLocations(locations...)
}

// WithExtension overrides the default template extension.
func WithExtension(ext string) Option {
	return orchestrator.WithExtension(ext)
}

// WithAliases maps reference names straight to template paths.
func WithAliases(aliases map[string]string) Option {
	return orchestrator.WithAliases(aliases)
}

// WithRenderer injects a pre-built buffered renderer.
func WithRenderer(r *render.Renderer) Option {
	return orchestrator.WithRenderer(r)
}

// WithScope supplies the buffer scope renders are served from.
func WithScope(scope *buffer.Scope) Option {
	return orchestrator.WithScope(scope)
}

// WithLogger enables structured logging.
func WithLogger(logger *slog.Logger) Option {
	return orchestrator.WithLogger(logger)
}

// WithMetrics enables metrics recording.
func WithMetrics(recorder observability.MetricsRecorder) Option {
	return orchestrator.WithMetrics(recorder)
}

// WithSpans enables trace spans around renders and their stages.
func WithSpans(spans observability.SpanManager) Option {
	return orchestrator.WithSpans(spans)
}

// WithThemeSelector passes a go-theme selector through to the orchestrator so
// theme/variant choices contribute partial aliases and template variables.
func WithThemeSelector(selector theme.ThemeSelector) Option {
	return orchestrator.WithThemeSelector(selector)
}

// WithTheme sets the theme and variant used when a request does not name its
// own.
func WithTheme(name, variant string) Option {
	return orchestrator.WithTheme(name, variant)
}

// WithThemeFallbacks forwards fallback partials used when the selected theme
// does not override them.
func WithThemeFallbacks(fallbacks map[string]string) Option {
	return orchestrator.WithThemeFallbacks(fallbacks)
}

// WithSanitizer overrides the policy applied to requests that ask for
// sanitized output.
func WithSanitizer(policy *bluemonday.Policy) Option {
	return orchestrator.WithSanitizer(policy)
}
