// Package orchestrator sequences the resolve → derive context → buffered
// render pipeline behind a single entry point, converting resolution misses
// into diagnostic errors and leaving template failures exactly as the engine
// reported them.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	theme "github.com/goliatone/go-theme"
	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"

	"github.com/goliatone/go-partial/pkg/buffer"
	"github.com/goliatone/go-partial/pkg/observability"
	"github.com/goliatone/go-partial/pkg/render"
	"github.com/goliatone/go-partial/pkg/resolver"
	"github.com/goliatone/go-partial/pkg/template"
	"github.com/goliatone/go-partial/pkg/view"
)

// Option customises the orchestrator configuration.
type Option func(*Orchestrator)

// WithEngine injects the template engine partials are opened against. The
// orchestrator cannot render without one.
func WithEngine(engine template.Engine) Option {
	return func(o *Orchestrator) {
		o.engine = engine
	}
}

// WithLocations sets the directories searched when a reference is looked up
// by name, in priority order.
func WithLocations(locations ...string) Option {
	return func(o *Orchestrator) {
		o.locations = append(o.locations, locations...)
	}
}

// WithExtension overrides the default template extension.
func WithExtension(ext string) Option {
	return func(o *Orchestrator) {
		o.extension = ext
	}
}

// WithAliases maps reference names straight to template paths, consulted
// before any path search.
func WithAliases(aliases map[string]string) Option {
	return func(o *Orchestrator) {
		if len(aliases) == 0 {
			return
		}
		if o.aliases == nil {
			o.aliases = make(map[string]string, len(aliases))
		}
		for name, target := range aliases {
			o.aliases[name] = target
		}
	}
}

// WithRenderer injects a pre-built buffered renderer.
func WithRenderer(r *render.Renderer) Option {
	return func(o *Orchestrator) {
		o.renderer = r
	}
}

// WithScope supplies the buffer scope renders are served from when no
// renderer is injected.
func WithScope(scope *buffer.Scope) Option {
	return func(o *Orchestrator) {
		o.scope = scope
	}
}

// WithLogger enables structured logging. The orchestrator stays silent
// without one.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		o.logger = logger
	}
}

// WithMetrics enables metrics recording.
func WithMetrics(recorder observability.MetricsRecorder) Option {
	return func(o *Orchestrator) {
		o.metrics = recorder
	}
}

// WithSpans enables trace spans around the render and its stages.
func WithSpans(spans observability.SpanManager) Option {
	return func(o *Orchestrator) {
		o.spans = spans
	}
}

// Orchestrator coordinates one partial render end to end. It applies sensible
// defaults while remaining open to dependency injection; construct once and
// share across requests.
type Orchestrator struct {
	engine          template.Engine
	resolver        *resolver.Resolver
	renderer        *render.Renderer
	scope           *buffer.Scope
	locations       []string
	extension       string
	aliases         map[string]string
	logger          *slog.Logger
	metrics         observability.MetricsRecorder
	spans           observability.SpanManager
	sanitizer       *bluemonday.Policy
	themeSelector   theme.ThemeSelector
	themeName       string
	themeVariant    string
	themeFallbacks  map[string]string
	initialiseErr   error
	defaultsApplied bool
}

// New constructs an Orchestrator applying any provided options. Missing
// collaborators are initialised with the built-in implementations; only the
// template engine has no default.
func New(options ...Option) *Orchestrator {
	o := &Orchestrator{}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(o)
	}
	o.applyDefaults()
	return o
}

// Request describes one partial invocation.
type Request struct {
	// Name references the template to render: a bare name searched across the
	// configured locations, or a path resolved relative to the ambient
	// context's template.
	Name string

	// Model optionally rebinds the child context's model and extends the
	// field prefix. When nil the partial sees the ambient model unchanged.
	Model *view.Expression

	// Overrides is merged case-insensitively over the ambient view-data for
	// the duration of this render. The parent context is never mutated. The
	// key "partial" is reserved for the nested-render helper.
	Overrides map[string]any

	// Ambient is the caller's view context: current template path, base
	// model, base view-data, and field prefix. Required.
	Ambient *view.Context

	// Fallback optionally names a second reference tried when Name cannot be
	// resolved. When both miss, the returned NotFoundError lists every
	// location probed for either.
	Fallback string

	// Sanitize runs the rendered output through the configured sanitizer
	// policy. Meant for templates from untrusted sources.
	Sanitize bool

	// ThemeName and ThemeVariant select the theme for this render when a
	// theme selector is configured, defaulting to the orchestrator's theme.
	ThemeName    string
	ThemeVariant string
}

// Result is a completed partial render. Content composes into the enclosing
// output exactly as produced; the pipeline contributes no wrapper markup.
type Result struct {
	// Content is the rendered output.
	Content []byte

	// TemplatePath is the resolved template that produced the content.
	TemplatePath string

	// RenderID identifies this invocation in logs and traces.
	RenderID string

	// Duration is the wall time of the full pipeline.
	Duration time.Duration
}

// HTML returns the content as a string.
func (r Result) HTML() string {
	return string(r.Content)
}

// Render resolves, contextualises, and renders one partial. Invalid requests
// fail before any resolution with an ErrInvalidArgument-wrapped error;
// unresolvable references fail with a *NotFoundError naming every searched
// location; template failures are returned exactly as the engine produced
// them.
func (o *Orchestrator) Render(ctx context.Context, req Request) (Result, error) {
	if ctx == nil {
		return Result{}, errors.New("partial: context is required")
	}
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	if err := o.initialiseErr; err != nil {
		return Result{}, err
	}
	if !o.defaultsApplied {
		o.applyDefaults()
		if err := o.initialiseErr; err != nil {
			return Result{}, err
		}
	}

	if strings.TrimSpace(req.Name) == "" {
		return Result{}, fmt.Errorf("partial: name is required: %w", ErrInvalidArgument)
	}
	if req.Ambient == nil {
		return Result{}, fmt.Errorf("partial: ambient view context is required: %w", ErrInvalidArgument)
	}

	renderID := uuid.NewString()
	observability.LogRenderStart(o.logger, renderID, req.Name)
	started := time.Now()

	ctx, span := o.spans.StartRenderSpan(ctx, req.Name, renderID)

	result, err := o.renderPipeline(ctx, req)
	duration := time.Since(started)
	durationMs := float64(duration.Milliseconds())

	o.spans.EndSpanWithError(span, err)
	o.metrics.RecordRender(ctx, req.Name, duration, err)
	if err != nil {
		observability.LogRenderError(o.logger, renderID, req.Name, err, durationMs)
		return Result{}, err
	}

	o.metrics.RecordOutputSize(ctx, req.Name, int64(len(result.Content)))
	observability.LogRenderComplete(o.logger, renderID, req.Name, durationMs, len(result.Content))

	result.RenderID = renderID
	result.Duration = duration
	return result, nil
}

// Async carries the completion of a RenderAsync call.
type Async struct {
	Result Result
	Err    error
}

// RenderAsync issues Render on its own goroutine and signals completion on
// the returned channel. The channel receives exactly one value.
func (o *Orchestrator) RenderAsync(ctx context.Context, req Request) <-chan Async {
	done := make(chan Async, 1)
	go func() {
		defer close(done)
		result, err := o.Render(ctx, req)
		done <- Async{Result: result, Err: err}
	}()
	return done
}

// renderPipeline runs the resolve → child context → buffered render sequence.
// The template handle opened by resolution is owned by the renderer from the
// moment it is handed over.
func (o *Orchestrator) renderPipeline(ctx context.Context, req Request) (Result, error) {
	themeCfg, err := o.selectTheme(req)
	if err != nil {
		return Result{}, err
	}

	outcome, err := o.resolve(ctx, req, themeCfg)
	if err != nil {
		return Result{}, err
	}
	tmpl := outcome.Template

	child := o.childContext(ctx, req, tmpl.Path(), themeCfg)

	renderCtx, stageSpan := o.spans.StartStageSpan(ctx, "render")
	buf, err := o.renderer.Render(renderCtx, tmpl, child)
	o.spans.EndSpanWithError(stageSpan, err)
	if err != nil {
		return Result{}, err
	}

	content := append([]byte(nil), buf.Bytes()...)
	buf.Release()

	if req.Sanitize {
		content = o.sanitizeOutput(content)
	}

	return Result{Content: content, TemplatePath: tmpl.Path()}, nil
}

// resolve walks the primary reference and, on a miss, the fallback. A miss on
// every stage produces a *NotFoundError carrying the concatenated searched
// list.
func (o *Orchestrator) resolve(ctx context.Context, req Request, themeCfg *theme.RendererConfig) (outcome resolver.Outcome, err error) {
	res, err := o.resolverFor(themeCfg)
	if err != nil {
		return resolver.Outcome{}, err
	}

	ctx, stageSpan := o.spans.StartStageSpan(ctx, "resolve")
	defer func() {
		o.spans.EndSpanWithError(stageSpan, err)
	}()

	fromPath := req.Ambient.TemplatePath()

	outcome, err = res.Resolve(ctx, req.Name, fromPath)
	if err != nil {
		return outcome, err
	}
	o.metrics.RecordResolve(ctx, req.Name, outcome.Found())
	if outcome.Found() {
		observability.LogResolve(o.logger, req.Name, outcome.Template.Path(), len(outcome.Searched))
		return outcome, nil
	}

	searched := outcome.Searched
	if fallback := strings.TrimSpace(req.Fallback); fallback != "" {
		var fbOutcome resolver.Outcome
		fbOutcome, err = res.Resolve(ctx, fallback, fromPath)
		if err != nil {
			return fbOutcome, err
		}
		o.metrics.RecordResolve(ctx, fallback, fbOutcome.Found())
		if fbOutcome.Found() {
			observability.LogResolve(o.logger, fallback, fbOutcome.Template.Path(), len(fbOutcome.Searched))
			return fbOutcome, nil
		}
		searched = append(searched, fbOutcome.Searched...)
	}

	observability.LogResolveMiss(o.logger, req.Name, searched)
	err = &NotFoundError{Name: req.Name, Searched: searched}
	return resolver.Outcome{Searched: searched}, err
}

// resolverFor returns the shared resolver, or a request-scoped one carrying
// the theme's partial table when a theme is active.
func (o *Orchestrator) resolverFor(themeCfg *theme.RendererConfig) (*resolver.Resolver, error) {
	if themeCfg == nil || len(themeCfg.Partials) == 0 {
		return o.resolver, nil
	}
	res, err := resolver.New(o.engine, o.resolverOptions(themeCfg.Partials)...)
	if err != nil {
		return nil, fmt.Errorf("partial: build resolver: %w", err)
	}
	return res, nil
}

// childContext derives the context the partial executes in and installs the
// nested-render helper so templates can invoke child partials.
func (o *Orchestrator) childContext(ctx context.Context, req Request, templatePath string, themeCfg *theme.RendererConfig) *view.Context {
	overrides := make(map[string]any, len(req.Overrides)+2)
	if vars := themeVars(themeCfg); vars != nil {
		overrides["theme"] = vars
	}
	for key, value := range req.Overrides {
		overrides[key] = value
	}

	nested := &nestedCall{
		orch:         o,
		ctx:          ctx,
		themeName:    req.ThemeName,
		themeVariant: req.ThemeVariant,
	}
	overrides["partial"] = nested.render

	child := req.Ambient.Child(view.ChildSpec{
		Expression:   req.Model,
		Overrides:    overrides,
		TemplatePath: templatePath,
	})
	nested.ambient = child
	return child
}

func (o *Orchestrator) resolverOptions(extra map[string]string) []resolver.Option {
	opts := []resolver.Option{
		resolver.WithLocations(o.locations...),
		resolver.WithExtension(o.extension),
	}
	if len(o.aliases) > 0 {
		opts = append(opts, resolver.WithAliases(o.aliases))
	}
	if len(extra) > 0 {
		opts = append(opts, resolver.WithAliases(extra))
	}
	return opts
}

func (o *Orchestrator) applyDefaults() {
	if o.defaultsApplied {
		return
	}

	if o.renderer == nil {
		if o.scope != nil {
			o.renderer = render.New(render.WithScope(o.scope))
		} else {
			o.renderer = render.New()
		}
	}
	if o.metrics == nil {
		o.metrics = observability.NoopMetrics{}
	}
	if o.spans == nil {
		o.spans = observability.NoopSpanManager{}
	}
	if strings.TrimSpace(o.extension) == "" {
		o.extension = resolver.DefaultExtension
	}

	if o.engine == nil {
		o.initialiseErr = errors.New("partial: template engine is required")
	} else if o.resolver == nil {
		res, err := resolver.New(o.engine, o.resolverOptions(nil)...)
		if err != nil {
			o.initialiseErr = fmt.Errorf("partial: build resolver: %w", err)
		} else {
			o.resolver = res
		}
	}

	o.defaultsApplied = true
}
