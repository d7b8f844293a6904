// Package pongo2 adapts a pongo2 template set to the engine seam used by the
// resolver and renderer. Templates are compiled once and cached; handles are
// cheap views over the cache.
package pongo2

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	pongo2lib "github.com/flosch/pongo2/v6"
	gotemplatepkg "github.com/goliatone/go-template"

	"github.com/goliatone/go-partial/pkg/template"
)

// Option configures the adapter before construction.
type Option func(*config)

type config struct {
	baseDir    string
	templates  fs.FS
	templateFn map[string]any
	globalData map[string]any
}

// WithBaseDir loads templates from a directory on disk.
func WithBaseDir(dir string) Option {
	return func(cfg *config) {
		cfg.baseDir = strings.TrimSpace(dir)
	}
}

// WithFS loads templates from an fs.FS, which may be an embed.FS, an
// os.DirFS, or a database-backed store.
func WithFS(files fs.FS) Option {
	return func(cfg *config) {
		cfg.templates = files
	}
}

// WithTemplateFunc registers helper functions or filters when the engine
// loads. Callables become globals callable from template expressions.
func WithTemplateFunc(funcs map[string]any) Option {
	return func(cfg *config) {
		if len(funcs) == 0 {
			return
		}
		if cfg.templateFn == nil {
			cfg.templateFn = make(map[string]any, len(funcs))
		}
		for name, fn := range funcs {
			cfg.templateFn[strings.TrimSpace(name)] = fn
		}
	}
}

// WithGlobalData seeds global context values available to every template.
func WithGlobalData(data map[string]any) Option {
	return func(cfg *config) {
		if len(data) == 0 {
			return
		}
		if cfg.globalData == nil {
			cfg.globalData = make(map[string]any, len(data))
		}
		for key, value := range data {
			cfg.globalData[strings.TrimSpace(key)] = value
		}
	}
}

// WithGoTemplateOptions exists for backward compatibility with callers wired
// against the go-template engine contract but is currently a no-op.
func WithGoTemplateOptions(_ ...gotemplatepkg.Option) Option {
	return func(*config) {}
}

// Engine compiles and caches pongo2 templates and hands out handles by exact
// path. It satisfies the template.Engine seam.
type Engine struct {
	mu sync.RWMutex

	set       *pongo2lib.TemplateSet
	compiled  map[string]*pongo2lib.Template
	baseDir   string
	templates fs.FS
}

var _ template.Engine = (*Engine)(nil)

// New constructs an Engine using the provided configuration options.
func New(options ...Option) (*Engine, error) {
	cfg := &config{}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(cfg)
	}

	if cfg.baseDir == "" && cfg.templates == nil {
		return nil, errors.New("pongo2: need to provide either base dir or fs.FS")
	}

	var loaders []pongo2lib.TemplateLoader
	if cfg.baseDir != "" {
		loader, err := pongo2lib.NewLocalFileSystemLoader(cfg.baseDir)
		if err != nil {
			return nil, fmt.Errorf("pongo2: create local loader: %w", err)
		}
		loaders = append(loaders, loader)
	}
	if cfg.templates != nil {
		loaders = append(loaders, pongo2lib.NewFSLoader(cfg.templates))
	}

	engine := &Engine{
		set:       pongo2lib.NewSet("partial", loaders...),
		compiled:  make(map[string]*pongo2lib.Template),
		baseDir:   cfg.baseDir,
		templates: cfg.templates,
	}
	registerDefaultFilters()

	if err := engine.GlobalContext(cfg.globalData); err != nil {
		return nil, fmt.Errorf("pongo2: apply global data: %w", err)
	}
	for name, fn := range cfg.templateFn {
		if err := engine.registerTemplateFunc(name, fn); err != nil {
			return nil, fmt.Errorf("pongo2: register template func %q: %w", name, err)
		}
	}

	return engine, nil
}

// Open returns a handle for the exact path. Missing sources report
// template.ErrNotExist; compile failures surface as themselves so callers do
// not fall through to other locations past a broken template.
func (e *Engine) Open(ctx context.Context, path string) (template.Template, error) {
	if e == nil || e.set == nil {
		return nil, errors.New("pongo2: engine is nil")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("pongo2: open %q: %w", path, template.ErrNotExist)
	}

	if !e.exists(path) {
		return nil, fmt.Errorf("pongo2: open %q: %w", path, template.ErrNotExist)
	}

	tmpl, err := e.getTemplate(path)
	if err != nil {
		return nil, err
	}
	return &handle{engine: e, path: path, tmpl: tmpl}, nil
}

func (e *Engine) exists(path string) bool {
	if e.baseDir != "" {
		if info, err := os.Stat(filepath.Join(e.baseDir, filepath.FromSlash(path))); err == nil && !info.IsDir() {
			return true
		}
	}
	if e.templates != nil {
		if info, err := fs.Stat(e.templates, path); err == nil && !info.IsDir() {
			return true
		}
	}
	return false
}

// RegisterFilter registers a template filter on the wrapped engine.
func (e *Engine) RegisterFilter(name string, fn func(input any, param any) (any, error)) error {
	if strings.TrimSpace(name) == "" || fn == nil {
		return errors.New("pongo2: filter name and function required")
	}

	filter := func(in *pongo2lib.Value, param *pongo2lib.Value) (*pongo2lib.Value, *pongo2lib.Error) {
		var paramVal any
		if param != nil {
			paramVal = param.Interface()
		}
		result, err := fn(in.Interface(), paramVal)
		if err != nil {
			return nil, &pongo2lib.Error{Sender: "custom_filter", OrigError: err}
		}
		return pongo2lib.AsValue(result), nil
	}

	if pongo2lib.FilterExists(name) {
		return fmt.Errorf("pongo2: filter %q already exists", name)
	}
	return pongo2lib.RegisterFilter(name, filter)
}

// GlobalContext seeds global data on the wrapped engine.
func (e *Engine) GlobalContext(data any) error {
	if e == nil || e.set == nil {
		return errors.New("pongo2: engine is nil")
	}
	if data == nil {
		return nil
	}

	globalCtx, err := convertToContext(data)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.set.Globals == nil {
		e.set.Globals = make(pongo2lib.Context)
	}
	e.set.Globals.Update(globalCtx)
	return nil
}

func (e *Engine) registerTemplateFunc(name string, fn any) error {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" || fn == nil {
		return nil
	}

	if filter, ok := fn.(pongo2lib.FilterFunction); ok {
		if pongo2lib.FilterExists(trimmed) {
			return nil
		}
		return pongo2lib.RegisterFilter(trimmed, filter)
	}

	if !isCallable(fn) {
		return nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.set.Globals == nil {
		e.set.Globals = make(pongo2lib.Context)
	}
	e.set.Globals[trimmed] = fn
	return nil
}

func (e *Engine) getTemplate(path string) (*pongo2lib.Template, error) {
	e.mu.RLock()
	if tmpl, ok := e.compiled[path]; ok {
		e.mu.RUnlock()
		return tmpl, nil
	}
	e.mu.RUnlock()

	e.mu.Lock()
	defer e.mu.Unlock()

	if tmpl, ok := e.compiled[path]; ok {
		return tmpl, nil
	}

	tmpl, err := e.set.FromFile(path)
	if err != nil {
		return nil, fmt.Errorf("pongo2: load template %q: %w", path, err)
	}

	e.compiled[path] = tmpl
	return tmpl, nil
}

// handle is a released-once view over a compiled template.
type handle struct {
	engine *Engine
	path   string

	mu       sync.Mutex
	released bool
	tmpl     *pongo2lib.Template
}

func (h *handle) Path() string {
	return h.path
}

// Render executes the template into w. The engine's own error is returned
// untouched so callers can inspect the original failure.
func (h *handle) Render(ctx context.Context, w io.Writer, vars map[string]any) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	h.mu.Lock()
	tmpl := h.tmpl
	released := h.released
	h.mu.Unlock()
	if released || tmpl == nil {
		return fmt.Errorf("pongo2: render %q: handle released", h.path)
	}

	viewContext, err := convertToContext(vars)
	if err != nil {
		return fmt.Errorf("pongo2: convert vars: %w", err)
	}

	h.engine.mu.RLock()
	defer h.engine.mu.RUnlock()
	return tmpl.ExecuteWriterUnbuffered(viewContext, w)
}

// Release drops the handle's view. A second call is a no-op.
func (h *handle) Release() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.released = true
	h.tmpl = nil
	return nil
}
