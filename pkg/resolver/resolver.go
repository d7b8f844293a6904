// Package resolver locates templates for partial references. A reference is
// tried against the configured alias table, then relative to the template
// that issued it, then name-based across the configured locations. Every
// probed path is recorded so a miss can report exactly where the search
// looked.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/goliatone/go-partial/pkg/template"
)

// DefaultExtension is appended to reference names that do not carry it.
const DefaultExtension = ".tmpl"

// Outcome reports a resolution attempt. Template is nil on a miss; Searched
// lists every probed path in order either way.
type Outcome struct {
	Template template.Template
	Searched []string
}

// Found reports whether the resolution produced a template.
func (o Outcome) Found() bool {
	return o.Template != nil
}

// Resolver walks the search strategies against a template engine. It is
// read-only after construction and safe for concurrent use.
type Resolver struct {
	engine    template.Engine
	locations []string
	extension string
	aliases   map[string]string
}

// Option configures a Resolver before construction.
type Option func(*Resolver)

// WithLocations sets the directories searched by name, in priority order.
// Blank entries are dropped.
func WithLocations(locations ...string) Option {
	return func(r *Resolver) {
		for _, loc := range locations {
			loc = strings.TrimSpace(loc)
			if loc == "" {
				continue
			}
			r.locations = append(r.locations, loc)
		}
	}
}

// WithExtension overrides the default template extension.
func WithExtension(ext string) Option {
	return func(r *Resolver) {
		trimmed := strings.TrimSpace(ext)
		if trimmed == "" {
			return
		}
		if !strings.HasPrefix(trimmed, ".") {
			trimmed = "." + trimmed
		}
		r.extension = trimmed
	}
}

// WithAliases maps reference names to concrete template paths. Aliases are
// consulted before any path search; theme partial tables plug in here.
func WithAliases(aliases map[string]string) Option {
	return func(r *Resolver) {
		for name, target := range aliases {
			name = strings.TrimSpace(name)
			target = strings.TrimSpace(target)
			if name == "" || target == "" {
				continue
			}
			if r.aliases == nil {
				r.aliases = make(map[string]string)
			}
			r.aliases[name] = target
		}
	}
}

// WithAlias registers a single name to path mapping.
func WithAlias(name, target string) Option {
	return WithAliases(map[string]string{name: target})
}

// New builds a Resolver over engine.
func New(engine template.Engine, options ...Option) (*Resolver, error) {
	if engine == nil {
		return nil, errors.New("resolver: template engine is required")
	}
	r := &Resolver{
		engine:    engine,
		extension: DefaultExtension,
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(r)
	}
	return r, nil
}

// Locations returns the configured name-based search locations.
func (r *Resolver) Locations() []string {
	return append([]string(nil), r.locations...)
}

// Resolve locates name. fromPath anchors path-relative references and is the
// path of the template issuing the reference, empty at the request root.
// A miss returns a zero-Template Outcome and no error; errors are reserved
// for engine failures that are not simple misses.
func (r *Resolver) Resolve(ctx context.Context, name, fromPath string) (Outcome, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Outcome{}, errors.New("resolver: template name is required")
	}

	var searched []string

	if target, ok := r.aliases[name]; ok {
		tmpl, err := r.probe(ctx, r.withExtension(target), &searched)
		if err != nil {
			return Outcome{Searched: searched}, err
		}
		if tmpl != nil {
			return Outcome{Template: tmpl, Searched: searched}, nil
		}
	}

	if isPathReference(name) {
		candidate := r.withExtension(relativeTo(name, fromPath))
		tmpl, err := r.probe(ctx, candidate, &searched)
		if err != nil {
			return Outcome{Searched: searched}, err
		}
		if tmpl != nil {
			return Outcome{Template: tmpl, Searched: searched}, nil
		}
	}

	fileName := r.withExtension(name)
	for _, location := range r.locations {
		tmpl, err := r.probe(ctx, path.Join(location, fileName), &searched)
		if err != nil {
			return Outcome{Searched: searched}, err
		}
		if tmpl != nil {
			return Outcome{Template: tmpl, Searched: searched}, nil
		}
	}

	return Outcome{Searched: uniquePreserveOrder(searched)}, nil
}

func (r *Resolver) probe(ctx context.Context, candidate string, searched *[]string) (template.Template, error) {
	*searched = append(*searched, candidate)

	tmpl, err := r.engine.Open(ctx, candidate)
	if err == nil {
		return tmpl, nil
	}
	if errors.Is(err, template.ErrNotExist) {
		return nil, nil
	}
	return nil, fmt.Errorf("resolver: probe %q: %w", candidate, err)
}

func (r *Resolver) withExtension(name string) string {
	if strings.HasSuffix(name, r.extension) {
		return name
	}
	return name + r.extension
}

// isPathReference reports whether name addresses a template by path rather
// than by bare name. Bare names skip the path-relative stage entirely.
func isPathReference(name string) bool {
	return strings.Contains(name, "/")
}

// relativeTo resolves name against the directory of the template that
// referenced it. Rooted names and references without an anchor resolve from
// the search root.
func relativeTo(name, parent string) string {
	cleaned := path.Clean(name)
	if strings.HasPrefix(name, "/") {
		return strings.TrimPrefix(cleaned, "/")
	}
	if parent == "" {
		return cleaned
	}
	parentDir := path.Dir(parent)
	if parentDir == "." {
		return cleaned
	}
	return path.Clean(path.Join(parentDir, name))
}

func uniquePreserveOrder(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(values))
	result := make([]string, 0, len(values))
	for _, value := range values {
		if value == "" {
			continue
		}
		if _, exists := seen[value]; exists {
			continue
		}
		seen[value] = struct{}{}
		result = append(result, value)
	}
	return result
}
