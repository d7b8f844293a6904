// Package view models the rendering context a partial executes in: the
// effective model, the case-insensitive view-data chain, the dotted field
// prefix, and the output sink. Contexts are derived per invocation and never
// mutate their parents.
package view

import (
	"io"
	"strings"
)

// Context captures the ambient state a template renders against. Values are
// read-only after construction; derivation goes through Child and Bound.
type Context struct {
	model        any
	data         *Data
	fieldPrefix  string
	templatePath string
	sink         io.Writer
	parent       *Context
}

// ContextOption configures a root context before construction.
type ContextOption func(*Context)

// WithModel seeds the context's model payload.
func WithModel(model any) ContextOption {
	return func(c *Context) {
		c.model = model
	}
}

// WithData seeds the context's view-data dictionary.
func WithData(values map[string]any) ContextOption {
	return func(c *Context) {
		for key, value := range values {
			c.data.Set(key, value)
		}
	}
}

// WithFieldPrefix seeds the dotted field prefix inherited by child contexts.
func WithFieldPrefix(prefix string) ContextOption {
	return func(c *Context) {
		c.fieldPrefix = strings.TrimSpace(prefix)
	}
}

// WithTemplatePath records the path of the template currently executing, the
// anchor for path-relative resolution.
func WithTemplatePath(path string) ContextOption {
	return func(c *Context) {
		c.templatePath = strings.TrimSpace(path)
	}
}

// WithSink sets the writer the context's output is destined for.
func WithSink(w io.Writer) ContextOption {
	return func(c *Context) {
		c.sink = w
	}
}

// NewContext builds a root context for a host request.
func NewContext(options ...ContextOption) *Context {
	ctx := &Context{data: NewData(nil)}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(ctx)
	}
	return ctx
}

// Model returns the effective model payload.
func (c *Context) Model() any {
	if c == nil {
		return nil
	}
	return c.model
}

// Data returns the view-data chain.
func (c *Context) Data() *Data {
	if c == nil {
		return nil
	}
	return c.data
}

// FieldPrefix returns the dotted field prefix.
func (c *Context) FieldPrefix() string {
	if c == nil {
		return ""
	}
	return c.fieldPrefix
}

// TemplatePath returns the path of the template this context belongs to.
func (c *Context) TemplatePath() string {
	if c == nil {
		return ""
	}
	return c.templatePath
}

// Sink returns the writer output is destined for, nil until bound.
func (c *Context) Sink() io.Writer {
	if c == nil {
		return nil
	}
	return c.sink
}

// Parent returns the context this one was derived from, nil for roots.
func (c *Context) Parent() *Context {
	if c == nil {
		return nil
	}
	return c.parent
}

// ChildSpec describes how a derived context differs from its parent.
type ChildSpec struct {
	// Expression supplies the child's model and field-name fragment. When nil
	// the child keeps the parent's model and prefix.
	Expression *Expression
	// Overrides is merged case-insensitively over the inherited view-data.
	Overrides map[string]any
	// TemplatePath is the resolved path of the template about to execute.
	// Empty inherits the parent's path.
	TemplatePath string
}

// Child derives the context a partial executes in. The parent is never
// mutated: overrides land on the child's own view-data node, the model is
// replaced only when spec.Expression is set, and the prefix is extended only
// when the expression names a field. The sink is left unbound; the renderer
// binds it to the output buffer.
func (c *Context) Child(spec ChildSpec) *Context {
	child := &Context{
		model:        c.Model(),
		data:         c.Data().Child(spec.Overrides),
		fieldPrefix:  c.FieldPrefix(),
		templatePath: c.TemplatePath(),
		parent:       c,
	}
	if expr := spec.Expression; expr != nil {
		child.model = expr.Value
		if name := strings.TrimSpace(expr.FieldName); name != "" {
			child.fieldPrefix = JoinFieldPrefix(c.FieldPrefix(), name)
		}
	}
	if path := strings.TrimSpace(spec.TemplatePath); path != "" {
		child.templatePath = path
	}
	return child
}

// Bound returns a copy of the context writing to w. The original is untouched.
func (c *Context) Bound(w io.Writer) *Context {
	if c == nil {
		return nil
	}
	dup := *c
	dup.sink = w
	return &dup
}

// TemplateVars flattens the context into the variable map handed to the
// template engine. View-data entries sit at the top level; the reserved keys
// "model" and "field_prefix" always reflect the context and shadow same-named
// data entries.
func (c *Context) TemplateVars() map[string]any {
	vars := c.Data().Flatten()
	vars["model"] = c.Model()
	vars["field_prefix"] = c.FieldPrefix()
	return vars
}
