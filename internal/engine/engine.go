// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package engine wraps text/template as the rendering service used by the
// catalog and the render orchestrator. Templates are registered once, may
// include partials by name, and are executed against plain map contexts.
package engine

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"text/template"
)

// ErrUnknownTemplate is returned when an id was never registered.
var ErrUnknownTemplate = errors.New("unknown template")

// Error attributes a parse or execution failure to the template that caused it.
type Error struct {
	// Template is the template id, or the expression text for name-expressions.
	Template string

	// Op is the phase that failed: parse, validate or render.
	Op string

	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("template %s: %s: %v", e.Template, e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Engine holds the registered templates. It is not safe for concurrent
// registration; rendering after registration is read-only apart from the
// name-expression cache.
type Engine struct {
	log       *slog.Logger
	funcs     template.FuncMap
	partials  *template.Template
	templates map[string]*template.Template
	exprs     map[string]*template.Template
}

// New creates an engine with the standard filter set.
func New(log *slog.Logger) *Engine {
	funcs := Funcs()
	return &Engine{
		log:       log,
		funcs:     funcs,
		partials:  template.New("").Funcs(funcs).Option("missingkey=error"),
		templates: make(map[string]*template.Template),
		exprs:     make(map[string]*template.Template),
	}
}

// RegisterPartial adds a fragment that full templates can include with
// {{ template "<id>" . }}. Partials must be registered before the templates
// that include them.
func (e *Engine) RegisterPartial(id, src string) error {
	if _, err := e.partials.New(id).Parse(src); err != nil {
		return &Error{Template: id, Op: "parse", Err: err}
	}
	e.log.Debug("registered partial", "template", id)
	return nil
}

// Register parses a full template body. Each template gets its own copy of
// the partial set so define/block overrides stay local to it.
func (e *Engine) Register(id, body string) error {
	set, err := e.partials.Clone()
	if err != nil {
		return &Error{Template: id, Op: "parse", Err: err}
	}
	t, err := set.New(id).Option("missingkey=error").Parse(body)
	if err != nil {
		return &Error{Template: id, Op: "parse", Err: err}
	}
	e.templates[id] = t
	e.log.Debug("registered template", "template", id)
	return nil
}

// Has reports whether id names a registered full template.
func (e *Engine) Has(id string) bool {
	_, ok := e.templates[id]
	return ok
}

// Validate executes the template against ctx and discards the output. It
// surfaces unknown keys and runtime errors without producing anything.
func (e *Engine) Validate(id string, ctx map[string]any) error {
	t, ok := e.templates[id]
	if !ok {
		return &Error{Template: id, Op: "validate", Err: ErrUnknownTemplate}
	}
	if err := t.Execute(io.Discard, ctx); err != nil {
		return &Error{Template: id, Op: "validate", Err: err}
	}
	return nil
}

// Render executes the template against ctx.
func (e *Engine) Render(id string, ctx map[string]any) (string, error) {
	t, ok := e.templates[id]
	if !ok {
		return "", &Error{Template: id, Op: "render", Err: ErrUnknownTemplate}
	}
	var b strings.Builder
	if err := t.Execute(&b, ctx); err != nil {
		return "", &Error{Template: id, Op: "render", Err: err}
	}
	return b.String(), nil
}

// RenderString renders a short inline expression such as a name-expression.
// Parsed expressions are cached by their text.
func (e *Engine) RenderString(expr string, ctx map[string]any) (string, error) {
	t, ok := e.exprs[expr]
	if !ok {
		var err error
		t, err = template.New("expr").Funcs(e.funcs).Option("missingkey=error").Parse(expr)
		if err != nil {
			return "", &Error{Template: expr, Op: "parse", Err: err}
		}
		e.exprs[expr] = t
	}
	var b strings.Builder
	if err := t.Execute(&b, ctx); err != nil {
		return "", &Error{Template: expr, Op: "render", Err: err}
	}
	return b.String(), nil
}

// CheckString parses expr without executing it.
func (e *Engine) CheckString(expr string) error {
	if _, err := template.New("expr").Funcs(e.funcs).Parse(expr); err != nil {
		return &Error{Template: expr, Op: "parse", Err: err}
	}
	return nil
}
