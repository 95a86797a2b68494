// Package formflow ties the form engine together: an Engine pairs one form's
// descriptors with a renderer registry and session defaults, so admin screens
// can declare fields once and get validation, rendering, and submit
// lifecycle from a single handle.
package formflow

import (
	"context"
	"errors"
	"fmt"

	"github.com/goliatone/go-formflow/pkg/field"
	"github.com/goliatone/go-formflow/pkg/formdef"
	"github.com/goliatone/go-formflow/pkg/openapi"
	"github.com/goliatone/go-formflow/pkg/render"
	"github.com/goliatone/go-formflow/pkg/renderers/htmlform"
	"github.com/goliatone/go-formflow/pkg/session"
)

// Aliases exported via the root package for convenience.
type (
	// Descriptor declares one form field.
	Descriptor = field.Descriptor
	// Kind identifies a field's input type.
	Kind = field.Kind
	// Form is the renderer-facing description of one form.
	Form = render.Form
	// RenderOptions carries per-request renderer overrides.
	RenderOptions = render.RenderOptions
	// Session is a live form instance.
	Session = session.Session
	// Snapshot is a copy of a session's renderable state.
	Snapshot = session.Snapshot
)

// Engine binds a form to its renderers and session defaults.
type Engine struct {
	form       render.Form
	renderers  *render.Registry
	sessionFns []session.OptionFn
	err        error
}

// EngineOption configures an engine during construction.
type EngineOption func(*Engine)

// WithRenderer registers an additional renderer on the engine's registry.
func WithRenderer(renderer render.Renderer) EngineOption {
	return func(e *Engine) {
		if renderer == nil {
			return
		}
		if err := e.renderers.Register(renderer); err != nil && e.err == nil {
			e.err = err
		}
	}
}

// WithSessionDefaults appends session options every NewSession call starts
// from; per-call options are applied after and win.
func WithSessionDefaults(fns ...session.OptionFn) EngineOption {
	return func(e *Engine) {
		e.sessionFns = append(e.sessionFns, fns...)
	}
}

// New builds an engine over a form. The field set is validated up front and
// an HTML renderer is registered by default.
func New(form render.Form, options ...EngineOption) (*Engine, error) {
	if len(form.Fields) == 0 {
		return nil, errors.New("formflow: form has no fields")
	}
	if err := field.ValidateSet(form.Fields); err != nil {
		return nil, err
	}

	html, err := htmlform.New()
	if err != nil {
		return nil, fmt.Errorf("formflow: build html renderer: %w", err)
	}

	e := &Engine{
		form:      form,
		renderers: render.NewRegistry(),
	}
	e.renderers.MustRegister(html)

	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(e)
	}
	if e.err != nil {
		return nil, e.err
	}
	return e, nil
}

// FromDefinition builds an engine from a loaded form definition document.
func FromDefinition(def formdef.Definition, options ...EngineOption) (*Engine, error) {
	return New(render.Form{
		Name:   def.Name,
		Title:  def.Title,
		Entity: def.Entity,
		Fields: def.Fields,
	}, options...)
}

// FromOpenAPI derives the field set from an OpenAPI operation's request body
// and builds an engine around it.
func FromOpenAPI(ctx context.Context, data []byte, operationID string, options ...EngineOption) (*Engine, error) {
	fields, err := openapi.Descriptors(ctx, data, operationID)
	if err != nil {
		return nil, err
	}
	return New(render.Form{Name: operationID, Fields: fields}, options...)
}

// Form returns the engine's form description.
func (e *Engine) Form() render.Form {
	return e.form
}

// Renderers exposes the renderer registry for additional registrations.
func (e *Engine) Renderers() *render.Registry {
	return e.renderers
}

// NewSession starts a live session over the engine's fields. Engine-level
// session defaults apply first, then the per-call options.
func (e *Engine) NewSession(fns ...session.OptionFn) (*session.Session, error) {
	merged := make([]session.OptionFn, 0, len(e.sessionFns)+len(fns))
	merged = append(merged, e.sessionFns...)
	merged = append(merged, fns...)
	return session.New(e.form.Fields, merged...)
}

// Render produces the form through a named renderer. An empty name selects
// the registry default, the built-in HTML renderer unless reconfigured.
func (e *Engine) Render(ctx context.Context, rendererName string, opts render.RenderOptions) ([]byte, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	renderer, err := e.renderers.Resolve(rendererName)
	if err != nil {
		return nil, err
	}
	return renderer.Render(ctx, e.form, opts)
}

// RenderHTML is the simplest entry point for callers that just want markup
// for a field list.
func RenderHTML(ctx context.Context, form render.Form, opts render.RenderOptions) ([]byte, error) {
	e, err := New(form)
	if err != nil {
		return nil, err
	}
	return e.Render(ctx, "", opts)
}
