package engine

import (
	"errors"
	"fmt"
)

// ErrNoRenderer is returned when a template route is registered on an engine
// that has no renderer configured.
var ErrNoRenderer = errors.New("engine: no template renderer configured")

// TemplateRenderer renders a named template with a key-value context.
// Rendering semantics are entirely up to the implementation; the engine
// treats it as a black box.
type TemplateRenderer interface {
	Render(name string, context map[string]any) ([]byte, error)
}

// TemplateContextFunc builds the render context for a template route from
// the current request. A nil function renders with an empty context.
type TemplateContextFunc func(*Request) (map[string]any, error)

// templateHandler is the template handler kind: it builds a context from the
// request and renders through the engine's renderer as text/html.
type templateHandler struct {
	engine  *Engine
	name    string
	context TemplateContextFunc
}

func (h *templateHandler) Serve(req *Request) (*Response, error) {
	context := map[string]any{}
	if h.context != nil {
		built, err := h.context(req)
		if err != nil {
			return nil, fmt.Errorf("engine: build context for template %q: %w", h.name, err)
		}
		if built != nil {
			context = built
		}
	}

	body, err := h.engine.renderer.Render(h.name, context)
	if err != nil {
		return nil, fmt.Errorf("engine: render template %q: %w", h.name, err)
	}

	resp := NewResponse(body)
	resp.SetContentType("text/html; charset=utf-8")
	return resp, nil
}

// SetRenderer sets the engine's template renderer. It must be called before
// any template route is registered.
func (e *Engine) SetRenderer(r TemplateRenderer) {
	e.renderer = r
}

// HandleTemplate registers a route that renders the named template through
// the engine's renderer. The context function receives the request and
// returns the render context. Registering a template route without a
// renderer configured is a setup error.
func (e *Engine) HandleTemplate(tpl string, methods []string, name string, context TemplateContextFunc) error {
	if e.renderer == nil {
		return ErrNoRenderer
	}
	return e.Handle(tpl, methods, &templateHandler{
		engine:  e,
		name:    name,
		context: context,
	})
}
