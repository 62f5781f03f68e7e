package engine

import (
	"errors"
	"fmt"
	"strings"
)

// Handler is implemented by every handler kind the dispatcher can invoke:
// plain functions, param-bound functions, template routes, and the
// specialized static and proxy handlers. Serve returns the response for the
// request or an error; errors are converted to 500 responses at the
// dispatcher boundary.
type Handler interface {
	Serve(*Request) (*Response, error)
}

// HandlerFunc adapts a plain function to the Handler interface. The function
// receives only the request; path parameters are available through
// Request.Param.
type HandlerFunc func(*Request) (*Response, error)

// Serve implements Handler.
func (f HandlerFunc) Serve(r *Request) (*Response, error) {
	return f(r)
}

// ParamHandlerFunc is a handler that receives path parameter values as
// positional arguments, bound by the name list declared at registration.
type ParamHandlerFunc func(*Request, ...string) (*Response, error)

// paramHandler binds declared parameter names to path parameter values at
// dispatch time. A declared name with no matching path parameter is a
// dispatch error naming the parameter.
type paramHandler struct {
	names []string
	fn    ParamHandlerFunc
}

func (h *paramHandler) Serve(r *Request) (*Response, error) {
	args := make([]string, len(h.names))
	for i, name := range h.names {
		val, ok := r.Param(name)
		if !ok {
			return nil, fmt.Errorf("engine: handler parameter %q has no matching path parameter", name)
		}
		args[i] = val
	}
	return h.fn(r, args...)
}

// Route is a compiled binding from a path template and method set to a
// handler. Routes are created at registration time and immutable thereafter.
type Route struct {
	template *pathTemplate
	methods  []string
	handler  Handler
}

// newRoute compiles the template and normalizes the method set. All
// validation happens here so registration fails fast.
func newRoute(tpl string, methods []string, handler Handler) (*Route, error) {
	if handler == nil {
		return nil, errors.New("engine: route handler must not be nil")
	}

	normalized := normalizeMethods(methods)
	if len(normalized) == 0 {
		return nil, fmt.Errorf("engine: route %q must allow at least one method", tpl)
	}

	compiled, err := compileTemplate(tpl)
	if err != nil {
		return nil, err
	}

	return &Route{
		template: compiled,
		methods:  normalized,
		handler:  handler,
	}, nil
}

// Template returns the original path template string.
func (r *Route) Template() string {
	return r.template.template
}

// Methods returns the allowed methods, uppercased and deduplicated.
func (r *Route) Methods() []string {
	out := make([]string, len(r.methods))
	copy(out, r.methods)
	return out
}

// ParamNames returns the placeholder names of the path template in
// left-to-right order.
func (r *Route) ParamNames() []string {
	out := make([]string, len(r.template.params))
	copy(out, r.template.params)
	return out
}

// allowsMethod reports whether the route's method set contains method.
// The method must already be uppercased.
func (r *Route) allowsMethod(method string) bool {
	for _, m := range r.methods {
		if m == method {
			return true
		}
	}
	return false
}

// matchPath tests a concrete path (without query string) and returns the
// extracted parameter mapping.
func (r *Route) matchPath(path string) (map[string]string, bool) {
	vals, ok := r.template.match(path)
	if !ok {
		return nil, false
	}

	params := make(map[string]string, len(vals))
	for i, name := range r.template.params {
		params[name] = vals[i]
	}
	return params, true
}

// normalizeMethods uppercases, trims, and deduplicates a method set,
// preserving first-seen order.
func normalizeMethods(methods []string) []string {
	out := make([]string, 0, len(methods))
	for _, m := range methods {
		m = strings.ToUpper(strings.TrimSpace(m))
		if m == "" || containsString(out, m) {
			continue
		}
		out = append(out, m)
	}
	return out
}

// containsString reports whether the slice contains the value.
func containsString(set []string, value string) bool {
	for _, s := range set {
		if s == value {
			return true
		}
	}
	return false
}
