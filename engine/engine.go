package engine

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// ErrMethodNotAllowed is returned by Match when a route's path matched the
// request but its method set did not contain the request method. Triggers a
// 405 Method Not Allowed response per RFC 9110 Section 15.5.6.
var ErrMethodNotAllowed = errors.New("engine: method is not allowed")

// ErrNotFound is returned by Match when no route's path matched the request
// at all. Triggers a 404 Not Found response per RFC 9110 Section 15.5.5.
var ErrNotFound = errors.New("engine: no matching route was found")

// RouteMatch is the result of a successful route lookup.
type RouteMatch struct {
	// Route is the matched route.
	Route *Route

	// Params are the path parameters extracted from the matched template.
	Params map[string]string
}

// Engine is the dispatch orchestration point. It owns the route table and
// the middleware pipeline for its lifetime. Both are append-only during the
// single-threaded setup phase and read-only once requests are being served,
// so no synchronization is needed on the request path.
type Engine struct {
	// NotFound is called when no route matches a request. If nil, a
	// plain-text 404 response is produced.
	NotFound HandlerFunc

	// MethodNotAllowed is called when a route matches the path but not
	// the method. If nil, a plain-text 405 response is produced.
	MethodNotAllowed HandlerFunc

	routes      []*Route
	middlewares []Middleware
	observers   []DispatchObserver
	renderer    TemplateRenderer
}

// DispatchObserver is called after every dispatch with the request, the
// final response (including 404/405/500 outcomes), and the elapsed time.
// Observers see traffic but cannot alter it; telemetry and accounting hang
// off this hook.
type DispatchObserver func(req *Request, resp *Response, elapsed time.Duration)

// New returns an empty engine.
func New() *Engine {
	return &Engine{}
}

// Handle appends a route binding the path template and method set to the
// given handler. Registration order determines match precedence: the first
// registered route whose template and method set accept a request wins,
// regardless of specificity. A malformed template, empty method set, or nil
// handler fails immediately.
func (e *Engine) Handle(tpl string, methods []string, handler Handler) error {
	route, err := newRoute(tpl, methods, handler)
	if err != nil {
		return err
	}
	e.routes = append(e.routes, route)
	return nil
}

// HandleFunc registers a plain function handler. See Handle.
func (e *Engine) HandleFunc(tpl string, methods []string, fn HandlerFunc) error {
	if fn == nil {
		return errors.New("engine: route handler must not be nil")
	}
	return e.Handle(tpl, methods, fn)
}

// HandleParams registers a handler together with the ordered list of path
// parameter names it expects. At dispatch time each declared name is bound
// to the corresponding path parameter and passed positionally; a declared
// name missing from the matched route's parameters is a dispatch error
// mapped to a 500 response naming the parameter.
func (e *Engine) HandleParams(tpl string, methods []string, names []string, fn ParamHandlerFunc) error {
	if fn == nil {
		return errors.New("engine: route handler must not be nil")
	}
	for _, name := range names {
		if name == "" {
			return fmt.Errorf("engine: empty parameter name declared for route %q", tpl)
		}
	}
	return e.Handle(tpl, methods, &paramHandler{names: names, fn: fn})
}

// Use appends interceptors to the middleware pipeline. Interceptors execute
// strictly in registration order before route matching.
func (e *Engine) Use(middlewares ...Middleware) {
	e.middlewares = append(e.middlewares, middlewares...)
}

// Observe appends dispatch observers, invoked in registration order after
// each dispatch completes.
func (e *Engine) Observe(observers ...DispatchObserver) {
	e.observers = append(e.observers, observers...)
}

// Routes returns the registered routes in registration order.
func (e *Engine) Routes() []*Route {
	out := make([]*Route, len(e.routes))
	copy(out, e.routes)
	return out
}

// Match finds the first route, in registration order, whose method set
// contains the request method and whose template accepts the path. The path
// is matched with any query string stripped. Match distinguishes "a path
// matched but no method did" (ErrMethodNotAllowed) from "no path matched"
// (ErrNotFound).
func (e *Engine) Match(method, path string) (*RouteMatch, error) {
	method = strings.ToUpper(method)
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}

	var methodMismatch bool
	for _, route := range e.routes {
		params, ok := route.matchPath(path)
		if !ok {
			continue
		}
		if !route.allowsMethod(method) {
			methodMismatch = true
			continue
		}
		return &RouteMatch{Route: route, Params: params}, nil
	}

	if methodMismatch {
		return nil, ErrMethodNotAllowed
	}
	return nil, ErrNotFound
}

// Dispatch runs the middleware pipeline, matches a route, invokes its
// handler, and returns the response. It is a total function: any failure,
// including a panic in an interceptor or handler, is converted into a
// 500-class response rather than propagated, so a single bad request can
// never take the process down.
func (e *Engine) Dispatch(req *Request) (resp *Response) {
	if len(e.observers) > 0 {
		start := time.Now()
		// Runs after the recovery below, so observers see the final
		// response even when the handler panicked. An observer panic
		// must not take the request down either.
		defer func() {
			elapsed := time.Since(start)
			defer func() { _ = recover() }()
			for _, obs := range e.observers {
				obs(req, resp, elapsed)
			}
		}()
	}

	defer func() {
		if rec := recover(); rec != nil {
			resp = failureResponse(fmt.Sprintf("%v", rec))
		}
	}()

	for _, mw := range e.middlewares {
		early, err := mw(req)
		if err != nil {
			return failureResponse(err.Error())
		}
		if early != nil {
			return early
		}
	}

	match, err := e.Match(req.Method(), req.Path())
	switch {
	case errors.Is(err, ErrMethodNotAllowed):
		return e.respondMethodNotAllowed(req)
	case err != nil:
		return e.respondNotFound(req)
	}

	req.SetPathParams(match.Params)

	out, err := match.Route.handler.Serve(req)
	if err != nil {
		return failureResponse(err.Error())
	}
	if out == nil {
		return failureResponse(fmt.Sprintf("handler for route %q returned no response", match.Route.Template()))
	}
	return out
}

func (e *Engine) respondNotFound(req *Request) *Response {
	if e.NotFound != nil {
		return invokeFallback(e.NotFound, req)
	}
	return NewResponseStatus("Not Found", http.StatusNotFound)
}

func (e *Engine) respondMethodNotAllowed(req *Request) *Response {
	if e.MethodNotAllowed != nil {
		return invokeFallback(e.MethodNotAllowed, req)
	}
	return NewResponseStatus("Method Not Allowed", http.StatusMethodNotAllowed)
}

// invokeFallback runs a custom 404/405 handler, holding it to the same
// failure contract as a route handler.
func invokeFallback(fn HandlerFunc, req *Request) *Response {
	resp, err := fn(req)
	if err != nil {
		return failureResponse(err.Error())
	}
	if resp == nil {
		return failureResponse("fallback handler returned no response")
	}
	return resp
}

// failureResponse maps an internal failure to the diagnostic 500 response
// returned to the client.
func failureResponse(msg string) *Response {
	return NewResponseStatus("Internal Server Error: "+msg, http.StatusInternalServerError)
}
