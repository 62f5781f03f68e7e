// Package engine implements an embeddable HTTP request-routing and
// middleware-dispatch engine: given a normalized request, it selects a
// registered handler by method and path, extracts path parameters, runs an
// ordered chain of interceptors that may short-circuit the request, and
// produces a response.
//
// The engine deliberately owns no sockets. Transport concerns (protocol
// parsing, TLS, timeouts, cancellation) belong to the surrounding runtime;
// Engine implements http.Handler so net/http is the usual collaborator, and
// WriteResponse supports custom adapters.
//
// # Routes
//
// Path templates use angle-bracket placeholders. A <name> placeholder
// matches one or more characters excluding "/"; a trailing <name:path>
// placeholder matches the remainder of the path including "/":
//
//	e := engine.New()
//	e.HandleFunc("/users/<name>", []string{http.MethodGet}, userHandler)
//	e.HandleFunc("/files/<rest:path>", []string{http.MethodGet}, fileHandler)
//
// Matching is anchored to the full path and evaluated in registration order:
// the first route whose method set contains the request method and whose
// template accepts the path wins, regardless of specificity. A path that
// matches some route but no method yields a 405; a path that matches nothing
// yields a 404. Malformed templates are rejected at registration, never at
// request time.
//
// # Handlers
//
// Handlers receive the request and return a response:
//
//	func userHandler(req *engine.Request) (*engine.Response, error) {
//		name, _ := req.Param("name")
//		return engine.NewResponse(map[string]string{"user": name}), nil
//	}
//
// A handler may instead declare, at registration, the ordered list of path
// parameters it wants bound positionally:
//
//	e.HandleParams("/repos/<owner>/<repo>", []string{http.MethodGet},
//		[]string{"owner", "repo"},
//		func(req *engine.Request, args ...string) (*engine.Response, error) {
//			owner, repo := args[0], args[1]
//			...
//		})
//
// A returned error, a panic, or a nil response all surface as a 500 response
// with a diagnostic body; the engine keeps serving subsequent requests.
//
// # Middleware
//
// Interceptors run before routing, strictly in registration order. Returning
// a response short-circuits the pipeline; the handler is never invoked:
//
//	e.Use(func(req *engine.Request) (*engine.Response, error) {
//		if req.Header("X-API-Key") == "" {
//			return engine.NewResponseStatus("missing key", http.StatusUnauthorized), nil
//		}
//		return nil, nil
//	})
//
// # Uploads
//
// Request.FormFiles parses a multipart/form-data body on demand and returns
// its file parts, enforcing a per-file size limit and an accepted content
// type list (exact or "image/*" wildcards) from an UploadConfig.
//
// # Responses
//
// NewResponse infers the content type from the body shape: structured values
// encode as application/json, strings as text/plain, byte slices as
// application/octet-stream. SetContentType overrides the inference.
//
// # Observers
//
// Observe registers dispatch observers that receive every request, its
// final response, and the elapsed time after dispatch completes. Observers
// cannot alter traffic; telemetry hangs off this hook.
//
// # Concurrency
//
// The route table and middleware pipeline are built once during setup and
// read-only afterwards, so an Engine may serve any number of concurrent
// requests without locking. Each Request/Response pair is owned by the call
// stack serving it.
package engine
