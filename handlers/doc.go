// Package handlers provides the specialized handler kinds and interceptors
// that ship with the engine.
//
// # Static File Serving
//
// Static registers a GET route serving files from a directory under a URL
// prefix. Paths are resolved against the canonical root after eliminating
// ".." segments and symbolic links; anything escaping the root is rejected
// with 403, missing or non-regular files with 404. The registrant may
// rewrite every assembled response through OnServe:
//
//	err := handlers.Static(e, handlers.StaticConfig{
//	    Prefix: "/static",
//	    Dir:    "./public",
//	    OnServe: func(resp *engine.Response) *engine.Response {
//	        resp.SetHeader("Cache-Control", "max-age=3600")
//	        return resp
//	    },
//	})
//
// # Reverse Proxying
//
// Proxy registers a route forwarding requests under a prefix to an upstream
// base URL. Connection-scoped headers (Host, Connection, Transfer-Encoding)
// are never forwarded; upstream error statuses are relayed verbatim; only a
// transport-level failure produces a 502:
//
//	err := handlers.Proxy(e, handlers.ProxyConfig{
//	    Prefix:   "/api",
//	    Upstream: "http://127.0.0.1:8801",
//	})
//
// # Interceptors
//
// RequestID, AccessLog, RateLimit, CORS, and BasicAuth are ready-made
// middleware for the engine's pipeline:
//
//	e.Use(handlers.RequestID(handlers.RequestIDConfig{}))
//	e.Use(handlers.AccessLog(logger))
//	e.Use(handlers.RateLimit(handlers.RateLimitConfig{Rate: 10, Burst: 20}))
//
// # Telemetry
//
// Telemetry builds a dispatch observer that records OpenTelemetry request
// and duration metrics for every dispatched request, including 404/405/500
// outcomes:
//
//	metrics, err := handlers.Telemetry(handlers.TelemetryConfig{ServiceName: "my-api"})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	e.Observe(metrics)
package handlers
