package engine

import (
	"io"
	"net/http"
)

// ServeHTTP adapts the engine to the standard library's server runtime.
// The transport owns connection handling, timeouts, and cancellation; the
// engine only turns a normalized request into a response. Implements
// http.Handler, so an engine can be served directly:
//
//	e := engine.New()
//	e.HandleFunc("/hello", []string{http.MethodGet}, handler)
//	http.ListenAndServe(":8080", e)
func (e *Engine) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "Bad Request: unable to read request body", http.StatusBadRequest)
		return
	}

	req := NewRequest(r.Method, r.URL.RequestURI(), r.Header, body)

	// net/http promotes the Host header out of the header map; put it
	// back so interceptors and the proxy handler see the full picture.
	if r.Host != "" {
		req.SetHeader("Host", r.Host)
	}

	WriteResponse(w, e.Dispatch(req))
}

// WriteResponse writes a dispatched response to the transport. Exported for
// custom transport adapters.
func WriteResponse(w http.ResponseWriter, resp *Response) {
	h := w.Header()
	for key, vals := range resp.Headers() {
		for _, v := range vals {
			h.Add(key, v)
		}
	}
	h.Set("Content-Type", resp.ContentType())

	w.WriteHeader(resp.Status())
	w.Write(resp.Body())
}
