package engine

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Response is the outcome of dispatching a request. The content type is
// inferred from the body shape at construction: structured values encode as
// application/json, strings as text/plain, raw bytes as
// application/octet-stream. An explicit content type always wins over the
// inferred default.
type Response struct {
	body   []byte
	status int
	header http.Header

	// inferredType is the default content type derived from the body
	// shape. It is only used when no explicit Content-Type header is set.
	inferredType string
}

// NewResponse builds a 200 response from body. See NewResponseStatus for the
// body conversion rules.
func NewResponse(body any) *Response {
	return NewResponseStatus(body, http.StatusOK)
}

// NewResponseStatus builds a response from body with the given status code.
// A string body becomes text/plain, a []byte body application/octet-stream,
// and any other non-nil value is JSON-encoded as application/json.
// Construction never fails on serializable input; a body that cannot be
// JSON-encoded is a programming error and panics immediately. The status
// must be in 100-599.
func NewResponseStatus(body any, status int) *Response {
	resp := &Response{
		header: make(http.Header),
	}
	resp.SetStatus(status)

	switch b := body.(type) {
	case nil:
		resp.inferredType = "text/plain"
	case string:
		resp.body = []byte(b)
		resp.inferredType = "text/plain"
	case []byte:
		resp.body = b
		resp.inferredType = "application/octet-stream"
	default:
		data, err := json.Marshal(body)
		if err != nil {
			panic(fmt.Sprintf("engine: response body is not JSON-serializable: %v", err))
		}
		resp.body = data
		resp.inferredType = "application/json"
	}

	return resp
}

// Body returns the response body bytes.
func (r *Response) Body() []byte {
	return r.body
}

// Status returns the response status code.
func (r *Response) Status() int {
	return r.status
}

// SetStatus sets the response status code. Codes outside 100-599 are a
// programming error and panic.
func (r *Response) SetStatus(status int) {
	if status < 100 || status > 599 {
		panic(fmt.Sprintf("engine: invalid response status %d", status))
	}
	r.status = status
}

// Header returns the value of the named response header, or "" if absent.
func (r *Response) Header(key string) string {
	return r.header.Get(key)
}

// SetHeader sets a response header, overwriting any existing value for the key.
func (r *Response) SetHeader(key, value string) {
	r.header.Set(key, value)
}

// AddHeader appends a response header value without overwriting existing
// values for the key. Needed for headers that legitimately repeat, such as
// Set-Cookie.
func (r *Response) AddHeader(key, value string) {
	r.header.Add(key, value)
}

// Headers returns the underlying header map.
func (r *Response) Headers() http.Header {
	return r.header
}

// ContentType returns the effective content type: the explicit Content-Type
// header when set, otherwise the type inferred from the body shape.
func (r *Response) ContentType() string {
	if ct := r.header.Get("Content-Type"); ct != "" {
		return ct
	}
	return r.inferredType
}

// SetContentType sets an explicit content type, overriding the inferred one.
func (r *Response) SetContentType(contentType string) {
	r.header.Set("Content-Type", contentType)
}

// SetCookie appends a Set-Cookie header for the given cookie.
func (r *Response) SetCookie(cookie *http.Cookie) {
	r.header.Add("Set-Cookie", cookie.String())
}

// DeleteCookie appends a Set-Cookie header that instructs the client to
// drop the named cookie.
func (r *Response) DeleteCookie(name, path string) {
	if path == "" {
		path = "/"
	}
	r.SetCookie(&http.Cookie{
		Name:    name,
		Value:   "",
		Path:    path,
		MaxAge:  -1,
		Expires: time.Unix(0, 0),
	})
}
