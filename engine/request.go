package engine

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// Request is a normalized inbound HTTP request. It is constructed once per
// request by the transport adapter and owned exclusively by the call stack
// serving that request. Header values may be rewritten by interceptors via
// SetHeader; everything else is fixed at construction.
type Request struct {
	method string
	path   string
	header http.Header
	body   []byte

	// pathParams is populated by the dispatcher after a route match.
	// It is a separate namespace from query parameters; the two are
	// never merged.
	pathParams  map[string]string
	queryParams map[string]string
}

// NewRequest builds a request from its transport-level parts. The method is
// normalized to uppercase. Header keys are case-insensitive; duplicate keys
// collapse to the last value. The path is kept as received, including any
// query string. The body is held as raw bytes and never parsed eagerly.
func NewRequest(method, path string, header http.Header, body []byte) *Request {
	h := make(http.Header, len(header))
	for key, vals := range header {
		if len(vals) > 0 {
			h.Set(key, vals[len(vals)-1])
		}
	}

	return &Request{
		method: strings.ToUpper(method),
		path:   path,
		header: h,
		body:   body,
	}
}

// Method returns the uppercased HTTP method.
func (r *Request) Method() string {
	return r.method
}

// Path returns the full request path as received, including any query string.
func (r *Request) Path() string {
	return r.path
}

// RawQuery returns the query component of the path, without the leading "?".
func (r *Request) RawQuery() string {
	if i := strings.IndexByte(r.path, '?'); i >= 0 {
		return r.path[i+1:]
	}
	return ""
}

// Header returns the value of the named header, or "" if absent.
// Lookup is case-insensitive.
func (r *Request) Header(key string) string {
	return r.header.Get(key)
}

// SetHeader sets a header value, overwriting any existing value for the key.
// Intended for interceptors that enrich the request before routing.
func (r *Request) SetHeader(key, value string) {
	r.header.Set(key, value)
}

// Headers returns the underlying header map.
func (r *Request) Headers() http.Header {
	return r.header
}

// Body returns the raw request body.
func (r *Request) Body() []byte {
	return r.body
}

// Text returns the request body decoded as UTF-8 text.
func (r *Request) Text() string {
	return string(r.body)
}

// JSON decodes the request body as JSON into v. By default the decoder
// rejects unknown fields that do not map to exported struct fields; pass
// true to allow them. Exactly one JSON value must be present in the body;
// trailing data is an error.
func (r *Request) JSON(v any, allowUnknownFields ...bool) error {
	dec := json.NewDecoder(bytes.NewReader(r.body))

	if len(allowUnknownFields) == 0 || !allowUnknownFields[0] {
		dec.DisallowUnknownFields()
	}

	if err := dec.Decode(v); err != nil {
		return err
	}

	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return errors.New("unexpected trailing data after JSON value")
	}

	return nil
}

// Param returns the named path parameter extracted by the matched route and
// a boolean indicating whether it exists. Path parameters are only available
// after the dispatcher has matched a route.
func (r *Request) Param(name string) (string, bool) {
	val, ok := r.pathParams[name]
	return val, ok
}

// Params returns all path parameters for the matched route.
func (r *Request) Params() map[string]string {
	return r.pathParams
}

// SetPathParams sets the path parameters for the request. The dispatcher
// calls this after a route match; it is exported for testing handlers and
// for custom transports.
func (r *Request) SetPathParams(params map[string]string) {
	r.pathParams = params
}

// Query returns the named query parameter, or "" if absent. Keys and values
// are percent-decoded; a duplicated key resolves to its last occurrence and
// a flag-style key with no "=" resolves to an empty string value.
func (r *Request) Query(name string) string {
	return r.queries()[name]
}

// QueryDefault returns the named query parameter, or def if absent.
func (r *Request) QueryDefault(name, def string) string {
	if val, ok := r.queries()[name]; ok {
		return val
	}
	return def
}

// Queries returns all query parameters. The map is parsed lazily from the
// path's query component on first access.
func (r *Request) Queries() map[string]string {
	return r.queries()
}

func (r *Request) queries() map[string]string {
	if r.queryParams == nil {
		r.queryParams = parseQueryParams(r.RawQuery())
	}
	return r.queryParams
}

// parseQueryParams decodes a raw query string. Pairs that fail to decode are
// dropped; everything that decodes survives.
func parseQueryParams(rawQuery string) map[string]string {
	params := make(map[string]string)
	if rawQuery == "" {
		return params
	}

	values, _ := url.ParseQuery(rawQuery)
	for key, vals := range values {
		if len(vals) > 0 {
			params[key] = vals[len(vals)-1]
		}
	}

	return params
}

// Cookie returns the value of the named cookie from the Cookie header and a
// boolean indicating whether it exists.
func (r *Request) Cookie(name string) (string, bool) {
	for _, c := range r.parseCookies() {
		if c.Name == name {
			return c.Value, true
		}
	}
	return "", false
}

// Cookies returns all cookies from the Cookie header as a name-value map.
func (r *Request) Cookies() map[string]string {
	parsed := r.parseCookies()
	cookies := make(map[string]string, len(parsed))
	for _, c := range parsed {
		cookies[c.Name] = c.Value
	}
	return cookies
}

func (r *Request) parseCookies() []*http.Cookie {
	line := r.header.Get("Cookie")
	if line == "" {
		return nil
	}
	req := http.Request{Header: http.Header{"Cookie": []string{line}}}
	return req.Cookies()
}

// BearerToken returns the bearer token from the Authorization header
// (RFC 6750 Section 2.1) and a boolean indicating whether one is present.
func (r *Request) BearerToken() (string, bool) {
	auth := r.header.Get("Authorization")
	token, ok := strings.CutPrefix(auth, "Bearer ")
	if !ok || token == "" {
		return "", false
	}
	return token, true
}
