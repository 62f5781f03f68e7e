package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/conduit-http/conduit/engine"
)

// ErrWildcardCredentials is returned when AllowedOrigins contains "*" and
// AllowCredentials is true. Use AllowOriginFunc for dynamic origin checks
// with credentials.
var ErrWildcardCredentials = errors.New("handlers: wildcard origin \"*\" cannot be used with AllowCredentials; use AllowOriginFunc instead")

// CORSConfig configures the CORS interceptor.
//
// Spec references:
//   - CORS protocol: https://fetch.spec.whatwg.org/#http-cors-protocol
//   - Web Origin:    https://www.rfc-editor.org/rfc/rfc6454
type CORSConfig struct {
	// AllowedOrigins is a list of exact origin strings, "*" for wildcard,
	// or subdomain wildcard patterns like "https://*.example.com".
	AllowedOrigins []string

	// AllowOriginFunc is an optional dynamic callback invoked when the
	// origin does not match any entry in AllowedOrigins. Return true to
	// allow.
	AllowOriginFunc func(origin string) bool

	// AllowedMethods is the method set advertised in preflight responses.
	// Defaults to GET/POST/PUT/PATCH/DELETE.
	AllowedMethods []string

	// AllowedHeaders lists the headers the client may send in the actual
	// request. When empty the interceptor reflects the
	// Access-Control-Request-Headers value from the preflight request.
	AllowedHeaders []string

	// AllowCredentials sets Access-Control-Allow-Credentials: true.
	AllowCredentials bool

	// MaxAge is the duration in seconds a preflight result may be cached.
	// Zero omits the header.
	MaxAge int
}

// wildcardPattern represents a subdomain wildcard pattern split at the "*".
type wildcardPattern struct {
	prefix string
	suffix string
}

func (p wildcardPattern) match(origin string) bool {
	return len(origin) > len(p.prefix)+len(p.suffix) &&
		strings.HasPrefix(origin, p.prefix) &&
		strings.HasSuffix(origin, p.suffix)
}

// CORS returns an interceptor handling the CORS preflight exchange: an
// OPTIONS request carrying Origin and Access-Control-Request-Method
// short-circuits with a 204 response and the allow headers. Requests from
// disallowed origins pass through untouched, leaving the browser to enforce
// the missing headers. Non-preflight requests always pass through; headers
// on actual responses are the handler's (or a rewrite hook's) concern.
func CORS(cfg CORSConfig) (engine.Middleware, error) {
	allowAll := false
	var exact []string
	var patterns []wildcardPattern

	for _, origin := range cfg.AllowedOrigins {
		switch {
		case origin == "*":
			allowAll = true
		case strings.Contains(origin, "*"):
			prefix, suffix, _ := strings.Cut(origin, "*")
			patterns = append(patterns, wildcardPattern{prefix: prefix, suffix: suffix})
		default:
			exact = append(exact, origin)
		}
	}

	if allowAll && cfg.AllowCredentials {
		return nil, ErrWildcardCredentials
	}

	methods := cfg.AllowedMethods
	if len(methods) == 0 {
		methods = defaultProxyMethods
	}
	allowMethods := strings.Join(methods, ", ")
	allowHeaders := strings.Join(cfg.AllowedHeaders, ", ")

	originAllowed := func(origin string) bool {
		if allowAll || containsFold(exact, origin) {
			return true
		}
		for _, p := range patterns {
			if p.match(origin) {
				return true
			}
		}
		return cfg.AllowOriginFunc != nil && cfg.AllowOriginFunc(origin)
	}

	return func(req *engine.Request) (*engine.Response, error) {
		origin := req.Header("Origin")
		if origin == "" || req.Method() != http.MethodOptions {
			return nil, nil
		}
		if req.Header("Access-Control-Request-Method") == "" {
			// A plain OPTIONS request, not a preflight.
			return nil, nil
		}
		if !originAllowed(origin) {
			return nil, nil
		}

		resp := engine.NewResponseStatus(nil, http.StatusNoContent)
		if allowAll && !cfg.AllowCredentials {
			resp.SetHeader("Access-Control-Allow-Origin", "*")
		} else {
			resp.SetHeader("Access-Control-Allow-Origin", origin)
			resp.SetHeader("Vary", "Origin")
		}
		resp.SetHeader("Access-Control-Allow-Methods", allowMethods)

		if allowHeaders != "" {
			resp.SetHeader("Access-Control-Allow-Headers", allowHeaders)
		} else if requested := req.Header("Access-Control-Request-Headers"); requested != "" {
			resp.SetHeader("Access-Control-Allow-Headers", requested)
		}

		if cfg.AllowCredentials {
			resp.SetHeader("Access-Control-Allow-Credentials", "true")
		}
		if cfg.MaxAge > 0 {
			resp.SetHeader("Access-Control-Max-Age", strconv.Itoa(cfg.MaxAge))
		}

		return resp, nil
	}, nil
}

func containsFold(set []string, value string) bool {
	for _, s := range set {
		if strings.EqualFold(s, value) {
			return true
		}
	}
	return false
}
