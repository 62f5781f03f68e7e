package handlers

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/conduit-http/conduit/engine"
)

// ErrNoAuthSource is returned when BasicAuthConfig has neither ValidateFunc
// nor Credentials configured.
var ErrNoAuthSource = errors.New("handlers: basic auth requires ValidateFunc or Credentials")

// BasicAuthConfig configures the BasicAuth interceptor.
//
// Spec reference: https://www.rfc-editor.org/rfc/rfc7617
type BasicAuthConfig struct {
	// Realm is the authentication realm sent in the WWW-Authenticate
	// header. Defaults to "Restricted" when empty.
	Realm string

	// ValidateFunc is called to validate credentials dynamically.
	// Takes priority over Credentials when both are set.
	ValidateFunc func(username, password string) bool

	// Credentials is a static map of username -> password pairs.
	// Compared using SHA-256 hashed constant-time comparison to prevent
	// timing attacks, including length-based leaks.
	Credentials map[string]string
}

// BasicAuth returns an interceptor that implements HTTP Basic Authentication
// per RFC 7617. Requests with missing or invalid credentials short-circuit
// with a 401 response carrying the WWW-Authenticate header.
//
// It returns ErrNoAuthSource if both ValidateFunc and Credentials are empty.
func BasicAuth(cfg BasicAuthConfig) (engine.Middleware, error) {
	if cfg.ValidateFunc == nil && len(cfg.Credentials) == 0 {
		return nil, ErrNoAuthSource
	}

	realm := cfg.Realm
	if realm == "" {
		realm = "Restricted"
	}

	wwwAuthenticate := fmt.Sprintf("Basic realm=%q", realm)

	validate := cfg.ValidateFunc
	credentials := cfg.Credentials

	return func(req *engine.Request) (*engine.Response, error) {
		username, password, ok := decodeBasicAuth(req.Header("Authorization"))
		if !ok {
			return unauthorized(wwwAuthenticate), nil
		}

		if validate != nil {
			if !validate(username, password) {
				return unauthorized(wwwAuthenticate), nil
			}
			return nil, nil
		}

		expectedPassword, exists := credentials[username]
		// Always perform the password comparison to prevent timing
		// leaks that reveal whether a username exists in the map.
		passwordMatch := constantTimeEqual(password, expectedPassword)
		if !exists || !passwordMatch {
			return unauthorized(wwwAuthenticate), nil
		}

		return nil, nil
	}, nil
}

// decodeBasicAuth extracts the username and password from an Authorization
// header value per RFC 7617 Section 2.
func decodeBasicAuth(auth string) (username, password string, ok bool) {
	const prefix = "Basic "
	if len(auth) < len(prefix) || !strings.EqualFold(auth[:len(prefix)], prefix) {
		return "", "", false
	}

	decoded, err := base64.StdEncoding.DecodeString(auth[len(prefix):])
	if err != nil {
		return "", "", false
	}

	username, password, ok = strings.Cut(string(decoded), ":")
	return username, password, ok
}

// constantTimeEqual compares two strings in constant time by first hashing
// them with SHA-256. This prevents both value leaks and length-based timing
// leaks that raw ConstantTimeCompare would allow on different-length inputs.
func constantTimeEqual(a, b string) bool {
	aHash := sha256.Sum256([]byte(a))
	bHash := sha256.Sum256([]byte(b))

	return subtle.ConstantTimeCompare(aHash[:], bHash[:]) == 1
}

// unauthorized builds the terminal 401 response.
func unauthorized(wwwAuthenticate string) *engine.Response {
	resp := engine.NewResponseStatus(nil, http.StatusUnauthorized)
	resp.SetHeader("WWW-Authenticate", wwwAuthenticate)
	return resp
}
