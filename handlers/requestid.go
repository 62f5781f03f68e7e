package handlers

import (
	"github.com/google/uuid"

	"github.com/conduit-http/conduit/engine"
)

// RequestIDConfig configures the RequestID interceptor.
type RequestIDConfig struct {
	// HeaderName overrides the header used to carry the request ID.
	// Defaults to "X-Request-ID" when empty.
	HeaderName string

	// Generate is an optional callback that returns a new unique ID.
	// Defaults to GenerateUUIDv4.
	Generate func() string

	// TrustIncoming, when true, keeps an existing request ID from the
	// incoming header instead of generating a new one.
	TrustIncoming bool
}

// RequestID returns an interceptor that stamps a unique ID into the request
// headers before routing, where handlers and follow-up interceptors can read
// it. It never short-circuits.
func RequestID(cfg RequestIDConfig) engine.Middleware {
	headerName := cfg.HeaderName
	if headerName == "" {
		headerName = "X-Request-ID"
	}

	generate := cfg.Generate
	if generate == nil {
		generate = GenerateUUIDv4
	}

	trustIncoming := cfg.TrustIncoming

	return func(req *engine.Request) (*engine.Response, error) {
		if trustIncoming && req.Header(headerName) != "" {
			return nil, nil
		}

		req.SetHeader(headerName, generate())
		return nil, nil
	}
}

// GenerateUUIDv4 returns a new UUID v4 string.
//
// Spec reference: https://www.rfc-editor.org/rfc/rfc9562#section-5.4
func GenerateUUIDv4() string {
	return uuid.New().String()
}

// GenerateUUIDv7 returns a new UUID v7 string. UUIDs are time-ordered:
// IDs generated later sort lexicographically after earlier ones.
//
// Spec reference: https://www.rfc-editor.org/rfc/rfc9562#section-5.7
func GenerateUUIDv7() string {
	return uuid.Must(uuid.NewV7()).String()
}
