package openapi

import (
	"encoding/json"
	"net/http"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/conduit-http/conduit/engine"
)

// HandleConfig configures the document endpoints registered by Handle.
type HandleConfig struct {
	// JSONPath is the route serving the JSON document
	// (default: "/openapi.json"). Set to "-" to disable.
	JSONPath string

	// YAMLPath is the route serving the YAML document
	// (default: "/openapi.yaml"). Set to "-" to disable.
	YAMLPath string
}

// Handle registers GET routes on the engine that serve the OpenAPI document
// as JSON and YAML. The document is built lazily on first request, so routes
// registered after Handle (during the same setup phase) are still included.
func Handle(e *engine.Engine, info Info, cfg HandleConfig) error {
	jsonPath := cfg.JSONPath
	if jsonPath == "" {
		jsonPath = "/openapi.json"
	}
	yamlPath := cfg.YAMLPath
	if yamlPath == "" {
		yamlPath = "/openapi.yaml"
	}

	var (
		once     sync.Once
		jsonBody []byte
		yamlBody []byte
		buildErr error
	)

	build := func() {
		doc := Build(e, info)
		jsonBody, buildErr = json.MarshalIndent(doc, "", "  ")
		if buildErr != nil {
			return
		}
		yamlBody, buildErr = yaml.Marshal(doc)
	}

	methods := []string{http.MethodGet}

	if jsonPath != "-" {
		err := e.HandleFunc(jsonPath, methods, func(_ *engine.Request) (*engine.Response, error) {
			once.Do(build)
			if buildErr != nil {
				return nil, buildErr
			}
			resp := engine.NewResponse(jsonBody)
			resp.SetContentType("application/json")
			return resp, nil
		})
		if err != nil {
			return err
		}
	}

	if yamlPath != "-" {
		err := e.HandleFunc(yamlPath, methods, func(_ *engine.Request) (*engine.Response, error) {
			once.Do(build)
			if buildErr != nil {
				return nil, buildErr
			}
			resp := engine.NewResponse(yamlBody)
			resp.SetContentType("application/yaml")
			return resp, nil
		})
		if err != nil {
			return err
		}
	}

	return nil
}
