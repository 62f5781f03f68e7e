// Package openapi generates a minimal OpenAPI 3.1 document from an engine's
// route table and serves it over the engine itself.
//
// Build translates each registered route into a path item: placeholder
// names become required string path parameters and every allowed method
// becomes an operation. Handle registers ready-made JSON and YAML document
// routes:
//
//	e := engine.New()
//	e.HandleFunc("/users/<name>", []string{http.MethodGet}, userHandler)
//
//	err := openapi.Handle(e, openapi.Info{
//	    Title:   "My API",
//	    Version: "1.0.0",
//	}, openapi.HandleConfig{})
package openapi
