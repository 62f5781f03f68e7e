package openapi

import (
	"sort"
	"strings"

	"github.com/conduit-http/conduit/engine"
)

// Info describes the API for the OpenAPI Document's info object.
//
// See: https://spec.openapis.org/oas/v3.1.0#info-object
type Info struct {
	Title       string `json:"title" yaml:"title"`
	Version     string `json:"version" yaml:"version"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}

// Document is a minimal OpenAPI 3.1 document generated from an engine's
// route table.
type Document struct {
	OpenAPI string              `json:"openapi" yaml:"openapi"`
	Info    Info                `json:"info" yaml:"info"`
	Paths   map[string]PathItem `json:"paths" yaml:"paths"`
}

// PathItem maps lowercased HTTP methods to their operations.
type PathItem map[string]Operation

// Operation describes a single method on a path.
type Operation struct {
	OperationID string                  `json:"operationId,omitempty" yaml:"operationId,omitempty"`
	Parameters  []Parameter             `json:"parameters,omitempty" yaml:"parameters,omitempty"`
	Responses   map[string]ResponseInfo `json:"responses" yaml:"responses"`
}

// Parameter describes a path parameter. Engine placeholders always bind as
// required string path parameters.
type Parameter struct {
	Name     string `json:"name" yaml:"name"`
	In       string `json:"in" yaml:"in"`
	Required bool   `json:"required" yaml:"required"`
	Schema   Schema `json:"schema" yaml:"schema"`
}

// Schema is the parameter value schema.
type Schema struct {
	Type string `json:"type" yaml:"type"`
}

// ResponseInfo documents one response status.
type ResponseInfo struct {
	Description string `json:"description" yaml:"description"`
}

// Build walks the engine's route table and produces an OpenAPI document.
// Engine templates translate to OpenAPI path syntax: "/users/<name>" becomes
// "/users/{name}" and a rest placeholder "/files/<rest:path>" becomes
// "/files/{rest}".
func Build(e *engine.Engine, info Info) *Document {
	doc := &Document{
		OpenAPI: "3.1.0",
		Info:    info,
		Paths:   make(map[string]PathItem),
	}

	for _, route := range e.Routes() {
		path := toOpenAPIPath(route.Template())

		item, ok := doc.Paths[path]
		if !ok {
			item = make(PathItem)
			doc.Paths[path] = item
		}

		params := make([]Parameter, 0, len(route.ParamNames()))
		for _, name := range route.ParamNames() {
			params = append(params, Parameter{
				Name:     name,
				In:       "path",
				Required: true,
				Schema:   Schema{Type: "string"},
			})
		}

		for _, method := range route.Methods() {
			method = strings.ToLower(method)
			if _, exists := item[method]; exists {
				// First registration wins, matching dispatch order.
				continue
			}
			item[method] = Operation{
				OperationID: operationID(method, path),
				Parameters:  params,
				Responses: map[string]ResponseInfo{
					"200": {Description: "Successful response"},
				},
			}
		}
	}

	return doc
}

// toOpenAPIPath rewrites engine placeholders to OpenAPI parameter syntax.
// Templates reaching this point already compiled, so brackets are balanced.
func toOpenAPIPath(template string) string {
	var out strings.Builder
	for {
		open := strings.IndexByte(template, '<')
		if open < 0 {
			out.WriteString(template)
			return out.String()
		}
		rest := template[open:]
		closing := strings.IndexByte(rest, '>')

		name := strings.TrimSuffix(rest[1:closing], ":path")

		out.WriteString(template[:open])
		out.WriteByte('{')
		out.WriteString(name)
		out.WriteByte('}')
		template = rest[closing+1:]
	}
}

// operationID derives a stable identifier from the method and path,
// e.g. "get_users_name".
func operationID(method, path string) string {
	parts := []string{method}
	for _, seg := range strings.Split(path, "/") {
		if seg == "" {
			continue
		}
		parts = append(parts, strings.Trim(seg, "{}"))
	}
	if len(parts) == 1 {
		parts = append(parts, "root")
	}
	return strings.Join(parts, "_")
}

// SortedPaths returns the document's paths in lexical order, for stable
// iteration in tests and tooling.
func (d *Document) SortedPaths() []string {
	paths := make([]string, 0, len(d.Paths))
	for p := range d.Paths {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}
