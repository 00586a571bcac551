package openapi

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
)

type RouteBuilder struct {
	doc       *Document
	method    string
	path      string
	operation *openapi3.Operation
}

// Route starts documenting method and path. Path parameters written in
// echo's :name form are declared automatically.
func (d *Document) Route(method, path string) *RouteBuilder {
	rb := &RouteBuilder{
		doc:       d,
		method:    method,
		path:      path,
		operation: &openapi3.Operation{Responses: openapi3.NewResponses()},
	}
	for _, part := range strings.Split(path, "/") {
		if name, ok := strings.CutPrefix(part, ":"); ok {
			rb.param(name, "path", "").Required = true
		}
	}
	return rb
}

func (rb *RouteBuilder) Summary(summary string) *RouteBuilder {
	rb.operation.Summary = summary
	return rb
}

func (rb *RouteBuilder) Tags(tags ...string) *RouteBuilder {
	rb.operation.Tags = append(rb.operation.Tags, tags...)
	return rb
}

func (rb *RouteBuilder) Query(name, description string) *RouteBuilder {
	rb.param(name, "query", description)
	return rb
}

func (rb *RouteBuilder) param(name, in, description string) *openapi3.Parameter {
	for _, p := range rb.operation.Parameters {
		if p.Value != nil && p.Value.Name == name && p.Value.In == in {
			return p.Value
		}
	}
	p := &openapi3.Parameter{
		Name:        name,
		In:          in,
		Description: description,
		Schema:      openapi3.NewStringSchema().NewRef(),
	}
	rb.operation.Parameters = append(rb.operation.Parameters, &openapi3.ParameterRef{Value: p})
	return p
}

func (rb *RouteBuilder) Body(example any) *RouteBuilder {
	rb.operation.RequestBody = &openapi3.RequestBodyRef{
		Value: openapi3.NewRequestBody().WithRequired(true).WithJSONSchemaRef(rb.doc.schemaFor(example)),
	}
	return rb
}

// Multipart declares a multipart/form-data body with one binary file field
// and string fields.
func (rb *RouteBuilder) Multipart(fileField string, fields ...string) *RouteBuilder {
	schema := openapi3.NewObjectSchema()
	schema.Properties = openapi3.Schemas{
		fileField: &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"string"}, Format: "binary"}},
	}
	schema.Required = []string{fileField}
	for _, f := range fields {
		schema.Properties[f] = openapi3.NewStringSchema().NewRef()
	}

	rb.operation.RequestBody = &openapi3.RequestBodyRef{
		Value: openapi3.NewRequestBody().WithRequired(true).WithSchema(schema, []string{"multipart/form-data"}),
	}
	return rb
}

func (rb *RouteBuilder) Response(status int, example any, description string) *RouteBuilder {
	resp := openapi3.NewResponse().WithDescription(description)
	if example != nil {
		resp.WithJSONSchemaRef(rb.doc.schemaFor(example))
	}
	rb.operation.Responses.Set(strconv.Itoa(status), &openapi3.ResponseRef{Value: resp})
	return rb
}

func (rb *RouteBuilder) Binary(status int, description string) *RouteBuilder {
	resp := openapi3.NewResponse().WithDescription(description).
		WithContent(openapi3.NewContentWithSchema(&openapi3.Schema{Type: &openapi3.Types{"string"}, Format: "binary"}, []string{"application/octet-stream"}))
	rb.operation.Responses.Set(strconv.Itoa(status), &openapi3.ResponseRef{Value: resp})
	return rb
}

// Authenticated accepts either the bearer token or the session cookie.
func (rb *RouteBuilder) Authenticated() *RouteBuilder {
	rb.operation.Security = &openapi3.SecurityRequirements{
		openapi3.SecurityRequirement{BearerScheme: []string{}},
		openapi3.SecurityRequirement{CookieScheme: []string{}},
	}
	return rb.Response(http.StatusUnauthorized, ErrorBody{}, "Authentication required")
}

func (rb *RouteBuilder) Build() {
	rb.doc.addOperation(rb.method, rb.path, rb.operation)
}

// ErrorBody is the shape of every error response.
type ErrorBody struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}
