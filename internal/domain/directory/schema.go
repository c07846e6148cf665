package directory

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// SchemaSource источник OpenAPI-схемы платформы
type SchemaSource interface {
	OpenAPI(ctx context.Context) (*OpenAPISpec, error)
}

// SchemaError схема недоступна или не описывает ресурс каталога
type SchemaError struct {
	Resource string
	Reason   string
	Err      error
}

func (e *SchemaError) Error() string {
	msg := "schema"
	if e.Resource != "" {
		msg += " for " + e.Resource
	}
	msg += ": " + e.Reason
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *SchemaError) Unwrap() error { return e.Err }

// OpenAPISpec часть OpenAPI 3 документа, нужная каталогу
type OpenAPISpec struct {
	Paths      map[string]PathItem `json:"paths"`
	Components struct {
		Schemas map[string]SchemaObject `json:"schemas"`
	} `json:"components"`
}

type PathItem struct {
	Post *Operation `json:"post,omitempty"`
	Put  *Operation `json:"put,omitempty"`
}

type Operation struct {
	RequestBody *RequestBody `json:"requestBody,omitempty"`
}

type RequestBody struct {
	Content map[string]MediaType `json:"content"`
}

type MediaType struct {
	Schema *SchemaObject `json:"schema,omitempty"`
}

// SchemaObject описание модели или поля
type SchemaObject struct {
	Ref        string                  `json:"$ref,omitempty"`
	Type       string                  `json:"type,omitempty"`
	Format     string                  `json:"format,omitempty"`
	ReadOnly   bool                    `json:"readOnly,omitempty"`
	Minimum    *float64                `json:"minimum,omitempty"`
	Maximum    *float64                `json:"maximum,omitempty"`
	MaxLength  *int                    `json:"maxLength,omitempty"`
	AllOf      []json.RawMessage       `json:"allOf,omitempty"`
	Required   []string                `json:"required,omitempty"`
	Properties map[string]SchemaObject `json:"properties,omitempty"`
}

// ParseOpenAPI разбирает JSON-документ схемы
func ParseOpenAPI(data []byte) (*OpenAPISpec, error) {
	var spec OpenAPISpec
	if err := json.Unmarshal(data, &spec); err != nil {
		return nil, &SchemaError{Reason: "malformed document", Err: err}
	}
	if len(spec.Paths) == 0 || len(spec.Components.Schemas) == 0 {
		return nil, &SchemaError{Reason: "document has no paths or schemas"}
	}
	return &spec, nil
}

func (s *SchemaObject) property() Property {
	p := Property{
		Type:      s.Type,
		Format:    s.Format,
		ReadOnly:  s.ReadOnly,
		Minimum:   s.Minimum,
		Maximum:   s.Maximum,
		MaxLength: s.MaxLength,
	}
	if len(s.AllOf) > 0 || (s.Ref != "" && s.Type == "") {
		p.Type = "object"
	}
	return p
}

func (spec *OpenAPISpec) resolve(s *SchemaObject) *SchemaObject {
	if s == nil || s.Ref == "" {
		return s
	}
	name := strings.TrimPrefix(s.Ref, "#/components/schemas/")
	if target, ok := spec.Components.Schemas[name]; ok {
		return &target
	}
	return s
}

// enrich дополняет описание ресурса данными схемы
func (spec *OpenAPISpec) enrich(d *Descriptor) error {
	path := d.Path
	if d.SchemaPath != "" {
		path = d.SchemaPath
	}
	item, ok := spec.Paths[path]
	if !ok {
		return &SchemaError{Resource: d.Name, Reason: fmt.Sprintf("path %s not declared", path)}
	}
	op := item.Post
	if op == nil {
		op = item.Put
	}
	if op == nil {
		return &SchemaError{Resource: d.Name, Reason: fmt.Sprintf("path %s has no create operation", path)}
	}

	d.RequiredCreateFields = []string{}
	if op.RequestBody != nil {
		if media, ok := op.RequestBody.Content["application/json"]; ok {
			if body := spec.resolve(media.Schema); body != nil {
				d.RequiredCreateFields = append(d.RequiredCreateFields, body.Required...)
			}
		}
	}

	model, ok := spec.Components.Schemas[d.ModelName]
	if !ok {
		return &SchemaError{Resource: d.Name, Reason: fmt.Sprintf("model %s not declared", d.ModelName)}
	}
	d.Properties = make(map[string]Property, len(model.Properties))
	for name, prop := range model.Properties {
		d.Properties[name] = prop.property()
	}

	redact := d.RedactFields[:0:0]
	for _, f := range d.RedactFields {
		if d.HasProperty(f) {
			redact = append(redact, f)
		}
	}
	d.RedactFields = redact
	return nil
}
