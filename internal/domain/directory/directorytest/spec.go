// Package directorytest строит синтетическую схему платформы для тестов
package directorytest

import (
	"context"
	"sync/atomic"

	"github.com/athebyme/gomarket-seeder/internal/domain/directory"
)

// Builder накапливает схему: для каждого ресурса каталога создается путь с операцией
// создания и модель со строковым ID, полями маршрута, внешними ключами и секретами
type Builder struct {
	spec *directory.OpenAPISpec
}

// NewBuilder создает схему, покрывающую весь каталог
func NewBuilder() *Builder {
	spec := &directory.OpenAPISpec{Paths: map[string]directory.PathItem{}}
	spec.Components.Schemas = map[string]directory.SchemaObject{}
	b := &Builder{spec: spec}

	for _, d := range directory.Static().All() {
		path := d.Path
		if d.SchemaPath != "" {
			path = d.SchemaPath
		}
		b.spec.Paths[path] = directory.PathItem{Post: &directory.Operation{
			RequestBody: &directory.RequestBody{Content: map[string]directory.MediaType{
				"application/json": {Schema: &directory.SchemaObject{}},
			}},
		}}

		if !d.IsAssignment {
			b.Property(d.ModelName, "ID", directory.SchemaObject{Type: "string"})
		}
		for _, f := range d.RouteFields() {
			b.Property(d.ModelName, f, directory.SchemaObject{Type: "string"})
		}
		for field := range d.ForeignKeys {
			b.Property(d.ModelName, field, directory.SchemaObject{Type: "string"})
		}
		for _, f := range d.RedactFields {
			b.Property(d.ModelName, f, directory.SchemaObject{Type: "string"})
		}
	}

	b.Property("ApiClient", "ID", directory.SchemaObject{Type: "string", ReadOnly: true})
	b.Property("ApiClient", "DefaultContextUserName", directory.SchemaObject{Type: "string"})
	b.Property("Webhook", "ApiClientIDs", directory.SchemaObject{Type: "array"})
	b.Property("User", "Username", directory.SchemaObject{Type: "string"})
	b.Property("Category", "ParentID", directory.SchemaObject{Type: "string"})
	b.Property("Product", "VariantCount", directory.SchemaObject{Type: "integer", ReadOnly: true})
	b.Property("Variant", "Specs", directory.SchemaObject{Type: "array", ReadOnly: true})
	return b
}

// Property добавляет или заменяет поле модели
func (b *Builder) Property(model, name string, prop directory.SchemaObject) *Builder {
	schema := b.spec.Components.Schemas[model]
	if schema.Properties == nil {
		schema.Properties = map[string]directory.SchemaObject{}
	}
	schema.Properties[name] = prop
	b.spec.Components.Schemas[model] = schema
	return b
}

// Required задает обязательные поля операции создания ресурса
func (b *Builder) Required(resource string, fields ...string) *Builder {
	d := directory.Static().MustGet(resource)
	path := d.Path
	if d.SchemaPath != "" {
		path = d.SchemaPath
	}
	item := b.spec.Paths[path]
	item.Post.RequestBody.Content["application/json"].Schema.Required = fields
	b.spec.Paths[path] = item
	return b
}

// Spec возвращает построенную схему
func (b *Builder) Spec() *directory.OpenAPISpec { return b.spec }

// Source источник схемы для Build
func (b *Builder) Source() *Source { return &Source{Spec: b.spec} }

// Source SchemaSource из готовой схемы; Err имитирует недоступность
type Source struct {
	Spec  *directory.OpenAPISpec
	Err   error
	calls atomic.Int32
}

func (s *Source) OpenAPI(ctx context.Context) (*directory.OpenAPISpec, error) {
	s.calls.Add(1)
	if s.Err != nil {
		return nil, s.Err
	}
	return s.Spec, nil
}

// Calls количество обращений к источнику
func (s *Source) Calls() int { return int(s.calls.Load()) }

// Directory строит каталог по схеме и паникует при ошибке
func (b *Builder) Directory() *directory.Directory {
	dir, err := directory.Build(context.Background(), b.Source())
	if err != nil {
		panic(err)
	}
	return dir
}
