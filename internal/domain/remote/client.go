// Package remote описывает клиент CRUD-операций над ресурсами платформы
package remote

import (
	"context"
	"fmt"

	"github.com/athebyme/gomarket-seeder/internal/domain/directory"
	"github.com/athebyme/gomarket-seeder/internal/domain/marketplace"
	"github.com/athebyme/gomarket-seeder/pkg/utils"
)

// ListOptions параметры запроса страницы списка
type ListOptions struct {
	Page     int
	PageSize int
	// Depth глубина дерева, учитывается только для категорий
	Depth string
}

// ListPage страница списка
type ListPage struct {
	Items []*marketplace.Record `json:"Items"`
	Meta  utils.Pagination      `json:"Meta"`
}

// Client операции над ресурсами каталога
type Client interface {
	// List возвращает страницу записей ресурса
	List(ctx context.Context, res *directory.Descriptor, routeParams []string, opts ListOptions) (*ListPage, error)

	// Create создает запись (или связь) и возвращает ее в том виде, в каком ее сохранила платформа
	Create(ctx context.Context, res *directory.Descriptor, routeParams []string, rec *marketplace.Record) (*marketplace.Record, error)

	// Patch частично обновляет запись
	Patch(ctx context.Context, res *directory.Descriptor, routeParams []string, id string, patch *marketplace.Record) (*marketplace.Record, error)

	// GenerateVariants создает варианты товара по его спецификациям
	GenerateVariants(ctx context.Context, productID string) (*marketplace.Record, error)

	// SaveVariant сохраняет вариант товара
	SaveVariant(ctx context.Context, productID, variantID string, variant *marketplace.Record) (*marketplace.Record, error)
}

// ErrorDetail структурированная ошибка платформы
type ErrorDetail struct {
	ErrorCode string `json:"ErrorCode"`
	Message   string `json:"Message"`
	Data      any    `json:"Data,omitempty"`
}

// APIError неуспешный ответ платформы вместе с контекстом запроса
type APIError struct {
	Method      string
	URL         string
	RequestBody string
	Status      int
	Errors      []ErrorDetail
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("%s %s: status %d", e.Method, e.URL, e.Status)
	if first := e.FirstError(); first != nil {
		msg += fmt.Sprintf(": %s: %s", first.ErrorCode, first.Message)
	}
	return msg
}

// FirstError первая структурированная ошибка ответа
func (e *APIError) FirstError() *ErrorDetail {
	if len(e.Errors) == 0 {
		return nil
	}
	return &e.Errors[0]
}
