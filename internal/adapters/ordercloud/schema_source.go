package ordercloud

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/athebyme/gomarket-seeder/internal/domain/directory"
	"github.com/athebyme/gomarket-seeder/pkg/interfaces"
	"golang.org/x/sync/singleflight"
)

// DefaultSchemaCacheTTL срок хранения сырого OpenAPI документа в кэше
const DefaultSchemaCacheTTL = 24 * time.Hour

// SchemaURL адрес OpenAPI документа для базового адреса API
func SchemaURL(baseURL string) string {
	return baseURL + apiVersionPrefix + "/openapi/v3"
}

// SchemaSource загружает OpenAPI документ платформы.
// Одновременные вызовы разделяют одну загрузку, сырой документ кэшируется.
type SchemaSource struct {
	url    string
	client *http.Client
	cache  interfaces.CachePort
	ttl    time.Duration
	log    interfaces.LoggerPort

	group  singleflight.Group
	mu     sync.Mutex
	parsed *directory.OpenAPISpec
}

var _ directory.SchemaSource = (*SchemaSource)(nil)

// NewSchemaSource создает источник схемы; cache может быть nil
func NewSchemaSource(schemaURL string, httpClient *http.Client, cache interfaces.CachePort, ttl time.Duration, log interfaces.LoggerPort) *SchemaSource {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	if ttl <= 0 {
		ttl = DefaultSchemaCacheTTL
	}
	return &SchemaSource{
		url:    schemaURL,
		client: httpClient,
		cache:  cache,
		ttl:    ttl,
		log:    log,
	}
}

func (s *SchemaSource) cacheKey() string {
	return "openapi:" + s.url
}

func (s *SchemaSource) OpenAPI(ctx context.Context) (*directory.OpenAPISpec, error) {
	s.mu.Lock()
	if s.parsed != nil {
		spec := s.parsed
		s.mu.Unlock()
		return spec, nil
	}
	s.mu.Unlock()

	v, err, _ := s.group.Do(s.url, func() (interface{}, error) {
		data, err := s.raw(ctx)
		if err != nil {
			return nil, err
		}
		spec, err := directory.ParseOpenAPI(data)
		if err != nil {
			return nil, err
		}
		s.mu.Lock()
		s.parsed = spec
		s.mu.Unlock()
		return spec, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*directory.OpenAPISpec), nil
}

// raw возвращает документ из кэша или скачивает его
func (s *SchemaSource) raw(ctx context.Context) ([]byte, error) {
	if s.cache != nil {
		data, err := s.cache.Get(ctx, s.cacheKey())
		switch {
		case err == nil:
			return data, nil
		case !errors.Is(err, interfaces.ErrCacheMiss) && s.log != nil:
			s.log.Warn("Кэш схемы недоступен", interfaces.LogField{Key: "error", Value: err.Error()})
		}
	}

	data, err := s.fetch(ctx)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, s.cacheKey(), data, s.ttl); err != nil && s.log != nil {
			s.log.Warn("Не удалось сохранить схему в кэш", interfaces.LogField{Key: "error", Value: err.Error()})
		}
	}
	return data, nil
}

func (s *SchemaSource) fetch(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create schema request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch schema %s: %w", s.url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch schema %s: status %d", s.url, resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read schema: %w", err)
	}
	if s.log != nil {
		s.log.Debug("Схема API загружена", interfaces.LogField{Key: "bytes", Value: len(data)})
	}
	return data, nil
}
