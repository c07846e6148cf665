package cache

import (
	"context"
	"time"

	"github.com/athebyme/gomarket-seeder/pkg/interfaces"
	gocache "github.com/patrickmn/go-cache"
)

// MemoryCache кэш в памяти процесса
type MemoryCache struct {
	cache *gocache.Cache
}

var _ interfaces.CachePort = (*MemoryCache)(nil)

// NewMemoryCache создает кэш со сроком хранения по умолчанию defaultTTL
func NewMemoryCache(defaultTTL, cleanupInterval time.Duration) *MemoryCache {
	return &MemoryCache{cache: gocache.New(defaultTTL, cleanupInterval)}
}

func (m *MemoryCache) Get(_ context.Context, key string) ([]byte, error) {
	v, found := m.cache.Get(key)
	if !found {
		return nil, interfaces.ErrCacheMiss
	}
	data, ok := v.([]byte)
	if !ok {
		return nil, interfaces.ErrCacheMiss
	}
	return data, nil
}

func (m *MemoryCache) Set(_ context.Context, key string, value []byte, expiration time.Duration) error {
	if expiration <= 0 {
		expiration = gocache.DefaultExpiration
	}
	m.cache.Set(key, value, expiration)
	return nil
}

func (m *MemoryCache) Delete(_ context.Context, key string) error {
	m.cache.Delete(key)
	return nil
}

func (m *MemoryCache) Close() error {
	m.cache.Flush()
	return nil
}
