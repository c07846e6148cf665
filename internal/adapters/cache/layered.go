package cache

import (
	"context"
	"errors"
	"time"

	"github.com/athebyme/gomarket-seeder/pkg/interfaces"
)

// LayeredCache двухуровневый кэш: локальный уровень заполняется из общего
type LayeredCache struct {
	local  interfaces.CachePort
	shared interfaces.CachePort
	// localTTL срок хранения значений, поднятых из общего уровня
	localTTL time.Duration
}

var _ interfaces.CachePort = (*LayeredCache)(nil)

func NewLayeredCache(local, shared interfaces.CachePort, localTTL time.Duration) *LayeredCache {
	return &LayeredCache{local: local, shared: shared, localTTL: localTTL}
}

func (l *LayeredCache) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := l.local.Get(ctx, key)
	if err == nil {
		return data, nil
	}
	if !errors.Is(err, interfaces.ErrCacheMiss) {
		return nil, err
	}

	data, err = l.shared.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	_ = l.local.Set(ctx, key, data, l.localTTL)
	return data, nil
}

func (l *LayeredCache) Set(ctx context.Context, key string, value []byte, expiration time.Duration) error {
	if err := l.local.Set(ctx, key, value, expiration); err != nil {
		return err
	}
	return l.shared.Set(ctx, key, value, expiration)
}

func (l *LayeredCache) Delete(ctx context.Context, key string) error {
	return errors.Join(l.local.Delete(ctx, key), l.shared.Delete(ctx, key))
}

func (l *LayeredCache) Close() error {
	return errors.Join(l.local.Close(), l.shared.Close())
}
