package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/athebyme/gomarket-seeder/pkg/interfaces"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCache_GetSetDelete(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(time.Minute, time.Minute)

	_, err := c.Get(ctx, "openapi")
	assert.ErrorIs(t, err, interfaces.ErrCacheMiss)

	require.NoError(t, c.Set(ctx, "openapi", []byte(`{"paths":{}}`), 0))
	data, err := c.Get(ctx, "openapi")
	require.NoError(t, err)
	assert.Equal(t, `{"paths":{}}`, string(data))

	require.NoError(t, c.Delete(ctx, "openapi"))
	_, err = c.Get(ctx, "openapi")
	assert.ErrorIs(t, err, interfaces.ErrCacheMiss)
}

func TestMemoryCache_Expiration(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(time.Minute, time.Minute)

	require.NoError(t, c.Set(ctx, "k", []byte("v"), time.Millisecond))
	time.Sleep(5 * time.Millisecond)
	_, err := c.Get(ctx, "k")
	assert.ErrorIs(t, err, interfaces.ErrCacheMiss)
}

type failingCache struct{ err error }

func (f failingCache) Get(context.Context, string) ([]byte, error) { return nil, f.err }
func (f failingCache) Set(context.Context, string, []byte, time.Duration) error { return f.err }
func (f failingCache) Delete(context.Context, string) error { return f.err }
func (f failingCache) Close() error { return nil }

func TestLayeredCache_BackfillsLocal(t *testing.T) {
	ctx := context.Background()
	local := NewMemoryCache(time.Minute, time.Minute)
	shared := NewMemoryCache(time.Minute, time.Minute)
	require.NoError(t, shared.Set(ctx, "k", []byte("v"), 0))

	layered := NewLayeredCache(local, shared, time.Minute)
	data, err := layered.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", string(data))

	data, err = local.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", string(data))
}

func TestLayeredCache_MissAndSharedError(t *testing.T) {
	ctx := context.Background()
	local := NewMemoryCache(time.Minute, time.Minute)

	layered := NewLayeredCache(local, NewMemoryCache(time.Minute, time.Minute), time.Minute)
	_, err := layered.Get(ctx, "absent")
	assert.ErrorIs(t, err, interfaces.ErrCacheMiss)

	boom := errors.New("redis down")
	broken := NewLayeredCache(local, failingCache{err: boom}, time.Minute)
	_, err = broken.Get(ctx, "absent")
	assert.ErrorIs(t, err, boom)

	err = broken.Set(ctx, "k", []byte("v"), 0)
	assert.ErrorIs(t, err, boom)
	data, err := local.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", string(data))
}
