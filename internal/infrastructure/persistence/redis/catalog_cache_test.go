package redis

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/behavior-hub/behavior-hub/internal/domain/catalog"
	"github.com/behavior-hub/behavior-hub/internal/domain/shared"
	"github.com/behavior-hub/behavior-hub/pkg/circuitbreaker"
	"github.com/behavior-hub/behavior-hub/pkg/logger"
)

// mapKV stores JSON like Cache does.
type mapKV struct {
	data    map[string][]byte
	failGet error
	sets    int
}

func newMapKV() *mapKV { return &mapKV{data: make(map[string][]byte)} }

func (m *mapKV) Get(_ context.Context, key string, dest interface{}) error {
	if m.failGet != nil {
		return m.failGet
	}
	raw, ok := m.data[key]
	if !ok {
		return ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (m *mapKV) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.sets++
	m.data[key] = raw
	return nil
}

func (m *mapKV) Delete(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(m.data, k)
	}
	return nil
}

type countingCatalog struct {
	domains []catalog.BehavioralDomain
	lists   int
	gets    int
}

func (c *countingCatalog) ListActive(context.Context) ([]catalog.BehavioralDomain, error) {
	c.lists++
	return c.domains, nil
}

func (c *countingCatalog) GetByID(_ context.Context, id shared.DomainID) (*catalog.BehavioralDomain, error) {
	c.gets++
	for _, d := range c.domains {
		if d.ID == id {
			d := d
			return &d, nil
		}
	}
	return nil, shared.ErrDomainNotFound
}

func newCatalog() *countingCatalog {
	return &countingCatalog{domains: []catalog.BehavioralDomain{
		{ID: "d-respect", Key: "respect", DisplayName: "Respect", IsActive: true},
		{ID: "d-safety", Key: "safety", DisplayName: "Safety", IsActive: true},
	}}
}

func TestCatalogCache_ListActiveReadsThrough(t *testing.T) {
	ctx := context.Background()
	store := newCatalog()
	cache := NewCatalogCache(store, newMapKV(), 0, logger.Discard())

	first, err := cache.ListActive(ctx)
	require.NoError(t, err)
	second, err := cache.ListActive(ctx)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, store.lists)
}

func TestCatalogCache_GetByID(t *testing.T) {
	ctx := context.Background()
	store := newCatalog()
	kv := newMapKV()
	cache := NewCatalogCache(store, kv, time.Minute, logger.Discard())

	d, err := cache.GetByID(ctx, "d-safety")
	require.NoError(t, err)
	assert.Equal(t, "safety", d.Key)

	_, err = cache.GetByID(ctx, "d-safety")
	require.NoError(t, err)
	assert.Equal(t, 1, store.gets)

	_, err = cache.GetByID(ctx, "d-missing")
	assert.True(t, shared.IsNotFound(err))
	_, err = cache.GetByID(ctx, "d-missing")
	assert.True(t, shared.IsNotFound(err))
	assert.Equal(t, 3, store.gets, "not-found must not be cached")

	require.NoError(t, cache.Invalidate(ctx, "d-safety"))
	_, err = cache.GetByID(ctx, "d-safety")
	require.NoError(t, err)
	assert.Equal(t, 4, store.gets)
}

func TestCatalogCache_FallsThroughOnCacheFailure(t *testing.T) {
	ctx := context.Background()
	store := newCatalog()
	kv := newMapKV()
	kv.failGet = errors.New("connection refused")
	cache := NewCatalogCache(store, kv, time.Minute, logger.Discard())

	domains, err := cache.ListActive(ctx)
	require.NoError(t, err)
	assert.Len(t, domains, 2)

	_, err = cache.ListActive(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, store.lists)
}

func TestKeys(t *testing.T) {
	assert.Equal(t, "catalog:active", CatalogActiveKey())
	assert.Equal(t, "catalog:domain:d-1", CatalogDomainKey("d-1"))
}

func TestCatalogCache_BreakerSkipsFailingCache(t *testing.T) {
	ctx := context.Background()
	store := newCatalog()
	kv := newMapKV()
	kv.failGet = errors.New("connection refused")
	cb := circuitbreaker.New("test-cache", circuitbreaker.WithFailureThreshold(1), circuitbreaker.WithTimeout(time.Hour))
	cache := NewCatalogCache(store, kv, time.Minute, logger.Discard()).WithBreaker(cb)

	for i := 0; i < 3; i++ {
		_, err := cache.GetByID(ctx, "d-respect")
		require.NoError(t, err)
	}
	assert.True(t, cb.IsOpen())
	assert.Equal(t, 3, store.gets)
	assert.Zero(t, kv.sets)

	// While open, reads are misses and writes are dropped without error.
	var d catalog.BehavioralDomain
	assert.ErrorIs(t, cache.get(ctx, CatalogDomainKey("d-respect"), &d), ErrCacheMiss)
	assert.NoError(t, cache.set(ctx, CatalogDomainKey("d-respect"), d))
	assert.Zero(t, kv.sets)
}

func TestCatalogCache_MissDoesNotTripBreaker(t *testing.T) {
	ctx := context.Background()
	cb := circuitbreaker.New("test-cache", circuitbreaker.WithFailureThreshold(1))
	cache := NewCatalogCache(newCatalog(), newMapKV(), time.Minute, logger.Discard()).WithBreaker(cb)

	_, err := cache.ListActive(ctx)
	require.NoError(t, err)
	assert.True(t, cb.IsClosed())
}
