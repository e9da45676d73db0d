package redis

import (
	"context"
	"errors"
	"time"

	"github.com/behavior-hub/behavior-hub/internal/domain/catalog"
	"github.com/behavior-hub/behavior-hub/internal/domain/shared"
	"github.com/behavior-hub/behavior-hub/pkg/circuitbreaker"
	"github.com/behavior-hub/behavior-hub/pkg/logger"
)

// KV is the slice of Cache used by CatalogCache.
type KV interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// CatalogCache is a read-through cache in front of a catalog.Catalog.
// Cache failures fall through to the store; they never fail a read.
type CatalogCache struct {
	next    catalog.Catalog
	kv      KV
	ttl     time.Duration
	breaker *circuitbreaker.CircuitBreaker
	logger  *logger.Logger
}

// NewCatalogCache wraps next. A non-positive ttl uses TTLCatalog.
func NewCatalogCache(next catalog.Catalog, kv KV, ttl time.Duration, log *logger.Logger) *CatalogCache {
	if ttl <= 0 {
		ttl = TTLCatalog
	}
	if log == nil {
		log = logger.Default()
	}
	return &CatalogCache{next: next, kv: kv, ttl: ttl, logger: log.With(logger.Component("catalog_cache"))}
}

// WithBreaker routes cache calls through cb. While it is open the cache is skipped.
func (c *CatalogCache) WithBreaker(cb *circuitbreaker.CircuitBreaker) *CatalogCache {
	c.breaker = cb
	return c
}

func (c *CatalogCache) get(ctx context.Context, key string, dest interface{}) error {
	if c.breaker == nil {
		return c.kv.Get(ctx, key, dest)
	}
	var miss bool
	err := c.breaker.ExecuteWithFallback(ctx, func(ctx context.Context) error {
		err := c.kv.Get(ctx, key, dest)
		if errors.Is(err, ErrCacheMiss) {
			miss = true
			return nil
		}
		return err
	}, skipCache)
	if miss || errors.Is(err, errCacheSkipped) {
		return ErrCacheMiss
	}
	return err
}

func (c *CatalogCache) set(ctx context.Context, key string, value interface{}) error {
	if c.breaker == nil {
		return c.kv.Set(ctx, key, value, c.ttl)
	}
	err := c.breaker.ExecuteWithFallback(ctx, func(ctx context.Context) error {
		return c.kv.Set(ctx, key, value, c.ttl)
	}, skipCache)
	if errors.Is(err, errCacheSkipped) {
		return nil
	}
	return err
}

// errCacheSkipped marks a call rejected by an open breaker. Reads turn it into
// a miss and writes drop it, so an open breaker does not log on every request.
var errCacheSkipped = errors.New("cache skipped: circuit open")

func skipCache(error) error { return errCacheSkipped }

// ListActive returns active domains, from cache when present.
func (c *CatalogCache) ListActive(ctx context.Context) ([]catalog.BehavioralDomain, error) {
	var cached []catalog.BehavioralDomain
	err := c.get(ctx, CatalogActiveKey(), &cached)
	if err == nil {
		return cached, nil
	}
	c.logMiss(err, CatalogActiveKey())

	domains, err := c.next.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	if err := c.set(ctx, CatalogActiveKey(), domains); err != nil {
		c.logger.Warn("catalog cache write failed", logger.Err(err))
	}
	return domains, nil
}

// GetByID returns a domain, from cache when present. Not-found is never cached.
func (c *CatalogCache) GetByID(ctx context.Context, id shared.DomainID) (*catalog.BehavioralDomain, error) {
	key := CatalogDomainKey(id.String())

	var cached catalog.BehavioralDomain
	err := c.get(ctx, key, &cached)
	if err == nil {
		return &cached, nil
	}
	c.logMiss(err, key)

	d, err := c.next.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := c.set(ctx, key, d); err != nil {
		c.logger.Warn("catalog cache write failed", logger.Err(err))
	}
	return d, nil
}

// Invalidate drops the cached list and the given domains.
func (c *CatalogCache) Invalidate(ctx context.Context, ids ...shared.DomainID) error {
	keys := []string{CatalogActiveKey()}
	for _, id := range ids {
		keys = append(keys, CatalogDomainKey(id.String()))
	}
	return c.kv.Delete(ctx, keys...)
}

func (c *CatalogCache) logMiss(err error, key string) {
	if errors.Is(err, ErrCacheMiss) {
		return
	}
	c.logger.Warn("catalog cache read failed", logger.String("key", key), logger.Err(err))
}
