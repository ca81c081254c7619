package service

import (
	"context"
	"fmt"
	"log"
	"os"
	"sync/atomic"
	"time"

	"github.com/nutriplan/api/internal/model"
)

const (
	catalogCacheKey        = "catalog:v1"
	defaultCatalogCacheTTL = time.Hour
	cacheMetricTTL         = 8 * 24 * time.Hour
)

type CatalogSource interface {
	ListAll(ctx context.Context) ([]model.CatalogEntry, error)
}

type catalogSnapshot struct {
	entries  []model.CatalogEntry
	loadedAt time.Time
}

// CatalogCache keeps the food catalog in process for ttl, backed by the
// shared JSON cache and then Postgres. Concurrent refreshes may race; the
// last one to finish wins.
type CatalogCache struct {
	source CatalogSource
	cache  JSONCache
	ttl    time.Duration
	now    func() time.Time
	snap   atomic.Pointer[catalogSnapshot]
}

func NewCatalogCache(source CatalogSource, cache JSONCache, ttl time.Duration) *CatalogCache {
	if ttl <= 0 {
		ttl = defaultCatalogCacheTTL
	}
	if cache == nil {
		cache = NoopJSONCache{}
	}
	return &CatalogCache{source: source, cache: cache, ttl: ttl, now: time.Now}
}

func CatalogCacheTTLFromEnv() time.Duration {
	v := os.Getenv("CATALOG_CACHE_TTL")
	if v == "" {
		return defaultCatalogCacheTTL
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		log.Printf("invalid CATALOG_CACHE_TTL=%q, using %s", v, defaultCatalogCacheTTL)
		return defaultCatalogCacheTTL
	}
	return d
}

func (c *CatalogCache) Entries(ctx context.Context) ([]model.CatalogEntry, error) {
	if s := c.snap.Load(); s != nil && c.now().Sub(s.loadedAt) < c.ttl {
		return s.entries, nil
	}

	var cached []model.CatalogEntry
	ok, err := c.cache.GetJSON(ctx, catalogCacheKey, &cached)
	if err != nil {
		_ = c.cache.IncrMetric(ctx, "cache", "catalog.error", 1, c.now(), cacheMetricTTL)
		log.Printf("catalog cache get failed key=%s err=%v", catalogCacheKey, err)
	}
	if ok && len(cached) > 0 {
		_ = c.cache.IncrMetric(ctx, "cache", "catalog.hit", 1, c.now(), cacheMetricTTL)
		c.snap.Store(&catalogSnapshot{entries: cached, loadedAt: c.now()})
		return cached, nil
	}
	_ = c.cache.IncrMetric(ctx, "cache", "catalog.miss", 1, c.now(), cacheMetricTTL)
	return c.Refresh(ctx)
}

// Refresh reloads from storage. A stale snapshot is served if storage fails.
func (c *CatalogCache) Refresh(ctx context.Context) ([]model.CatalogEntry, error) {
	entries, err := c.source.ListAll(ctx)
	if err != nil {
		if s := c.snap.Load(); s != nil {
			log.Printf("catalog reload failed, serving snapshot from %s: %v", s.loadedAt.Format(time.RFC3339), err)
			return s.entries, nil
		}
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	c.snap.Store(&catalogSnapshot{entries: entries, loadedAt: c.now()})
	if err := c.cache.SetJSON(ctx, catalogCacheKey, entries, c.ttl); err != nil {
		log.Printf("catalog cache set failed key=%s err=%v", catalogCacheKey, err)
	}
	return entries, nil
}

func (c *CatalogCache) Invalidate(ctx context.Context) {
	c.snap.Store(nil)
	if err := c.cache.Delete(ctx, catalogCacheKey); err != nil {
		log.Printf("catalog cache delete failed key=%s err=%v", catalogCacheKey, err)
	}
}
