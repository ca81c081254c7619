package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalogCacheServesSnapshotWithinTTL(t *testing.T) {
	src := &fakeCatalogSource{entries: testCatalog()}
	c := NewCatalogCache(src, nil, time.Hour)
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	first, err := c.Entries(context.Background())
	require.NoError(t, err)
	second, err := c.Entries(context.Background())
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, src.callCount())

	now = now.Add(2 * time.Hour)
	_, err = c.Entries(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, src.callCount())
}

func TestCatalogCacheSharedTier(t *testing.T) {
	shared := newMemCache()
	src := &fakeCatalogSource{entries: testCatalog()}

	_, err := NewCatalogCache(src, shared, time.Hour).Entries(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), shared.metric("cache", "catalog.miss"))

	// A second process finds the snapshot in the shared cache.
	entries, err := NewCatalogCache(src, shared, time.Hour).Entries(context.Background())
	require.NoError(t, err)
	assert.Len(t, entries, len(testCatalog()))
	assert.Equal(t, 1, src.callCount())
	assert.Equal(t, int64(1), shared.metric("cache", "catalog.hit"))
}

func TestCatalogCacheServesStaleSnapshotOnFailure(t *testing.T) {
	src := &fakeCatalogSource{entries: testCatalog()}
	c := NewCatalogCache(src, nil, time.Minute)
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	_, err := c.Entries(context.Background())
	require.NoError(t, err)

	src.err = errors.New("db down")
	now = now.Add(time.Hour)
	entries, err := c.Entries(context.Background())
	require.NoError(t, err)
	assert.Len(t, entries, len(testCatalog()))
}

func TestCatalogCacheFailsWithoutSnapshot(t *testing.T) {
	src := &fakeCatalogSource{err: errors.New("db down")}
	_, err := NewCatalogCache(src, nil, time.Hour).Entries(context.Background())
	assert.Error(t, err)
}

func TestCatalogCacheInvalidate(t *testing.T) {
	shared := newMemCache()
	src := &fakeCatalogSource{entries: testCatalog()}
	c := NewCatalogCache(src, shared, time.Hour)

	_, err := c.Entries(context.Background())
	require.NoError(t, err)
	c.Invalidate(context.Background())
	assert.Contains(t, shared.deleted, catalogCacheKey)

	_, err = c.Entries(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, src.callCount())
}

func TestCatalogCacheTTLFromEnv(t *testing.T) {
	t.Setenv("CATALOG_CACHE_TTL", "15m")
	assert.Equal(t, 15*time.Minute, CatalogCacheTTLFromEnv())
	t.Setenv("CATALOG_CACHE_TTL", "soon")
	assert.Equal(t, defaultCatalogCacheTTL, CatalogCacheTTLFromEnv())
}
