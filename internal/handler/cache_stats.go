package handler

import (
	"net/http"
	"sync/atomic"
	"time"

	"github.com/nutriplan/api/internal/service"
)

type cacheCounter struct {
	hits   atomic.Int64
	misses atomic.Int64
	bypass atomic.Int64
	errors atomic.Int64
}

type cacheStatsSnapshot struct {
	Hits   int64 `json:"hits"`
	Misses int64 `json:"misses"`
	Bypass int64 `json:"bypass"`
	Errors int64 `json:"errors"`
}

func (c *cacheCounter) snapshot() cacheStatsSnapshot {
	return cacheStatsSnapshot{
		Hits:   c.hits.Load(),
		Misses: c.misses.Load(),
		Bypass: c.bypass.Load(),
		Errors: c.errors.Load(),
	}
}

var dashboardCacheCounter cacheCounter

type CacheStatsHandler struct {
	cache service.JSONCache
}

func NewCacheStatsHandler(cache service.JSONCache) *CacheStatsHandler {
	return &CacheStatsHandler{cache: cache}
}

// Get reports this process's counters and the shared per-minute buckets
// (catalog, dashboard, food-match misses) for the last ?minutes.
func (h *CacheStatsHandler) Get(w http.ResponseWriter, r *http.Request) {
	minutes := parseIntOrDefault(r.URL.Query().Get("minutes"), 60)
	if minutes < 1 || minutes > 7*24*60 {
		http.Error(w, "invalid minutes", http.StatusBadRequest)
		return
	}
	now := time.Now()
	from := now.Add(-time.Duration(minutes-1) * time.Minute)
	cacheTotals, err := h.cache.SumMetrics(r.Context(), "cache", from, now)
	if err != nil {
		http.Error(w, "failed to read cache metrics", http.StatusInternalServerError)
		return
	}
	nutritionTotals, err := h.cache.SumMetrics(r.Context(), "nutrition", from, now)
	if err != nil {
		http.Error(w, "failed to read nutrition metrics", http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]any{
		"minutes": minutes,
		"process": map[string]cacheStatsSnapshot{
			"dashboard": dashboardCacheCounter.snapshot(),
		},
		"cache":     cacheTotals,
		"nutrition": nutritionTotals,
	})
}
