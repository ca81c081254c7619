package handler

import (
	"log"
	"net/http"
	"time"

	"github.com/nutriplan/api/internal/middleware"
	"github.com/nutriplan/api/internal/model"
	"github.com/nutriplan/api/internal/service"
)

const cacheMetricTTL = 8 * 24 * time.Hour

type DashboardHandler struct {
	builder *service.DashboardBuilder
	cache   service.JSONCache
}

func NewDashboardHandler(builder *service.DashboardBuilder, cache service.JSONCache) *DashboardHandler {
	return &DashboardHandler{builder: builder, cache: cache}
}

func (h *DashboardHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r)
	cacheKey := service.DashboardCacheKey(userID)
	cacheBust := r.URL.Query().Get("cache_bust") == "1"
	if h.cache != nil && !cacheBust {
		var cached model.DashboardToday
		if ok, err := h.cache.GetJSON(r.Context(), cacheKey, &cached); err == nil && ok {
			dashboardCacheCounter.hits.Add(1)
			_ = h.cache.IncrMetric(r.Context(), "cache", "dashboard.hit", 1, time.Now(), cacheMetricTTL)
			writeJSON(w, cached)
			return
		} else if err != nil {
			dashboardCacheCounter.errors.Add(1)
			_ = h.cache.IncrMetric(r.Context(), "cache", "dashboard.error", 1, time.Now(), cacheMetricTTL)
			log.Printf("dashboard cache get failed user_id=%s key=%s err=%v", userID, cacheKey, err)
		}
		dashboardCacheCounter.misses.Add(1)
		_ = h.cache.IncrMetric(r.Context(), "cache", "dashboard.miss", 1, time.Now(), cacheMetricTTL)
	} else if cacheBust {
		dashboardCacheCounter.bypass.Add(1)
		if h.cache != nil {
			_ = h.cache.IncrMetric(r.Context(), "cache", "dashboard.bypass", 1, time.Now(), cacheMetricTTL)
		}
	}

	resp, err := h.builder.Today(r.Context(), userID, time.Now())
	if err != nil {
		writeRepoError(w, err)
		return
	}
	if h.cache != nil {
		if err := h.cache.SetJSON(r.Context(), cacheKey, resp, service.DashboardCacheTTL); err != nil {
			dashboardCacheCounter.errors.Add(1)
			_ = h.cache.IncrMetric(r.Context(), "cache", "dashboard.error", 1, time.Now(), cacheMetricTTL)
			log.Printf("dashboard cache set failed user_id=%s key=%s err=%v", userID, cacheKey, err)
		}
	}
	writeJSON(w, resp)
}
