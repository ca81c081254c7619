package handler

import (
	"context"
	"encoding/json"
	"log"
	"math"
	"net/http"
	"time"

	"github.com/nutriplan/api/internal/middleware"
	"github.com/nutriplan/api/internal/model"
	"github.com/nutriplan/api/internal/service"
)

type waterStore interface {
	Insert(ctx context.Context, userID string, ml int, at time.Time) (*model.WaterLog, error)
	ListSince(ctx context.Context, userID string, since time.Time) ([]model.WaterLog, error)
	SumSince(ctx context.Context, userID string, since time.Time) (int, error)
}

type weighInStore interface {
	Insert(ctx context.Context, userID string, weightKg float64, at time.Time) (*model.WeighIn, error)
	List(ctx context.Context, userID string, limit int) ([]model.WeighIn, error)
}

type profileStore interface {
	GetByUserID(ctx context.Context, userID string) (*model.Profile, error)
	UpsertHeight(ctx context.Context, userID string, heightCm *float64) (*model.Profile, error)
}

// TrackingHandler covers the small logging endpoints: water, weight and
// profile height.
type TrackingHandler struct {
	water    waterStore
	weights  weighInStore
	profiles profileStore
	cache    service.JSONCache
}

func NewTrackingHandler(water waterStore, weights weighInStore, profiles profileStore, cache service.JSONCache) *TrackingHandler {
	if cache == nil {
		cache = service.NoopJSONCache{}
	}
	return &TrackingHandler{water: water, weights: weights, profiles: profiles, cache: cache}
}

func (h *TrackingHandler) invalidateDashboard(r *http.Request, userID string) {
	if err := h.cache.Delete(r.Context(), service.DashboardCacheKey(userID)); err != nil {
		log.Printf("dashboard cache delete failed user_id=%s err=%v", userID, err)
	}
}

func (h *TrackingHandler) AddWater(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r)
	var body struct {
		Ml int    `json:"ml"`
		At string `json:"at"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	if body.Ml <= 0 || body.Ml > 5000 {
		http.Error(w, "ml must be between 1 and 5000", http.StatusBadRequest)
		return
	}
	at, ok := parseAt(body.At)
	if !ok {
		http.Error(w, "invalid at", http.StatusBadRequest)
		return
	}
	row, err := h.water.Insert(r.Context(), userID, body.Ml, at)
	if err != nil {
		writeRepoError(w, err)
		return
	}
	h.invalidateDashboard(r, userID)
	writeJSONStatus(w, http.StatusCreated, row)
}

func (h *TrackingHandler) ListWater(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r)
	since := time.Now().Add(-24 * time.Hour)
	rows, err := h.water.ListSince(r.Context(), userID, since)
	if err != nil {
		writeRepoError(w, err)
		return
	}
	total, err := h.water.SumSince(r.Context(), userID, since)
	if err != nil {
		writeRepoError(w, err)
		return
	}
	writeJSON(w, map[string]any{"items": rows, "total_ml_24h": total})
}

func (h *TrackingHandler) AddWeight(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r)
	var body struct {
		WeightKg float64 `json:"weight_kg"`
		At       string  `json:"at"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	if math.IsNaN(body.WeightKg) || body.WeightKg < 20 || body.WeightKg > 400 {
		http.Error(w, "weight_kg must be between 20 and 400", http.StatusBadRequest)
		return
	}
	at, ok := parseAt(body.At)
	if !ok {
		http.Error(w, "invalid at", http.StatusBadRequest)
		return
	}
	row, err := h.weights.Insert(r.Context(), userID, body.WeightKg, at)
	if err != nil {
		writeRepoError(w, err)
		return
	}
	h.invalidateDashboard(r, userID)
	writeJSONStatus(w, http.StatusCreated, row)
}

func (h *TrackingHandler) ListWeight(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r)
	limit := parseIntOrDefault(r.URL.Query().Get("limit"), 30)
	if limit < 1 || limit > 365 {
		http.Error(w, "invalid limit", http.StatusBadRequest)
		return
	}
	rows, err := h.weights.List(r.Context(), userID, limit)
	if err != nil {
		writeRepoError(w, err)
		return
	}
	writeJSON(w, rows)
}

func (h *TrackingHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	p, err := h.profiles.GetByUserID(r.Context(), middleware.GetUserID(r))
	if err != nil {
		writeRepoError(w, err)
		return
	}
	writeJSON(w, p)
}

func (h *TrackingHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r)
	var body struct {
		HeightCm *float64 `json:"height_cm"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	if body.HeightCm != nil && (math.IsNaN(*body.HeightCm) || *body.HeightCm < 50 || *body.HeightCm > 260) {
		http.Error(w, "height_cm must be between 50 and 260", http.StatusBadRequest)
		return
	}
	p, err := h.profiles.UpsertHeight(r.Context(), userID, body.HeightCm)
	if err != nil {
		writeRepoError(w, err)
		return
	}
	h.invalidateDashboard(r, userID)
	writeJSON(w, p)
}
