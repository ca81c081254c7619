package handler

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/nutriplan/api/internal/middleware"
	"github.com/nutriplan/api/internal/model"
	"github.com/nutriplan/api/internal/service"
	"github.com/nutriplan/api/internal/timeutil"
)

const maxMealPhotoBytes = 8 << 20

type mealLister interface {
	ListSince(ctx context.Context, userID string, since time.Time) ([]model.MealLog, error)
}

type MealHandler struct {
	meals     *service.MealService
	nutrition *service.NutritionService
	repo      mealLister
	limiter   *service.RateLimiter
	limit     service.RateLimitOptions
}

func NewMealHandler(meals *service.MealService, nutrition *service.NutritionService, repo mealLister, limiter *service.RateLimiter, imageLimit service.RateLimitOptions) *MealHandler {
	return &MealHandler{meals: meals, nutrition: nutrition, repo: repo, limiter: limiter, limit: imageLimit}
}

// parseAt reads an optional timestamp; empty means now.
func parseAt(v string) (time.Time, bool) {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Now(), true
	}
	t, err := timeutil.ParseLocal(v)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

func (h *MealHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r)
	var body struct {
		MealType string `json:"meal_type"`
		Text     string `json:"text"`
		At       string `json:"at"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	at, ok := parseAt(body.At)
	if !ok {
		http.Error(w, "invalid at", http.StatusBadRequest)
		return
	}
	meal, err := h.meals.LogText(r.Context(), userID, body.MealType, body.Text, at)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, meal)
}

func (h *MealHandler) Preview(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r)
	var body struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(body.Text) == "" {
		writeServiceError(w, service.ErrEmptyMeal)
		return
	}
	res, err := h.nutrition.ResolveMeal(r.Context(), body.Text, userID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, res)
}

func (h *MealHandler) CreateFromImage(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r)
	if h.limiter != nil {
		opts := h.limit
		opts.UserID = &userID
		opts.IP = middleware.ClientIP(r)
		if err := h.limiter.Enforce(r.Context(), opts); err != nil {
			writeServiceError(w, err)
			return
		}
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxMealPhotoBytes+1<<20)
	if err := r.ParseMultipartForm(maxMealPhotoBytes); err != nil {
		http.Error(w, "invalid multipart form", http.StatusBadRequest)
		return
	}
	file, header, err := r.FormFile("photo")
	if err != nil {
		http.Error(w, "photo is required", http.StatusBadRequest)
		return
	}
	defer file.Close()
	image, err := io.ReadAll(io.LimitReader(file, maxMealPhotoBytes+1))
	if err != nil {
		http.Error(w, "failed to read photo", http.StatusBadRequest)
		return
	}
	if len(image) == 0 || len(image) > maxMealPhotoBytes {
		http.Error(w, "photo is empty or too large", http.StatusBadRequest)
		return
	}
	mimeType := header.Header.Get("Content-Type")
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = http.DetectContentType(image)
	}
	if !strings.HasPrefix(mimeType, "image/") {
		http.Error(w, "photo must be an image", http.StatusBadRequest)
		return
	}
	at, ok := parseAt(r.FormValue("at"))
	if !ok {
		http.Error(w, "invalid at", http.StatusBadRequest)
		return
	}

	meal, res, err := h.meals.LogImage(r.Context(), userID, r.FormValue("meal_type"), image, mimeType, at)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, map[string]any{
		"meal":     meal,
		"raw_text": res.RawText,
		"source":   res.Source,
		"notes":    res.Notes,
	})
}

func (h *MealHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r)
	days := parseIntOrDefault(r.URL.Query().Get("days"), 7)
	if days < 1 || days > 90 {
		http.Error(w, "invalid days", http.StatusBadRequest)
		return
	}
	since := timeutil.StartOfDay(time.Now()).AddDate(0, 0, -(days - 1))
	rows, err := h.repo.ListSince(r.Context(), userID, since)
	if err != nil {
		writeRepoError(w, err)
		return
	}
	writeJSON(w, rows)
}
