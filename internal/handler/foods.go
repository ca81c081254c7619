package handler

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"strings"

	"github.com/nutriplan/api/internal/model"
	"github.com/nutriplan/api/internal/service"
)

type foodCatalogWriter interface {
	UpsertMany(ctx context.Context, entries []model.CatalogEntry) (int, error)
}

type FoodHandler struct {
	catalog *service.CatalogCache
	repo    foodCatalogWriter
}

func NewFoodHandler(catalog *service.CatalogCache, repo foodCatalogWriter) *FoodHandler {
	return &FoodHandler{catalog: catalog, repo: repo}
}

func (h *FoodHandler) List(w http.ResponseWriter, r *http.Request) {
	entries, err := h.catalog.Entries(r.Context())
	if err != nil {
		writeRepoError(w, err)
		return
	}
	q := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("q")))
	if q == "" {
		writeJSON(w, entries)
		return
	}
	out := make([]model.CatalogEntry, 0, len(entries))
	for _, e := range entries {
		if strings.Contains(strings.ToLower(e.Name), q) {
			out = append(out, e)
		}
	}
	writeJSON(w, out)
}

func validCatalogEntry(e model.CatalogEntry) bool {
	if strings.TrimSpace(e.Name) == "" || !strings.HasPrefix(e.UnitBasis, "per_") {
		return false
	}
	for _, v := range []float64{e.Calories, e.Protein, e.Carbs, e.Fat} {
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// Seed upserts catalog rows by name and drops the cached catalog.
func (h *FoodHandler) Seed(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Items []model.CatalogEntry `json:"items"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || len(body.Items) == 0 {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	for i := range body.Items {
		body.Items[i].Name = strings.TrimSpace(body.Items[i].Name)
		body.Items[i].UnitBasis = strings.ToLower(strings.TrimSpace(body.Items[i].UnitBasis))
		if !validCatalogEntry(body.Items[i]) {
			http.Error(w, "invalid item: "+body.Items[i].Name, http.StatusBadRequest)
			return
		}
	}
	n, err := h.repo.UpsertMany(r.Context(), body.Items)
	if err != nil {
		writeRepoError(w, err)
		return
	}
	h.catalog.Invalidate(r.Context())
	writeJSON(w, map[string]any{"upserted": n})
}
