package service

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/nutriplan/api/internal/model"
)

// MapItemsToMacros resolves parsed items against a catalog snapshot. An item
// with no match contributes zero and keeps a nil MatchedCatalogName.
func MapItemsToMacros(items []model.ParsedItem, catalog []model.CatalogEntry) (model.MealResolution, []string) {
	resolved := make([]model.ResolvedItem, 0, len(items))
	macros := make([]model.Macro, 0, len(items))
	var misses []string
	for _, it := range items {
		r := model.ResolvedItem{Name: it.Name, Qty: it.Qty, Unit: it.Unit}
		if entry, ok := MatchFood(it.Name, catalog); ok {
			name := entry.Name
			r.MatchedCatalogName = &name
			r.Macros = ScaleMacros(*entry, PortionFactor(entry.UnitBasis, it.Unit, it.Qty))
		} else {
			misses = append(misses, it.Name)
		}
		resolved = append(resolved, r)
		macros = append(macros, r.Macros)
	}
	return model.MealResolution{Items: resolved, Total: SumMacros(macros)}, misses
}

type NutritionService struct {
	catalog *CatalogCache
	cache   JSONCache
	vision  MealVision
	keys    APIKeyResolver
	usage   LLMUsageRecorder
}

func NewNutritionService(catalog *CatalogCache, cache JSONCache, vision MealVision, keys APIKeyResolver, usage LLMUsageRecorder) *NutritionService {
	if cache == nil {
		cache = NoopJSONCache{}
	}
	return &NutritionService{catalog: catalog, cache: cache, vision: vision, keys: keys, usage: usage}
}

func (s *NutritionService) ResolveMeal(ctx context.Context, rawText, userID string) (*model.MealResolution, error) {
	return s.ResolveItems(ctx, ParseItemsFromText(rawText), userID)
}

func (s *NutritionService) ResolveItems(ctx context.Context, items []model.ParsedItem, userID string) (*model.MealResolution, error) {
	catalog, err := s.catalog.Entries(ctx)
	if err != nil {
		return nil, err
	}
	res, misses := MapItemsToMacros(items, catalog)
	for _, name := range misses {
		log.Printf("food match miss user_id=%s name=%q", userID, name)
		_ = s.cache.IncrMetric(ctx, "nutrition", "match.miss", 1, time.Now(), cacheMetricTTL)
	}
	if len(items) > 0 {
		_ = s.cache.IncrMetric(ctx, "nutrition", "match.hit", int64(len(items)-len(misses)), time.Now(), cacheMetricTTL)
	}
	return &res, nil
}

func (s *NutritionService) ResolveMealFromImage(ctx context.Context, image []byte, mimeType, userID string) (*model.ImageMealResolution, error) {
	if s.vision == nil || s.keys == nil {
		return nil, ErrVisionUnavailable
	}
	apiKey, err := s.keys.GeminiAPIKey(ctx, userID)
	if err != nil {
		return nil, err
	}
	if apiKey == "" {
		return nil, ErrVisionUnavailable
	}
	vr, err := s.vision.ExtractItems(ctx, apiKey, image, mimeType)
	if err != nil {
		return nil, err
	}
	if s.usage != nil {
		s.usage.Record(ctx, "meal_image", vr.LLM, userID)
	}
	items := vr.Items
	if items == nil {
		text, ok := visionFallbackText(vr.RawText)
		if !ok {
			log.Printf("vision output had no usable items user_id=%s", userID)
		}
		items = ParseItemsFromText(text)
	}
	res, err := s.ResolveItems(ctx, items, userID)
	if err != nil {
		return nil, err
	}
	return &model.ImageMealResolution{
		MealResolution: *res,
		RawText:        vr.RawText,
		Source:         vr.Source,
		Notes:          vr.Notes,
	}, nil
}

// visionFallbackText returns model output that reads as a plain meal
// description. Fenced or JSON-shaped output that failed structured decoding is
// dropped rather than split on its commas.
func visionFallbackText(raw string) (string, bool) {
	text := strings.TrimSpace(raw)
	if text == "" || strings.Contains(text, "```") {
		return "", false
	}
	if _, ok := firstJSONObject(text); ok || strings.HasPrefix(text, "{") || strings.HasPrefix(text, "[") {
		return "", false
	}
	return text, true
}
