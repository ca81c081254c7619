package service

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/nutriplan/api/internal/model"
)

const maxStoredRawText = 8000

type MealLogStore interface {
	Insert(ctx context.Context, m model.MealLog) (*model.MealLog, error)
}

type MealService struct {
	nutrition *NutritionService
	meals     MealLogStore
	cache     JSONCache
}

func NewMealService(nutrition *NutritionService, meals MealLogStore, cache JSONCache) *MealService {
	if cache == nil {
		cache = NoopJSONCache{}
	}
	return &MealService{nutrition: nutrition, meals: meals, cache: cache}
}

// NormalizeMealType maps free-form input onto the four stored meal types.
// Anything unrecognized is a snack.
func NormalizeMealType(v string) string {
	switch strings.ToUpper(strings.TrimSpace(v)) {
	case model.MealTypeBreakfast:
		return model.MealTypeBreakfast
	case model.MealTypeLunch:
		return model.MealTypeLunch
	case model.MealTypeDinner:
		return model.MealTypeDinner
	default:
		return model.MealTypeSnack
	}
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n])
}

func (s *MealService) LogText(ctx context.Context, userID, mealType, rawText string, at time.Time) (*model.MealLog, error) {
	rawText = strings.TrimSpace(rawText)
	if rawText == "" {
		return nil, ErrEmptyMeal
	}
	res, err := s.nutrition.ResolveMeal(ctx, rawText, userID)
	if err != nil {
		return nil, err
	}
	return s.store(ctx, userID, mealType, rawText, at, res)
}

func (s *MealService) LogImage(ctx context.Context, userID, mealType string, image []byte, mimeType string, at time.Time) (*model.MealLog, *model.ImageMealResolution, error) {
	res, err := s.nutrition.ResolveMealFromImage(ctx, image, mimeType, userID)
	if err != nil {
		return nil, nil, err
	}
	saved, err := s.store(ctx, userID, mealType, res.RawText, at, &res.MealResolution)
	if err != nil {
		return nil, nil, err
	}
	return saved, res, nil
}

func (s *MealService) store(ctx context.Context, userID, mealType, rawText string, at time.Time, res *model.MealResolution) (*model.MealLog, error) {
	if at.IsZero() {
		at = time.Now()
	}
	saved, err := s.meals.Insert(ctx, model.MealLog{
		UserID:   userID,
		MealType: NormalizeMealType(mealType),
		At:       at,
		RawText:  truncateRunes(rawText, maxStoredRawText),
		Items:    res.Items,
		Calories: res.Total.Calories,
		Protein:  res.Total.Protein,
		Carbs:    res.Total.Carbs,
		Fat:      res.Total.Fat,
	})
	if err != nil {
		return nil, fmt.Errorf("insert meal log: %w", err)
	}
	if err := s.cache.Delete(ctx, DashboardCacheKey(userID)); err != nil {
		log.Printf("dashboard cache delete failed user_id=%s err=%v", userID, err)
	}
	return saved, nil
}
