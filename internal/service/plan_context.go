package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"time"

	"github.com/nutriplan/api/internal/model"
	"github.com/nutriplan/api/internal/repository"
	"github.com/nutriplan/api/internal/timeutil"
)

const (
	planContextWindowDays = 7
	fallbackAvgCalories   = 1800
	defaultWaterTargetMl  = 2500
	waterMlPerKg          = 35
	planContextMemoTTL    = 10 * time.Minute
)

type ProfileReader interface {
	GetByUserID(ctx context.Context, userID string) (*model.Profile, error)
}

type WeighInReader interface {
	Latest(ctx context.Context, userID string) (*model.WeighIn, error)
}

type MealTotalsReader interface {
	DailyTotals(ctx context.Context, userID string, from, to time.Time) ([]model.DailyMealTotal, error)
}

type WaterTotalsReader interface {
	DailyTotals(ctx context.Context, userID string, from, to time.Time) ([]model.DailyWaterTotal, error)
}

type PlanContextLoader struct {
	profiles ProfileReader
	weights  WeighInReader
	meals    MealTotalsReader
	water    WaterTotalsReader
	cache    JSONCache
}

func NewPlanContextLoader(profiles ProfileReader, weights WeighInReader, meals MealTotalsReader, water WaterTotalsReader, cache JSONCache) *PlanContextLoader {
	if cache == nil {
		cache = NoopJSONCache{}
	}
	return &PlanContextLoader{profiles: profiles, weights: weights, meals: meals, water: water, cache: cache}
}

// Load summarizes the last 7 local days. Averages are per logged day, not
// per calendar day, so sparse logging does not drag them toward zero.
func (l *PlanContextLoader) Load(ctx context.Context, userID string, now time.Time) (*model.PlanContext, error) {
	memoKey := fmt.Sprintf("plan_context:%s:%s", userID, timeutil.DateString(now))
	var memo model.PlanContext
	if ok, err := l.cache.GetJSON(ctx, memoKey, &memo); err == nil && ok {
		return &memo, nil
	} else if err != nil {
		log.Printf("plan context cache get failed user_id=%s err=%v", userID, err)
	}

	var heightCm, weightKg *float64
	profile, err := l.profiles.GetByUserID(ctx, userID)
	switch {
	case err == nil:
		heightCm = profile.HeightCm
	case !errors.Is(err, repository.ErrNotFound):
		return nil, fmt.Errorf("load profile: %w", err)
	}
	latest, err := l.weights.Latest(ctx, userID)
	switch {
	case err == nil:
		w := latest.WeightKg
		weightKg = &w
	case !errors.Is(err, repository.ErrNotFound):
		return nil, fmt.Errorf("load latest weigh-in: %w", err)
	}

	from := timeutil.StartOfDay(now).AddDate(0, 0, -(planContextWindowDays - 1))
	mealDays, err := l.meals.DailyTotals(ctx, userID, from, now)
	if err != nil {
		return nil, fmt.Errorf("load meal totals: %w", err)
	}
	waterDays, err := l.water.DailyTotals(ctx, userID, from, now)
	if err != nil {
		return nil, fmt.Errorf("load water totals: %w", err)
	}

	pc := summarizePlanContext(heightCm, weightKg, mealDays, waterDays)
	if err := l.cache.SetJSON(ctx, memoKey, pc, planContextMemoTTL); err != nil {
		log.Printf("plan context cache set failed user_id=%s err=%v", userID, err)
	}
	return &pc, nil
}

func summarizePlanContext(heightCm, weightKg *float64, mealDays []model.DailyMealTotal, waterDays []model.DailyWaterTotal) model.PlanContext {
	pc := model.PlanContext{
		HeightCm:      heightCm,
		WeightKg:      weightKg,
		BMI:           BMI(weightKg, heightCm),
		WaterTargetMl: defaultWaterTargetMl,
	}
	if weightKg != nil && *weightKg > 0 {
		pc.WaterTargetMl = int(math.Round(*weightKg * waterMlPerKg))
	}

	var cal, protein, carbs, fat float64
	for _, d := range mealDays {
		if d.Meals <= 0 {
			continue
		}
		pc.MealDays++
		cal += d.Calories
		protein += d.Protein
		carbs += d.Carbs
		fat += d.Fat
	}
	if pc.MealDays == 0 {
		pc.AvgCalories = fallbackAvgCalories
	} else {
		n := float64(pc.MealDays)
		pc.AvgCalories = math.Round(cal / n)
		pc.AvgProtein = round1(protein / n)
		pc.AvgCarbs = round1(carbs / n)
		pc.AvgFat = round1(fat / n)
	}

	var ml, days float64
	for _, d := range waterDays {
		if d.Ml <= 0 {
			continue
		}
		ml += float64(d.Ml)
		days++
	}
	if days > 0 {
		pc.AvgWaterMl = math.Round(ml / days)
	}
	return pc
}
