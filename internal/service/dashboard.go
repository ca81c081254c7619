package service

import (
	"context"
	"errors"
	"math"
	"sync"
	"time"

	"github.com/nutriplan/api/internal/model"
	"github.com/nutriplan/api/internal/repository"
	"github.com/nutriplan/api/internal/timeutil"
)

const DashboardCacheTTL = 30 * time.Second

func DashboardCacheKey(userID string) string {
	return "dashboard:" + userID
}

type WaterSinceReader interface {
	SumSince(ctx context.Context, userID string, since time.Time) (int, error)
}

type PlanExistence interface {
	Exists(ctx context.Context, userID, weekStart string) (bool, error)
}

type DashboardBuilder struct {
	meals    MealTotalsReader
	water    WaterSinceReader
	profiles ProfileReader
	weights  WeighInReader
	plans    PlanExistence
}

func NewDashboardBuilder(meals MealTotalsReader, water WaterSinceReader, profiles ProfileReader, weights WeighInReader, plans PlanExistence) *DashboardBuilder {
	return &DashboardBuilder{meals: meals, water: water, profiles: profiles, weights: weights, plans: plans}
}

func GreetingByHour(now time.Time) string {
	hour := now.In(timeutil.Local).Hour()
	if hour < 12 {
		return "Good morning"
	}
	if hour < 17 {
		return "Good afternoon"
	}
	return "Good evening"
}

// Today assembles the dashboard. The reads are independent so they run
// concurrently; the first error wins.
func (b *DashboardBuilder) Today(ctx context.Context, userID string, now time.Time) (*model.DashboardToday, error) {
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
		days     []model.DailyMealTotal
		waterMl  int
		heightCm *float64
		weightKg *float64
		hasPlan  bool
	)
	setErr := func(err error) {
		mu.Lock()
		defer mu.Unlock()
		if firstErr == nil {
			firstErr = err
		}
	}

	wg.Add(5)
	go func() {
		defer wg.Done()
		v, err := b.meals.DailyTotals(ctx, userID, timeutil.StartOfDay(now), now)
		if err != nil {
			setErr(err)
			return
		}
		mu.Lock()
		days = v
		mu.Unlock()
	}()
	go func() {
		defer wg.Done()
		v, err := b.water.SumSince(ctx, userID, now.Add(-24*time.Hour))
		if err != nil {
			setErr(err)
			return
		}
		mu.Lock()
		waterMl = v
		mu.Unlock()
	}()
	go func() {
		defer wg.Done()
		p, err := b.profiles.GetByUserID(ctx, userID)
		if err != nil {
			if !errors.Is(err, repository.ErrNotFound) {
				setErr(err)
			}
			return
		}
		mu.Lock()
		heightCm = p.HeightCm
		mu.Unlock()
	}()
	go func() {
		defer wg.Done()
		w, err := b.weights.Latest(ctx, userID)
		if err != nil {
			if !errors.Is(err, repository.ErrNotFound) {
				setErr(err)
			}
			return
		}
		kg := w.WeightKg
		mu.Lock()
		weightKg = &kg
		mu.Unlock()
	}()
	go func() {
		defer wg.Done()
		ok, err := b.plans.Exists(ctx, userID, timeutil.DateString(timeutil.MondayOf(now)))
		if err != nil {
			setErr(err)
			return
		}
		mu.Lock()
		hasPlan = ok
		mu.Unlock()
	}()
	wg.Wait()
	if firstErr != nil {
		return nil, firstErr
	}

	var totals model.Macro
	for _, d := range days {
		totals.Calories += int(math.Round(d.Calories))
		totals.Protein += d.Protein
		totals.Carbs += d.Carbs
		totals.Fat += d.Fat
	}
	totals.Protein = round1(totals.Protein)
	totals.Carbs = round1(totals.Carbs)
	totals.Fat = round1(totals.Fat)

	bmi := BMI(weightKg, heightCm)
	target := defaultWaterTargetMl
	if weightKg != nil && *weightKg > 0 {
		target = int(math.Round(*weightKg * waterMlPerKg))
	}
	return &model.DashboardToday{
		Date:          timeutil.DateString(now),
		Greeting:      GreetingByHour(now),
		Totals:        totals,
		WaterLast24h:  waterMl,
		WaterTargetMl: target,
		BMI:           bmi,
		BMICategory:   BMICategory(bmi),
		HeightCm:      heightCm,
		WeightKg:      weightKg,
		HasWeekPlan:   hasPlan,
	}, nil
}
