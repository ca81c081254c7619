package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nutriplan/api/internal/model"
	"github.com/nutriplan/api/internal/timeutil"
)

type fakeWaterSince struct {
	ml    int
	since time.Time
}

func (f *fakeWaterSince) SumSince(_ context.Context, _ string, since time.Time) (int, error) {
	f.since = since
	return f.ml, nil
}

type fakePlanExistence struct {
	weeks map[string]bool
	err   error
}

func (f fakePlanExistence) Exists(_ context.Context, _ string, weekStart string) (bool, error) {
	return f.weeks[weekStart], f.err
}

func TestGreetingByHour(t *testing.T) {
	day := func(h int) time.Time { return time.Date(2026, 3, 4, h, 0, 0, 0, timeutil.Local) }
	assert.Equal(t, "Good morning", GreetingByHour(day(7)))
	assert.Equal(t, "Good afternoon", GreetingByHour(day(12)))
	assert.Equal(t, "Good evening", GreetingByHour(day(17)))
}

func TestDashboardBuilderToday(t *testing.T) {
	meals := &fakeMealTotals{days: []model.DailyMealTotal{{Meals: 2, Calories: 1200, Protein: 40.25, Carbs: 150, Fat: 30}}}
	water := &fakeWaterSince{ml: 1800}
	b := NewDashboardBuilder(
		meals,
		water,
		&fakeProfiles{profile: &model.Profile{HeightCm: floatPtr(175)}},
		&fakeWeighIns{latest: &model.WeighIn{WeightKg: 70}},
		fakePlanExistence{weeks: map[string]bool{"2026-03-02": true}},
	)
	now := time.Date(2026, 3, 4, 19, 30, 0, 0, timeutil.Local)

	d, err := b.Today(context.Background(), "u1", now)
	require.NoError(t, err)
	assert.Equal(t, "2026-03-04", d.Date)
	assert.Equal(t, "Good evening", d.Greeting)
	assert.Equal(t, model.Macro{Calories: 1200, Protein: 40.3, Carbs: 150, Fat: 30}, d.Totals)
	assert.Equal(t, 1800, d.WaterLast24h)
	assert.Equal(t, 2450, d.WaterTargetMl)
	require.NotNil(t, d.BMI)
	assert.Equal(t, 22.9, *d.BMI)
	assert.Equal(t, "Normal", d.BMICategory)
	assert.True(t, d.HasWeekPlan)

	assert.True(t, meals.from.Equal(timeutil.StartOfDay(now)))
	assert.True(t, water.since.Equal(now.Add(-24*time.Hour)))
}

func TestDashboardBuilderTodayNewUser(t *testing.T) {
	b := NewDashboardBuilder(&fakeMealTotals{}, &fakeWaterSince{}, &fakeProfiles{}, &fakeWeighIns{}, fakePlanExistence{})
	d, err := b.Today(context.Background(), "u1", time.Now())
	require.NoError(t, err)
	assert.Equal(t, model.Macro{}, d.Totals)
	assert.Equal(t, defaultWaterTargetMl, d.WaterTargetMl)
	assert.Nil(t, d.BMI)
	assert.Equal(t, "unknown", d.BMICategory)
	assert.False(t, d.HasWeekPlan)
}

func TestDashboardBuilderTodayPropagatesErrors(t *testing.T) {
	b := NewDashboardBuilder(&fakeMealTotals{}, &fakeWaterSince{}, &fakeProfiles{}, &fakeWeighIns{}, fakePlanExistence{err: errors.New("db down")})
	_, err := b.Today(context.Background(), "u1", time.Now())
	assert.Error(t, err)
}
