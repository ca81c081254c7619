package service

import (
	"fmt"
	"math"
	"time"

	"github.com/nutriplan/api/internal/model"
)

const (
	BaselinePlanModel  = "baseline-v1"
	baselineMinTarget  = 1600
	baselineMaxTarget  = 2400
	baselineTemplateKc = 1550
)

var baselineMeals = []model.PlanMeal{
	{Name: "Breakfast", Calories: 400, Protein: 14, Carbs: 70, Fat: 7, Items: []string{"3 idlis", "sambar (200 ml)", "coconut chutney (2 tbsp)"}},
	{Name: "Lunch", Calories: 650, Protein: 24, Carbs: 105, Fat: 13, Items: []string{"rice (1 cup cooked)", "dal (150 g)", "curd (100 g)", "vegetable poriyal"}},
	{Name: "Dinner", Calories: 500, Protein: 38, Carbs: 45, Fat: 16, Items: []string{"2 chapatis", "chicken curry (150 g)", "cucumber salad"}},
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// buildBaselinePlan is the deterministic plan used when no model key is
// available or the model output cannot be read. Meal templates are scaled to
// the clamped target so every day sums close to it.
func buildBaselinePlan(weekStart time.Time, pctx model.PlanContext) model.WeeklyPlan {
	target := clampInt(TargetCalories(pctx), baselineMinTarget, baselineMaxTarget)
	scale := float64(target) / baselineTemplateKc

	days := make([]model.DayPlan, 0, model.PlanDays)
	for i := 0; i < model.PlanDays; i++ {
		meals := make([]model.PlanMeal, 0, len(baselineMeals))
		for _, m := range baselineMeals {
			items := append([]string(nil), m.Items...)
			meals = append(meals, model.PlanMeal{
				Name:     m.Name,
				Calories: int(math.Round(float64(m.Calories) * scale)),
				Protein:  round1(m.Protein * scale),
				Carbs:    round1(m.Carbs * scale),
				Fat:      round1(m.Fat * scale),
				Items:    items,
			})
		}
		days = append(days, model.DayPlan{
			Date:           weekStart.AddDate(0, 0, i).Format("2006-01-02"),
			TargetCalories: target,
			Meals:          meals,
		})
	}

	notes := fmt.Sprintf("Baseline plan at %d kcal/day. Aim for %d ml of water a day.", target, pctx.WaterTargetMl)
	return model.WeeklyPlan{
		WeekStart: weekStart.Format("2006-01-02"),
		ModelUsed: BaselinePlanModel,
		Notes:     &notes,
		Days:      days,
	}
}
