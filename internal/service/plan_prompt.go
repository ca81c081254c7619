package service

import (
	"fmt"
	"math"
	"strings"

	"github.com/nutriplan/api/internal/model"
)

const (
	PlanGoalGain    = "gain_slight"
	PlanGoalLose    = "lose_slight"
	PlanGoalRecomp  = "recomp"
	minLoseCalories = 1400
	goalAdjustKcal  = 300
)

func PlanGoal(pctx model.PlanContext) string {
	switch {
	case pctx.BMI == nil:
		return PlanGoalRecomp
	case *pctx.BMI < 18.5:
		return PlanGoalGain
	case *pctx.BMI > 24.9:
		return PlanGoalLose
	default:
		return PlanGoalRecomp
	}
}

// TargetCalories is the per-day kcal goal for a plan built from pctx.
func TargetCalories(pctx model.PlanContext) int {
	base := pctx.AvgCalories
	if base <= 0 {
		base = fallbackAvgCalories
	}
	switch PlanGoal(pctx) {
	case PlanGoalGain:
		base += goalAdjustKcal
	case PlanGoalLose:
		base = math.Max(minLoseCalories, base-goalAdjustKcal)
	}
	return int(math.Round(base))
}

func fmtOptional(v *float64) string {
	if v == nil {
		return "?"
	}
	return fmt.Sprintf("%.1f", *v)
}

func buildPlanPrompt(weekStart string, pctx model.PlanContext) string {
	goal := PlanGoal(pctx)
	target := TargetCalories(pctx)
	bmi := "unknown"
	if pctx.BMI != nil {
		bmi = fmt.Sprintf("%.1f", *pctx.BMI)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "You are a nutrition planner for an Indian user (Hyderabad). Create a 7-day diet plan optimized for %s, starting Monday %s.\n", goal, weekStart)
	b.WriteString("Use South Indian staples where possible (rice, dosa, idli, dal, curd, vegetables, eggs, chicken/prawns occasionally).\n")
	b.WriteString("Consider:\n")
	fmt.Fprintf(&b, "- BMI: %s (height %s cm, weight %s kg)\n", bmi, fmtOptional(pctx.HeightCm), fmtOptional(pctx.WeightKg))
	fmt.Fprintf(&b, "- Recent daily averages (last 7 days, %d logged days): calories %.0f kcal, protein %.1f g, carbs %.1f g, fat %.1f g\n",
		pctx.MealDays, pctx.AvgCalories, pctx.AvgProtein, pctx.AvgCarbs, pctx.AvgFat)
	fmt.Fprintf(&b, "- Water: avg %.0f ml/day vs target %d ml/day\n\n", pctx.AvgWaterMl, pctx.WaterTargetMl)
	b.WriteString("Rules:\n")
	b.WriteString("- 7 days, each with breakfast, lunch, dinner, plus 1-2 snacks.\n")
	b.WriteString("- Use diverse items from typical Indian foods (idli, dosa, upma, poha, sambar, dal, rice, chapati, curd, paneer, veggies, eggs, chicken, fish, prawns, fruits, nuts).\n")
	b.WriteString("- Portion sizes must be realistic for an adult.\n")
	fmt.Fprintf(&b, "- Keep per-day total calories close to %d kcal and set target_calories to %d.\n", target, target)
	b.WriteString("- Items are human-readable strings, e.g. \"2 idlis + sambar (200 ml)\".\n")
	fmt.Fprintf(&b, "- Include a short \"notes\" field with hydration advice comparing %.0f ml to the %d ml target.\n\n", pctx.AvgWaterMl, pctx.WaterTargetMl)
	b.WriteString(`Return STRICT JSON ONLY in this shape:
{"notes":"...","days":[{"date":"YYYY-MM-DD","target_calories":2000,"meals":[{"name":"Breakfast","calories":450,"protein":15,"carbs":70,"fat":10,"items":["2 idlis + sambar (200 ml)"]}]}]}`)
	return b.String()
}
