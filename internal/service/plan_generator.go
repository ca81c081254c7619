package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math"
	"strings"
	"time"

	"github.com/nutriplan/api/internal/model"
	"github.com/nutriplan/api/internal/timeutil"
)

const planUsagePurpose = "weekly_plan"

// PlanGenerator produces a validated plan for one week. It never persists.
type PlanGenerator struct {
	model GenerativeModel
	usage LLMUsageRecorder
}

func NewPlanGenerator(m GenerativeModel, usage LLMUsageRecorder) *PlanGenerator {
	return &PlanGenerator{model: m, usage: usage}
}

// Generate asks the model for a plan when apiKey is set and falls back to the
// baseline when the call fails or returns unreadable output. A readable plan
// that fails validation is a structural PlanError and is not replaced.
func (g *PlanGenerator) Generate(ctx context.Context, userID string, weekStart time.Time, pctx model.PlanContext, apiKey string) (*model.WeeklyPlan, error) {
	weekStart = timeutil.MondayOf(weekStart)
	if apiKey == "" || g == nil || g.model == nil {
		p := buildBaselinePlan(weekStart, pctx)
		p.UserID = userID
		return &p, nil
	}

	ws := weekStart.Format("2006-01-02")
	res, err := g.model.GenerateContent(ctx, apiKey, []GeminiPart{{Text: buildPlanPrompt(ws, pctx)}}, true)
	if err != nil {
		log.Printf("plan generation call failed user_id=%s week=%s, using baseline: %v", userID, ws, err)
		p := buildBaselinePlan(weekStart, pctx)
		p.UserID = userID
		return &p, nil
	}
	if g.usage != nil {
		g.usage.Record(ctx, planUsagePurpose, res.LLM, userID)
	}

	draft, err := decodePlanDraft(res.Text)
	if err != nil {
		log.Printf("plan generation output unreadable user_id=%s week=%s, using baseline: %v", userID, ws, err)
		p := buildBaselinePlan(weekStart, pctx)
		p.UserID = userID
		return &p, nil
	}
	plan, err := draft.toPlan(weekStart)
	if err != nil {
		return nil, &PlanError{Structural: true, Err: err}
	}
	plan.UserID = userID
	plan.ModelUsed = g.model.Model()
	if err := plan.Validate(); err != nil {
		return nil, &PlanError{Structural: true, Err: err}
	}
	return plan, nil
}

type planDraft struct {
	Notes *string `json:"notes"`
	Days  []struct {
		Date           string   `json:"date"`
		TargetCalories *float64 `json:"target_calories"`
		TargetCamel    *float64 `json:"targetCalories"`
		Meals          []struct {
			Name     string   `json:"name"`
			Calories *float64 `json:"calories"`
			Protein  *float64 `json:"protein"`
			Carbs    *float64 `json:"carbs"`
			Fat      *float64 `json:"fat"`
			Items    []string `json:"items"`
		} `json:"meals"`
	} `json:"days"`
}

func decodePlanDraft(text string) (*planDraft, error) {
	var d planDraft
	if err := json.Unmarshal([]byte(text), &d); err == nil && d.Days != nil {
		return &d, nil
	}
	block, ok := firstJSONObject(text)
	if !ok {
		return nil, errors.New("no JSON object in model output")
	}
	d = planDraft{}
	if err := json.Unmarshal([]byte(block), &d); err != nil {
		return nil, fmt.Errorf("decode plan JSON: %w", err)
	}
	return &d, nil
}

func requiredNumber(v *float64, what string) (float64, error) {
	if v == nil {
		return 0, fmt.Errorf("%w: missing %s", model.ErrInvalidPlan, what)
	}
	if math.IsNaN(*v) || math.IsInf(*v, 0) || *v < 0 {
		return 0, fmt.Errorf("%w: %s out of range: %v", model.ErrInvalidPlan, what, *v)
	}
	return *v, nil
}

func requiredInt(v *float64, what string) (int, error) {
	n, err := requiredNumber(v, what)
	if err != nil {
		return 0, err
	}
	if n != math.Trunc(n) {
		return 0, fmt.Errorf("%w: %s not an integer: %v", model.ErrInvalidPlan, what, n)
	}
	return int(n), nil
}

// toPlan stamps server-owned fields. Day dates always follow weekStart
// regardless of what the model wrote.
func (d *planDraft) toPlan(weekStart time.Time) (*model.WeeklyPlan, error) {
	plan := &model.WeeklyPlan{
		WeekStart: weekStart.Format("2006-01-02"),
		Days:      make([]model.DayPlan, 0, len(d.Days)),
	}
	if d.Notes != nil && strings.TrimSpace(*d.Notes) != "" {
		n := strings.TrimSpace(*d.Notes)
		plan.Notes = &n
	}
	for i, day := range d.Days {
		tc := day.TargetCalories
		if tc == nil {
			tc = day.TargetCamel
		}
		target, err := requiredInt(tc, fmt.Sprintf("day %d target_calories", i))
		if err != nil {
			return nil, err
		}
		dp := model.DayPlan{
			Date:           weekStart.AddDate(0, 0, i).Format("2006-01-02"),
			TargetCalories: target,
			Meals:          make([]model.PlanMeal, 0, len(day.Meals)),
		}
		for j, m := range day.Meals {
			kcal, err := requiredInt(m.Calories, fmt.Sprintf("day %d meal %d calories", i, j))
			if err != nil {
				return nil, err
			}
			var vals [3]float64
			for k, f := range []*float64{m.Protein, m.Carbs, m.Fat} {
				v, err := requiredNumber(f, fmt.Sprintf("day %d meal %d macro %d", i, j, k))
				if err != nil {
					return nil, err
				}
				vals[k] = v
			}
			items := m.Items
			if items == nil {
				items = []string{}
			}
			dp.Meals = append(dp.Meals, model.PlanMeal{
				Name:     strings.TrimSpace(m.Name),
				Calories: kcal,
				Protein:  round1(vals[0]),
				Carbs:    round1(vals[1]),
				Fat:      round1(vals[2]),
				Items:    items,
			})
		}
		plan.Days = append(plan.Days, dp)
	}
	return plan, nil
}
