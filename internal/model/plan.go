package model

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

const (
	PlanDays       = 7
	MinMealsPerDay = 3
)

var ErrInvalidPlan = errors.New("invalid weekly plan")

// Validate checks the cardinalities and numeric ranges every stored or
// generated plan must satisfy.
func (p *WeeklyPlan) Validate() error {
	if p == nil {
		return fmt.Errorf("%w: nil plan", ErrInvalidPlan)
	}
	if len(p.Days) != PlanDays {
		return fmt.Errorf("%w: %d days, want %d", ErrInvalidPlan, len(p.Days), PlanDays)
	}
	for i, d := range p.Days {
		if d.TargetCalories <= 0 {
			return fmt.Errorf("%w: day %d target_calories %d", ErrInvalidPlan, i, d.TargetCalories)
		}
		if len(d.Meals) < MinMealsPerDay {
			return fmt.Errorf("%w: day %d has %d meals", ErrInvalidPlan, i, len(d.Meals))
		}
		for j, m := range d.Meals {
			if strings.TrimSpace(m.Name) == "" {
				return fmt.Errorf("%w: day %d meal %d has no name", ErrInvalidPlan, i, j)
			}
			if m.Calories < 0 {
				return fmt.Errorf("%w: day %d meal %d calories %d", ErrInvalidPlan, i, j, m.Calories)
			}
			for _, v := range []float64{m.Protein, m.Carbs, m.Fat} {
				if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
					return fmt.Errorf("%w: day %d meal %d macro %v", ErrInvalidPlan, i, j, v)
				}
			}
		}
	}
	return nil
}
