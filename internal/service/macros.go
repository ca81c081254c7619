package service

import (
	"math"

	"github.com/nutriplan/api/internal/model"
)

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

// ScaleMacros applies factor to a catalog entry. Calories round to whole
// numbers and the rest to one decimal, per item.
func ScaleMacros(e model.CatalogEntry, factor float64) model.Macro {
	if factor < 0 || math.IsNaN(factor) {
		factor = 0
	}
	m := model.Macro{
		Calories: int(math.Round(e.Calories * factor)),
		Protein:  round1(e.Protein * factor),
		Carbs:    round1(e.Carbs * factor),
		Fat:      round1(e.Fat * factor),
	}
	if m.Calories < 0 {
		m.Calories = 0
	}
	m.Protein = math.Max(0, m.Protein)
	m.Carbs = math.Max(0, m.Carbs)
	m.Fat = math.Max(0, m.Fat)
	return m
}

// SumMacros adds already-rounded per-item values.
func SumMacros(items []model.Macro) model.Macro {
	var total model.Macro
	for _, m := range items {
		total.Calories += m.Calories
		total.Protein += m.Protein
		total.Carbs += m.Carbs
		total.Fat += m.Fat
	}
	total.Protein = round1(total.Protein)
	total.Carbs = round1(total.Carbs)
	total.Fat = round1(total.Fat)
	return total
}
