package repository

import (
	"encoding/json"
	"fmt"

	"github.com/nutriplan/api/internal/model"
)

func jsonSourceBytes(src any) ([]byte, bool) {
	switch v := src.(type) {
	case []byte:
		return v, len(v) > 0
	case string:
		return []byte(v), v != ""
	default:
		return nil, false
	}
}

// resolvedItemsScanner reads meal_logs.items (jsonb) into typed items.
type resolvedItemsScanner struct {
	dst *[]model.ResolvedItem
}

func (s resolvedItemsScanner) Scan(src any) error {
	if s.dst == nil {
		return nil
	}
	b, ok := jsonSourceBytes(src)
	if !ok {
		*s.dst = []model.ResolvedItem{}
		return nil
	}
	var out []model.ResolvedItem
	if err := json.Unmarshal(b, &out); err != nil {
		return fmt.Errorf("%w: meal items: %v", ErrCorrupt, err)
	}
	if out == nil {
		out = []model.ResolvedItem{}
	}
	*s.dst = out
	return nil
}

// planDaysScanner reads weekly_plans.plan_json and validates it so an
// untyped or malformed blob never leaves the repository.
type planDaysScanner struct {
	dst *[]model.DayPlan
}

func (s planDaysScanner) Scan(src any) error {
	if s.dst == nil {
		return nil
	}
	b, ok := jsonSourceBytes(src)
	if !ok {
		return fmt.Errorf("%w: empty plan_json", ErrCorrupt)
	}
	var blob struct {
		Days []model.DayPlan `json:"days"`
	}
	if err := json.Unmarshal(b, &blob); err != nil {
		return fmt.Errorf("%w: plan_json: %v", ErrCorrupt, err)
	}
	*s.dst = blob.Days
	return nil
}

func marshalPlanDays(days []model.DayPlan) ([]byte, error) {
	return json.Marshal(struct {
		Days []model.DayPlan `json:"days"`
	}{Days: days})
}
