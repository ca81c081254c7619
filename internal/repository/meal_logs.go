package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nutriplan/api/internal/model"
)

type MealLogRepo struct{ db *pgxpool.Pool }

func NewMealLogRepo(db *pgxpool.Pool) *MealLogRepo { return &MealLogRepo{db} }

func (r *MealLogRepo) Insert(ctx context.Context, m model.MealLog) (*model.MealLog, error) {
	items := m.Items
	if items == nil {
		items = []model.ResolvedItem{}
	}
	itemsJSON, err := json.Marshal(items)
	if err != nil {
		return nil, err
	}
	var out model.MealLog
	err = r.db.QueryRow(ctx, `
		INSERT INTO meal_logs (user_id, meal_type, at, raw_text, items, calories, protein, carbs, fat)
		VALUES ($1, $2, $3, $4, $5::jsonb, $6, $7, $8, $9)
		RETURNING id, user_id, meal_type, at, raw_text, items, calories, protein, carbs, fat, created_at`,
		m.UserID, m.MealType, m.At, m.RawText, itemsJSON, m.Calories, m.Protein, m.Carbs, m.Fat,
	).Scan(&out.ID, &out.UserID, &out.MealType, &out.At, &out.RawText,
		resolvedItemsScanner{dst: &out.Items},
		&out.Calories, &out.Protein, &out.Carbs, &out.Fat, &out.CreatedAt)
	if err != nil {
		return nil, mapDBError(err)
	}
	return &out, nil
}

func (r *MealLogRepo) ListSince(ctx context.Context, userID string, since time.Time) ([]model.MealLog, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, user_id, meal_type, at, raw_text, items, calories, protein, carbs, fat, created_at
		FROM meal_logs
		WHERE user_id = $1 AND at >= $2
		ORDER BY at DESC`, userID, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.MealLog{}
	for rows.Next() {
		var m model.MealLog
		if err := rows.Scan(&m.ID, &m.UserID, &m.MealType, &m.At, &m.RawText,
			resolvedItemsScanner{dst: &m.Items},
			&m.Calories, &m.Protein, &m.Carbs, &m.Fat, &m.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// DailyTotals sums meals per local day in [from, to]. Days without meals are
// absent from the result.
func (r *MealLogRepo) DailyTotals(ctx context.Context, userID string, from, to time.Time) ([]model.DailyMealTotal, error) {
	rows, err := r.db.Query(ctx, `
		SELECT at::date::text AS day,
		       COUNT(*)::int,
		       COALESCE(SUM(calories),0)::double precision,
		       COALESCE(SUM(protein),0)::double precision,
		       COALESCE(SUM(carbs),0)::double precision,
		       COALESCE(SUM(fat),0)::double precision
		FROM meal_logs
		WHERE user_id = $1 AND at >= $2 AND at <= $3
		GROUP BY 1
		ORDER BY 1`, userID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.DailyMealTotal{}
	for rows.Next() {
		var d model.DailyMealTotal
		if err := rows.Scan(&d.Date, &d.Meals, &d.Calories, &d.Protein, &d.Carbs, &d.Fat); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}
