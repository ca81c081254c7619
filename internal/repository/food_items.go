package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nutriplan/api/internal/model"
)

type FoodItemRepo struct{ db *pgxpool.Pool }

func NewFoodItemRepo(db *pgxpool.Pool) *FoodItemRepo { return &FoodItemRepo{db} }

// ListAll returns the catalog ordered by name. Matching walks this order, so
// it must stay stable.
func (r *FoodItemRepo) ListAll(ctx context.Context) ([]model.CatalogEntry, error) {
	rows, err := r.db.Query(ctx, `
		SELECT name, unit_basis, calories, protein, carbs, fat
		FROM food_items
		ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.CatalogEntry{}
	for rows.Next() {
		var e model.CatalogEntry
		if err := rows.Scan(&e.Name, &e.UnitBasis, &e.Calories, &e.Protein, &e.Carbs, &e.Fat); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// UpsertMany writes entries keyed by name in one batch and returns how many
// rows were touched.
func (r *FoodItemRepo) UpsertMany(ctx context.Context, entries []model.CatalogEntry) (int, error) {
	if len(entries) == 0 {
		return 0, nil
	}
	batch := &pgx.Batch{}
	for _, e := range entries {
		batch.Queue(`
			INSERT INTO food_items (name, unit_basis, calories, protein, carbs, fat)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (name) DO UPDATE
			SET unit_basis = EXCLUDED.unit_basis,
			    calories = EXCLUDED.calories,
			    protein = EXCLUDED.protein,
			    carbs = EXCLUDED.carbs,
			    fat = EXCLUDED.fat,
			    updated_at = NOW()`,
			e.Name, e.UnitBasis, e.Calories, e.Protein, e.Carbs, e.Fat)
	}
	br := r.db.SendBatch(ctx, batch)
	defer br.Close()
	n := 0
	for range entries {
		tag, err := br.Exec()
		if err != nil {
			return n, mapDBError(err)
		}
		n += int(tag.RowsAffected())
	}
	return n, nil
}
