package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nutriplan/api/internal/model"
)

type WeighInRepo struct{ db *pgxpool.Pool }

func NewWeighInRepo(db *pgxpool.Pool) *WeighInRepo { return &WeighInRepo{db} }

func (r *WeighInRepo) Insert(ctx context.Context, userID string, weightKg float64, at time.Time) (*model.WeighIn, error) {
	var w model.WeighIn
	err := r.db.QueryRow(ctx, `
		INSERT INTO weigh_ins (user_id, weight_kg, at)
		VALUES ($1, $2, $3)
		RETURNING id, user_id, weight_kg, at`,
		userID, weightKg, at,
	).Scan(&w.ID, &w.UserID, &w.WeightKg, &w.At)
	if err != nil {
		return nil, mapDBError(err)
	}
	return &w, nil
}

func (r *WeighInRepo) Latest(ctx context.Context, userID string) (*model.WeighIn, error) {
	var w model.WeighIn
	err := r.db.QueryRow(ctx, `
		SELECT id, user_id, weight_kg, at
		FROM weigh_ins
		WHERE user_id = $1
		ORDER BY at DESC
		LIMIT 1`, userID,
	).Scan(&w.ID, &w.UserID, &w.WeightKg, &w.At)
	if err != nil {
		return nil, mapDBError(err)
	}
	return &w, nil
}

func (r *WeighInRepo) List(ctx context.Context, userID string, limit int) ([]model.WeighIn, error) {
	if limit <= 0 || limit > 365 {
		limit = 30
	}
	rows, err := r.db.Query(ctx, `
		SELECT id, user_id, weight_kg, at
		FROM weigh_ins
		WHERE user_id = $1
		ORDER BY at DESC
		LIMIT $2`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.WeighIn{}
	for rows.Next() {
		var w model.WeighIn
		if err := rows.Scan(&w.ID, &w.UserID, &w.WeightKg, &w.At); err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, rows.Err()
}
