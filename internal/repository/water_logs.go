package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nutriplan/api/internal/model"
)

type WaterLogRepo struct{ db *pgxpool.Pool }

func NewWaterLogRepo(db *pgxpool.Pool) *WaterLogRepo { return &WaterLogRepo{db} }

func (r *WaterLogRepo) Insert(ctx context.Context, userID string, ml int, at time.Time) (*model.WaterLog, error) {
	var w model.WaterLog
	err := r.db.QueryRow(ctx, `
		INSERT INTO water_logs (user_id, ml, at)
		VALUES ($1, $2, $3)
		RETURNING id, user_id, ml, at`,
		userID, ml, at,
	).Scan(&w.ID, &w.UserID, &w.Ml, &w.At)
	if err != nil {
		return nil, mapDBError(err)
	}
	return &w, nil
}

func (r *WaterLogRepo) ListSince(ctx context.Context, userID string, since time.Time) ([]model.WaterLog, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, user_id, ml, at
		FROM water_logs
		WHERE user_id = $1 AND at >= $2
		ORDER BY at DESC`, userID, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.WaterLog{}
	for rows.Next() {
		var w model.WaterLog
		if err := rows.Scan(&w.ID, &w.UserID, &w.Ml, &w.At); err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

func (r *WaterLogRepo) SumSince(ctx context.Context, userID string, since time.Time) (int, error) {
	var n int
	err := r.db.QueryRow(ctx, `
		SELECT COALESCE(SUM(ml),0)::int
		FROM water_logs
		WHERE user_id = $1 AND at >= $2`, userID, since,
	).Scan(&n)
	return n, err
}

func (r *WaterLogRepo) DailyTotals(ctx context.Context, userID string, from, to time.Time) ([]model.DailyWaterTotal, error) {
	rows, err := r.db.Query(ctx, `
		SELECT at::date::text AS day, COALESCE(SUM(ml),0)::int
		FROM water_logs
		WHERE user_id = $1 AND at >= $2 AND at <= $3
		GROUP BY 1
		ORDER BY 1`, userID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.DailyWaterTotal{}
	for rows.Next() {
		var d model.DailyWaterTotal
		if err := rows.Scan(&d.Date, &d.Ml); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}
