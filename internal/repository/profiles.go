package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nutriplan/api/internal/model"
)

type ProfileRepo struct{ db *pgxpool.Pool }

func NewProfileRepo(db *pgxpool.Pool) *ProfileRepo { return &ProfileRepo{db} }

func (r *ProfileRepo) GetByUserID(ctx context.Context, userID string) (*model.Profile, error) {
	var p model.Profile
	err := r.db.QueryRow(ctx, `
		SELECT user_id, height_cm, updated_at
		FROM profiles WHERE user_id = $1`, userID,
	).Scan(&p.UserID, &p.HeightCm, &p.UpdatedAt)
	if err != nil {
		return nil, mapDBError(err)
	}
	return &p, nil
}

func (r *ProfileRepo) UpsertHeight(ctx context.Context, userID string, heightCm *float64) (*model.Profile, error) {
	var p model.Profile
	err := r.db.QueryRow(ctx, `
		INSERT INTO profiles (user_id, height_cm)
		VALUES ($1, $2)
		ON CONFLICT (user_id) DO UPDATE SET height_cm = EXCLUDED.height_cm, updated_at = NOW()
		RETURNING user_id, height_cm, updated_at`,
		userID, heightCm,
	).Scan(&p.UserID, &p.HeightCm, &p.UpdatedAt)
	if err != nil {
		return nil, mapDBError(err)
	}
	return &p, nil
}
