package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nutriplan/api/internal/model"
)

type RateLimitRepo struct{ db *pgxpool.Pool }

func NewRateLimitRepo(db *pgxpool.Pool) *RateLimitRepo { return &RateLimitRepo{db} }

// IncrementRateLimit is a single upsert so concurrent callers in the same
// window each observe a distinct count. The unique index is NULLS NOT
// DISTINCT, so anonymous callers (user_id NULL) share a row per IP.
func (r *RateLimitRepo) IncrementRateLimit(ctx context.Context, key model.RateLimitKey) (int, error) {
	var count int
	err := r.db.QueryRow(ctx, `
		INSERT INTO rate_limits (user_id, ip, route, window_start, count)
		VALUES ($1, $2, $3, $4, 1)
		ON CONFLICT (user_id, ip, route, window_start)
		DO UPDATE SET count = rate_limits.count + 1
		RETURNING count`,
		key.UserID, key.IP, key.Route, key.WindowStart,
	).Scan(&count)
	if err != nil {
		return 0, mapDBError(err)
	}
	return count, nil
}

// PruneBefore drops windows that can no longer affect a decision.
func (r *RateLimitRepo) PruneBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM rate_limits WHERE window_start < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
