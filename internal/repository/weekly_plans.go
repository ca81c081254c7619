package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nutriplan/api/internal/model"
)

type WeeklyPlanRepo struct{ db *pgxpool.Pool }

func NewWeeklyPlanRepo(db *pgxpool.Pool) *WeeklyPlanRepo { return &WeeklyPlanRepo{db} }

const weeklyPlanColumns = `id, user_id, week_start::text, model_used, notes, plan_json, created_at`

func scanWeeklyPlan(row pgx.Row) (*model.WeeklyPlan, error) {
	var p model.WeeklyPlan
	if err := row.Scan(&p.ID, &p.UserID, &p.WeekStart, &p.ModelUsed, &p.Notes,
		planDaysScanner{dst: &p.Days}, &p.CreatedAt); err != nil {
		return nil, err
	}
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("%w: plan %s: %v", ErrCorrupt, p.ID, err)
	}
	return &p, nil
}

func (r *WeeklyPlanRepo) Get(ctx context.Context, userID, weekStart string) (*model.WeeklyPlan, error) {
	p, err := scanWeeklyPlan(r.db.QueryRow(ctx, `
		SELECT `+weeklyPlanColumns+`
		FROM weekly_plans
		WHERE user_id = $1 AND week_start = $2::date`, userID, weekStart))
	if err != nil {
		return nil, mapDBError(err)
	}
	return p, nil
}

func (r *WeeklyPlanRepo) Exists(ctx context.Context, userID, weekStart string) (bool, error) {
	var ok bool
	err := r.db.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM weekly_plans WHERE user_id = $1 AND week_start = $2::date)`,
		userID, weekStart,
	).Scan(&ok)
	return ok, err
}

// InsertIfAbsent stores plan unless (user_id, week_start) already exists, in
// which case it returns nil, nil and leaves the existing row untouched.
func (r *WeeklyPlanRepo) InsertIfAbsent(ctx context.Context, plan model.WeeklyPlan) (*model.WeeklyPlan, error) {
	blob, err := marshalPlanDays(plan.Days)
	if err != nil {
		return nil, err
	}
	p, err := scanWeeklyPlan(r.db.QueryRow(ctx, `
		INSERT INTO weekly_plans (user_id, week_start, model_used, notes, plan_json)
		VALUES ($1, $2::date, $3, $4, $5::jsonb)
		ON CONFLICT (user_id, week_start) DO NOTHING
		RETURNING `+weeklyPlanColumns,
		plan.UserID, plan.WeekStart, plan.ModelUsed, plan.Notes, blob))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, mapDBError(err)
	}
	return p, nil
}

func (r *WeeklyPlanRepo) Delete(ctx context.Context, userID, weekStart string) error {
	tag, err := r.db.Exec(ctx,
		`DELETE FROM weekly_plans WHERE user_id = $1 AND week_start = $2::date`, userID, weekStart)
	if err != nil {
		return mapDBError(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// UsersMissingPlan lists users that have logged anything in the last 14 days
// and have no plan for weekStart yet.
func (r *WeeklyPlanRepo) UsersMissingPlan(ctx context.Context, weekStart string) ([]string, error) {
	rows, err := r.db.Query(ctx, `
		SELECT u.id
		FROM users u
		WHERE NOT EXISTS (
			SELECT 1 FROM weekly_plans wp WHERE wp.user_id = u.id AND wp.week_start = $1::date
		)
		AND (
			EXISTS (SELECT 1 FROM meal_logs m WHERE m.user_id = u.id AND m.at >= NOW() - INTERVAL '14 days')
			OR EXISTS (SELECT 1 FROM weigh_ins w WHERE w.user_id = u.id AND w.at >= NOW() - INTERVAL '14 days')
		)
		ORDER BY u.created_at`, weekStart)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}
