package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

type LLMUsageLogRepo struct{ db *pgxpool.Pool }

func NewLLMUsageLogRepo(db *pgxpool.Pool) *LLMUsageLogRepo { return &LLMUsageLogRepo{db: db} }

type LLMUsageLogInput struct {
	IdempotencyKey   *string
	UserID           *string
	Provider         string
	Model            string
	PricingSource    string
	Purpose          string
	InputTokens      int
	OutputTokens     int
	EstimatedCostUSD float64
}

type LLMUsageLog struct {
	ID               string    `json:"id"`
	UserID           *string   `json:"user_id,omitempty"`
	Provider         string    `json:"provider"`
	Model            string    `json:"model"`
	PricingSource    string    `json:"pricing_source"`
	Purpose          string    `json:"purpose"`
	InputTokens      int       `json:"input_tokens"`
	OutputTokens     int       `json:"output_tokens"`
	EstimatedCostUSD float64   `json:"estimated_cost_usd"`
	CreatedAt        time.Time `json:"created_at"`
}

type LLMUsageDailySummary struct {
	Date             string  `json:"date"`
	Purpose          string  `json:"purpose"`
	Model            string  `json:"model"`
	Calls            int     `json:"calls"`
	InputTokens      int64   `json:"input_tokens"`
	OutputTokens     int64   `json:"output_tokens"`
	EstimatedCostUSD float64 `json:"estimated_cost_usd"`
}

func (r *LLMUsageLogRepo) Insert(ctx context.Context, in LLMUsageLogInput) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO llm_usage_logs (
			idempotency_key, user_id, provider, model, pricing_source, purpose,
			input_tokens, output_tokens, estimated_cost_usd
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		ON CONFLICT (idempotency_key) DO NOTHING
	`,
		in.IdempotencyKey, in.UserID, in.Provider, in.Model, in.PricingSource, in.Purpose,
		in.InputTokens, in.OutputTokens, in.EstimatedCostUSD,
	)
	return mapDBError(err)
}

func (r *LLMUsageLogRepo) ListByUser(ctx context.Context, userID string, limit int) ([]LLMUsageLog, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	rows, err := r.db.Query(ctx, `
		SELECT id, user_id, provider, model, pricing_source, purpose,
		       input_tokens, output_tokens, estimated_cost_usd, created_at
		FROM llm_usage_logs
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []LLMUsageLog{}
	for rows.Next() {
		var v LLMUsageLog
		if err := rows.Scan(
			&v.ID, &v.UserID, &v.Provider, &v.Model, &v.PricingSource, &v.Purpose,
			&v.InputTokens, &v.OutputTokens, &v.EstimatedCostUSD, &v.CreatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// DailySummaryByUser groups by local date. The session time zone is the app
// zone (see NewPool), so ::date needs no explicit AT TIME ZONE.
func (r *LLMUsageLogRepo) DailySummaryByUser(ctx context.Context, userID string, days int) ([]LLMUsageDailySummary, error) {
	if days <= 0 || days > 365 {
		days = 14
	}
	rows, err := r.db.Query(ctx, `
		SELECT created_at::date::text AS day,
		       purpose,
		       model,
		       COUNT(*)::int AS calls,
		       COALESCE(SUM(input_tokens),0)::bigint AS input_tokens,
		       COALESCE(SUM(output_tokens),0)::bigint AS output_tokens,
		       COALESCE(SUM(estimated_cost_usd),0)::double precision AS estimated_cost_usd
		FROM llm_usage_logs
		WHERE user_id = $1
		  AND created_at >= NOW() - ($2::int * INTERVAL '1 day')
		GROUP BY 1,2,3
		ORDER BY day DESC, purpose ASC, model ASC`, userID, days)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []LLMUsageDailySummary{}
	for rows.Next() {
		var v LLMUsageDailySummary
		if err := rows.Scan(
			&v.Date, &v.Purpose, &v.Model, &v.Calls,
			&v.InputTokens, &v.OutputTokens, &v.EstimatedCostUSD,
		); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}
