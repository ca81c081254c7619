package handler

import (
	"context"
	"net/http"

	"github.com/nutriplan/api/internal/middleware"
	"github.com/nutriplan/api/internal/repository"
)

type llmUsageReader interface {
	ListByUser(ctx context.Context, userID string, limit int) ([]repository.LLMUsageLog, error)
	DailySummaryByUser(ctx context.Context, userID string, days int) ([]repository.LLMUsageDailySummary, error)
}

type LLMUsageHandler struct{ repo llmUsageReader }

func NewLLMUsageHandler(repo llmUsageReader) *LLMUsageHandler {
	return &LLMUsageHandler{repo: repo}
}

func (h *LLMUsageHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r)
	limit := parseIntOrDefault(r.URL.Query().Get("limit"), 100)
	if limit < 1 || limit > 500 {
		http.Error(w, "invalid limit", http.StatusBadRequest)
		return
	}
	rows, err := h.repo.ListByUser(r.Context(), userID, limit)
	if err != nil {
		writeRepoError(w, err)
		return
	}
	writeJSON(w, rows)
}

// DailySummary returns per-day rows plus the window totals so the settings
// screen does not have to add them up.
func (h *LLMUsageHandler) DailySummary(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r)
	days := parseIntOrDefault(r.URL.Query().Get("days"), 14)
	if days < 1 || days > 365 {
		http.Error(w, "invalid days", http.StatusBadRequest)
		return
	}
	rows, err := h.repo.DailySummaryByUser(r.Context(), userID, days)
	if err != nil {
		writeRepoError(w, err)
		return
	}
	var calls int
	var in, out int64
	var cost float64
	for _, v := range rows {
		calls += v.Calls
		in += v.InputTokens
		out += v.OutputTokens
		cost += v.EstimatedCostUSD
	}
	writeJSON(w, map[string]any{
		"days": days,
		"rows": rows,
		"totals": map[string]any{
			"calls":              calls,
			"input_tokens":       in,
			"output_tokens":      out,
			"estimated_cost_usd": cost,
		},
	})
}
