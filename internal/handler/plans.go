package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/nutriplan/api/internal/middleware"
	"github.com/nutriplan/api/internal/repository"
	"github.com/nutriplan/api/internal/service"
	"github.com/nutriplan/api/internal/timeutil"
)

type planRequester interface {
	SendPlanRequested(ctx context.Context, userID, weekStart string, force bool) error
}

type PlanHandler struct {
	plans     *service.PlanService
	limiter   *service.RateLimiter
	limit     service.RateLimitOptions
	publisher planRequester
}

func NewPlanHandler(plans *service.PlanService, limiter *service.RateLimiter, generateLimit service.RateLimitOptions, publisher planRequester) *PlanHandler {
	return &PlanHandler{plans: plans, limiter: limiter, limit: generateLimit, publisher: publisher}
}

func (h *PlanHandler) enforce(r *http.Request, userID string) error {
	if h.limiter == nil {
		return nil
	}
	opts := h.limit
	opts.UserID = &userID
	opts.IP = middleware.ClientIP(r)
	return h.limiter.Enforce(r.Context(), opts)
}

// weekFromBody reads an optional {"week_start": "..."}; missing means this week.
func weekFromBody(r *http.Request) (time.Time, bool) {
	var body struct {
		WeekStart string `json:"week_start"`
	}
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			return time.Time{}, false
		}
	}
	if strings.TrimSpace(body.WeekStart) == "" {
		return timeutil.NowLocal(), true
	}
	t, err := timeutil.ParseLocal(body.WeekStart)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

func (h *PlanHandler) Current(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r)
	plan, err := h.plans.GetWeeklyPlan(r.Context(), userID, timeutil.NowLocal())
	if err != nil {
		writeRepoError(w, err)
		return
	}
	writeJSON(w, plan)
}

func (h *PlanHandler) ByWeek(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r)
	week, err := timeutil.ParseLocal(chi.URLParam(r, "weekStart"))
	if err != nil {
		http.Error(w, "invalid weekStart", http.StatusBadRequest)
		return
	}
	plan, err := h.plans.GetWeeklyPlan(r.Context(), userID, week)
	if err != nil {
		writeRepoError(w, err)
		return
	}
	writeJSON(w, plan)
}

// Generate returns the week's plan, creating it if needed. Only calls that
// would actually generate count against the rate limit.
func (h *PlanHandler) Generate(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r)
	week, ok := weekFromBody(r)
	if !ok {
		http.Error(w, "invalid week_start", http.StatusBadRequest)
		return
	}
	existing, err := h.plans.GetWeeklyPlan(r.Context(), userID, week)
	if err == nil {
		writeJSON(w, existing)
		return
	}
	if !errors.Is(err, repository.ErrNotFound) {
		writeRepoError(w, err)
		return
	}
	if err := h.enforce(r, userID); err != nil {
		writeServiceError(w, err)
		return
	}
	plan, created, err := h.plans.GetOrCreateWeeklyPlan(r.Context(), userID, week)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSONStatus(w, status, plan)
}

func (h *PlanHandler) Regenerate(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r)
	week, ok := weekFromBody(r)
	if !ok {
		http.Error(w, "invalid week_start", http.StatusBadRequest)
		return
	}
	if err := h.enforce(r, userID); err != nil {
		writeServiceError(w, err)
		return
	}
	plan, err := h.plans.RegenerateWeeklyPlan(r.Context(), userID, week)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, plan)
}

func (h *PlanHandler) GenerateAsync(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r)
	week, ok := weekFromBody(r)
	if !ok {
		http.Error(w, "invalid week_start", http.StatusBadRequest)
		return
	}
	if h.publisher == nil {
		http.Error(w, "background jobs are not configured", http.StatusServiceUnavailable)
		return
	}
	if err := h.enforce(r, userID); err != nil {
		writeServiceError(w, err)
		return
	}
	ws := timeutil.DateString(timeutil.MondayOf(week))
	if err := h.publisher.SendPlanRequested(r.Context(), userID, ws, false); err != nil {
		http.Error(w, "failed to queue plan", http.StatusBadGateway)
		return
	}
	writeJSONStatus(w, http.StatusAccepted, map[string]any{"status": "queued", "week_start": ws})
}
