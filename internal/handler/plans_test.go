package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nutriplan/api/internal/middleware"
	"github.com/nutriplan/api/internal/model"
	"github.com/nutriplan/api/internal/repository"
	"github.com/nutriplan/api/internal/service"
)

type memPlans struct {
	mu   sync.Mutex
	rows map[string]model.WeeklyPlan
	seq  int
}

func (s *memPlans) Get(_ context.Context, userID, weekStart string) (*model.WeeklyPlan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.rows[userID+"|"+weekStart]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &p, nil
}

func (s *memPlans) InsertIfAbsent(_ context.Context, p model.WeeklyPlan) (*model.WeeklyPlan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := p.UserID + "|" + p.WeekStart
	if _, ok := s.rows[k]; ok {
		return nil, nil
	}
	s.seq++
	p.ID = fmt.Sprintf("plan-%d", s.seq)
	s.rows[k] = p
	return &p, nil
}

func (s *memPlans) Delete(_ context.Context, userID, weekStart string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rows, userID+"|"+weekStart)
	return nil
}

type fixedContext struct{}

func (fixedContext) Load(context.Context, string, time.Time) (*model.PlanContext, error) {
	return &model.PlanContext{AvgCalories: 2000, WaterTargetMl: 2500}, nil
}

type countingLimits struct {
	mu     sync.Mutex
	counts map[string]int
}

func (c *countingLimits) IncrementRateLimit(_ context.Context, key model.RateLimitKey) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	k := key.Route + "|" + key.IP + "|" + key.WindowStart.String()
	if key.UserID != nil {
		k = *key.UserID + "|" + k
	}
	c.counts[k]++
	return c.counts[k], nil
}

type recordedRequest struct {
	userID, weekStart string
}

type fakeRequester struct {
	sent []recordedRequest
}

func (f *fakeRequester) SendPlanRequested(_ context.Context, userID, weekStart string, _ bool) error {
	f.sent = append(f.sent, recordedRequest{userID: userID, weekStart: weekStart})
	return nil
}

func newTestPlanHandler(limit int, publisher planRequester) *PlanHandler {
	plans := service.NewPlanService(&memPlans{rows: map[string]model.WeeklyPlan{}}, fixedContext{}, service.NewPlanGenerator(nil, nil), nil, nil)
	limiter := service.NewRateLimiter(&countingLimits{counts: map[string]int{}})
	opts := service.RateLimitOptions{Route: service.RoutePlanGenerate, Seconds: 3600, Limit: limit}
	return NewPlanHandler(plans, limiter, opts, publisher)
}

func postPlan(h http.HandlerFunc, userID, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/plans/generate", strings.NewReader(body))
	req.RemoteAddr = "10.0.0.1:5555"
	req = req.WithContext(middleware.WithUserID(req.Context(), userID))
	rec := httptest.NewRecorder()
	h(rec, req)
	return rec
}

func TestPlanHandlerGenerate(t *testing.T) {
	h := newTestPlanHandler(1, nil)

	rec := postPlan(h.Generate, "u1", `{"week_start":"2026-03-04"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var first model.WeeklyPlan
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &first))
	assert.Equal(t, "2026-03-02", first.WeekStart)
	assert.Len(t, first.Days, model.PlanDays)
	assert.Equal(t, service.BaselinePlanModel, first.ModelUsed)

	// An existing plan is served without touching the limit.
	for i := 0; i < 3; i++ {
		rec = postPlan(h.Generate, "u1", `{"week_start":"2026-03-06"}`)
		require.Equal(t, http.StatusOK, rec.Code)
		var again model.WeeklyPlan
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &again))
		assert.Equal(t, first.ID, again.ID)
	}

	rec = postPlan(h.Generate, "u1", `{"week_start":"2026-03-09"}`)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
}

func TestPlanHandlerGenerateRejectsBadWeek(t *testing.T) {
	rec := postPlan(newTestPlanHandler(5, nil).Generate, "u1", `{"week_start":"next tuesday"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPlanHandlerGenerateAsync(t *testing.T) {
	pub := &fakeRequester{}
	rec := postPlan(newTestPlanHandler(5, pub).GenerateAsync, "u1", `{"week_start":"2026-03-08"}`)
	require.Equal(t, http.StatusAccepted, rec.Code)
	require.Len(t, pub.sent, 1)
	assert.Equal(t, recordedRequest{userID: "u1", weekStart: "2026-03-02"}, pub.sent[0])

	rec = postPlan(newTestPlanHandler(5, nil).GenerateAsync, "u1", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
