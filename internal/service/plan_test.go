package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nutriplan/api/internal/model"
	"github.com/nutriplan/api/internal/repository"
)

// memPlanStore enforces one row per (user, week) like the unique constraint.
type memPlanStore struct {
	mu      sync.Mutex
	rows    map[string]model.WeeklyPlan
	seq     int
	inserts int
	// beforeInsert runs inside InsertIfAbsent to simulate a concurrent writer.
	beforeInsert func(s *memPlanStore, p model.WeeklyPlan)
}

func newMemPlanStore() *memPlanStore {
	return &memPlanStore{rows: map[string]model.WeeklyPlan{}}
}

func planKey(userID, weekStart string) string { return userID + "|" + weekStart }

func (s *memPlanStore) Get(_ context.Context, userID, weekStart string) (*model.WeeklyPlan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.rows[planKey(userID, weekStart)]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &p, nil
}

func (s *memPlanStore) insertLocked(p model.WeeklyPlan) (*model.WeeklyPlan, bool) {
	k := planKey(p.UserID, p.WeekStart)
	if _, ok := s.rows[k]; ok {
		return nil, false
	}
	s.seq++
	p.ID = fmt.Sprintf("plan-%d", s.seq)
	p.CreatedAt = time.Now()
	s.rows[k] = p
	return &p, true
}

func (s *memPlanStore) InsertIfAbsent(_ context.Context, p model.WeeklyPlan) (*model.WeeklyPlan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.beforeInsert != nil {
		hook := s.beforeInsert
		s.beforeInsert = nil
		hook(s, p)
	}
	s.inserts++
	stored, ok := s.insertLocked(p)
	if !ok {
		return nil, nil
	}
	return stored, nil
}

func (s *memPlanStore) Delete(_ context.Context, userID, weekStart string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := planKey(userID, weekStart)
	if _, ok := s.rows[k]; !ok {
		return repository.ErrNotFound
	}
	delete(s.rows, k)
	return nil
}

func (s *memPlanStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rows)
}

type staticContext struct{ pctx model.PlanContext }

func (c staticContext) Load(context.Context, string, time.Time) (*model.PlanContext, error) {
	p := c.pctx
	return &p, nil
}

type countingGenerator struct {
	mu    sync.Mutex
	calls int
	err   error
	inner *PlanGenerator
}

func (g *countingGenerator) Generate(ctx context.Context, userID string, weekStart time.Time, pctx model.PlanContext, apiKey string) (*model.WeeklyPlan, error) {
	g.mu.Lock()
	g.calls++
	g.mu.Unlock()
	if g.err != nil {
		return nil, g.err
	}
	return g.inner.Generate(ctx, userID, weekStart, pctx, apiKey)
}

type fakePlanEvents struct {
	mu   sync.Mutex
	sent []string
}

func (e *fakePlanEvents) SendPlanCreated(_ context.Context, userID, weekStart string) error {
	e.mu.Lock()
	e.sent = append(e.sent, userID+"|"+weekStart)
	e.mu.Unlock()
	return nil
}

func newTestPlanService(store WeeklyPlanStore, gen planProducer, events PlanEventSender) *PlanService {
	return NewPlanService(store, staticContext{pctx: model.PlanContext{AvgCalories: 2000, WaterTargetMl: 2450}}, gen, staticKeys(""), events)
}

func TestPlanServiceGetOrCreateIsIdempotent(t *testing.T) {
	store := newMemPlanStore()
	gen := &countingGenerator{inner: NewPlanGenerator(nil, nil)}
	events := &fakePlanEvents{}
	svc := newTestPlanService(store, gen, events)

	first, created, err := svc.GetOrCreateWeeklyPlan(context.Background(), "u1", testWednesday)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "2026-03-02", first.WeekStart)

	monday := time.Date(2026, 3, 2, 8, 0, 0, 0, testWednesday.Location())
	second, created, err := svc.GetOrCreateWeeklyPlan(context.Background(), "u1", monday)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, first.Days, second.Days)

	assert.Equal(t, 1, gen.calls)
	assert.Equal(t, 1, store.count())
	assert.Equal(t, []string{"u1|2026-03-02"}, events.sent)
}

func TestPlanServiceReturnsWinnerOnConflict(t *testing.T) {
	store := newMemPlanStore()
	var winnerID string
	store.beforeInsert = func(s *memPlanStore, p model.WeeklyPlan) {
		w := p
		w.ModelUsed = "other-writer"
		stored, _ := s.insertLocked(w)
		winnerID = stored.ID
	}
	events := &fakePlanEvents{}
	svc := newTestPlanService(store, &countingGenerator{inner: NewPlanGenerator(nil, nil)}, events)

	got, created, err := svc.GetOrCreateWeeklyPlan(context.Background(), "u1", testWednesday)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, winnerID, got.ID)
	assert.Equal(t, "other-writer", got.ModelUsed)
	assert.Empty(t, events.sent)
	assert.Equal(t, 1, store.count())
}

func TestPlanServiceConcurrentCallersShareOnePlan(t *testing.T) {
	store := newMemPlanStore()
	svc := newTestPlanService(store, &countingGenerator{inner: NewPlanGenerator(nil, nil)}, nil)

	const n = 8
	ids := make([]string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			p, _, err := svc.GetOrCreateWeeklyPlan(context.Background(), "u1", testWednesday)
			if err == nil {
				ids[i] = p.ID
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, store.count())
	for _, id := range ids {
		assert.Equal(t, ids[0], id)
	}
	assert.NotEmpty(t, ids[0])
}

func TestPlanServiceStructuralErrorIsNotStored(t *testing.T) {
	store := newMemPlanStore()
	m := &fakeModel{text: `{"days":[]}`}
	svc := NewPlanService(store, staticContext{}, NewPlanGenerator(m, nil), staticKeys("key"), nil)

	p, created, err := svc.GetOrCreateWeeklyPlan(context.Background(), "u1", testWednesday)
	assert.Nil(t, p)
	assert.False(t, created)
	var pe *PlanError
	require.ErrorAs(t, err, &pe)
	assert.True(t, pe.Structural)
	assert.Equal(t, 0, store.count())
}

func TestPlanServiceWrapsGeneratorFailure(t *testing.T) {
	gen := &countingGenerator{err: errors.New("boom")}
	svc := newTestPlanService(newMemPlanStore(), gen, nil)

	_, _, err := svc.GetOrCreateWeeklyPlan(context.Background(), "u1", testWednesday)
	var pe *PlanError
	require.ErrorAs(t, err, &pe)
	assert.False(t, pe.Structural)
}

func TestPlanServiceGetWeeklyPlan(t *testing.T) {
	store := newMemPlanStore()
	svc := newTestPlanService(store, &countingGenerator{inner: NewPlanGenerator(nil, nil)}, nil)

	_, err := svc.GetWeeklyPlan(context.Background(), "u1", testWednesday)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	created, _, err := svc.GetOrCreateWeeklyPlan(context.Background(), "u1", testWednesday)
	require.NoError(t, err)
	got, err := svc.GetWeeklyPlan(context.Background(), "u1", testWednesday.AddDate(0, 0, 3))
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
}

func TestPlanServiceRegenerate(t *testing.T) {
	store := newMemPlanStore()
	gen := &countingGenerator{inner: NewPlanGenerator(nil, nil)}
	svc := newTestPlanService(store, gen, nil)

	first, _, err := svc.GetOrCreateWeeklyPlan(context.Background(), "u1", testWednesday)
	require.NoError(t, err)
	second, err := svc.RegenerateWeeklyPlan(context.Background(), "u1", testWednesday)
	require.NoError(t, err)

	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, 2, gen.calls)
	assert.Equal(t, 1, store.count())

	// Regenerating a week with no plan just creates one.
	_, err = svc.RegenerateWeeklyPlan(context.Background(), "u2", testWednesday)
	require.NoError(t, err)
}
