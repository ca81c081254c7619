package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/nutriplan/api/internal/model"
	"github.com/nutriplan/api/internal/repository"
	"github.com/nutriplan/api/internal/timeutil"
)

type WeeklyPlanStore interface {
	Get(ctx context.Context, userID, weekStart string) (*model.WeeklyPlan, error)
	// InsertIfAbsent returns nil, nil when another writer already owns the row.
	InsertIfAbsent(ctx context.Context, plan model.WeeklyPlan) (*model.WeeklyPlan, error)
	Delete(ctx context.Context, userID, weekStart string) error
}

type planContextSource interface {
	Load(ctx context.Context, userID string, now time.Time) (*model.PlanContext, error)
}

type planProducer interface {
	Generate(ctx context.Context, userID string, weekStart time.Time, pctx model.PlanContext, apiKey string) (*model.WeeklyPlan, error)
}

func ValidatePlan(p *model.WeeklyPlan) error {
	return p.Validate()
}

// PlanService is the one place weekly plans are created. At most one plan
// exists per (user, week); the first stored plan is returned unchanged.
type PlanService struct {
	plans     WeeklyPlanStore
	context   planContextSource
	generator planProducer
	keys      APIKeyResolver
	events    PlanEventSender
	now       func() time.Time
}

func NewPlanService(plans WeeklyPlanStore, ctxLoader planContextSource, generator planProducer, keys APIKeyResolver, events PlanEventSender) *PlanService {
	return &PlanService{
		plans:     plans,
		context:   ctxLoader,
		generator: generator,
		keys:      keys,
		events:    events,
		now:       time.Now,
	}
}

func (s *PlanService) GetWeeklyPlan(ctx context.Context, userID string, weekStart time.Time) (*model.WeeklyPlan, error) {
	return s.plans.Get(ctx, userID, timeutil.DateString(timeutil.MondayOf(weekStart)))
}

// GetOrCreateWeeklyPlan returns the stored plan for weekStart's week or
// generates one. created reports whether this call stored the plan.
func (s *PlanService) GetOrCreateWeeklyPlan(ctx context.Context, userID string, weekStart time.Time) (*model.WeeklyPlan, bool, error) {
	monday := timeutil.MondayOf(weekStart)
	ws := timeutil.DateString(monday)

	existing, err := s.plans.Get(ctx, userID, ws)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, false, &PlanError{Err: fmt.Errorf("lookup plan: %w", err)}
	}

	pctx, err := s.context.Load(ctx, userID, s.now())
	if err != nil {
		return nil, false, &PlanError{Err: err}
	}
	apiKey := ""
	if s.keys != nil {
		if apiKey, err = s.keys.GeminiAPIKey(ctx, userID); err != nil {
			log.Printf("plan key lookup failed user_id=%s err=%v", userID, err)
			apiKey = ""
		}
	}
	plan, err := s.generator.Generate(ctx, userID, monday, *pctx, apiKey)
	if err != nil {
		var pe *PlanError
		if errors.As(err, &pe) {
			return nil, false, err
		}
		return nil, false, &PlanError{Err: err}
	}
	plan.UserID = userID
	plan.WeekStart = ws
	if err := ValidatePlan(plan); err != nil {
		return nil, false, &PlanError{Structural: true, Err: err}
	}

	stored, err := s.plans.InsertIfAbsent(ctx, *plan)
	if err != nil {
		return nil, false, &PlanError{Err: fmt.Errorf("store plan: %w", err)}
	}
	if stored == nil {
		winner, err := s.plans.Get(ctx, userID, ws)
		if err != nil {
			return nil, false, &PlanError{Err: fmt.Errorf("re-read plan after conflict: %w", err)}
		}
		log.Printf("plan insert lost race user_id=%s week=%s", userID, ws)
		return winner, false, nil
	}
	log.Printf("plan generated user_id=%s week=%s model=%s", userID, ws, stored.ModelUsed)
	if s.events != nil {
		if err := s.events.SendPlanCreated(ctx, userID, ws); err != nil {
			log.Printf("send plan/created user_id=%s week=%s err=%v", userID, ws, err)
		}
	}
	return stored, true, nil
}

// RegenerateWeeklyPlan discards the stored plan for the week and builds a new one.
func (s *PlanService) RegenerateWeeklyPlan(ctx context.Context, userID string, weekStart time.Time) (*model.WeeklyPlan, error) {
	ws := timeutil.DateString(timeutil.MondayOf(weekStart))
	if err := s.plans.Delete(ctx, userID, ws); err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, &PlanError{Err: fmt.Errorf("delete plan: %w", err)}
	}
	plan, _, err := s.GetOrCreateWeeklyPlan(ctx, userID, weekStart)
	return plan, err
}
