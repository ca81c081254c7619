package inngest

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/inngest/inngestgo"
	"github.com/inngest/inngestgo/step"
	"github.com/nutriplan/api/internal/model"
	"github.com/nutriplan/api/internal/repository"
	"github.com/nutriplan/api/internal/service"
	"github.com/nutriplan/api/internal/timeutil"
)

type planLister interface {
	Get(ctx context.Context, userID, weekStart string) (*model.WeeklyPlan, error)
	UsersMissingPlan(ctx context.Context, weekStart string) ([]string, error)
}

type planEmailTargets interface {
	GetPlanEmailTarget(ctx context.Context, userID string) (*repository.PlanEmailTarget, error)
}

type rateLimitPruner interface {
	PruneBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type planEmailSender interface {
	Enabled() bool
	SendWeeklyPlan(ctx context.Context, to string, plan *model.WeeklyPlan) error
}

// Deps are the shared services the background functions run against.
type Deps struct {
	Plans      *service.PlanService
	PlanRepo   planLister
	Catalog    *service.CatalogCache
	Settings   planEmailTargets
	RateLimits rateLimitPruner
	Resend     planEmailSender
}

type PlanRequestedData struct {
	UserID    string `json:"user_id"`
	WeekStart string `json:"week_start"`
	Force     bool   `json:"force"`
}

type PlanCreatedData struct {
	UserID    string `json:"user_id"`
	WeekStart string `json:"week_start"`
}

// NewHandler registers all Inngest functions and returns the HTTP handler.
func NewHandler(deps Deps) http.Handler {
	client, err := inngestgo.NewClient(inngestgo.ClientOpts{
		AppID: "nutriplan-api",
	})
	if err != nil {
		log.Fatalf("inngest client: %v", err)
	}

	register := func(f inngestgo.ServableFunction, err error) {
		if err != nil {
			log.Fatalf("register function: %v", err)
		}
	}

	register(scheduleWeeklyPlansFn(client, deps))
	register(generatePlanFn(client, deps))
	register(sendPlanEmailFn(client, deps))
	register(warmCatalogFn(client, deps))

	return client.Serve()
}

// cron/schedule-weekly-plans fans out one plan/requested event per active
// user without a plan, Mondays 06:00 IST.
func scheduleWeeklyPlansFn(client inngestgo.Client, deps Deps) (inngestgo.ServableFunction, error) {
	return inngestgo.CreateFunction(
		client,
		inngestgo.FunctionOpts{ID: "schedule-weekly-plans", Name: "Schedule Weekly Plans"},
		inngestgo.CronTrigger("TZ=Asia/Kolkata 0 6 * * 1"),
		func(ctx context.Context, input inngestgo.Input[any]) (any, error) {
			ws := timeutil.DateString(timeutil.MondayOf(timeutil.NowLocal()))
			users, err := deps.PlanRepo.UsersMissingPlan(ctx, ws)
			if err != nil {
				return nil, fmt.Errorf("list users missing plan: %w", err)
			}
			queued := 0
			for _, userID := range users {
				if _, err := client.Send(ctx, inngestgo.Event{
					Name: service.EventPlanRequested,
					Data: map[string]any{"user_id": userID, "week_start": ws, "force": false},
				}); err != nil {
					log.Printf("schedule-weekly-plans send user_id=%s: %v", userID, err)
					continue
				}
				queued++
			}
			log.Printf("schedule-weekly-plans week=%s users=%d queued=%d", ws, len(users), queued)
			return map[string]any{"week_start": ws, "users": len(users), "queued": queued}, nil
		},
	)
}

// planStepError marks structural plan rejections as final so the step is not
// retried against the model.
func planStepError(userID string, err error) error {
	var pe *service.PlanError
	if errors.As(err, &pe) && !pe.Retryable() {
		log.Printf("generate-weekly-plan rejected user_id=%s: %v", userID, err)
		return inngestgo.NoRetryError(err)
	}
	return err
}

func generatePlanFn(client inngestgo.Client, deps Deps) (inngestgo.ServableFunction, error) {
	return inngestgo.CreateFunction(
		client,
		inngestgo.FunctionOpts{ID: "generate-weekly-plan", Name: "Generate Weekly Plan"},
		inngestgo.EventTrigger(service.EventPlanRequested, nil),
		func(ctx context.Context, input inngestgo.Input[PlanRequestedData]) (any, error) {
			data := input.Event.Data
			if data.UserID == "" {
				return map[string]string{"status": "skipped", "reason": "missing_user_id"}, nil
			}
			week := timeutil.NowLocal()
			if data.WeekStart != "" {
				t, err := timeutil.ParseLocal(data.WeekStart)
				if err != nil {
					log.Printf("generate-weekly-plan invalid week_start=%q user_id=%s", data.WeekStart, data.UserID)
					return map[string]string{"status": "skipped", "reason": "invalid_week_start"}, nil
				}
				week = t
			}
			log.Printf("generate-weekly-plan start user_id=%s week=%s force=%v", data.UserID, data.WeekStart, data.Force)

			plan, err := step.Run(ctx, "generate", func(ctx context.Context) (*model.WeeklyPlan, error) {
				if data.Force {
					p, err := deps.Plans.RegenerateWeeklyPlan(ctx, data.UserID, week)
					if err != nil {
						return nil, planStepError(data.UserID, err)
					}
					return p, nil
				}
				p, _, err := deps.Plans.GetOrCreateWeeklyPlan(ctx, data.UserID, week)
				if err != nil {
					return nil, planStepError(data.UserID, err)
				}
				return p, nil
			})
			if err != nil {
				return nil, err
			}
			log.Printf("generate-weekly-plan done user_id=%s week=%s model=%s", data.UserID, plan.WeekStart, plan.ModelUsed)
			return map[string]any{"user_id": data.UserID, "week_start": plan.WeekStart, "model_used": plan.ModelUsed}, nil
		},
	)
}

func sendPlanEmailFn(client inngestgo.Client, deps Deps) (inngestgo.ServableFunction, error) {
	return inngestgo.CreateFunction(
		client,
		inngestgo.FunctionOpts{ID: "send-plan-email", Name: "Send Weekly Plan Email"},
		inngestgo.EventTrigger(service.EventPlanCreated, nil),
		func(ctx context.Context, input inngestgo.Input[PlanCreatedData]) (any, error) {
			data := input.Event.Data
			if deps.Resend == nil || !deps.Resend.Enabled() {
				return map[string]string{"status": "skipped", "reason": "resend_disabled"}, nil
			}
			target, err := deps.Settings.GetPlanEmailTarget(ctx, data.UserID)
			if errors.Is(err, repository.ErrNotFound) {
				return map[string]string{"status": "skipped", "reason": "user_disabled"}, nil
			}
			if err != nil {
				return nil, fmt.Errorf("load plan email target: %w", err)
			}
			plan, err := deps.PlanRepo.Get(ctx, data.UserID, data.WeekStart)
			if err != nil {
				return nil, fmt.Errorf("load plan: %w", err)
			}
			_, err = step.Run(ctx, "send-email", func(ctx context.Context) (string, error) {
				if err := deps.Resend.SendWeeklyPlan(ctx, target.Email, plan); err != nil {
					return "", err
				}
				return "sent", nil
			})
			if err != nil {
				return nil, fmt.Errorf("send email: %w", err)
			}
			log.Printf("send-plan-email sent user_id=%s week=%s", data.UserID, data.WeekStart)
			return map[string]string{"status": "sent", "to": target.Email}, nil
		},
	)
}

// cron/warm-catalog reloads the food catalog into Redis and prunes rate
// limit windows older than two days.
func warmCatalogFn(client inngestgo.Client, deps Deps) (inngestgo.ServableFunction, error) {
	return inngestgo.CreateFunction(
		client,
		inngestgo.FunctionOpts{ID: "warm-catalog", Name: "Warm Food Catalog"},
		inngestgo.CronTrigger("0 * * * *"),
		func(ctx context.Context, input inngestgo.Input[any]) (any, error) {
			entries, err := deps.Catalog.Refresh(ctx)
			if err != nil {
				return nil, fmt.Errorf("refresh catalog: %w", err)
			}
			var pruned int64
			if deps.RateLimits != nil {
				pruned, err = deps.RateLimits.PruneBefore(ctx, time.Now().Add(-48*time.Hour))
				if err != nil {
					log.Printf("warm-catalog prune rate limits: %v", err)
				}
			}
			return map[string]any{"catalog_entries": len(entries), "rate_limit_rows_pruned": pruned}, nil
		},
	)
}
