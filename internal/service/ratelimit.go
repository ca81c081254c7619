package service

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/nutriplan/api/internal/model"
)

const (
	RouteMealImage    = "meal_image"
	RoutePlanGenerate = "plan_generate"
)

type RateLimitStore interface {
	// IncrementRateLimit bumps the window counter and returns the new count.
	IncrementRateLimit(ctx context.Context, key model.RateLimitKey) (int, error)
}

type RateLimitOptions struct {
	Route   string
	Seconds int
	Limit   int
	UserID  *string
	IP      string
}

type RateLimiter struct {
	store RateLimitStore
	now   func() time.Time
}

func NewRateLimiter(store RateLimitStore) *RateLimiter {
	return &RateLimiter{store: store, now: time.Now}
}

// WindowStart aligns t down to a multiple of seconds since the Unix epoch.
func WindowStart(t time.Time, seconds int) time.Time {
	if seconds <= 0 {
		seconds = 1
	}
	s := int64(seconds)
	return time.Unix(t.Unix()/s*s, 0).UTC()
}

// Enforce counts one call against the fixed window. The call that pushes the
// count past Limit and every later call in the window get a RateLimitError.
func (l *RateLimiter) Enforce(ctx context.Context, opts RateLimitOptions) error {
	if opts.Limit <= 0 || opts.Seconds <= 0 {
		return fmt.Errorf("rate limit %q: limit and seconds must be positive", opts.Route)
	}
	start := WindowStart(l.now(), opts.Seconds)
	count, err := l.store.IncrementRateLimit(ctx, model.RateLimitKey{
		UserID:      opts.UserID,
		IP:          opts.IP,
		Route:       opts.Route,
		WindowStart: start,
	})
	if err != nil {
		return fmt.Errorf("rate limit %q: %w", opts.Route, err)
	}
	if count > opts.Limit {
		return &RateLimitError{Route: opts.Route, Reset: start.Add(time.Duration(opts.Seconds) * time.Second)}
	}
	return nil
}

type RateLimits struct {
	MealImage    RateLimitOptions
	PlanGenerate RateLimitOptions
}

func RateLimitsFromEnv() RateLimits {
	return RateLimits{
		MealImage:    RateLimitOptions{Route: RouteMealImage, Seconds: 60, Limit: envPositiveInt("RATE_LIMIT_IMAGE_PER_MIN", 5)},
		PlanGenerate: RateLimitOptions{Route: RoutePlanGenerate, Seconds: 3600, Limit: envPositiveInt("RATE_LIMIT_PLAN_PER_HOUR", 3)},
	}
}

func envPositiveInt(name string, def int) int {
	v, err := strconv.Atoi(os.Getenv(name))
	if err != nil || v <= 0 {
		return def
	}
	return v
}
