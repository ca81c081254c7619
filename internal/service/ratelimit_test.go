package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nutriplan/api/internal/model"
)

type memRateLimitStore struct {
	mu     sync.Mutex
	counts map[model.RateLimitKey]int
	err    error
}

func (s *memRateLimitStore) IncrementRateLimit(_ context.Context, key model.RateLimitKey) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return 0, s.err
	}
	if s.counts == nil {
		s.counts = map[model.RateLimitKey]int{}
	}
	// Pointer identity differs between callers; key on the value.
	k := key
	if key.UserID != nil {
		k.UserID = nil
		k.IP = *key.UserID + "|" + key.IP
	}
	s.counts[k]++
	return s.counts[k], nil
}

func TestWindowStart(t *testing.T) {
	assert.Equal(t, time.Unix(120, 0).UTC(), WindowStart(time.Unix(125, 0), 60))
	assert.Equal(t, time.Unix(120, 0).UTC(), WindowStart(time.Unix(120, 0), 60))
	assert.Equal(t, time.Unix(3600, 0).UTC(), WindowStart(time.Unix(7199, 0), 3600))
}

func TestRateLimiterEnforce(t *testing.T) {
	store := &memRateLimitStore{}
	l := NewRateLimiter(store)
	now := time.Unix(1_700_000_030, 0)
	l.now = func() time.Time { return now }

	user := "u1"
	opts := RateLimitOptions{Route: RouteMealImage, Seconds: 60, Limit: 3, UserID: &user, IP: "10.0.0.1"}
	for i := 0; i < 3; i++ {
		require.NoError(t, l.Enforce(context.Background(), opts), "call %d", i+1)
	}

	err := l.Enforce(context.Background(), opts)
	var rle *RateLimitError
	require.ErrorAs(t, err, &rle)
	assert.Equal(t, RouteMealImage, rle.Route)
	assert.Equal(t, WindowStart(now, 60).Add(60*time.Second), rle.Reset)
	assert.False(t, rle.Reset.Before(now))

	other := "u2"
	otherOpts := opts
	otherOpts.UserID = &other
	assert.NoError(t, l.Enforce(context.Background(), otherOpts))

	now = now.Add(60 * time.Second)
	assert.NoError(t, l.Enforce(context.Background(), opts))
}

func TestRateLimiterAnonymousCallersShareIPBucket(t *testing.T) {
	l := NewRateLimiter(&memRateLimitStore{})
	opts := RateLimitOptions{Route: RoutePlanGenerate, Seconds: 3600, Limit: 1, IP: "10.0.0.9"}
	require.NoError(t, l.Enforce(context.Background(), opts))
	var rle *RateLimitError
	assert.ErrorAs(t, l.Enforce(context.Background(), opts), &rle)
}

func TestRateLimiterErrors(t *testing.T) {
	l := NewRateLimiter(&memRateLimitStore{err: errors.New("db down")})
	err := l.Enforce(context.Background(), RateLimitOptions{Route: RouteMealImage, Seconds: 60, Limit: 5})
	require.Error(t, err)
	var rle *RateLimitError
	assert.False(t, errors.As(err, &rle))

	assert.Error(t, NewRateLimiter(&memRateLimitStore{}).Enforce(context.Background(), RateLimitOptions{Route: "x", Seconds: 0, Limit: 5}))
	assert.Error(t, NewRateLimiter(&memRateLimitStore{}).Enforce(context.Background(), RateLimitOptions{Route: "x", Seconds: 60, Limit: 0}))
}

func TestRateLimitsFromEnv(t *testing.T) {
	t.Setenv("RATE_LIMIT_IMAGE_PER_MIN", "12")
	t.Setenv("RATE_LIMIT_PLAN_PER_HOUR", "nope")
	l := RateLimitsFromEnv()
	assert.Equal(t, 12, l.MealImage.Limit)
	assert.Equal(t, 60, l.MealImage.Seconds)
	assert.Equal(t, 3, l.PlanGenerate.Limit)
	assert.Equal(t, 3600, l.PlanGenerate.Seconds)
}
