package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/nutriplan/api/internal/model"
	"github.com/nutriplan/api/internal/repository"
)

// memCache is an in-memory JSONCache. TTLs are ignored.
type memCache struct {
	mu      sync.Mutex
	data    map[string][]byte
	metrics map[string]int64
	deleted []string
}

func newMemCache() *memCache {
	return &memCache{data: map[string][]byte{}, metrics: map[string]int64{}}
}

func (c *memCache) GetJSON(_ context.Context, key string, dst any) (bool, error) {
	c.mu.Lock()
	b, ok := c.data[key]
	c.mu.Unlock()
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(b, dst)
}

func (c *memCache) SetJSON(_ context.Context, key string, value any, _ time.Duration) error {
	b, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.data[key] = b
	c.mu.Unlock()
	return nil
}

func (c *memCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	delete(c.data, key)
	c.deleted = append(c.deleted, key)
	c.mu.Unlock()
	return nil
}

func (c *memCache) Ping(context.Context) error { return nil }

func (c *memCache) IncrMetric(_ context.Context, namespace, field string, delta int64, _ time.Time, _ time.Duration) error {
	c.mu.Lock()
	c.metrics[namespace+"/"+field] += delta
	c.mu.Unlock()
	return nil
}

func (c *memCache) SumMetrics(_ context.Context, namespace string, _, _ time.Time) (map[string]int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := map[string]int64{}
	for k, v := range c.metrics {
		if len(k) > len(namespace) && k[:len(namespace)+1] == namespace+"/" {
			out[k[len(namespace)+1:]] = v
		}
	}
	return out, nil
}

func (c *memCache) metric(namespace, field string) int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.metrics[namespace+"/"+field]
}

type fakeCatalogSource struct {
	mu      sync.Mutex
	entries []model.CatalogEntry
	err     error
	calls   int
}

func (s *fakeCatalogSource) ListAll(context.Context) ([]model.CatalogEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return append([]model.CatalogEntry(nil), s.entries...), nil
}

func (s *fakeCatalogSource) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// testCatalog is a fixed catalog snapshot in name order.
func testCatalog() []model.CatalogEntry {
	return []model.CatalogEntry{
		{Name: "Boiled Rice", UnitBasis: "per_100g", Calories: 130, Protein: 2.7, Carbs: 28, Fat: 0.3},
		{Name: "Chapati", UnitBasis: "per_piece", Calories: 120, Protein: 3.5, Carbs: 18, Fat: 3},
		{Name: "Chicken Breast (cooked)", UnitBasis: "per_100g", Calories: 165, Protein: 31, Carbs: 0, Fat: 3.6},
		{Name: "Curd (Dahi)", UnitBasis: "per_100g", Calories: 98, Protein: 5, Carbs: 7, Fat: 5},
		{Name: "Dal (Lentil Curry)", UnitBasis: "per_100g", Calories: 120, Protein: 7, Carbs: 18, Fat: 2},
		{Name: "Dosa", UnitBasis: "per_piece", Calories: 168, Protein: 3.9, Carbs: 25, Fat: 5.8},
		{Name: "Egg", UnitBasis: "per_piece", Calories: 78, Protein: 6, Carbs: 0.6, Fat: 5.3},
		{Name: "Idli", UnitBasis: "per_piece", Calories: 58, Protein: 2, Carbs: 12, Fat: 0.4},
		{Name: "Mutton (cooked)", UnitBasis: "per_100g", Calories: 294, Protein: 25, Carbs: 0, Fat: 21},
		{Name: "Prawns (cooked)", UnitBasis: "per_100g", Calories: 99, Protein: 24, Carbs: 0.2, Fat: 0.3},
	}
}

// fakeModel answers GenerateContent with a canned response.
type fakeModel struct {
	mu    sync.Mutex
	name  string
	text  string
	err   error
	calls int
	parts [][]GeminiPart
}

func (m *fakeModel) Model() string {
	if m.name == "" {
		return "gemini-test"
	}
	return m.name
}

func (m *fakeModel) GenerateContent(_ context.Context, apiKey string, parts []GeminiPart, _ bool) (*GeminiResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	m.parts = append(m.parts, parts)
	if m.err != nil {
		return nil, m.err
	}
	if apiKey == "" {
		return nil, fmt.Errorf("no key")
	}
	return &GeminiResult{
		Text: m.text,
		LLM:  &LLMUsage{Provider: "google", Model: m.Model(), InputTokens: 100, OutputTokens: 50},
	}, nil
}

type recordedUsage struct {
	purpose string
	userID  string
	usage   *LLMUsage
}

type fakeUsageRecorder struct {
	mu      sync.Mutex
	records []recordedUsage
}

func (r *fakeUsageRecorder) Record(_ context.Context, purpose string, usage *LLMUsage, userID string) {
	r.mu.Lock()
	r.records = append(r.records, recordedUsage{purpose: purpose, userID: userID, usage: usage})
	r.mu.Unlock()
}

type staticKeys string

func (k staticKeys) GeminiAPIKey(context.Context, string) (string, error) { return string(k), nil }

type fakeProfiles struct {
	profile *model.Profile
	calls   int
}

func (f *fakeProfiles) GetByUserID(context.Context, string) (*model.Profile, error) {
	f.calls++
	if f.profile == nil {
		return nil, repository.ErrNotFound
	}
	return f.profile, nil
}

type fakeWeighIns struct {
	latest *model.WeighIn
}

func (f *fakeWeighIns) Latest(context.Context, string) (*model.WeighIn, error) {
	if f.latest == nil {
		return nil, repository.ErrNotFound
	}
	return f.latest, nil
}

type fakeMealTotals struct {
	days  []model.DailyMealTotal
	from  time.Time
	calls int
}

func (f *fakeMealTotals) DailyTotals(_ context.Context, _ string, from, _ time.Time) ([]model.DailyMealTotal, error) {
	f.calls++
	f.from = from
	return f.days, nil
}

type fakeWaterTotals struct {
	days []model.DailyWaterTotal
}

func (f *fakeWaterTotals) DailyTotals(context.Context, string, time.Time, time.Time) ([]model.DailyWaterTotal, error) {
	return f.days, nil
}

func floatPtr(v float64) *float64 { return &v }
