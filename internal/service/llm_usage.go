package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log"
	"time"

	"github.com/nutriplan/api/internal/repository"
)

type LLMUsageRecorder interface {
	Record(ctx context.Context, purpose string, usage *LLMUsage, userID string)
}

type llmUsageWriter interface {
	Insert(ctx context.Context, in repository.LLMUsageLogInput) error
}

type LLMUsageLogger struct {
	repo llmUsageWriter
	now  func() time.Time
}

func NewLLMUsageLogger(repo llmUsageWriter) *LLMUsageLogger {
	return &LLMUsageLogger{repo: repo, now: time.Now}
}

func (l *LLMUsageLogger) Record(ctx context.Context, purpose string, usage *LLMUsage, userID string) {
	if l == nil || l.repo == nil || usage == nil || usage.Provider == "" || usage.Model == "" {
		return
	}
	pricingSource := usage.PricingSource
	if pricingSource == "" {
		pricingSource = "unknown"
	}
	key := llmUsageIdempotencyKey(purpose, usage, userID, l.now())
	var uid *string
	if userID != "" {
		uid = &userID
	}
	if err := l.repo.Insert(ctx, repository.LLMUsageLogInput{
		IdempotencyKey:   &key,
		UserID:           uid,
		Provider:         usage.Provider,
		Model:            usage.Model,
		PricingSource:    pricingSource,
		Purpose:          purpose,
		InputTokens:      usage.InputTokens,
		OutputTokens:     usage.OutputTokens,
		EstimatedCostUSD: usage.EstimatedCostUSD,
	}); err != nil {
		log.Printf("record llm usage purpose=%s: %v", purpose, err)
	}
}

func llmUsageIdempotencyKey(purpose string, usage *LLMUsage, userID string, at time.Time) string {
	raw := fmt.Sprintf(
		"purpose=%s|provider=%s|model=%s|u=%s|in=%d|out=%d|at=%d",
		purpose, usage.Provider, usage.Model, userID, usage.InputTokens, usage.OutputTokens, at.UnixNano(),
	)
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
