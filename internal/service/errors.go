package service

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrEmptyMeal         = errors.New("meal text is empty")
	ErrVisionUnavailable = errors.New("image analysis is not configured")
)

// PlanError is a plan generation or persistence failure. Structural errors
// mean the model produced a plan that failed validation; everything else is
// worth retrying.
type PlanError struct {
	Structural bool
	Err        error
}

func (e *PlanError) Error() string {
	if e.Structural {
		return fmt.Sprintf("weekly plan rejected: %v", e.Err)
	}
	return fmt.Sprintf("weekly plan unavailable: %v", e.Err)
}

func (e *PlanError) Unwrap() error { return e.Err }

func (e *PlanError) Retryable() bool { return !e.Structural }

type RateLimitError struct {
	Route string
	Reset time.Time
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("too many requests for %s, retry after %s", e.Route, e.ResetISO())
}

func (e *RateLimitError) ResetISO() string {
	return e.Reset.UTC().Format(time.RFC3339)
}
