package inngest

import (
	"errors"
	"testing"

	inngesterrors "github.com/inngest/inngestgo/errors"
	"github.com/stretchr/testify/assert"

	"github.com/nutriplan/api/internal/model"
	"github.com/nutriplan/api/internal/service"
)

func TestPlanStepErrorStopsRetriesOnStructuralRejection(t *testing.T) {
	structural := &service.PlanError{Structural: true, Err: model.ErrInvalidPlan}
	err := planStepError("u1", structural)
	assert.True(t, inngesterrors.IsNoRetryError(err))
	assert.Contains(t, err.Error(), model.ErrInvalidPlan.Error())
}

func TestPlanStepErrorKeepsTransientFailuresRetryable(t *testing.T) {
	for name, in := range map[string]error{
		"retryable plan error": &service.PlanError{Err: errors.New("insert weekly plan: connection reset")},
		"plain error":          errors.New("load context: timeout"),
	} {
		t.Run(name, func(t *testing.T) {
			err := planStepError("u1", in)
			assert.False(t, inngesterrors.IsNoRetryError(err))
			assert.Same(t, in, err)
		})
	}
}
