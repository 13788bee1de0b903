package jobs

import (
	"context"
	"fmt"

	"github.com/naveenvino/breezepython/pkg/logger"
)

// SessionValidator checks that the vendor session token still works
type SessionValidator interface {
	ValidateSession(ctx context.Context) error
}

// SessionCheckJob verifies the vendor session before the market opens,
// so a stale token is noticed before the evening collection run fails.
type SessionCheckJob struct {
	validator SessionValidator
	logger    *logger.Logger
}

// NewSessionCheckJob creates the morning session check job
func NewSessionCheckJob(validator SessionValidator, log *logger.Logger) *SessionCheckJob {
	return &SessionCheckJob{
		validator: validator,
		logger:    log,
	}
}

// Name returns the job name
func (j *SessionCheckJob) Name() string {
	return "session_check"
}

// Schedule runs weekdays at 8:30 AM, before the 9:15 AM open
func (j *SessionCheckJob) Schedule() string {
	return "0 30 8 * * 1-5"
}

// Run validates the vendor session
func (j *SessionCheckJob) Run(ctx context.Context) error {
	if err := j.validator.ValidateSession(ctx); err != nil {
		return fmt.Errorf("vendor session invalid: %w", err)
	}

	j.logger.Info("Vendor session valid")
	return nil
}
