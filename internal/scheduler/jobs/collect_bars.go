package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/naveenvino/breezepython/internal/data"
	"github.com/naveenvino/breezepython/pkg/logger"
)

// Recent window topped up on every run. Wide enough to absorb a few
// missed runs around holidays.
const collectionLookback = 5 * 24 * time.Hour

// BarCollectionJob tops up hourly index bars every trading day after
// the NSE close.
type BarCollectionJob struct {
	collector *data.Collector
	logger    *logger.Logger
}

// NewBarCollectionJob creates the nightly bar collection job
func NewBarCollectionJob(collector *data.Collector, log *logger.Logger) *BarCollectionJob {
	return &BarCollectionJob{
		collector: collector,
		logger:    log,
	}
}

// Name returns the job name
func (j *BarCollectionJob) Name() string {
	return "bar_collection"
}

// Schedule runs weekdays at 4 PM, after the 3:30 PM close
func (j *BarCollectionJob) Schedule() string {
	return "0 0 16 * * 1-5"
}

// Run fetches the recent window of index bars into the local store
func (j *BarCollectionJob) Run(ctx context.Context) error {
	to := time.Now()
	from := to.Add(-collectionLookback)

	j.logger.WithFields(map[string]interface{}{
		"from": from.Format("2006-01-02"),
		"to":   to.Format("2006-01-02"),
	}).Info("Scheduled bar collection starting")

	if err := j.collector.EnsureIndexData(ctx, from, to); err != nil {
		return fmt.Errorf("collect index bars: %w", err)
	}
	return nil
}
