package job

import (
	"context"
	"time"

	"github.com/gaborage/go-bricks/scheduler"
)

// Purger removes completed progress past retention.
type Purger interface {
	PurgeCompleted(ctx context.Context) (int64, error)
}

// RetentionJob purges finished titles from continue-watching storage.
type RetentionJob struct {
	Purger  Purger
	Timeout time.Duration
}

// Execute implements scheduler.Executor. The run is bounded by Timeout and
// stops early when the scheduler cancels the job context.
func (j *RetentionJob) Execute(ctx scheduler.JobContext) error {
	logger := ctx.Logger()

	timeout := j.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	purged, err := j.Purger.PurgeCompleted(runCtx)
	if err != nil {
		logger.Error().
			Err(err).
			Str("jobID", ctx.JobID()).
			Msg("Progress retention failed")
		return err
	}

	if purged > 0 {
		logger.Info().
			Str("jobID", ctx.JobID()).
			Int("purged", int(purged)).
			Msg("Purged completed progress")
	}

	return nil
}
