package job

import (
	"context"
	"time"

	"github.com/gaborage/go-bricks/scheduler"
)

// Roller compacts the raw view log.
type Roller interface {
	Rollup(ctx context.Context) (int64, error)
}

// RollupJob folds view events older than the raw retention into daily buckets.
type RollupJob struct {
	Roller  Roller
	Timeout time.Duration
}

// Execute implements scheduler.Executor. The run is bounded by Timeout and
// stops early when the scheduler cancels the job context.
func (j *RollupJob) Execute(ctx scheduler.JobContext) error {
	logger := ctx.Logger()

	timeout := j.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	moved, err := j.Roller.Rollup(runCtx)
	if err != nil {
		logger.Error().
			Err(err).
			Str("jobID", ctx.JobID()).
			Msg("View rollup failed")
		return err
	}

	logger.Info().
		Str("jobID", ctx.JobID()).
		Int("events", int(moved)).
		Dur("took", time.Since(start)).
		Msg("View rollup completed")

	return nil
}
