package monitoring

import (
	"context"
	"errors"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/visibility-cli/internal/metrics"
	"github.com/sells-group/visibility-cli/internal/store"
)

// ReapMessage is recorded on runs the reaper fails.
const ReapMessage = "run exceeded wall-clock budget"

// Reaper fails runs that stayed non-terminal past the run budget. Such a
// run was killed by its host or crashed; a manual rescan is the recovery
// path.
type Reaper struct {
	store   store.Store
	maxAge  time.Duration
	metrics *metrics.Metrics
	now     func() time.Time
}

// NewReaper creates a Reaper. Runs older than budget+grace are reaped.
func NewReaper(st store.Store, budget, grace time.Duration, m *metrics.Metrics) *Reaper {
	return &Reaper{
		store:   st,
		maxAge:  budget + grace,
		metrics: m,
		now:     time.Now,
	}
}

// Reap fails every stale run and returns how many it failed. A run that
// finished between the listing and the update is skipped.
func (r *Reaper) Reap(ctx context.Context) (int, error) {
	cutoff := r.now().Add(-r.maxAge)
	stale, err := r.store.ListStaleRuns(ctx, cutoff)
	if err != nil {
		return 0, eris.Wrap(err, "monitoring: list stale runs")
	}

	reaped := 0
	for _, run := range stale {
		err := r.store.FailRun(ctx, run.ID, ReapMessage)
		switch {
		case errors.Is(err, store.ErrStatusConflict):
			continue
		case err != nil:
			zap.L().Error("monitoring: reap run",
				zap.String("run_id", run.ID),
				zap.Error(err),
			)
			continue
		}
		zap.L().Warn("monitoring: reaped stale run",
			zap.String("run_id", run.ID),
			zap.String("domain", run.Domain),
			zap.String("status", string(run.Status)),
			zap.Time("created_at", run.CreatedAt),
		)
		reaped++
	}
	r.metrics.Reaped(reaped)
	return reaped, nil
}
