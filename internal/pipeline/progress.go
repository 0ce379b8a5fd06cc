package pipeline

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/visibility-cli/internal/model"
	"github.com/sells-group/visibility-cli/internal/store"
)

// QueryProgress maps resolved calls onto the querying progress band.
func QueryProgress(done, total int) int {
	if total <= 0 {
		return model.ProgressQueryEnd
	}
	done = max(0, min(done, total))
	return model.ProgressQueryStart + (model.ProgressQueryEnd-model.ProgressQueryStart)*done/total
}

// ProgressReporter throttles querying progress writes. Report may be called
// concurrently; a single flusher goroutine writes the latest value at most
// once per interval and once more on Close.
type ProgressReporter struct {
	store    store.Store
	runID    string
	interval time.Duration

	latest  atomic.Int64
	written int64

	stop    chan struct{}
	stopped chan struct{}
	once    sync.Once
}

// NewProgressReporter starts a reporter for runID. Close must be called.
func NewProgressReporter(ctx context.Context, st store.Store, runID string, interval time.Duration) *ProgressReporter {
	if interval <= 0 {
		interval = 750 * time.Millisecond
	}
	r := &ProgressReporter{
		store:    st,
		runID:    runID,
		interval: interval,
		stop:     make(chan struct{}),
		stopped:  make(chan struct{}),
	}
	r.latest.Store(model.ProgressQueryStart)
	r.written = model.ProgressQueryStart
	go r.loop(ctx)
	return r
}

// Report records progress for done of total calls. It never blocks on I/O.
func (r *ProgressReporter) Report(done, total int) {
	v := int64(QueryProgress(done, total))
	for {
		cur := r.latest.Load()
		if v <= cur || r.latest.CompareAndSwap(cur, v) {
			return
		}
	}
}

// Close stops the flusher after a final write.
func (r *ProgressReporter) Close() {
	r.once.Do(func() { close(r.stop) })
	<-r.stopped
}

func (r *ProgressReporter) loop(ctx context.Context) {
	defer close(r.stopped)
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-r.stop:
			r.flush(context.WithoutCancel(ctx))
			return
		case <-ticker.C:
			r.flush(ctx)
		}
	}
}

func (r *ProgressReporter) flush(ctx context.Context) {
	v := r.latest.Load()
	if v <= r.written {
		return
	}
	if err := r.store.UpdateRunProgress(ctx, r.runID, int(v)); err != nil {
		zap.L().Warn("pipeline: progress write failed",
			zap.String("run_id", r.runID),
			zap.Int64("progress", v),
			zap.Error(err),
		)
		return
	}
	r.written = v
}
