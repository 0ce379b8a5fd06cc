package dispatch

import (
	"context"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/sells-group/visibility-cli/internal/config"
)

// ErrShuttingDown is returned by Submit once Shutdown has begun.
var ErrShuttingDown = eris.New("dispatch: executor shutting down")

// Runner executes one run to a terminal status.
type Runner interface {
	Execute(ctx context.Context, runID string) error
}

// LocalExecutor runs submitted runs on goroutines in this process, at most
// MaxConcurrent at a time. Runs outlive the request that submitted them and
// are bounded by the run budget.
type LocalExecutor struct {
	runner Runner
	budget time.Duration
	sem    *semaphore.Weighted

	base   context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

// NewLocalExecutor creates a LocalExecutor.
func NewLocalExecutor(runner Runner, cfg config.DispatchConfig) *LocalExecutor {
	limit := int64(max(cfg.MaxConcurrent, 1))
	base, cancel := context.WithCancel(context.Background())
	return &LocalExecutor{
		runner: runner,
		budget: cfg.RunBudget(),
		sem:    semaphore.NewWeighted(limit),
		base:   base,
		cancel: cancel,
	}
}

// Submit queues runID and returns without waiting for it to start. The
// caller's context only carries values; its cancellation does not reach
// the run.
func (e *LocalExecutor) Submit(_ context.Context, runID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrShuttingDown
	}
	e.wg.Add(1)
	go e.run(runID)
	return nil
}

func (e *LocalExecutor) run(runID string) {
	defer e.wg.Done()
	log := zap.L().With(zap.String("run_id", runID))

	if err := e.sem.Acquire(e.base, 1); err != nil {
		log.Warn("dispatch: run dropped before start", zap.Error(err))
		return
	}
	defer e.sem.Release(1)

	ctx, cancel := context.WithTimeout(e.base, e.budget)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			log.Error("dispatch: run panicked", zap.Any("panic", r))
		}
	}()

	if err := e.runner.Execute(ctx, runID); err != nil {
		log.Error("dispatch: run execution failed", zap.Error(err))
	}
}

// Shutdown stops accepting runs and waits for in-flight runs until ctx is
// done, then cancels whatever is still running.
func (e *LocalExecutor) Shutdown(ctx context.Context) error {
	e.mu.Lock()
	e.closed = true
	e.mu.Unlock()

	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		e.cancel()
		return nil
	case <-ctx.Done():
		e.cancel()
		<-done
		return eris.Wrap(ctx.Err(), "dispatch: shutdown")
	}
}
