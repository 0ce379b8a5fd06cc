// Package scheduler triggers periodic scans for active subscriptions.
package scheduler

import (
	"context"
	"errors"
	"sync"

	"github.com/rotisserie/eris"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/sells-group/visibility-cli/internal/config"
	"github.com/sells-group/visibility-cli/internal/dispatch"
	"github.com/sells-group/visibility-cli/internal/model"
	"github.com/sells-group/visibility-cli/internal/store"
)

// DefaultCron runs scheduled scans weekly, Monday 06:00.
const DefaultCron = "0 6 * * 1"

// Trigger starts a scheduled run for one subscription.
type Trigger interface {
	TriggerScheduled(ctx context.Context, subscriptionID string) (*model.Run, error)
}

// Scheduler fires a sweep over active subscriptions on a cron schedule.
type Scheduler struct {
	store   store.Store
	trigger Trigger
	spec    string
	cron    *cron.Cron

	mu      sync.Mutex
	running bool
}

// New creates a Scheduler.
func New(st store.Store, trigger Trigger, cfg config.SchedulerConfig) *Scheduler {
	spec := cfg.Cron
	if spec == "" {
		spec = DefaultCron
	}
	return &Scheduler{
		store:   st,
		trigger: trigger,
		spec:    spec,
		cron:    cron.New(),
	}
}

// Start registers the sweep and starts the cron loop. Sweeps run with ctx.
func (s *Scheduler) Start(ctx context.Context) error {
	if _, err := s.cron.AddFunc(s.spec, func() { s.sweepOnce(ctx) }); err != nil {
		return eris.Wrapf(err, "scheduler: invalid cron expression %q", s.spec)
	}
	s.cron.Start()
	zap.L().Info("scheduler: started", zap.String("cron", s.spec))
	return nil
}

// Stop halts the cron loop and waits for a running sweep to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	zap.L().Info("scheduler: stopped")
}

// sweepOnce skips a tick that fires while the previous sweep is running.
func (s *Scheduler) sweepOnce(ctx context.Context) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		zap.L().Warn("scheduler: previous sweep still running, skipping tick")
		return
	}
	s.running = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	if _, err := s.Sweep(ctx); err != nil {
		zap.L().Error("scheduler: sweep failed", zap.Error(err))
	}
}

// SweepResult counts the outcome of one sweep.
type SweepResult struct {
	Triggered int
	Rejected  int
	Failed    int
}

// Sweep triggers a scheduled run for every active subscription. Policy
// rejections, such as a scan already in flight, are expected and logged at
// Info.
func (s *Scheduler) Sweep(ctx context.Context) (SweepResult, error) {
	var res SweepResult

	subs, err := s.store.ListSubscriptions(ctx, store.SubscriptionFilter{Status: model.SubscriptionActive})
	if err != nil {
		return res, eris.Wrap(err, "scheduler: list subscriptions")
	}

	for _, sub := range subs {
		if ctx.Err() != nil {
			return res, eris.Wrap(ctx.Err(), "scheduler: sweep interrupted")
		}
		log := zap.L().With(
			zap.String("subscription_id", sub.ID),
			zap.String("domain", sub.Domain),
		)

		run, err := s.trigger.TriggerScheduled(ctx, sub.ID)
		var pe *dispatch.PolicyError
		switch {
		case errors.As(err, &pe):
			res.Rejected++
			log.Info("scheduler: scan not triggered", zap.String("reason", pe.Reason))
		case err != nil:
			res.Failed++
			log.Error("scheduler: trigger scan", zap.Error(err))
		default:
			res.Triggered++
			log.Info("scheduler: scan triggered", zap.String("run_id", run.ID))
		}
	}

	zap.L().Info("scheduler: sweep complete",
		zap.Int("subscriptions", len(subs)),
		zap.Int("triggered", res.Triggered),
		zap.Int("rejected", res.Rejected),
		zap.Int("failed", res.Failed),
	)
	return res, nil
}
