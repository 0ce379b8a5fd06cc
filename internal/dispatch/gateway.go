// Package dispatch is the entry point for creating runs: first-touch scans,
// scheduled scans and manual rescans, with the policy checks that guard
// them.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/visibility-cli/internal/config"
	"github.com/sells-group/visibility-cli/internal/metrics"
	"github.com/sells-group/visibility-cli/internal/model"
	"github.com/sells-group/visibility-cli/internal/store"
)

// Executor runs a created run in the background.
type Executor interface {
	Submit(ctx context.Context, runID string) error
}

// Gateway creates runs and hands them to an Executor.
type Gateway struct {
	store    store.Store
	exec     Executor
	cooldown time.Duration
	metrics  *metrics.Metrics
	now      func() time.Time
}

// NewGateway creates a Gateway. m may be nil.
func NewGateway(st store.Store, exec Executor, cfg config.DispatchConfig, m *metrics.Metrics) *Gateway {
	return &Gateway{
		store:    st,
		exec:     exec,
		cooldown: cfg.Cooldown(),
		metrics:  m,
		now:      time.Now,
	}
}

// CreateFirstTouchRun starts a scan for an anonymous visitor, creating
// their account on first contact.
func (g *Gateway) CreateFirstTouchRun(ctx context.Context, rawDomain, rawEmail string) (*model.Run, error) {
	domain, err := NormalizeDomain(rawDomain)
	if err != nil {
		return nil, err
	}
	email, err := NormalizeEmail(rawEmail)
	if err != nil {
		return nil, err
	}

	acct, err := g.store.GetOrCreateAccount(ctx, email)
	if err != nil {
		return nil, eris.Wrap(err, "dispatch: get or create account")
	}

	return g.start(ctx, model.NewRun{
		AccountID: acct.ID,
		Domain:    domain,
		Trigger:   model.TriggerAutomatic,
	})
}

// TriggerScheduled starts the periodic scan of a subscription.
func (g *Gateway) TriggerScheduled(ctx context.Context, subscriptionID string) (*model.Run, error) {
	sub, err := g.subscription(ctx, subscriptionID)
	if err != nil {
		return nil, err
	}
	if err := g.checkActive(sub); err != nil {
		return nil, err
	}
	if err := g.checkInFlight(ctx, sub.ID); err != nil {
		return nil, err
	}
	return g.startForSubscription(ctx, sub, model.TriggerScheduled)
}

// TriggerManual starts a rescan requested by accountID. Checks run in
// order: ownership, active status, in-flight run, cooldown.
func (g *Gateway) TriggerManual(ctx context.Context, accountID, subscriptionID string) (*model.Run, error) {
	sub, err := g.subscription(ctx, subscriptionID)
	if err != nil {
		return nil, err
	}
	if sub.AccountID != accountID {
		return nil, g.reject(&PolicyError{
			Reason:  ReasonNotOwner,
			Message: "subscription does not belong to this account",
		})
	}
	if err := g.checkActive(sub); err != nil {
		return nil, err
	}
	if err := g.checkInFlight(ctx, sub.ID); err != nil {
		return nil, err
	}

	state, err := g.cooldownState(ctx, sub.ID)
	if err != nil {
		return nil, err
	}
	if !state.CanTrigger {
		return nil, g.reject(&PolicyError{
			Reason:         ReasonCooldownActive,
			Message:        fmt.Sprintf("manual rescan available in %ds", state.RetryAfterSeconds),
			RetryAfter:     time.Duration(state.RetryAfterSeconds) * time.Second,
			CooldownEndsAt: state.CooldownEndsAt,
		})
	}

	return g.startForSubscription(ctx, sub, model.TriggerManual)
}

// CooldownState derives the manual rescan cooldown from the latest manual
// run of the subscription. An unknown subscription is store.ErrNotFound.
func (g *Gateway) CooldownState(ctx context.Context, subscriptionID string) (*model.CooldownState, error) {
	if _, err := g.subscription(ctx, subscriptionID); err != nil {
		return nil, err
	}
	return g.cooldownState(ctx, subscriptionID)
}

func (g *Gateway) cooldownState(ctx context.Context, subscriptionID string) (*model.CooldownState, error) {
	last, err := g.store.LatestManualRunAt(ctx, subscriptionID)
	if err != nil {
		return nil, eris.Wrap(err, "dispatch: latest manual run")
	}
	state := model.ComputeCooldown(last, g.cooldown, g.now())
	return &state, nil
}

// GetRunStatus returns the polled view of a run.
func (g *Gateway) GetRunStatus(ctx context.Context, runID string) (*model.RunStatusView, error) {
	run, err := g.store.GetRun(ctx, runID)
	if err != nil {
		return nil, eris.Wrap(err, "dispatch: get run")
	}
	view := run.StatusView()
	return &view, nil
}

func (g *Gateway) subscription(ctx context.Context, id string) (*model.Subscription, error) {
	sub, err := g.store.GetSubscription(ctx, id)
	if err != nil {
		return nil, eris.Wrap(err, "dispatch: get subscription")
	}
	return sub, nil
}

func (g *Gateway) checkActive(sub *model.Subscription) error {
	if sub.IsActive() {
		return nil
	}
	return g.reject(&PolicyError{
		Reason:  ReasonInactive,
		Message: fmt.Sprintf("subscription is %s", sub.Status),
	})
}

func (g *Gateway) checkInFlight(ctx context.Context, subscriptionID string) error {
	active, err := g.store.ActiveRunForSubscription(ctx, subscriptionID)
	if err != nil {
		return eris.Wrap(err, "dispatch: check in-flight run")
	}
	if active != nil {
		return g.inFlight(active.ID)
	}
	return nil
}

func (g *Gateway) inFlight(runID string) error {
	return g.reject(&PolicyError{
		Reason:        ReasonInFlight,
		Message:       "a scan is already running for this subscription",
		ExistingRunID: runID,
	})
}

func (g *Gateway) startForSubscription(ctx context.Context, sub *model.Subscription, trigger model.TriggerKind) (*model.Run, error) {
	subID := sub.ID
	run, err := g.start(ctx, model.NewRun{
		AccountID:      sub.AccountID,
		SubscriptionID: &subID,
		Domain:         sub.Domain,
		Trigger:        trigger,
	})
	if errors.Is(err, store.ErrRunInFlight) {
		// Lost a race with another trigger; report the run that won.
		existing := ""
		if active, aerr := g.store.ActiveRunForSubscription(ctx, sub.ID); aerr == nil && active != nil {
			existing = active.ID
		}
		return nil, g.inFlight(existing)
	}
	return run, err
}

// start creates the run and submits it. A run that cannot be submitted is
// failed so it does not linger as pending.
func (g *Gateway) start(ctx context.Context, nr model.NewRun) (*model.Run, error) {
	run, err := g.store.CreateRun(ctx, nr)
	if err != nil {
		if errors.Is(err, store.ErrRunInFlight) {
			return nil, err
		}
		return nil, eris.Wrap(err, "dispatch: create run")
	}

	log := zap.L().With(
		zap.String("run_id", run.ID),
		zap.String("domain", run.Domain),
		zap.String("trigger", string(run.Trigger)),
	)

	if err := g.exec.Submit(ctx, run.ID); err != nil {
		log.Error("dispatch: submit run failed", zap.Error(err))
		if ferr := g.store.FailRun(context.WithoutCancel(ctx), run.ID, "dispatch: submit failed: "+err.Error()); ferr != nil {
			log.Error("dispatch: fail unsubmitted run", zap.Error(ferr))
		}
		return nil, eris.Wrap(err, "dispatch: submit run")
	}

	log.Info("dispatch: run created")
	return run, nil
}

func (g *Gateway) reject(pe *PolicyError) error {
	g.metrics.Rejected(pe.Reason)
	zap.L().Info("dispatch: trigger rejected",
		zap.String("reason", pe.Reason),
		zap.String("existing_run_id", pe.ExistingRunID),
	)
	return pe
}
