// Package monitoring reaps runs that outlived their budget and alerts on
// run failure rates.
package monitoring

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/visibility-cli/internal/config"
)

// Checker runs the reaper and alert checks in the background.
type Checker struct {
	reaper    *Reaper
	collector *Collector
	alerter   *Alerter
	cfg       config.MonitoringConfig
}

// NewChecker creates a background checker.
func NewChecker(reaper *Reaper, collector *Collector, alerter *Alerter, cfg config.MonitoringConfig) *Checker {
	return &Checker{
		reaper:    reaper,
		collector: collector,
		alerter:   alerter,
		cfg:       cfg,
	}
}

// Interval returns the check interval, defaulting to one minute.
func (c *Checker) Interval() time.Duration {
	if c.cfg.CheckIntervalSecs <= 0 {
		return time.Minute
	}
	return time.Duration(c.cfg.CheckIntervalSecs) * time.Second
}

// Run starts the periodic check loop. It blocks until ctx is cancelled.
func (c *Checker) Run(ctx context.Context) {
	interval := c.Interval()

	log := zap.L().With(zap.String("component", "monitoring.checker"))
	log.Info("starting run checker",
		zap.Duration("interval", interval),
		zap.Int("lookback_hours", c.cfg.LookbackWindowHours),
	)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("run checker stopped")
			return
		case <-ticker.C:
			c.Check(ctx)
		}
	}
}

// Check performs one reap and alert pass.
func (c *Checker) Check(ctx context.Context) {
	log := zap.L().With(zap.String("component", "monitoring.checker"))

	reaped, err := c.reaper.Reap(ctx)
	if err != nil {
		log.Error("monitoring: reap failed", zap.Error(err))
	}

	snap, err := c.collector.Collect(ctx, c.cfg.LookbackWindowHours)
	if err != nil {
		log.Error("monitoring: failed to collect run stats", zap.Error(err))
		return
	}

	alerts := c.alerter.Evaluate(snap, reaped)
	if len(alerts) == 0 {
		log.Debug("monitoring: no alerts triggered",
			zap.Int("runs_total", snap.RunsTotal),
			zap.Float64("fail_rate", snap.FailRate),
		)
		return
	}

	sent := c.alerter.SendAlerts(ctx, alerts)
	log.Info("monitoring: alert check complete",
		zap.Int("alerts_triggered", len(alerts)),
		zap.Int("alerts_sent", sent),
		zap.Int("reaped", reaped),
	)
}
