// Package notify publishes run completion events for the email dispatcher.
package notify

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Event announces a completed report.
type Event struct {
	RunID        string    `json:"run_id"`
	Email        string    `json:"email"`
	Domain       string    `json:"domain"`
	ReportURL    string    `json:"report_url"`
	OverallScore int       `json:"overall_score"`
	CompletedAt  time.Time `json:"completed_at"`
}

// Notifier delivers completion events.
type Notifier interface {
	Publish(ctx context.Context, ev Event) error
	Close() error
}

// LogNotifier writes events to the global logger. It is the fallback when
// no broker is configured.
type LogNotifier struct{}

// Publish logs ev.
func (LogNotifier) Publish(_ context.Context, ev Event) error {
	zap.L().Info("notify: report ready",
		zap.String("run_id", ev.RunID),
		zap.String("email", ev.Email),
		zap.String("domain", ev.Domain),
		zap.String("report_url", ev.ReportURL),
		zap.Int("overall_score", ev.OverallScore),
	)
	return nil
}

// Close is a no-op.
func (LogNotifier) Close() error { return nil }
