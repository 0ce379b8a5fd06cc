package store

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/visibility-cli/internal/model"
)

var (
	// ErrNotFound is returned when a looked-up entity does not exist.
	ErrNotFound = eris.New("store: not found")

	// ErrStatusConflict is returned when a guarded run update finds the run
	// in a status other than the one expected.
	ErrStatusConflict = eris.New("store: run status conflict")

	// ErrRunInFlight is returned by CreateRun when the subscription already
	// has a non-terminal run.
	ErrRunInFlight = eris.New("store: scan already running")
)

// RunFilter specifies criteria for listing runs.
type RunFilter struct {
	Status         model.RunStatus   `json:"status,omitempty"`
	AccountID      string            `json:"account_id,omitempty"`
	SubscriptionID string            `json:"subscription_id,omitempty"`
	Domain         string            `json:"domain,omitempty"`
	Trigger        model.TriggerKind `json:"trigger_kind,omitempty"`
	Limit          int               `json:"limit,omitempty"`
	Offset         int               `json:"offset,omitempty"`
}

// SubscriptionFilter specifies criteria for listing subscriptions.
type SubscriptionFilter struct {
	Status    model.SubscriptionStatus `json:"status,omitempty"`
	AccountID string                   `json:"account_id,omitempty"`
	Limit     int                      `json:"limit,omitempty"`
}

// RunStats aggregates run outcomes over a window for monitoring.
type RunStats struct {
	Total        int            `json:"total"`
	ByStatus     map[string]int `json:"by_status"`
	Complete     int            `json:"complete"`
	Failed       int            `json:"failed"`
	AvgScore     float64        `json:"avg_score"`
	ReportsTotal int            `json:"reports_total"`
}

// Store defines the persistence interface for scan runs and their outputs.
type Store interface {
	// Accounts and subscriptions
	GetOrCreateAccount(ctx context.Context, email string) (*model.Account, error)
	GetAccount(ctx context.Context, accountID string) (*model.Account, error)
	CreateSubscription(ctx context.Context, sub model.Subscription) (*model.Subscription, error)
	GetSubscription(ctx context.Context, subscriptionID string) (*model.Subscription, error)
	ListSubscriptions(ctx context.Context, filter SubscriptionFilter) ([]model.Subscription, error)
	UpdateSubscriptionStatus(ctx context.Context, subscriptionID string, status model.SubscriptionStatus) error

	// Runs
	CreateRun(ctx context.Context, nr model.NewRun) (*model.Run, error)
	GetRun(ctx context.Context, runID string) (*model.Run, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error)
	ActiveRunForSubscription(ctx context.Context, subscriptionID string) (*model.Run, error)
	LatestManualRunAt(ctx context.Context, subscriptionID string) (*time.Time, error)
	TransitionRun(ctx context.Context, runID string, from, to model.RunStatus) error
	UpdateRunProgress(ctx context.Context, runID string, progress int) error
	FailRun(ctx context.Context, runID string, message string) error
	ListStaleRuns(ctx context.Context, startedBefore time.Time) ([]model.Run, error)
	RunStats(ctx context.Context, since time.Time) (*RunStats, error)

	// Stage outputs
	SaveSiteAnalysis(ctx context.Context, analysis *model.SiteAnalysis) error
	GetSiteAnalysis(ctx context.Context, runID string) (*model.SiteAnalysis, error)
	// InsertPrompts stores prompts as given; each must carry its ID.
	InsertPrompts(ctx context.Context, prompts []model.Prompt) error
	ListPrompts(ctx context.Context, runID string) ([]model.Prompt, error)
	InsertPlatformResponses(ctx context.Context, responses []model.PlatformResponse) error
	ListPlatformResponses(ctx context.Context, runID string) ([]model.PlatformResponse, error)

	// Reports
	CompleteRun(ctx context.Context, report *model.Report) error
	GetReport(ctx context.Context, runID string) (*model.Report, error)
	GetReportByToken(ctx context.Context, token string) (*model.Report, error)

	// Lifecycle
	Ping(ctx context.Context) error
	Migrate(ctx context.Context) error
	Close() error
}

// defaultLimit applies the list page size used when a filter leaves it unset.
func defaultLimit(n int) int {
	if n <= 0 {
		return 100
	}
	return n
}
