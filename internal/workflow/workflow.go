// Package workflow runs scans as Temporal workflows so a run survives
// process restarts between dispatch and execution.
package workflow

import (
	"context"
	"time"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/worker"
	"go.temporal.io/sdk/workflow"
)

const (
	// ScanWorkflowName is the registered name of ScanWorkflow.
	ScanWorkflowName = "ScanWorkflow"
	// ExecuteRunActivity is the registered name of Activities.ExecuteRun.
	ExecuteRunActivity = "ExecuteRun"

	defaultBudget = 600 * time.Second
)

// ScanInput is the workflow argument.
type ScanInput struct {
	RunID         string `json:"run_id"`
	BudgetSeconds int    `json:"budget_seconds"`
}

// Budget returns the run budget, defaulting when unset.
func (in ScanInput) Budget() time.Duration {
	if in.BudgetSeconds <= 0 {
		return defaultBudget
	}
	return time.Duration(in.BudgetSeconds) * time.Second
}

// Runner executes one run to a terminal status.
type Runner interface {
	Execute(ctx context.Context, runID string) error
}

// Activities holds the activity implementations.
type Activities struct {
	Runner Runner
}

// ExecuteRun runs the pipeline for one run.
func (a *Activities) ExecuteRun(ctx context.Context, runID string) error {
	return a.Runner.Execute(ctx, runID)
}

// ScanWorkflow executes a single run. The pipeline records its own
// failures, so the activity is attempted once.
func ScanWorkflow(ctx workflow.Context, in ScanInput) error {
	ctx = workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: in.Budget(),
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts: 1,
		},
	})

	logger := workflow.GetLogger(ctx)
	logger.Info("scan workflow started", "run_id", in.RunID)

	if err := workflow.ExecuteActivity(ctx, ExecuteRunActivity, in.RunID).Get(ctx, nil); err != nil {
		logger.Error("scan workflow failed", "run_id", in.RunID, "error", err)
		return err
	}
	return nil
}

// Register adds the workflow and its activities to a worker.
func Register(r worker.Registry, acts *Activities) {
	r.RegisterWorkflowWithOptions(ScanWorkflow, workflow.RegisterOptions{Name: ScanWorkflowName})
	r.RegisterActivityWithOptions(acts.ExecuteRun, activity.RegisterOptions{Name: ExecuteRunActivity})
}
