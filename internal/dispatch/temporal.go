package dispatch

import (
	"context"

	"github.com/rotisserie/eris"
	"go.temporal.io/sdk/client"
	"go.uber.org/zap"

	"github.com/sells-group/visibility-cli/internal/config"
	"github.com/sells-group/visibility-cli/internal/workflow"
)

// WorkflowStarter is the part of client.Client the executor needs.
type WorkflowStarter interface {
	ExecuteWorkflow(ctx context.Context, options client.StartWorkflowOptions, workflow interface{}, args ...interface{}) (client.WorkflowRun, error)
}

// TemporalExecutor submits each run as a ScanWorkflow. A worker process
// picks it up and executes the pipeline.
type TemporalExecutor struct {
	client    WorkflowStarter
	taskQueue string
	budget    int
}

// NewTemporalExecutor creates a TemporalExecutor.
func NewTemporalExecutor(c WorkflowStarter, tcfg config.TemporalConfig, dcfg config.DispatchConfig) *TemporalExecutor {
	return &TemporalExecutor{
		client:    c,
		taskQueue: tcfg.TaskQueue,
		budget:    int(dcfg.RunBudget().Seconds()),
	}
}

// WorkflowID is the workflow ID used for runID. Starting the same run twice
// is rejected by Temporal while the first is open.
func WorkflowID(runID string) string {
	return "scan-" + runID
}

// Submit starts the workflow for runID.
func (e *TemporalExecutor) Submit(ctx context.Context, runID string) error {
	opts := client.StartWorkflowOptions{
		ID:        WorkflowID(runID),
		TaskQueue: e.taskQueue,
	}
	we, err := e.client.ExecuteWorkflow(ctx, opts, workflow.ScanWorkflowName, workflow.ScanInput{
		RunID:         runID,
		BudgetSeconds: e.budget,
	})
	if err != nil {
		return eris.Wrapf(err, "dispatch: start workflow for run %s", runID)
	}
	zap.L().Info("dispatch: workflow started",
		zap.String("run_id", runID),
		zap.String("workflow_id", we.GetID()),
		zap.String("workflow_run_id", we.GetRunID()),
	)
	return nil
}
