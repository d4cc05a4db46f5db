package workflow

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/devflow/backhaul/internal/activity"
)

// failBackup marks a backup failed with the error's message. Callers keep
// returning the original error regardless of the outcome here.
func failBackup(ctx workflow.Context, kind, id string, err error) error {
	return workflow.ExecuteActivity(ctx, "FailBackup", activity.FailBackupParams{
		Kind:    kind,
		ID:      id,
		Message: err.Error(),
	}).Get(ctx, nil)
}

// agentActivityCtx returns a workflow context that routes activity execution
// to the agent's Temporal task queue. Activities dispatched with this context
// are picked up by the agent worker that produces backup artifacts.
func agentActivityCtx(ctx workflow.Context, queue string) workflow.Context {
	return workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		TaskQueue:              queue,
		StartToCloseTimeout:    2 * time.Minute,
		ScheduleToCloseTimeout: 10 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts:    5,
			InitialInterval:    5 * time.Second,
			MaximumInterval:    30 * time.Second,
			BackoffCoefficient: 2.0,
		},
	})
}
