package workflow

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/devflow/backhaul/internal/activity"
	"github.com/devflow/backhaul/internal/model"
)

// ScheduleTickWorkflow finds schedules whose next run is due and executes a
// child ScheduleRunWorkflow for each. Runs are serial; a failing schedule is
// logged and does not stop the others. Every dispatched schedule is advanced
// so a persistently failing one cannot wedge the tick.
func ScheduleTickWorkflow(ctx workflow.Context) error {
	ao := workflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Second,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts: 3,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, ao)
	logger := workflow.GetLogger(ctx)

	now := workflow.Now(ctx).UTC()

	var due []model.BackupSchedule
	err := workflow.ExecuteActivity(ctx, "ListDueSchedules", now).Get(ctx, &due)
	if err != nil {
		return err
	}

	logger.Info("found due backup schedules", "count", len(due))

	for _, sched := range due {
		// The child workflow ID keeps a schedule's runs single-flight: a
		// second tick cannot start a run while one is still open.
		childCtx := workflow.WithChildOptions(ctx, workflow.ChildWorkflowOptions{
			WorkflowID: "schedule-run-" + sched.ID,
		})
		err := workflow.ExecuteChildWorkflow(childCtx, ScheduleRunWorkflow, sched.ID).Get(ctx, nil)
		if err != nil {
			logger.Error("scheduled backup run failed", "scheduleID", sched.ID, "error", err)
			// Continue with the other schedules even if one fails.
		}

		err = workflow.ExecuteActivity(ctx, "AdvanceSchedule", activity.AdvanceScheduleParams{
			ID:  sched.ID,
			Now: workflow.Now(ctx).UTC(),
		}).Get(ctx, nil)
		if err != nil {
			logger.Error("failed to advance schedule", "scheduleID", sched.ID, "error", err)
		}
	}

	return nil
}

// ScheduleRunWorkflow performs one run of a schedule: create the backup
// record, execute its backup workflow as a child, and apply the schedule's
// retention policy once a file backup completes.
func ScheduleRunWorkflow(ctx workflow.Context, scheduleID string) error {
	ao := workflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Second,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts: 3,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, ao)
	logger := workflow.GetLogger(ctx)

	var result activity.ScheduledBackupResult
	err := workflow.ExecuteActivity(ctx, "CreateScheduledBackup", scheduleID).Get(ctx, &result)
	if err != nil {
		return err
	}

	childCtx := workflow.WithChildOptions(ctx, workflow.ChildWorkflowOptions{
		WorkflowID: backupWorkflowID(result.WorkflowName, result.BackupID),
	})
	err = workflow.ExecuteChildWorkflow(childCtx, result.WorkflowName, result.BackupID).Get(ctx, nil)
	if err != nil {
		// The backup workflow marks its own record failed.
		return err
	}

	if result.WorkflowName != "FileBackupWorkflow" {
		return nil
	}
	if result.RetentionDaily == 0 && result.RetentionWeekly == 0 && result.RetentionMonthly == 0 {
		return nil
	}

	var deleted int
	err = workflow.ExecuteActivity(ctx, "ApplyRetention", activity.ApplyRetentionParams{
		ProjectID: result.ProjectID,
		Daily:     result.RetentionDaily,
		Weekly:    result.RetentionWeekly,
		Monthly:   result.RetentionMonthly,
	}).Get(ctx, &deleted)
	if err != nil {
		return err
	}

	logger.Info("applied retention policy", "scheduleID", scheduleID, "deleted", deleted)
	return nil
}

// backupWorkflowID mirrors the IDs used when a backup is started directly,
// so a scheduled run and a manual start of the same record collide instead
// of racing.
func backupWorkflowID(workflowName, backupID string) string {
	switch workflowName {
	case "DatabaseBackupWorkflow":
		return "database-backup-" + backupID
	case "ServerBackupWorkflow":
		return "server-backup-" + backupID
	default:
		return "file-backup-" + backupID
	}
}
