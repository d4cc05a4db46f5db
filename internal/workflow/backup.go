package workflow

import (
	"fmt"
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/devflow/backhaul/internal/activity"
	"github.com/devflow/backhaul/internal/model"
)

// FileBackupWorkflow archives a project's files and uploads the artifact to
// the project's storage target.
func FileBackupWorkflow(ctx workflow.Context, backupID string) error {
	return runBackup(ctx, model.BackupKindFile, backupID, "CreateFileArchive", ".tar.gz")
}

// DatabaseBackupWorkflow dumps a database and uploads the artifact to the
// project's storage target.
func DatabaseBackupWorkflow(ctx workflow.Context, backupID string) error {
	return runBackup(ctx, model.BackupKindDatabase, backupID, "CreateDatabaseDump", ".sql.gz")
}

// ServerBackupWorkflow snapshots a server and uploads the artifact to the
// project's storage target.
func ServerBackupWorkflow(ctx workflow.Context, backupID string) error {
	return runBackup(ctx, model.BackupKindServer, backupID, "CreateServerSnapshot", ".img")
}

// runBackup drives one backup record from pending to completed. The artifact
// activity runs on the agent's task queue; everything else runs on the shared
// queue. Any failure marks the record failed with the error message before
// the workflow returns.
func runBackup(ctx workflow.Context, kind, backupID, artifactActivity, ext string) error {
	ao := workflow.ActivityOptions{
		StartToCloseTimeout: 5 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts:    3,
			InitialInterval:    1 * time.Second,
			MaximumInterval:    10 * time.Second,
			BackoffCoefficient: 2.0,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, ao)

	ref := activity.BackupRef{Kind: kind, ID: backupID}

	// Set status to running.
	err := workflow.ExecuteActivity(ctx, "MarkBackupRunning", ref).Get(ctx, nil)
	if err != nil {
		return err
	}

	// Get the backup record and its storage target.
	var bctx activity.BackupContext
	err = workflow.ExecuteActivity(ctx, "GetBackupContext", ref).Get(ctx, &bctx)
	if err != nil {
		_ = failBackup(ctx, kind, backupID, err)
		return err
	}

	// Produce the artifact on the agent.
	var artifact activity.ArtifactResult
	agentCtx := agentActivityCtx(ctx, bctx.AgentTaskQueue)
	err = workflow.ExecuteActivity(agentCtx, artifactActivity, bctx).Get(ctx, &artifact)
	if err != nil {
		_ = failBackup(ctx, kind, backupID, err)
		return err
	}

	// Upload to the storage target. The remote name was minted activity-side
	// and recorded in history, so replays reuse it.
	var uploaded activity.UploadResult
	err = workflow.ExecuteActivity(ctx, "Upload", activity.UploadParams{
		ConfigID:   bctx.StorageConfigID,
		LocalPath:  artifact.LocalPath,
		RemotePath: fmt.Sprintf("%s/%s%s", bctx.ProjectID, bctx.RemoteName, ext),
	}).Get(ctx, &uploaded)
	if err != nil {
		_ = failBackup(ctx, kind, backupID, err)
		return err
	}

	// Record the result and set status to completed.
	err = workflow.ExecuteActivity(ctx, "CompleteBackup", activity.CompleteBackupParams{
		Kind:        kind,
		ID:          backupID,
		StoragePath: uploaded.StoragePath,
		SizeBytes:   uploaded.SizeBytes,
	}).Get(ctx, nil)
	if err != nil {
		_ = failBackup(ctx, kind, backupID, err)
		return err
	}

	// Drop the staged artifact. A leftover file is the agent's problem, not
	// the backup's.
	err = workflow.ExecuteActivity(agentCtx, "RemoveArtifact", artifact.LocalPath).Get(ctx, nil)
	if err != nil {
		workflow.GetLogger(ctx).Warn("failed to remove staged artifact", "path", artifact.LocalPath, "error", err)
	}

	return nil
}
