package activity

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/devflow/backhaul/internal/core"
	"github.com/devflow/backhaul/internal/model"
	"github.com/devflow/backhaul/internal/platform"
)

// DB defines the database operations used by activity structs.
// *pgxpool.Pool satisfies this interface.
type DB interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// BackupDB contains activities that read from and update the backup tables.
// It delegates to the core services so activity writes follow the same
// transition rules as API writes.
type BackupDB struct {
	db             DB
	svcs           *core.Services
	agentTaskQueue string
}

// NewBackupDB creates a new BackupDB activity struct.
func NewBackupDB(db DB, svcs *core.Services, agentTaskQueue string) *BackupDB {
	return &BackupDB{db: db, svcs: svcs, agentTaskQueue: agentTaskQueue}
}

// MarkBackupRunning transitions the referenced backup from pending to running.
func (a *BackupDB) MarkBackupRunning(ctx context.Context, ref BackupRef) error {
	now := time.Now().UTC()
	switch ref.Kind {
	case model.BackupKindFile:
		return a.svcs.FileBackup.MarkRunning(ctx, ref.ID, now)
	case model.BackupKindDatabase:
		return a.svcs.DatabaseBackup.MarkRunning(ctx, ref.ID, now)
	case model.BackupKindServer:
		return a.svcs.ServerBackup.MarkRunning(ctx, ref.ID, now)
	default:
		return fmt.Errorf("unknown backup kind %q", ref.Kind)
	}
}

// CompleteBackup records the uploaded artifact and transitions the backup to
// completed.
func (a *BackupDB) CompleteBackup(ctx context.Context, params CompleteBackupParams) error {
	now := time.Now().UTC()
	var err error
	switch params.Kind {
	case model.BackupKindFile:
		err = a.svcs.FileBackup.MarkCompleted(ctx, params.ID, params.StoragePath, params.SizeBytes, now)
	case model.BackupKindDatabase:
		err = a.svcs.DatabaseBackup.MarkCompleted(ctx, params.ID, params.StoragePath, params.SizeBytes, now)
	case model.BackupKindServer:
		err = a.svcs.ServerBackup.MarkCompleted(ctx, params.ID, params.StoragePath, params.SizeBytes, now)
	default:
		return fmt.Errorf("unknown backup kind %q", params.Kind)
	}
	if err == nil {
		backupOutcomes.WithLabelValues(params.Kind, "completed").Inc()
	}
	return err
}

// FailBackup transitions the backup to failed with the given message.
func (a *BackupDB) FailBackup(ctx context.Context, params FailBackupParams) error {
	now := time.Now().UTC()
	var err error
	switch params.Kind {
	case model.BackupKindFile:
		err = a.svcs.FileBackup.MarkFailed(ctx, params.ID, params.Message, now)
	case model.BackupKindDatabase:
		err = a.svcs.DatabaseBackup.MarkFailed(ctx, params.ID, params.Message, now)
	case model.BackupKindServer:
		err = a.svcs.ServerBackup.MarkFailed(ctx, params.ID, params.Message, now)
	default:
		return fmt.Errorf("unknown backup kind %q", params.Kind)
	}
	if err == nil {
		backupOutcomes.WithLabelValues(params.Kind, "failed").Inc()
	}
	return err
}

// GetBackupContext loads the referenced backup and resolves the storage
// configuration its artifact should land on.
func (a *BackupDB) GetBackupContext(ctx context.Context, ref BackupRef) (*BackupContext, error) {
	bctx := &BackupContext{
		Kind:           ref.Kind,
		ID:             ref.ID,
		AgentTaskQueue: a.agentTaskQueue,
		RemoteName:     platform.NewName(ref.Kind + "-"),
	}

	switch ref.Kind {
	case model.BackupKindFile:
		backup, err := a.svcs.FileBackup.GetByID(ctx, ref.ID)
		if err != nil {
			return nil, err
		}
		bctx.ProjectID = backup.ProjectID
		bctx.ParentBackupID = backup.ParentBackupID
		if backup.ParentBackupID != nil {
			parent, err := a.svcs.FileBackup.GetByID(ctx, *backup.ParentBackupID)
			if err != nil {
				return nil, fmt.Errorf("resolve parent backup: %w", err)
			}
			bctx.IncrementalSince = parent.CompletedAt
		}
	case model.BackupKindDatabase:
		backup, err := a.svcs.DatabaseBackup.GetByID(ctx, ref.ID)
		if err != nil {
			return nil, err
		}
		bctx.ProjectID = backup.ProjectID
		bctx.ServerID = backup.ServerID
		bctx.DatabaseName = backup.DatabaseName
	case model.BackupKindServer:
		backup, err := a.svcs.ServerBackup.GetByID(ctx, ref.ID)
		if err != nil {
			return nil, err
		}
		bctx.ProjectID = backup.ProjectID
		bctx.ServerID = &backup.ServerID
		bctx.SnapshotType = backup.SnapshotType
	default:
		return nil, fmt.Errorf("unknown backup kind %q", ref.Kind)
	}

	cfg, err := a.svcs.StorageConfig.DefaultForScope(ctx, &bctx.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("resolve storage target: %w", err)
	}
	bctx.StorageConfigID = cfg.ID
	return bctx, nil
}

// ListDueSchedules returns every active schedule due at now.
func (a *BackupDB) ListDueSchedules(ctx context.Context, now time.Time) ([]model.BackupSchedule, error) {
	return a.svcs.BackupSchedule.DueSchedules(ctx, now)
}

// AdvanceSchedule moves a dispatched schedule to its next occurrence.
func (a *BackupDB) AdvanceSchedule(ctx context.Context, params AdvanceScheduleParams) error {
	return a.svcs.BackupSchedule.Advance(ctx, params.ID, params.Now)
}

// CreateScheduledBackup inserts the backup record for a due schedule. The
// record is created with workflow dispatch suppressed; the calling schedule
// run owns the execution.
func (a *BackupDB) CreateScheduledBackup(ctx context.Context, scheduleID string) (*ScheduledBackupResult, error) {
	sched, err := a.svcs.BackupSchedule.GetByID(ctx, scheduleID)
	if err != nil {
		return nil, err
	}

	ctx = core.WithSkipWorkflow(ctx)
	now := time.Now().UTC()
	result := &ScheduledBackupResult{
		BackupID:         platform.NewID(),
		ProjectID:        sched.ProjectID,
		RetentionDaily:   sched.RetentionDaily,
		RetentionWeekly:  sched.RetentionWeekly,
		RetentionMonthly: sched.RetentionMonthly,
	}

	switch sched.BackupKind {
	case model.BackupKindFile:
		backup := &model.FileBackup{
			ID:        result.BackupID,
			ProjectID: sched.ProjectID,
			CreatedAt: now,
			UpdatedAt: now,
		}
		// Incrementals chain onto the newest completed full, never onto
		// another incremental. Once that full ages out of the rotation
		// window the run re-roots with a fresh full, so retention can shed
		// the retired chain whole.
		parentID, err := a.scheduledChainParent(ctx, sched.ProjectID, fullRotationWindow(sched.RetentionDaily))
		if err != nil {
			return nil, err
		}
		if parentID != nil {
			backup.ParentBackupID = parentID
			err = a.svcs.FileBackup.CreateIncremental(ctx, backup)
		} else {
			err = a.svcs.FileBackup.CreateFull(ctx, backup)
		}
		if err != nil {
			return nil, err
		}
		result.WorkflowName = "FileBackupWorkflow"
	case model.BackupKindDatabase:
		if sched.DatabaseName == nil {
			return nil, fmt.Errorf("schedule %s has no database to back up", scheduleID)
		}
		backup := &model.DatabaseBackup{
			ID:           result.BackupID,
			ProjectID:    sched.ProjectID,
			ServerID:     sched.ServerID,
			DatabaseName: *sched.DatabaseName,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if err := a.svcs.DatabaseBackup.Create(ctx, backup); err != nil {
			return nil, err
		}
		result.WorkflowName = "DatabaseBackupWorkflow"
	case model.BackupKindServer:
		if sched.ServerID == nil {
			return nil, fmt.Errorf("schedule %s has no server to back up", scheduleID)
		}
		backup := &model.ServerBackup{
			ID:           result.BackupID,
			ProjectID:    sched.ProjectID,
			ServerID:     *sched.ServerID,
			SnapshotType: "snapshot",
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if err := a.svcs.ServerBackup.Create(ctx, backup); err != nil {
			return nil, err
		}
		result.WorkflowName = "ServerBackupWorkflow"
	default:
		return nil, fmt.Errorf("schedule %s has unknown backup kind %q", scheduleID, sched.BackupKind)
	}

	return result, nil
}

// ApplyRetention prunes a project's file backups per the schedule policy and
// returns the number removed.
func (a *BackupDB) ApplyRetention(ctx context.Context, params ApplyRetentionParams) (int, error) {
	deleted, err := a.svcs.FileBackup.ApplyRetention(ctx, params.ProjectID, params.Daily, params.Weekly, params.Monthly)
	if err != nil {
		return len(deleted), err
	}
	return len(deleted), nil
}

// scheduledChainParent picks the parent for a scheduled file backup: the
// newest completed full, provided it is still inside the rotation window.
// Nil means the run starts a fresh chain.
func (a *BackupDB) scheduledChainParent(ctx context.Context, projectID string, window time.Duration) (*string, error) {
	var id string
	var createdAt time.Time
	err := a.db.QueryRow(ctx,
		`SELECT id, created_at FROM file_backups WHERE project_id = $1 AND status = $2 AND parent_backup_id IS NULL
		 ORDER BY created_at DESC LIMIT 1`,
		projectID, model.StatusCompleted).Scan(&id, &createdAt)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find latest completed full backup: %w", err)
	}
	if time.Since(createdAt) > window {
		return nil, nil
	}
	return &id, nil
}

// fullRotationWindow is how old a full may grow before a scheduled run stops
// chaining onto it. It tracks the schedule's daily retention so everything
// hanging off a retired full is already outside the daily keep set.
func fullRotationWindow(retentionDaily int) time.Duration {
	days := retentionDaily
	if days <= 0 {
		days = 7
	}
	return time.Duration(days) * 24 * time.Hour
}
