package core

import (
	"context"
	"fmt"
	"time"

	temporalclient "go.temporal.io/sdk/client"

	"github.com/devflow/backhaul/internal/chain"
	"github.com/devflow/backhaul/internal/model"
)

const fileBackupColumns = `id, project_id, type, parent_backup_id, storage_path, size_bytes,
	status, error_message, started_at, completed_at, created_at, updated_at`

type FileBackupService struct {
	db DB
	tc temporalclient.Client
}

func NewFileBackupService(db DB, tc temporalclient.Client) *FileBackupService {
	return &FileBackupService{db: db, tc: tc}
}

// CreateFull inserts a pending full backup and hands it to the executor.
func (s *FileBackupService) CreateFull(ctx context.Context, backup *model.FileBackup) error {
	backup.Type = model.BackupTypeFull
	backup.ParentBackupID = nil
	return s.create(ctx, backup)
}

// CreateIncremental inserts a pending incremental backup. The parent must
// exist, belong to the same project and be completed; an incremental against
// an unfinished or foreign parent would produce an unrestorable chain.
func (s *FileBackupService) CreateIncremental(ctx context.Context, backup *model.FileBackup) error {
	if backup.ParentBackupID == nil {
		return fmt.Errorf("incremental backup requires a parent backup")
	}

	parent, err := s.GetByID(ctx, *backup.ParentBackupID)
	if err != nil {
		return fmt.Errorf("get parent backup: %w", err)
	}
	if parent.ProjectID != backup.ProjectID {
		return fmt.Errorf("parent backup %s belongs to a different project", parent.ID)
	}
	if !parent.IsCompleted() {
		return fmt.Errorf("parent backup %s is not completed (status: %s)", parent.ID, parent.Status)
	}

	backup.Type = model.BackupTypeIncremental
	return s.create(ctx, backup)
}

func (s *FileBackupService) create(ctx context.Context, backup *model.FileBackup) error {
	backup.Status = model.StatusPending

	_, err := s.db.Exec(ctx,
		`INSERT INTO file_backups (id, project_id, type, parent_backup_id, storage_path, size_bytes,
		 status, error_message, started_at, completed_at, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		backup.ID, backup.ProjectID, backup.Type, backup.ParentBackupID,
		backup.StoragePath, backup.SizeBytes, backup.Status, backup.ErrorMessage,
		backup.StartedAt, backup.CompletedAt, backup.CreatedAt, backup.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert file backup: %w", err)
	}

	if err := startWorkflow(ctx, s.tc, "FileBackupWorkflow", workflowID("file-backup", backup.ID), backup.ID); err != nil {
		return fmt.Errorf("start FileBackupWorkflow: %w", err)
	}
	return nil
}

func (s *FileBackupService) GetByID(ctx context.Context, id string) (*model.FileBackup, error) {
	row := s.db.QueryRow(ctx,
		`SELECT `+fileBackupColumns+` FROM file_backups WHERE id = $1`, id)
	backup, err := scanFileBackup(row)
	if err != nil {
		return nil, fmt.Errorf("get file backup %s: %w", id, err)
	}
	return backup, nil
}

// ListByProject pages through a project's file backups, optionally filtered
// by status and type. Empty filter values match everything.
func (s *FileBackupService) ListByProject(ctx context.Context, projectID, status, backupType string, limit int, cursor string) ([]model.FileBackup, bool, error) {
	query := `SELECT ` + fileBackupColumns + ` FROM file_backups WHERE project_id = $1`
	args := []any{projectID}
	argIdx := 2

	if status != "" {
		query += fmt.Sprintf(` AND status = $%d`, argIdx)
		args = append(args, status)
		argIdx++
	}
	if backupType != "" {
		query += fmt.Sprintf(` AND type = $%d`, argIdx)
		args = append(args, backupType)
		argIdx++
	}
	if cursor != "" {
		query += fmt.Sprintf(` AND id > $%d`, argIdx)
		args = append(args, cursor)
		argIdx++
	}

	query += ` ORDER BY id`
	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, limit+1)

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, false, fmt.Errorf("list file backups for project %s: %w", projectID, err)
	}
	defer rows.Close()

	var backups []model.FileBackup
	for rows.Next() {
		backup, err := scanFileBackup(rows)
		if err != nil {
			return nil, false, fmt.Errorf("scan file backup: %w", err)
		}
		backups = append(backups, *backup)
	}
	if err := rows.Err(); err != nil {
		return nil, false, fmt.Errorf("iterate file backups: %w", err)
	}

	hasMore := len(backups) > limit
	if hasMore {
		backups = backups[:limit]
	}
	return backups, hasMore, nil
}

// MarkRunning transitions a pending backup to running. The status predicate
// in the UPDATE enforces the same transition rule the model does.
func (s *FileBackupService) MarkRunning(ctx context.Context, id string, now time.Time) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE file_backups SET status = $1, started_at = $2, updated_at = now()
		 WHERE id = $3 AND status = $4`,
		model.StatusRunning, now, id, model.StatusPending)
	if err != nil {
		return fmt.Errorf("mark file backup %s running: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("file backup %s: %w", id, model.ErrInvalidTransition)
	}
	return nil
}

// MarkCompleted transitions a running backup to completed, recording the
// artifact size and remote path reported by the executor.
func (s *FileBackupService) MarkCompleted(ctx context.Context, id string, storagePath string, sizeBytes int64, now time.Time) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE file_backups SET status = $1, storage_path = $2, size_bytes = $3, completed_at = $4, updated_at = now()
		 WHERE id = $5 AND status = $6`,
		model.StatusCompleted, storagePath, sizeBytes, now, id, model.StatusRunning)
	if err != nil {
		return fmt.Errorf("mark file backup %s completed: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("file backup %s: %w", id, model.ErrInvalidTransition)
	}
	return nil
}

// MarkFailed transitions a running backup to failed. A failure without an
// error message is not recordable.
func (s *FileBackupService) MarkFailed(ctx context.Context, id, message string, now time.Time) error {
	if message == "" {
		return fmt.Errorf("file backup %s: %w", id, model.ErrMissingErrorMessage)
	}
	tag, err := s.db.Exec(ctx,
		`UPDATE file_backups SET status = $1, error_message = $2, completed_at = $3, updated_at = now()
		 WHERE id = $4 AND status = $5`,
		model.StatusFailed, message, now, id, model.StatusRunning)
	if err != nil {
		return fmt.Errorf("mark file backup %s failed: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("file backup %s: %w", id, model.ErrInvalidTransition)
	}
	return nil
}

// Chain returns the backup's full lineage, root first.
func (s *FileBackupService) Chain(ctx context.Context, id string) ([]*model.FileBackup, error) {
	arena, err := s.loadArena(ctx, id)
	if err != nil {
		return nil, err
	}
	return arena.Chain(id)
}

// RestoreOrder returns the sequence a restore must apply, root first.
func (s *FileBackupService) RestoreOrder(ctx context.Context, id string) ([]*model.FileBackup, error) {
	arena, err := s.loadArena(ctx, id)
	if err != nil {
		return nil, err
	}
	return arena.RestoreOrder(id)
}

// Root returns the full backup the chain starts from.
func (s *FileBackupService) Root(ctx context.Context, id string) (*model.FileBackup, error) {
	arena, err := s.loadArena(ctx, id)
	if err != nil {
		return nil, err
	}
	return arena.Root(id)
}

// Depth returns the number of hops from the backup to its root.
func (s *FileBackupService) Depth(ctx context.Context, id string) (int, error) {
	arena, err := s.loadArena(ctx, id)
	if err != nil {
		return 0, err
	}
	return arena.Depth(id)
}

// Delete removes a backup record. A backup that other backups build on is
// refused with ErrHasDependents; the dependents must go first.
func (s *FileBackupService) Delete(ctx context.Context, id string) error {
	var dependents int
	err := s.db.QueryRow(ctx,
		"SELECT COUNT(*) FROM file_backups WHERE parent_backup_id = $1", id).Scan(&dependents)
	if err != nil {
		return fmt.Errorf("count dependent backups: %w", err)
	}
	if dependents > 0 {
		return fmt.Errorf("delete file backup %s: %w", id, ErrHasDependents)
	}

	_, err = s.db.Exec(ctx, "DELETE FROM file_backups WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete file backup %s: %w", id, err)
	}
	return nil
}

// loadArena loads the owning project's backups into a lineage arena. Chains
// never cross projects, so the project is the complete resolution scope.
func (s *FileBackupService) loadArena(ctx context.Context, id string) (*chain.Arena, error) {
	backup, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.Query(ctx,
		`SELECT `+fileBackupColumns+` FROM file_backups WHERE project_id = $1`, backup.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("load project backups: %w", err)
	}
	defer rows.Close()

	var backups []model.FileBackup
	for rows.Next() {
		b, err := scanFileBackup(rows)
		if err != nil {
			return nil, fmt.Errorf("scan file backup: %w", err)
		}
		backups = append(backups, *b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate project backups: %w", err)
	}

	return chain.New(backups), nil
}

func scanFileBackup(row scanner) (*model.FileBackup, error) {
	var b model.FileBackup
	err := row.Scan(&b.ID, &b.ProjectID, &b.Type, &b.ParentBackupID,
		&b.StoragePath, &b.SizeBytes, &b.Status, &b.ErrorMessage,
		&b.StartedAt, &b.CompletedAt, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &b, nil
}
