package core

import (
	"context"
	"fmt"
	"time"

	temporalclient "go.temporal.io/sdk/client"

	"github.com/devflow/backhaul/internal/model"
)

const serverBackupColumns = `id, project_id, server_id, snapshot_type, storage_path, size_bytes,
	status, error_message, started_at, completed_at, verified_at, metadata, created_at, updated_at`

type ServerBackupService struct {
	db DB
	tc temporalclient.Client
}

func NewServerBackupService(db DB, tc temporalclient.Client) *ServerBackupService {
	return &ServerBackupService{db: db, tc: tc}
}

func (s *ServerBackupService) Create(ctx context.Context, backup *model.ServerBackup) error {
	backup.Status = model.StatusPending

	_, err := s.db.Exec(ctx,
		`INSERT INTO server_backups (id, project_id, server_id, snapshot_type, storage_path, size_bytes,
		 status, error_message, started_at, completed_at, verified_at, metadata, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		backup.ID, backup.ProjectID, backup.ServerID, backup.SnapshotType,
		backup.StoragePath, backup.SizeBytes, backup.Status, backup.ErrorMessage,
		backup.StartedAt, backup.CompletedAt, backup.VerifiedAt, backup.Metadata,
		backup.CreatedAt, backup.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert server backup: %w", err)
	}

	if err := startWorkflow(ctx, s.tc, "ServerBackupWorkflow", workflowID("server-backup", backup.ID), backup.ID); err != nil {
		return fmt.Errorf("start ServerBackupWorkflow: %w", err)
	}
	return nil
}

func (s *ServerBackupService) GetByID(ctx context.Context, id string) (*model.ServerBackup, error) {
	row := s.db.QueryRow(ctx,
		`SELECT `+serverBackupColumns+` FROM server_backups WHERE id = $1`, id)
	backup, err := scanServerBackup(row)
	if err != nil {
		return nil, fmt.Errorf("get server backup %s: %w", id, err)
	}
	return backup, nil
}

func (s *ServerBackupService) ListByServer(ctx context.Context, serverID string, limit int, cursor string) ([]model.ServerBackup, bool, error) {
	query := `SELECT ` + serverBackupColumns + ` FROM server_backups WHERE server_id = $1`
	args := []any{serverID}
	argIdx := 2

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
		return nil, false, fmt.Errorf("list server backups for server %s: %w", serverID, err)
	}
	defer rows.Close()

	var backups []model.ServerBackup
	for rows.Next() {
		backup, err := scanServerBackup(rows)
		if err != nil {
			return nil, false, fmt.Errorf("scan server backup: %w", err)
		}
		backups = append(backups, *backup)
	}
	if err := rows.Err(); err != nil {
		return nil, false, fmt.Errorf("iterate server backups: %w", err)
	}

	hasMore := len(backups) > limit
	if hasMore {
		backups = backups[:limit]
	}
	return backups, hasMore, nil
}

func (s *ServerBackupService) MarkRunning(ctx context.Context, id string, now time.Time) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE server_backups SET status = $1, started_at = $2, updated_at = now()
		 WHERE id = $3 AND status = $4`,
		model.StatusRunning, now, id, model.StatusPending)
	if err != nil {
		return fmt.Errorf("mark server backup %s running: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("server backup %s: %w", id, model.ErrInvalidTransition)
	}
	return nil
}

func (s *ServerBackupService) MarkCompleted(ctx context.Context, id string, storagePath string, sizeBytes int64, now time.Time) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE server_backups SET status = $1, storage_path = $2, size_bytes = $3, completed_at = $4, updated_at = now()
		 WHERE id = $5 AND status = $6`,
		model.StatusCompleted, storagePath, sizeBytes, now, id, model.StatusRunning)
	if err != nil {
		return fmt.Errorf("mark server backup %s completed: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("server backup %s: %w", id, model.ErrInvalidTransition)
	}
	return nil
}

func (s *ServerBackupService) MarkFailed(ctx context.Context, id, message string, now time.Time) error {
	if message == "" {
		return fmt.Errorf("server backup %s: %w", id, model.ErrMissingErrorMessage)
	}
	tag, err := s.db.Exec(ctx,
		`UPDATE server_backups SET status = $1, error_message = $2, completed_at = $3, updated_at = now()
		 WHERE id = $4 AND status = $5`,
		model.StatusFailed, message, now, id, model.StatusRunning)
	if err != nil {
		return fmt.Errorf("mark server backup %s failed: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("server backup %s: %w", id, model.ErrInvalidTransition)
	}
	return nil
}

func (s *ServerBackupService) MarkVerified(ctx context.Context, id string, now time.Time) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE server_backups SET verified_at = $1, updated_at = now()
		 WHERE id = $2 AND status = $3`,
		now, id, model.StatusCompleted)
	if err != nil {
		return fmt.Errorf("mark server backup %s verified: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("server backup %s: %w", id, model.ErrInvalidTransition)
	}
	return nil
}

func (s *ServerBackupService) Delete(ctx context.Context, id string) error {
	_, err := s.db.Exec(ctx, "DELETE FROM server_backups WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete server backup %s: %w", id, err)
	}
	return nil
}

func scanServerBackup(row scanner) (*model.ServerBackup, error) {
	var b model.ServerBackup
	err := row.Scan(&b.ID, &b.ProjectID, &b.ServerID, &b.SnapshotType,
		&b.StoragePath, &b.SizeBytes, &b.Status, &b.ErrorMessage,
		&b.StartedAt, &b.CompletedAt, &b.VerifiedAt, &b.Metadata,
		&b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &b, nil
}
