package core

import (
	"context"
	"fmt"
)

// DashboardStats holds aggregate backup counts.
type DashboardStats struct {
	Schedules           int           `json:"schedules"`
	SchedulesActive     int           `json:"schedules_active"`
	FileBackups         int           `json:"file_backups"`
	DatabaseBackups     int           `json:"database_backups"`
	ServerBackups       int           `json:"server_backups"`
	StorageConfigs      int           `json:"storage_configs"`
	StorageActive       int           `json:"storage_active"`
	FileBackupsByStatus []StatusCount `json:"file_backups_by_status"`
	TotalSizeBytes      *int64        `json:"total_size_bytes"`
	FailedLast24h       int           `json:"failed_last_24h"`
}

// StatusCount holds a count grouped by status.
type StatusCount struct {
	Status string `json:"status"`
	Count  int    `json:"count"`
}

// DashboardService queries aggregate stats across the backup tables.
type DashboardService struct {
	db DB
}

func NewDashboardService(db DB) *DashboardService {
	return &DashboardService{db: db}
}

// Stats returns aggregate counts using a single query with CTEs.
func (s *DashboardService) Stats(ctx context.Context) (*DashboardStats, error) {
	const countsQuery = `
		WITH schedule_count AS (
			SELECT count(*) AS c FROM backup_schedules
		), schedule_active AS (
			SELECT count(*) AS c FROM backup_schedules WHERE is_active = true
		), file_count AS (
			SELECT count(*) AS c FROM file_backups
		), database_count AS (
			SELECT count(*) AS c FROM database_backups
		), server_count AS (
			SELECT count(*) AS c FROM server_backups
		), storage_count AS (
			SELECT count(*) AS c FROM storage_configurations
		), storage_active AS (
			SELECT count(*) AS c FROM storage_configurations WHERE status = 'active'
		), total_size AS (
			SELECT sum(size_bytes) AS s FROM (
				SELECT size_bytes FROM file_backups WHERE status = 'completed'
				UNION ALL SELECT size_bytes FROM database_backups WHERE status = 'completed'
				UNION ALL SELECT size_bytes FROM server_backups WHERE status = 'completed'
			) sizes
		), failed_recent AS (
			SELECT count(*) AS c FROM (
				SELECT completed_at FROM file_backups WHERE status = 'failed'
				UNION ALL SELECT completed_at FROM database_backups WHERE status = 'failed'
				UNION ALL SELECT completed_at FROM server_backups WHERE status = 'failed'
			) failures WHERE completed_at > now() - interval '24 hours'
		)
		SELECT
			(SELECT c FROM schedule_count),
			(SELECT c FROM schedule_active),
			(SELECT c FROM file_count),
			(SELECT c FROM database_count),
			(SELECT c FROM server_count),
			(SELECT c FROM storage_count),
			(SELECT c FROM storage_active),
			(SELECT s FROM total_size),
			(SELECT c FROM failed_recent)`

	stats := &DashboardStats{}
	err := s.db.QueryRow(ctx, countsQuery).Scan(
		&stats.Schedules,
		&stats.SchedulesActive,
		&stats.FileBackups,
		&stats.DatabaseBackups,
		&stats.ServerBackups,
		&stats.StorageConfigs,
		&stats.StorageActive,
		&stats.TotalSizeBytes,
		&stats.FailedLast24h,
	)
	if err != nil {
		return nil, fmt.Errorf("query dashboard counts: %w", err)
	}

	rows, err := s.db.Query(ctx,
		"SELECT status, count(*) FROM file_backups GROUP BY status ORDER BY status")
	if err != nil {
		return nil, fmt.Errorf("query file backups by status: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var sc StatusCount
		if err := rows.Scan(&sc.Status, &sc.Count); err != nil {
			return nil, fmt.Errorf("scan status count: %w", err)
		}
		stats.FileBackupsByStatus = append(stats.FileBackupsByStatus, sc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate status counts: %w", err)
	}

	return stats, nil
}
