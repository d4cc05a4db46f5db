package core

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/devflow/backhaul/internal/model"
	"github.com/devflow/backhaul/internal/schedule"
)

const scheduleColumns = `id, project_id, server_id, backup_kind, database_name, frequency, time_of_day, day_of_week, day_of_month,
	retention_daily, retention_weekly, retention_monthly, is_active, last_run_at, next_run_at, created_at, updated_at`

type BackupScheduleService struct {
	db DB
}

func NewBackupScheduleService(db DB) *BackupScheduleService {
	return &BackupScheduleService{db: db}
}

// Create validates the recurrence policy, computes the first next_run_at
// and inserts the schedule.
func (s *BackupScheduleService) Create(ctx context.Context, sched *model.BackupSchedule) error {
	if err := schedule.Validate(sched); err != nil {
		return err
	}

	next, err := schedule.ComputeNextRun(sched, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("compute next run: %w", err)
	}
	sched.NextRunAt = &next

	_, err = s.db.Exec(ctx,
		`INSERT INTO backup_schedules (id, project_id, server_id, backup_kind, database_name, frequency, time_of_day, day_of_week, day_of_month,
		 retention_daily, retention_weekly, retention_monthly, is_active, last_run_at, next_run_at, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`,
		sched.ID, sched.ProjectID, sched.ServerID, sched.BackupKind, sched.DatabaseName,
		sched.Frequency, sched.TimeOfDay, sched.DayOfWeek, sched.DayOfMonth,
		sched.RetentionDaily, sched.RetentionWeekly, sched.RetentionMonthly,
		sched.IsActive, sched.LastRunAt, sched.NextRunAt, sched.CreatedAt, sched.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert backup schedule: %w", err)
	}
	return nil
}

func (s *BackupScheduleService) GetByID(ctx context.Context, id string) (*model.BackupSchedule, error) {
	row := s.db.QueryRow(ctx,
		`SELECT `+scheduleColumns+` FROM backup_schedules WHERE id = $1`, id)
	sched, err := scanSchedule(row)
	if err != nil {
		return nil, fmt.Errorf("get backup schedule %s: %w", id, err)
	}
	return sched, nil
}

func (s *BackupScheduleService) ListByProject(ctx context.Context, projectID string, limit int, cursor string) ([]model.BackupSchedule, bool, error) {
	query := `SELECT ` + scheduleColumns + ` FROM backup_schedules WHERE project_id = $1`
	args := []any{projectID}
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
		return nil, false, fmt.Errorf("list backup schedules for project %s: %w", projectID, err)
	}
	defer rows.Close()

	var schedules []model.BackupSchedule
	for rows.Next() {
		sched, err := scanSchedule(rows)
		if err != nil {
			return nil, false, fmt.Errorf("scan backup schedule: %w", err)
		}
		schedules = append(schedules, *sched)
	}
	if err := rows.Err(); err != nil {
		return nil, false, fmt.Errorf("iterate backup schedules: %w", err)
	}

	hasMore := len(schedules) > limit
	if hasMore {
		schedules = schedules[:limit]
	}
	return schedules, hasMore, nil
}

// Update replaces the recurrence policy and recomputes next_run_at from the
// new policy. Activation state is managed separately.
func (s *BackupScheduleService) Update(ctx context.Context, sched *model.BackupSchedule) error {
	if err := schedule.Validate(sched); err != nil {
		return err
	}

	next, err := schedule.ComputeNextRun(sched, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("compute next run: %w", err)
	}
	sched.NextRunAt = &next

	_, err = s.db.Exec(ctx,
		`UPDATE backup_schedules
		 SET backup_kind = $1, database_name = $2, frequency = $3, time_of_day = $4, day_of_week = $5, day_of_month = $6,
		     retention_daily = $7, retention_weekly = $8, retention_monthly = $9, next_run_at = $10, updated_at = now()
		 WHERE id = $11`,
		sched.BackupKind, sched.DatabaseName, sched.Frequency, sched.TimeOfDay, sched.DayOfWeek, sched.DayOfMonth,
		sched.RetentionDaily, sched.RetentionWeekly, sched.RetentionMonthly, sched.NextRunAt, sched.ID,
	)
	if err != nil {
		return fmt.Errorf("update backup schedule %s: %w", sched.ID, err)
	}
	return nil
}

// Deactivate stops future dispatch without touching next_run_at or history.
func (s *BackupScheduleService) Deactivate(ctx context.Context, id string) error {
	_, err := s.db.Exec(ctx,
		"UPDATE backup_schedules SET is_active = false, updated_at = now() WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("deactivate backup schedule %s: %w", id, err)
	}
	return nil
}

// Activate resumes dispatch, recomputing next_run_at so the schedule does not
// fire immediately for every occurrence missed while inactive.
func (s *BackupScheduleService) Activate(ctx context.Context, id string) error {
	sched, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}

	next, err := schedule.ComputeNextRun(sched, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("compute next run: %w", err)
	}

	_, err = s.db.Exec(ctx,
		"UPDATE backup_schedules SET is_active = true, next_run_at = $1, updated_at = now() WHERE id = $2",
		next, id)
	if err != nil {
		return fmt.Errorf("activate backup schedule %s: %w", id, err)
	}
	return nil
}

func (s *BackupScheduleService) Delete(ctx context.Context, id string) error {
	_, err := s.db.Exec(ctx, "DELETE FROM backup_schedules WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete backup schedule %s: %w", id, err)
	}
	return nil
}

// DueSchedules returns every active schedule whose next_run_at has arrived,
// fanned out per frequency so a slow bucket does not serialize the others.
func (s *BackupScheduleService) DueSchedules(ctx context.Context, now time.Time) ([]model.BackupSchedule, error) {
	frequencies := []string{
		model.FrequencyHourly,
		model.FrequencyDaily,
		model.FrequencyWeekly,
		model.FrequencyMonthly,
	}

	results := make([][]model.BackupSchedule, len(frequencies))
	g, gctx := errgroup.WithContext(ctx)
	for i, freq := range frequencies {
		g.Go(func() error {
			due, err := s.dueByFrequency(gctx, freq, now)
			if err != nil {
				return err
			}
			results[i] = due
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var all []model.BackupSchedule
	for _, batch := range results {
		all = append(all, batch...)
	}
	return all, nil
}

func (s *BackupScheduleService) dueByFrequency(ctx context.Context, frequency string, now time.Time) ([]model.BackupSchedule, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+scheduleColumns+` FROM backup_schedules
		 WHERE is_active = true AND frequency = $1 AND (next_run_at IS NULL OR next_run_at <= $2)
		 ORDER BY id`, frequency, now)
	if err != nil {
		return nil, fmt.Errorf("list due %s schedules: %w", frequency, err)
	}
	defer rows.Close()

	var due []model.BackupSchedule
	for rows.Next() {
		sched, err := scanSchedule(rows)
		if err != nil {
			return nil, fmt.Errorf("scan due schedule: %w", err)
		}
		due = append(due, *sched)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate due %s schedules: %w", frequency, err)
	}
	return due, nil
}

// Advance records a dispatched run: last_run_at moves to the run time and
// next_run_at to the following occurrence. The caller owns the exactly-once
// guarantee; calling Advance twice moves the schedule forward twice.
func (s *BackupScheduleService) Advance(ctx context.Context, id string, now time.Time) error {
	sched, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if err := schedule.Advance(sched, now); err != nil {
		return fmt.Errorf("advance schedule %s: %w", id, err)
	}

	_, err = s.db.Exec(ctx,
		"UPDATE backup_schedules SET last_run_at = $1, next_run_at = $2, updated_at = now() WHERE id = $3",
		sched.LastRunAt, sched.NextRunAt, id)
	if err != nil {
		return fmt.Errorf("update schedule %s run markers: %w", id, err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSchedule(row scanner) (*model.BackupSchedule, error) {
	var sched model.BackupSchedule
	err := row.Scan(&sched.ID, &sched.ProjectID, &sched.ServerID, &sched.BackupKind,
		&sched.DatabaseName, &sched.Frequency, &sched.TimeOfDay, &sched.DayOfWeek, &sched.DayOfMonth,
		&sched.RetentionDaily, &sched.RetentionWeekly, &sched.RetentionMonthly,
		&sched.IsActive, &sched.LastRunAt, &sched.NextRunAt, &sched.CreatedAt, &sched.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &sched, nil
}
