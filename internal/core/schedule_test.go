package core

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/devflow/backhaul/internal/model"
	"github.com/devflow/backhaul/internal/schedule"
)

func dailySchedule() *model.BackupSchedule {
	now := time.Now()
	return &model.BackupSchedule{
		ID:               "test-schedule-1",
		ProjectID:        "test-project-1",
		BackupKind:       model.BackupKindFile,
		Frequency:        model.FrequencyDaily,
		TimeOfDay:        "02:00",
		RetentionDaily:   7,
		RetentionWeekly:  4,
		RetentionMonthly: 3,
		IsActive:         true,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

func TestBackupScheduleService_Create_Success(t *testing.T) {
	db := &mockDB{}
	svc := NewBackupScheduleService(db)
	ctx := context.Background()

	sched := dailySchedule()
	db.On("Exec", ctx, mock.AnythingOfType("string"), mock.Anything).Return(pgconn.CommandTag{}, nil)

	err := svc.Create(ctx, sched)
	require.NoError(t, err)
	require.NotNil(t, sched.NextRunAt, "create must compute the first next_run_at")
	assert.True(t, sched.NextRunAt.After(time.Now().Add(-time.Minute)))
	db.AssertExpectations(t)
}

func TestBackupScheduleService_Create_InvalidPolicy(t *testing.T) {
	db := &mockDB{}
	svc := NewBackupScheduleService(db)

	sched := dailySchedule()
	sched.TimeOfDay = "25:00"

	err := svc.Create(context.Background(), sched)
	require.Error(t, err)
	var policyErr *schedule.PolicyError
	assert.ErrorAs(t, err, &policyErr)
	db.AssertNotCalled(t, "Exec", mock.Anything, mock.Anything, mock.Anything)
}

func TestBackupScheduleService_Create_InsertError(t *testing.T) {
	db := &mockDB{}
	svc := NewBackupScheduleService(db)
	ctx := context.Background()

	db.On("Exec", ctx, mock.AnythingOfType("string"), mock.Anything).Return(pgconn.CommandTag{}, errors.New("db error"))

	err := svc.Create(ctx, dailySchedule())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insert backup schedule")
}

func TestBackupScheduleService_GetByID_Success(t *testing.T) {
	db := &mockDB{}
	svc := NewBackupScheduleService(db)
	ctx := context.Background()

	now := time.Now().Truncate(time.Microsecond)
	row := &mockRow{scanFunc: scheduleScanFunc("test-schedule-1", model.FrequencyDaily, true, now)}
	db.On("QueryRow", ctx, mock.AnythingOfType("string"), mock.Anything).Return(row)

	sched, err := svc.GetByID(ctx, "test-schedule-1")
	require.NoError(t, err)
	assert.Equal(t, "test-schedule-1", sched.ID)
	assert.Equal(t, model.FrequencyDaily, sched.Frequency)
	assert.True(t, sched.IsActive)
}

func TestBackupScheduleService_GetByID_NotFound(t *testing.T) {
	db := &mockDB{}
	svc := NewBackupScheduleService(db)
	ctx := context.Background()

	row := &mockRow{scanFunc: func(dest ...any) error { return errors.New("no rows in result set") }}
	db.On("QueryRow", ctx, mock.AnythingOfType("string"), mock.Anything).Return(row)

	_, err := svc.GetByID(ctx, "missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "get backup schedule missing")
}

func TestBackupScheduleService_ListByProject_Pagination(t *testing.T) {
	db := &mockDB{}
	svc := NewBackupScheduleService(db)
	ctx := context.Background()

	now := time.Now()
	rows := newMockRows(
		scheduleScanFunc("sched-1", model.FrequencyDaily, true, now),
		scheduleScanFunc("sched-2", model.FrequencyWeekly, true, now),
		scheduleScanFunc("sched-3", model.FrequencyHourly, false, now),
	)
	db.On("Query", ctx, mock.AnythingOfType("string"), mock.Anything).Return(rows, nil)

	schedules, hasMore, err := svc.ListByProject(ctx, "test-project-1", 2, "")
	require.NoError(t, err)
	assert.Len(t, schedules, 2)
	assert.True(t, hasMore, "a third row means another page exists")
}

func TestBackupScheduleService_Deactivate(t *testing.T) {
	db := &mockDB{}
	svc := NewBackupScheduleService(db)
	ctx := context.Background()

	db.On("Exec", ctx, mock.MatchedBy(func(sql string) bool {
		return strings.Contains(sql, "is_active = false")
	}), mock.Anything).Return(pgconn.NewCommandTag("UPDATE 1"), nil)

	err := svc.Deactivate(ctx, "test-schedule-1")
	require.NoError(t, err)
	db.AssertExpectations(t)
}

func TestBackupScheduleService_Advance(t *testing.T) {
	db := &mockDB{}
	svc := NewBackupScheduleService(db)
	ctx := context.Background()

	created := time.Now().Truncate(time.Microsecond)
	row := &mockRow{scanFunc: scheduleScanFunc("test-schedule-1", model.FrequencyDaily, true, created)}
	db.On("QueryRow", ctx, mock.AnythingOfType("string"), mock.Anything).Return(row)

	var updateArgs []any
	db.On("Exec", ctx, mock.AnythingOfType("string"), mock.Anything).
		Run(func(args mock.Arguments) { updateArgs = args.Get(2).([]any) }).
		Return(pgconn.NewCommandTag("UPDATE 1"), nil)

	now := time.Date(2026, 3, 10, 2, 0, 0, 0, time.UTC)
	err := svc.Advance(ctx, "test-schedule-1", now)
	require.NoError(t, err)

	require.Len(t, updateArgs, 3)
	lastRun := updateArgs[0].(*time.Time)
	nextRun := updateArgs[1].(*time.Time)
	assert.Equal(t, now, *lastRun)
	assert.True(t, nextRun.After(now), "next run must move past the dispatched run")
}

func TestBackupScheduleService_DueSchedules_FansOutPerFrequency(t *testing.T) {
	db := &mockDB{}
	svc := NewBackupScheduleService(db)
	ctx := context.Background()

	now := time.Now()
	db.On("Query", mock.Anything, mock.AnythingOfType("string"), mock.MatchedBy(func(args []any) bool {
		return args[0] == model.FrequencyDaily
	})).Return(newMockRows(scheduleScanFunc("sched-daily", model.FrequencyDaily, true, now)), nil)
	db.On("Query", mock.Anything, mock.AnythingOfType("string"), mock.Anything).Return(newEmptyMockRows(), nil)

	due, err := svc.DueSchedules(ctx, now)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, "sched-daily", due[0].ID)
	db.AssertNumberOfCalls(t, "Query", 4)
}

func TestBackupScheduleService_DueSchedules_QueryError(t *testing.T) {
	db := &mockDB{}
	svc := NewBackupScheduleService(db)

	db.On("Query", mock.Anything, mock.AnythingOfType("string"), mock.Anything).Return(nil, errors.New("db down"))

	_, err := svc.DueSchedules(context.Background(), time.Now())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "schedules")
}

// scheduleScanFunc fills a schedule row in column order.
func scheduleScanFunc(id, frequency string, active bool, now time.Time) func(dest ...any) error {
	return func(dest ...any) error {
		*(dest[0].(*string)) = id
		*(dest[1].(*string)) = "test-project-1"
		*(dest[2].(**string)) = nil // server_id
		*(dest[3].(*string)) = model.BackupKindFile
		*(dest[4].(**string)) = nil // database_name
		*(dest[5].(*string)) = frequency
		*(dest[6].(*string)) = "02:00"
		*(dest[7].(*int)) = 0
		*(dest[8].(*int)) = 1
		*(dest[9].(*int)) = 7
		*(dest[10].(*int)) = 4
		*(dest[11].(*int)) = 3
		*(dest[12].(*bool)) = active
		*(dest[13].(**time.Time)) = nil
		*(dest[14].(**time.Time)) = nil
		*(dest[15].(*time.Time)) = now
		*(dest[16].(*time.Time)) = now
		return nil
	}
}
