package core

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	temporalmocks "go.temporal.io/sdk/mocks"

	"github.com/devflow/backhaul/internal/model"
)

func TestFileBackupService_CreateFull_Success(t *testing.T) {
	db := &mockDB{}
	tc := &temporalmocks.Client{}
	svc := NewFileBackupService(db, tc)
	ctx := context.Background()

	now := time.Now()
	backup := &model.FileBackup{
		ID:        "test-backup-1",
		ProjectID: "test-project-1",
		CreatedAt: now,
		UpdatedAt: now,
	}

	db.On("Exec", ctx, mock.AnythingOfType("string"), mock.Anything).Return(pgconn.CommandTag{}, nil)

	wfRun := &temporalmocks.WorkflowRun{}
	tc.On("ExecuteWorkflow", ctx, mock.Anything, "FileBackupWorkflow", mock.Anything).Return(wfRun, nil)

	err := svc.CreateFull(ctx, backup)
	require.NoError(t, err)
	assert.Equal(t, model.BackupTypeFull, backup.Type)
	assert.Equal(t, model.StatusPending, backup.Status)
	assert.Nil(t, backup.ParentBackupID)
	db.AssertExpectations(t)
	tc.AssertExpectations(t)
}

func TestFileBackupService_CreateFull_WorkflowError(t *testing.T) {
	db := &mockDB{}
	tc := &temporalmocks.Client{}
	svc := NewFileBackupService(db, tc)
	ctx := context.Background()

	db.On("Exec", ctx, mock.AnythingOfType("string"), mock.Anything).Return(pgconn.CommandTag{}, nil)
	tc.On("ExecuteWorkflow", ctx, mock.Anything, "FileBackupWorkflow", mock.Anything).Return(nil, errors.New("temporal down"))

	err := svc.CreateFull(ctx, &model.FileBackup{ID: "test-backup-1", ProjectID: "test-project-1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "start FileBackupWorkflow")
}

func TestFileBackupService_CreateFull_SkipWorkflow(t *testing.T) {
	db := &mockDB{}
	tc := &temporalmocks.Client{}
	svc := NewFileBackupService(db, tc)
	ctx := WithSkipWorkflow(context.Background())

	db.On("Exec", ctx, mock.AnythingOfType("string"), mock.Anything).Return(pgconn.CommandTag{}, nil)

	err := svc.CreateFull(ctx, &model.FileBackup{ID: "test-backup-1", ProjectID: "test-project-1"})
	require.NoError(t, err)
	tc.AssertNotCalled(t, "ExecuteWorkflow", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestFileBackupService_CreateIncremental_Success(t *testing.T) {
	db := &mockDB{}
	tc := &temporalmocks.Client{}
	svc := NewFileBackupService(db, tc)
	ctx := context.Background()

	parentID := "test-backup-parent"
	row := &mockRow{scanFunc: fileBackupScanFunc(parentID, "test-project-1", model.BackupTypeFull, nil, model.StatusCompleted)}
	db.On("QueryRow", ctx, mock.AnythingOfType("string"), mock.Anything).Return(row)
	db.On("Exec", ctx, mock.AnythingOfType("string"), mock.Anything).Return(pgconn.CommandTag{}, nil)

	wfRun := &temporalmocks.WorkflowRun{}
	tc.On("ExecuteWorkflow", ctx, mock.Anything, "FileBackupWorkflow", mock.Anything).Return(wfRun, nil)

	backup := &model.FileBackup{
		ID:             "test-backup-2",
		ProjectID:      "test-project-1",
		ParentBackupID: &parentID,
	}
	err := svc.CreateIncremental(ctx, backup)
	require.NoError(t, err)
	assert.Equal(t, model.BackupTypeIncremental, backup.Type)
}

func TestFileBackupService_CreateIncremental_MissingParent(t *testing.T) {
	db := &mockDB{}
	tc := &temporalmocks.Client{}
	svc := NewFileBackupService(db, tc)

	err := svc.CreateIncremental(context.Background(), &model.FileBackup{ID: "test-backup-2", ProjectID: "test-project-1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "requires a parent backup")
}

func TestFileBackupService_CreateIncremental_ParentNotCompleted(t *testing.T) {
	db := &mockDB{}
	tc := &temporalmocks.Client{}
	svc := NewFileBackupService(db, tc)
	ctx := context.Background()

	parentID := "test-backup-parent"
	row := &mockRow{scanFunc: fileBackupScanFunc(parentID, "test-project-1", model.BackupTypeFull, nil, model.StatusRunning)}
	db.On("QueryRow", ctx, mock.AnythingOfType("string"), mock.Anything).Return(row)

	err := svc.CreateIncremental(ctx, &model.FileBackup{
		ID:             "test-backup-2",
		ProjectID:      "test-project-1",
		ParentBackupID: &parentID,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not completed")
	db.AssertNotCalled(t, "Exec", mock.Anything, mock.Anything, mock.Anything)
}

func TestFileBackupService_CreateIncremental_ParentForeignProject(t *testing.T) {
	db := &mockDB{}
	tc := &temporalmocks.Client{}
	svc := NewFileBackupService(db, tc)
	ctx := context.Background()

	parentID := "test-backup-parent"
	row := &mockRow{scanFunc: fileBackupScanFunc(parentID, "other-project", model.BackupTypeFull, nil, model.StatusCompleted)}
	db.On("QueryRow", ctx, mock.AnythingOfType("string"), mock.Anything).Return(row)

	err := svc.CreateIncremental(ctx, &model.FileBackup{
		ID:             "test-backup-2",
		ProjectID:      "test-project-1",
		ParentBackupID: &parentID,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "different project")
}

func TestFileBackupService_MarkRunning_Success(t *testing.T) {
	db := &mockDB{}
	svc := NewFileBackupService(db, nil)
	ctx := context.Background()

	db.On("Exec", ctx, mock.AnythingOfType("string"), mock.Anything).Return(pgconn.NewCommandTag("UPDATE 1"), nil)

	err := svc.MarkRunning(ctx, "test-backup-1", time.Now())
	require.NoError(t, err)
}

func TestFileBackupService_MarkRunning_InvalidTransition(t *testing.T) {
	db := &mockDB{}
	svc := NewFileBackupService(db, nil)
	ctx := context.Background()

	// Zero rows affected means the status predicate did not match.
	db.On("Exec", ctx, mock.AnythingOfType("string"), mock.Anything).Return(pgconn.NewCommandTag("UPDATE 0"), nil)

	err := svc.MarkRunning(ctx, "test-backup-1", time.Now())
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrInvalidTransition)
}

func TestFileBackupService_MarkFailed_RequiresMessage(t *testing.T) {
	db := &mockDB{}
	svc := NewFileBackupService(db, nil)

	err := svc.MarkFailed(context.Background(), "test-backup-1", "", time.Now())
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrMissingErrorMessage)
	db.AssertNotCalled(t, "Exec", mock.Anything, mock.Anything, mock.Anything)
}

func TestFileBackupService_MarkCompleted_Success(t *testing.T) {
	db := &mockDB{}
	svc := NewFileBackupService(db, nil)
	ctx := context.Background()

	db.On("Exec", ctx, mock.AnythingOfType("string"), mock.Anything).Return(pgconn.NewCommandTag("UPDATE 1"), nil)

	err := svc.MarkCompleted(ctx, "test-backup-1", "proj/bk_abc.tar.gz", 1048576, time.Now())
	require.NoError(t, err)
}

func TestFileBackupService_Delete_RejectsWithDependents(t *testing.T) {
	db := &mockDB{}
	svc := NewFileBackupService(db, nil)
	ctx := context.Background()

	row := &mockRow{scanFunc: func(dest ...any) error {
		*(dest[0].(*int)) = 2
		return nil
	}}
	db.On("QueryRow", ctx, mock.AnythingOfType("string"), mock.Anything).Return(row)

	err := svc.Delete(ctx, "test-backup-1")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrHasDependents)
	db.AssertNotCalled(t, "Exec", mock.Anything, mock.Anything, mock.Anything)
}

func TestFileBackupService_Delete_Leaf(t *testing.T) {
	db := &mockDB{}
	svc := NewFileBackupService(db, nil)
	ctx := context.Background()

	row := &mockRow{scanFunc: func(dest ...any) error {
		*(dest[0].(*int)) = 0
		return nil
	}}
	db.On("QueryRow", ctx, mock.AnythingOfType("string"), mock.Anything).Return(row)
	db.On("Exec", ctx, mock.AnythingOfType("string"), mock.Anything).Return(pgconn.NewCommandTag("DELETE 1"), nil)

	err := svc.Delete(ctx, "test-backup-1")
	require.NoError(t, err)
	db.AssertExpectations(t)
}

func TestFileBackupService_RestoreOrder(t *testing.T) {
	db := &mockDB{}
	svc := NewFileBackupService(db, nil)
	ctx := context.Background()

	fullID := "test-backup-full"
	inc1ID := "test-backup-inc1"
	inc2ID := "test-backup-inc2"

	row := &mockRow{scanFunc: fileBackupScanFunc(inc2ID, "test-project-1", model.BackupTypeIncremental, &inc1ID, model.StatusCompleted)}
	db.On("QueryRow", ctx, mock.AnythingOfType("string"), mock.Anything).Return(row)

	rows := newMockRows(
		fileBackupScanFunc(fullID, "test-project-1", model.BackupTypeFull, nil, model.StatusCompleted),
		fileBackupScanFunc(inc1ID, "test-project-1", model.BackupTypeIncremental, &fullID, model.StatusCompleted),
		fileBackupScanFunc(inc2ID, "test-project-1", model.BackupTypeIncremental, &inc1ID, model.StatusCompleted),
	)
	db.On("Query", ctx, mock.AnythingOfType("string"), mock.Anything).Return(rows, nil)

	order, err := svc.RestoreOrder(ctx, inc2ID)
	require.NoError(t, err)
	require.Len(t, order, 3)
	assert.Equal(t, fullID, order[0].ID, "restore must start from the full backup")
	assert.Equal(t, inc1ID, order[1].ID)
	assert.Equal(t, inc2ID, order[2].ID)
}

func TestFileBackupService_Depth(t *testing.T) {
	db := &mockDB{}
	svc := NewFileBackupService(db, nil)
	ctx := context.Background()

	fullID := "test-backup-full"
	incID := "test-backup-inc"

	row := &mockRow{scanFunc: fileBackupScanFunc(incID, "test-project-1", model.BackupTypeIncremental, &fullID, model.StatusCompleted)}
	db.On("QueryRow", ctx, mock.AnythingOfType("string"), mock.Anything).Return(row)

	rows := newMockRows(
		fileBackupScanFunc(fullID, "test-project-1", model.BackupTypeFull, nil, model.StatusCompleted),
		fileBackupScanFunc(incID, "test-project-1", model.BackupTypeIncremental, &fullID, model.StatusCompleted),
	)
	db.On("Query", ctx, mock.AnythingOfType("string"), mock.Anything).Return(rows, nil)

	depth, err := svc.Depth(ctx, incID)
	require.NoError(t, err)
	assert.Equal(t, 1, depth)
}

// fileBackupScanFunc fills a file backup row in column order.
func fileBackupScanFunc(id, projectID, backupType string, parentID *string, status string) func(dest ...any) error {
	return func(dest ...any) error {
		now := time.Now()
		size := int64(1048576)
		*(dest[0].(*string)) = id
		*(dest[1].(*string)) = projectID
		*(dest[2].(*string)) = backupType
		*(dest[3].(**string)) = parentID
		*(dest[4].(*string)) = "proj/" + id + ".tar.gz"
		*(dest[5].(**int64)) = &size
		*(dest[6].(*string)) = status
		*(dest[7].(**string)) = nil // error_message
		*(dest[8].(**time.Time)) = nil
		*(dest[9].(**time.Time)) = nil
		*(dest[10].(*time.Time)) = now
		*(dest[11].(*time.Time)) = now
		return nil
	}
}
