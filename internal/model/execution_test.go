package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarkRunning(t *testing.T) {
	now := time.Now()
	e := BackupExecution{Status: StatusPending}

	require.NoError(t, e.MarkRunning(now))
	assert.Equal(t, StatusRunning, e.Status)
	require.NotNil(t, e.StartedAt)
	assert.Equal(t, now, *e.StartedAt)
}

func TestMarkRunning_OnlyFromPending(t *testing.T) {
	for _, status := range []string{StatusRunning, StatusCompleted, StatusFailed} {
		e := BackupExecution{Status: status}
		assert.ErrorIs(t, e.MarkRunning(time.Now()), ErrInvalidTransition, "from %s", status)
	}
}

func TestMarkCompleted(t *testing.T) {
	start := time.Date(2025, 1, 15, 8, 0, 0, 0, time.UTC)
	end := start.Add(45 * time.Second)

	e := BackupExecution{Status: StatusPending}
	require.NoError(t, e.MarkRunning(start))
	require.NoError(t, e.MarkCompleted(end))

	assert.Equal(t, StatusCompleted, e.Status)
	require.NotNil(t, e.Duration())
	assert.Equal(t, int64(45), *e.Duration())
	assert.Equal(t, "45s", e.HumanDuration())
}

func TestMarkCompleted_TerminalStatesRejected(t *testing.T) {
	e := BackupExecution{Status: StatusCompleted}
	assert.ErrorIs(t, e.MarkCompleted(time.Now()), ErrInvalidTransition)

	e = BackupExecution{Status: StatusFailed}
	assert.ErrorIs(t, e.MarkCompleted(time.Now()), ErrInvalidTransition)
}

func TestMarkFailed(t *testing.T) {
	start := time.Now()
	e := BackupExecution{Status: StatusPending}
	require.NoError(t, e.MarkRunning(start))
	require.NoError(t, e.MarkFailed(start.Add(time.Minute), "disk full"))

	assert.Equal(t, StatusFailed, e.Status)
	require.NotNil(t, e.ErrorMessage)
	assert.Equal(t, "disk full", *e.ErrorMessage)
	assert.NotNil(t, e.CompletedAt)
}

func TestMarkFailed_RequiresMessage(t *testing.T) {
	e := BackupExecution{Status: StatusRunning}
	assert.ErrorIs(t, e.MarkFailed(time.Now(), ""), ErrMissingErrorMessage)
}

func TestDuration_NilUntilFinished(t *testing.T) {
	e := BackupExecution{Status: StatusPending}
	assert.Nil(t, e.Duration())

	require.NoError(t, e.MarkRunning(time.Now()))
	assert.Nil(t, e.Duration())
	assert.Equal(t, "", e.HumanDuration())
}

func TestDuration_NeverNegative(t *testing.T) {
	start := time.Now()
	end := start.Add(-10 * time.Second)
	e := BackupExecution{Status: StatusCompleted, StartedAt: &start, CompletedAt: &end}

	require.NotNil(t, e.Duration())
	assert.Equal(t, int64(0), *e.Duration())
}

func TestStatusPredicates(t *testing.T) {
	e := BackupExecution{Status: StatusPending}
	assert.True(t, e.IsPending())
	assert.False(t, e.IsRunning())

	e.Status = StatusRunning
	assert.True(t, e.IsRunning())

	e.Status = StatusCompleted
	assert.True(t, e.IsCompleted())
	assert.False(t, e.IsFailed())

	e.Status = StatusFailed
	assert.True(t, e.IsFailed())
	assert.False(t, e.IsCompleted())
}
