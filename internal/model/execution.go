package model

import (
	"errors"
	"time"
)

// ErrInvalidTransition is returned when a backup status change does not
// follow pending -> running -> {completed|failed}.
var ErrInvalidTransition = errors.New("invalid backup status transition")

// ErrMissingErrorMessage is returned when a backup is failed without a reason.
var ErrMissingErrorMessage = errors.New("error message required to fail a backup")

// BackupExecution carries the status lifecycle shared by all backup kinds.
// It only mutates its own fields; persistence is the caller's responsibility.
type BackupExecution struct {
	Status       string     `json:"status"`
	ErrorMessage *string    `json:"error_message,omitempty"`
	StartedAt    *time.Time `json:"started_at,omitempty"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
}

// MarkRunning transitions the execution from pending to running.
func (e *BackupExecution) MarkRunning(now time.Time) error {
	if e.Status != StatusPending {
		return ErrInvalidTransition
	}
	e.Status = StatusRunning
	e.StartedAt = &now
	return nil
}

// MarkCompleted transitions the execution from running to completed.
// completed and failed are terminal.
func (e *BackupExecution) MarkCompleted(now time.Time) error {
	if e.Status != StatusRunning {
		return ErrInvalidTransition
	}
	e.Status = StatusCompleted
	e.CompletedAt = &now
	return nil
}

// MarkFailed transitions the execution from running to failed, recording the
// failure reason. Cancellation is recorded the same way as any other failure.
func (e *BackupExecution) MarkFailed(now time.Time, message string) error {
	if message == "" {
		return ErrMissingErrorMessage
	}
	if e.Status != StatusRunning {
		return ErrInvalidTransition
	}
	e.Status = StatusFailed
	e.CompletedAt = &now
	e.ErrorMessage = &message
	return nil
}

// Duration returns the run duration in whole seconds, or nil when the
// execution has not both started and finished. CompletedAt is always the
// later timestamp, so the result is never negative.
func (e *BackupExecution) Duration() *int64 {
	if e.StartedAt == nil || e.CompletedAt == nil {
		return nil
	}
	secs := int64(e.CompletedAt.Sub(*e.StartedAt) / time.Second)
	if secs < 0 {
		secs = 0
	}
	return &secs
}

// HumanDuration formats Duration for display, e.g. "45s", "2m 30s",
// "2h 15m 30s". Returns an empty string when the duration is unknown.
func (e *BackupExecution) HumanDuration() string {
	d := e.Duration()
	if d == nil {
		return ""
	}
	return HumanDuration(*d)
}

func (e *BackupExecution) IsPending() bool   { return e.Status == StatusPending }
func (e *BackupExecution) IsRunning() bool   { return e.Status == StatusRunning }
func (e *BackupExecution) IsCompleted() bool { return e.Status == StatusCompleted }
func (e *BackupExecution) IsFailed() bool    { return e.Status == StatusFailed }
