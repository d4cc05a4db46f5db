// Package schedule computes recurrence times for backup policies. It owns no
// clock and never persists anything: callers supply the reference time and
// write back the results.
package schedule

import (
	"fmt"
	"time"

	"github.com/devflow/backhaul/internal/model"
)

// PolicyError describes a malformed recurrence policy. Policies failing
// validation are rejected at write time and never persisted.
type PolicyError struct {
	Field  string
	Reason string
}

func (e *PolicyError) Error() string {
	return fmt.Sprintf("invalid backup schedule: %s %s", e.Field, e.Reason)
}

// Validate checks the recurrence fields of a schedule.
func Validate(s *model.BackupSchedule) error {
	switch s.BackupKind {
	case model.BackupKindFile, model.BackupKindDatabase, model.BackupKindServer:
	default:
		return &PolicyError{Field: "backup_kind", Reason: fmt.Sprintf("unknown kind %q", s.BackupKind)}
	}

	switch s.Frequency {
	case model.FrequencyHourly:
		return nil
	case model.FrequencyDaily:
	case model.FrequencyWeekly:
		if s.DayOfWeek < 0 || s.DayOfWeek > 6 {
			return &PolicyError{Field: "day_of_week", Reason: "must be between 0 (Sunday) and 6"}
		}
	case model.FrequencyMonthly:
		if s.DayOfMonth < 1 || s.DayOfMonth > 31 {
			return &PolicyError{Field: "day_of_month", Reason: "must be between 1 and 31"}
		}
	default:
		return &PolicyError{Field: "frequency", Reason: fmt.Sprintf("unknown frequency %q", s.Frequency)}
	}

	if _, _, err := parseTimeOfDay(s.TimeOfDay); err != nil {
		return &PolicyError{Field: "time_of_day", Reason: err.Error()}
	}
	return nil
}

// ComputeNextRun returns the next due time strictly after ref.
//
// Hourly schedules run at the top of the next hour regardless of time_of_day.
// Monthly schedules clamp day_of_month to the last valid day of shorter
// months. The reference time is always the caller's "now" — reactivated
// schedules must not resume from a stale next_run_at.
func ComputeNextRun(s *model.BackupSchedule, ref time.Time) (time.Time, error) {
	if err := Validate(s); err != nil {
		return time.Time{}, err
	}

	switch s.Frequency {
	case model.FrequencyHourly:
		top := time.Date(ref.Year(), ref.Month(), ref.Day(), ref.Hour(), 0, 0, 0, ref.Location())
		return top.Add(time.Hour), nil

	case model.FrequencyDaily:
		hour, minute, _ := parseTimeOfDay(s.TimeOfDay)
		next := time.Date(ref.Year(), ref.Month(), ref.Day(), hour, minute, 0, 0, ref.Location())
		if !next.After(ref) {
			next = next.AddDate(0, 0, 1)
		}
		return next, nil

	case model.FrequencyWeekly:
		hour, minute, _ := parseTimeOfDay(s.TimeOfDay)
		days := (s.DayOfWeek - int(ref.Weekday()) + 7) % 7
		next := time.Date(ref.Year(), ref.Month(), ref.Day()+days, hour, minute, 0, 0, ref.Location())
		if !next.After(ref) {
			next = next.AddDate(0, 0, 7)
		}
		return next, nil

	case model.FrequencyMonthly:
		hour, minute, _ := parseTimeOfDay(s.TimeOfDay)
		next := monthlyOccurrence(ref.Year(), ref.Month(), s.DayOfMonth, hour, minute, ref.Location())
		if !next.After(ref) {
			year, month := ref.Year(), ref.Month()+1
			next = monthlyOccurrence(year, month, s.DayOfMonth, hour, minute, ref.Location())
		}
		return next, nil
	}

	// Unreachable: Validate rejects unknown frequencies.
	return time.Time{}, &PolicyError{Field: "frequency", Reason: "unknown"}
}

// Due reports whether the schedule should run at now. A nil NextRunAt on an
// active schedule counts as due so a missing bookkeeping row cannot silence a
// policy forever.
func Due(s *model.BackupSchedule, now time.Time) bool {
	if !s.IsActive {
		return false
	}
	return s.NextRunAt == nil || !s.NextRunAt.After(now)
}

// Advance records a run at now and computes the following due time. It must
// be called exactly once per executed run, under the caller's per-schedule
// single-flight guarantee; it is deliberately not idempotent.
func Advance(s *model.BackupSchedule, now time.Time) error {
	next, err := ComputeNextRun(s, now)
	if err != nil {
		return err
	}
	s.LastRunAt = &now
	s.NextRunAt = &next
	return nil
}

// monthlyOccurrence builds the target time in the given month, clamping the
// day to the month's length (e.g. day 31 in February).
func monthlyOccurrence(year int, month time.Month, day, hour, minute int, loc *time.Location) time.Time {
	// Day 0 of the next month is the last day of this month.
	lastDay := time.Date(year, month+1, 0, 0, 0, 0, 0, loc).Day()
	if day > lastDay {
		day = lastDay
	}
	return time.Date(year, month, day, hour, minute, 0, 0, loc)
}

func parseTimeOfDay(v string) (hour, minute int, err error) {
	if len(v) != 5 || v[2] != ':' {
		return 0, 0, fmt.Errorf("must be HH:MM, got %q", v)
	}
	if _, err := fmt.Sscanf(v, "%02d:%02d", &hour, &minute); err != nil {
		return 0, 0, fmt.Errorf("must be HH:MM, got %q", v)
	}
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("out of range: %q", v)
	}
	return hour, minute, nil
}
