package model

import (
	"fmt"
	"time"
)

// Schedule frequency constants.
const (
	FrequencyHourly  = "hourly"
	FrequencyDaily   = "daily"
	FrequencyWeekly  = "weekly"
	FrequencyMonthly = "monthly"
)

// Backup kinds a schedule can drive.
const (
	BackupKindFile     = "file"
	BackupKindDatabase = "database"
	BackupKindServer   = "server"
)

// BackupSchedule is a recurrence policy for automated backups of a project
// and/or server. NextRunAt is always set while the schedule is active; it is
// recomputed from the wall clock on every advance, never resumed from a stale
// value.
type BackupSchedule struct {
	ID           string  `json:"id"`
	ProjectID    string  `json:"project_id"`
	ServerID     *string `json:"server_id,omitempty"`
	BackupKind   string  `json:"backup_kind"`
	DatabaseName *string `json:"database_name,omitempty"` // set for database-kind schedules
	Frequency    string  `json:"frequency"`
	TimeOfDay    string  `json:"time_of_day"` // "HH:MM", 24-hour
	DayOfWeek    int     `json:"day_of_week"` // 0 = Sunday, meaningful for weekly
	DayOfMonth   int     `json:"day_of_month"`

	RetentionDaily   int `json:"retention_daily"`
	RetentionWeekly  int `json:"retention_weekly"`
	RetentionMonthly int `json:"retention_monthly"`

	IsActive  bool       `json:"is_active"`
	LastRunAt *time.Time `json:"last_run_at,omitempty"`
	NextRunAt *time.Time `json:"next_run_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// FrequencyLabel returns a display string for the recurrence policy.
func (s *BackupSchedule) FrequencyLabel() string {
	switch s.Frequency {
	case FrequencyHourly:
		return "Every Hour"
	case FrequencyDaily:
		return fmt.Sprintf("Daily at %s", s.TimeOfDay)
	case FrequencyWeekly:
		return fmt.Sprintf("Weekly on %s at %s", time.Weekday(s.DayOfWeek), s.TimeOfDay)
	case FrequencyMonthly:
		return fmt.Sprintf("Monthly on day %d at %s", s.DayOfMonth, s.TimeOfDay)
	default:
		return s.Frequency
	}
}
