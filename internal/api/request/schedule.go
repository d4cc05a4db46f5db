package request

type CreateBackupSchedule struct {
	ServerID     *string `json:"server_id"`
	BackupKind   string  `json:"backup_kind" validate:"required,oneof=file database server"`
	DatabaseName *string `json:"database_name"`
	Frequency    string  `json:"frequency" validate:"required,oneof=hourly daily weekly monthly"`
	TimeOfDay    string  `json:"time_of_day"`
	DayOfWeek    int     `json:"day_of_week" validate:"min=0,max=6"`
	DayOfMonth   int     `json:"day_of_month" validate:"min=0,max=31"`

	RetentionDaily   int `json:"retention_daily" validate:"min=0"`
	RetentionWeekly  int `json:"retention_weekly" validate:"min=0"`
	RetentionMonthly int `json:"retention_monthly" validate:"min=0"`
}

// UpdateBackupSchedule replaces the recurrence and retention fields. The
// backup kind is fixed at creation.
type UpdateBackupSchedule struct {
	ServerID     *string `json:"server_id"`
	DatabaseName *string `json:"database_name"`
	Frequency    string  `json:"frequency" validate:"required,oneof=hourly daily weekly monthly"`
	TimeOfDay    string  `json:"time_of_day"`
	DayOfWeek    int     `json:"day_of_week" validate:"min=0,max=6"`
	DayOfMonth   int     `json:"day_of_month" validate:"min=0,max=31"`

	RetentionDaily   int `json:"retention_daily" validate:"min=0"`
	RetentionWeekly  int `json:"retention_weekly" validate:"min=0"`
	RetentionMonthly int `json:"retention_monthly" validate:"min=0"`
}
