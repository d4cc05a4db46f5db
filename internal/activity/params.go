package activity

import "time"

// BackupRef identifies a backup row across the three backup kinds.
type BackupRef struct {
	Kind string // model.BackupKindFile, Database or Server
	ID   string
}

// CompleteBackupParams holds the parameters for CompleteBackup.
type CompleteBackupParams struct {
	Kind        string
	ID          string
	StoragePath string
	SizeBytes   int64
}

// FailBackupParams holds the parameters for FailBackup.
type FailBackupParams struct {
	Kind    string
	ID      string
	Message string
}

// BackupContext describes everything a backup workflow needs about its
// record: ownership, the storage target and where agent activities run.
type BackupContext struct {
	Kind            string
	ID              string
	ProjectID       string
	ServerID        *string
	DatabaseName    string
	SnapshotType    string
	ParentBackupID  *string
	// IncrementalSince is the parent's completion time for incremental file
	// backups; the archive only includes files modified after it.
	IncrementalSince *time.Time
	StorageConfigID  string
	AgentTaskQueue   string
	// RemoteName is the backup's remote object name, minted once when the
	// context is resolved so every retry uploads to the same key.
	RemoteName string
}

// ArtifactResult is returned by the agent activities that produce backup
// artifacts (archives, dumps, snapshots).
type ArtifactResult struct {
	LocalPath string
	SizeBytes int64
}

// UploadParams holds the parameters for Upload.
type UploadParams struct {
	ConfigID   string
	LocalPath  string
	RemotePath string
}

// UploadResult reports where the artifact landed.
type UploadResult struct {
	StoragePath string
	SizeBytes   int64
}

// AdvanceScheduleParams holds the parameters for AdvanceSchedule.
type AdvanceScheduleParams struct {
	ID  string
	Now time.Time
}

// ScheduledBackupResult is returned by CreateScheduledBackup and tells the
// schedule run which workflow to execute for the new record.
type ScheduledBackupResult struct {
	BackupID     string
	WorkflowName string
	ProjectID    string
	// Retention policy of the owning schedule, applied after a file backup.
	RetentionDaily   int
	RetentionWeekly  int
	RetentionMonthly int
}

// ApplyRetentionParams holds the parameters for ApplyRetention.
type ApplyRetentionParams struct {
	ProjectID string
	Daily     int
	Weekly    int
	Monthly   int
}
