package model

import "time"

// File backup type constants.
const (
	BackupTypeFull        = "full"
	BackupTypeIncremental = "incremental"
)

// FileBackup is a backup of a project's file tree. Incremental backups
// reference a parent backup, forming a chain rooted at a full backup; the
// whole chain is required to restore an incremental record.
type FileBackup struct {
	ID             string  `json:"id"`
	ProjectID      string  `json:"project_id"`
	Type           string  `json:"type"`
	ParentBackupID *string `json:"parent_backup_id,omitempty"`
	StoragePath    string  `json:"storage_path,omitempty"`
	SizeBytes      *int64  `json:"size_bytes,omitempty"`
	BackupExecution
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (b *FileBackup) IsFull() bool        { return b.Type == BackupTypeFull }
func (b *FileBackup) IsIncremental() bool { return b.Type == BackupTypeIncremental }

// HumanSize formats SizeBytes for display.
func (b *FileBackup) HumanSize() string { return HumanSize(b.SizeBytes) }

// TypeColor returns the UI color for the backup type.
func (b *FileBackup) TypeColor() string {
	if b.Type == BackupTypeFull {
		return "purple"
	}
	return "blue"
}
