package model

import "time"

// DatabaseBackup is a self-contained backup of a single database. VerifiedAt
// is set by an external integrity-check step after the dump is validated.
type DatabaseBackup struct {
	ID           string            `json:"id"`
	ProjectID    string            `json:"project_id"`
	ServerID     *string           `json:"server_id,omitempty"`
	DatabaseName string            `json:"database_name"`
	StoragePath  string            `json:"storage_path,omitempty"`
	SizeBytes    *int64            `json:"size_bytes,omitempty"`
	VerifiedAt   *time.Time        `json:"verified_at,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
	BackupExecution
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (b *DatabaseBackup) IsVerified() bool { return b.VerifiedAt != nil }

// HumanSize formats SizeBytes for display.
func (b *DatabaseBackup) HumanSize() string { return HumanSize(b.SizeBytes) }
