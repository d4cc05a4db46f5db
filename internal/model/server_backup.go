package model

import "time"

// Server backup snapshot types.
const (
	SnapshotTypeSnapshot = "snapshot"
	SnapshotTypeImage    = "image"
)

// ServerBackup is a self-contained backup of a whole server (image or
// snapshot). Unlike file backups it never participates in a chain.
type ServerBackup struct {
	ID           string            `json:"id"`
	ProjectID    string            `json:"project_id"`
	ServerID     string            `json:"server_id"`
	SnapshotType string            `json:"snapshot_type"` // e.g. "image", "snapshot"
	StoragePath  string            `json:"storage_path,omitempty"`
	SizeBytes    *int64            `json:"size_bytes,omitempty"`
	VerifiedAt   *time.Time        `json:"verified_at,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
	BackupExecution
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (b *ServerBackup) IsVerified() bool { return b.VerifiedAt != nil }

// HumanSize formats SizeBytes for display.
func (b *ServerBackup) HumanSize() string { return HumanSize(b.SizeBytes) }
