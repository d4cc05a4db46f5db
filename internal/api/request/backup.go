package request

type CreateFileBackup struct {
	Type           string  `json:"type" validate:"required,oneof=full incremental"`
	ParentBackupID *string `json:"parent_backup_id"`
}

type CreateDatabaseBackup struct {
	ServerID     *string `json:"server_id"`
	DatabaseName string  `json:"database_name" validate:"required"`
}

type CreateServerBackup struct {
	ServerID     string `json:"server_id" validate:"required"`
	SnapshotType string `json:"snapshot_type" validate:"omitempty,oneof=snapshot image"`
}
