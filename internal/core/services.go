package core

import (
	temporalclient "go.temporal.io/sdk/client"
)

type Services struct {
	BackupSchedule *BackupScheduleService
	FileBackup     *FileBackupService
	DatabaseBackup *DatabaseBackupService
	ServerBackup   *ServerBackupService
	StorageConfig  *StorageConfigService
	Dashboard      *DashboardService
}

func NewServices(db DB, tc temporalclient.Client, secretsKey []byte) *Services {
	return &Services{
		BackupSchedule: NewBackupScheduleService(db),
		FileBackup:     NewFileBackupService(db, tc),
		DatabaseBackup: NewDatabaseBackupService(db, tc),
		ServerBackup:   NewServerBackupService(db, tc),
		StorageConfig:  NewStorageConfigService(db, secretsKey, nil),
		Dashboard:      NewDashboardService(db),
	}
}
