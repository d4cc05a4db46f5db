package model

import "time"

// Remote storage driver constants.
const (
	DriverS3   = "s3"
	DriverGCS  = "gcs"
	DriverFTP  = "ftp"
	DriverSFTP = "sftp"
)

// StorageConfiguration describes one remote storage target. Credentials are
// encrypted at rest with the application secret; the in-memory map holds the
// decrypted values and is populated only by the owning store. A nil ProjectID
// means the configuration is global.
type StorageConfiguration struct {
	ID        string  `json:"id"`
	ProjectID *string `json:"project_id,omitempty"`
	Name      string  `json:"name"`
	Driver    string  `json:"driver"`

	Credentials map[string]string `json:"-"`

	Bucket     *string `json:"bucket,omitempty"`
	Region     *string `json:"region,omitempty"`
	Endpoint   *string `json:"endpoint,omitempty"`
	PathPrefix *string `json:"path_prefix,omitempty"`

	IsDefault            bool    `json:"is_default"`
	Status               string  `json:"status"`
	EncryptionEnabled    bool    `json:"encryption_enabled"`
	PayloadEncryptionKey *string `json:"-"` // present iff EncryptionEnabled

	LastTestedAt *time.Time `json:"last_tested_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// DriverName returns the display name for the storage driver.
func (c *StorageConfiguration) DriverName() string {
	switch c.Driver {
	case DriverS3:
		return "Amazon S3"
	case DriverGCS:
		return "Google Cloud Storage"
	case DriverFTP:
		return "FTP"
	case DriverSFTP:
		return "SFTP"
	default:
		return c.Driver
	}
}

// DriverIcon returns the icon identifier for the storage driver.
func (c *StorageConfiguration) DriverIcon() string {
	switch c.Driver {
	case DriverS3:
		return "aws"
	case DriverGCS:
		return "google-cloud"
	default:
		return c.Driver
	}
}
