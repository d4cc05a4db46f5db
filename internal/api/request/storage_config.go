package request

type CreateStorageConfiguration struct {
	ProjectID   *string           `json:"project_id"`
	Name        string            `json:"name" validate:"required"`
	Driver      string            `json:"driver" validate:"required,oneof=s3 gcs ftp sftp"`
	Credentials map[string]string `json:"credentials" validate:"required"`
	Bucket      *string           `json:"bucket"`
	Region      *string           `json:"region"`
	Endpoint    *string           `json:"endpoint"`
	PathPrefix  *string           `json:"path_prefix"`
	IsDefault   bool              `json:"is_default"`
}

// UpdateStorageConfiguration replaces the mutable fields. Omitting
// credentials keeps the stored ones.
type UpdateStorageConfiguration struct {
	Name        string            `json:"name" validate:"required"`
	Credentials map[string]string `json:"credentials"`
	Bucket      *string           `json:"bucket"`
	Region      *string           `json:"region"`
	Endpoint    *string           `json:"endpoint"`
	PathPrefix  *string           `json:"path_prefix"`
}
