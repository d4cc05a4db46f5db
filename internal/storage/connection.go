// Package storage turns heterogeneous remote-storage provider credentials
// into uniform connection descriptors. It owns the per-driver required-field
// contract; the transports that consume a descriptor live with the external
// executor (only S3 gets a client constructor here).
package storage

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/devflow/backhaul/internal/crypto"
	"github.com/devflow/backhaul/internal/model"
)

// ErrNotConfigured is returned when a configuration is missing fields its
// driver requires. Resolving such a configuration fails fast rather than
// returning a partial descriptor.
var ErrNotConfigured = errors.New("storage configuration incomplete")

// ErrNoTransport is returned when nothing in the process can move bytes for
// a configuration's driver. A backup routed at such a driver fails instead
// of recording a remote path nothing wrote.
var ErrNoTransport = errors.New("no transport for storage driver")

// Connection is the driver-shaped, decrypted descriptor a transport needs to
// open a session. Exactly one of the driver fields is set, matching Driver.
type Connection struct {
	Driver string
	S3     *S3Connection
	GCS    *GCSConnection
	FTP    *FTPConnection
	SFTP   *SFTPConnection
}

// S3Connection describes an S3 or S3-compatible endpoint.
type S3Connection struct {
	Key      string
	Secret   string
	Bucket   string
	Region   string
	Endpoint string // optional, for S3-compatible providers
}

// GCSConnection describes a Google Cloud Storage bucket.
type GCSConnection struct {
	KeyFile map[string]any // parsed service-account JSON
	Bucket  string
}

// FTPConnection describes an FTP endpoint.
type FTPConnection struct {
	Host     string
	Username string
	Password string
	Port     int
	Path     string
}

// SFTPConnection describes an SFTP endpoint. Either PrivateKey or Password
// must be present.
type SFTPConnection struct {
	Host       string
	Username   string
	PrivateKey string
	Password   string
	Port       int
	Path       string
}

// ResolveConnection builds the connection descriptor for a configuration.
// The credential map must already be decrypted by the owning store; this is
// the only place plaintext credentials are shaped for a transport.
func ResolveConnection(cfg *model.StorageConfiguration) (*Connection, error) {
	if missing := MissingFields(cfg); len(missing) > 0 {
		return nil, fmt.Errorf("driver %s missing %s: %w", cfg.Driver, strings.Join(missing, ", "), ErrNotConfigured)
	}

	conn := &Connection{Driver: cfg.Driver}
	switch cfg.Driver {
	case model.DriverS3:
		conn.S3 = &S3Connection{
			Key:      cfg.Credentials["access_key_id"],
			Secret:   cfg.Credentials["secret_access_key"],
			Bucket:   deref(cfg.Bucket),
			Region:   deref(cfg.Region),
			Endpoint: deref(cfg.Endpoint),
		}
	case model.DriverGCS:
		var keyFile map[string]any
		if err := json.Unmarshal([]byte(cfg.Credentials["service_account_json"]), &keyFile); err != nil {
			return nil, fmt.Errorf("driver gcs service_account_json is not valid JSON: %w", ErrNotConfigured)
		}
		conn.GCS = &GCSConnection{
			KeyFile: keyFile,
			Bucket:  deref(cfg.Bucket),
		}
	case model.DriverFTP:
		conn.FTP = &FTPConnection{
			Host:     cfg.Credentials["host"],
			Username: cfg.Credentials["username"],
			Password: cfg.Credentials["password"],
			Port:     portOrDefault(cfg.Credentials["port"], 21),
			Path:     deref(cfg.PathPrefix),
		}
	case model.DriverSFTP:
		conn.SFTP = &SFTPConnection{
			Host:       cfg.Credentials["host"],
			Username:   cfg.Credentials["username"],
			PrivateKey: cfg.Credentials["private_key"],
			Password:   cfg.Credentials["password"],
			Port:       portOrDefault(cfg.Credentials["port"], 22),
			Path:       deref(cfg.PathPrefix),
		}
	default:
		return nil, fmt.Errorf("unknown driver %q: %w", cfg.Driver, ErrNotConfigured)
	}
	return conn, nil
}

// IsConfigured reports whether every field the configuration's driver
// requires is present and non-empty.
func IsConfigured(cfg *model.StorageConfiguration) bool {
	return len(MissingFields(cfg)) == 0
}

// MissingFields lists the driver-required fields that are absent or empty.
func MissingFields(cfg *model.StorageConfiguration) []string {
	var missing []string
	cred := func(key string) {
		if cfg.Credentials[key] == "" {
			missing = append(missing, key)
		}
	}

	switch cfg.Driver {
	case model.DriverS3:
		cred("access_key_id")
		cred("secret_access_key")
		if deref(cfg.Bucket) == "" {
			missing = append(missing, "bucket")
		}
	case model.DriverGCS:
		cred("service_account_json")
		if deref(cfg.Bucket) == "" {
			missing = append(missing, "bucket")
		}
	case model.DriverFTP:
		cred("host")
		cred("username")
		cred("password")
	case model.DriverSFTP:
		cred("host")
		cred("username")
		if cfg.Credentials["private_key"] == "" && cfg.Credentials["password"] == "" {
			missing = append(missing, "private_key or password")
		}
	default:
		missing = append(missing, "driver")
	}
	return missing
}

// GenerateEncryptionKey returns a fresh random payload-encryption key,
// base64-encoded for the operator to store. The key is never derived or
// recoverable: losing it permanently forecloses decrypting payloads sealed
// with it, so it is shown exactly once.
func GenerateEncryptionKey() (string, error) {
	key, err := crypto.GenerateKey()
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(key), nil
}

// RemotePath joins the configuration's path prefix with a remote object
// path, normalizing slashes.
func RemotePath(cfg *model.StorageConfiguration, remote string) string {
	prefix := strings.Trim(deref(cfg.PathPrefix), "/")
	remote = strings.TrimLeft(remote, "/")
	if prefix == "" {
		return remote
	}
	return prefix + "/" + remote
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func portOrDefault(v string, def int) int {
	if v == "" {
		return def
	}
	port, err := strconv.Atoi(v)
	if err != nil || port <= 0 {
		return def
	}
	return port
}
