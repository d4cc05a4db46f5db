package core

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/devflow/backhaul/internal/crypto"
	"github.com/devflow/backhaul/internal/model"
	"github.com/devflow/backhaul/internal/storage"
)

const storageConfigColumns = `id, project_id, name, driver, credentials, bucket, region, endpoint, path_prefix,
	is_default, status, encryption_enabled, payload_encryption_key, last_tested_at, created_at, updated_at`

// ConnectionProbe checks that a resolved connection can reach its remote.
type ConnectionProbe func(ctx context.Context, conn *storage.Connection) error

// ErrProbeFailed wraps a connection test that ran and failed, telling it
// apart from a configuration that could not be looked up at all.
var ErrProbeFailed = errors.New("storage connection test failed")

// StorageConfigService manages storage provider configurations. Credentials
// are sealed with the application secret before they touch a column and
// unsealed only on single-record reads; list responses never carry them.
type StorageConfigService struct {
	db         DB
	secretsKey []byte
	probe      ConnectionProbe
}

func NewStorageConfigService(db DB, secretsKey []byte, probe ConnectionProbe) *StorageConfigService {
	if probe == nil {
		probe = storage.Probe
	}
	return &StorageConfigService{db: db, secretsKey: secretsKey, probe: probe}
}

func (s *StorageConfigService) Create(ctx context.Context, cfg *model.StorageConfiguration) error {
	sealed, err := s.sealCredentials(cfg.Credentials)
	if err != nil {
		return err
	}

	cfg.Status = model.StorageStatusInactive
	makeDefault := cfg.IsDefault
	cfg.IsDefault = false

	_, err = s.db.Exec(ctx,
		`INSERT INTO storage_configurations (id, project_id, name, driver, credentials, bucket, region, endpoint, path_prefix,
		 is_default, status, encryption_enabled, payload_encryption_key, last_tested_at, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`,
		cfg.ID, cfg.ProjectID, cfg.Name, cfg.Driver, sealed,
		cfg.Bucket, cfg.Region, cfg.Endpoint, cfg.PathPrefix,
		cfg.IsDefault, cfg.Status, cfg.EncryptionEnabled, nil,
		cfg.LastTestedAt, cfg.CreatedAt, cfg.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert storage configuration: %w", err)
	}

	if makeDefault {
		if err := s.SetDefault(ctx, cfg.ID); err != nil {
			return err
		}
		cfg.IsDefault = true
	}
	return nil
}

// Update replaces the mutable fields. A nil credential map keeps the stored
// credentials; a non-nil map replaces them wholesale.
func (s *StorageConfigService) Update(ctx context.Context, cfg *model.StorageConfiguration) error {
	if cfg.Credentials != nil {
		sealed, err := s.sealCredentials(cfg.Credentials)
		if err != nil {
			return err
		}
		_, err = s.db.Exec(ctx,
			"UPDATE storage_configurations SET credentials = $1, updated_at = now() WHERE id = $2",
			sealed, cfg.ID)
		if err != nil {
			return fmt.Errorf("update storage configuration credentials: %w", err)
		}
	}

	_, err := s.db.Exec(ctx,
		`UPDATE storage_configurations
		 SET name = $1, bucket = $2, region = $3, endpoint = $4, path_prefix = $5, encryption_enabled = $6, updated_at = now()
		 WHERE id = $7`,
		cfg.Name, cfg.Bucket, cfg.Region, cfg.Endpoint, cfg.PathPrefix, cfg.EncryptionEnabled, cfg.ID)
	if err != nil {
		return fmt.Errorf("update storage configuration %s: %w", cfg.ID, err)
	}
	return nil
}

// GetByID returns the configuration with decrypted credentials.
func (s *StorageConfigService) GetByID(ctx context.Context, id string) (*model.StorageConfiguration, error) {
	row := s.db.QueryRow(ctx,
		`SELECT `+storageConfigColumns+` FROM storage_configurations WHERE id = $1`, id)

	cfg, sealed, err := scanStorageConfig(row)
	if err != nil {
		return nil, fmt.Errorf("get storage configuration %s: %w", id, err)
	}

	if sealed != nil {
		cfg.Credentials, err = s.openCredentials(*sealed)
		if err != nil {
			return nil, fmt.Errorf("decrypt credentials for %s: %w", id, err)
		}
	}
	return cfg, nil
}

// ListByScope returns a project's configurations, or the global ones when
// projectID is nil. Credentials stay sealed and are not returned.
func (s *StorageConfigService) ListByScope(ctx context.Context, projectID *string, limit int, cursor string) ([]model.StorageConfiguration, bool, error) {
	query := `SELECT ` + storageConfigColumns + ` FROM storage_configurations WHERE project_id IS NOT DISTINCT FROM $1`
	args := []any{projectID}
	argIdx := 2

	if cursor != "" {
		query += fmt.Sprintf(` AND id > $%d`, argIdx)
		args = append(args, cursor)
		argIdx++
	}

	query += ` ORDER BY id`
	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, limit+1)

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, false, fmt.Errorf("list storage configurations: %w", err)
	}
	defer rows.Close()

	var configs []model.StorageConfiguration
	for rows.Next() {
		cfg, _, err := scanStorageConfig(rows)
		if err != nil {
			return nil, false, fmt.Errorf("scan storage configuration: %w", err)
		}
		configs = append(configs, *cfg)
	}
	if err := rows.Err(); err != nil {
		return nil, false, fmt.Errorf("iterate storage configurations: %w", err)
	}

	hasMore := len(configs) > limit
	if hasMore {
		configs = configs[:limit]
	}
	return configs, hasMore, nil
}

// SetDefault makes the configuration the default for its scope in a single
// statement, so no two configurations in a scope are ever both default. The
// unique partial index on (project_id) WHERE is_default backs this up.
func (s *StorageConfigService) SetDefault(ctx context.Context, id string) error {
	var projectID *string
	err := s.db.QueryRow(ctx,
		"SELECT project_id FROM storage_configurations WHERE id = $1", id).Scan(&projectID)
	if err != nil {
		return fmt.Errorf("get storage configuration scope: %w", err)
	}

	_, err = s.db.Exec(ctx,
		`UPDATE storage_configurations SET is_default = (id = $1), updated_at = now()
		 WHERE project_id IS NOT DISTINCT FROM $2`,
		id, projectID)
	if err != nil {
		return fmt.Errorf("set default storage configuration %s: %w", id, err)
	}
	return nil
}

// TestConnection resolves the configuration and probes the remote. The
// configuration passes through the testing status and lands on active or
// inactive with last_tested_at stamped either way. The probe error, if any,
// is returned so the caller can surface it.
func (s *StorageConfigService) TestConnection(ctx context.Context, id string) error {
	cfg, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if _, err := s.db.Exec(ctx,
		"UPDATE storage_configurations SET status = $1, updated_at = now() WHERE id = $2",
		model.StorageStatusTesting, id); err != nil {
		return fmt.Errorf("mark storage configuration %s testing: %w", id, err)
	}

	probeErr := func() error {
		conn, err := storage.ResolveConnection(cfg)
		if err != nil {
			return err
		}
		return s.probe(ctx, conn)
	}()

	status := model.StorageStatusActive
	if probeErr != nil {
		status = model.StorageStatusInactive
	}

	if _, err := s.db.Exec(ctx,
		"UPDATE storage_configurations SET status = $1, last_tested_at = $2, updated_at = now() WHERE id = $3",
		status, time.Now().UTC(), id); err != nil {
		return fmt.Errorf("record test outcome for %s: %w", id, err)
	}
	if probeErr != nil {
		return fmt.Errorf("%w: %w", ErrProbeFailed, probeErr)
	}
	return nil
}

// ResolveConnection builds the decrypted connection descriptor for a
// configuration.
func (s *StorageConfigService) ResolveConnection(ctx context.Context, id string) (*storage.Connection, error) {
	cfg, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return storage.ResolveConnection(cfg)
}

// DefaultForScope returns the default configuration for a project scope,
// falling back to the global default when the project has none.
func (s *StorageConfigService) DefaultForScope(ctx context.Context, projectID *string) (*model.StorageConfiguration, error) {
	var id string
	err := s.db.QueryRow(ctx,
		`SELECT id FROM storage_configurations
		 WHERE is_default = true AND (project_id IS NOT DISTINCT FROM $1 OR project_id IS NULL)
		 ORDER BY project_id NULLS LAST LIMIT 1`, projectID).Scan(&id)
	if err != nil {
		return nil, fmt.Errorf("get default storage configuration: %w", err)
	}
	return s.GetByID(ctx, id)
}

// GenerateEncryptionKey mints a payload-encryption key for the
// configuration, stores it sealed and enables payload encryption. The
// plaintext key is returned exactly once; it is not recoverable afterwards.
func (s *StorageConfigService) GenerateEncryptionKey(ctx context.Context, id string) (string, error) {
	key, err := storage.GenerateEncryptionKey()
	if err != nil {
		return "", fmt.Errorf("generate encryption key: %w", err)
	}

	sealed, err := crypto.Encrypt([]byte(key), s.secretsKey)
	if err != nil {
		return "", fmt.Errorf("seal encryption key: %w", err)
	}

	_, err = s.db.Exec(ctx,
		`UPDATE storage_configurations SET payload_encryption_key = $1, encryption_enabled = true, updated_at = now()
		 WHERE id = $2`,
		sealed, id)
	if err != nil {
		return "", fmt.Errorf("store encryption key for %s: %w", id, err)
	}
	return key, nil
}

// PayloadKey returns the configuration's decrypted payload-encryption key,
// or nil when payload encryption is not enabled.
func (s *StorageConfigService) PayloadKey(ctx context.Context, id string) ([]byte, error) {
	var enabled bool
	var sealed *string
	err := s.db.QueryRow(ctx,
		"SELECT encryption_enabled, payload_encryption_key FROM storage_configurations WHERE id = $1", id).
		Scan(&enabled, &sealed)
	if err != nil {
		return nil, fmt.Errorf("get payload key for %s: %w", id, err)
	}
	if !enabled || sealed == nil {
		return nil, nil
	}

	key, err := crypto.Decrypt(*sealed, s.secretsKey)
	if err != nil {
		return nil, fmt.Errorf("unseal payload key for %s: %w", id, err)
	}
	return key, nil
}

func (s *StorageConfigService) Delete(ctx context.Context, id string) error {
	_, err := s.db.Exec(ctx, "DELETE FROM storage_configurations WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete storage configuration %s: %w", id, err)
	}
	return nil
}

func (s *StorageConfigService) sealCredentials(creds map[string]string) (*string, error) {
	if creds == nil {
		return nil, nil
	}
	plain, err := json.Marshal(creds)
	if err != nil {
		return nil, fmt.Errorf("marshal credentials: %w", err)
	}
	sealed, err := crypto.Encrypt(plain, s.secretsKey)
	if err != nil {
		return nil, fmt.Errorf("encrypt credentials: %w", err)
	}
	return &sealed, nil
}

func (s *StorageConfigService) openCredentials(sealed string) (map[string]string, error) {
	plain, err := crypto.Decrypt(sealed, s.secretsKey)
	if err != nil {
		return nil, err
	}
	var creds map[string]string
	if err := json.Unmarshal(plain, &creds); err != nil {
		return nil, fmt.Errorf("unmarshal credentials: %w", err)
	}
	return creds, nil
}

// scanStorageConfig scans a row, returning the sealed credential blob
// separately so callers decide whether to unseal it.
func scanStorageConfig(row scanner) (*model.StorageConfiguration, *string, error) {
	var cfg model.StorageConfiguration
	var sealed, payloadKey *string
	err := row.Scan(&cfg.ID, &cfg.ProjectID, &cfg.Name, &cfg.Driver, &sealed,
		&cfg.Bucket, &cfg.Region, &cfg.Endpoint, &cfg.PathPrefix,
		&cfg.IsDefault, &cfg.Status, &cfg.EncryptionEnabled, &payloadKey,
		&cfg.LastTestedAt, &cfg.CreatedAt, &cfg.UpdatedAt)
	if err != nil {
		return nil, nil, err
	}
	cfg.PayloadEncryptionKey = payloadKey
	return &cfg, sealed, nil
}
