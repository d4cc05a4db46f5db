package core

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/devflow/backhaul/internal/crypto"
	"github.com/devflow/backhaul/internal/model"
	"github.com/devflow/backhaul/internal/storage"
)

func testSecretsKey(t *testing.T) []byte {
	t.Helper()
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	return key
}

func testStorageConfig() *model.StorageConfiguration {
	bucket := "test-bucket"
	now := time.Now()
	return &model.StorageConfiguration{
		ID:     "test-config-1",
		Name:   "Primary S3",
		Driver: model.DriverS3,
		Credentials: map[string]string{
			"access_key_id":     "test-key",
			"secret_access_key": "super-secret",
		},
		Bucket:    &bucket,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestStorageConfigService_Create_EncryptsCredentials(t *testing.T) {
	db := &mockDB{}
	key := testSecretsKey(t)
	svc := NewStorageConfigService(db, key, nil)
	ctx := context.Background()

	var insertArgs []any
	db.On("Exec", ctx, mock.AnythingOfType("string"), mock.Anything).
		Run(func(args mock.Arguments) { insertArgs = args.Get(2).([]any) }).
		Return(pgconn.CommandTag{}, nil)

	cfg := testStorageConfig()
	err := svc.Create(ctx, cfg)
	require.NoError(t, err)

	sealed := insertArgs[4].(*string)
	require.NotNil(t, sealed)
	assert.NotContains(t, *sealed, "super-secret", "credentials must not be stored in plaintext")

	// The sealed blob round-trips with the application secret.
	plain, err := crypto.Decrypt(*sealed, key)
	require.NoError(t, err)
	var creds map[string]string
	require.NoError(t, json.Unmarshal(plain, &creds))
	assert.Equal(t, "super-secret", creds["secret_access_key"])
}

func TestStorageConfigService_Create_DefaultTogglesScope(t *testing.T) {
	db := &mockDB{}
	svc := NewStorageConfigService(db, testSecretsKey(t), nil)
	ctx := context.Background()

	db.On("Exec", ctx, mock.MatchedBy(func(sql string) bool {
		return strings.Contains(sql, "INSERT INTO storage_configurations")
	}), mock.Anything).Return(pgconn.CommandTag{}, nil)

	scopeRow := &mockRow{scanFunc: func(dest ...any) error {
		*(dest[0].(**string)) = nil // global scope
		return nil
	}}
	db.On("QueryRow", ctx, mock.AnythingOfType("string"), mock.Anything).Return(scopeRow)
	db.On("Exec", ctx, mock.MatchedBy(func(sql string) bool {
		return strings.Contains(sql, "is_default = (id = $1)")
	}), mock.Anything).Return(pgconn.NewCommandTag("UPDATE 3"), nil)

	cfg := testStorageConfig()
	cfg.IsDefault = true
	err := svc.Create(ctx, cfg)
	require.NoError(t, err)
	assert.True(t, cfg.IsDefault)
	db.AssertExpectations(t)
}

func TestStorageConfigService_GetByID_DecryptsCredentials(t *testing.T) {
	db := &mockDB{}
	key := testSecretsKey(t)
	svc := NewStorageConfigService(db, key, nil)
	ctx := context.Background()

	sealed := sealTestCredentials(t, key, map[string]string{"access_key_id": "test-key"})
	row := &mockRow{scanFunc: storageConfigScanFunc("test-config-1", model.DriverS3, &sealed, false)}
	db.On("QueryRow", ctx, mock.AnythingOfType("string"), mock.Anything).Return(row)

	cfg, err := svc.GetByID(ctx, "test-config-1")
	require.NoError(t, err)
	assert.Equal(t, "test-key", cfg.Credentials["access_key_id"])
}

func TestStorageConfigService_ListByScope_OmitsCredentials(t *testing.T) {
	db := &mockDB{}
	key := testSecretsKey(t)
	svc := NewStorageConfigService(db, key, nil)
	ctx := context.Background()

	sealed := sealTestCredentials(t, key, map[string]string{"access_key_id": "test-key"})
	rows := newMockRows(
		storageConfigScanFunc("test-config-1", model.DriverS3, &sealed, true),
		storageConfigScanFunc("test-config-2", model.DriverFTP, &sealed, false),
	)
	db.On("Query", ctx, mock.AnythingOfType("string"), mock.Anything).Return(rows, nil)

	configs, hasMore, err := svc.ListByScope(ctx, nil, 10, "")
	require.NoError(t, err)
	assert.False(t, hasMore)
	require.Len(t, configs, 2)
	for _, cfg := range configs {
		assert.Nil(t, cfg.Credentials, "list responses must not carry credentials")
	}
}

func TestStorageConfigService_TestConnection_RecordsOutcome(t *testing.T) {
	tests := []struct {
		name       string
		probeErr   error
		wantStatus string
	}{
		{"probe passes", nil, model.StorageStatusActive},
		{"probe fails", errors.New("connection refused"), model.StorageStatusInactive},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := &mockDB{}
			key := testSecretsKey(t)
			probe := func(ctx context.Context, conn *storage.Connection) error { return tt.probeErr }
			svc := NewStorageConfigService(db, key, probe)
			ctx := context.Background()

			sealed := sealTestCredentials(t, key, map[string]string{
				"access_key_id":     "test-key",
				"secret_access_key": "test-secret",
			})
			row := &mockRow{scanFunc: storageConfigScanFunc("test-config-1", model.DriverS3, &sealed, false)}
			db.On("QueryRow", ctx, mock.AnythingOfType("string"), mock.Anything).Return(row)

			db.On("Exec", ctx, mock.MatchedBy(func(sql string) bool {
				return strings.Contains(sql, "SET status = $1, updated_at")
			}), mock.MatchedBy(func(args []any) bool {
				return args[0] == model.StorageStatusTesting
			})).Return(pgconn.NewCommandTag("UPDATE 1"), nil)

			var outcome string
			db.On("Exec", ctx, mock.MatchedBy(func(sql string) bool {
				return strings.Contains(sql, "last_tested_at")
			}), mock.Anything).
				Run(func(args mock.Arguments) { outcome = args.Get(2).([]any)[0].(string) }).
				Return(pgconn.NewCommandTag("UPDATE 1"), nil)

			err := svc.TestConnection(ctx, "test-config-1")
			if tt.probeErr != nil {
				assert.ErrorIs(t, err, ErrProbeFailed)
				assert.Contains(t, err.Error(), tt.probeErr.Error())
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.wantStatus, outcome)
		})
	}
}

func TestStorageConfigService_TestConnection_IncompleteConfig(t *testing.T) {
	db := &mockDB{}
	key := testSecretsKey(t)
	svc := NewStorageConfigService(db, key, func(ctx context.Context, conn *storage.Connection) error {
		t.Fatal("probe must not run for an unresolvable configuration")
		return nil
	})
	ctx := context.Background()

	// Missing secret_access_key: the descriptor cannot be resolved.
	sealed := sealTestCredentials(t, key, map[string]string{"access_key_id": "test-key"})
	row := &mockRow{scanFunc: storageConfigScanFunc("test-config-1", model.DriverS3, &sealed, false)}
	db.On("QueryRow", ctx, mock.AnythingOfType("string"), mock.Anything).Return(row)
	db.On("Exec", ctx, mock.AnythingOfType("string"), mock.Anything).Return(pgconn.NewCommandTag("UPDATE 1"), nil)

	err := svc.TestConnection(ctx, "test-config-1")
	require.Error(t, err)
	assert.ErrorIs(t, err, storage.ErrNotConfigured)
}

func TestStorageConfigService_GenerateEncryptionKey_ReturnsPlaintextOnce(t *testing.T) {
	db := &mockDB{}
	appKey := testSecretsKey(t)
	svc := NewStorageConfigService(db, appKey, nil)
	ctx := context.Background()

	var updateArgs []any
	db.On("Exec", ctx, mock.AnythingOfType("string"), mock.Anything).
		Run(func(args mock.Arguments) { updateArgs = args.Get(2).([]any) }).
		Return(pgconn.NewCommandTag("UPDATE 1"), nil)

	key, err := svc.GenerateEncryptionKey(ctx, "test-config-1")
	require.NoError(t, err)
	require.NotEmpty(t, key)

	sealed := updateArgs[0].(string)
	assert.NotEqual(t, key, sealed, "the stored key must be sealed")

	plain, err := crypto.Decrypt(sealed, appKey)
	require.NoError(t, err)
	assert.Equal(t, key, string(plain))
}

func TestStorageConfigService_PayloadKey_NilWhenDisabled(t *testing.T) {
	db := &mockDB{}
	svc := NewStorageConfigService(db, testSecretsKey(t), nil)
	ctx := context.Background()

	row := &mockRow{scanFunc: func(dest ...any) error {
		*(dest[0].(*bool)) = false
		*(dest[1].(**string)) = nil
		return nil
	}}
	db.On("QueryRow", ctx, mock.AnythingOfType("string"), mock.Anything).Return(row)

	key, err := svc.PayloadKey(ctx, "test-config-1")
	require.NoError(t, err)
	assert.Nil(t, key)
}

func sealTestCredentials(t *testing.T, key []byte, creds map[string]string) string {
	t.Helper()
	plain, err := json.Marshal(creds)
	require.NoError(t, err)
	sealed, err := crypto.Encrypt(plain, key)
	require.NoError(t, err)
	return sealed
}

// storageConfigScanFunc fills a storage configuration row in column order.
func storageConfigScanFunc(id, driver string, sealed *string, isDefault bool) func(dest ...any) error {
	return func(dest ...any) error {
		now := time.Now()
		bucket := "test-bucket"
		*(dest[0].(*string)) = id
		*(dest[1].(**string)) = nil // project_id (global)
		*(dest[2].(*string)) = "Primary"
		*(dest[3].(*string)) = driver
		*(dest[4].(**string)) = sealed
		*(dest[5].(**string)) = &bucket
		*(dest[6].(**string)) = nil // region
		*(dest[7].(**string)) = nil // endpoint
		*(dest[8].(**string)) = nil // path_prefix
		*(dest[9].(*bool)) = isDefault
		*(dest[10].(*string)) = model.StorageStatusActive
		*(dest[11].(*bool)) = false
		*(dest[12].(**string)) = nil // payload_encryption_key
		*(dest[13].(**time.Time)) = nil
		*(dest[14].(*time.Time)) = now
		*(dest[15].(*time.Time)) = now
		return nil
	}
}
