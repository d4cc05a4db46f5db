package activity

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/devflow/backhaul/internal/core"
	"github.com/devflow/backhaul/internal/crypto"
	"github.com/devflow/backhaul/internal/model"
	"github.com/devflow/backhaul/internal/storage"
)

// S3Putter writes one object to a resolved S3 endpoint.
type S3Putter func(ctx context.Context, conn *storage.S3Connection, key string, body io.Reader) error

// Uploader pushes finished backup artifacts to their storage target. S3 is
// the only driver with a worker-side transport; an upload routed at any
// other driver fails with storage.ErrNoTransport rather than claiming bytes
// moved.
type Uploader struct {
	configs *core.StorageConfigService
	put     S3Putter
}

// NewUploader creates a new Uploader activity struct. A nil put falls back
// to the real S3 client.
func NewUploader(configs *core.StorageConfigService, put S3Putter) *Uploader {
	if put == nil {
		put = putS3Object
	}
	return &Uploader{configs: configs, put: put}
}

// Upload ships the local artifact to the configuration's remote. When the
// configuration has payload encryption enabled the artifact is sealed first
// and the encrypted copy is what gets uploaded.
func (u *Uploader) Upload(ctx context.Context, params UploadParams) (*UploadResult, error) {
	cfg, err := u.configs.GetByID(ctx, params.ConfigID)
	if err != nil {
		return nil, fmt.Errorf("load storage configuration: %w", err)
	}
	if cfg.Driver != model.DriverS3 {
		return nil, fmt.Errorf("driver %s: %w", cfg.Driver, storage.ErrNoTransport)
	}

	localPath := params.LocalPath
	remotePath := params.RemotePath
	if key, err := u.configs.PayloadKey(ctx, params.ConfigID); err != nil {
		return nil, fmt.Errorf("load payload key: %w", err)
	} else if key != nil {
		encrypted, err := crypto.EncryptFile(localPath, key)
		if err != nil {
			return nil, err
		}
		defer os.Remove(encrypted)
		localPath = encrypted
		remotePath += crypto.EncryptedSuffix
	}

	info, err := os.Stat(localPath)
	if err != nil {
		return nil, fmt.Errorf("stat artifact %s: %w", localPath, err)
	}
	storagePath := storage.RemotePath(cfg, remotePath)

	conn, err := storage.ResolveConnection(cfg)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(localPath)
	if err != nil {
		return nil, fmt.Errorf("open artifact %s: %w", localPath, err)
	}
	defer f.Close()

	if err := u.put(ctx, conn.S3, storagePath, f); err != nil {
		return nil, fmt.Errorf("upload %s to bucket %s: %w", storagePath, conn.S3.Bucket, err)
	}

	uploadedBytes.WithLabelValues(cfg.Driver).Add(float64(info.Size()))
	return &UploadResult{StoragePath: storagePath, SizeBytes: info.Size()}, nil
}

func putS3Object(ctx context.Context, conn *storage.S3Connection, key string, body io.Reader) error {
	client := storage.NewS3Client(conn)
	_, err := client.PutObject(ctx, &awss3.PutObjectInput{
		Bucket: aws.String(conn.Bucket),
		Key:    aws.String(key),
		Body:   body,
	})
	return err
}
