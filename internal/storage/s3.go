package storage

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/devflow/backhaul/internal/model"
)

// NewS3Client builds an S3 client from a resolved connection descriptor.
// A non-empty Endpoint switches to path-style addressing for S3-compatible
// providers (MinIO, Ceph RGW).
func NewS3Client(conn *S3Connection) *s3.Client {
	opts := s3.Options{
		Region:      conn.Region,
		Credentials: credentials.NewStaticCredentialsProvider(conn.Key, conn.Secret, ""),
	}
	if opts.Region == "" {
		opts.Region = "us-east-1"
	}
	if conn.Endpoint != "" {
		opts.BaseEndpoint = aws.String(conn.Endpoint)
		opts.UsePathStyle = true
	}
	return s3.New(opts)
}

// Probe checks that a resolved connection can reach its remote. The S3
// driver gets a live bucket check; the other drivers' transports live with
// the agent, so resolving the descriptor is the whole local check.
func Probe(ctx context.Context, conn *Connection) error {
	if conn.Driver != model.DriverS3 {
		return nil
	}
	client := NewS3Client(conn.S3)
	_, err := client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(conn.S3.Bucket)})
	return err
}
