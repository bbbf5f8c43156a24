// Package blobstore keeps raw uploaded bytes in object storage so the
// pipeline can re-extract or re-embed without holding blobs in Postgres.
package blobstore

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	RawBucket string
}

// Storage wraps the MinIO client for raw document artifacts. Objects are
// keyed by content fingerprint, so a dedupe hit never stores a second copy.
type Storage struct {
	client    *minio.Client
	rawBucket string
}

func New(cfg Config) (*Storage, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("init minio: %w", err)
	}
	return &Storage{
		client:    client,
		rawBucket: cfg.RawBucket,
	}, nil
}

// EnsureBucket creates the raw bucket when it does not exist yet.
func (s *Storage) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.rawBucket)
	if err != nil {
		return fmt.Errorf("check bucket %s: %w", s.rawBucket, err)
	}
	if !exists {
		if err := s.client.MakeBucket(ctx, s.rawBucket, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("make bucket %s: %w", s.rawBucket, err)
		}
	}
	return nil
}

// UploadRaw stores the original bytes under the given object key.
func (s *Storage) UploadRaw(ctx context.Context, objectKey string, data []byte, contentType string) error {
	_, err := s.client.PutObject(ctx, s.rawBucket, objectKey,
		bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return fmt.Errorf("upload raw %s: %w", objectKey, err)
	}
	return nil
}

// DownloadRaw fetches the original bytes for re-processing.
func (s *Storage) DownloadRaw(ctx context.Context, objectKey string) ([]byte, error) {
	obj, err := s.client.GetObject(ctx, s.rawBucket, objectKey, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("get raw %s: %w", objectKey, err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, fmt.Errorf("read raw %s: %w", objectKey, err)
	}
	return data, nil
}

// Remove deletes the stored artifact; used on document deletion.
func (s *Storage) Remove(ctx context.Context, objectKey string) error {
	if err := s.client.RemoveObject(ctx, s.rawBucket, objectKey, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("remove raw %s: %w", objectKey, err)
	}
	return nil
}
