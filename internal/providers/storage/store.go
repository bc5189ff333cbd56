// Package storage publishes rendered certificate documents to an S3-compatible
// object store.
package storage

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	appconfig "github.com/smallbiznis/rewild/internal/config"
)

// ObjectStore is the write side of certificate publishing.
type ObjectStore interface {
	Put(ctx context.Context, key, contentType string, body []byte) error
	PublicURL(key string) string
}

type minioStore struct {
	client        *minio.Client
	bucket        string
	prefix        string
	publicBaseURL string
}

// NewMinioStore connects to the configured S3-compatible endpoint. The bucket
// is expected to exist; it is created on first use when missing.
func NewMinioStore(cfg appconfig.StorageConfig) (ObjectStore, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("storage: connect %s: %w", cfg.Endpoint, err)
	}
	return &minioStore{
		client:        client,
		bucket:        cfg.Bucket,
		prefix:        strings.Trim(cfg.Prefix, "/"),
		publicBaseURL: strings.TrimRight(cfg.PublicBaseURL, "/"),
	}, nil
}

func (s *minioStore) Put(ctx context.Context, key, contentType string, body []byte) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("storage: stat bucket %s: %w", s.bucket, err)
	}
	if !exists {
		if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("storage: create bucket %s: %w", s.bucket, err)
		}
	}

	_, err = s.client.PutObject(ctx, s.bucket, s.objectKey(key),
		bytes.NewReader(body), int64(len(body)),
		minio.PutObjectOptions{ContentType: contentType},
	)
	if err != nil {
		return fmt.Errorf("storage: put %s: %w", key, err)
	}
	return nil
}

func (s *minioStore) PublicURL(key string) string {
	return fmt.Sprintf("%s/%s/%s", s.publicBaseURL, s.bucket, s.objectKey(key))
}

func (s *minioStore) objectKey(key string) string {
	if s.prefix == "" {
		return key
	}
	return s.prefix + "/" + key
}
