package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/radif/imagegw/internal/imaging"
)

// ObjectStoreConfig configures an S3-compatible remote (MinIO, ArvanCloud,
// AWS S3). Every field but UseSSL and Region must be set for the store to be
// considered configured.
type ObjectStoreConfig struct {
	Endpoint   string
	AccessKey  string
	SecretKey  string
	Bucket     string
	PublicBase string // browser-accessible base URL of the bucket
	Region     string
	UseSSL     bool
}

// Configured reports whether every required field is present.
func (c ObjectStoreConfig) Configured() bool {
	for _, v := range []string{c.Endpoint, c.AccessKey, c.SecretKey, c.Bucket, c.PublicBase} {
		if strings.TrimSpace(v) == "" {
			return false
		}
	}
	return true
}

// ObjectStore is a Remote that keeps images as flat objects keyed by id in a
// public-read bucket.
type ObjectStore struct {
	client     *minio.Client
	bucket     string
	publicBase string
	logger     *slog.Logger

	mu          sync.Mutex
	bucketReady bool
}

// NewObjectStore creates the minio client. No network call is made; the
// bucket and its public-read policy are ensured on first upload. An
// unconfigured cfg yields a store whose Configured reports false.
func NewObjectStore(cfg ObjectStoreConfig, logger *slog.Logger) (*ObjectStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	s := &ObjectStore{
		bucket:     cfg.Bucket,
		publicBase: strings.TrimRight(cfg.PublicBase, "/"),
		logger:     logger,
	}
	if !cfg.Configured() {
		return s, nil
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}
	s.client = client
	return s, nil
}

// Configured reports whether a client was created.
func (s *ObjectStore) Configured() bool {
	return s.client != nil
}

// DeliveryURL returns {publicBase}/{id}.
func (s *ObjectStore) DeliveryURL(id string) string {
	return s.publicBase + "/" + url.PathEscape(id)
}

// Upload puts data under a new id with its sniffed content type.
func (s *ObjectStore) Upload(ctx context.Context, data []byte) (StoredImage, error) {
	if !s.Configured() {
		return StoredImage{}, fmt.Errorf("%w: not configured", ErrRemote)
	}
	if err := s.ensureBucket(ctx); err != nil {
		return StoredImage{}, err
	}

	id := uuid.NewString()
	_, err := s.client.PutObject(ctx, s.bucket, id, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: imaging.ContentType(imaging.DetectExtension(data)),
	})
	if err != nil {
		return StoredImage{}, fmt.Errorf("%w: put object %q: %w", ErrRemote, id, err)
	}
	return StoredImage{ID: id, URL: s.DeliveryURL(id), Backend: BackendRemote}, nil
}

// Probe stats the object.
func (s *ObjectStore) Probe(ctx context.Context, id string) bool {
	if !s.Configured() {
		return false
	}
	if _, err := s.client.StatObject(ctx, s.bucket, id, minio.StatObjectOptions{}); err != nil {
		if minio.ToErrorResponse(err).Code != "NoSuchKey" {
			s.logger.Warn("remote probe failed", "id", id, "error", err)
		}
		return false
	}
	return true
}

// Delete removes the object and reports whether it existed.
func (s *ObjectStore) Delete(ctx context.Context, id string) (bool, error) {
	if !s.Configured() {
		return false, fmt.Errorf("%w: not configured", ErrRemote)
	}

	if _, err := s.client.StatObject(ctx, s.bucket, id, minio.StatObjectOptions{}); err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return false, nil
		}
		return false, fmt.Errorf("%w: stat object %q: %w", ErrRemote, id, err)
	}
	if err := s.client.RemoveObject(ctx, s.bucket, id, minio.RemoveObjectOptions{}); err != nil {
		return false, fmt.Errorf("%w: remove object %q: %w", ErrRemote, id, err)
	}
	return true, nil
}

// ensureBucket creates the bucket with a public-read policy once per process.
// A failure is retried on the next upload.
func (s *ObjectStore) ensureBucket(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.bucketReady {
		return nil
	}

	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("%w: check bucket %q: %w", ErrRemote, s.bucket, err)
	}
	if !exists {
		if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("%w: create bucket %q: %w", ErrRemote, s.bucket, err)
		}
		s.logger.Info("created bucket", "bucket", s.bucket)
	}

	if err := s.client.SetBucketPolicy(ctx, s.bucket, publicReadPolicy(s.bucket)); err != nil {
		return fmt.Errorf("%w: set bucket policy: %w", ErrRemote, err)
	}

	s.bucketReady = true
	return nil
}

// publicReadPolicy returns an S3 bucket policy JSON that allows anonymous GET on all objects.
func publicReadPolicy(bucket string) string {
	policy := map[string]interface{}{
		"Version": "2012-10-17",
		"Statement": []map[string]interface{}{
			{
				"Effect":    "Allow",
				"Principal": "*",
				"Action":    "s3:GetObject",
				"Resource":  fmt.Sprintf("arn:aws:s3:::%s/*", bucket),
			},
		},
	}
	b, _ := json.Marshal(policy)
	return string(b)
}
