// Package storage provides object storage backends for submitted documents.
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"path"
	"slices"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	infraconfig "github.com/printdesk/backend/internal/infrastructure/config"
	infra "github.com/printdesk/backend/internal/infrastructure/printing"
	"go.uber.org/zap"
)

// deleteBatchSize is the S3 limit for one DeleteObjects call
const deleteBatchSize = 1000

// S3API is the subset of the S3 client used by S3DocumentStore
type S3API interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	DeleteObjects(ctx context.Context, in *s3.DeleteObjectsInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectsOutput, error)
	HeadBucket(ctx context.Context, in *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
	CreateBucket(ctx context.Context, in *s3.CreateBucketInput, optFns ...func(*s3.Options)) (*s3.CreateBucketOutput, error)
	s3.ListObjectsV2APIClient
}

// S3DocumentStore keeps documents in an S3-compatible bucket (AWS S3, MinIO, RustFS)
type S3DocumentStore struct {
	client S3API
	bucket string
	prefix string
	logger *zap.Logger
	now    func() time.Time
}

// S3DocumentStoreOption is a functional option for configuring S3DocumentStore
type S3DocumentStoreOption func(*S3DocumentStore)

// WithLogger sets a custom logger
func WithLogger(logger *zap.Logger) S3DocumentStoreOption {
	return func(s *S3DocumentStore) {
		s.logger = logger
	}
}

// WithClient replaces the S3 client
func WithClient(client S3API) S3DocumentStoreOption {
	return func(s *S3DocumentStore) {
		s.client = client
	}
}

// WithClock overrides the time source used by retention cleanup
func WithClock(now func() time.Time) S3DocumentStoreOption {
	return func(s *S3DocumentStore) {
		s.now = now
	}
}

// NewS3DocumentStore creates a store from configuration
func NewS3DocumentStore(cfg *infraconfig.StorageConfig, opts ...S3DocumentStoreOption) (*S3DocumentStore, error) {
	if cfg == nil {
		return nil, errors.New("storage configuration is required")
	}
	if cfg.Bucket == "" {
		return nil, errors.New("storage bucket is required")
	}

	store := &S3DocumentStore{
		bucket: cfg.Bucket,
		prefix: strings.Trim(cfg.Prefix, "/"),
		logger: zap.NewNop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(store)
	}
	if store.client != nil {
		return store, nil
	}

	client, err := newS3Client(cfg)
	if err != nil {
		return nil, err
	}
	store.client = client
	return store, nil
}

func newS3Client(cfg *infraconfig.StorageConfig) (*s3.Client, error) {
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}

	loadOpts := []func(*config.LoadOptions) error{config.WithRegion(region)}
	// Without static keys the default chain (env, shared profile, instance role) applies.
	if cfg.AccessKey != "" || cfg.SecretKey != "" {
		if cfg.AccessKey == "" || cfg.SecretKey == "" {
			return nil, errors.New("storage access key and secret key must be set together")
		}
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")))
	}

	awsCfg, err := config.LoadDefaultConfig(context.Background(), loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS config: %w", err)
	}

	endpoint, err := normalizeEndpoint(cfg.Endpoint, cfg.UseSSL)
	if err != nil {
		return nil, err
	}

	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.UsePathStyle
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	}), nil
}

// normalizeEndpoint adds a scheme to bare host:port endpoints
func normalizeEndpoint(endpoint string, useSSL bool) (string, error) {
	if endpoint == "" {
		return "", nil
	}
	if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
		if useSSL {
			endpoint = "https://" + endpoint
		} else {
			endpoint = "http://" + endpoint
		}
	}
	if _, err := url.Parse(endpoint); err != nil {
		return "", fmt.Errorf("invalid storage endpoint: %w", err)
	}
	return endpoint, nil
}

// EnsureBucket creates the bucket if it doesn't exist
func (s *S3DocumentStore) EnsureBucket(ctx context.Context) error {
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(s.bucket)})
	if err == nil {
		return nil
	}

	var notFound *types.NotFound
	var noSuchBucket *types.NoSuchBucket
	if !errors.As(err, &notFound) && !errors.As(err, &noSuchBucket) {
		return fmt.Errorf("failed to check bucket existence: %w", err)
	}

	s.logger.Info("Creating storage bucket", zap.String("bucket", s.bucket))
	_, err = s.client.CreateBucket(ctx, &s3.CreateBucketInput{Bucket: aws.String(s.bucket)})
	if err != nil {
		var alreadyOwned *types.BucketAlreadyOwnedByYou
		if errors.As(err, &alreadyOwned) {
			return nil
		}
		return fmt.Errorf("failed to create bucket: %w", err)
	}
	return nil
}

// Save uploads the document and returns its key relative to the prefix
func (s *S3DocumentStore) Save(ctx context.Context, key infra.DocumentKey, data []byte) (string, error) {
	if err := key.Validate(); err != nil {
		return "", err
	}
	if len(data) == 0 {
		return "", infra.NewConvertError(infra.ErrCodeStorageFailed, "document is empty", nil)
	}

	rel := key.RelativePath()
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(s.objectKey(rel)),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String(contentTypeFor(key.Extension)),
	})
	if err != nil {
		return "", infra.NewConvertError(infra.ErrCodeStorageFailed, "failed to upload document", err)
	}

	s.logger.Info("document stored",
		zap.String("bucket", s.bucket),
		zap.String("path", rel),
		zap.Int("size", len(data)))
	return rel, nil
}

// Open streams a stored document
func (s *S3DocumentStore) Open(ctx context.Context, storedPath string) (io.ReadCloser, error) {
	if err := validateStoredPath(storedPath); err != nil {
		return nil, err
	}
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(storedPath)),
	})
	if err != nil {
		var noSuchKey *types.NoSuchKey
		if errors.As(err, &noSuchKey) {
			return nil, infra.NewConvertError(infra.ErrCodeStorageFailed, "document not found", err)
		}
		return nil, infra.NewConvertError(infra.ErrCodeStorageFailed, "failed to download document", err)
	}
	return out.Body, nil
}

// Delete removes a stored document
func (s *S3DocumentStore) Delete(ctx context.Context, storedPath string) error {
	if err := validateStoredPath(storedPath); err != nil {
		return err
	}
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(storedPath)),
	})
	if err != nil {
		var noSuchKey *types.NoSuchKey
		if errors.As(err, &noSuchKey) {
			return nil
		}
		return infra.NewConvertError(infra.ErrCodeStorageFailed, "failed to delete document", err)
	}
	return nil
}

// CleanupOlderThan deletes objects under the prefix last modified before now-age
func (s *S3DocumentStore) CleanupOlderThan(ctx context.Context, age time.Duration) (int, error) {
	cutoff := s.now().Add(-age)
	listPrefix := ""
	if s.prefix != "" {
		listPrefix = s.prefix + "/"
	}

	var expired []types.ObjectIdentifier
	pager := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(listPrefix),
	})
	for pager.HasMorePages() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return 0, infra.NewConvertError(infra.ErrCodeStorageFailed, "failed to list documents", err)
		}
		for _, obj := range page.Contents {
			if obj.LastModified != nil && obj.LastModified.Before(cutoff) {
				expired = append(expired, types.ObjectIdentifier{Key: obj.Key})
			}
		}
	}

	deleted := 0
	for batch := range slices.Chunk(expired, deleteBatchSize) {
		out, err := s.client.DeleteObjects(ctx, &s3.DeleteObjectsInput{
			Bucket: aws.String(s.bucket),
			Delete: &types.Delete{Objects: batch, Quiet: aws.Bool(true)},
		})
		if err != nil {
			return deleted, infra.NewConvertError(infra.ErrCodeStorageFailed, "failed to delete expired documents", err)
		}
		deleted += len(batch) - len(out.Errors)
		for _, e := range out.Errors {
			s.logger.Warn("failed to delete expired document",
				zap.String("key", aws.ToString(e.Key)),
				zap.String("code", aws.ToString(e.Code)))
		}
	}

	s.logger.Info("document cleanup completed",
		zap.String("bucket", s.bucket),
		zap.Int("deleted", deleted),
		zap.Duration("age", age))
	return deleted, nil
}

// Bucket returns the bucket name
func (s *S3DocumentStore) Bucket() string {
	return s.bucket
}

func (s *S3DocumentStore) objectKey(rel string) string {
	if s.prefix == "" {
		return rel
	}
	return path.Join(s.prefix, rel)
}

func validateStoredPath(p string) error {
	if p == "" || strings.HasPrefix(p, "/") || strings.Contains(p, `\`) {
		return infra.NewConvertError(infra.ErrCodeStorageFailed, "invalid path", nil)
	}
	if slices.Contains(strings.Split(p, "/"), "..") {
		return infra.NewConvertError(infra.ErrCodeStorageFailed, "invalid path", nil)
	}
	return nil
}

func contentTypeFor(ext string) string {
	switch strings.ToLower(ext) {
	case ".pdf":
		return "application/pdf"
	case ".docx":
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	case ".doc":
		return "application/msword"
	default:
		return "application/octet-stream"
	}
}

var _ infra.DocumentStore = (*S3DocumentStore)(nil)
