package minio

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/tendant/simple-catalog/pkg/catalog"
	"github.com/tendant/simple-catalog/pkg/catalog/objectkey"
)

const backendName = "minio"

// Config holds the parameters needed to connect to a MinIO server
type Config struct {
	Endpoint        string // host:port, without scheme
	AccessKeyID     string
	SecretAccessKey string
	BucketName      string
	UseSSL          bool
	Region          string

	// EnsureBucket checks the bucket on startup and creates it when missing
	EnsureBucket bool

	// Generator names stored assets; token naming when nil
	Generator objectkey.Generator
}

// Validate checks required fields and fills defaults
func (cfg *Config) Validate() error {
	if cfg.Endpoint == "" {
		return errors.New("minio endpoint is required")
	}
	if cfg.AccessKeyID == "" || cfg.SecretAccessKey == "" {
		return errors.New("minio credentials are required")
	}
	if cfg.BucketName == "" {
		return errors.New("bucket name is required")
	}
	return nil
}

// Backend is a MinIO implementation of the catalog.AssetStore interface
type Backend struct {
	client    *minio.Client
	bucket    string
	generator objectkey.Generator
}

// New creates a MinIO backend. No network call is made unless EnsureBucket is set.
func New(cfg Config) (*Backend, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	cli, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	if cfg.EnsureBucket {
		ctx := context.Background()
		exists, err := cli.BucketExists(ctx, cfg.BucketName)
		if err != nil {
			return nil, fmt.Errorf("failed to check bucket existence: %w", err)
		}
		if !exists {
			if err := cli.MakeBucket(ctx, cfg.BucketName, minio.MakeBucketOptions{Region: cfg.Region}); err != nil {
				return nil, fmt.Errorf("failed to create bucket: %w", err)
			}
		}
	}

	gen := cfg.Generator
	if gen == nil {
		gen = objectkey.NewTokenGenerator()
	}

	return &Backend{
		client:    cli,
		bucket:    cfg.BucketName,
		generator: gen,
	}, nil
}

// Store uploads content under a freshly generated key after probing that the
// key is free
func (b *Backend) Store(ctx context.Context, content io.Reader, params catalog.StoreParams) (string, error) {
	ref := b.generator.GenerateKey(uuid.New(), &objectkey.KeyMetadata{
		FileName:    params.OriginalName,
		ContentType: params.ContentType,
		Kind:        string(params.Kind),
	})

	fail := func(err error) (string, error) {
		return "", &catalog.StorageError{Backend: backendName, Key: ref, Op: "store", Err: err}
	}

	_, err := b.client.StatObject(ctx, b.bucket, ref, minio.StatObjectOptions{})
	if err == nil {
		return fail(catalog.ErrAssetExists)
	}
	if !isNotFound(err) {
		return fail(err)
	}

	_, err = b.client.PutObject(ctx, b.bucket, ref, content, -1, minio.PutObjectOptions{
		ContentType: params.ContentType,
	})
	if err != nil {
		return fail(err)
	}

	return ref, nil
}

// Open returns the object; *minio.Object is seekable
func (b *Backend) Open(ctx context.Context, ref string) (io.ReadCloser, error) {
	obj, err := b.client.GetObject(ctx, b.bucket, ref, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to get object: %w", err)
	}

	// GetObject is lazy; Stat surfaces a missing key
	if _, err := obj.Stat(); err != nil {
		obj.Close()
		if isNotFound(err) {
			return nil, fmt.Errorf("%w: %s", catalog.ErrAssetNotFound, ref)
		}
		return nil, fmt.Errorf("failed to get object: %w", err)
	}

	return obj, nil
}

// Stat retrieves metadata for an object
func (b *Backend) Stat(ctx context.Context, ref string) (*catalog.AssetMeta, error) {
	info, err := b.client.StatObject(ctx, b.bucket, ref, minio.StatObjectOptions{})
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("%w: %s", catalog.ErrAssetNotFound, ref)
		}
		return nil, fmt.Errorf("failed to stat object: %w", err)
	}

	contentType := info.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return &catalog.AssetMeta{
		Ref:         ref,
		Size:        info.Size,
		ContentType: contentType,
		UpdatedAt:   info.LastModified,
		ETag:        info.ETag,
	}, nil
}

// Delete removes an object
func (b *Backend) Delete(ctx context.Context, ref string) error {
	if err := b.client.RemoveObject(ctx, b.bucket, ref, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("failed to delete object: %w", err)
	}
	return nil
}

func isNotFound(err error) bool {
	code := minio.ToErrorResponse(err).Code
	return code == "NoSuchKey" || code == "NotFound"
}
