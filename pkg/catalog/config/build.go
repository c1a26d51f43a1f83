package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tendant/simple-catalog/pkg/auth"
	authmemory "github.com/tendant/simple-catalog/pkg/auth/repo/memory"
	authpg "github.com/tendant/simple-catalog/pkg/auth/repo/postgres"
	"github.com/tendant/simple-catalog/pkg/catalog"
	"github.com/tendant/simple-catalog/pkg/catalog/events"
	"github.com/tendant/simple-catalog/pkg/catalog/objectkey"
	"github.com/tendant/simple-catalog/pkg/catalog/repo/memory"
	repopg "github.com/tendant/simple-catalog/pkg/catalog/repo/postgres"
	fsstorage "github.com/tendant/simple-catalog/pkg/catalog/storage/fs"
	memorystorage "github.com/tendant/simple-catalog/pkg/catalog/storage/memory"
	miniostorage "github.com/tendant/simple-catalog/pkg/catalog/storage/minio"
	s3storage "github.com/tendant/simple-catalog/pkg/catalog/storage/s3"
)

// Services bundles everything built from a ServerConfig
type Services struct {
	Catalog catalog.Service
	Auth    *auth.Service

	pool *pgxpool.Pool
}

// Close releases the database pool, if any
func (s *Services) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// BuildService creates the catalog and auth services from the server configuration
func (c *ServerConfig) BuildService(ctx context.Context, logger *slog.Logger) (*Services, error) {
	if logger == nil {
		logger = slog.Default()
	}

	generator, err := objectkey.NewGenerator(c.KeyStrategy)
	if err != nil {
		return nil, err
	}

	services := &Services{}
	var (
		repo  catalog.Repository
		users auth.UserRepository
	)

	dbType, err := c.DatabaseType()
	if err != nil {
		return nil, err
	}
	switch dbType {
	case "memory":
		repo = memory.New()
		users = authmemory.New()
	case "postgres":
		pool, err := c.openPool(ctx)
		if err != nil {
			return nil, err
		}
		services.pool = pool
		if err := repopg.EnsureSchema(ctx, pool); err != nil {
			pool.Close()
			return nil, err
		}
		if err := authpg.EnsureSchema(ctx, pool); err != nil {
			pool.Close()
			return nil, err
		}
		repo = repopg.NewWithPool(pool)
		users = authpg.NewWithPool(pool)
	}

	store, err := c.buildAssetStore(generator)
	if err != nil {
		services.Close()
		return nil, fmt.Errorf("failed to build asset store: %w", err)
	}

	options := []catalog.Option{
		catalog.WithRepository(repo),
		catalog.WithAssetStore(store),
		catalog.WithLogger(logger),
		catalog.WithOrphanCleanup(c.OrphanCleanup),
		catalog.WithEvictOnDelete(c.EvictOnDelete),
	}

	switch {
	case c.EventSinkURL != "":
		sink, err := events.New(events.Config{Target: c.EventSinkURL})
		if err != nil {
			services.Close()
			return nil, err
		}
		options = append(options, catalog.WithEventSink(sink))
	case c.EnableEventLogging:
		options = append(options, catalog.WithEventSink(catalog.NewLoggingEventSink(logger)))
	}

	services.Catalog, err = catalog.New(options...)
	if err != nil {
		services.Close()
		return nil, err
	}

	tokens, err := auth.NewTokens(c.SigningSecret(), c.TokenTTL)
	if err != nil {
		services.Close()
		return nil, err
	}
	services.Auth, err = auth.NewService(users, tokens, auth.WithLogger(logger))
	if err != nil {
		services.Close()
		return nil, err
	}

	return services, nil
}

func (c *ServerConfig) openPool(ctx context.Context) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(c.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse DATABASE_URL: %w", err)
	}
	if schema := c.DBSchema; schema != "" {
		cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
			_, err := conn.Exec(ctx, "SET search_path TO "+pgx.Identifier{schema}.Sanitize())
			return err
		}
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create pgx pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}
	return pool, nil
}

func (c *ServerConfig) buildAssetStore(generator objectkey.Generator) (catalog.AssetStore, error) {
	spec, err := ParseStorageURL(c.StorageURL)
	if err != nil {
		return nil, err
	}

	switch spec.Type {
	case StorageMemory:
		return memorystorage.New(memorystorage.WithKeyGenerator(generator)), nil
	case StorageFS:
		return fsstorage.New(fsstorage.Config{BaseDir: spec.BaseDir, Generator: generator})
	case StorageS3:
		return s3storage.New(s3storage.Config{
			Region:                 spec.Region,
			Bucket:                 spec.Bucket,
			AccessKeyID:            c.S3AccessKeyID,
			SecretAccessKey:        c.S3SecretAccessKey,
			Endpoint:               spec.Endpoint,
			UsePathStyle:           spec.UsePathStyle,
			CreateBucketIfNotExist: spec.CreateBucket,
			SkipConditionalWrite:   spec.SkipIfNone,
			Generator:              generator,
		})
	case StorageMinIO:
		return miniostorage.New(miniostorage.Config{
			Endpoint:        spec.Endpoint,
			AccessKeyID:     c.S3AccessKeyID,
			SecretAccessKey: c.S3SecretAccessKey,
			BucketName:      spec.Bucket,
			UseSSL:          spec.UseSSL,
			Region:          spec.Region,
			EnsureBucket:    spec.CreateBucket,
			Generator:       generator,
		})
	default:
		return nil, errors.New("unsupported storage type: " + spec.Type)
	}
}
