package config

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/ilyakaznacheev/cleanenv"
)

// WithEnv applies environment variable overrides. Variables that are unset
// leave the current value alone, so WithEnv composes with defaults, WithFile
// and programmatic options.
//
// Variables: PORT, ENVIRONMENT, LOG_LEVEL, DATABASE_URL, DB_SCHEMA,
// STORAGE_URL, S3_ACCESS_KEY_ID, S3_SECRET_ACCESS_KEY, KEY_STRATEGY,
// MAX_UPLOAD_BYTES, ORPHAN_CLEANUP, EVICT_ON_DELETE, EVENT_SINK_URL,
// ENABLE_EVENT_LOGGING, JWT_SECRET, TOKEN_TTL, REQUIRE_AUTH, CORS_ORIGINS.
func WithEnv() Option {
	return func(c *ServerConfig) error {
		if err := cleanenv.ReadEnv(c); err != nil {
			return fmt.Errorf("failed to read environment: %w", err)
		}
		return nil
	}
}

// WithFile reads a YAML, JSON, TOML or .env file; environment variables
// still take precedence over the file
func WithFile(path string) Option {
	return func(c *ServerConfig) error {
		if err := cleanenv.ReadConfig(path, c); err != nil {
			return fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		return nil
	}
}

// EnvUsage describes every supported environment variable
func EnvUsage() string {
	var cfg ServerConfig
	desc, err := cleanenv.GetDescription(&cfg, nil)
	if err != nil {
		return ""
	}
	return desc
}

// Storage backend kinds understood by ParseStorageURL
const (
	StorageMemory = "memory"
	StorageFS     = "fs"
	StorageS3     = "s3"
	StorageMinIO  = "minio"
)

// StorageSpec is the parsed form of a STORAGE_URL
type StorageSpec struct {
	Type string

	// fs
	BaseDir string

	// s3 and minio
	Bucket       string
	Region       string
	Endpoint     string
	UsePathStyle bool
	UseSSL       bool
	CreateBucket bool
	SkipIfNone   bool
}

// ParseStorageURL parses one of:
//
//	memory://
//	file:///path/to/data
//	s3://bucket?region=us-east-1&endpoint=http://localhost:9000&path_style=true&create_bucket=true
//	minio://host:9000/bucket?ssl=true&region=us-east-1
func ParseStorageURL(raw string) (StorageSpec, error) {
	if raw == "" || raw == "memory" || raw == "memory://" {
		return StorageSpec{Type: StorageMemory}, nil
	}

	u, err := url.Parse(raw)
	if err != nil {
		return StorageSpec{}, fmt.Errorf("invalid STORAGE_URL: %w", err)
	}
	q := u.Query()

	switch u.Scheme {
	case "file":
		path := u.Host + u.Path
		if path == "" {
			return StorageSpec{}, fmt.Errorf("filesystem path cannot be empty in STORAGE_URL")
		}
		return StorageSpec{Type: StorageFS, BaseDir: path}, nil

	case "s3":
		if u.Host == "" {
			return StorageSpec{}, fmt.Errorf("S3 bucket name cannot be empty in STORAGE_URL")
		}
		spec := StorageSpec{
			Type:     StorageS3,
			Bucket:   u.Host,
			Region:   q.Get("region"),
			Endpoint: q.Get("endpoint"),
		}
		if spec.UsePathStyle, err = queryBool(q, "path_style"); err != nil {
			return StorageSpec{}, err
		}
		if spec.CreateBucket, err = queryBool(q, "create_bucket"); err != nil {
			return StorageSpec{}, err
		}
		if spec.SkipIfNone, err = queryBool(q, "skip_conditional_write"); err != nil {
			return StorageSpec{}, err
		}
		return spec, nil

	case "minio":
		bucket := strings.Trim(u.Path, "/")
		if u.Host == "" || bucket == "" {
			return StorageSpec{}, fmt.Errorf("minio STORAGE_URL needs host and bucket: minio://host:port/bucket")
		}
		spec := StorageSpec{
			Type:     StorageMinIO,
			Endpoint: u.Host,
			Bucket:   bucket,
			Region:   q.Get("region"),
		}
		if spec.UseSSL, err = queryBool(q, "ssl"); err != nil {
			return StorageSpec{}, err
		}
		if spec.CreateBucket, err = queryBool(q, "create_bucket"); err != nil {
			return StorageSpec{}, err
		}
		return spec, nil
	}

	return StorageSpec{}, fmt.Errorf("unsupported STORAGE_URL format: %s (use 'memory://', 'file://...', 's3://...' or 'minio://...')", raw)
}

func queryBool(q url.Values, key string) (bool, error) {
	raw := q.Get(key)
	if raw == "" {
		return false, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid boolean for %s in STORAGE_URL: %w", key, err)
	}
	return v, nil
}
