package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/tendant/simple-catalog/pkg/catalog/objectkey"
	"github.com/tendant/simple-catalog/pkg/catalog/urlstrategy"
)

// Option applies configuration to a ServerConfig instance.
type Option func(*ServerConfig) error

// Load constructs a ServerConfig by applying the supplied options on top of library defaults.
func Load(opts ...Option) (*ServerConfig, error) {
	cfg := defaults()

	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func defaults() ServerConfig {
	return ServerConfig{
		Port:               "4563",
		Environment:        EnvDevelopment,
		LogLevel:           "info",
		DatabaseURL:        "memory",
		DBSchema:           "",
		StorageURL:         "memory://",
		TokenTTL:           time.Hour,
		MaxUploadBytes:     100 << 20,
		KeyStrategy:        objectkey.StrategyToken,
		AssetURLStrategy:   string(urlstrategy.StrategyTypeServer),
		EnableEventLogging: true,
	}
}

// Environments with distinct behaviour
const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
	EnvTesting     = "testing"
)

// devJWTSecret signs tokens in development when JWT_SECRET is unset
const devJWTSecret = "development-only-secret"

// ServerConfig represents server configuration for the catalog service.
// Field tags drive WithEnv and WithFile.
type ServerConfig struct {
	Port        string `yaml:"port" json:"port" toml:"port" env:"PORT" env-description:"HTTP listen port"`
	Environment string `yaml:"environment" json:"environment" toml:"environment" env:"ENVIRONMENT" env-description:"development, production or testing"`
	LogLevel    string `yaml:"log_level" json:"log_level" toml:"log_level" env:"LOG_LEVEL" env-description:"debug, info, warn or error"`

	// Database configuration: "memory" or a postgres(ql):// URL
	DatabaseURL string `yaml:"database_url" json:"database_url" toml:"database_url" env:"DATABASE_URL" env-description:"memory or postgres connection URL"`
	DBSchema    string `yaml:"db_schema" json:"db_schema" toml:"db_schema" env:"DB_SCHEMA" env-description:"Postgres schema placed on search_path"`

	// Storage configuration: memory://, file:///dir, s3://bucket?..., minio://host/bucket?...
	StorageURL         string `yaml:"storage_url" json:"storage_url" toml:"storage_url" env:"STORAGE_URL" env-description:"asset store URL"`
	S3AccessKeyID      string `yaml:"s3_access_key_id" json:"s3_access_key_id" toml:"s3_access_key_id" env:"S3_ACCESS_KEY_ID"`
	S3SecretAccessKey  string `yaml:"s3_secret_access_key" json:"s3_secret_access_key" toml:"s3_secret_access_key" env:"S3_SECRET_ACCESS_KEY"`
	KeyStrategy        string `yaml:"key_strategy" json:"key_strategy" toml:"key_strategy" env:"KEY_STRATEGY" env-description:"token, timestamp or sharded"`
	MaxUploadBytes     int64  `yaml:"max_upload_bytes" json:"max_upload_bytes" toml:"max_upload_bytes" env:"MAX_UPLOAD_BYTES" env-description:"largest accepted multipart body"`
	OrphanCleanup      bool   `yaml:"orphan_cleanup" json:"orphan_cleanup" toml:"orphan_cleanup" env:"ORPHAN_CLEANUP" env-description:"delete stored files when an upload aborts"`
	EvictOnDelete      bool   `yaml:"evict_on_delete" json:"evict_on_delete" toml:"evict_on_delete" env:"EVICT_ON_DELETE" env-description:"delete files of removed or replaced entries"`
	EventSinkURL       string `yaml:"event_sink_url" json:"event_sink_url" toml:"event_sink_url" env:"EVENT_SINK_URL" env-description:"CloudEvents HTTP target"`
	EnableEventLogging bool   `yaml:"enable_event_logging" json:"enable_event_logging" toml:"enable_event_logging" env:"ENABLE_EVENT_LOGGING"`

	// Auth
	JWTSecret   string        `yaml:"jwt_secret" json:"jwt_secret" toml:"jwt_secret" env:"JWT_SECRET" env-description:"HS256 signing secret"`
	TokenTTL    time.Duration `yaml:"token_ttl" json:"token_ttl" toml:"token_ttl" env:"TOKEN_TTL" env-description:"lifetime of issued tokens"`
	RequireAuth bool          `yaml:"require_auth" json:"require_auth" toml:"require_auth" env:"REQUIRE_AUTH" env-description:"reject mutating requests without a valid token"`

	CORSOrigins []string `yaml:"cors_origins" json:"cors_origins" toml:"cors_origins" env:"CORS_ORIGINS" env-separator:","`

	// Asset URLs in responses: "server" (via /uploads) or "cdn"
	AssetURLStrategy string `yaml:"asset_url_strategy" json:"asset_url_strategy" toml:"asset_url_strategy" env:"ASSET_URL_STRATEGY" env-description:"server or cdn"`
	AssetBaseURL     string `yaml:"asset_base_url" json:"asset_base_url" toml:"asset_base_url" env:"ASSET_BASE_URL" env-description:"prefix for asset URLs; required for cdn"`
}

// Validate validates the server configuration
func (c *ServerConfig) Validate() error {
	if c.Port == "" {
		return errors.New("port is required")
	}

	switch c.Environment {
	case EnvDevelopment, EnvProduction, EnvTesting:
	default:
		return fmt.Errorf("unknown environment %q", c.Environment)
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return fmt.Errorf("invalid log level %q", c.LogLevel)
	}

	if _, err := c.DatabaseType(); err != nil {
		return err
	}

	if _, err := ParseStorageURL(c.StorageURL); err != nil {
		return err
	}

	if _, err := objectkey.NewGenerator(c.KeyStrategy); err != nil {
		return err
	}

	if _, err := c.URLStrategy(); err != nil {
		return err
	}

	if c.MaxUploadBytes <= 0 {
		return errors.New("max_upload_bytes must be positive")
	}

	if c.JWTSecret == "" && c.Environment != EnvDevelopment {
		return errors.New("jwt_secret is required outside development")
	}

	if c.TokenTTL <= 0 {
		return errors.New("token_ttl must be positive")
	}

	return nil
}

// DatabaseType reports "memory" or "postgres" for the configured DatabaseURL
func (c *ServerConfig) DatabaseType() (string, error) {
	switch {
	case c.DatabaseURL == "" || c.DatabaseURL == "memory":
		return "memory", nil
	case strings.HasPrefix(c.DatabaseURL, "postgresql://"), strings.HasPrefix(c.DatabaseURL, "postgres://"):
		return "postgres", nil
	default:
		return "", fmt.Errorf("unsupported DATABASE_URL format: %s (use 'memory' or 'postgresql://...')", c.DatabaseURL)
	}
}

// SigningSecret returns the JWT secret, falling back to a fixed value in development
func (c *ServerConfig) SigningSecret() string {
	if c.JWTSecret == "" && c.Environment == EnvDevelopment {
		return devJWTSecret
	}
	return c.JWTSecret
}

// URLStrategy builds the asset URL strategy for API responses
func (c *ServerConfig) URLStrategy() (urlstrategy.URLStrategy, error) {
	return urlstrategy.New(urlstrategy.Config{
		Type:    urlstrategy.StrategyType(c.AssetURLStrategy),
		BaseURL: c.AssetBaseURL,
	})
}
