package config

import (
	"fmt"
	"time"
)

// WithPort sets the server port
func WithPort(port string) Option {
	return func(c *ServerConfig) error {
		if port == "" {
			return fmt.Errorf("port cannot be empty")
		}
		c.Port = port
		return nil
	}
}

// WithEnvironment sets the environment (development, production, testing)
func WithEnvironment(env string) Option {
	return func(c *ServerConfig) error {
		if env == "" {
			return fmt.Errorf("environment cannot be empty")
		}
		c.Environment = env
		return nil
	}
}

// WithDatabaseURL sets the catalog database ("memory" or a postgres URL)
func WithDatabaseURL(url string) Option {
	return func(c *ServerConfig) error {
		c.DatabaseURL = url
		return nil
	}
}

// WithDatabaseSchema sets the database schema (for Postgres)
func WithDatabaseSchema(schema string) Option {
	return func(c *ServerConfig) error {
		c.DBSchema = schema
		return nil
	}
}

// WithStorageURL sets the asset store URL
func WithStorageURL(url string) Option {
	return func(c *ServerConfig) error {
		if _, err := ParseStorageURL(url); err != nil {
			return err
		}
		c.StorageURL = url
		return nil
	}
}

// WithKeyStrategy sets the asset reference naming strategy
func WithKeyStrategy(strategy string) Option {
	return func(c *ServerConfig) error {
		c.KeyStrategy = strategy
		return nil
	}
}

// WithJWT sets the token signing secret and lifetime
func WithJWT(secret string, ttl time.Duration) Option {
	return func(c *ServerConfig) error {
		c.JWTSecret = secret
		if ttl > 0 {
			c.TokenTTL = ttl
		}
		return nil
	}
}

// WithRequireAuth rejects mutating requests without a valid token
func WithRequireAuth(enabled bool) Option {
	return func(c *ServerConfig) error {
		c.RequireAuth = enabled
		return nil
	}
}

// WithMaxUploadBytes caps the multipart body size
func WithMaxUploadBytes(n int64) Option {
	return func(c *ServerConfig) error {
		if n <= 0 {
			return fmt.Errorf("max upload bytes must be positive, got %d", n)
		}
		c.MaxUploadBytes = n
		return nil
	}
}

// WithOrphanCleanup enables deletion of files stored by an aborted upload
func WithOrphanCleanup(enabled bool) Option {
	return func(c *ServerConfig) error {
		c.OrphanCleanup = enabled
		return nil
	}
}

// WithEvictOnDelete enables deletion of files of removed or replaced entries
func WithEvictOnDelete(enabled bool) Option {
	return func(c *ServerConfig) error {
		c.EvictOnDelete = enabled
		return nil
	}
}

// WithEventSinkURL publishes lifecycle events as CloudEvents to url
func WithEventSinkURL(url string) Option {
	return func(c *ServerConfig) error {
		c.EventSinkURL = url
		return nil
	}
}

// WithCORSOrigins sets the allowed CORS origins
func WithCORSOrigins(origins ...string) Option {
	return func(c *ServerConfig) error {
		c.CORSOrigins = origins
		return nil
	}
}

// WithAssetURLs sets how asset URLs in responses are built
func WithAssetURLs(strategy, baseURL string) Option {
	return func(c *ServerConfig) error {
		c.AssetURLStrategy = strategy
		c.AssetBaseURL = baseURL
		return nil
	}
}
