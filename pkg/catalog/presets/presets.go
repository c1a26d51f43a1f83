// Package presets builds ready-to-use catalog services for local development
// and tests.
package presets

import (
	"fmt"
	"os"
	"testing"

	"github.com/tendant/simple-catalog/pkg/catalog"
	memoryrepo "github.com/tendant/simple-catalog/pkg/catalog/repo/memory"
	fsstorage "github.com/tendant/simple-catalog/pkg/catalog/storage/fs"
	memorystorage "github.com/tendant/simple-catalog/pkg/catalog/storage/memory"
)

// NewDevelopment creates a service with an in-memory catalog and assets on
// disk under ./dev-data (or WithDevStorage). The returned cleanup removes
// that directory.
func NewDevelopment(opts ...DevelopmentOption) (catalog.Service, func(), error) {
	cfg := &devConfig{storageDir: "./dev-data"}
	for _, opt := range opts {
		opt(cfg)
	}

	fsBackend, err := fsstorage.New(fsstorage.Config{BaseDir: cfg.storageDir})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create filesystem storage: %w", err)
	}

	svc, err := catalog.New(append([]catalog.Option{
		catalog.WithRepository(memoryrepo.New()),
		catalog.WithAssetStore(fsBackend),
		catalog.WithEventSink(catalog.NewLoggingEventSink(nil)),
	}, cfg.extra...)...)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create service: %w", err)
	}

	cleanup := func() {
		os.RemoveAll(cfg.storageDir)
	}
	return svc, cleanup, nil
}

// NewTesting creates an isolated in-memory service for one test. Extra
// catalog options are applied last, so they can replace the store or sink.
func NewTesting(t testing.TB, opts ...catalog.Option) catalog.Service {
	t.Helper()

	svc, err := catalog.New(append([]catalog.Option{
		catalog.WithRepository(memoryrepo.New()),
		catalog.WithAssetStore(memorystorage.New()),
		catalog.WithEventSink(catalog.NewNoopEventSink()),
	}, opts...)...)
	if err != nil {
		t.Fatalf("failed to create test service: %v", err)
	}
	return svc
}

type devConfig struct {
	storageDir string
	extra      []catalog.Option
}

// DevelopmentOption configures NewDevelopment
type DevelopmentOption func(*devConfig)

// WithDevStorage sets the asset directory
func WithDevStorage(dir string) DevelopmentOption {
	return func(c *devConfig) {
		c.storageDir = dir
	}
}

// WithDevOptions appends catalog options
func WithDevOptions(opts ...catalog.Option) DevelopmentOption {
	return func(c *devConfig) {
		c.extra = append(c.extra, opts...)
	}
}
