package fs

import (
	"context"
	"errors"
	"fmt"
	"io"
	iofs "io/fs"
	"os"
	"path/filepath"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/tendant/simple-catalog/pkg/catalog"
	"github.com/tendant/simple-catalog/pkg/catalog/objectkey"
)

const backendName = "fs"

// Backend is a filesystem implementation of the catalog.AssetStore interface
type Backend struct {
	baseDir   string
	generator objectkey.Generator
}

// Config options for the filesystem backend
type Config struct {
	BaseDir   string              // Base directory for storing files
	Generator objectkey.Generator // Reference naming strategy; token naming when nil
}

// New creates a new filesystem storage backend
func New(config Config) (*Backend, error) {
	if config.BaseDir == "" {
		return nil, errors.New("base directory is required")
	}

	if err := os.MkdirAll(config.BaseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}

	gen := config.Generator
	if gen == nil {
		gen = objectkey.NewTokenGenerator()
	}

	return &Backend{
		baseDir:   filepath.Clean(config.BaseDir),
		generator: gen,
	}, nil
}

// Store writes content to a new file. Existing files are never overwritten.
func (b *Backend) Store(ctx context.Context, content io.Reader, params catalog.StoreParams) (string, error) {
	ref := b.generator.GenerateKey(uuid.New(), &objectkey.KeyMetadata{
		FileName:    params.OriginalName,
		ContentType: params.ContentType,
		Kind:        string(params.Kind),
	})

	fail := func(err error) (string, error) {
		return "", &catalog.StorageError{Backend: backendName, Key: ref, Op: "store", Err: err}
	}

	if err := ctx.Err(); err != nil {
		return fail(err)
	}

	filePath, ok := b.resolve(ref)
	if !ok {
		return fail(fmt.Errorf("generated reference escapes base directory"))
	}

	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return fail(fmt.Errorf("failed to create directory: %w", err))
	}

	file, err := os.OpenFile(filePath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if errors.Is(err, iofs.ErrExist) {
		return fail(catalog.ErrAssetExists)
	} else if err != nil {
		return fail(fmt.Errorf("failed to create file: %w", err))
	}

	if _, err := io.Copy(file, content); err != nil {
		file.Close()
		os.Remove(filePath)
		return fail(fmt.Errorf("failed to write file: %w", err))
	}
	if err := file.Close(); err != nil {
		os.Remove(filePath)
		return fail(fmt.Errorf("failed to close file: %w", err))
	}

	return ref, nil
}

// Open opens the file behind ref; the returned *os.File is seekable
func (b *Backend) Open(ctx context.Context, ref string) (io.ReadCloser, error) {
	filePath, ok := b.resolve(ref)
	if !ok {
		return nil, fmt.Errorf("%w: %s", catalog.ErrAssetNotFound, ref)
	}

	file, err := os.Open(filePath)
	if errors.Is(err, iofs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", catalog.ErrAssetNotFound, ref)
	} else if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}

	return file, nil
}

// Stat retrieves metadata for a file, sniffing its content type
func (b *Backend) Stat(ctx context.Context, ref string) (*catalog.AssetMeta, error) {
	filePath, ok := b.resolve(ref)
	if !ok {
		return nil, fmt.Errorf("%w: %s", catalog.ErrAssetNotFound, ref)
	}

	info, err := os.Stat(filePath)
	if errors.Is(err, iofs.ErrNotExist) || (err == nil && info.IsDir()) {
		return nil, fmt.Errorf("%w: %s", catalog.ErrAssetNotFound, ref)
	} else if err != nil {
		return nil, fmt.Errorf("failed to get file info: %w", err)
	}

	contentType := "application/octet-stream"
	if mt, err := mimetype.DetectFile(filePath); err == nil {
		contentType = mt.String()
	}

	return &catalog.AssetMeta{
		Ref:         ref,
		Size:        info.Size(),
		ContentType: contentType,
		UpdatedAt:   info.ModTime(),
		ETag:        fmt.Sprintf("%x-%x", info.ModTime().UnixNano(), info.Size()),
	}, nil
}

// Delete deletes content from the filesystem
func (b *Backend) Delete(ctx context.Context, ref string) error {
	filePath, ok := b.resolve(ref)
	if !ok {
		return fmt.Errorf("%w: %s", catalog.ErrAssetNotFound, ref)
	}

	if err := os.Remove(filePath); errors.Is(err, iofs.ErrNotExist) {
		return fmt.Errorf("%w: %s", catalog.ErrAssetNotFound, ref)
	} else if err != nil {
		return fmt.Errorf("failed to delete file: %w", err)
	}

	b.cleanupEmptyDirectories(filepath.Dir(filePath))
	return nil
}

// resolve maps a reference to a path under baseDir, rejecting anything that
// would escape it
func (b *Backend) resolve(ref string) (string, bool) {
	rel := filepath.FromSlash(ref)
	if ref == "" || !filepath.IsLocal(rel) {
		return "", false
	}
	return filepath.Join(b.baseDir, rel), true
}

// cleanupEmptyDirectories recursively removes empty directories up to baseDir
func (b *Backend) cleanupEmptyDirectories(dir string) {
	if dir == b.baseDir || len(dir) <= len(b.baseDir) {
		return
	}

	if entries, err := os.ReadDir(dir); err == nil && len(entries) == 0 {
		if os.Remove(dir) == nil {
			b.cleanupEmptyDirectories(filepath.Dir(dir))
		}
	}
}
