package memory

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/tendant/simple-catalog/pkg/catalog"
	"github.com/tendant/simple-catalog/pkg/catalog/objectkey"
)

const backendName = "memory"

type object struct {
	data        []byte
	contentType string
	etag        string
	updatedAt   time.Time
}

// Backend is an in-memory implementation of the catalog.AssetStore interface
type Backend struct {
	mu        sync.RWMutex
	objects   map[string]object
	generator objectkey.Generator
	now       func() time.Time
}

// Option configures the in-memory backend
type Option func(*Backend)

// WithKeyGenerator sets the reference naming strategy
func WithKeyGenerator(g objectkey.Generator) Option {
	return func(b *Backend) {
		b.generator = g
	}
}

// New creates a new in-memory storage backend
func New(opts ...Option) *Backend {
	b := &Backend{
		objects:   make(map[string]object),
		generator: objectkey.NewTokenGenerator(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Store buffers the content and files it under a freshly generated reference
func (b *Backend) Store(ctx context.Context, content io.Reader, params catalog.StoreParams) (string, error) {
	ref := b.generator.GenerateKey(uuid.New(), &objectkey.KeyMetadata{
		FileName:    params.OriginalName,
		ContentType: params.ContentType,
		Kind:        string(params.Kind),
	})

	if err := ctx.Err(); err != nil {
		return "", &catalog.StorageError{Backend: backendName, Key: ref, Op: "store", Err: err}
	}

	data, err := io.ReadAll(content)
	if err != nil {
		return "", &catalog.StorageError{Backend: backendName, Key: ref, Op: "store", Err: err}
	}

	contentType := params.ContentType
	if contentType == "" {
		contentType = mimetype.Detect(data).String()
	}
	sum := sha256.Sum256(data)

	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.objects[ref]; exists {
		return "", &catalog.StorageError{Backend: backendName, Key: ref, Op: "store", Err: catalog.ErrAssetExists}
	}
	b.objects[ref] = object{
		data:        data,
		contentType: contentType,
		etag:        hex.EncodeToString(sum[:8]),
		updatedAt:   b.now(),
	}
	return ref, nil
}

// Open returns a seekable reader over the stored bytes
func (b *Backend) Open(ctx context.Context, ref string) (io.ReadCloser, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	obj, exists := b.objects[ref]
	if !exists {
		return nil, fmt.Errorf("%w: %s", catalog.ErrAssetNotFound, ref)
	}
	return readSeekNopCloser{bytes.NewReader(obj.data)}, nil
}

// Stat retrieves metadata for an object in memory
func (b *Backend) Stat(ctx context.Context, ref string) (*catalog.AssetMeta, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	obj, exists := b.objects[ref]
	if !exists {
		return nil, fmt.Errorf("%w: %s", catalog.ErrAssetNotFound, ref)
	}
	return &catalog.AssetMeta{
		Ref:         ref,
		Size:        int64(len(obj.data)),
		ContentType: obj.contentType,
		UpdatedAt:   obj.updatedAt,
		ETag:        obj.etag,
	}, nil
}

// Delete deletes content
func (b *Backend) Delete(ctx context.Context, ref string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.objects[ref]; !exists {
		return fmt.Errorf("%w: %s", catalog.ErrAssetNotFound, ref)
	}
	delete(b.objects, ref)
	return nil
}

// Len reports how many objects are held
func (b *Backend) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.objects)
}

type readSeekNopCloser struct {
	*bytes.Reader
}

func (readSeekNopCloser) Close() error { return nil }
