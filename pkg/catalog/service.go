package catalog

import (
	"context"
	"io"
)

// Service defines the main interface for the catalog library
type Service interface {
	// Upload orchestration
	CreateUpload(ctx context.Context, req CreateUploadRequest) (*Entry, error)
	UpdateUpload(ctx context.Context, req UpdateUploadRequest) (*Entry, error)

	// Query operations
	GetEntry(ctx context.Context, id string) (*Entry, error)
	ListEntries(ctx context.Context) ([]*Entry, error)
	SearchEntries(ctx context.Context, title string) ([]*Entry, error)
	DeleteEntry(ctx context.Context, id string) (*Entry, error)

	// Asset read side
	OpenAsset(ctx context.Context, ref string) (io.ReadCloser, error)
	StatAsset(ctx context.Context, ref string) (*AssetMeta, error)
}
