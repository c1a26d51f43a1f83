package catalog

import (
	"context"
	"io"

	"github.com/google/uuid"
)

// AssetStore persists raw blobs under collision-resistant names. It has no
// knowledge of catalog semantics.
type AssetStore interface {
	// Store persists the blob under a newly generated name and returns that
	// name as the reference. It never overwrites an existing blob.
	Store(ctx context.Context, reader io.Reader, params StoreParams) (string, error)

	// Open returns the bytes stored under ref
	Open(ctx context.Context, ref string) (io.ReadCloser, error)

	// Stat retrieves metadata for a stored blob
	Stat(ctx context.Context, ref string) (*AssetMeta, error)

	// Delete removes a stored blob
	Delete(ctx context.Context, ref string) error
}

// Repository defines the interface for catalog entry persistence
type Repository interface {
	CreateEntry(ctx context.Context, entry *Entry) error
	GetEntry(ctx context.Context, id uuid.UUID) (*Entry, error)
	ListEntries(ctx context.Context) ([]*Entry, error)

	// SearchEntries matches title case-insensitively by substring; an empty
	// substring matches every entry
	SearchEntries(ctx context.Context, title string) ([]*Entry, error)

	// UpdateEntry merges only the fields present in patch
	UpdateEntry(ctx context.Context, id uuid.UUID, patch EntryPatch) (*Entry, error)

	// DeleteEntry removes the entry and returns its prior state
	DeleteEntry(ctx context.Context, id uuid.UUID) (*Entry, error)
}

// EventSink defines the interface for entry lifecycle notifications
type EventSink interface {
	// EntryCreated is fired when an entry is created
	EntryCreated(ctx context.Context, entry *Entry) error

	// EntryUpdated is fired when an entry is updated
	EntryUpdated(ctx context.Context, entry *Entry) error

	// EntryDeleted is fired with the prior state of a deleted entry
	EntryDeleted(ctx context.Context, entry *Entry) error
}
