package catalog

import (
	"io"
	"time"

	"github.com/google/uuid"
)

// FileKind classifies a submitted file part
type FileKind string

const (
	FileKindThumbnail FileKind = "thumbnail"
	FileKindVideo     FileKind = "video"
)

// Text bounds for entry fields, counted in characters
const (
	MaxTitleLength       = 50
	MaxDescriptionLength = 200
)

// Entry is one logical media item with its metadata and asset references
type Entry struct {
	ID            uuid.UUID `json:"id"`
	Title         string    `json:"title"`
	Description   string    `json:"description"`
	ThumbnailRefs []string  `json:"thumbnails"`
	VideoRefs     []string  `json:"videos"`
	OwnerID       string    `json:"owner_id"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Clone returns a deep copy of the entry so callers never share ref slices
func (e *Entry) Clone() *Entry {
	if e == nil {
		return nil
	}
	c := *e
	c.ThumbnailRefs = append([]string(nil), e.ThumbnailRefs...)
	c.VideoRefs = append([]string(nil), e.VideoRefs...)
	return &c
}

// EntryPatch carries the fields of a partial update. Nil pointers and nil
// slices mean "leave unchanged".
type EntryPatch struct {
	Title         *string
	Description   *string
	ThumbnailRefs []string
	VideoRefs     []string
}

// IsEmpty reports whether the patch changes nothing
func (p EntryPatch) IsEmpty() bool {
	return p.Title == nil && p.Description == nil && p.ThumbnailRefs == nil && p.VideoRefs == nil
}

// Apply merges the patch into the entry in place
func (p EntryPatch) Apply(e *Entry) {
	if p.Title != nil {
		e.Title = *p.Title
	}
	if p.Description != nil {
		e.Description = *p.Description
	}
	if p.ThumbnailRefs != nil {
		e.ThumbnailRefs = append([]string(nil), p.ThumbnailRefs...)
	}
	if p.VideoRefs != nil {
		e.VideoRefs = append([]string(nil), p.VideoRefs...)
	}
}

// FilePart is one submitted file with the field name it arrived under and
// the content type the client declared for it
type FilePart struct {
	Field       string
	FileName    string
	ContentType string
	Size        int64
	Content     io.Reader
}

// CreateUploadRequest contains parameters for creating a catalog entry from
// a multi-file submission
type CreateUploadRequest struct {
	OwnerID     string
	Title       string
	Description string
	Parts       []FilePart
}

// UpdateUploadRequest contains parameters for updating an existing entry.
// Title and Description are only applied when non-nil.
type UpdateUploadRequest struct {
	ID          string
	Title       *string
	Description *string
	Parts       []FilePart
}

// StoreParams describes a blob handed to an AssetStore
type StoreParams struct {
	OriginalName string
	ContentType  string
	Kind         FileKind
}

// AssetMeta contains metadata about a stored asset
type AssetMeta struct {
	Ref         string
	Size        int64
	ContentType string
	UpdatedAt   time.Time
	ETag        string
}
