package catalog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/google/uuid"
)

// service implements the Service interface
type service struct {
	repository    Repository
	assets        AssetStore
	validator     *Validator
	eventSink     EventSink
	logger        *slog.Logger
	orphanCleanup bool
	evictOnDelete bool
}

// Option represents a functional option for configuring the service
type Option func(*service)

// WithRepository sets the repository for the service
func WithRepository(repo Repository) Option {
	return func(s *service) {
		s.repository = repo
	}
}

// WithAssetStore sets the asset store files are persisted to
func WithAssetStore(store AssetStore) Option {
	return func(s *service) {
		s.assets = store
	}
}

// WithValidator replaces the default upload validator
func WithValidator(v *Validator) Option {
	return func(s *service) {
		s.validator = v
	}
}

// WithEventSink sets the event sink for the service
func WithEventSink(sink EventSink) Option {
	return func(s *service) {
		s.eventSink = sink
	}
}

// WithLogger sets the logger used for warnings that do not fail a request
func WithLogger(logger *slog.Logger) Option {
	return func(s *service) {
		s.logger = logger
	}
}

// WithOrphanCleanup makes an aborted upload delete the files it already
// stored. Off by default: those files are left in place and reported on
// UploadError.StoredRefs.
func WithOrphanCleanup(enabled bool) Option {
	return func(s *service) {
		s.orphanCleanup = enabled
	}
}

// WithEvictOnDelete makes DeleteEntry remove the entry's assets, and
// UpdateUpload remove the refs it replaced. Off by default.
func WithEvictOnDelete(enabled bool) Option {
	return func(s *service) {
		s.evictOnDelete = enabled
	}
}

// New creates a new service instance with the given options
func New(options ...Option) (Service, error) {
	s := &service{}

	for _, option := range options {
		option(s)
	}

	if s.repository == nil {
		return nil, fmt.Errorf("repository is required")
	}
	if s.assets == nil {
		return nil, fmt.Errorf("asset store is required")
	}
	if s.validator == nil {
		s.validator = NewValidator(DefaultPolicy())
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}

	return s, nil
}

// Upload orchestration

func (s *service) CreateUpload(ctx context.Context, req CreateUploadRequest) (*Entry, error) {
	ownerID := strings.TrimSpace(req.OwnerID)
	if ownerID == "" {
		return nil, ErrMissingOwner
	}

	parts, err := s.validator.ValidateParts(req.Parts, true)
	if err != nil {
		return nil, err
	}
	if err := s.validator.ValidateText(&req.Title, &req.Description); err != nil {
		return nil, err
	}

	thumbnailRefs, err := s.storeParts(ctx, "create", FileKindThumbnail, parts.Thumbnails, nil)
	if err != nil {
		return nil, err
	}
	videoRefs, err := s.storeParts(ctx, "create", FileKindVideo, parts.Videos, thumbnailRefs)
	if err != nil {
		return nil, err
	}

	entry := &Entry{
		ID:            uuid.New(),
		Title:         req.Title,
		Description:   req.Description,
		ThumbnailRefs: thumbnailRefs,
		VideoRefs:     videoRefs,
		OwnerID:       ownerID,
	}

	if err := s.repository.CreateEntry(ctx, entry); err != nil {
		s.handleOrphans(ctx, "create", concatRefs(thumbnailRefs, videoRefs))
		return nil, &EntryError{EntryID: entry.ID, Op: "create", Err: err}
	}

	if s.eventSink != nil {
		if err := s.eventSink.EntryCreated(ctx, entry); err != nil {
			s.logger.WarnContext(ctx, "event sink failed", "event", "entry_created", "entry_id", entry.ID.String(), "error", err)
		}
	}

	return entry.Clone(), nil
}

func (s *service) UpdateUpload(ctx context.Context, req UpdateUploadRequest) (*Entry, error) {
	id, err := ParseID(req.ID)
	if err != nil {
		return nil, err
	}

	existing, err := s.repository.GetEntry(ctx, id)
	if err != nil {
		return nil, &EntryError{EntryID: id, Op: "update", Err: err}
	}

	parts, err := s.validator.ValidateParts(req.Parts, false)
	if err != nil {
		return nil, err
	}
	if err := s.validator.ValidateText(req.Title, req.Description); err != nil {
		return nil, err
	}

	patch := EntryPatch{
		Title:       req.Title,
		Description: req.Description,
	}

	if len(parts.Thumbnails) > 0 {
		refs, err := s.storeParts(ctx, "update", FileKindThumbnail, parts.Thumbnails, nil)
		if err != nil {
			return nil, err
		}
		patch.ThumbnailRefs = refs
	}
	if len(parts.Videos) > 0 {
		refs, err := s.storeParts(ctx, "update", FileKindVideo, parts.Videos, patch.ThumbnailRefs)
		if err != nil {
			return nil, err
		}
		patch.VideoRefs = refs
	}

	if patch.IsEmpty() {
		return existing, nil
	}

	updated, err := s.repository.UpdateEntry(ctx, id, patch)
	if err != nil {
		s.handleOrphans(ctx, "update", concatRefs(patch.ThumbnailRefs, patch.VideoRefs))
		return nil, &EntryError{EntryID: id, Op: "update", Err: err}
	}

	if s.evictOnDelete {
		// replaced refs come from the snapshot read before the write. Concurrent
		// updates to the same id are last write wins: both evict the same
		// snapshot refs and the losing update's new blobs stay orphaned.
		var replaced []string
		if patch.ThumbnailRefs != nil {
			replaced = append(replaced, existing.ThumbnailRefs...)
		}
		if patch.VideoRefs != nil {
			replaced = append(replaced, existing.VideoRefs...)
		}
		s.evict(ctx, id, replaced)
	}

	if s.eventSink != nil {
		if err := s.eventSink.EntryUpdated(ctx, updated); err != nil {
			s.logger.WarnContext(ctx, "event sink failed", "event", "entry_updated", "entry_id", id.String(), "error", err)
		}
	}

	return updated, nil
}

// Query operations

func (s *service) GetEntry(ctx context.Context, rawID string) (*Entry, error) {
	id, err := ParseID(rawID)
	if err != nil {
		return nil, err
	}

	entry, err := s.repository.GetEntry(ctx, id)
	if err != nil {
		return nil, &EntryError{EntryID: id, Op: "get", Err: err}
	}
	return entry, nil
}

func (s *service) ListEntries(ctx context.Context) ([]*Entry, error) {
	return s.repository.ListEntries(ctx)
}

func (s *service) SearchEntries(ctx context.Context, title string) ([]*Entry, error) {
	return s.repository.SearchEntries(ctx, title)
}

func (s *service) DeleteEntry(ctx context.Context, rawID string) (*Entry, error) {
	id, err := ParseID(rawID)
	if err != nil {
		return nil, err
	}

	prior, err := s.repository.DeleteEntry(ctx, id)
	if err != nil {
		return nil, &EntryError{EntryID: id, Op: "delete", Err: err}
	}

	if s.evictOnDelete {
		s.evict(ctx, id, concatRefs(prior.ThumbnailRefs, prior.VideoRefs))
	}

	if s.eventSink != nil {
		if err := s.eventSink.EntryDeleted(ctx, prior); err != nil {
			s.logger.WarnContext(ctx, "event sink failed", "event", "entry_deleted", "entry_id", id.String(), "error", err)
		}
	}

	return prior, nil
}

// Asset read side

func (s *service) OpenAsset(ctx context.Context, ref string) (io.ReadCloser, error) {
	return s.assets.Open(ctx, ref)
}

func (s *service) StatAsset(ctx context.Context, ref string) (*AssetMeta, error) {
	return s.assets.Stat(ctx, ref)
}

// Helper methods

// storeParts persists parts in order. On the first failure it stops and
// returns an UploadError listing prior plus everything stored by this call.
func (s *service) storeParts(ctx context.Context, op string, kind FileKind, parts []FilePart, prior []string) ([]string, error) {
	refs := make([]string, 0, len(parts))
	for _, p := range parts {
		ref, err := s.assets.Store(ctx, p.Content, StoreParams{
			OriginalName: p.FileName,
			ContentType:  normalizeContentType(p.ContentType),
			Kind:         kind,
		})
		if err != nil {
			if !errors.Is(err, ErrStoreUnavailable) {
				err = &StorageError{Key: p.FileName, Op: "store", Err: err}
			}
			stored := concatRefs(prior, refs)
			s.handleOrphans(ctx, op, stored)
			return nil, &UploadError{Op: op, FileName: p.FileName, StoredRefs: stored, Err: err}
		}
		refs = append(refs, ref)
	}
	return refs, nil
}

// handleOrphans logs refs left behind by an aborted operation, deleting them
// first when orphan cleanup is enabled
func (s *service) handleOrphans(ctx context.Context, op string, refs []string) {
	if len(refs) == 0 {
		return
	}
	if !s.orphanCleanup {
		s.logger.WarnContext(ctx, "aborted upload left orphaned assets", "op", op, "refs", refs)
		return
	}
	// the request context may already be cancelled; cleanup must still run
	cleanupCtx := context.WithoutCancel(ctx)
	for _, ref := range refs {
		if err := s.assets.Delete(cleanupCtx, ref); err != nil {
			s.logger.WarnContext(ctx, "orphan cleanup failed", "op", op, "ref", ref, "error", err)
		}
	}
}

func (s *service) evict(ctx context.Context, id uuid.UUID, refs []string) {
	for _, ref := range refs {
		if err := s.assets.Delete(ctx, ref); err != nil && !errors.Is(err, ErrAssetNotFound) {
			s.logger.WarnContext(ctx, "asset eviction failed", "entry_id", id.String(), "ref", ref, "error", err)
		}
	}
}

func concatRefs(a, b []string) []string {
	out := make([]string, 0, len(a)+len(b))
	out = append(out, a...)
	return append(out, b...)
}
