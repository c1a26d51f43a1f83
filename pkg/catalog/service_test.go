package catalog_test

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-catalog/pkg/catalog"
	"github.com/tendant/simple-catalog/pkg/catalog/repo/memory"
	memorystorage "github.com/tendant/simple-catalog/pkg/catalog/storage/memory"
)

func TestServiceCreation(t *testing.T) {
	tests := []struct {
		name        string
		options     []catalog.Option
		expectError bool
	}{
		{
			name:        "no options should fail",
			options:     []catalog.Option{},
			expectError: true,
		},
		{
			name: "repository without asset store should fail",
			options: []catalog.Option{
				catalog.WithRepository(memory.New()),
			},
			expectError: true,
		},
		{
			name: "with repository and asset store should succeed",
			options: []catalog.Option{
				catalog.WithRepository(memory.New()),
				catalog.WithAssetStore(memorystorage.New()),
			},
			expectError: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, err := catalog.New(tt.options...)

			if tt.expectError {
				assert.Error(t, err)
				assert.Nil(t, svc)
			} else {
				assert.NoError(t, err)
				assert.NotNil(t, svc)
			}
		})
	}
}

type fixture struct {
	svc    catalog.Service
	repo   *memory.Repository
	store  *memorystorage.Backend
	events *recordingSink
}

func setupTestService(t *testing.T, opts ...catalog.Option) fixture {
	f := fixture{
		repo:   memory.New(),
		store:  memorystorage.New(),
		events: &recordingSink{},
	}
	base := []catalog.Option{
		catalog.WithRepository(f.repo),
		catalog.WithAssetStore(f.store),
		catalog.WithEventSink(f.events),
	}
	svc, err := catalog.New(append(base, opts...)...)
	require.NoError(t, err)
	f.svc = svc
	return f
}

func createRequest(owner, title string, parts ...catalog.FilePart) catalog.CreateUploadRequest {
	if parts == nil {
		parts = []catalog.FilePart{
			filePart("thumbnail", "thumb.jpg", "image/jpeg", "jpeg-bytes"),
			filePart("video", "clip.mp4", "video/mp4", "mp4-bytes"),
		}
	}
	return catalog.CreateUploadRequest{OwnerID: owner, Title: title, Description: "desc", Parts: parts}
}

func filePart(field, name, contentType, body string) catalog.FilePart {
	return catalog.FilePart{
		Field:       field,
		FileName:    name,
		ContentType: contentType,
		Size:        int64(len(body)),
		Content:     strings.NewReader(body),
	}
}

func readAsset(t *testing.T, svc catalog.Service, ref string) string {
	t.Helper()
	rc, err := svc.OpenAsset(context.Background(), ref)
	require.NoError(t, err)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	return string(data)
}

func TestSunsetScenario(t *testing.T) {
	f := setupTestService(t)
	ctx := context.Background()

	created, err := f.svc.CreateUpload(ctx, createRequest("user-1", "Sunset"))
	require.NoError(t, err)
	assert.Equal(t, "Sunset", created.Title)
	assert.Equal(t, "user-1", created.OwnerID)
	require.Len(t, created.ThumbnailRefs, 1)
	require.Len(t, created.VideoRefs, 1)

	newTitle := "Sunset 2"
	updated, err := f.svc.UpdateUpload(ctx, catalog.UpdateUploadRequest{ID: created.ID.String(), Title: &newTitle})
	require.NoError(t, err)
	assert.Equal(t, "Sunset 2", updated.Title)
	assert.Equal(t, created.ThumbnailRefs, updated.ThumbnailRefs)
	assert.Equal(t, created.VideoRefs, updated.VideoRefs)

	deleted, err := f.svc.DeleteEntry(ctx, created.ID.String())
	require.NoError(t, err)
	assert.Equal(t, "Sunset 2", deleted.Title)

	_, err = f.svc.GetEntry(ctx, created.ID.String())
	assert.Equal(t, catalog.KindNotFound, catalog.KindOf(err))

	assert.Equal(t, []string{"created", "updated", "deleted"}, f.events.names())
}

func TestCreateUpload_RoundTrip(t *testing.T) {
	f := setupTestService(t)
	ctx := context.Background()

	req := createRequest("user-1", "Multi",
		filePart("thumbnail", "a.jpg", "image/jpeg", "thumb-a"),
		filePart("video", "a.mp4", "video/mp4", "video-a"),
		filePart("thumbnails", "b.png", "image/png", "thumb-b"),
		filePart("video", "b.mp4", "video/mp4", "video-b"),
		filePart("videos", "c.mp4", "video/mp4", "video-c"),
	)
	entry, err := f.svc.CreateUpload(ctx, req)
	require.NoError(t, err)
	require.Len(t, entry.ThumbnailRefs, 2)
	require.Len(t, entry.VideoRefs, 3)

	assert.Equal(t, "thumb-a", readAsset(t, f.svc, entry.ThumbnailRefs[0]))
	assert.Equal(t, "thumb-b", readAsset(t, f.svc, entry.ThumbnailRefs[1]))
	assert.Equal(t, "video-a", readAsset(t, f.svc, entry.VideoRefs[0]))
	assert.Equal(t, "video-b", readAsset(t, f.svc, entry.VideoRefs[1]))
	assert.Equal(t, "video-c", readAsset(t, f.svc, entry.VideoRefs[2]))

	meta, err := f.svc.StatAsset(ctx, entry.VideoRefs[0])
	require.NoError(t, err)
	assert.Equal(t, "video/mp4", meta.ContentType)

	got, err := f.svc.GetEntry(ctx, entry.ID.String())
	require.NoError(t, err)
	assert.Equal(t, entry, got)
}

func TestCreateUpload_ValidationPrecedence(t *testing.T) {
	longTitle := strings.Repeat("x", 51)
	badPart := filePart("thumbnail", "a.gif", "image/gif", "gif")

	tests := []struct {
		name string
		req  catalog.CreateUploadRequest
		want catalog.Kind
	}{
		{
			name: "missing owner beats everything",
			req:  createRequest("  ", longTitle, badPart),
			want: catalog.KindMissingOwner,
		},
		{
			name: "invalid part beats missing files",
			req:  createRequest("user-1", longTitle, badPart),
			want: catalog.KindInvalidFilePart,
		},
		{
			name: "unknown field",
			req: createRequest("user-1", "ok",
				filePart("thumbnail", "a.jpg", "image/jpeg", "a"),
				filePart("video", "a.mp4", "video/mp4", "a"),
				filePart("poster", "p.jpg", "image/jpeg", "p"),
			),
			want: catalog.KindInvalidFilePart,
		},
		{
			name: "missing video",
			req:  createRequest("user-1", longTitle, filePart("thumbnail", "a.jpg", "image/jpeg", "a")),
			want: catalog.KindMissingRequiredFiles,
		},
		{
			name: "title too long",
			req:  createRequest("user-1", longTitle),
			want: catalog.KindInvalidField,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := setupTestService(t)
			entry, err := f.svc.CreateUpload(context.Background(), tt.req)
			require.Error(t, err)
			assert.Nil(t, entry)
			assert.Equal(t, tt.want, catalog.KindOf(err))

			assert.Equal(t, 0, f.store.Len(), "no file may be stored")
			list, err := f.svc.ListEntries(context.Background())
			require.NoError(t, err)
			assert.Empty(t, list)
			assert.Empty(t, f.events.names())
		})
	}
}

func TestUpdateUpload_ReplacesRefs(t *testing.T) {
	f := setupTestService(t)
	ctx := context.Background()

	created, err := f.svc.CreateUpload(ctx, createRequest("user-1", "Original"))
	require.NoError(t, err)

	updated, err := f.svc.UpdateUpload(ctx, catalog.UpdateUploadRequest{
		ID: created.ID.String(),
		Parts: []catalog.FilePart{
			filePart("video", "new1.mp4", "video/mp4", "new-1"),
			filePart("video", "new2.mp4", "video/mp4", "new-2"),
		},
	})
	require.NoError(t, err)

	assert.Equal(t, "Original", updated.Title)
	assert.Equal(t, "desc", updated.Description)
	assert.Equal(t, created.ThumbnailRefs, updated.ThumbnailRefs)
	require.Len(t, updated.VideoRefs, 2, "refs are replaced, not appended")
	assert.NotContains(t, updated.VideoRefs, created.VideoRefs[0])
	assert.Equal(t, "new-1", readAsset(t, f.svc, updated.VideoRefs[0]))

	// replaced blobs stay without eviction
	assert.Equal(t, "mp4-bytes", readAsset(t, f.svc, created.VideoRefs[0]))
}

func TestUpdateUpload_EmptyStringClearsText(t *testing.T) {
	f := setupTestService(t)
	ctx := context.Background()

	created, err := f.svc.CreateUpload(ctx, createRequest("user-1", "Title"))
	require.NoError(t, err)

	empty := ""
	updated, err := f.svc.UpdateUpload(ctx, catalog.UpdateUploadRequest{ID: created.ID.String(), Description: &empty})
	require.NoError(t, err)
	assert.Equal(t, "Title", updated.Title)
	assert.Equal(t, "", updated.Description)
}

func TestUpdateUpload_NoChanges(t *testing.T) {
	f := setupTestService(t)
	ctx := context.Background()

	created, err := f.svc.CreateUpload(ctx, createRequest("user-1", "Same"))
	require.NoError(t, err)

	got, err := f.svc.UpdateUpload(ctx, catalog.UpdateUploadRequest{ID: created.ID.String()})
	require.NoError(t, err)
	assert.Equal(t, created, got)
	assert.Equal(t, []string{"created"}, f.events.names())
}

func TestUpdateUpload_Errors(t *testing.T) {
	f := setupTestService(t)
	ctx := context.Background()

	created, err := f.svc.CreateUpload(ctx, createRequest("user-1", "Target"))
	require.NoError(t, err)
	stored := f.store.Len()

	long := strings.Repeat("d", 201)
	tests := []struct {
		name string
		req  catalog.UpdateUploadRequest
		want catalog.Kind
	}{
		{"malformed id", catalog.UpdateUploadRequest{ID: "not-an-id"}, catalog.KindInvalidIdentifier},
		{"unknown id", catalog.UpdateUploadRequest{ID: uuid.NewString()}, catalog.KindNotFound},
		{"bad part", catalog.UpdateUploadRequest{
			ID:    created.ID.String(),
			Parts: []catalog.FilePart{filePart("video", "x.mov", "video/quicktime", "x")},
		}, catalog.KindInvalidFilePart},
		{"description too long", catalog.UpdateUploadRequest{
			ID:          created.ID.String(),
			Description: &long,
			Parts:       []catalog.FilePart{filePart("video", "x.mp4", "video/mp4", "x")},
		}, catalog.KindInvalidField},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.UpdateUpload(ctx, tt.req)
			assert.Equal(t, tt.want, catalog.KindOf(err))
		})
	}

	assert.Equal(t, stored, f.store.Len(), "rejected updates store nothing")
	got, err := f.svc.GetEntry(ctx, created.ID.String())
	require.NoError(t, err)
	assert.Equal(t, created, got)
}

func TestSearchEntries(t *testing.T) {
	f := setupTestService(t)
	ctx := context.Background()

	for _, title := range []string{"Sunset at the beach", "Morning run", "SUNSET drive"} {
		_, err := f.svc.CreateUpload(ctx, createRequest("user-1", title))
		require.NoError(t, err)
	}

	found, err := f.svc.SearchEntries(ctx, "sunset")
	require.NoError(t, err)
	assert.Len(t, found, 2)

	found, err = f.svc.SearchEntries(ctx, "")
	require.NoError(t, err)
	assert.Len(t, found, 3)

	found, err = f.svc.SearchEntries(ctx, "evening")
	require.NoError(t, err)
	assert.Empty(t, found)
}

func TestIdentifierIntegrity(t *testing.T) {
	f := setupTestService(t)
	ctx := context.Background()

	for _, raw := range []string{"", "123", "zzzzzzzz-zzzz-zzzz-zzzz-zzzzzzzzzzzz"} {
		_, err := f.svc.GetEntry(ctx, raw)
		assert.Equal(t, catalog.KindInvalidIdentifier, catalog.KindOf(err), raw)
		_, err = f.svc.DeleteEntry(ctx, raw)
		assert.Equal(t, catalog.KindInvalidIdentifier, catalog.KindOf(err), raw)
	}

	_, err := f.svc.GetEntry(ctx, uuid.NewString())
	assert.Equal(t, catalog.KindNotFound, catalog.KindOf(err))
	_, err = f.svc.DeleteEntry(ctx, uuid.NewString())
	assert.Equal(t, catalog.KindNotFound, catalog.KindOf(err))

	_, err = f.svc.GetEntry(ctx, uuid.Nil.String())
	assert.Equal(t, catalog.KindNotFound, catalog.KindOf(err), "nil uuid is well formed")
	title := "x"
	_, err = f.svc.UpdateUpload(ctx, catalog.UpdateUploadRequest{ID: uuid.Nil.String(), Title: &title})
	assert.Equal(t, catalog.KindNotFound, catalog.KindOf(err))
}

func TestCreateUpload_PartialFailure(t *testing.T) {
	for _, cleanup := range []bool{false, true} {
		name := "orphans kept"
		if cleanup {
			name = "orphans cleaned"
		}
		t.Run(name, func(t *testing.T) {
			repo := memory.New()
			inner := memorystorage.New()
			store := &failingStore{AssetStore: inner, failOn: 3}

			svc, err := catalog.New(
				catalog.WithRepository(repo),
				catalog.WithAssetStore(store),
				catalog.WithOrphanCleanup(cleanup),
			)
			require.NoError(t, err)

			_, err = svc.CreateUpload(context.Background(), createRequest("user-1", "Broken",
				filePart("thumbnail", "a.jpg", "image/jpeg", "a"),
				filePart("video", "a.mp4", "video/mp4", "a"),
				filePart("video", "b.mp4", "video/mp4", "b"),
			))
			require.Error(t, err)
			assert.Equal(t, catalog.KindPartialUploadFailure, catalog.KindOf(err))
			assert.ErrorIs(t, err, catalog.ErrStoreUnavailable)

			var upErr *catalog.UploadError
			require.True(t, errors.As(err, &upErr))
			assert.Equal(t, "b.mp4", upErr.FileName)
			assert.Len(t, upErr.StoredRefs, 2)

			if cleanup {
				assert.Equal(t, 0, inner.Len())
			} else {
				assert.Equal(t, 2, inner.Len())
			}

			list, err := repo.ListEntries(context.Background())
			require.NoError(t, err)
			assert.Empty(t, list, "no entry after a partial failure")
		})
	}
}

func TestUpdateUpload_PartialFailure(t *testing.T) {
	repo := memory.New()
	inner := memorystorage.New()
	// calls 1 and 2 belong to the create, the update fails on its second thumbnail
	store := &failingStore{AssetStore: inner, failOn: 4}

	svc, err := catalog.New(
		catalog.WithRepository(repo),
		catalog.WithAssetStore(store),
	)
	require.NoError(t, err)
	ctx := context.Background()

	created, err := svc.CreateUpload(ctx, createRequest("user-1", "x"))
	require.NoError(t, err)
	require.Equal(t, 2, inner.Len())

	renamed := "renamed"
	_, err = svc.UpdateUpload(ctx, catalog.UpdateUploadRequest{
		ID:    created.ID.String(),
		Title: &renamed,
		Parts: []catalog.FilePart{
			filePart("thumbnail", "one.png", "image/png", "one"),
			filePart("thumbnail", "two.png", "image/png", "two"),
			filePart("video", "new.mp4", "video/mp4", "mp4"),
		},
	})
	require.Error(t, err)
	assert.Equal(t, catalog.KindPartialUploadFailure, catalog.KindOf(err))
	assert.ErrorIs(t, err, catalog.ErrStoreUnavailable)

	var upErr *catalog.UploadError
	require.True(t, errors.As(err, &upErr))
	assert.Equal(t, "update", upErr.Op)
	assert.Equal(t, "two.png", upErr.FileName)
	require.Len(t, upErr.StoredRefs, 1)
	assert.Equal(t, "one", readAsset(t, svc, upErr.StoredRefs[0]), "written blob is left in place")
	assert.Equal(t, 3, inner.Len())

	got, err := svc.GetEntry(ctx, created.ID.String())
	require.NoError(t, err)
	assert.Equal(t, "x", got.Title)
	assert.Equal(t, created.ThumbnailRefs, got.ThumbnailRefs)
	assert.Equal(t, created.VideoRefs, got.VideoRefs)
	assert.NotContains(t, got.ThumbnailRefs, upErr.StoredRefs[0])
}

func TestDeleteEntry_EvictOnDelete(t *testing.T) {
	f := setupTestService(t, catalog.WithEvictOnDelete(true))
	ctx := context.Background()

	created, err := f.svc.CreateUpload(ctx, createRequest("user-1", "Evict"))
	require.NoError(t, err)
	require.Equal(t, 2, f.store.Len())

	_, err = f.svc.UpdateUpload(ctx, catalog.UpdateUploadRequest{
		ID:    created.ID.String(),
		Parts: []catalog.FilePart{filePart("thumbnail", "new.png", "image/png", "png")},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, f.store.Len(), "replaced thumbnail is evicted")

	_, err = f.svc.DeleteEntry(ctx, created.ID.String())
	require.NoError(t, err)
	assert.Equal(t, 0, f.store.Len())
}

func TestConcurrentCreates(t *testing.T) {
	f := setupTestService(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.CreateUpload(ctx, createRequest("user-1", "parallel"))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	list, err := f.svc.ListEntries(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 20)
	assert.Equal(t, 40, f.store.Len())
}

// failingStore fails the failOn-th Store call
type failingStore struct {
	catalog.AssetStore
	mu     sync.Mutex
	calls  int
	failOn int
}

func (s *failingStore) Store(ctx context.Context, r io.Reader, params catalog.StoreParams) (string, error) {
	s.mu.Lock()
	s.calls++
	n := s.calls
	s.mu.Unlock()
	if n == s.failOn {
		return "", errors.New("disk full")
	}
	return s.AssetStore.Store(ctx, r, params)
}

type recordingSink struct {
	mu     sync.Mutex
	events []string
}

func (s *recordingSink) record(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, name)
	return nil
}

func (s *recordingSink) names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.events...)
}

func (s *recordingSink) EntryCreated(ctx context.Context, e *catalog.Entry) error {
	return s.record("created")
}

func (s *recordingSink) EntryUpdated(ctx context.Context, e *catalog.Entry) error {
	return s.record("updated")
}

func (s *recordingSink) EntryDeleted(ctx context.Context, e *catalog.Entry) error {
	return s.record("deleted")
}
