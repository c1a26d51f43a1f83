package postgres

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-catalog/pkg/catalog"
)

func TestEscapeLike(t *testing.T) {
	assert.Equal(t, `100\%`, escapeLike("100%"))
	assert.Equal(t, `a\_b`, escapeLike("a_b"))
	assert.Equal(t, `c:\\dir`, escapeLike(`c:\dir`))
	assert.Equal(t, "sunset", escapeLike("sunset"))
}

func setupTestDB(t *testing.T) *Repository {
	if testing.Short() {
		t.Skip("skipping postgres test in short mode")
	}
	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dbURL)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	require.NoError(t, EnsureSchema(ctx, pool))
	_, err = pool.Exec(ctx, "TRUNCATE catalog_entry")
	require.NoError(t, err)

	return NewWithPool(pool)
}

func TestPostgresRepository_EntryLifecycle(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()

	entry := &catalog.Entry{
		ID:            uuid.New(),
		Title:         "Sunset",
		Description:   "over the bay",
		ThumbnailRefs: []string{"t1"},
		VideoRefs:     []string{"v1", "v2"},
		OwnerID:       "user-1",
	}
	require.NoError(t, repo.CreateEntry(ctx, entry))

	got, err := repo.GetEntry(ctx, entry.ID)
	require.NoError(t, err)
	assert.Equal(t, entry.Title, got.Title)
	assert.Equal(t, []string{"v1", "v2"}, got.VideoRefs)

	title := "Sunset 2"
	updated, err := repo.UpdateEntry(ctx, entry.ID, catalog.EntryPatch{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, "Sunset 2", updated.Title)
	assert.Equal(t, "over the bay", updated.Description)
	assert.Equal(t, []string{"t1"}, updated.ThumbnailRefs)

	updated, err = repo.UpdateEntry(ctx, entry.ID, catalog.EntryPatch{ThumbnailRefs: []string{"t9"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"t9"}, updated.ThumbnailRefs)
	assert.Equal(t, []string{"v1", "v2"}, updated.VideoRefs)

	found, err := repo.SearchEntries(ctx, "SUNSET")
	require.NoError(t, err)
	assert.Len(t, found, 1)

	found, err = repo.SearchEntries(ctx, "%")
	require.NoError(t, err)
	assert.Empty(t, found)

	prior, err := repo.DeleteEntry(ctx, entry.ID)
	require.NoError(t, err)
	assert.Equal(t, "Sunset 2", prior.Title)

	_, err = repo.GetEntry(ctx, entry.ID)
	assert.ErrorIs(t, err, catalog.ErrNotFound)
	_, err = repo.DeleteEntry(ctx, entry.ID)
	assert.ErrorIs(t, err, catalog.ErrNotFound)
	_, err = repo.UpdateEntry(ctx, entry.ID, catalog.EntryPatch{Title: &title})
	assert.ErrorIs(t, err, catalog.ErrNotFound)

	list, err := repo.ListEntries(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
}
