package library

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/avolkov/snapsync/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, root string, rel string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o770))
	require.NoError(t, os.WriteFile(path, []byte("data-"+rel), 0o660))
}

func setupLibrary(t *testing.T) *FSLibrary {
	t.Helper()
	root := t.TempDir()
	writeFile(t, root, "vacation/beach.jpg")
	writeFile(t, root, "vacation/sunset.mov")
	writeFile(t, root, "screenshots/app.png")
	writeFile(t, root, "notes.txt")
	writeFile(t, root, ".hidden.jpg")
	return NewFSLibrary(root)
}

func TestEnumerate_FindsMediaOnly(t *testing.T) {
	l := setupLibrary(t)

	handles, err := l.Enumerate(context.Background(), models.LibraryFilter{})
	require.NoError(t, err)
	require.Len(t, handles, 3)

	ids := make([]string, 0, len(handles))
	for _, h := range handles {
		ids = append(ids, h.LocalID)
	}
	assert.Contains(t, ids, "vacation/beach.jpg")
	assert.Contains(t, ids, "vacation/sunset.mov")
	assert.Contains(t, ids, "screenshots/app.png")
}

func TestEnumerate_MediaTypeFilter(t *testing.T) {
	l := setupLibrary(t)

	videos, err := l.Enumerate(context.Background(), models.LibraryFilter{MediaType: models.MediaTypeVideo})
	require.NoError(t, err)
	require.Len(t, videos, 1)
	assert.Equal(t, "vacation/sunset.mov", videos[0].LocalID)
}

func TestEnumerate_AlbumFilters(t *testing.T) {
	l := setupLibrary(t)
	ctx := context.Background()

	included, err := l.Enumerate(ctx, models.LibraryFilter{IncludeAlbums: []string{"vacation"}})
	require.NoError(t, err)
	assert.Len(t, included, 2)

	excluded, err := l.Enumerate(ctx, models.LibraryFilter{ExcludeAlbums: []string{"vacation"}})
	require.NoError(t, err)
	require.Len(t, excluded, 1)
	assert.Equal(t, "screenshots/app.png", excluded[0].LocalID)
}

func TestEnumerate_FavoritesMarkerDirectory(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "Favorites/dog.jpg")
	writeFile(t, root, "vacation/favorites/cat.jpg")
	writeFile(t, root, "vacation/beach.jpg")
	l := NewFSLibrary(root)

	all, err := l.Enumerate(context.Background(), models.LibraryFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	for _, h := range all {
		assert.Equal(t, h.LocalID != "vacation/beach.jpg", h.Favorite, h.LocalID)
	}

	favorites, err := l.Enumerate(context.Background(), models.LibraryFilter{FavoritesOnly: true})
	require.NoError(t, err)
	require.Len(t, favorites, 2)

	ids := []string{favorites[0].LocalID, favorites[1].LocalID}
	assert.Contains(t, ids, "Favorites/dog.jpg")
	assert.Contains(t, ids, "vacation/favorites/cat.jpg")
}

func TestEnumerate_MinCreationDate(t *testing.T) {
	l := setupLibrary(t)
	future := time.Now().Add(24 * time.Hour)

	handles, err := l.Enumerate(context.Background(), models.LibraryFilter{MinCreationDate: &future})
	require.NoError(t, err)
	assert.Empty(t, handles)
}

func TestMaterialize_ReturnsBytes(t *testing.T) {
	l := setupLibrary(t)

	handles, err := l.Enumerate(context.Background(), models.LibraryFilter{MediaType: models.MediaTypePhoto})
	require.NoError(t, err)
	require.NotEmpty(t, handles)

	var beach models.AssetHandle
	for _, h := range handles {
		if h.Filename == "beach.jpg" {
			beach = h
		}
	}
	require.NotEmpty(t, beach.LocalID)

	asset, err := l.Materialize(context.Background(), beach)
	require.NoError(t, err)
	assert.Equal(t, "beach.jpg", asset.Filename)
	assert.Equal(t, []byte("data-vacation/beach.jpg"), asset.Data)
}

func TestMaterialize_MissingAsset(t *testing.T) {
	l := setupLibrary(t)
	_, err := l.Materialize(context.Background(), models.AssetHandle{LocalID: "gone.jpg", Filename: "gone.jpg"})
	assert.Error(t, err)
}

func TestResourceInfo(t *testing.T) {
	l := setupLibrary(t)

	info, err := l.ResourceInfo(context.Background(), models.AssetHandle{
		LocalID: "vacation/beach.jpg", Filename: "beach.jpg",
	})
	require.NoError(t, err)
	assert.Equal(t, "beach.jpg", info.Filename)
	assert.Equal(t, int64(len("data-vacation/beach.jpg")), info.Size)
}

func TestEnumerate_CancelledContext(t *testing.T) {
	l := setupLibrary(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := l.Enumerate(ctx, models.LibraryFilter{})
	assert.ErrorIs(t, err, context.Canceled)
}
