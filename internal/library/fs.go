package library

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/avolkov/snapsync/internal/common"
	"github.com/avolkov/snapsync/internal/models"
)

var photoExtensions = map[string]struct{}{
	".jpg": {}, ".jpeg": {}, ".png": {}, ".gif": {}, ".heic": {}, ".heif": {},
	".webp": {}, ".tiff": {}, ".tif": {}, ".dng": {}, ".raw": {}, ".cr2": {}, ".nef": {},
}

var videoExtensions = map[string]struct{}{
	".mp4": {}, ".mov": {}, ".avi": {}, ".mkv": {}, ".m4v": {}, ".webm": {}, ".3gp": {},
}

// FSLibrary treats a directory tree as the asset library. The first path
// element below the root acts as the album name; file modification time
// stands in for the creation date; a directory component named "favorites"
// (any case) marks its assets as favorites. The tree is only ever read.
type FSLibrary struct {
	root string
}

func NewFSLibrary(root string) *FSLibrary {
	return &FSLibrary{root: root}
}

func (l *FSLibrary) Enumerate(ctx context.Context, filter models.LibraryFilter) ([]models.AssetHandle, error) {
	var handles []models.AssetHandle

	err := filepath.WalkDir(l.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrPermission) {
				return fmt.Errorf("%w: %s", common.ErrLibraryAccessDenied, path)
			}
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() || strings.HasPrefix(d.Name(), ".") {
			return nil
		}

		mediaType := mediaTypeForExt(filepath.Ext(d.Name()))
		if mediaType == models.MediaTypeUnknown {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}

		rel, err := filepath.Rel(l.root, path)
		if err != nil {
			return err
		}

		modTime := info.ModTime().UTC()
		handle := models.AssetHandle{
			LocalID:      filepath.ToSlash(rel),
			Filename:     d.Name(),
			MediaType:    mediaType,
			CreationDate: &modTime,
			Favorite:     isFavoritePath(rel),
			Albums:       albumsForPath(rel),
		}

		if matchesFilter(handle, filter) {
			handles = append(handles, handle)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, fs.ErrPermission) {
			return nil, fmt.Errorf("%w: %s", common.ErrLibraryAccessDenied, l.root)
		}
		return nil, fmt.Errorf("enumerate library: %w", err)
	}
	return handles, nil
}

func (l *FSLibrary) Materialize(ctx context.Context, handle models.AssetHandle) (*models.Asset, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path := filepath.Join(l.root, filepath.FromSlash(handle.LocalID))
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrPermission) {
		return nil, fmt.Errorf("%w: %s", common.ErrLibraryAccessDenied, path)
	}
	if err != nil {
		return nil, fmt.Errorf("materialize %s: %w", handle.LocalID, err)
	}

	return &models.Asset{
		Handle:   handle,
		Filename: handle.Filename,
		Data:     data,
	}, nil
}

func (l *FSLibrary) ResourceInfo(ctx context.Context, handle models.AssetHandle) (*models.ResourceInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path := filepath.Join(l.root, filepath.FromSlash(handle.LocalID))
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", handle.LocalID, err)
	}
	return &models.ResourceInfo{Filename: handle.Filename, Size: info.Size()}, nil
}

func mediaTypeForExt(ext string) models.MediaType {
	ext = strings.ToLower(ext)
	if _, ok := photoExtensions[ext]; ok {
		return models.MediaTypePhoto
	}
	if _, ok := videoExtensions[ext]; ok {
		return models.MediaTypeVideo
	}
	return models.MediaTypeUnknown
}

func albumsForPath(rel string) []string {
	dir := filepath.Dir(rel)
	if dir == "." {
		return nil
	}
	parts := strings.Split(filepath.ToSlash(dir), "/")
	return parts[:1]
}

// isFavoritePath reports whether any directory component of rel is named
// "favorites", the marker convention for favorite assets in a plain
// directory library.
func isFavoritePath(rel string) bool {
	dir := filepath.Dir(rel)
	if dir == "." {
		return false
	}
	for _, part := range strings.Split(filepath.ToSlash(dir), "/") {
		if strings.EqualFold(part, "favorites") {
			return true
		}
	}
	return false
}

func matchesFilter(h models.AssetHandle, f models.LibraryFilter) bool {
	if f.MediaType != "" && h.MediaType != f.MediaType {
		return false
	}
	if f.FavoritesOnly && !h.Favorite {
		return false
	}
	if f.MinCreationDate != nil {
		if h.CreationDate == nil || h.CreationDate.Before(*f.MinCreationDate) {
			return false
		}
	}
	if len(f.IncludeAlbums) > 0 {
		included := false
		for _, album := range h.Albums {
			if slices.Contains(f.IncludeAlbums, album) {
				included = true
				break
			}
		}
		if !included {
			return false
		}
	}
	for _, album := range h.Albums {
		if slices.Contains(f.ExcludeAlbums, album) {
			return false
		}
	}
	return true
}
