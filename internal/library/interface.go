// Package library defines the read-only source of local assets and a
// filesystem-backed implementation.
package library

import (
	"context"

	"github.com/avolkov/snapsync/internal/models"
)

// Library enumerates local assets and materializes their bytes on demand.
// Implementations must never modify the source library.
type Library interface {
	// Enumerate returns handles for every asset matching the filter.
	// Handles carry metadata only; bytes are fetched via Materialize.
	Enumerate(ctx context.Context, filter models.LibraryFilter) ([]models.AssetHandle, error)

	// Materialize loads the asset's bytes and export filename. The result is
	// not cached; retrying a transfer materializes again.
	Materialize(ctx context.Context, handle models.AssetHandle) (*models.Asset, error)

	// ResourceInfo returns the asset's filename and size without reading it.
	ResourceInfo(ctx context.Context, handle models.AssetHandle) (*models.ResourceInfo, error)
}
