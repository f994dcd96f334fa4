// Package checkpoint persists per-run progress so an interrupted sync can
// resume without rescanning work it already finished.
//
// The checkpoint is a resumability optimization, not a correctness
// mechanism: the ledger alone guarantees upload-once, so a lost or stale
// checkpoint only costs redundant filtering.
package checkpoint

import (
	"context"

	"github.com/avolkov/snapsync/internal/models"
)

// Store persists at most one checkpoint per installation.
type Store interface {
	// Save atomically overwrites the checkpoint. A crash mid-save must never
	// leave a half-written artifact.
	Save(ctx context.Context, cp *models.Checkpoint) error

	// Load returns the last saved checkpoint, or nil when none exists.
	Load(ctx context.Context) (*models.Checkpoint, error)

	// Clear deletes the checkpoint. Deleting a missing checkpoint is not an
	// error.
	Clear(ctx context.Context) error
}
