package models

import (
	"time"

	"github.com/google/uuid"
)

// ReconcileReport is the derived diff between the ledger's view of server
// state and the server's actual state. It is computed on demand and never
// persisted; only Conflicts derived from it are stored.
type ReconcileReport struct {
	// Orphaned are remote assets with no uploaded ledger record.
	Orphaned []RemoteAssetSummary
	// Missing are uploaded ledger records whose remote asset is gone.
	Missing []LedgerRecord
	// Mismatched are pairs present on both sides whose stored server
	// checksum disagrees with the server's current report.
	Mismatched []ChecksumMismatch

	CheckedAt time.Time
}

// ChecksumMismatch pairs a ledger record with the conflicting server view.
type ChecksumMismatch struct {
	Record         LedgerRecord
	Remote         RemoteAssetSummary
	LedgerChecksum string
	RemoteChecksum string
}

// Conflict type constants.
const (
	ConflictTypeOrphanedRemote   = "orphaned_remote"
	ConflictTypeMissingRemote    = "missing_remote"
	ConflictTypeChecksumMismatch = "checksum_mismatch"
)

// Conflict resolution constants.
const (
	ResolutionDeleteRemote = "delete_remote"
	ResolutionReupload     = "reupload"
	ResolutionIgnore       = "ignore"
)

// Conflict is one reconciliation finding awaiting a user decision.
// Conflicts are created by the reconciliation engine and mutated only via
// an explicit resolve operation, never automatically.
type Conflict struct {
	ID           string
	Type         string
	LocalAssetID string // empty for orphaned remote assets
	RemoteID     string // empty for missing remote assets
	Detail       string
	DetectedAt   time.Time
	ResolvedAt   *time.Time
	Resolution   string // empty until resolved
}

// NewConflict creates an unresolved Conflict with a fresh ID.
func NewConflict(conflictType, localAssetID, remoteID, detail string) *Conflict {
	return &Conflict{
		ID:           uuid.NewString(),
		Type:         conflictType,
		LocalAssetID: localAssetID,
		RemoteID:     remoteID,
		Detail:       detail,
		DetectedAt:   time.Now().UTC(),
	}
}
