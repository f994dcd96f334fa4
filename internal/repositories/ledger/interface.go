package ledger

import (
	"context"
	"time"

	"github.com/avolkov/snapsync/internal/models"
)

// UploadRecord is the outcome of a successful transfer, as written to the
// ledger by the sync pipeline.
type UploadRecord struct {
	LocalAssetID   string
	Fingerprint    string
	MediaType      models.MediaType
	RemoteAssetID  string
	RemoteChecksum string
	CreationDate   *time.Time
}

// FailureRecord is the outcome of an exhausted or non-retryable transfer.
type FailureRecord struct {
	LocalAssetID string
	Fingerprint  string
	MediaType    models.MediaType
	CreationDate *time.Time
	ErrorDetail  string
}

// Repository is the durable upload ledger. It owns the upload-once invariant:
// a record that reaches uploaded status never leaves it, and at most one
// uploaded record exists per non-empty fingerprint.
//
// HasUploadedAsset and HasUploadedFingerprint are the authoritative
// pre-transfer gates. Callers must fail closed on a read error: treat the
// asset as uploaded and skip it rather than risk a duplicate.
type Repository interface {
	// HasUploadedAsset reports whether the asset with this local ID has an
	// uploaded record.
	HasUploadedAsset(ctx context.Context, localAssetID string) (bool, error)

	// HasUploadedFingerprint reports whether any asset with this content
	// fingerprint has an uploaded record. An empty fingerprint never matches.
	HasUploadedFingerprint(ctx context.Context, fingerprint string) (bool, error)

	// RecordUpload marks an asset uploaded. It is an idempotent upsert run in
	// a single transaction: a no-op when the asset is already uploaded, and a
	// no-op when a different asset already holds the same fingerprint.
	RecordUpload(ctx context.Context, rec UploadRecord) error

	// RecordFailure stores the last failure for an asset. It never downgrades
	// an uploaded record.
	RecordFailure(ctx context.Context, rec FailureRecord) error

	// MarkForReupload flips an uploaded record back to new so the next run
	// transfers it again. This is the only sanctioned way out of uploaded
	// status; it exists for reconciliation's missing-asset action and must
	// only run on an explicit user decision.
	MarkForReupload(ctx context.Context, localAssetID string) error

	// TouchLastSeen refreshes last_seen_at for the given assets.
	TouchLastSeen(ctx context.Context, localAssetIDs []string) error

	// Get returns the record for one asset, or common.ErrNotFound.
	Get(ctx context.Context, localAssetID string) (*models.LedgerRecord, error)

	// Stats returns record counts grouped by status.
	Stats(ctx context.Context) (map[models.Status]int, error)

	// RecordsByStatus lists all records in the given status.
	RecordsByStatus(ctx context.Context, status models.Status) ([]models.LedgerRecord, error)

	// Reset deletes every record. Destructive; callers must confirm with the
	// user and log the operation.
	Reset(ctx context.Context) error
}
