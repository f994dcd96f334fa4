// Package ledger provides the durable upload ledger.
//
// # Overview
//
// The ledger is the single source of truth for which local assets have been
// transferred to the media server. It maps a stable local asset ID and a
// content fingerprint to a transfer status, and enforces the upload-once
// contract: an uploaded record is terminal and immutable, and at most one
// uploaded record exists per non-empty fingerprint.
//
// # Write semantics
//
// RecordUpload and RecordFailure wrap a read-check-write sequence in a single
// SQLite transaction (dbx.WithTx). The storage engine's single-writer
// transaction semantics serialize concurrent writes for the same asset or
// fingerprint; callers must never split the check and the write across two
// transactions. A partial unique index on (fingerprint) WHERE
// status='uploaded' backstops the in-transaction fingerprint check.
//
// # Read semantics
//
// HasUploadedAsset and HasUploadedFingerprint are the pre-transfer gates.
// On a read error the caller must fail closed: skip the asset as if it were
// uploaded. Missing an upload is recoverable; a duplicate upload is not.
//
// Key Types
//
//   - type Repository        — interface used by the pipeline and reconciliation
//   - type SQLiteRepository  — SQLite implementation over *sql.DB
package ledger
