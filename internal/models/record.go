// Package models defines the data model shared by the ledger, the sync
// pipeline and the reconciliation engine.
package models

import "time"

// Status is the transfer state of a ledger record.
//
// State machine: new → {uploaded, failed, blocked, ignored};
// failed → {failed, uploaded}. uploaded, blocked and ignored are terminal,
// and uploaded is never left once entered.
type Status string

const (
	StatusNew      Status = "new"
	StatusUploaded Status = "uploaded"
	StatusFailed   Status = "failed"
	StatusBlocked  Status = "blocked"
	StatusIgnored  Status = "ignored"
)

// MediaType classifies a local asset.
type MediaType string

const (
	MediaTypePhoto   MediaType = "photo"
	MediaTypeVideo   MediaType = "video"
	MediaTypeUnknown MediaType = "unknown"
)

// LedgerRecord is one row of the upload ledger: everything the client knows
// about a single local asset it has ever seen.
//
// LocalAssetID is the unique key. Once Status is StatusUploaded the record is
// frozen: RemoteAssetID, Fingerprint and FirstUploadedAt never change again.
type LedgerRecord struct {
	LocalAssetID    string
	Fingerprint     string // empty until computed; unique among uploaded records
	CreationDate    *time.Time
	MediaType       MediaType
	RemoteAssetID   string
	RemoteChecksum  string // server-reported checksum captured at upload time
	Status          Status
	FirstUploadedAt *time.Time
	LastSeenAt      time.Time
	ErrorMessage    string
	AttemptCount    int
}
