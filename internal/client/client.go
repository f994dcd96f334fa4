// Package client implements the media-server API client used for uploads
// and reconciliation listings.
package client

import (
	"context"
	"time"

	"github.com/avolkov/snapsync/internal/models"
)

// UploadRequest carries one asset to the server. Bytes are materialized by
// the caller immediately before the call and never reused across retries.
type UploadRequest struct {
	Data         []byte
	Filename     string
	MediaType    models.MediaType
	CreationDate *time.Time
}

// UploadResult is the server's answer to an upload.
type UploadResult struct {
	RemoteID string `json:"id"`
	Checksum string `json:"checksum"`
	// Duplicate is the server-side dedup hint: true when the server already
	// had this content and returned the existing asset instead of storing a
	// new one.
	Duplicate bool `json:"duplicate"`
}

// Client is the upload and inspection surface of the media server. Every
// call carries the client's device tag so reconciliation can scope the
// server listing to assets this client uploaded.
type Client interface {
	// Upload transfers one asset.
	Upload(ctx context.Context, req UploadRequest) (*UploadResult, error)

	// ListUploadedByThisClient returns every asset the server holds for
	// this device tag.
	ListUploadedByThisClient(ctx context.Context) ([]models.RemoteAssetSummary, error)

	// Delete removes the given remote assets.
	Delete(ctx context.Context, remoteIDs []string) error

	// CheckExisting maps each known content hash to the remote ID holding it.
	// Hashes unknown to the server are absent from the result.
	CheckExisting(ctx context.Context, hashes []string) (map[string]string, error)

	// Ping verifies connectivity and credentials.
	Ping(ctx context.Context) error
}
