package models

import "time"

// RemoteAssetSummary is one asset as reported by the media server's
// listing endpoint, scoped to this client's device tag.
type RemoteAssetSummary struct {
	RemoteID         string     `json:"id"`
	Checksum         string     `json:"checksum"`
	OriginalFilename string     `json:"originalFilename"`
	FileSize         int64      `json:"fileSize"`
	DeviceID         string     `json:"deviceId"`
	UploadedAt       *time.Time `json:"uploadedAt,omitempty"`
}
