// Package common contains shared constants and sentinel errors used across
// snapsync components.
package common

// APIKeyHeaderName is the HTTP header carrying the API key on outbound
// requests to the media server.
const APIKeyHeaderName = "X-Api-Key"

// DeviceIDHeaderName is the HTTP header carrying the client device tag.
// The server stores it with every uploaded asset, which lets reconciliation
// list exactly the assets this client uploaded.
const DeviceIDHeaderName = "X-Device-Id"
