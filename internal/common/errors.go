// Sentinel errors shared by client and core layers. Callers should use
// errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrNotFound = errors.New("not found")

	// Ledger storage errors.
	ErrLedgerUnavailable = errors.New("ledger unavailable")

	// Pipeline-level errors.
	ErrSyncInProgress       = errors.New("sync already in progress")
	ErrLibraryAccessDenied  = errors.New("library access denied")
	ErrRunCancelled         = errors.New("run cancelled")

	// Credential errors.
	ErrNoCredentials = errors.New("no credentials stored")

	// Auth errors (server rejected the stored API key).
	ErrUnauthorized = errors.New("unauthorized")
)
