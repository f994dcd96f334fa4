// Package credentials stores the media-server API key. The core never
// persists the secret in plain text and never embeds it in the ledger or
// checkpoint artifacts.
package credentials

import "context"

// Store holds at most one opaque secret.
type Store interface {
	// Get returns the stored secret, or common.ErrNoCredentials.
	Get(ctx context.Context) ([]byte, error)

	// Set stores the secret, replacing any previous one.
	Set(ctx context.Context, secret []byte) error

	// Delete removes the secret. Deleting a missing secret is not an error.
	Delete(ctx context.Context) error
}
