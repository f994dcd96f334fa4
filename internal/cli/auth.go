package cli

import (
	"context"
	"fmt"

	"github.com/avolkov/snapsync/internal/client"
	"github.com/avolkov/snapsync/internal/common"
)

// Login reads the media server API key without echo, verifies it against the
// server and stores it encrypted in the data directory.
func (a *App) Login(ctx context.Context) error {
	key, err := GetAPIKey(a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(key)

	if len(key) == 0 {
		return fmt.Errorf("empty API key")
	}

	// Verify before persisting so a typo does not poison later runs.
	probe := client.NewHTTPClient(a.config.ServerURL, a.config.DeviceID, string(key),
		client.WithTimeout(a.config.RequestTimeout))
	if err := probe.Ping(ctx); err != nil {
		return fmt.Errorf("server rejected the key: %w", err)
	}

	if err := a.creds.Set(ctx, key); err != nil {
		return fmt.Errorf("store credentials: %w", err)
	}

	a.api = probe
	fmt.Fprintln(a.out, "API key verified and stored.")
	return nil
}

// Logout removes the stored API key.
func (a *App) Logout(ctx context.Context) error {
	if err := a.creds.Delete(ctx); err != nil {
		return fmt.Errorf("remove credentials: %w", err)
	}
	fmt.Fprintln(a.out, "Credentials removed.")
	return nil
}
