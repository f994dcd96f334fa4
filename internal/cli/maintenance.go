package cli

import (
	"context"
	"fmt"

	"github.com/avolkov/snapsync/internal/db"
)

// Reset deletes every ledger record and the checkpoint after a typed
// confirmation. The server is not touched.
func (a *App) Reset(ctx context.Context) error {
	answer, err := GetSimpleText(a.reader,
		"This deletes every ledger record; already-uploaded assets will be re-uploaded on the next sync.\nType 'reset' to confirm", a.out)
	if err != nil {
		return err
	}
	if answer != "reset" {
		fmt.Fprintln(a.out, "Aborted.")
		return nil
	}

	if err := a.ledger.Reset(ctx); err != nil {
		return fmt.Errorf("reset ledger: %w", err)
	}
	if err := a.checkpoints.Clear(ctx); err != nil {
		return fmt.Errorf("clear checkpoint: %w", err)
	}

	a.log.Warn(ctx, "ledger reset by user")
	fmt.Fprintln(a.out, "Ledger cleared.")
	return nil
}

// Flush folds the write-ahead log into the main database file so the ledger
// is a single file for backup or export.
func (a *App) Flush(ctx context.Context) error {
	if err := db.Flush(ctx, a.conn); err != nil {
		return fmt.Errorf("flush ledger: %w", err)
	}
	fmt.Fprintln(a.out, "Ledger flushed.")
	return nil
}
