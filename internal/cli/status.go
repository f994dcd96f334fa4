package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/avolkov/snapsync/internal/common"
	"github.com/avolkov/snapsync/internal/models"
)

// Status prints ledger counts, checkpoint state and credential presence.
func (a *App) Status(ctx context.Context) error {
	stats, err := a.ledger.Stats(ctx)
	if err != nil {
		return fmt.Errorf("read ledger stats: %w", err)
	}

	fmt.Fprintln(a.out, "Ledger:")
	total := 0
	for _, st := range []models.Status{
		models.StatusNew, models.StatusUploaded, models.StatusFailed,
		models.StatusBlocked, models.StatusIgnored,
	} {
		if n := stats[st]; n > 0 {
			fmt.Fprintf(a.out, "  %-10s %d\n", st, n)
			total += n
		}
	}
	if total == 0 {
		fmt.Fprintln(a.out, "  empty")
	}

	cp, err := a.checkpoints.Load(ctx)
	if err != nil {
		fmt.Fprintf(a.out, "Checkpoint: unreadable (%v)\n", err)
	} else if cp == nil {
		fmt.Fprintln(a.out, "Checkpoint: none")
	} else {
		fmt.Fprintf(a.out, "Checkpoint: run %s, %d/%d processed at %s\n",
			cp.RunID, len(cp.ProcessedIDs), cp.TotalAssets,
			cp.Timestamp.Format("2006-01-02 15:04:05"))
	}

	if _, err := a.creds.Get(ctx); err == nil {
		fmt.Fprintln(a.out, "Credentials: stored")
	} else if errors.Is(err, common.ErrNoCredentials) {
		fmt.Fprintln(a.out, "Credentials: none, run 'snapsync login'")
	} else {
		fmt.Fprintf(a.out, "Credentials: unreadable (%v)\n", err)
	}

	pending, err := a.conflicts.Pending(ctx)
	if err != nil {
		return fmt.Errorf("list pending conflicts: %w", err)
	}
	if len(pending) > 0 {
		fmt.Fprintf(a.out, "Pending conflicts: %d (see 'snapsync reconcile')\n", len(pending))
	}

	return nil
}
