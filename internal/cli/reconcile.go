package cli

import (
	"context"
	"fmt"

	"github.com/avolkov/snapsync/internal/models"
)

// Reconcile builds a fresh report, stores its findings as pending conflicts
// and prints them. Nothing is repaired here; see Resolve.
func (a *App) Reconcile(ctx context.Context) error {
	report, err := a.reconcile.Report(ctx)
	if err != nil {
		return err
	}

	if len(report.Orphaned)+len(report.Missing)+len(report.Mismatched) == 0 {
		fmt.Fprintln(a.out, "Ledger and server agree.")
		return nil
	}

	added, err := a.reconcile.Record(ctx, report)
	if err != nil {
		return err
	}

	for _, r := range report.Orphaned {
		fmt.Fprintf(a.out, "orphaned   remote %s (%s): on the server, not in the ledger\n",
			r.RemoteID, r.OriginalFilename)
	}
	for _, rec := range report.Missing {
		fmt.Fprintf(a.out, "missing    %s: uploaded, but gone from the server\n", rec.LocalAssetID)
	}
	for _, m := range report.Mismatched {
		fmt.Fprintf(a.out, "mismatch   %s: server checksum changed (%s -> %s)\n",
			m.Record.LocalAssetID, m.LedgerChecksum, m.RemoteChecksum)
	}

	fmt.Fprintf(a.out, "\n%d new conflict(s) stored.\n", added)

	pending, err := a.conflicts.Pending(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "%d pending in total. Resolve with:\n", len(pending))
	for _, c := range pending {
		fmt.Fprintf(a.out, "  snapsync resolve %s <%s>\n", c.ID, resolutionsFor(c.Type))
	}
	return nil
}

func resolutionsFor(conflictType string) string {
	switch conflictType {
	case models.ConflictTypeOrphanedRemote:
		return models.ResolutionDeleteRemote + "|" + models.ResolutionIgnore
	case models.ConflictTypeMissingRemote, models.ConflictTypeChecksumMismatch:
		return models.ResolutionReupload + "|" + models.ResolutionIgnore
	default:
		return models.ResolutionIgnore
	}
}

// Resolve applies a user decision to one pending conflict.
func (a *App) Resolve(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("usage: snapsync resolve <conflict-id> <%s|%s|%s>",
			models.ResolutionDeleteRemote, models.ResolutionReupload, models.ResolutionIgnore)
	}
	if err := a.reconcile.Resolve(ctx, args[0], args[1]); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Conflict %s resolved: %s\n", args[0], args[1])
	return nil
}
