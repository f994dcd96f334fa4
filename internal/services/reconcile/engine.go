// Package reconcile compares the ledger's view of server state against the
// media server's actual state and turns every disagreement into a conflict
// awaiting a user decision.
//
// The engine never repairs anything on its own. Report is read-only on both
// sides; DeleteOrphans and MarkForReupload exist as explicit corrective
// actions the CLI invokes after the user has chosen a resolution.
package reconcile

import (
	"context"
	"fmt"
	"time"

	"github.com/avolkov/snapsync/internal/client"
	"github.com/avolkov/snapsync/internal/logging"
	"github.com/avolkov/snapsync/internal/models"
	"github.com/avolkov/snapsync/internal/repositories/conflicts"
	"github.com/avolkov/snapsync/internal/repositories/ledger"
)

// Engine builds reconciliation reports and applies user-chosen corrections.
type Engine struct {
	ledger    ledger.Repository
	conflicts conflicts.Repository
	api       client.Client
	log       logging.Logger
}

func NewEngine(ledgerRepo ledger.Repository, conflictRepo conflicts.Repository, api client.Client, log logging.Logger) *Engine {
	if log == nil {
		log = logging.Default()
	}
	return &Engine{
		ledger:    ledgerRepo,
		conflicts: conflictRepo,
		api:       api,
		log:       log,
	}
}

// Report diffs uploaded ledger records against the server listing scoped to
// this client. Three classes of disagreement come out:
//
//   - orphaned: the server holds an asset no uploaded record points to
//   - missing: an uploaded record points to an asset the server lost
//   - mismatched: both sides have it, but the checksum stored at upload time
//     disagrees with what the server reports now
//
// A record with no stored server checksum is never reported as mismatched;
// there is nothing trustworthy to compare against.
func (e *Engine) Report(ctx context.Context) (*models.ReconcileReport, error) {
	remote, err := e.api.ListUploadedByThisClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("list remote assets: %w", err)
	}

	records, err := e.ledger.RecordsByStatus(ctx, models.StatusUploaded)
	if err != nil {
		return nil, fmt.Errorf("read uploaded records: %w", err)
	}

	remoteByID := make(map[string]models.RemoteAssetSummary, len(remote))
	for _, r := range remote {
		remoteByID[r.RemoteID] = r
	}
	claimed := make(map[string]struct{}, len(records))

	report := &models.ReconcileReport{CheckedAt: time.Now().UTC()}

	for _, rec := range records {
		r, ok := remoteByID[rec.RemoteAssetID]
		if !ok {
			report.Missing = append(report.Missing, rec)
			continue
		}
		claimed[rec.RemoteAssetID] = struct{}{}
		if rec.RemoteChecksum != "" && r.Checksum != "" && rec.RemoteChecksum != r.Checksum {
			report.Mismatched = append(report.Mismatched, models.ChecksumMismatch{
				Record:         rec,
				Remote:         r,
				LedgerChecksum: rec.RemoteChecksum,
				RemoteChecksum: r.Checksum,
			})
		}
	}

	for _, r := range remote {
		if _, ok := claimed[r.RemoteID]; !ok {
			report.Orphaned = append(report.Orphaned, r)
		}
	}

	e.log.Info(ctx, "reconciliation report built",
		"uploaded_records", len(records), "remote_assets", len(remote),
		"orphaned", len(report.Orphaned), "missing", len(report.Missing),
		"mismatched", len(report.Mismatched))

	return report, nil
}

// Record persists every finding of a report as a pending conflict, skipping
// findings that already have an unresolved conflict for the same subject.
// It returns the number of newly stored conflicts.
func (e *Engine) Record(ctx context.Context, report *models.ReconcileReport) (int, error) {
	pending, err := e.conflicts.Pending(ctx)
	if err != nil {
		return 0, fmt.Errorf("list pending conflicts: %w", err)
	}

	type key struct{ kind, local, remote string }
	seen := make(map[key]struct{}, len(pending))
	for _, c := range pending {
		seen[key{c.Type, c.LocalAssetID, c.RemoteID}] = struct{}{}
	}

	added := 0
	store := func(c *models.Conflict) error {
		k := key{c.Type, c.LocalAssetID, c.RemoteID}
		if _, ok := seen[k]; ok {
			return nil
		}
		if err := e.conflicts.Add(ctx, c); err != nil {
			return err
		}
		seen[k] = struct{}{}
		added++
		return nil
	}

	for _, r := range report.Orphaned {
		c := models.NewConflict(models.ConflictTypeOrphanedRemote, "", r.RemoteID,
			fmt.Sprintf("remote asset %s (%s) has no ledger record", r.RemoteID, r.OriginalFilename))
		if err := store(c); err != nil {
			return added, fmt.Errorf("store orphaned conflict: %w", err)
		}
	}
	for _, rec := range report.Missing {
		c := models.NewConflict(models.ConflictTypeMissingRemote, rec.LocalAssetID, rec.RemoteAssetID,
			fmt.Sprintf("uploaded asset %s is gone from the server", rec.LocalAssetID))
		if err := store(c); err != nil {
			return added, fmt.Errorf("store missing conflict: %w", err)
		}
	}
	for _, m := range report.Mismatched {
		c := models.NewConflict(models.ConflictTypeChecksumMismatch, m.Record.LocalAssetID, m.Remote.RemoteID,
			fmt.Sprintf("checksum changed on the server: recorded %s, server reports %s",
				m.LedgerChecksum, m.RemoteChecksum))
		if err := store(c); err != nil {
			return added, fmt.Errorf("store mismatch conflict: %w", err)
		}
	}

	return added, nil
}

// DeleteOrphans removes the given remote assets from the server. Callers must
// pass IDs taken from a report's orphaned list after user confirmation.
func (e *Engine) DeleteOrphans(ctx context.Context, remoteIDs []string) error {
	if len(remoteIDs) == 0 {
		return nil
	}
	e.log.Info(ctx, "deleting orphaned remote assets", "count", len(remoteIDs))
	if err := e.api.Delete(ctx, remoteIDs); err != nil {
		return fmt.Errorf("delete remote assets: %w", err)
	}
	return nil
}

// MarkForReupload flips an uploaded record back to new so the next sync run
// transfers it again. This is the sanctioned escape hatch from uploaded
// status and is always logged.
func (e *Engine) MarkForReupload(ctx context.Context, localAssetID string) error {
	if err := e.ledger.MarkForReupload(ctx, localAssetID); err != nil {
		return fmt.Errorf("mark %s for reupload: %w", localAssetID, err)
	}
	e.log.Info(ctx, "asset marked for reupload", "asset", localAssetID)
	return nil
}

// Resolve applies a user decision to a pending conflict: the corrective
// action first, then the conflict record. A conflict whose action fails stays
// pending.
func (e *Engine) Resolve(ctx context.Context, conflictID, resolution string) error {
	c, err := e.conflicts.Get(ctx, conflictID)
	if err != nil {
		return fmt.Errorf("load conflict %s: %w", conflictID, err)
	}

	switch resolution {
	case models.ResolutionIgnore:
		// Nothing to do on either side.
	case models.ResolutionDeleteRemote:
		if c.RemoteID == "" {
			return fmt.Errorf("conflict %s has no remote asset to delete", conflictID)
		}
		if err := e.DeleteOrphans(ctx, []string{c.RemoteID}); err != nil {
			return err
		}
	case models.ResolutionReupload:
		if c.LocalAssetID == "" {
			return fmt.Errorf("conflict %s has no local asset to reupload", conflictID)
		}
		if err := e.MarkForReupload(ctx, c.LocalAssetID); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown resolution %q", resolution)
	}

	if err := e.conflicts.Resolve(ctx, conflictID, resolution); err != nil {
		return fmt.Errorf("resolve conflict %s: %w", conflictID, err)
	}
	return nil
}
