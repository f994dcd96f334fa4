package sync

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/avolkov/snapsync/internal/client"
	"github.com/avolkov/snapsync/internal/common"
	"github.com/avolkov/snapsync/internal/library"
	"github.com/avolkov/snapsync/internal/logging"
	"github.com/avolkov/snapsync/internal/models"
	"github.com/avolkov/snapsync/internal/repositories/checkpoint"
	"github.com/avolkov/snapsync/internal/repositories/ledger"
	"github.com/avolkov/snapsync/internal/retry"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// State is the pipeline's run state.
type State string

const (
	StateIdle      State = "idle"
	StateScanning  State = "scanning"
	StateFiltering State = "filtering"
	StateUploading State = "uploading"
	StateComplete  State = "complete"
	StateFailed    State = "failed"
)

const (
	// checkpointEvery is how many processed assets pass between checkpoint
	// saves. Saving less often than per-asset trades a little crash rework
	// for far less write amplification.
	checkpointEvery = 10

	minWorkers = 1
	maxWorkers = 5
)

// Options configures one run.
type Options struct {
	// Workers bounds the transfer pool width, clamped to [1, 5].
	Workers int
	// Simulate logs intended transfers without network calls or ledger writes.
	Simulate bool
	// Resume consults a saved checkpoint and skips assets it lists.
	Resume bool
	// Filter narrows the library scan.
	Filter models.LibraryFilter
}

// Summary are the final counts of a run.
type Summary struct {
	Total     int
	Uploaded  int
	Skipped   int
	Failed    int
	Retried   int
	Simulated int
}

// Service is the sync pipeline.
type Service struct {
	ledger      ledger.Repository
	checkpoints checkpoint.Store
	library     library.Library
	api         client.Client
	policy      retry.Policy
	log         logging.Logger

	running atomic.Bool
	state   atomic.Value // State
}

func NewService(
	ledgerRepo ledger.Repository,
	checkpoints checkpoint.Store,
	lib library.Library,
	api client.Client,
	policy retry.Policy,
	log logging.Logger,
) *Service {
	if log == nil {
		log = logging.Default()
	}
	s := &Service{
		ledger:      ledgerRepo,
		checkpoints: checkpoints,
		library:     lib,
		api:         api,
		policy:      policy,
		log:         log,
	}
	s.state.Store(StateIdle)
	return s
}

// State returns the pipeline's current state.
func (s *Service) State() State {
	return s.state.Load().(State)
}

func (s *Service) setState(st State) {
	s.state.Store(st)
}

// assetOutcome is one worker's result for one asset, drained by the
// coordinator.
type assetOutcome struct {
	localID string
	status  outcomeStatus
	retries int
	fatal   error // non-nil aborts the whole run
}

type outcomeStatus int

const (
	outcomeUploaded outcomeStatus = iota
	outcomeSkipped
	outcomeFailed
	outcomeSimulated
	outcomeCancelled
)

// Run executes one full pipeline pass. Only one run may be active at a time;
// concurrent calls fail with common.ErrSyncInProgress.
//
// On success the checkpoint is cleared and the state ends at complete. A
// fatal error leaves the checkpoint for the next run and ends at failed.
// Cancellation lets in-flight transfers finish, keeps the checkpoint, and
// returns the pipeline to idle with common.ErrRunCancelled.
func (s *Service) Run(ctx context.Context, opts Options) (*Summary, error) {
	if !s.running.CompareAndSwap(false, true) {
		return nil, common.ErrSyncInProgress
	}
	defer s.running.Store(false)

	summary, err := s.run(ctx, opts)
	switch {
	case err == nil:
		s.setState(StateComplete)
	case errors.Is(err, common.ErrRunCancelled):
		s.setState(StateIdle)
	default:
		s.setState(StateFailed)
	}
	return summary, err
}

func (s *Service) run(ctx context.Context, opts Options) (*Summary, error) {
	workers := opts.Workers
	if workers < minWorkers {
		workers = minWorkers
	}
	if workers > maxWorkers {
		workers = maxWorkers
	}

	// Scan.
	s.setState(StateScanning)
	s.log.Info(ctx, "scanning library", "simulate", opts.Simulate)

	handles, err := s.library.Enumerate(ctx, opts.Filter)
	if err != nil {
		return nil, fmt.Errorf("scan library: %w", err)
	}

	ids := make([]string, len(handles))
	for i, h := range handles {
		ids[i] = h.LocalID
	}
	if err := s.ledger.TouchLastSeen(ctx, ids); err != nil {
		// Staleness tracking only; the run goes on.
		s.log.Warn(ctx, "failed to refresh last-seen timestamps", "error", err)
	}

	summary := &Summary{Total: len(handles)}

	// Filter.
	s.setState(StateFiltering)

	cp := s.loadResumeCheckpoint(ctx, opts)
	processedSet := map[string]struct{}{}
	processed := []string{}
	runID := uuid.NewString()
	if cp != nil {
		processedSet = cp.ProcessedSet()
		processed = append(processed, cp.ProcessedIDs...)
		runID = cp.RunID
		s.log.Info(ctx, "resuming from checkpoint", "run_id", runID, "already_processed", len(processedSet))
	}

	var queue []models.AssetHandle
	for _, h := range handles {
		if err := ctx.Err(); err != nil {
			return summary, common.ErrRunCancelled
		}
		if _, ok := processedSet[h.LocalID]; ok {
			summary.Skipped++
			continue
		}
		uploaded, err := s.ledger.HasUploadedAsset(ctx, h.LocalID)
		if err != nil {
			// Fail closed: a gate we cannot read is a gate that says no.
			s.log.Warn(ctx, "ledger lookup failed, skipping asset", "asset", h.LocalID, "error", err)
			summary.Skipped++
			continue
		}
		if uploaded {
			summary.Skipped++
			continue
		}
		queue = append(queue, h)
	}

	s.log.Info(ctx, "filtered candidate set",
		"total", summary.Total, "queued", len(queue), "skipped", summary.Skipped)

	// Fingerprint + transfer.
	s.setState(StateUploading)

	outcomes := make(chan assetOutcome)
	g, runCtx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	go func() {
		for _, h := range queue {
			if runCtx.Err() != nil {
				break
			}
			h := h
			g.Go(func() error {
				out := s.processAsset(runCtx, h, opts.Simulate)
				select {
				case outcomes <- out:
				case <-runCtx.Done():
				}
				return out.fatal
			})
		}
		_ = g.Wait()
		close(outcomes)
	}()

	var fatal error
	for out := range outcomes {
		switch out.status {
		case outcomeUploaded:
			summary.Uploaded++
		case outcomeSkipped:
			summary.Skipped++
		case outcomeFailed:
			summary.Failed++
		case outcomeSimulated:
			summary.Simulated++
		case outcomeCancelled:
			continue
		}
		summary.Retried += out.retries

		if out.fatal != nil && fatal == nil {
			fatal = out.fatal
		}

		// Checkpoint saves happen here, on the coordinator, so workers never
		// interleave partial writes.
		processed = append(processed, out.localID)
		if len(processed)%checkpointEvery == 0 {
			s.saveCheckpoint(ctx, runID, processed, summary.Total, opts.Simulate)
		}
	}

	if fatal != nil {
		s.saveCheckpoint(ctx, runID, processed, summary.Total, opts.Simulate)
		return summary, fatal
	}
	if err := ctx.Err(); err != nil {
		s.saveCheckpoint(ctx, runID, processed, summary.Total, opts.Simulate)
		s.log.Info(ctx, "run cancelled", "processed", len(processed))
		return summary, common.ErrRunCancelled
	}

	if err := s.checkpoints.Clear(ctx); err != nil {
		s.log.Warn(ctx, "failed to clear checkpoint", "error", err)
	}

	s.log.Info(ctx, "run complete",
		"uploaded", summary.Uploaded, "skipped", summary.Skipped,
		"failed", summary.Failed, "retried", summary.Retried,
		"simulated", summary.Simulated)
	return summary, nil
}

func (s *Service) loadResumeCheckpoint(ctx context.Context, opts Options) *models.Checkpoint {
	if !opts.Resume {
		return nil
	}
	cp, err := s.checkpoints.Load(ctx)
	if err != nil {
		s.log.Warn(ctx, "failed to load checkpoint, starting fresh", "error", err)
		return nil
	}
	return cp
}

func (s *Service) saveCheckpoint(ctx context.Context, runID string, processed []string, total int, simulated bool) {
	cp := &models.Checkpoint{
		RunID:        runID,
		ProcessedIDs: processed,
		TotalAssets:  total,
		Simulated:    simulated,
		Timestamp:    time.Now().UTC(),
	}
	// Use a background-tolerant save: the checkpoint must still be written
	// when the run context was cancelled.
	if err := s.checkpoints.Save(context.WithoutCancel(ctx), cp); err != nil {
		s.log.Warn(ctx, "failed to save checkpoint", "error", err)
	}
}

// processAsset runs the fingerprint+transfer step for one asset.
func (s *Service) processAsset(ctx context.Context, h models.AssetHandle, simulate bool) assetOutcome {
	out := assetOutcome{localID: h.LocalID}

	if ctx.Err() != nil {
		out.status = outcomeCancelled
		return out
	}

	asset, err := s.library.Materialize(ctx, h)
	if err != nil {
		if errors.Is(err, common.ErrLibraryAccessDenied) {
			// Permission loss is fatal to the whole run, not just this asset.
			out.status = outcomeFailed
			out.fatal = err
			return out
		}
		s.recordFailure(ctx, h, "", err)
		out.status = outcomeFailed
		return out
	}

	sum := sha256.Sum256(asset.Data)
	fingerprint := hex.EncodeToString(sum[:])

	// Content gate: the same bytes may already be uploaded under another ID.
	uploaded, err := s.ledger.HasUploadedFingerprint(ctx, fingerprint)
	if err != nil {
		s.log.Warn(ctx, "fingerprint lookup failed, skipping asset", "asset", h.LocalID, "error", err)
		out.status = outcomeSkipped
		return out
	}
	if uploaded {
		s.log.Debug(ctx, "content already uploaded under another asset", "asset", h.LocalID)
		out.status = outcomeSkipped
		return out
	}

	if simulate {
		s.log.Info(ctx, "would upload", "asset", h.LocalID, "filename", asset.Filename,
			"bytes", len(asset.Data), "fingerprint", fingerprint)
		out.status = outcomeSimulated
		return out
	}

	// Server-side dedup precheck: if the server already holds this content,
	// adopt its remote ID instead of uploading again. Precheck failures are
	// ignored; the upload path is the source of truth.
	if existing, err := s.api.CheckExisting(ctx, []string{fingerprint}); err == nil {
		if remoteID, ok := existing[fingerprint]; ok {
			s.recordUpload(ctx, h, fingerprint, &client.UploadResult{RemoteID: remoteID, Checksum: fingerprint}, &out)
			return out
		}
	}

	var result *client.UploadResult
	attempt := 0
	err = s.policy.Do(ctx, func(ctx context.Context) error {
		data := asset.Data
		if attempt > 0 {
			// Bytes are never cached across a retry boundary.
			fresh, merr := s.library.Materialize(ctx, h)
			if merr != nil {
				return merr
			}
			data = fresh.Data
		}
		attempt++

		// No cancellation mid-upload: an admitted attempt runs to completion
		// under the request's own timeout. Cancellation is honored between
		// attempts and before admission.
		res, uerr := s.api.Upload(context.WithoutCancel(ctx), client.UploadRequest{
			Data:         data,
			Filename:     asset.Filename,
			MediaType:    h.MediaType,
			CreationDate: h.CreationDate,
		})
		if uerr != nil {
			return uerr
		}
		result = res
		return nil
	})
	out.retries = attempt - 1
	if out.retries < 0 {
		out.retries = 0
	}

	if err != nil {
		if ctx.Err() != nil {
			out.status = outcomeCancelled
			return out
		}
		s.recordFailure(ctx, h, fingerprint, err)
		out.status = outcomeFailed
		return out
	}

	s.recordUpload(ctx, h, fingerprint, result, &out)
	return out
}

func (s *Service) recordUpload(ctx context.Context, h models.AssetHandle, fingerprint string, res *client.UploadResult, out *assetOutcome) {
	err := s.ledger.RecordUpload(context.WithoutCancel(ctx), ledger.UploadRecord{
		LocalAssetID:   h.LocalID,
		Fingerprint:    fingerprint,
		MediaType:      h.MediaType,
		RemoteAssetID:  res.RemoteID,
		RemoteChecksum: res.Checksum,
		CreationDate:   h.CreationDate,
	})
	if err != nil {
		// The transfer happened but the write failed; surface loudly. The
		// fingerprint gate of the next run rescues us from a duplicate only
		// if the server deduplicates, so this is the worst spot to fail.
		s.log.Error(ctx, "ledger write failed after upload", "asset", h.LocalID, "error", err)
		out.status = outcomeFailed
		return
	}
	if res.Duplicate {
		s.log.Debug(ctx, "server reported duplicate content", "asset", h.LocalID, "remote", res.RemoteID)
	}
	out.status = outcomeUploaded
}

func (s *Service) recordFailure(ctx context.Context, h models.AssetHandle, fingerprint string, cause error) {
	err := s.ledger.RecordFailure(context.WithoutCancel(ctx), ledger.FailureRecord{
		LocalAssetID: h.LocalID,
		Fingerprint:  fingerprint,
		MediaType:    h.MediaType,
		CreationDate: h.CreationDate,
		ErrorDetail:  cause.Error(),
	})
	if err != nil {
		s.log.Error(ctx, "ledger write failed", "asset", h.LocalID, "error", err)
	}
}
