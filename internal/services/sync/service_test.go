package sync

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"path/filepath"
	gosync "sync"
	"testing"
	"time"

	"github.com/avolkov/snapsync/internal/client"
	"github.com/avolkov/snapsync/internal/common"
	"github.com/avolkov/snapsync/internal/db"
	"github.com/avolkov/snapsync/internal/models"
	"github.com/avolkov/snapsync/internal/repositories/checkpoint"
	"github.com/avolkov/snapsync/internal/repositories/ledger"
	"github.com/avolkov/snapsync/internal/retry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

// fakeLibrary serves in-memory assets in insertion order.
type fakeLibrary struct {
	handles        []models.AssetHandle
	data           map[string][]byte
	materializeErr map[string]error
	lastFilter     models.LibraryFilter
}

func newFakeLibrary() *fakeLibrary {
	return &fakeLibrary{data: map[string][]byte{}, materializeErr: map[string]error{}}
}

func (l *fakeLibrary) add(id string, data []byte) {
	l.handles = append(l.handles, models.AssetHandle{
		LocalID: id, Filename: id, MediaType: models.MediaTypePhoto,
	})
	l.data[id] = data
}

func (l *fakeLibrary) Enumerate(ctx context.Context, filter models.LibraryFilter) ([]models.AssetHandle, error) {
	l.lastFilter = filter
	return l.handles, nil
}

func (l *fakeLibrary) Materialize(ctx context.Context, h models.AssetHandle) (*models.Asset, error) {
	if err := l.materializeErr[h.LocalID]; err != nil {
		return nil, err
	}
	return &models.Asset{Handle: h, Filename: h.Filename, Data: l.data[h.LocalID]}, nil
}

func (l *fakeLibrary) ResourceInfo(ctx context.Context, h models.AssetHandle) (*models.ResourceInfo, error) {
	return &models.ResourceInfo{Filename: h.Filename, Size: int64(len(l.data[h.LocalID]))}, nil
}

type apiErr struct{ status int }

func (e *apiErr) Error() string   { return fmt.Sprintf("http %d", e.status) }
func (e *apiErr) HTTPStatus() int { return e.status }

// fakeClient counts uploads and can be scripted to fail.
type fakeClient struct {
	mu       gosync.Mutex
	uploads  int
	failures map[string][]error // filename → errors returned before success
	existing map[string]string
	onUpload func(filename string)
}

func newFakeClient() *fakeClient {
	return &fakeClient{failures: map[string][]error{}, existing: map[string]string{}}
}

func (c *fakeClient) uploadCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.uploads
}

func (c *fakeClient) Upload(ctx context.Context, req client.UploadRequest) (*client.UploadResult, error) {
	c.mu.Lock()
	c.uploads++
	var err error
	if pending := c.failures[req.Filename]; len(pending) > 0 {
		err = pending[0]
		c.failures[req.Filename] = pending[1:]
	}
	hook := c.onUpload
	c.mu.Unlock()

	if hook != nil {
		hook(req.Filename)
	}
	if err != nil {
		return nil, err
	}
	sum := sha256.Sum256(req.Data)
	return &client.UploadResult{
		RemoteID: "remote-" + req.Filename,
		Checksum: hex.EncodeToString(sum[:]),
	}, nil
}

func (c *fakeClient) ListUploadedByThisClient(ctx context.Context) ([]models.RemoteAssetSummary, error) {
	return nil, nil
}

func (c *fakeClient) Delete(ctx context.Context, remoteIDs []string) error { return nil }

func (c *fakeClient) CheckExisting(ctx context.Context, hashes []string) (map[string]string, error) {
	result := map[string]string{}
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, h := range hashes {
		if id, ok := c.existing[h]; ok {
			result[h] = id
		}
	}
	return result, nil
}

func (c *fakeClient) Ping(ctx context.Context) error { return nil }

// erroringLedger wraps a real repository and injects read failures.
type erroringLedger struct {
	ledger.Repository
	assetLookupErr error
}

func (l *erroringLedger) HasUploadedAsset(ctx context.Context, id string) (bool, error) {
	if l.assetLookupErr != nil {
		return false, l.assetLookupErr
	}
	return l.Repository.HasUploadedAsset(ctx, id)
}

type fixture struct {
	svc     *Service
	ledger  ledger.Repository
	cps     *checkpoint.FileStore
	lib     *fakeLibrary
	api     *fakeClient
	rebuild func(ledger.Repository) *Service
}

func fastPolicy(maxRetries int) retry.Policy {
	return retry.Policy{BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond, MaxRetries: maxRetries}
}

func setup(t *testing.T) *fixture {
	t.Helper()

	conn, err := db.Open(context.Background(), filepath.Join(t.TempDir(), "snapsync.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close(conn) })

	ledgerRepo := ledger.NewSQLiteRepository(conn)
	cps := checkpoint.NewFileStore(filepath.Join(t.TempDir(), "checkpoint.json"))
	lib := newFakeLibrary()
	api := newFakeClient()

	rebuild := func(lr ledger.Repository) *Service {
		return NewService(lr, cps, lib, api, fastPolicy(2), nil)
	}

	return &fixture{
		svc:     rebuild(ledgerRepo),
		ledger:  ledgerRepo,
		cps:     cps,
		lib:     lib,
		api:     api,
		rebuild: rebuild,
	}
}

func TestRun_UploadsNewAssets(t *testing.T) {
	f := setup(t)
	f.lib.add("a.jpg", []byte("aaa"))
	f.lib.add("b.jpg", []byte("bbb"))
	f.lib.add("c.jpg", []byte("ccc"))

	summary, err := f.svc.Run(context.Background(), Options{Workers: 2})
	require.NoError(t, err)

	assert.Equal(t, 3, summary.Total)
	assert.Equal(t, 3, summary.Uploaded)
	assert.Equal(t, 0, summary.Failed)
	assert.Equal(t, 3, f.api.uploadCount())
	assert.Equal(t, StateComplete, f.svc.State())

	stats, err := f.ledger.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, stats[models.StatusUploaded])

	cp, err := f.cps.Load(context.Background())
	require.NoError(t, err)
	assert.Nil(t, cp, "checkpoint must be cleared on completion")
}

// Every filter dimension set by the caller must reach the library scan
// untouched, album selections included.
func TestRun_ForwardsFilterToLibrary(t *testing.T) {
	f := setup(t)
	f.lib.add("a.jpg", []byte("aaa"))

	filter := models.LibraryFilter{
		MediaType:     models.MediaTypePhoto,
		FavoritesOnly: true,
		IncludeAlbums: []string{"Vacation"},
		ExcludeAlbums: []string{"Screenshots"},
	}

	_, err := f.svc.Run(context.Background(), Options{Filter: filter})
	require.NoError(t, err)

	assert.Equal(t, filter, f.lib.lastFilter)
}

func TestRun_SecondRunSkipsEverything(t *testing.T) {
	f := setup(t)
	f.lib.add("a.jpg", []byte("aaa"))
	f.lib.add("b.jpg", []byte("bbb"))

	_, err := f.svc.Run(context.Background(), Options{})
	require.NoError(t, err)
	require.Equal(t, 2, f.api.uploadCount())

	summary, err := f.svc.Run(context.Background(), Options{})
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Skipped)
	assert.Equal(t, 0, summary.Uploaded)
	assert.Equal(t, 2, f.api.uploadCount(), "no new uploads on second run")
}

func TestRun_FingerprintDedupAcrossIDs(t *testing.T) {
	f := setup(t)
	f.lib.add("a.jpg", []byte("same-bytes"))
	f.lib.add("copy-of-a.jpg", []byte("same-bytes"))

	summary, err := f.svc.Run(context.Background(), Options{Workers: 1})
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Uploaded)
	assert.Equal(t, 1, summary.Skipped)
	assert.Equal(t, 1, f.api.uploadCount())

	stats, err := f.ledger.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats[models.StatusUploaded])
}

// Simulation is inert: ledger stats identical before and after, no network.
func TestRun_SimulateTouchesNothing(t *testing.T) {
	f := setup(t)
	f.lib.add("a.jpg", []byte("aaa"))
	f.lib.add("b.jpg", []byte("bbb"))

	before, err := f.ledger.Stats(context.Background())
	require.NoError(t, err)

	summary, err := f.svc.Run(context.Background(), Options{Simulate: true})
	require.NoError(t, err)

	assert.Equal(t, 2, summary.Simulated)
	assert.Equal(t, 0, summary.Uploaded)
	assert.Equal(t, 0, f.api.uploadCount())

	after, err := f.ledger.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

// A ledger read error during filtering skips the asset. Never upload through
// a gate you cannot read.
func TestRun_FailClosedOnLedgerReadError(t *testing.T) {
	f := setup(t)
	f.lib.add("a.jpg", []byte("aaa"))

	svc := f.rebuild(&erroringLedger{Repository: f.ledger, assetLookupErr: errors.New("disk I/O error")})

	summary, err := svc.Run(context.Background(), Options{})
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Skipped)
	assert.Equal(t, 0, summary.Uploaded)
	assert.Equal(t, 0, f.api.uploadCount())
}

func TestRun_RetryableFailureExhaustsBudget(t *testing.T) {
	f := setup(t)
	f.lib.add("a.jpg", []byte("aaa"))
	f.api.failures["a.jpg"] = []error{
		&apiErr{status: 503}, &apiErr{status: 503}, &apiErr{status: 503}, &apiErr{status: 503},
	}

	summary, err := f.svc.Run(context.Background(), Options{})
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, 2, summary.Retried) // MaxRetries=2
	assert.Equal(t, 3, f.api.uploadCount())

	rec, err := f.ledger.Get(context.Background(), "a.jpg")
	require.NoError(t, err)
	assert.Equal(t, models.StatusFailed, rec.Status)
	assert.Contains(t, rec.ErrorMessage, "503")
}

func TestRun_RetryThenSuccess(t *testing.T) {
	f := setup(t)
	f.lib.add("a.jpg", []byte("aaa"))
	f.api.failures["a.jpg"] = []error{&apiErr{status: 500}}

	summary, err := f.svc.Run(context.Background(), Options{})
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Uploaded)
	assert.Equal(t, 1, summary.Retried)
	assert.Equal(t, 2, f.api.uploadCount())

	rec, err := f.ledger.Get(context.Background(), "a.jpg")
	require.NoError(t, err)
	assert.Equal(t, models.StatusUploaded, rec.Status)
}

func TestRun_NonRetryableFailsImmediately(t *testing.T) {
	f := setup(t)
	f.lib.add("a.jpg", []byte("aaa"))
	f.api.failures["a.jpg"] = []error{&apiErr{status: 404}}

	summary, err := f.svc.Run(context.Background(), Options{})
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, 0, summary.Retried)
	assert.Equal(t, 1, f.api.uploadCount())
}

func TestRun_ServerSideDedupAdoptsRemoteID(t *testing.T) {
	f := setup(t)
	data := []byte("already-on-server")
	f.lib.add("a.jpg", data)

	sum := sha256.Sum256(data)
	f.api.existing[hex.EncodeToString(sum[:])] = "remote-existing"

	summary, err := f.svc.Run(context.Background(), Options{})
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Uploaded)
	assert.Equal(t, 0, f.api.uploadCount(), "no transfer when server already has the content")

	rec, err := f.ledger.Get(context.Background(), "a.jpg")
	require.NoError(t, err)
	assert.Equal(t, "remote-existing", rec.RemoteAssetID)
}

func TestRun_ResumeSkipsCheckpointedAssets(t *testing.T) {
	f := setup(t)
	f.lib.add("a.jpg", []byte("aaa"))
	f.lib.add("b.jpg", []byte("bbb"))

	require.NoError(t, f.cps.Save(context.Background(), &models.Checkpoint{
		RunID:        "previous-run",
		ProcessedIDs: []string{"a.jpg"},
		TotalAssets:  2,
	}))

	summary, err := f.svc.Run(context.Background(), Options{Resume: true})
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Skipped)
	assert.Equal(t, 1, summary.Uploaded)
	assert.Equal(t, 1, f.api.uploadCount())
}

func TestRun_OnlyOneActiveRun(t *testing.T) {
	f := setup(t)
	f.lib.add("a.jpg", []byte("aaa"))

	started := make(chan struct{})
	release := make(chan struct{})
	f.api.onUpload = func(string) {
		close(started)
		<-release
	}

	done := make(chan error, 1)
	go func() {
		_, err := f.svc.Run(context.Background(), Options{})
		done <- err
	}()

	<-started
	_, err := f.svc.Run(context.Background(), Options{})
	assert.ErrorIs(t, err, common.ErrSyncInProgress)

	close(release)
	require.NoError(t, <-done)
}

func TestRun_CancellationKeepsCheckpoint(t *testing.T) {
	f := setup(t)
	for i := 0; i < 5; i++ {
		name := fmt.Sprintf("asset-%d.jpg", i)
		f.lib.add(name, []byte(name))
	}

	ctx, cancel := context.WithCancel(context.Background())
	var once gosync.Once
	f.api.onUpload = func(string) {
		once.Do(cancel)
	}

	summary, err := f.svc.Run(ctx, Options{Workers: 1})
	assert.ErrorIs(t, err, common.ErrRunCancelled)
	assert.Equal(t, StateIdle, f.svc.State())
	assert.Less(t, summary.Uploaded, 5)

	cp, err := f.cps.Load(context.Background())
	require.NoError(t, err)
	require.NotNil(t, cp, "cancellation must leave the checkpoint for resume")
}

// Checkpoint resume is a pure optimization: an interrupted run plus a resumed
// run must leave the ledger exactly as one uninterrupted run would.
func TestRun_CrashResumeMatchesSingleRun(t *testing.T) {
	interrupted := setup(t)
	uninterrupted := setup(t)

	for _, f := range []*fixture{interrupted, uninterrupted} {
		for i := 0; i < 6; i++ {
			f.lib.add(fmt.Sprintf("asset-%d.jpg", i), []byte(fmt.Sprintf("bytes-%d", i)))
		}
	}

	// Uninterrupted baseline.
	_, err := uninterrupted.svc.Run(context.Background(), Options{Workers: 1})
	require.NoError(t, err)

	// Interrupted run: cancel after two uploads, then resume.
	ctx, cancel := context.WithCancel(context.Background())
	var calls int
	var mu gosync.Mutex
	interrupted.api.onUpload = func(string) {
		mu.Lock()
		calls++
		if calls == 2 {
			cancel()
		}
		mu.Unlock()
	}

	_, err = interrupted.svc.Run(ctx, Options{Workers: 1})
	require.ErrorIs(t, err, common.ErrRunCancelled)

	interrupted.api.onUpload = nil
	_, err = interrupted.svc.Run(context.Background(), Options{Workers: 1, Resume: true})
	require.NoError(t, err)

	wantRecords, err := uninterrupted.ledger.RecordsByStatus(context.Background(), models.StatusUploaded)
	require.NoError(t, err)
	gotRecords, err := interrupted.ledger.RecordsByStatus(context.Background(), models.StatusUploaded)
	require.NoError(t, err)

	require.Len(t, gotRecords, len(wantRecords))
	for i := range wantRecords {
		assert.Equal(t, wantRecords[i].LocalAssetID, gotRecords[i].LocalAssetID)
		assert.Equal(t, wantRecords[i].Fingerprint, gotRecords[i].Fingerprint)
		assert.Equal(t, models.StatusUploaded, gotRecords[i].Status)
	}
}

func TestRun_LibraryAccessDeniedAbortsRun(t *testing.T) {
	f := setup(t)
	f.lib.add("a.jpg", []byte("aaa"))
	f.lib.add("b.jpg", []byte("bbb"))
	f.lib.materializeErr["a.jpg"] = fmt.Errorf("%w: a.jpg", common.ErrLibraryAccessDenied)

	_, err := f.svc.Run(context.Background(), Options{Workers: 1})
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrLibraryAccessDenied)
	assert.Equal(t, StateFailed, f.svc.State())
}

func TestRun_MaterializeErrorFailsSingleAsset(t *testing.T) {
	f := setup(t)
	f.lib.add("a.jpg", []byte("aaa"))
	f.lib.add("b.jpg", []byte("bbb"))
	f.lib.materializeErr["a.jpg"] = errors.New("file vanished")

	summary, err := f.svc.Run(context.Background(), Options{Workers: 1})
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, 1, summary.Uploaded)

	rec, err := f.ledger.Get(context.Background(), "a.jpg")
	require.NoError(t, err)
	assert.Equal(t, models.StatusFailed, rec.Status)
}
