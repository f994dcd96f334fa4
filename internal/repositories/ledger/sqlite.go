package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/avolkov/snapsync/internal/common"
	"github.com/avolkov/snapsync/internal/dbx"
	"github.com/avolkov/snapsync/internal/models"
)

// touchBatchSize caps the number of IN-clause placeholders per statement.
const touchBatchSize = 500

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) HasUploadedAsset(ctx context.Context, localAssetID string) (bool, error) {
	return hasUploadedAsset(ctx, r.db, localAssetID)
}

func hasUploadedAsset(ctx context.Context, q dbx.DBTX, localAssetID string) (bool, error) {
	var n int
	err := q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM ledger WHERE local_asset_id = ? AND status = ?`,
		localAssetID, models.StatusUploaded).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("lookup ledger[%s]: %w", localAssetID, err)
	}
	return n > 0, nil
}

func (r *SQLiteRepository) HasUploadedFingerprint(ctx context.Context, fingerprint string) (bool, error) {
	owner, err := uploadedFingerprintOwner(ctx, r.db, fingerprint)
	if err != nil {
		return false, err
	}
	return owner != "", nil
}

// uploadedFingerprintOwner returns the local ID holding an uploaded record
// with this fingerprint, or "" when no such record exists.
func uploadedFingerprintOwner(ctx context.Context, q dbx.DBTX, fingerprint string) (string, error) {
	if fingerprint == "" {
		return "", nil
	}
	var owner string
	err := q.QueryRowContext(ctx,
		`SELECT local_asset_id FROM ledger WHERE fingerprint = ? AND status = ?`,
		fingerprint, models.StatusUploaded).Scan(&owner)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("lookup fingerprint %s: %w", fingerprint, err)
	}
	return owner, nil
}

// RecordUpload performs the check-then-write sequence inside one transaction
// so two concurrent uploads of the same fingerprint cannot both pass the
// check before either writes.
func (r *SQLiteRepository) RecordUpload(ctx context.Context, rec UploadRecord) error {
	return dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		uploaded, err := hasUploadedAsset(ctx, tx, rec.LocalAssetID)
		if err != nil {
			return err
		}
		if uploaded {
			// Already terminal; remote ID and fingerprint are frozen.
			return nil
		}

		owner, err := uploadedFingerprintOwner(ctx, tx, rec.Fingerprint)
		if err != nil {
			return err
		}
		if owner != "" && owner != rec.LocalAssetID {
			// Same content already uploaded under another asset.
			return nil
		}

		now := time.Now().UTC().Format(time.RFC3339)
		_, err = tx.ExecContext(ctx, `
			INSERT INTO ledger (
				local_asset_id, fingerprint, creation_date, media_type,
				remote_asset_id, remote_checksum, status,
				first_uploaded_at, last_seen_at, error_message, attempt_count
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, '', 1)
			ON CONFLICT(local_asset_id) DO UPDATE SET
				fingerprint       = excluded.fingerprint,
				creation_date     = excluded.creation_date,
				media_type        = excluded.media_type,
				remote_asset_id   = excluded.remote_asset_id,
				remote_checksum   = excluded.remote_checksum,
				status            = excluded.status,
				first_uploaded_at = COALESCE(ledger.first_uploaded_at, excluded.first_uploaded_at),
				last_seen_at      = excluded.last_seen_at,
				error_message     = '',
				attempt_count     = ledger.attempt_count + 1
		`,
			rec.LocalAssetID, rec.Fingerprint, timeToNullString(rec.CreationDate),
			mediaTypeOrUnknown(rec.MediaType), rec.RemoteAssetID, rec.RemoteChecksum,
			models.StatusUploaded, now, now,
		)
		if err != nil {
			return fmt.Errorf("record upload for %s: %w", rec.LocalAssetID, err)
		}
		return nil
	})
}

func (r *SQLiteRepository) RecordFailure(ctx context.Context, rec FailureRecord) error {
	return dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		uploaded, err := hasUploadedAsset(ctx, tx, rec.LocalAssetID)
		if err != nil {
			return err
		}
		if uploaded {
			// Failures never downgrade an uploaded record.
			return nil
		}

		now := time.Now().UTC().Format(time.RFC3339)
		_, err = tx.ExecContext(ctx, `
			INSERT INTO ledger (
				local_asset_id, fingerprint, creation_date, media_type,
				status, last_seen_at, error_message, attempt_count
			) VALUES (?, ?, ?, ?, ?, ?, ?, 1)
			ON CONFLICT(local_asset_id) DO UPDATE SET
				fingerprint   = excluded.fingerprint,
				creation_date = excluded.creation_date,
				media_type    = excluded.media_type,
				status        = excluded.status,
				last_seen_at  = excluded.last_seen_at,
				error_message = excluded.error_message,
				attempt_count = ledger.attempt_count + 1
		`,
			rec.LocalAssetID, rec.Fingerprint, timeToNullString(rec.CreationDate),
			mediaTypeOrUnknown(rec.MediaType), models.StatusFailed, now, rec.ErrorDetail,
		)
		if err != nil {
			return fmt.Errorf("record failure for %s: %w", rec.LocalAssetID, err)
		}
		return nil
	})
}

func (r *SQLiteRepository) MarkForReupload(ctx context.Context, localAssetID string) error {
	return dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE ledger SET
				status          = ?,
				remote_asset_id = '',
				remote_checksum = '',
				error_message   = ''
			WHERE local_asset_id = ?
		`, models.StatusNew, localAssetID)
		if err != nil {
			return fmt.Errorf("mark %s for re-upload: %w", localAssetID, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return common.ErrNotFound
		}
		return nil
	})
}

func (r *SQLiteRepository) TouchLastSeen(ctx context.Context, localAssetIDs []string) error {
	if len(localAssetIDs) == 0 {
		return nil
	}
	now := time.Now().UTC().Format(time.RFC3339)
	for start := 0; start < len(localAssetIDs); start += touchBatchSize {
		end := min(start+touchBatchSize, len(localAssetIDs))
		batch := localAssetIDs[start:end]

		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(batch)), ",")
		args := make([]any, 0, len(batch)+1)
		args = append(args, now)
		for _, id := range batch {
			args = append(args, id)
		}

		query := `UPDATE ledger SET last_seen_at = ? WHERE local_asset_id IN (` + placeholders + `)`
		if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("touch last_seen_at: %w", err)
		}
	}
	return nil
}

const recordColumns = `local_asset_id, fingerprint, creation_date, media_type,
	remote_asset_id, remote_checksum, status, first_uploaded_at, last_seen_at,
	error_message, attempt_count`

func (r *SQLiteRepository) Get(ctx context.Context, localAssetID string) (*models.LedgerRecord, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+recordColumns+` FROM ledger WHERE local_asset_id = ?`, localAssetID)

	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get ledger[%s]: %w", localAssetID, err)
	}
	return rec, nil
}

func (r *SQLiteRepository) Stats(ctx context.Context) (map[models.Status]int, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM ledger GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("query ledger stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[models.Status]int)
	for rows.Next() {
		var status models.Status
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("scan stats row: %w", err)
		}
		stats[status] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate stats rows: %w", err)
	}
	return stats, nil
}

func (r *SQLiteRepository) RecordsByStatus(ctx context.Context, status models.Status) ([]models.LedgerRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+recordColumns+` FROM ledger WHERE status = ? ORDER BY local_asset_id`, status)
	if err != nil {
		return nil, fmt.Errorf("query records by status %s: %w", status, err)
	}
	defer rows.Close()

	var records []models.LedgerRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan ledger row: %w", err)
		}
		records = append(records, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ledger rows: %w", err)
	}
	return records, nil
}

func (r *SQLiteRepository) Reset(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM ledger`); err != nil {
		return fmt.Errorf("reset ledger: %w", err)
	}
	return nil
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(s scanner) (*models.LedgerRecord, error) {
	var rec models.LedgerRecord
	var creationDate, firstUploadedAt sql.NullString
	var lastSeenAt string

	err := s.Scan(
		&rec.LocalAssetID,
		&rec.Fingerprint,
		&creationDate,
		&rec.MediaType,
		&rec.RemoteAssetID,
		&rec.RemoteChecksum,
		&rec.Status,
		&firstUploadedAt,
		&lastSeenAt,
		&rec.ErrorMessage,
		&rec.AttemptCount,
	)
	if err != nil {
		return nil, err
	}

	rec.CreationDate = nullStringToTime(creationDate)
	rec.FirstUploadedAt = nullStringToTime(firstUploadedAt)
	if t, err := time.Parse(time.RFC3339, lastSeenAt); err == nil {
		rec.LastSeenAt = t
	}
	return &rec, nil
}

func mediaTypeOrUnknown(mt models.MediaType) models.MediaType {
	if mt == "" {
		return models.MediaTypeUnknown
	}
	return mt
}

func timeToNullString(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: t.UTC().Format(time.RFC3339), Valid: true}
}

func nullStringToTime(ns sql.NullString) *time.Time {
	if !ns.Valid {
		return nil
	}
	t, err := time.Parse(time.RFC3339, ns.String)
	if err != nil {
		return nil
	}
	return &t
}
