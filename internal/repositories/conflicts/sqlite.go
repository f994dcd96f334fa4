// Package conflicts persists reconciliation findings that need a user
// decision. Conflicts are written by the reconciliation engine and mutated
// only through Resolve; nothing resolves them automatically.
package conflicts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/avolkov/snapsync/internal/common"
	"github.com/avolkov/snapsync/internal/models"
)

// Repository stores reconciliation conflicts.
type Repository interface {
	// Add stores a new unresolved conflict.
	Add(ctx context.Context, c *models.Conflict) error

	// Pending lists conflicts that have not been resolved yet.
	Pending(ctx context.Context) ([]models.Conflict, error)

	// Get returns one conflict by ID, or common.ErrNotFound.
	Get(ctx context.Context, id string) (*models.Conflict, error)

	// Resolve marks a conflict resolved with the given resolution. Resolving
	// an already-resolved conflict is an error.
	Resolve(ctx context.Context, id, resolution string) error
}

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Add(ctx context.Context, c *models.Conflict) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO conflicts (id, type, local_asset_id, remote_id, detail, detected_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, c.ID, c.Type, c.LocalAssetID, c.RemoteID, c.Detail,
		c.DetectedAt.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("add conflict %s: %w", c.ID, err)
	}
	return nil
}

const conflictColumns = `id, type, local_asset_id, remote_id, detail, detected_at, resolved_at, resolution`

func (r *SQLiteRepository) Pending(ctx context.Context) ([]models.Conflict, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+conflictColumns+` FROM conflicts WHERE resolved_at IS NULL ORDER BY detected_at`)
	if err != nil {
		return nil, fmt.Errorf("query pending conflicts: %w", err)
	}
	defer rows.Close()

	var result []models.Conflict
	for rows.Next() {
		c, err := scanConflict(rows)
		if err != nil {
			return nil, fmt.Errorf("scan conflict: %w", err)
		}
		result = append(result, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate conflicts: %w", err)
	}
	return result, nil
}

func (r *SQLiteRepository) Get(ctx context.Context, id string) (*models.Conflict, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+conflictColumns+` FROM conflicts WHERE id = ?`, id)
	c, err := scanConflict(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get conflict %s: %w", id, err)
	}
	return c, nil
}

func (r *SQLiteRepository) Resolve(ctx context.Context, id, resolution string) error {
	now := time.Now().UTC().Format(time.RFC3339)
	res, err := r.db.ExecContext(ctx, `
		UPDATE conflicts SET resolved_at = ?, resolution = ?
		WHERE id = ? AND resolved_at IS NULL
	`, now, resolution, id)
	if err != nil {
		return fmt.Errorf("resolve conflict %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		if _, getErr := r.Get(ctx, id); getErr != nil {
			return getErr
		}
		return fmt.Errorf("conflict %s is already resolved", id)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanConflict(s scanner) (*models.Conflict, error) {
	var c models.Conflict
	var detectedAt string
	var resolvedAt sql.NullString

	err := s.Scan(&c.ID, &c.Type, &c.LocalAssetID, &c.RemoteID, &c.Detail,
		&detectedAt, &resolvedAt, &c.Resolution)
	if err != nil {
		return nil, err
	}

	if t, err := time.Parse(time.RFC3339, detectedAt); err == nil {
		c.DetectedAt = t
	}
	if resolvedAt.Valid {
		if t, err := time.Parse(time.RFC3339, resolvedAt.String); err == nil {
			c.ResolvedAt = &t
		}
	}
	return &c, nil
}
