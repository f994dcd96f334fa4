// Package db opens and prepares the client's embedded SQLite database.
//
// The database holds the upload ledger and reconciliation conflicts. It is
// opened once per process and shared by all pipeline workers; SQLite's
// single-writer transactions are the serialization point for concurrent
// ledger writes.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/avolkov/snapsync/internal/migrations"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"
)

// Open opens (creating if absent) the database at path, enables WAL mode and
// runs pending migrations. A corrupt or unreadable database is a hard error;
// silently starting empty would look like data loss to the ledger.
//
// The caller must Close the returned handle.
func Open(ctx context.Context, path string) (*sql.DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o770); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := conn.PingContext(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	// WAL keeps readers unblocked during writes and survives crash mid-write.
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
		"PRAGMA synchronous=NORMAL",
	}
	for _, pragma := range pragmas {
		if _, err := conn.ExecContext(ctx, pragma); err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("apply %s: %w", pragma, err)
		}
	}

	if err := RunMigrations(ctx, conn); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return conn, nil
}

// RunMigrations applies all pending goose migrations from the embedded FS.
func RunMigrations(ctx context.Context, conn *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}

	return goose.UpContext(ctx, conn, ".")
}

// Flush forces every buffered write out of the WAL into the primary database
// file so it is self-consistent for copying. Backup/export and app-quit flows
// call this before touching the file.
func Flush(ctx context.Context, conn *sql.DB) error {
	if _, err := conn.ExecContext(ctx, "PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		return fmt.Errorf("wal checkpoint: %w", err)
	}
	return nil
}

// Close flushes the WAL and closes the connection.
func Close(conn *sql.DB) error {
	if conn == nil {
		return nil
	}
	_ = Flush(context.Background(), conn)
	if err := conn.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}
