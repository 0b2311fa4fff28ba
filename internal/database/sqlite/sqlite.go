// Package sqlite stores the person snapshot in an embedded SQLite database.
// Each record is one row; a save replaces every row inside one transaction.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/kozaktomas/person-tracker/internal/config"
	"github.com/kozaktomas/person-tracker/internal/database"
)

func init() {
	database.RegisterBackend("sqlite", func(ctx context.Context, cfg *config.StoreConfig) (database.Backend, error) {
		return Open(ctx, cfg.Path)
	})
}

const schema = `
CREATE TABLE IF NOT EXISTS persons (
	position  INTEGER NOT NULL,
	person_id TEXT PRIMARY KEY,
	record    TEXT NOT NULL
);
`

// Backend is a database.Backend over a SQLite file.
type Backend struct {
	db *sql.DB
}

// Open opens (or creates) the database at path. ":memory:" is accepted.
func Open(ctx context.Context, path string) (*Backend, error) {
	if path == "" {
		return nil, errors.New("store path is required")
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create store directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// A single connection serialises writers and keeps :memory: databases alive.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("%s: %w", pragma, err)
		}
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &Backend{db: db}, nil
}

func (b *Backend) Load(ctx context.Context) (*database.Snapshot, error) {
	rows, err := b.db.QueryContext(ctx, "SELECT person_id, record FROM persons ORDER BY position")
	if err != nil {
		return nil, fmt.Errorf("query persons: %w", err)
	}
	defer rows.Close()

	snap := database.NewSnapshot()
	for rows.Next() {
		var id string
		var data []byte
		if err := rows.Scan(&id, &data); err != nil {
			return nil, fmt.Errorf("scan person: %w", err)
		}
		rec, err := database.DecodeRecord(data)
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", id, err)
		}
		snap.Put(id, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate persons: %w", err)
	}
	return snap, nil
}

func (b *Backend) Save(ctx context.Context, snap *database.Snapshot) error {
	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM persons"); err != nil {
		return fmt.Errorf("clear persons: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, "INSERT INTO persons (position, person_id, record) VALUES (?, ?, ?)")
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	position := 0
	for id, rec := range snap.All() {
		data, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("encode %s: %w", id, err)
		}
		if _, err := stmt.ExecContext(ctx, position, id, string(data)); err != nil {
			return fmt.Errorf("insert %s: %w", id, err)
		}
		position++
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit snapshot: %w", err)
	}
	return nil
}

// Close checkpoints the WAL and closes the database.
func (b *Backend) Close() error {
	if _, err := b.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		_ = b.db.Close()
		return fmt.Errorf("wal checkpoint: %w", err)
	}
	if err := b.db.Close(); err != nil {
		return fmt.Errorf("closing database connection: %w", err)
	}
	return nil
}
