// Package mariadb stores the person snapshot in MariaDB as JSON rows.
package mariadb

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"

	"github.com/kozaktomas/person-tracker/internal/config"
	"github.com/kozaktomas/person-tracker/internal/database"
)

func init() {
	database.RegisterBackend("mariadb", func(ctx context.Context, cfg *config.StoreConfig) (database.Backend, error) {
		pool, err := NewPool(ctx, cfg.MariaDBDSN)
		if err != nil {
			return nil, err
		}
		if err := pool.EnsureSchema(ctx); err != nil {
			_ = pool.Close()
			return nil, err
		}
		return pool, nil
	})
}

const schema = `
CREATE TABLE IF NOT EXISTS persons (
	person_id VARCHAR(64) NOT NULL PRIMARY KEY,
	position  INT NOT NULL,
	record    JSON NOT NULL,
	KEY persons_position_idx (position)
)`

// Pool manages a MariaDB connection pool and implements database.Backend.
type Pool struct {
	db *sql.DB
}

// NewPool creates a new MariaDB connection pool.
func NewPool(ctx context.Context, dsn string) (*Pool, error) {
	if dsn == "" {
		return nil, errors.New("MariaDB DSN is required")
	}

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open MariaDB: %w", err)
	}

	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(time.Hour)

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping MariaDB: %w", err)
	}

	return &Pool{db: db}, nil
}

// EnsureSchema creates the persons table if it does not exist.
func (p *Pool) EnsureSchema(ctx context.Context) error {
	if _, err := p.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("create persons table: %w", err)
	}
	return nil
}

func (p *Pool) Load(ctx context.Context) (*database.Snapshot, error) {
	rows, err := p.db.QueryContext(ctx, "SELECT person_id, record FROM persons ORDER BY position")
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

// Save replaces every row inside one transaction.
func (p *Pool) Save(ctx context.Context, snap *database.Snapshot) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DELETE FROM persons"); err != nil {
		return fmt.Errorf("clear persons: %w", err)
	}

	position := 0
	for id, rec := range snap.All() {
		data, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("encode %s: %w", id, err)
		}
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO persons (person_id, position, record) VALUES (?, ?, ?)",
			id, position, string(data),
		); err != nil {
			return fmt.Errorf("insert %s: %w", id, err)
		}
		position++
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit snapshot: %w", err)
	}
	return nil
}

// Close closes the connection pool.
func (p *Pool) Close() error {
	if p.db != nil {
		if err := p.db.Close(); err != nil {
			return fmt.Errorf("closing database connection: %w", err)
		}
	}
	return nil
}
