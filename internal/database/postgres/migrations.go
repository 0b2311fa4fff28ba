package postgres

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"log/slog"
	"path"
	"sort"
	"strings"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// schemaLockID is the advisory lock key held while the person schema is
// upgraded, so trackers starting together against one database apply each
// migration once.
const schemaLockID int64 = 0x70657273

// migration is one embedded schema step, identified by its file name.
type migration struct {
	version string
	sql     string
}

// loadMigrations returns every embedded migration in version order.
func loadMigrations() ([]migration, error) {
	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return nil, fmt.Errorf("read migrations: %w", err)
	}

	var steps []migration
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".sql") {
			continue
		}
		content, err := migrationsFS.ReadFile(path.Join("migrations", e.Name()))
		if err != nil {
			return nil, fmt.Errorf("read migration %s: %w", e.Name(), err)
		}
		steps = append(steps, migration{version: e.Name(), sql: string(content)})
	}
	sort.Slice(steps, func(i, j int) bool { return steps[i].version < steps[j].version })
	return steps, nil
}

// Migrate brings the person schema up to date. Each step runs in its own
// transaction on a connection holding the schema advisory lock.
func (p *Pool) Migrate(ctx context.Context) error {
	steps, err := loadMigrations()
	if err != nil {
		return err
	}

	conn, err := p.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Close()

	if _, err := conn.ExecContext(ctx, "SELECT pg_advisory_lock($1)", schemaLockID); err != nil {
		return fmt.Errorf("lock person schema: %w", err)
	}
	defer func() {
		if _, err := conn.ExecContext(context.WithoutCancel(ctx), "SELECT pg_advisory_unlock($1)", schemaLockID); err != nil {
			slog.Warn("postgres: unlocking person schema failed", "error", err)
		}
	}()

	applied, err := appliedVersions(ctx, conn)
	if err != nil {
		return err
	}

	pending := 0
	for _, step := range steps {
		if applied[step.version] {
			continue
		}
		if err := applyStep(ctx, conn, step); err != nil {
			return err
		}
		pending++
		slog.Info("postgres: person schema migrated", "version", step.version)
	}

	slog.Debug("postgres: person schema up to date", "applied", pending, "total", len(steps))
	return nil
}

func appliedVersions(ctx context.Context, conn *sql.Conn) (map[string]bool, error) {
	_, err := conn.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS person_schema_versions (
			version    TEXT PRIMARY KEY,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`)
	if err != nil {
		return nil, fmt.Errorf("create schema version table: %w", err)
	}

	rows, err := conn.QueryContext(ctx, "SELECT version FROM person_schema_versions")
	if err != nil {
		return nil, fmt.Errorf("query schema versions: %w", err)
	}
	defer rows.Close()

	applied := make(map[string]bool)
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scan schema version: %w", err)
		}
		applied[v] = true
	}
	return applied, rows.Err()
}

func applyStep(ctx context.Context, conn *sql.Conn, step migration) error {
	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin %s: %w", step.version, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, step.sql); err != nil {
		return fmt.Errorf("apply %s: %w", step.version, err)
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO person_schema_versions (version) VALUES ($1)", step.version); err != nil {
		return fmt.Errorf("record %s: %w", step.version, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit %s: %w", step.version, err)
	}
	return nil
}

// SchemaVersions returns the applied schema versions in order.
func (p *Pool) SchemaVersions(ctx context.Context) ([]string, error) {
	rows, err := p.db.QueryContext(ctx, "SELECT version FROM person_schema_versions ORDER BY version")
	if err != nil {
		return nil, fmt.Errorf("query schema versions: %w", err)
	}
	defer rows.Close()

	var versions []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scan schema version: %w", err)
		}
		versions = append(versions, v)
	}
	return versions, rows.Err()
}
