package database

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strconv"
	"strings"
	"time"
)

//go:embed schemas/*.sql
var schemaFiles embed.FS

// Migration is one reversible schema step
type Migration struct {
	Version int
	Name    string
	Up      string
	Down    string
}

const migrationsTable = `
CREATE TABLE IF NOT EXISTS schema_migrations (
    version INTEGER PRIMARY KEY,
    name TEXT NOT NULL,
    applied_at TEXT NOT NULL
)`

// Migrations returns the embedded migrations ordered by version.
// Files are named NNNN_name.up.sql / NNNN_name.down.sql.
func Migrations() ([]Migration, error) {
	return loadMigrations(schemaFiles, "schemas")
}

func loadMigrations(fsys fs.FS, dir string) ([]Migration, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read schemas directory: %w", err)
	}

	byVersion := make(map[int]*Migration)
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}

		base := strings.TrimSuffix(entry.Name(), ".sql")
		var direction string
		switch {
		case strings.HasSuffix(base, ".up"):
			direction = "up"
		case strings.HasSuffix(base, ".down"):
			direction = "down"
		default:
			return nil, fmt.Errorf("migration %s has no .up/.down suffix", entry.Name())
		}
		base = strings.TrimSuffix(base, "."+direction)

		prefix, name, ok := strings.Cut(base, "_")
		if !ok {
			return nil, fmt.Errorf("migration %s is not named NNNN_name", entry.Name())
		}
		version, err := strconv.Atoi(prefix)
		if err != nil || version <= 0 {
			return nil, fmt.Errorf("migration %s has invalid version %q", entry.Name(), prefix)
		}

		content, err := fs.ReadFile(fsys, path.Join(dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("failed to read migration %s: %w", entry.Name(), err)
		}

		m, ok := byVersion[version]
		if !ok {
			m = &Migration{Version: version, Name: name}
			byVersion[version] = m
		}
		if direction == "up" {
			m.Up = string(content)
		} else {
			m.Down = string(content)
		}
	}

	migrations := make([]Migration, 0, len(byVersion))
	for _, m := range byVersion {
		if m.Up == "" || m.Down == "" {
			return nil, fmt.Errorf("migration %04d_%s is missing its up or down step", m.Version, m.Name)
		}
		migrations = append(migrations, *m)
	}
	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].Version < migrations[j].Version
	})

	for i, m := range migrations {
		if m.Version != i+1 {
			return nil, fmt.Errorf("migration versions must be contiguous from 1, found %d at position %d", m.Version, i+1)
		}
	}

	return migrations, nil
}

// Migrator applies versioned migrations to a connection
type Migrator struct {
	conn       *sql.DB
	migrations []Migration
	loadErr    error
}

// NewMigrator creates a migrator over the embedded migrations
func NewMigrator(conn *sql.DB) *Migrator {
	migrations, err := Migrations()
	return &Migrator{conn: conn, migrations: migrations, loadErr: err}
}

// NewMigratorWith creates a migrator over an explicit migration list
func NewMigratorWith(conn *sql.DB, migrations []Migration) *Migrator {
	return &Migrator{conn: conn, migrations: migrations}
}

// Latest returns the highest known migration version
func (m *Migrator) Latest() int {
	if len(m.migrations) == 0 {
		return 0
	}
	return m.migrations[len(m.migrations)-1].Version
}

// CurrentVersion returns the highest applied migration version (0 when none)
func (m *Migrator) CurrentVersion(ctx context.Context) (int, error) {
	if _, err := m.conn.ExecContext(ctx, migrationsTable); err != nil {
		return 0, fmt.Errorf("failed to create schema_migrations: %w", err)
	}

	var version sql.NullInt64
	if err := m.conn.QueryRowContext(ctx, "SELECT MAX(version) FROM schema_migrations").Scan(&version); err != nil {
		return 0, fmt.Errorf("failed to read schema version: %w", err)
	}
	return int(version.Int64), nil
}

// Migrate applies pending up steps until target is reached (0 = latest).
// Each step runs in its own transaction together with its bookkeeping row.
func (m *Migrator) Migrate(ctx context.Context, target int) error {
	if m.loadErr != nil {
		return m.loadErr
	}
	if target <= 0 {
		target = m.Latest()
	}
	if target > m.Latest() {
		return fmt.Errorf("schema version %d requested but latest known is %d", target, m.Latest())
	}

	current, err := m.CurrentVersion(ctx)
	if err != nil {
		return err
	}
	if current > target {
		return fmt.Errorf("database is at schema version %d, newer than requested %d", current, target)
	}

	for _, mig := range m.migrations {
		if mig.Version <= current || mig.Version > target {
			continue
		}
		err := WithTransaction(ctx, m.conn, func(tx *sql.Tx) error {
			if _, err := tx.ExecContext(ctx, mig.Up); err != nil {
				return err
			}
			_, err := tx.ExecContext(ctx,
				"INSERT INTO schema_migrations (version, name, applied_at) VALUES (?, ?, ?)",
				mig.Version, mig.Name, time.Now().UTC().Format(time.RFC3339Nano),
			)
			return err
		})
		if err != nil {
			return fmt.Errorf("failed to apply migration %04d_%s: %w", mig.Version, mig.Name, err)
		}
	}

	return nil
}

// Rollback applies down steps in reverse order until the schema is at target
func (m *Migrator) Rollback(ctx context.Context, target int) error {
	if m.loadErr != nil {
		return m.loadErr
	}
	if target < 0 {
		return fmt.Errorf("invalid rollback target %d", target)
	}

	current, err := m.CurrentVersion(ctx)
	if err != nil {
		return err
	}

	for i := len(m.migrations) - 1; i >= 0; i-- {
		mig := m.migrations[i]
		if mig.Version > current || mig.Version <= target {
			continue
		}
		err := WithTransaction(ctx, m.conn, func(tx *sql.Tx) error {
			if _, err := tx.ExecContext(ctx, mig.Down); err != nil {
				return err
			}
			_, err := tx.ExecContext(ctx, "DELETE FROM schema_migrations WHERE version = ?", mig.Version)
			return err
		})
		if err != nil {
			return fmt.Errorf("failed to roll back migration %04d_%s: %w", mig.Version, mig.Name, err)
		}
	}

	return nil
}
