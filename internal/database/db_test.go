package database

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T, driver Driver) *DB {
	t.Helper()

	db, err := New(Config{
		Path:   filepath.Join(t.TempDir(), "nested", "journal.db"),
		Driver: driver,
		Name:   "test",
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestNew_CreatesDirectoryAndDefaults(t *testing.T) {
	db := openTestDB(t, "")

	assert.Equal(t, ProfileLedger, db.Profile())
	assert.Equal(t, DriverModernc, db.Driver())
	assert.True(t, filepath.IsAbs(db.Path()))
	_, err := os.Stat(filepath.Dir(db.Path()))
	assert.NoError(t, err)
	assert.False(t, db.OpenedAt().IsZero())
}

func TestNew_RequiresPath(t *testing.T) {
	_, err := New(Config{Name: "empty"})
	assert.Error(t, err)
}

func TestNew_ForeignKeysEnabled(t *testing.T) {
	for _, driver := range []Driver{DriverModernc, DriverCgo} {
		t.Run(string(driver), func(t *testing.T) {
			db := openTestDB(t, driver)

			var enabled int
			require.NoError(t, db.QueryRowContext(context.Background(), "PRAGMA foreign_keys").Scan(&enabled))
			assert.Equal(t, 1, enabled)
		})
	}
}

func TestBuildConnectionString(t *testing.T) {
	modernc := buildConnectionString("/tmp/a.db", DriverModernc, ProfileLedger)
	assert.Contains(t, modernc, "/tmp/a.db?_pragma=journal_mode(WAL)")
	assert.Contains(t, modernc, "_pragma=synchronous(FULL)")
	assert.Contains(t, modernc, "_pragma=foreign_keys(1)")

	cgo := buildConnectionString("/tmp/a.db", DriverCgo, ProfileStandard)
	assert.Contains(t, cgo, "_synchronous=NORMAL")
	assert.Contains(t, cgo, "_foreign_keys=1")

	memory := buildConnectionString("file:x?mode=memory", DriverModernc, ProfileStandard)
	assert.Contains(t, memory, "file:x?mode=memory&_pragma=")
}

func TestWithTransaction(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t, DriverModernc)
	_, err := db.ExecContext(ctx, "CREATE TABLE items (name TEXT NOT NULL)")
	require.NoError(t, err)

	t.Run("commits on success", func(t *testing.T) {
		err := WithTransaction(ctx, db.Conn(), func(tx *sql.Tx) error {
			_, err := tx.ExecContext(ctx, "INSERT INTO items (name) VALUES (?)", "kept")
			return err
		})
		require.NoError(t, err)
	})

	t.Run("rolls back on error", func(t *testing.T) {
		boom := errors.New("boom")
		err := WithTransaction(ctx, db.Conn(), func(tx *sql.Tx) error {
			if _, err := tx.ExecContext(ctx, "INSERT INTO items (name) VALUES (?)", "dropped"); err != nil {
				return err
			}
			return boom
		})
		assert.ErrorIs(t, err, boom)
	})

	t.Run("rolls back on panic", func(t *testing.T) {
		err := WithTransaction(ctx, db.Conn(), func(tx *sql.Tx) error {
			_, _ = tx.ExecContext(ctx, "INSERT INTO items (name) VALUES (?)", "panicked")
			panic("unexpected")
		})
		assert.ErrorContains(t, err, "panic in transaction")
	})

	var count int
	require.NoError(t, db.QueryRowContext(ctx, "SELECT COUNT(*) FROM items").Scan(&count))
	assert.Equal(t, 1, count)

	assert.Error(t, WithTransaction(ctx, nil, func(*sql.Tx) error { return nil }))
}

func TestHealthAndMaintenance(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t, DriverModernc)

	require.NoError(t, db.HealthCheck(ctx))
	require.NoError(t, db.QuickCheck(ctx))
	require.NoError(t, db.WALCheckpoint(ctx, ""))
	require.NoError(t, db.WALCheckpoint(ctx, "passive"))
	assert.Error(t, db.WALCheckpoint(ctx, "DROP TABLE"))

	stats, err := db.GetStats(ctx)
	require.NoError(t, err)
	assert.Positive(t, stats.PageSize)
}

func TestBackupTo(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t, DriverModernc)
	require.NoError(t, db.Migrate(ctx, 0))
	_, err := db.ExecContext(ctx,
		"INSERT INTO buys (id, symbol, buy_date, quantity, buy_price, created_at) VALUES (?, ?, ?, ?, ?, ?)",
		"b1", "ACME", "2024-01-10", 10.0, 50.0, "2024-01-10T00:00:00Z")
	require.NoError(t, err)

	dest := filepath.Join(t.TempDir(), "backups", "copy.db")
	require.NoError(t, db.BackupTo(ctx, dest))

	copyDB, err := New(Config{Path: dest, Name: "copy"})
	require.NoError(t, err)
	defer copyDB.Close()

	var symbol string
	require.NoError(t, copyDB.QueryRowContext(ctx, "SELECT symbol FROM buys WHERE id = ?", "b1").Scan(&symbol))
	assert.Equal(t, "ACME", symbol)
}
