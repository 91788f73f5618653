// Package testing provides testing utilities and helpers for the trade journal.
package testing

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"

	"github.com/aristath/tradejournal/internal/database"
)

// NewTestManager creates a connection manager over a temporary database file.
// The connection is opened lazily; it is closed when the test ends.
func NewTestManager(t *testing.T, driver database.Driver) *database.Manager {
	t.Helper()

	m := database.NewManager(database.ManagerConfig{
		DataDir: t.TempDir(),
		Driver:  driver,
	}, nil, zerolog.New(nil).Level(zerolog.Disabled))

	t.Cleanup(func() {
		if err := m.Close(); err != nil {
			t.Logf("Warning: Failed to close test database: %v", err)
		}
	})
	return m
}

// NewTestDB creates a migrated database in a temporary file.
// Returns the database instance and a cleanup function that closes the connection.
// The cleanup function is idempotent and can be called multiple times safely.
func NewTestDB(t *testing.T, name string) (*database.DB, func()) {
	t.Helper()

	tmpPath, cleanupFile := CreateTempDBFile(t, name)

	db, err := database.New(database.Config{
		Path:    tmpPath,
		Profile: database.ProfileLedger,
		Name:    name,
	})
	if err != nil {
		cleanupFile()
		t.Fatalf("Failed to create test database %s: %v", name, err)
	}

	if err := db.Migrate(context.Background(), 0); err != nil {
		_ = db.Close()
		cleanupFile()
		t.Fatalf("Failed to migrate test database %s: %v", name, err)
	}

	closed := false
	return db, func() {
		if closed {
			return
		}
		closed = true
		if err := db.Close(); err != nil {
			t.Logf("Warning: Failed to close test database %s: %v", name, err)
		}
		cleanupFile()
	}
}

// CreateTempDBFile reserves a temporary database path.
// Returns the file path and a cleanup function that removes it with its WAL files.
func CreateTempDBFile(t *testing.T, name string) (string, func()) {
	t.Helper()

	dir, err := os.MkdirTemp("", fmt.Sprintf("test_%s_*", name))
	if err != nil {
		t.Fatalf("Failed to create temporary database directory: %v", err)
	}
	tmpPath := filepath.Join(dir, name+".db")

	return tmpPath, func() {
		if err := os.RemoveAll(dir); err != nil {
			t.Logf("Warning: Failed to remove temporary database directory %s: %v", dir, err)
		}
	}
}
