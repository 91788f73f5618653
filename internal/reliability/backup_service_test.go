package reliability

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/tradejournal/internal/database"
	"github.com/aristath/tradejournal/internal/events"
	testutil "github.com/aristath/tradejournal/internal/testing"
)

var testLog = zerolog.New(nil).Level(zerolog.Disabled)

type memoryStore struct {
	mu        sync.Mutex
	objects   map[string][]byte
	uploadErr error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{objects: make(map[string][]byte)}
}

func (m *memoryStore) Upload(ctx context.Context, key string, body io.Reader, size int64) error {
	if m.uploadErr != nil {
		return m.uploadErr
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = data
	return nil
}

func (m *memoryStore) List(ctx context.Context, prefix string) ([]RemoteObject, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]RemoteObject, 0)
	for key, data := range m.objects {
		if strings.HasPrefix(key, prefix) {
			out = append(out, RemoteObject{Key: key, SizeBytes: int64(len(data))})
		}
	}
	return out, nil
}

func (m *memoryStore) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	return nil
}

func (m *memoryStore) keys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := make([]string, 0, len(m.objects))
	for k := range m.objects {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func seededManager(t *testing.T, driver database.Driver) *database.Manager {
	t.Helper()
	manager := testutil.NewTestManager(t, driver)
	db, err := manager.EnsureConnection(context.Background())
	require.NoError(t, err)
	_, err = db.ExecContext(context.Background(),
		"INSERT INTO buys (id, symbol, buy_date, quantity, buy_price, created_at) VALUES ('b1', 'ACME', '2024-01-10', 10, 50, '2024-01-10T00:00:00Z')")
	require.NoError(t, err)
	return manager
}

func steppingClock(start time.Time) func() time.Time {
	current := start
	return func() time.Time {
		current = current.Add(time.Minute)
		return current
	}
}

func TestBackupService_CreateBackup(t *testing.T) {
	for _, driver := range []database.Driver{database.DriverCgo, database.DriverModernc} {
		t.Run(string(driver), func(t *testing.T) {
			manager := seededManager(t, driver)
			emitter := testutil.NewMockEmitter()
			dir := filepath.Join(t.TempDir(), "backups")
			service := NewBackupService(manager, BackupConfig{Dir: dir}, emitter, testLog)

			info, err := service.CreateBackup(context.Background())
			require.NoError(t, err)

			assert.FileExists(t, info.Path)
			assert.Equal(t, dir, filepath.Dir(info.Path))
			assert.True(t, strings.HasPrefix(info.Filename, "trades_db-backup-"))
			assert.Greater(t, info.SizeBytes, int64(0))
			assert.True(t, strings.HasPrefix(info.Checksum, "sha256:"))
			assert.False(t, info.Uploaded)

			// The copy holds the journal rows
			copyDB, err := database.New(database.Config{Path: info.Path, Driver: driver, Name: "copy"})
			require.NoError(t, err)
			defer copyDB.Close()
			var count int
			require.NoError(t, copyDB.QueryRowContext(context.Background(), "SELECT COUNT(*) FROM buys").Scan(&count))
			assert.Equal(t, 1, count)

			recorded := emitter.Events()
			require.Len(t, recorded, 1)
			assert.Equal(t, events.BackupCompleted, recorded[0].Type)
			data := recorded[0].Data.(*events.BackupCompletedData)
			assert.Equal(t, info.Path, data.Path)
		})
	}
}

func TestBackupService_RotatesLocalBackups(t *testing.T) {
	manager := seededManager(t, database.DriverCgo)
	dir := t.TempDir()
	service := NewBackupService(manager, BackupConfig{Dir: dir, Keep: 3}, nil, testLog)
	service.now = steppingClock(time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC))

	var created []BackupInfo
	for i := 0; i < 5; i++ {
		info, err := service.CreateBackup(context.Background())
		require.NoError(t, err)
		created = append(created, info)
	}

	backups, err := service.ListBackups(database.DefaultName)
	require.NoError(t, err)
	require.Len(t, backups, 3)
	assert.Equal(t, created[4].Filename, backups[0].Filename)
	assert.Equal(t, created[2].Filename, backups[2].Filename)
	assert.NoFileExists(t, created[0].Path)
}

func TestBackupService_KeepHasFloor(t *testing.T) {
	service := NewBackupService(nil, BackupConfig{Dir: t.TempDir(), Keep: 1}, nil, testLog)
	assert.Equal(t, minBackupsToKeep, service.keep)
}

func TestBackupService_UploadsAndRotatesRemote(t *testing.T) {
	manager := seededManager(t, database.DriverCgo)
	store := newMemoryStore()
	emitter := testutil.NewMockEmitter()
	service := NewBackupService(manager, BackupConfig{Dir: t.TempDir(), Keep: 3, Remote: store}, emitter, testLog)
	service.now = steppingClock(time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC))

	var last BackupInfo
	for i := 0; i < 4; i++ {
		info, err := service.CreateBackup(context.Background())
		require.NoError(t, err)
		last = info
	}

	assert.True(t, last.Uploaded)
	assert.Equal(t, "journal/"+last.Filename, last.Key)

	keys := store.keys()
	require.Len(t, keys, 3)
	assert.Contains(t, keys, last.Key)

	local, err := os.ReadFile(last.Path)
	require.NoError(t, err)
	assert.Equal(t, local, store.objects[last.Key])

	data := emitter.Events()[3].Data.(*events.BackupCompletedData)
	assert.True(t, data.Uploaded)
	assert.Equal(t, last.Key, data.Key)
}

func TestBackupService_UploadFailureKeepsLocalCopy(t *testing.T) {
	manager := seededManager(t, database.DriverCgo)
	store := newMemoryStore()
	store.uploadErr = errors.New("network down")
	service := NewBackupService(manager, BackupConfig{Dir: t.TempDir(), Remote: store}, nil, testLog)

	info, err := service.CreateBackup(context.Background())
	require.NoError(t, err)
	assert.False(t, info.Uploaded)
	assert.Empty(t, info.Key)
	assert.FileExists(t, info.Path)
}

func TestBackupService_ConnectionFailure(t *testing.T) {
	service := NewBackupService(testutil.FailingConnectionProvider{Err: database.ErrInitializationFailed}, BackupConfig{Dir: t.TempDir()}, nil, testLog)

	_, err := service.CreateBackup(context.Background())
	assert.ErrorIs(t, err, database.ErrInitializationFailed)
}

func TestBackupService_ListBackupsMissingDir(t *testing.T) {
	service := NewBackupService(nil, BackupConfig{Dir: filepath.Join(t.TempDir(), "missing")}, nil, testLog)

	backups, err := service.ListBackups(database.DefaultName)
	require.NoError(t, err)
	assert.Empty(t, backups)
}

func TestParseBackupName(t *testing.T) {
	ts := time.Date(2024, 6, 1, 14, 30, 22, 123456000, time.UTC)
	name := backupPrefix("trades_db") + ts.Format(backupTimeLayout) + ".db"

	got, ok := parseBackupName(name, backupPrefix("trades_db"))
	require.True(t, ok)
	assert.True(t, ts.Equal(got))

	_, ok = parseBackupName("other-backup-2024.db", backupPrefix("trades_db"))
	assert.False(t, ok)
	_, ok = parseBackupName(backupPrefix("trades_db")+"garbage.db", backupPrefix("trades_db"))
	assert.False(t, ok)
}

func TestVerifyBackup(t *testing.T) {
	err := VerifyBackup(context.Background(), database.DriverModernc, filepath.Join(t.TempDir(), "missing.db"))
	assert.Error(t, err)

	corrupt := filepath.Join(t.TempDir(), "corrupt.db")
	require.NoError(t, os.WriteFile(corrupt, []byte(strings.Repeat("not a database ", 512)), 0644))
	err = VerifyBackup(context.Background(), database.DriverModernc, corrupt)
	assert.Error(t, err)
}

func TestVerifyBackup_MigratedDatabase(t *testing.T) {
	db, cleanup := testutil.NewTestDB(t, "trades_db")
	defer cleanup()

	dest := filepath.Join(t.TempDir(), "copy.db")
	require.NoError(t, db.BackupTo(context.Background(), dest))
	assert.NoError(t, VerifyBackup(context.Background(), database.DriverModernc, dest))
}
