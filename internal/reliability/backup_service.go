// Package reliability provides database backups, off-device backup upload and
// the maintenance jobs that keep the journal database healthy.
package reliability

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/tradejournal/internal/database"
	"github.com/aristath/tradejournal/internal/events"
)

// backupTimeLayout is embedded in backup file names
const backupTimeLayout = "2006-01-02-150405.000000"

// minBackupsToKeep is the floor for local and remote retention
const minBackupsToKeep = 3

// ConnectionProvider hands out the journal connection
type ConnectionProvider interface {
	EnsureConnection(ctx context.Context) (*database.DB, error)
}

// Emitter publishes backup notifications
type Emitter interface {
	EmitTyped(eventType events.EventType, module string, data events.EventData)
}

// RemoteObject is a backup stored off-device
type RemoteObject struct {
	Key          string
	SizeBytes    int64
	LastModified time.Time
}

// RemoteStore receives backup copies
type RemoteStore interface {
	Upload(ctx context.Context, key string, body io.Reader, size int64) error
	List(ctx context.Context, prefix string) ([]RemoteObject, error)
	Delete(ctx context.Context, key string) error
}

// BackupInfo describes one backup file
type BackupInfo struct {
	Filename  string    `json:"filename"`
	Path      string    `json:"path"`
	Timestamp time.Time `json:"timestamp"`
	SizeBytes int64     `json:"size_bytes"`
	Checksum  string    `json:"checksum,omitempty"`
	Uploaded  bool      `json:"uploaded"`
	Key       string    `json:"key,omitempty"`
}

// BackupService writes consistent copies of the journal database
type BackupService struct {
	conns     ConnectionProvider
	backupDir string
	keep      int
	remote    RemoteStore
	emitter   Emitter
	now       func() time.Time
	log       zerolog.Logger
}

// BackupConfig configures a BackupService
type BackupConfig struct {
	Dir    string
	Keep   int         // backups to retain locally and remotely, at least 3
	Remote RemoteStore // optional
}

// NewBackupService creates a backup service. emitter may be nil.
func NewBackupService(conns ConnectionProvider, cfg BackupConfig, emitter Emitter, log zerolog.Logger) *BackupService {
	keep := cfg.Keep
	if keep < minBackupsToKeep {
		keep = minBackupsToKeep
	}
	return &BackupService{
		conns:     conns,
		backupDir: cfg.Dir,
		keep:      keep,
		remote:    cfg.Remote,
		emitter:   emitter,
		now:       time.Now,
		log:       log.With().Str("service", "backup").Logger(),
	}
}

// Dir returns the local backup directory
func (s *BackupService) Dir() string {
	return s.backupDir
}

// CreateBackup snapshots the database with VACUUM INTO, verifies the copy,
// uploads it when a remote store is configured and rotates old backups.
func (s *BackupService) CreateBackup(ctx context.Context) (BackupInfo, error) {
	start := time.Now()

	db, err := s.conns.EnsureConnection(ctx)
	if err != nil {
		return BackupInfo{}, err
	}

	timestamp := s.now().UTC()
	filename := backupPrefix(db.Name()) + timestamp.Format(backupTimeLayout) + ".db"
	info := BackupInfo{
		Filename:  filename,
		Path:      filepath.Join(s.backupDir, filename),
		Timestamp: timestamp,
	}

	if err := db.BackupTo(ctx, info.Path); err != nil {
		return BackupInfo{}, err
	}

	if err := VerifyBackup(ctx, db.Driver(), info.Path); err != nil {
		s.log.Error().Err(err).Str("path", info.Path).Msg("Backup verification failed")
		_ = os.Remove(info.Path)
		return BackupInfo{}, err
	}

	stat, err := os.Stat(info.Path)
	if err != nil {
		return BackupInfo{}, fmt.Errorf("failed to stat backup: %w", err)
	}
	info.SizeBytes = stat.Size()

	if info.Checksum, err = calculateChecksum(info.Path); err != nil {
		return BackupInfo{}, fmt.Errorf("failed to calculate checksum: %w", err)
	}

	if s.remote != nil {
		info.Key = path.Join("journal", filename)
		if err := s.upload(ctx, info); err != nil {
			// The local copy stays; the next run uploads a fresh one
			s.log.Error().Err(err).Str("key", info.Key).Msg("Backup upload failed")
			info.Key = ""
		} else {
			info.Uploaded = true
		}
	}

	if _, err := s.RotateOldBackups(db.Name()); err != nil {
		s.log.Warn().Err(err).Msg("Local backup rotation failed")
	}
	if info.Uploaded {
		if _, err := s.RotateRemoteBackups(ctx, db.Name()); err != nil {
			s.log.Warn().Err(err).Msg("Remote backup rotation failed")
		}
	}

	s.log.Info().
		Str("path", info.Path).
		Int64("size_bytes", info.SizeBytes).
		Bool("uploaded", info.Uploaded).
		Dur("duration_ms", time.Since(start)).
		Msg("Backup completed")

	if s.emitter != nil {
		s.emitter.EmitTyped(events.BackupCompleted, "reliability", &events.BackupCompletedData{
			Path:      info.Path,
			SizeBytes: info.SizeBytes,
			Uploaded:  info.Uploaded,
			Key:       info.Key,
		})
	}

	return info, nil
}

func (s *BackupService) upload(ctx context.Context, info BackupInfo) error {
	f, err := os.Open(info.Path)
	if err != nil {
		return fmt.Errorf("failed to open backup: %w", err)
	}
	defer f.Close()

	return s.remote.Upload(ctx, info.Key, f, info.SizeBytes)
}

// ListBackups lists local backups of the named database, newest first
func (s *BackupService) ListBackups(name string) ([]BackupInfo, error) {
	entries, err := os.ReadDir(s.backupDir)
	if os.IsNotExist(err) {
		return []BackupInfo{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read backup directory: %w", err)
	}

	prefix := backupPrefix(name)
	backups := make([]BackupInfo, 0, len(entries))
	for _, entry := range entries {
		timestamp, ok := parseBackupName(entry.Name(), prefix)
		if entry.IsDir() || !ok {
			continue
		}

		info := BackupInfo{
			Filename:  entry.Name(),
			Path:      filepath.Join(s.backupDir, entry.Name()),
			Timestamp: timestamp,
		}
		if fi, err := entry.Info(); err == nil {
			info.SizeBytes = fi.Size()
		}
		backups = append(backups, info)
	}

	// Sort by timestamp (newest first)
	sort.Slice(backups, func(i, j int) bool {
		return backups[i].Timestamp.After(backups[j].Timestamp)
	})

	return backups, nil
}

// RotateOldBackups deletes local backups beyond the retention count and
// returns how many were removed
func (s *BackupService) RotateOldBackups(name string) (int, error) {
	backups, err := s.ListBackups(name)
	if err != nil {
		return 0, err
	}

	deleted := 0
	for _, b := range backups[min(len(backups), s.keep):] {
		if err := os.Remove(b.Path); err != nil {
			s.log.Error().Err(err).Str("path", b.Path).Msg("Failed to delete old backup")
			continue
		}
		s.log.Debug().Str("path", b.Path).Msg("Deleted old backup")
		deleted++
	}

	return deleted, nil
}

// RotateRemoteBackups deletes remote backups beyond the retention count
func (s *BackupService) RotateRemoteBackups(ctx context.Context, name string) (int, error) {
	if s.remote == nil {
		return 0, nil
	}

	prefix := path.Join("journal", backupPrefix(name))
	objects, err := s.remote.List(ctx, prefix)
	if err != nil {
		return 0, fmt.Errorf("failed to list remote backups: %w", err)
	}

	type remoteBackup struct {
		key       string
		timestamp time.Time
	}
	backups := make([]remoteBackup, 0, len(objects))
	for _, obj := range objects {
		timestamp, ok := parseBackupName(path.Base(obj.Key), backupPrefix(name))
		if !ok {
			s.log.Warn().Str("key", obj.Key).Msg("Failed to parse timestamp from backup key")
			continue
		}
		backups = append(backups, remoteBackup{key: obj.Key, timestamp: timestamp})
	}
	sort.Slice(backups, func(i, j int) bool {
		return backups[i].timestamp.After(backups[j].timestamp)
	})

	deleted := 0
	for _, b := range backups[min(len(backups), s.keep):] {
		if err := s.remote.Delete(ctx, b.key); err != nil {
			s.log.Error().Err(err).Str("key", b.key).Msg("Failed to delete old remote backup")
			continue
		}
		deleted++
	}

	return deleted, nil
}

// VerifyBackup opens a backup file and runs an integrity check on it
func VerifyBackup(ctx context.Context, driver database.Driver, backupPath string) error {
	if _, err := os.Stat(backupPath); err != nil {
		return fmt.Errorf("backup %s not found: %w", backupPath, err)
	}

	backupDB, err := sql.Open(string(driver), backupPath)
	if err != nil {
		return fmt.Errorf("failed to open backup %s: %w", backupPath, err)
	}
	defer backupDB.Close()

	var result string
	if err := backupDB.QueryRowContext(ctx, "PRAGMA integrity_check").Scan(&result); err != nil {
		return fmt.Errorf("integrity check of %s failed: %w", backupPath, err)
	}
	if result != "ok" {
		return fmt.Errorf("integrity check of %s failed: %s", backupPath, result)
	}
	return nil
}

func backupPrefix(name string) string {
	return name + "-backup-"
}

func parseBackupName(filename, prefix string) (time.Time, bool) {
	if !strings.HasPrefix(filename, prefix) || !strings.HasSuffix(filename, ".db") {
		return time.Time{}, false
	}
	raw := strings.TrimSuffix(strings.TrimPrefix(filename, prefix), ".db")
	t, err := time.Parse(backupTimeLayout, raw)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// calculateChecksum calculates SHA256 checksum of a file
func calculateChecksum(filePath string) (string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return "", err
	}
	defer file.Close()

	hash := sha256.New()
	if _, err := io.Copy(hash, file); err != nil {
		return "", err
	}

	return fmt.Sprintf("sha256:%x", hash.Sum(nil)), nil
}
