package reliability

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/disk"
)

// BackupJob creates a database backup on schedule
type BackupJob struct {
	service *BackupService
	timeout time.Duration
	log     zerolog.Logger
}

// NewBackupJob creates a new backup job
func NewBackupJob(service *BackupService, log zerolog.Logger) *BackupJob {
	return &BackupJob{
		service: service,
		timeout: 5 * time.Minute,
		log:     log.With().Str("job", "backup").Logger(),
	}
}

// Run executes the backup job
func (j *BackupJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	info, err := j.service.CreateBackup(ctx)
	if err != nil {
		return fmt.Errorf("backup failed: %w", err)
	}
	j.log.Debug().Str("path", info.Path).Msg("Scheduled backup written")
	return nil
}

// Name returns the job name for scheduler
func (j *BackupJob) Name() string {
	return "backup"
}

// Disk space thresholds in bytes
const (
	diskCriticalBytes = 100 << 20
	diskWarningBytes  = 1 << 30
)

// DailyMaintenanceJob checks database integrity, truncates the WAL and
// watches free disk space
type DailyMaintenanceJob struct {
	conns   ConnectionProvider
	usage   func(path string) (*disk.UsageStat, error)
	timeout time.Duration
	log     zerolog.Logger
}

// NewDailyMaintenanceJob creates a new daily maintenance job
func NewDailyMaintenanceJob(conns ConnectionProvider, log zerolog.Logger) *DailyMaintenanceJob {
	return &DailyMaintenanceJob{
		conns:   conns,
		usage:   disk.Usage,
		timeout: 2 * time.Minute,
		log:     log.With().Str("job", "daily_maintenance").Logger(),
	}
}

// Run executes the daily maintenance job
func (j *DailyMaintenanceJob) Run() error {
	j.log.Info().Msg("Starting daily maintenance")
	startTime := time.Now()

	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	db, err := j.conns.EnsureConnection(ctx)
	if err != nil {
		return err
	}

	// Step 1: Integrity check
	if err := db.HealthCheck(ctx); err != nil {
		j.log.Error().Err(err).Str("database", db.Name()).Msg("CRITICAL: Database integrity check failed")
		return fmt.Errorf("CRITICAL: %w", err)
	}

	// Step 2: WAL checkpoint (prevent bloat)
	if err := db.WALCheckpoint(ctx, "TRUNCATE"); err != nil {
		j.log.Warn().Err(err).Str("database", db.Name()).Msg("WAL checkpoint failed")
	}

	// Step 3: Check disk space
	if err := j.checkDiskSpace(filepath.Dir(db.Path())); err != nil {
		return err
	}

	if stats, err := db.GetStats(ctx); err == nil {
		j.log.Info().
			Str("database", db.Name()).
			Int64("size_bytes", stats.SizeBytes).
			Int64("wal_size_bytes", stats.WALSizeBytes).
			Int64("freelist_count", stats.FreelistCount).
			Msg("Database metrics")
	}

	j.log.Info().
		Dur("duration_ms", time.Since(startTime)).
		Msg("Daily maintenance completed successfully")

	return nil
}

// Name returns the job name for scheduler
func (j *DailyMaintenanceJob) Name() string {
	return "daily_maintenance"
}

// checkDiskSpace fails when the data directory's filesystem is nearly full
func (j *DailyMaintenanceJob) checkDiskSpace(dir string) error {
	usage, err := j.usage(dir)
	if err != nil {
		return fmt.Errorf("failed to stat filesystem: %w", err)
	}

	if usage.Free < diskCriticalBytes {
		j.log.Error().
			Uint64("free_bytes", usage.Free).
			Msg("CRITICAL: Insufficient disk space")
		return fmt.Errorf("CRITICAL: only %d bytes free on %s", usage.Free, dir)
	}

	if usage.Free < diskWarningBytes {
		j.log.Warn().
			Uint64("free_bytes", usage.Free).
			Float64("used_percent", usage.UsedPercent).
			Msg("Disk space running low")
	}

	return nil
}
