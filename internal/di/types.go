// Package di provides dependency injection type definitions.
//
// The Container holds every long-lived component of the journal and is the
// single source of truth handed to the HTTP server and the CLI.
package di

import (
	"github.com/aristath/tradejournal/internal/database"
	"github.com/aristath/tradejournal/internal/events"
	"github.com/aristath/tradejournal/internal/modules/journal"
	"github.com/aristath/tradejournal/internal/reliability"
	"github.com/aristath/tradejournal/internal/scheduler"
)

// Container holds all dependencies for the application
type Container struct {
	// Database connection manager (single journal database, opened lazily)
	Registry *database.Registry
	Manager  *database.Manager

	// Events
	EventBus     *events.Bus
	EventManager *events.Manager

	// Repositories
	Journal *journal.Repository

	// Maintenance
	Backups  *reliability.BackupService
	S3Client *reliability.S3Client // nil unless BACKUP_S3_BUCKET is set
}

// JobInstances holds the registered maintenance jobs
type JobInstances struct {
	Scheduler        *scheduler.Scheduler
	WALCheckpoint    *scheduler.CheckWALCheckpointsJob
	Backup           *reliability.BackupJob
	DailyMaintenance *reliability.DailyMaintenanceJob
}

// Close releases the database connection
func (c *Container) Close() error {
	if c == nil || c.Manager == nil {
		return nil
	}
	return c.Manager.Close()
}
