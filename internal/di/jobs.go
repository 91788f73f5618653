package di

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/aristath/tradejournal/internal/config"
	"github.com/aristath/tradejournal/internal/reliability"
	"github.com/aristath/tradejournal/internal/scheduler"
)

// RegisterJobs creates the maintenance jobs and registers the ones with a
// schedule. The scheduler is returned unstarted.
func RegisterJobs(container *Container, cfg *config.Config, log zerolog.Logger) (*JobInstances, error) {
	instances := &JobInstances{
		Scheduler: scheduler.New(log),
	}

	instances.WALCheckpoint = scheduler.NewCheckWALCheckpointsJob(container.Manager)
	instances.WALCheckpoint.SetLogger(log)
	instances.Backup = reliability.NewBackupJob(container.Backups, log)
	instances.DailyMaintenance = reliability.NewDailyMaintenanceJob(container.Manager, log)

	m := cfg.Maintenance
	if m == nil {
		m = &config.MaintenanceConfig{}
	}

	for _, entry := range []struct {
		schedule string
		job      scheduler.Job
	}{
		{m.WALCheckpointSchedule, instances.WALCheckpoint},
		{m.BackupSchedule, instances.Backup},
		{m.MaintenanceSchedule, instances.DailyMaintenance},
	} {
		if entry.schedule == "" {
			log.Info().Str("job", entry.job.Name()).Msg("Job disabled")
			continue
		}
		if err := instances.Scheduler.AddJob(entry.schedule, entry.job); err != nil {
			return nil, fmt.Errorf("failed to register %s job: %w", entry.job.Name(), err)
		}
	}

	return instances, nil
}
