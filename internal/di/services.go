package di

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/aristath/tradejournal/internal/config"
	"github.com/aristath/tradejournal/internal/events"
	"github.com/aristath/tradejournal/internal/modules/journal"
	"github.com/aristath/tradejournal/internal/reliability"
)

// InitializeServices creates the event bus, the journal repository and the
// backup service
func InitializeServices(ctx context.Context, container *Container, cfg *config.Config, log zerolog.Logger) error {
	container.EventBus = events.NewBus()
	container.EventManager = events.NewManager(container.EventBus, log)

	container.Journal = journal.NewRepository(container.Manager, container.EventManager, log)

	backupCfg := reliability.BackupConfig{}
	if m := cfg.Maintenance; m != nil {
		backupCfg.Dir = m.BackupDir
		backupCfg.Keep = m.BackupKeep

		if m.S3 != nil {
			client, err := reliability.NewS3Client(ctx, reliability.S3Config{
				Bucket:          m.S3.Bucket,
				Endpoint:        m.S3.Endpoint,
				Region:          m.S3.Region,
				AccessKeyID:     m.S3.AccessKeyID,
				SecretAccessKey: m.S3.SecretAccessKey,
			}, log)
			if err != nil {
				return fmt.Errorf("failed to create S3 client: %w", err)
			}
			container.S3Client = client
			backupCfg.Remote = client
		}
	}
	if backupCfg.Dir == "" {
		backupCfg.Dir = filepath.Join(cfg.DataDir, "backups")
	}
	container.Backups = reliability.NewBackupService(container.Manager, backupCfg, container.EventManager, log)

	return nil
}
