package di

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/tradejournal/internal/config"
	"github.com/aristath/tradejournal/internal/database"
	"github.com/aristath/tradejournal/internal/events"
	"github.com/aristath/tradejournal/internal/modules/journal"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	return &config.Config{
		DataDir:  dir,
		DBName:   database.DefaultName,
		DBDriver: database.DriverModernc,
		Port:     8001,
		Maintenance: &config.MaintenanceConfig{
			WALCheckpointSchedule: "0 */15 * * * *",
			BackupSchedule:        "0 0 2 * * *",
			MaintenanceSchedule:   "",
			BackupDir:             filepath.Join(dir, "backups"),
			BackupKeep:            3,
		},
	}
}

func TestWire(t *testing.T) {
	cfg := testConfig(t)
	log := zerolog.Nop()

	container, jobs, err := Wire(context.Background(), cfg, log)
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Close() })

	assert.NotNil(t, container.Manager)
	assert.NotNil(t, container.EventManager)
	assert.NotNil(t, container.Journal)
	assert.NotNil(t, container.Backups)
	assert.Nil(t, container.S3Client)

	require.NotNil(t, jobs)
	assert.NotNil(t, jobs.WALCheckpoint)
	assert.NotNil(t, jobs.Backup)
	assert.NotNil(t, jobs.DailyMaintenance)

	names := []string{}
	for _, info := range jobs.Scheduler.Jobs() {
		names = append(names, info.Name)
	}
	assert.Equal(t, []string{"backup", "check_wal_checkpoints"}, names)
}

func TestWire_RepositoryPublishesEvents(t *testing.T) {
	container, _, err := Wire(context.Background(), testConfig(t), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Close() })

	var received []events.EventType
	container.EventBus.Subscribe(func(e *events.Event) {
		received = append(received, e.Type)
	}, events.BuyRecorded)

	_, err = container.Journal.RecordBuy(context.Background(), journal.BuyInput{
		Symbol:   "MSFT",
		BuyDate:  time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
		Quantity: 1,
		BuyPrice: 400,
	})
	require.NoError(t, err)
	assert.Equal(t, []events.EventType{events.BuyRecorded}, received)
	assert.FileExists(t, container.Manager.Path())
}

func TestWire_BackupJobRuns(t *testing.T) {
	container, jobs, err := Wire(context.Background(), testConfig(t), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Close() })

	require.NoError(t, jobs.Scheduler.RunNow("backup"))

	backups, err := container.Backups.ListBackups(container.Manager.Name())
	require.NoError(t, err)
	assert.Len(t, backups, 1)
}

func TestWire_InvalidSchedule(t *testing.T) {
	cfg := testConfig(t)
	cfg.Maintenance.BackupSchedule = "whenever"

	_, _, err := Wire(context.Background(), cfg, zerolog.Nop())
	assert.Error(t, err)
}

func TestWire_S3Client(t *testing.T) {
	cfg := testConfig(t)
	cfg.Maintenance.S3 = &config.S3Config{
		Bucket:          "journal-backups",
		Endpoint:        "http://127.0.0.1:1",
		AccessKeyID:     "key",
		SecretAccessKey: "secret",
	}

	container, _, err := Wire(context.Background(), cfg, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Close() })
	assert.NotNil(t, container.S3Client)
}
