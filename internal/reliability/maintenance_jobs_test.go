package reliability

import (
	"errors"
	"testing"

	"github.com/shirou/gopsutil/v3/disk"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/tradejournal/internal/database"
	testutil "github.com/aristath/tradejournal/internal/testing"
)

func TestDailyMaintenanceJob_Run(t *testing.T) {
	manager := seededManager(t, database.DriverModernc)
	job := NewDailyMaintenanceJob(manager, testLog)
	job.usage = func(string) (*disk.UsageStat, error) {
		return &disk.UsageStat{Free: 10 << 30, UsedPercent: 40}, nil
	}

	assert.Equal(t, "daily_maintenance", job.Name())
	assert.NoError(t, job.Run())
}

func TestDailyMaintenanceJob_DiskSpace(t *testing.T) {
	manager := seededManager(t, database.DriverModernc)
	job := NewDailyMaintenanceJob(manager, testLog)

	job.usage = func(string) (*disk.UsageStat, error) {
		return &disk.UsageStat{Free: 10 << 20}, nil
	}
	err := job.Run()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CRITICAL")

	job.usage = func(string) (*disk.UsageStat, error) {
		return nil, errors.New("statfs failed")
	}
	assert.Error(t, job.Run())

	job.usage = func(string) (*disk.UsageStat, error) {
		return &disk.UsageStat{Free: 500 << 20, UsedPercent: 99}, nil
	}
	assert.NoError(t, job.Run(), "low space only warns")
}

func TestDailyMaintenanceJob_ConnectionFailure(t *testing.T) {
	job := NewDailyMaintenanceJob(testutil.FailingConnectionProvider{Err: database.ErrPlatformUnsupported}, testLog)
	assert.ErrorIs(t, job.Run(), database.ErrPlatformUnsupported)
}

func TestBackupJob_Run(t *testing.T) {
	manager := seededManager(t, database.DriverCgo)
	service := NewBackupService(manager, BackupConfig{Dir: t.TempDir()}, nil, testLog)
	job := NewBackupJob(service, testLog)

	assert.Equal(t, "backup", job.Name())
	require.NoError(t, job.Run())

	backups, err := service.ListBackups(database.DefaultName)
	require.NoError(t, err)
	assert.Len(t, backups, 1)
}
