package scheduler

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/tradejournal/internal/database"
	testutil "github.com/aristath/tradejournal/internal/testing"
)

func TestCheckWALCheckpointsJob_Name(t *testing.T) {
	job := &CheckWALCheckpointsJob{
		log: zerolog.Nop(),
	}
	assert.Equal(t, "check_wal_checkpoints", job.Name())
}

func TestCheckWALCheckpointsJob_Run_NoDatabase(t *testing.T) {
	log := zerolog.New(nil).Level(zerolog.Disabled)
	job := NewCheckWALCheckpointsJob(nil)
	job.SetLogger(log)

	err := job.Run()
	assert.NoError(t, err) // Should handle a missing provider gracefully
}

func TestCheckWALCheckpointsJob_Run(t *testing.T) {
	for _, driver := range []database.Driver{database.DriverCgo, database.DriverModernc} {
		t.Run(string(driver), func(t *testing.T) {
			manager := testutil.NewTestManager(t, driver)
			db, err := manager.EnsureConnection(context.Background())
			require.NoError(t, err)

			for i := 0; i < 50; i++ {
				_, err := db.ExecContext(context.Background(),
					"INSERT INTO buys (id, symbol, buy_date, quantity, buy_price, created_at) VALUES (?, 'ACME', '2024-01-10', 1, 1, '2024-01-10T00:00:00Z')",
					fmt.Sprintf("b%d", i),
				)
				require.NoError(t, err)
			}

			job := NewCheckWALCheckpointsJob(manager)
			assert.NoError(t, job.Run())
		})
	}
}

func TestCheckWALCheckpointsJob_Run_ConnectionFailure(t *testing.T) {
	job := NewCheckWALCheckpointsJob(testutil.FailingConnectionProvider{Err: database.ErrInitializationFailed})

	err := job.Run()
	assert.True(t, errors.Is(err, database.ErrInitializationFailed))
}
