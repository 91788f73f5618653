package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/tradejournal/internal/database"
)

// walFrameThreshold is the WAL size in frames above which the job truncates the log
const walFrameThreshold = 1000

// ConnectionProvider hands out the journal connection
type ConnectionProvider interface {
	EnsureConnection(ctx context.Context) (*database.DB, error)
}

// CheckWALCheckpointsJob monitors the journal WAL and truncates it when it grows large
type CheckWALCheckpointsJob struct {
	conns   ConnectionProvider
	timeout time.Duration
	log     zerolog.Logger
}

// NewCheckWALCheckpointsJob creates a new CheckWALCheckpointsJob
func NewCheckWALCheckpointsJob(conns ConnectionProvider) *CheckWALCheckpointsJob {
	return &CheckWALCheckpointsJob{
		conns:   conns,
		timeout: 30 * time.Second,
		log:     zerolog.Nop(),
	}
}

// SetLogger sets the logger for the job
func (j *CheckWALCheckpointsJob) SetLogger(log zerolog.Logger) {
	j.log = log.With().Str("job", j.Name()).Logger()
}

// Name returns the job name
func (j *CheckWALCheckpointsJob) Name() string {
	return "check_wal_checkpoints"
}

// Run executes the check WAL checkpoints job
func (j *CheckWALCheckpointsJob) Run() error {
	if j.conns == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	db, err := j.conns.EnsureConnection(ctx)
	if err != nil {
		return err
	}

	// PRAGMA wal_checkpoint returns: busy, log, checkpointed
	var busy, frames, checkpointed int
	err = db.QueryRowContext(ctx, "PRAGMA wal_checkpoint(PASSIVE)").Scan(&busy, &frames, &checkpointed)
	if err != nil {
		return fmt.Errorf("failed to check WAL checkpoint for %s: %w", db.Name(), err)
	}

	if frames <= walFrameThreshold {
		j.log.Debug().
			Str("database", db.Name()).
			Int("wal_frames", frames).
			Msg("WAL checkpoint status OK")
		return nil
	}

	j.log.Warn().
		Str("database", db.Name()).
		Int("wal_frames", frames).
		Int("checkpointed", checkpointed).
		Msg("WAL file is large, truncating")

	return db.WALCheckpoint(ctx, "TRUNCATE")
}
