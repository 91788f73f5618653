package scheduler

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingJob struct {
	name string
	runs atomic.Int32
	err  error
}

func (j *countingJob) Run() error {
	j.runs.Add(1)
	return j.err
}

func (j *countingJob) Name() string {
	return j.name
}

func newTestScheduler() *Scheduler {
	return New(zerolog.New(nil).Level(zerolog.Disabled))
}

func TestScheduler_AddJob(t *testing.T) {
	s := newTestScheduler()

	require.NoError(t, s.AddJob("0 */5 * * * *", &countingJob{name: "b"}))
	require.NoError(t, s.AddJob("@hourly", &countingJob{name: "a"}))

	err := s.AddJob("@hourly", &countingJob{name: "a"})
	assert.Error(t, err, "duplicate names are rejected")

	err = s.AddJob("not a schedule", &countingJob{name: "c"})
	assert.Error(t, err)

	jobs := s.Jobs()
	require.Len(t, jobs, 2)
	assert.Equal(t, "a", jobs[0].Name)
	assert.Equal(t, "@hourly", jobs[0].Schedule)
	assert.Equal(t, "b", jobs[1].Name)
}

func TestScheduler_RunNow(t *testing.T) {
	s := newTestScheduler()
	ok := &countingJob{name: "ok"}
	failing := &countingJob{name: "failing", err: errors.New("boom")}
	require.NoError(t, s.AddJob("@daily", ok))
	require.NoError(t, s.AddJob("@daily", failing))

	assert.NoError(t, s.RunNow("ok"))
	assert.Equal(t, int32(1), ok.runs.Load())

	assert.EqualError(t, s.RunNow("failing"), "boom")
	assert.Error(t, s.RunNow("missing"))

	for _, info := range s.Jobs() {
		assert.False(t, info.Prev.IsZero(), info.Name)
		if info.Name == "failing" {
			assert.Equal(t, "boom", info.LastErr)
		} else {
			assert.Empty(t, info.LastErr)
		}
	}
}

func TestScheduler_RunsOnSchedule(t *testing.T) {
	s := newTestScheduler()
	job := &countingJob{name: "tick"}
	require.NoError(t, s.AddJob("@every 1s", job))

	s.Start()
	defer s.Stop()

	assert.Eventually(t, func() bool {
		return job.runs.Load() > 0
	}, 3*time.Second, 50*time.Millisecond)

	jobs := s.Jobs()
	require.Len(t, jobs, 1)
	assert.False(t, jobs[0].Next.IsZero())
}
