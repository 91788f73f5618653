package utils

import (
	"time"

	"github.com/rs/zerolog"
)

// Slow operation thresholds
const (
	slowWarnThreshold = 30 * time.Second
	slowInfoThreshold = 10 * time.Second
)

// Timer is a simple performance timer for measuring operation duration
type Timer struct {
	start time.Time
	name  string
	log   zerolog.Logger
	now   func() time.Time
}

// NewTimer creates a new timer with the given name
func NewTimer(name string, log zerolog.Logger) *Timer {
	return &Timer{
		start: time.Now(),
		name:  name,
		log:   log,
		now:   time.Now,
	}
}

// Started returns when the timer was created
func (t *Timer) Started() time.Time {
	return t.start
}

// Stop stops the timer and logs the duration
func (t *Timer) Stop() time.Duration {
	duration := t.now().Sub(t.start)

	t.log.Debug().
		Str("operation", t.name).
		Dur("duration_ms", duration).
		Msg("Performance measurement")

	// Warn if operation took longer than expected thresholds
	if duration > slowWarnThreshold {
		t.log.Warn().
			Str("operation", t.name).
			Dur("duration", duration).
			Msg("Slow operation detected (>30s)")
	} else if duration > slowInfoThreshold {
		t.log.Info().
			Str("operation", t.name).
			Dur("duration", duration).
			Msg("Operation took longer than expected (>10s)")
	}

	return duration
}
