package utils

import (
	"bytes"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestTimer_Stop(t *testing.T) {
	tests := []struct {
		name    string
		elapsed time.Duration
		level   string
	}{
		{"fast operation logs at debug", time.Second, `"level":"debug"`},
		{"slow operation logs at info", 15 * time.Second, `"level":"info"`},
		{"very slow operation warns", time.Minute, `"level":"warn"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			timer := NewTimer("backup", zerolog.New(&buf))
			timer.now = func() time.Time { return timer.Started().Add(tt.elapsed) }

			assert.Equal(t, tt.elapsed, timer.Stop())
			assert.Contains(t, buf.String(), tt.level)
			assert.Contains(t, buf.String(), `"operation":"backup"`)
		})
	}
}
