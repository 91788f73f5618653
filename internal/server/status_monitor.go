package server

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/tradejournal/internal/events"
)

// lowDiskPercent marks the filesystem as nearly full
const lowDiskPercent = 95.0

// StatusMonitor periodically checks system status and emits events on changes
type StatusMonitor struct {
	eventManager   *events.Manager
	systemHandlers *SystemHandlers
	log            zerolog.Logger

	// Track previous state
	lastStatus string
	lastReason string

	stopOnce sync.Once
	stop     chan struct{}
}

// NewStatusMonitor creates a new status monitor
func NewStatusMonitor(
	eventManager *events.Manager,
	systemHandlers *SystemHandlers,
	log zerolog.Logger,
) *StatusMonitor {
	return &StatusMonitor{
		eventManager:   eventManager,
		systemHandlers: systemHandlers,
		log:            log.With().Str("component", "status_monitor").Logger(),
		stop:           make(chan struct{}),
	}
}

// Start begins periodic status monitoring
func (m *StatusMonitor) Start(interval time.Duration) {
	go m.monitor(interval)
}

// Stop ends monitoring
func (m *StatusMonitor) Stop() {
	m.stopOnce.Do(func() { close(m.stop) })
}

// monitor runs the periodic monitoring loop
func (m *StatusMonitor) monitor(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// Do initial check
	m.checkStatus()

	for {
		select {
		case <-m.stop:
			return
		case <-ticker.C:
			m.checkStatus()
		}
	}
}

// checkStatus emits SystemStatusChanged when the status or its reason changes
func (m *StatusMonitor) checkStatus() {
	if m.systemHandlers == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	snapshot := m.systemHandlers.GetSystemStatusSnapshot(ctx)
	status, reason := snapshot.Status, ""
	switch {
	case snapshot.Database != nil && snapshot.Database.Error != "":
		reason = snapshot.Database.Error
	case snapshot.Disk != nil && snapshot.Disk.UsedPercent >= lowDiskPercent:
		status, reason = "degraded", "disk almost full"
	}

	if status == m.lastStatus && reason == m.lastReason {
		return
	}

	m.log.Info().Str("status", status).Str("reason", reason).Msg("System status changed")
	m.lastStatus, m.lastReason = status, reason

	if m.eventManager != nil {
		m.eventManager.EmitTyped(events.SystemStatusChanged, "status_monitor", &events.SystemStatusChangedData{
			Status: status,
			Reason: reason,
		})
	}
}
