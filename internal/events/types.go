// Package events provides the in-process event bus the journal publishes to.
package events

import "time"

// EventType represents different event types
type EventType string

const (
	BuyRecorded         EventType = "BUY_RECORDED"
	SellRecorded        EventType = "SELL_RECORDED"
	BuyUpdated          EventType = "BUY_UPDATED"
	BackupCompleted     EventType = "BACKUP_COMPLETED"
	ErrorOccurred       EventType = "ERROR_OCCURRED"
	SystemStatusChanged EventType = "SYSTEM_STATUS_CHANGED"
)

// AllTypes lists every event type, in the order clients usually subscribe
func AllTypes() []EventType {
	return []EventType{
		BuyRecorded,
		SellRecorded,
		BuyUpdated,
		BackupCompleted,
		ErrorOccurred,
		SystemStatusChanged,
	}
}

// Event represents a system event
type Event struct {
	Type      EventType              `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Data      map[string]interface{} `json:"data"`
	Module    string                 `json:"module"`
}
