package testing

import (
	"context"
	"sync"

	"github.com/aristath/tradejournal/internal/database"
	"github.com/aristath/tradejournal/internal/events"
)

// FailingConnectionProvider always fails to hand out a connection
type FailingConnectionProvider struct {
	Err error
}

// EnsureConnection returns the configured error
func (p FailingConnectionProvider) EnsureConnection(ctx context.Context) (*database.DB, error) {
	return nil, p.Err
}

// EmittedEvent is one call recorded by MockEmitter
type EmittedEvent struct {
	Type   events.EventType
	Module string
	Data   events.EventData
}

// MockEmitter records emitted events for assertions
type MockEmitter struct {
	mu     sync.Mutex
	events []EmittedEvent
}

// NewMockEmitter creates an empty mock emitter
func NewMockEmitter() *MockEmitter {
	return &MockEmitter{}
}

// EmitTyped records the event
func (m *MockEmitter) EmitTyped(eventType events.EventType, module string, data events.EventData) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, EmittedEvent{Type: eventType, Module: module, Data: data})
}

// Events returns a copy of the recorded events
func (m *MockEmitter) Events() []EmittedEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]EmittedEvent, len(m.events))
	copy(out, m.events)
	return out
}

// Types returns the recorded event types in order
func (m *MockEmitter) Types() []events.EventType {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]events.EventType, 0, len(m.events))
	for _, e := range m.events {
		out = append(out, e.Type)
	}
	return out
}
