package ws

import (
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"
)

// Event is the structured message sent to WebSocket clients.
type Event struct {
	Type       string          `json:"type"`
	ID         uint64          `json:"id"`
	DocumentID string          `json:"document_id,omitempty"`
	Data       json.RawMessage `json:"data"`
	Time       time.Time       `json:"time"`
}

// Event types broadcast by the hub.
const (
	EventVersionCreated = "version_created"
)

// EventSequence tracks monotonic event IDs per document.
type EventSequence struct {
	mu       sync.Mutex
	counters map[string]*atomic.Uint64
}

// NewEventSequence creates a new EventSequence.
func NewEventSequence() *EventSequence {
	return &EventSequence{
		counters: make(map[string]*atomic.Uint64),
	}
}

// Next returns the next sequence number for a document.
func (es *EventSequence) Next(documentID string) uint64 {
	es.mu.Lock()
	counter, ok := es.counters[documentID]
	if !ok {
		counter = &atomic.Uint64{}
		es.counters[documentID] = counter
	}
	es.mu.Unlock()

	return counter.Add(1)
}
