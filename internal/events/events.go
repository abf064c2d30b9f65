// Package events publishes domain events (report lifecycle changes, allocation
// updates) to an AMQP topic exchange so other systems can react to them.
package events

import (
	"sync"
	"time"
)

// Event types, also used as routing keys.
const (
	ReportFinalized    = "report.finalized"
	ReportReopened     = "report.reopened"
	AllocationsUpdated = "allocations.updated"
	AccountDeleted     = "account.deleted"
)

// Event is the JSON envelope sent for every domain event.
type Event struct {
	Type       string      `json:"type"`
	OccurredAt time.Time   `json:"occurred_at"`
	Actor      string      `json:"actor,omitempty"`
	Data       interface{} `json:"data,omitempty"`
}

// New stamps an event of the given type.
func New(eventType, actor string, data interface{}) Event {
	return Event{Type: eventType, OccurredAt: time.Now().UTC(), Actor: actor, Data: data}
}

// Publisher delivers events. Implementations must be safe for concurrent use.
type Publisher interface {
	Publish(event Event) error
	Close() error
}

// NopPublisher drops every event. It is used when no broker is configured.
type NopPublisher struct{}

// Publish implements Publisher.
func (NopPublisher) Publish(Event) error { return nil }

// Close implements Publisher.
func (NopPublisher) Close() error { return nil }

// Recorder keeps published events in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

// Publish implements Publisher.
func (r *Recorder) Publish(event Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

// Close implements Publisher.
func (r *Recorder) Close() error { return nil }

// Events returns a copy of everything published so far.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// Types returns the type of every published event, in order.
func (r *Recorder) Types() []string {
	var out []string
	for _, e := range r.Events() {
		out = append(out, e.Type)
	}
	return out
}
