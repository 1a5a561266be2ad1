package events

import (
	"time"

	"github.com/google/uuid"
)

// Event is a fact published after a committed change.
type Event interface {
	EventID() uuid.UUID
	EventType() string
	OccurredAt() time.Time
	// Key groups events that must stay ordered, such as the events of one order.
	Key() string
}

// BaseEvent carries the envelope fields. Domain events embed it.
type BaseEvent struct {
	ID        uuid.UUID `json:"id"`
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Subject   string    `json:"subject"`
}

// NewBaseEvent stamps a new event of eventType about subject.
func NewBaseEvent(eventType, subject string, at time.Time) BaseEvent {
	return BaseEvent{
		ID:        uuid.New(),
		Type:      eventType,
		Timestamp: at,
		Subject:   subject,
	}
}

func (e BaseEvent) EventID() uuid.UUID { return e.ID }
func (e BaseEvent) EventType() string { return e.Type }
func (e BaseEvent) OccurredAt() time.Time { return e.Timestamp }
func (e BaseEvent) Key() string { return e.Subject }
