// Package domain defines the core event domain entities and types.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// EventType classifies an occurrence reported by the provider for a message.
type EventType string

const (
	EventTypeAccepted     EventType = "accepted"
	EventTypeRejected     EventType = "rejected"
	EventTypeDelivered    EventType = "delivered"
	EventTypeFailed       EventType = "failed"
	EventTypeOpened       EventType = "opened"
	EventTypeClicked      EventType = "clicked"
	EventTypeUnsubscribed EventType = "unsubscribed"
	EventTypeComplained   EventType = "complained"
	EventTypeStored       EventType = "stored"
	EventTypeOther        EventType = "other"
)

// KnownEventTypes lists the event types the provider documents, in the form
// accepted by event filter expressions.
var KnownEventTypes = []string{
	string(EventTypeAccepted),
	string(EventTypeRejected),
	string(EventTypeDelivered),
	string(EventTypeFailed),
	string(EventTypeOpened),
	string(EventTypeClicked),
	string(EventTypeUnsubscribed),
	string(EventTypeComplained),
	string(EventTypeStored),
}

// FailureFilter is the provider event filter expression matching failed and
// rejected events, the default filter used when polling.
const FailureFilter = "failed OR rejected"

// ParseEventType maps a provider event name to an EventType, falling back to
// EventTypeOther for names this application does not track.
func ParseEventType(name string) EventType {
	switch EventType(name) {
	case EventTypeAccepted, EventTypeRejected, EventTypeDelivered, EventTypeFailed,
		EventTypeOpened, EventTypeClicked, EventTypeUnsubscribed, EventTypeComplained,
		EventTypeStored:
		return EventType(name)
	default:
		return EventTypeOther
	}
}

// IsFailure reports whether the event type represents a failed or rejected send.
func (t EventType) IsFailure() bool {
	return t == EventTypeFailed || t == EventTypeRejected
}

// Event is a locally stored provider event. Rows are written once by the
// poller (idempotent on ProviderEventID) and mutated only to flip
// DeliveryObserved once a later delivered event for the same message id is
// confirmed. Events are never deleted.
type Event struct {
	ID               uuid.UUID
	ProviderEventID  string
	EventType        EventType
	MessageID        string
	Recipient        string
	OccurredAt       time.Time
	DeliveryObserved bool
	RawPayload       string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}
