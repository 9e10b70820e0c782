package dto

import (
	"time"

	eventDomain "github.com/allisson/mailsync/internal/event/domain"
	queueDomain "github.com/allisson/mailsync/internal/queue/domain"
)

// EventResponse represents a stored provider event in API responses.
type EventResponse struct {
	ID               string    `json:"id"`
	ProviderEventID  string    `json:"provider_event_id"`
	EventType        string    `json:"event_type"`
	MessageID        string    `json:"message_id"`
	Recipient        string    `json:"recipient"`
	OccurredAt       time.Time `json:"occurred_at"`
	DeliveryObserved bool      `json:"delivery_observed"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// MapEventToResponse converts a domain event to a response.
// The raw provider payload is not exposed.
func MapEventToResponse(event *eventDomain.Event) EventResponse {
	return EventResponse{
		ID:               event.ID.String(),
		ProviderEventID:  event.ProviderEventID,
		EventType:        string(event.EventType),
		MessageID:        event.MessageID,
		Recipient:        event.Recipient,
		OccurredAt:       event.OccurredAt,
		DeliveryObserved: event.DeliveryObserved,
		CreatedAt:        event.CreatedAt,
		UpdatedAt:        event.UpdatedAt,
	}
}

// QueuedJobResponse is returned after a job was queued on behalf of a request.
type QueuedJobResponse struct {
	JobID  string    `json:"job_id"`
	Status string    `json:"status"`
	RunAt  time.Time `json:"run_at"`
}

// MapJobToQueuedResponse converts a queued job to a response.
func MapJobToQueuedResponse(job *queueDomain.Job) QueuedJobResponse {
	return QueuedJobResponse{
		JobID:  job.ID.String(),
		Status: string(job.Status),
		RunAt:  job.RunAt,
	}
}
