// Package dto provides data transfer objects for HTTP request and response handling.
package dto

import (
	"time"

	"github.com/google/uuid"
	validation "github.com/jellydator/validation"

	eventDomain "github.com/allisson/mailsync/internal/event/domain"
	customValidation "github.com/allisson/mailsync/internal/validation"
)

// PollEventsRequest contains the parameters for an on-demand event poll.
// Begin defaults to 24 hours ago and Filter to the failure filter when empty.
// Resubmit overrides the configured resubmission toggle for this poll; when
// absent the configuration decides.
type PollEventsRequest struct {
	Begin    *time.Time `json:"begin,omitempty"`
	Filter   string     `json:"filter,omitempty"`
	Resubmit *bool      `json:"resubmit,omitempty"`
}

// Validate checks if the request is valid.
func (r PollEventsRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Filter, customValidation.FilterExpression{Allowed: eventDomain.KnownEventTypes}),
	)
}

// BeginOrDefault returns the requested begin time, or now minus the fallback
// window when the request carries none.
func (r PollEventsRequest) BeginOrDefault(fallback time.Duration) time.Time {
	if r.Begin != nil {
		return *r.Begin
	}
	return time.Now().UTC().Add(-fallback)
}

// DeliveryCheckRequest contains the parameters for queueing a delivery check.
// When EventIDs is non-empty only those events are checked; otherwise the
// whole unresolved failure window is scanned.
type DeliveryCheckRequest struct {
	EventIDs []uuid.UUID `json:"event_ids,omitempty"`
}
