// Package dto provides data transfer objects for HTTP request and response handling.
package dto

import (
	"time"

	submissionUseCase "github.com/allisson/mailsync/internal/submission/usecase"
)

// SubmissionResponse represents a tracked submission in API responses.
// The stored send parameters are not exposed since they can carry message content.
type SubmissionResponse struct {
	ID         string    `json:"id"`
	SourceType string    `json:"source_type"`
	SourceID   string    `json:"source_id"`
	Recipient  string    `json:"recipient"`
	MessageID  string    `json:"message_id"`
	Domain     string    `json:"domain"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// SubmissionStatsResponse is a submission together with the per type counts of
// the provider events observed for its message.
type SubmissionStatsResponse struct {
	Submission  SubmissionResponse `json:"submission"`
	EventCounts map[string]int     `json:"event_counts"`
	Delivered   bool               `json:"delivered"`
}

// MapStatsToResponse converts submission stats to a response.
func MapStatsToResponse(stats *submissionUseCase.SubmissionStats) SubmissionStatsResponse {
	counts := make(map[string]int, len(stats.EventCounts))
	for eventType, count := range stats.EventCounts {
		counts[string(eventType)] = count
	}

	submission := stats.Submission
	return SubmissionStatsResponse{
		Submission: SubmissionResponse{
			ID:         submission.ID.String(),
			SourceType: submission.SourceType,
			SourceID:   submission.SourceID,
			Recipient:  submission.Recipient,
			MessageID:  submission.MessageID,
			Domain:     submission.Domain,
			CreatedAt:  submission.CreatedAt,
			UpdatedAt:  submission.UpdatedAt,
		},
		EventCounts: counts,
		Delivered:   stats.Delivered,
	}
}
