package dto

import (
	"time"

	queueDomain "github.com/allisson/mailsync/internal/queue/domain"
	submissionDomain "github.com/allisson/mailsync/internal/submission/domain"
)

// SendMessageResponse is returned after a send was queued.
type SendMessageResponse struct {
	JobID        string    `json:"job_id"`
	SubmissionID string    `json:"submission_id"`
	Status       string    `json:"status"`
	RunAt        time.Time `json:"run_at"`
}

// MapToSendMessageResponse converts a queued job and its tracked submission to a response.
func MapToSendMessageResponse(
	job *queueDomain.Job,
	submission *submissionDomain.Submission,
) SendMessageResponse {
	return SendMessageResponse{
		JobID:        job.ID.String(),
		SubmissionID: submission.ID.String(),
		Status:       string(job.Status),
		RunAt:        job.RunAt,
	}
}
