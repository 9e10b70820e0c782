package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	queueDomain "github.com/allisson/mailsync/internal/queue/domain"
	sendDomain "github.com/allisson/mailsync/internal/send/domain"
)

// PayloadProcessor processes one send payload.
type PayloadProcessor interface {
	Process(ctx context.Context, payload *sendDomain.Payload) sendDomain.Result
}

// SendJobHandler adapts the send use case to the job queue: it decodes queued
// send payloads, runs them and maps the send result onto a job outcome.
type SendJobHandler struct {
	processor PayloadProcessor
	logger    *slog.Logger
}

// NewSendJobHandler creates a new SendJobHandler.
func NewSendJobHandler(processor PayloadProcessor, logger *slog.Logger) *SendJobHandler {
	return &SendJobHandler{
		processor: processor,
		logger:    logger,
	}
}

// Handle processes a queued send job. A job whose payload was already cleared
// completed on an earlier attempt and is reported as done again instead of
// being resent.
func (h *SendJobHandler) Handle(ctx context.Context, job *queueDomain.Job) queueDomain.Outcome {
	if job.Payload == "" {
		return queueDomain.Completed("payload already cleared, message was sent")
	}

	var payload sendDomain.Payload
	if err := json.Unmarshal([]byte(job.Payload), &payload); err != nil {
		return queueDomain.Failed(fmt.Sprintf("failed to decode send payload: %v", err))
	}

	result := h.processor.Process(ctx, &payload)

	switch result.Status {
	case sendDomain.ResultCompleted:
		outcome := queueDomain.Completed(result.Message)
		// Message content is not retained once it has been sent.
		outcome.ClearPayload = true
		return outcome
	case sendDomain.ResultRetryableFailure:
		return queueDomain.Retry(result.Message)
	default:
		return queueDomain.Failed(result.Message)
	}
}
