// Package http provides HTTP handlers for queueing message sends.
package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/allisson/mailsync/internal/httputil"
	queueDomain "github.com/allisson/mailsync/internal/queue/domain"
	"github.com/allisson/mailsync/internal/send/http/dto"
	sendUseCase "github.com/allisson/mailsync/internal/send/usecase"
	submissionDomain "github.com/allisson/mailsync/internal/submission/domain"
	customValidation "github.com/allisson/mailsync/internal/validation"
)

// SubmissionTracker records a submission before its message is queued.
type SubmissionTracker interface {
	Track(
		ctx context.Context,
		sourceType, sourceID, recipient, domain, parameters string,
	) (*submissionDomain.Submission, error)
}

// MessageHandler handles HTTP requests for queueing message sends. A send
// request is tracked as a submission and enqueued as a job; the actual provider
// call happens in the queue worker.
type MessageHandler struct {
	submissions SubmissionTracker
	enqueuer    sendUseCase.JobEnqueuer
	logger      *slog.Logger
}

// NewMessageHandler creates a new message handler with required dependencies.
func NewMessageHandler(
	submissions SubmissionTracker,
	enqueuer sendUseCase.JobEnqueuer,
	logger *slog.Logger,
) *MessageHandler {
	return &MessageHandler{
		submissions: submissions,
		enqueuer:    enqueuer,
		logger:      logger,
	}
}

// SendHandler queues a message send.
// POST /v1/messages
// Returns 202 Accepted with the queued job and tracked submission ids, or
// 409 Conflict when an identical send is already pending.
func (h *MessageHandler) SendHandler(c *gin.Context) {
	var req dto.SendMessageRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}

	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	parametersJSON, err := json.Marshal(req.Parameters)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	submission, err := h.submissions.Track(
		c.Request.Context(),
		req.SourceType,
		req.SourceID,
		req.Parameters["to"],
		req.Domain,
		string(parametersJSON),
	)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	payload := req.ToPayload()
	payload.SubmissionID = &submission.ID

	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	job, err := h.enqueuer.Enqueue(
		c.Request.Context(),
		queueDomain.JobTypeSendMessage,
		string(payloadJSON),
		payload.Signature(),
		time.Now().UTC(),
	)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	response := dto.MapToSendMessageResponse(job, submission)
	c.JSON(http.StatusAccepted, response)
}
