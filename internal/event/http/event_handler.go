// Package http provides HTTP handlers for provider event operations:
// on-demand polling, stored event lookup and queueing delivery checks.
package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	eventDomain "github.com/allisson/mailsync/internal/event/domain"
	"github.com/allisson/mailsync/internal/event/http/dto"
	eventUseCase "github.com/allisson/mailsync/internal/event/usecase"
	"github.com/allisson/mailsync/internal/httputil"
	queueDomain "github.com/allisson/mailsync/internal/queue/domain"
	customValidation "github.com/allisson/mailsync/internal/validation"
)

// defaultPollWindow is how far back an on-demand poll reaches when the request
// carries no begin time.
const defaultPollWindow = 24 * time.Hour

// EventPoller fetches provider events and stores them locally.
type EventPoller interface {
	PollEvents(ctx context.Context, begin time.Time, filter string, resubmit *bool) (*eventUseCase.PollReport, error)
}

// EventReader looks up stored events.
type EventReader interface {
	GetByID(ctx context.Context, eventID uuid.UUID) (*eventDomain.Event, error)
}

// JobEnqueuer stores a job for the queue worker.
type JobEnqueuer interface {
	Enqueue(
		ctx context.Context,
		jobType queueDomain.JobType,
		payload string,
		signature string,
		runAt time.Time,
	) (*queueDomain.Job, error)
}

// EventHandler handles HTTP requests for provider event operations.
type EventHandler struct {
	poller   EventPoller
	events   EventReader
	enqueuer JobEnqueuer
	logger   *slog.Logger
}

// NewEventHandler creates a new event handler with required dependencies.
func NewEventHandler(
	poller EventPoller,
	events EventReader,
	enqueuer JobEnqueuer,
	logger *slog.Logger,
) *EventHandler {
	return &EventHandler{
		poller:   poller,
		events:   events,
		enqueuer: enqueuer,
		logger:   logger,
	}
}

// PollHandler runs an on-demand event poll.
// POST /v1/events/poll
// Returns 200 OK with the poll report. The poll runs synchronously; the
// scheduled poller remains the primary ingestion path.
func (h *EventHandler) PollHandler(c *gin.Context) {
	var req dto.PollEventsRequest

	// An empty body means poll with defaults.
	if c.Request.Body != nil && c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			httputil.HandleBadRequestGin(c, err, h.logger)
			return
		}
	}

	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	report, err := h.poller.PollEvents(c.Request.Context(), req.BeginOrDefault(defaultPollWindow), req.Filter, req.Resubmit)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, report)
}

// GetHandler retrieves a stored event by its id.
// GET /v1/events/:id
// Returns 200 OK with the event, or 404 when it is not stored locally.
func (h *EventHandler) GetHandler(c *gin.Context) {
	eventID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	event, err := h.events.GetByID(c.Request.Context(), eventID)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapEventToResponse(event))
}

// DeliveryCheckHandler queues a delivery check.
// POST /v1/delivery-checks
// With event_ids only those events are checked, otherwise the whole unresolved
// failure window. Returns 202 Accepted with the queued job.
func (h *EventHandler) DeliveryCheckHandler(c *gin.Context) {
	var req dto.DeliveryCheckRequest

	if c.Request.Body != nil && c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			httputil.HandleBadRequestGin(c, err, h.logger)
			return
		}
	}

	payload, err := json.Marshal(queueDomain.DeliveryCheckPayload{EventIDs: req.EventIDs})
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	// Manual checks carry no signature so they are never deduplicated against
	// the scheduled daily run.
	job, err := h.enqueuer.Enqueue(
		c.Request.Context(),
		queueDomain.JobTypeDeliveryCheck,
		string(payload),
		"",
		time.Now().UTC(),
	)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusAccepted, dto.MapJobToQueuedResponse(job))
}
