package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	queueDomain "github.com/allisson/mailsync/internal/queue/domain"
)

// DeliveryCheckRunner runs delivery checks and schedules the next one.
type DeliveryCheckRunner interface {
	Run(ctx context.Context, eventIDs []uuid.UUID) (*RunReport, error)
	ScheduleNext(ctx context.Context) error
}

// DeliveryCheckHandler adapts the delivery check use case to the job queue.
type DeliveryCheckHandler struct {
	runner DeliveryCheckRunner
	logger *slog.Logger
}

// NewDeliveryCheckHandler creates a new DeliveryCheckHandler.
func NewDeliveryCheckHandler(runner DeliveryCheckRunner, logger *slog.Logger) *DeliveryCheckHandler {
	return &DeliveryCheckHandler{
		runner: runner,
		logger: logger,
	}
}

// Handle runs a delivery check job. The job always completes: per event
// problems are tolerated inside the run and a failed run is reported in the
// job trace rather than retried, because the next scheduled run covers the
// same window again. The next daily run is scheduled for sweep jobs only,
// not for jobs narrowed to specific events.
func (h *DeliveryCheckHandler) Handle(ctx context.Context, job *queueDomain.Job) queueDomain.Outcome {
	var payload queueDomain.DeliveryCheckPayload
	if job.Payload != "" {
		if err := json.Unmarshal([]byte(job.Payload), &payload); err != nil {
			return queueDomain.Failed(fmt.Sprintf("failed to decode delivery check payload: %v", err))
		}
	}

	var message string
	report, err := h.runner.Run(ctx, payload.EventIDs)
	if err != nil {
		h.logger.Error("delivery check run failed", slog.Any("error", err))
		message = fmt.Sprintf("delivery check failed: %v", err)
	} else {
		message = fmt.Sprintf(
			"checked %d events, resolved %d, unresolved %d, errors %d",
			report.Checked, report.Resolved, report.Unresolved, report.Errors,
		)
	}

	if len(payload.EventIDs) == 0 {
		if err := h.runner.ScheduleNext(ctx); err != nil {
			h.logger.Warn("failed to schedule next delivery check", slog.Any("error", err))
		}
	}

	return queueDomain.Completed(message)
}
