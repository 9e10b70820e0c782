package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/allisson/mailsync/internal/metrics"
)

// EventPoller polls provider events into the local store. A non-nil resubmit
// overrides the configured resubmission toggle for that call.
type EventPoller interface {
	PollEvents(ctx context.Context, begin time.Time, filter string, resubmit *bool) (*PollReport, error)
}

// eventPollerWithMetrics decorates an EventPoller with metrics instrumentation.
type eventPollerWithMetrics struct {
	next    EventPoller
	metrics metrics.BusinessMetrics
}

// NewEventPollerWithMetrics wraps an EventPoller with metrics recording.
func NewEventPollerWithMetrics(poller EventPoller, m metrics.BusinessMetrics) EventPoller {
	return &eventPollerWithMetrics{
		next:    poller,
		metrics: m,
	}
}

// PollEvents records metrics for event poll operations.
func (p *eventPollerWithMetrics) PollEvents(
	ctx context.Context,
	begin time.Time,
	filter string,
	resubmit *bool,
) (*PollReport, error) {
	start := time.Now()
	report, err := p.next.PollEvents(ctx, begin, filter, resubmit)

	status := "success"
	if err != nil {
		status = "error"
	}

	p.metrics.RecordOperation(ctx, "event", "poll_events", status)
	p.metrics.RecordDuration(ctx, "event", "poll_events", time.Since(start), status)

	return report, err
}

// deliveryCheckRunnerWithMetrics decorates a DeliveryCheckRunner with metrics
// instrumentation.
type deliveryCheckRunnerWithMetrics struct {
	next    DeliveryCheckRunner
	metrics metrics.BusinessMetrics
}

// NewDeliveryCheckRunnerWithMetrics wraps a DeliveryCheckRunner with metrics
// recording.
func NewDeliveryCheckRunnerWithMetrics(
	runner DeliveryCheckRunner,
	m metrics.BusinessMetrics,
) DeliveryCheckRunner {
	return &deliveryCheckRunnerWithMetrics{
		next:    runner,
		metrics: m,
	}
}

// Run records metrics for delivery check runs.
func (r *deliveryCheckRunnerWithMetrics) Run(
	ctx context.Context,
	eventIDs []uuid.UUID,
) (*RunReport, error) {
	start := time.Now()
	report, err := r.next.Run(ctx, eventIDs)

	status := "success"
	if err != nil {
		status = "error"
	}

	r.metrics.RecordOperation(ctx, "event", "delivery_check", status)
	r.metrics.RecordDuration(ctx, "event", "delivery_check", time.Since(start), status)

	return report, err
}

// ScheduleNext delegates to the wrapped runner.
func (r *deliveryCheckRunnerWithMetrics) ScheduleNext(ctx context.Context) error {
	return r.next.ScheduleNext(ctx)
}
