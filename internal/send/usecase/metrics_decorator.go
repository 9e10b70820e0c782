package usecase

import (
	"context"
	"time"

	eventDomain "github.com/allisson/mailsync/internal/event/domain"
	"github.com/allisson/mailsync/internal/metrics"
	sendDomain "github.com/allisson/mailsync/internal/send/domain"
)

// payloadProcessorWithMetrics decorates a PayloadProcessor with metrics instrumentation.
type payloadProcessorWithMetrics struct {
	next    PayloadProcessor
	metrics metrics.BusinessMetrics
}

// NewPayloadProcessorWithMetrics wraps a PayloadProcessor with metrics recording.
func NewPayloadProcessorWithMetrics(
	processor PayloadProcessor,
	m metrics.BusinessMetrics,
) PayloadProcessor {
	return &payloadProcessorWithMetrics{
		next:    processor,
		metrics: m,
	}
}

// Process records metrics for message send operations.
func (p *payloadProcessorWithMetrics) Process(
	ctx context.Context,
	payload *sendDomain.Payload,
) sendDomain.Result {
	start := time.Now()
	result := p.next.Process(ctx, payload)

	status := "error"
	if result.Succeeded() {
		status = "success"
	}

	p.metrics.RecordOperation(ctx, "send", "send_message", status)
	p.metrics.RecordDuration(ctx, "send", "send_message", time.Since(start), status)

	return result
}

// FailureResubmitter re-enqueues a send for a stored failure event.
type FailureResubmitter interface {
	Resubmit(ctx context.Context, event *eventDomain.Event) (bool, error)
}

// resubmitterWithMetrics decorates a FailureResubmitter with metrics instrumentation.
type resubmitterWithMetrics struct {
	next    FailureResubmitter
	metrics metrics.BusinessMetrics
}

// NewResubmitterWithMetrics wraps a FailureResubmitter with metrics recording.
func NewResubmitterWithMetrics(
	resubmitter FailureResubmitter,
	m metrics.BusinessMetrics,
) FailureResubmitter {
	return &resubmitterWithMetrics{
		next:    resubmitter,
		metrics: m,
	}
}

// Resubmit records metrics for resubmission attempts. Declined resubmissions
// are not failures; only an error counts as one.
func (r *resubmitterWithMetrics) Resubmit(
	ctx context.Context,
	event *eventDomain.Event,
) (bool, error) {
	start := time.Now()
	resubmitted, err := r.next.Resubmit(ctx, event)

	status := "success"
	if err != nil {
		status = "error"
	}

	r.metrics.RecordOperation(ctx, "send", "resubmit", status)
	r.metrics.RecordDuration(ctx, "send", "resubmit", time.Since(start), status)

	return resubmitted, err
}
