package usecase

import (
	"context"
	"log/slog"
	"net/url"
	"time"

	"github.com/google/uuid"

	eventDomain "github.com/allisson/mailsync/internal/event/domain"
	"github.com/allisson/mailsync/internal/mailgun"
)

// DeliveryCheckConfig holds delivery reconciliation configuration.
type DeliveryCheckConfig struct {
	Domain     string
	WindowDays int
	Hour       int
	Minute     int
}

// DeliveryCheckScheduler enqueues the next scheduled delivery check run.
type DeliveryCheckScheduler interface {
	ScheduleDeliveryCheck(ctx context.Context, runAt time.Time) error
}

// RunReport summarizes a delivery check run.
type RunReport struct {
	Checked    int `json:"checked"`
	Resolved   int `json:"resolved"`
	Unresolved int `json:"unresolved"`
	Errors     int `json:"errors"`
}

// DeliveryCheckUseCase reconciles stored failures against the provider's
// delivered events. A failed or rejected event whose message was later
// delivered (typically after a retry on the provider side) is marked resolved
// so it stops showing up as an outstanding failure.
type DeliveryCheckUseCase struct {
	config      DeliveryCheckConfig
	eventRepo   EventRepository
	eventLister EventLister
	scheduler   DeliveryCheckScheduler
	logger      *slog.Logger
}

// NewDeliveryCheckUseCase creates a new DeliveryCheckUseCase. The scheduler is
// optional; without one the use case only runs on demand.
func NewDeliveryCheckUseCase(
	config DeliveryCheckConfig,
	eventRepo EventRepository,
	eventLister EventLister,
	scheduler DeliveryCheckScheduler,
	logger *slog.Logger,
) *DeliveryCheckUseCase {
	if config.WindowDays <= 0 {
		config.WindowDays = 30
	}
	return &DeliveryCheckUseCase{
		config:      config,
		eventRepo:   eventRepo,
		eventLister: eventLister,
		scheduler:   scheduler,
		logger:      logger,
	}
}

// Run checks unresolved failures from the configured window against the
// provider, oldest first. When eventIDs is non-empty only those events are
// checked. A provider lookup failure for one event is counted and the run
// continues with the next event; the run itself only fails when the candidate
// set cannot be loaded.
func (uc *DeliveryCheckUseCase) Run(ctx context.Context, eventIDs []uuid.UUID) (*RunReport, error) {
	report := &RunReport{}

	events, err := uc.candidates(ctx, eventIDs)
	if err != nil {
		return nil, err
	}

	for _, event := range events {
		report.Checked++

		delivered, err := uc.isDelivered(ctx, event.MessageID)
		if err != nil {
			uc.logger.Error("failed to check delivery",
				slog.String("event_id", event.ID.String()),
				slog.String("message_id", event.MessageID),
				slog.Any("error", err),
			)
			report.Errors++
			continue
		}

		if !delivered {
			report.Unresolved++
			continue
		}

		if err := uc.eventRepo.MarkDeliveryObserved(ctx, event.ID); err != nil {
			uc.logger.Error("failed to mark delivery observed",
				slog.String("event_id", event.ID.String()),
				slog.Any("error", err),
			)
			report.Errors++
			continue
		}
		report.Resolved++
	}

	uc.logger.Info("delivery check finished",
		slog.Int("checked", report.Checked),
		slog.Int("resolved", report.Resolved),
		slog.Int("unresolved", report.Unresolved),
		slog.Int("errors", report.Errors),
	)

	return report, nil
}

// candidates loads the events to check: either the listed events by id or all
// unresolved failures inside the window. Listed events that are not unresolved
// failures are skipped rather than rejected, so a stale id does not abort the
// rest of the run.
func (uc *DeliveryCheckUseCase) candidates(
	ctx context.Context,
	eventIDs []uuid.UUID,
) ([]*eventDomain.Event, error) {
	if len(eventIDs) > 0 {
		events := make([]*eventDomain.Event, 0, len(eventIDs))
		for _, eventID := range eventIDs {
			event, err := uc.eventRepo.GetByID(ctx, eventID)
			if err != nil {
				return nil, err
			}
			if !event.EventType.IsFailure() || event.DeliveryObserved || event.MessageID == "" {
				continue
			}
			events = append(events, event)
		}
		return events, nil
	}

	since := time.Now().UTC().Add(-time.Duration(uc.config.WindowDays) * 24 * time.Hour)
	return uc.eventRepo.UnresolvedFailures(ctx, since)
}

// isDelivered asks the provider whether a delivered event exists for the
// message id.
func (uc *DeliveryCheckUseCase) isDelivered(ctx context.Context, messageID string) (bool, error) {
	page, err := uc.eventLister.ListEvents(ctx, uc.config.Domain, mailgun.ListEventsOptions{
		Filter: "delivered",
		Limit:  1,
		Extra:  url.Values{"message-id": []string{messageID}},
	})
	if err != nil {
		return false, err
	}
	return len(page.Items) > 0, nil
}

// ScheduleNext enqueues the next daily run at the configured time of day.
func (uc *DeliveryCheckUseCase) ScheduleNext(ctx context.Context) error {
	if uc.scheduler == nil {
		return nil
	}
	runAt := NextStartTime(time.Now().UTC(), uc.config.Hour, uc.config.Minute)
	return uc.scheduler.ScheduleDeliveryCheck(ctx, runAt)
}

// NextStartTime returns the next occurrence of the hh:mm time of day relative
// to now: today when the time has not passed yet, tomorrow otherwise. A now
// exactly on the boundary also schedules tomorrow, since a run due this very
// second is already covered by the run completing now.
func NextStartTime(now time.Time, hour, minute int) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
	if !now.Before(next) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}
