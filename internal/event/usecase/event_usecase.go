// Package usecase implements the event business logic: polling provider
// events into local storage and reconciling stored failures against later
// deliveries.
package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	eventDomain "github.com/allisson/mailsync/internal/event/domain"
	"github.com/allisson/mailsync/internal/mailgun"
)

// Config holds event polling configuration.
type Config struct {
	Domain          string
	Filter          string
	PageSize        int
	MaxPages        int
	ResubmitEnabled bool
}

// EventRepository defines event persistence operations.
type EventRepository interface {
	Upsert(ctx context.Context, event *eventDomain.Event) (*eventDomain.Event, error)
	GetByID(ctx context.Context, eventID uuid.UUID) (*eventDomain.Event, error)
	MarkDeliveryObserved(ctx context.Context, eventID uuid.UUID) error
	UnresolvedFailures(ctx context.Context, since time.Time) ([]*eventDomain.Event, error)
	HasDelivered(ctx context.Context, messageID string) (bool, error)
	EventCounts(ctx context.Context, messageID string) (map[eventDomain.EventType]int, error)
}

// EventLister fetches event pages from the provider.
type EventLister interface {
	ListEvents(ctx context.Context, domain string, opts mailgun.ListEventsOptions) (*mailgun.EventsPage, error)
	NextPage(ctx context.Context, next string) (*mailgun.EventsPage, error)
}

// Resubmitter attempts to send a replacement for a stored failure. The
// boolean reports whether a resubmission was actually enqueued; the attempt
// may be declined without error (already delivered, rate limited, nothing to
// resend). Resubmission is best effort: errors are reported but never abort a
// poll.
type Resubmitter interface {
	Resubmit(ctx context.Context, event *eventDomain.Event) (bool, error)
}

// PollReport summarizes a single poll run.
type PollReport struct {
	Pages       int `json:"pages"`
	Fetched     int `json:"fetched"`
	Discarded   int `json:"discarded"`
	Stored      int `json:"stored"`
	Resubmitted int `json:"resubmitted"`
	Errors      int `json:"errors"`
}

// EventUseCase implements business logic for polling provider events.
type EventUseCase struct {
	config      Config
	eventRepo   EventRepository
	eventLister EventLister
	resubmitter Resubmitter
	logger      *slog.Logger
}

// NewEventUseCase creates a new EventUseCase. The resubmitter is optional.
func NewEventUseCase(
	config Config,
	eventRepo EventRepository,
	eventLister EventLister,
	resubmitter Resubmitter,
	logger *slog.Logger,
) *EventUseCase {
	if config.Filter == "" {
		config.Filter = eventDomain.FailureFilter
	}
	if config.PageSize <= 0 {
		config.PageSize = mailgun.DefaultPageSize
	}
	return &EventUseCase{
		config:      config,
		eventRepo:   eventRepo,
		eventLister: eventLister,
		resubmitter: resubmitter,
		logger:      logger,
	}
}

// PollEvents fetches provider events that occurred at or after begin and
// stores them locally. Pagination follows the provider's next cursor until an
// empty page is returned, capped at the configured page limit. Callback
// notifications are discarded. A failure to store or resubmit a single event
// is logged and does not abort the run. A non-nil resubmit overrides the
// configured resubmission toggle for this poll only.
func (uc *EventUseCase) PollEvents(
	ctx context.Context,
	begin time.Time,
	filter string,
	resubmit *bool,
) (*PollReport, error) {
	if filter == "" {
		filter = uc.config.Filter
	}

	resubmitEnabled := uc.config.ResubmitEnabled
	if resubmit != nil {
		resubmitEnabled = *resubmit
	}

	report := &PollReport{}

	page, err := uc.eventLister.ListEvents(ctx, uc.config.Domain, mailgun.ListEventsOptions{
		Begin:  &begin,
		Filter: filter,
		Limit:  uc.config.PageSize,
	})
	if err != nil {
		return nil, err
	}

	for {
		report.Pages++

		if len(page.Items) == 0 {
			break
		}

		for i := range page.Items {
			uc.handleItem(ctx, &page.Items[i], report, resubmitEnabled)
		}

		if page.Next == "" {
			break
		}

		if uc.config.MaxPages > 0 && report.Pages >= uc.config.MaxPages {
			uc.logger.Warn("event poll stopped at page limit",
				slog.Int("max_pages", uc.config.MaxPages),
				slog.Int("fetched", report.Fetched),
			)
			break
		}

		page, err = uc.eventLister.NextPage(ctx, page.Next)
		if err != nil {
			return nil, err
		}
	}

	uc.logger.Info("event poll finished",
		slog.Int("pages", report.Pages),
		slog.Int("fetched", report.Fetched),
		slog.Int("stored", report.Stored),
		slog.Int("discarded", report.Discarded),
		slog.Int("resubmitted", report.Resubmitted),
		slog.Int("errors", report.Errors),
	)

	return report, nil
}

// handleItem stores a single provider event and, when resubmission is on for
// this poll, tries a resubmission for stored failures.
func (uc *EventUseCase) handleItem(
	ctx context.Context,
	item *mailgun.Event,
	report *PollReport,
	resubmitEnabled bool,
) {
	report.Fetched++

	// Webhook delivery attempts show up in the event stream too and carry no
	// information about the original message.
	if item.IsCallback() {
		report.Discarded++
		return
	}

	now := time.Now().UTC()
	event := &eventDomain.Event{
		ID:              uuid.Must(uuid.NewV7()),
		ProviderEventID: item.ID,
		EventType:       eventDomain.ParseEventType(item.Name),
		MessageID:       mailgun.CleanMessageId(item.Message.Headers.MessageID),
		Recipient:       item.Recipient,
		OccurredAt:      item.OccurredAt(),
		RawPayload:      string(item.Raw),
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	stored, err := uc.eventRepo.Upsert(ctx, event)
	if err != nil {
		uc.logger.Error("failed to store event",
			slog.String("provider_event_id", item.ID),
			slog.Any("error", err),
		)
		report.Errors++
		return
	}
	report.Stored++

	if uc.resubmitter == nil || !resubmitEnabled {
		return
	}
	if !stored.EventType.IsFailure() || stored.DeliveryObserved {
		return
	}

	resubmitted, err := uc.resubmitter.Resubmit(ctx, stored)
	if err != nil {
		uc.logger.Error("failed to resubmit message",
			slog.String("event_id", stored.ID.String()),
			slog.String("message_id", stored.MessageID),
			slog.Any("error", err),
		)
		report.Errors++
		return
	}
	if resubmitted {
		report.Resubmitted++
	}
}
