// Package repository implements provider event persistence.
// Repositories support both PostgreSQL and MySQL with idempotent writes keyed
// on the provider event id.
package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/allisson/mailsync/internal/database"
	apperrors "github.com/allisson/mailsync/internal/errors"
	eventDomain "github.com/allisson/mailsync/internal/event/domain"
)

// PostgreSQLEventRepository implements Event persistence for PostgreSQL databases.
type PostgreSQLEventRepository struct {
	db *sql.DB
}

// Upsert inserts the event or, when a row with the same provider event id
// already exists, refreshes its mutable fields. The stored row is returned in
// both cases so callers observe the persisted state.
func (p *PostgreSQLEventRepository) Upsert(
	ctx context.Context,
	event *eventDomain.Event,
) (*eventDomain.Event, error) {
	querier := database.GetTx(ctx, p.db)

	query := `INSERT INTO mailgun_events (id, provider_event_id, event_type, message_id, recipient, occurred_at, delivery_observed, raw_payload, created_at, updated_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			  ON CONFLICT (provider_event_id) DO UPDATE
			  SET event_type = EXCLUDED.event_type,
				  message_id = EXCLUDED.message_id,
				  recipient = EXCLUDED.recipient,
				  occurred_at = EXCLUDED.occurred_at,
				  raw_payload = EXCLUDED.raw_payload,
				  updated_at = EXCLUDED.updated_at
			  RETURNING id, provider_event_id, event_type, message_id, recipient, occurred_at, delivery_observed, raw_payload, created_at, updated_at`

	var stored eventDomain.Event
	err := querier.QueryRowContext(
		ctx,
		query,
		event.ID,
		event.ProviderEventID,
		event.EventType,
		event.MessageID,
		event.Recipient,
		event.OccurredAt,
		event.DeliveryObserved,
		event.RawPayload,
		event.CreatedAt,
		event.UpdatedAt,
	).Scan(
		&stored.ID,
		&stored.ProviderEventID,
		&stored.EventType,
		&stored.MessageID,
		&stored.Recipient,
		&stored.OccurredAt,
		&stored.DeliveryObserved,
		&stored.RawPayload,
		&stored.CreatedAt,
		&stored.UpdatedAt,
	)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to upsert event")
	}

	return &stored, nil
}

// GetByID retrieves an event by its local id.
func (p *PostgreSQLEventRepository) GetByID(
	ctx context.Context,
	eventID uuid.UUID,
) (*eventDomain.Event, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT id, provider_event_id, event_type, message_id, recipient, occurred_at, delivery_observed, raw_payload, created_at, updated_at
			  FROM mailgun_events
			  WHERE id = $1`

	var event eventDomain.Event
	err := querier.QueryRowContext(ctx, query, eventID).Scan(
		&event.ID,
		&event.ProviderEventID,
		&event.EventType,
		&event.MessageID,
		&event.Recipient,
		&event.OccurredAt,
		&event.DeliveryObserved,
		&event.RawPayload,
		&event.CreatedAt,
		&event.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperrors.ErrNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get event by id")
	}

	return &event, nil
}

// MarkDeliveryObserved flips the delivery_observed flag on a stored failure
// once a later delivered event for the same message has been confirmed.
func (p *PostgreSQLEventRepository) MarkDeliveryObserved(
	ctx context.Context,
	eventID uuid.UUID,
) error {
	querier := database.GetTx(ctx, p.db)

	query := `UPDATE mailgun_events
			  SET delivery_observed = TRUE, updated_at = $1
			  WHERE id = $2`

	_, err := querier.ExecContext(ctx, query, time.Now().UTC(), eventID)
	if err != nil {
		return apperrors.Wrap(err, "failed to mark delivery observed")
	}

	return nil
}

// UnresolvedFailures lists failed or rejected events that occurred at or after
// since, still carry a message id, and have not yet been confirmed delivered.
// Results are ordered oldest first.
func (p *PostgreSQLEventRepository) UnresolvedFailures(
	ctx context.Context,
	since time.Time,
) ([]*eventDomain.Event, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT id, provider_event_id, event_type, message_id, recipient, occurred_at, delivery_observed, raw_payload, created_at, updated_at
			  FROM mailgun_events
			  WHERE event_type IN ('failed', 'rejected')
				AND delivery_observed = FALSE
				AND message_id != ''
				AND occurred_at >= $1
			  ORDER BY occurred_at ASC`

	rows, err := querier.QueryContext(ctx, query, since)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list unresolved failures")
	}
	defer func() { _ = rows.Close() }()

	var events []*eventDomain.Event
	for rows.Next() {
		var event eventDomain.Event
		err := rows.Scan(
			&event.ID,
			&event.ProviderEventID,
			&event.EventType,
			&event.MessageID,
			&event.Recipient,
			&event.OccurredAt,
			&event.DeliveryObserved,
			&event.RawPayload,
			&event.CreatedAt,
			&event.UpdatedAt,
		)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to scan unresolved failure")
		}
		events = append(events, &event)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate unresolved failures")
	}

	return events, nil
}

// HasDelivered reports whether a delivered event is stored for the message id.
func (p *PostgreSQLEventRepository) HasDelivered(
	ctx context.Context,
	messageID string,
) (bool, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT EXISTS (SELECT 1 FROM mailgun_events WHERE message_id = $1 AND event_type = 'delivered')`

	var exists bool
	err := querier.QueryRowContext(ctx, query, messageID).Scan(&exists)
	if err != nil {
		return false, apperrors.Wrap(err, "failed to check delivered event")
	}

	return exists, nil
}

// EventCounts returns the number of stored events per type for a message id.
func (p *PostgreSQLEventRepository) EventCounts(
	ctx context.Context,
	messageID string,
) (map[eventDomain.EventType]int, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT event_type, COUNT(*)
			  FROM mailgun_events
			  WHERE message_id = $1
			  GROUP BY event_type`

	rows, err := querier.QueryContext(ctx, query, messageID)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to count events")
	}
	defer func() { _ = rows.Close() }()

	counts := make(map[eventDomain.EventType]int)
	for rows.Next() {
		var eventType eventDomain.EventType
		var count int
		if err := rows.Scan(&eventType, &count); err != nil {
			return nil, apperrors.Wrap(err, "failed to scan event count")
		}
		counts[eventType] = count
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate event counts")
	}

	return counts, nil
}

// NewPostgreSQLEventRepository creates a new PostgreSQL Event repository instance.
func NewPostgreSQLEventRepository(db *sql.DB) *PostgreSQLEventRepository {
	return &PostgreSQLEventRepository{db: db}
}
