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

// MySQLEventRepository implements Event persistence for MySQL databases.
type MySQLEventRepository struct {
	db *sql.DB
}

// scanMySQLEvent reads an event row, converting the BINARY(16) id column.
func scanMySQLEvent(row interface {
	Scan(dest ...interface{}) error
}) (*eventDomain.Event, error) {
	var event eventDomain.Event
	var id []byte

	err := row.Scan(
		&id,
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
		return nil, err
	}

	event.ID, err = uuid.FromBytes(id)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to unmarshal event id")
	}

	return &event, nil
}

// Upsert inserts the event or, when a row with the same provider event id
// already exists, refreshes its mutable fields. MySQL has no RETURNING clause,
// so the stored row is fetched with a follow-up select.
func (m *MySQLEventRepository) Upsert(
	ctx context.Context,
	event *eventDomain.Event,
) (*eventDomain.Event, error) {
	querier := database.GetTx(ctx, m.db)

	query := `INSERT INTO mailgun_events (id, provider_event_id, event_type, message_id, recipient, occurred_at, delivery_observed, raw_payload, created_at, updated_at)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			  ON DUPLICATE KEY UPDATE
				  event_type = VALUES(event_type),
				  message_id = VALUES(message_id),
				  recipient = VALUES(recipient),
				  occurred_at = VALUES(occurred_at),
				  raw_payload = VALUES(raw_payload),
				  updated_at = VALUES(updated_at)`

	id, err := event.ID.MarshalBinary()
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to marshal event id")
	}

	_, err = querier.ExecContext(
		ctx,
		query,
		id,
		event.ProviderEventID,
		event.EventType,
		event.MessageID,
		event.Recipient,
		event.OccurredAt,
		event.DeliveryObserved,
		event.RawPayload,
		event.CreatedAt,
		event.UpdatedAt,
	)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to upsert event")
	}

	return m.getByProviderEventID(ctx, event.ProviderEventID)
}

func (m *MySQLEventRepository) getByProviderEventID(
	ctx context.Context,
	providerEventID string,
) (*eventDomain.Event, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT id, provider_event_id, event_type, message_id, recipient, occurred_at, delivery_observed, raw_payload, created_at, updated_at
			  FROM mailgun_events
			  WHERE provider_event_id = ?`

	event, err := scanMySQLEvent(querier.QueryRowContext(ctx, query, providerEventID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperrors.ErrNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get event by provider event id")
	}

	return event, nil
}

// GetByID retrieves an event by its local id.
func (m *MySQLEventRepository) GetByID(
	ctx context.Context,
	eventID uuid.UUID,
) (*eventDomain.Event, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT id, provider_event_id, event_type, message_id, recipient, occurred_at, delivery_observed, raw_payload, created_at, updated_at
			  FROM mailgun_events
			  WHERE id = ?`

	id, err := eventID.MarshalBinary()
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to marshal event id")
	}

	event, err := scanMySQLEvent(querier.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperrors.ErrNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get event by id")
	}

	return event, nil
}

// MarkDeliveryObserved flips the delivery_observed flag on a stored failure
// once a later delivered event for the same message has been confirmed.
func (m *MySQLEventRepository) MarkDeliveryObserved(
	ctx context.Context,
	eventID uuid.UUID,
) error {
	querier := database.GetTx(ctx, m.db)

	query := `UPDATE mailgun_events
			  SET delivery_observed = TRUE, updated_at = ?
			  WHERE id = ?`

	id, err := eventID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal event id")
	}

	_, err = querier.ExecContext(ctx, query, time.Now().UTC(), id)
	if err != nil {
		return apperrors.Wrap(err, "failed to mark delivery observed")
	}

	return nil
}

// UnresolvedFailures lists failed or rejected events that occurred at or after
// since, still carry a message id, and have not yet been confirmed delivered.
// Results are ordered oldest first.
func (m *MySQLEventRepository) UnresolvedFailures(
	ctx context.Context,
	since time.Time,
) ([]*eventDomain.Event, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT id, provider_event_id, event_type, message_id, recipient, occurred_at, delivery_observed, raw_payload, created_at, updated_at
			  FROM mailgun_events
			  WHERE event_type IN ('failed', 'rejected')
				AND delivery_observed = FALSE
				AND message_id != ''
				AND occurred_at >= ?
			  ORDER BY occurred_at ASC`

	rows, err := querier.QueryContext(ctx, query, since)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list unresolved failures")
	}
	defer func() { _ = rows.Close() }()

	var events []*eventDomain.Event
	for rows.Next() {
		event, err := scanMySQLEvent(rows)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to scan unresolved failure")
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate unresolved failures")
	}

	return events, nil
}

// HasDelivered reports whether a delivered event is stored for the message id.
func (m *MySQLEventRepository) HasDelivered(
	ctx context.Context,
	messageID string,
) (bool, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT EXISTS (SELECT 1 FROM mailgun_events WHERE message_id = ? AND event_type = 'delivered')`

	var exists bool
	err := querier.QueryRowContext(ctx, query, messageID).Scan(&exists)
	if err != nil {
		return false, apperrors.Wrap(err, "failed to check delivered event")
	}

	return exists, nil
}

// EventCounts returns the number of stored events per type for a message id.
func (m *MySQLEventRepository) EventCounts(
	ctx context.Context,
	messageID string,
) (map[eventDomain.EventType]int, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT event_type, COUNT(*)
			  FROM mailgun_events
			  WHERE message_id = ?
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

// NewMySQLEventRepository creates a new MySQL Event repository instance.
func NewMySQLEventRepository(db *sql.DB) *MySQLEventRepository {
	return &MySQLEventRepository{db: db}
}
