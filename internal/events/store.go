package events

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrStoreUnavailable indicates the event store dependency is not configured.
var ErrStoreUnavailable = errors.New("events: store unavailable")

// NewStore constructs an EventStore backed by a pgx connection pool.
func NewStore(pool *pgxpool.Pool) EventStore {
	return &pgStore{pool: pool}
}

type pgStore struct {
	pool *pgxpool.Pool
}

func (s *pgStore) InsertDomainEvent(ctx context.Context, event Event) (Event, error) {
	if s == nil || s.pool == nil {
		return Event{}, ErrStoreUnavailable
	}
	row := s.pool.QueryRow(ctx, `INSERT INTO domain_events (org_id, topic, aggregate_id, payload)
VALUES ($1, $2, $3, $4)
RETURNING id, occurred_at`, event.OrgID, event.Topic, event.AggregateID, event.Payload)
	if err := row.Scan(&event.ID, &event.OccurredAt); err != nil {
		return Event{}, err
	}
	return event, nil
}
