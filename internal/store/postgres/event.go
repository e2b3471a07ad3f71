package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/abhinavece/auctionhub/internal/event"
)

// EventStore implements event.Store backed by Postgres.
type EventStore struct {
	db *sqlx.DB
}

// NewEventStore returns a new EventStore.
func NewEventStore(db *sqlx.DB) *EventStore {
	return &EventStore{db: db}
}

func (s *EventStore) Append(ctx context.Context, events ...event.Event) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := appendEvents(ctx, tx, events); err != nil {
		return err
	}

	return tx.Commit()
}

// appendEvents is shared by EventStore.Append and AuctionRepo.Apply so both
// paths write the action_events table identically. An event without an ID
// is stored under a fresh UUID.
func appendEvents(ctx context.Context, tx *sqlx.Tx, events []event.Event) error {
	stmt, err := tx.PreparexContext(ctx,
		`INSERT INTO action_events
		   (id, auction_id, sequence_number, type, payload, reversal_payload, performed_by, is_public, public_message, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`)
	if err != nil {
		return fmt.Errorf("preparing event insert: %w", err)
	}
	defer stmt.Close()

	for _, e := range events {
		if e.ID == "" {
			e.ID = uuid.NewString()
		}
		if _, err := stmt.ExecContext(ctx,
			e.ID, e.AuctionID, e.SequenceNumber, e.Type, e.Payload, e.ReversalPayload,
			e.PerformedBy, e.IsPublic, e.PublicMessage, e.CreatedAt,
		); err != nil {
			return fmt.Errorf("inserting event (auction=%s, seq=%d): %w", e.AuctionID, e.SequenceNumber, err)
		}
	}
	return nil
}

func (s *EventStore) Load(ctx context.Context, auctionID string) ([]event.Event, error) {
	var events []event.Event
	err := s.db.SelectContext(ctx, &events,
		`SELECT id, auction_id, sequence_number, type, payload, reversal_payload, performed_by, is_public, public_message, created_at
		 FROM action_events WHERE auction_id = $1 ORDER BY sequence_number ASC`, auctionID)
	if err != nil {
		return nil, fmt.Errorf("loading events: %w", err)
	}
	return events, nil
}

func (s *EventStore) Tail(ctx context.Context, auctionID string, n int) ([]event.Event, error) {
	var events []event.Event
	err := s.db.SelectContext(ctx, &events,
		`SELECT * FROM (
		   SELECT id, auction_id, sequence_number, type, payload, reversal_payload, performed_by, is_public, public_message, created_at
		   FROM action_events WHERE auction_id = $1 ORDER BY sequence_number DESC LIMIT $2
		 ) t ORDER BY sequence_number ASC`, auctionID, n)
	if err != nil {
		return nil, fmt.Errorf("loading event tail: %w", err)
	}
	return events, nil
}

func (s *EventStore) LoadByType(ctx context.Context, eventType event.Type) ([]event.Event, error) {
	var events []event.Event
	err := s.db.SelectContext(ctx, &events,
		`SELECT id, auction_id, sequence_number, type, payload, reversal_payload, performed_by, is_public, public_message, created_at
		 FROM action_events WHERE type = $1 ORDER BY created_at ASC`, eventType)
	if err != nil {
		return nil, fmt.Errorf("loading events by type: %w", err)
	}
	return events, nil
}
