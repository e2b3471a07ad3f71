package entstore

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/abhinavece/auctionhub/internal/event"
)

// EventStore implements event.Store using database/sql.
type EventStore struct {
	db *sql.DB
}

// NewEventStore returns a new EventStore.
func NewEventStore(db *sql.DB) *EventStore {
	return &EventStore{db: db}
}

func (s *EventStore) Append(ctx context.Context, events ...event.Event) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := appendEvents(ctx, tx, events); err != nil {
		return err
	}
	return tx.Commit()
}

func appendEvents(ctx context.Context, tx *sql.Tx, events []event.Event) error {
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO action_events
		   (id, auction_id, sequence_number, type, payload, reversal_payload, performed_by, is_public, public_message, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`)
	if err != nil {
		return fmt.Errorf("preparing event insert: %w", err)
	}
	defer stmt.Close()

	for _, e := range events {
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
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, auction_id, sequence_number, type, payload, reversal_payload, performed_by, is_public, public_message, created_at
		 FROM action_events WHERE auction_id = $1 ORDER BY sequence_number ASC`, auctionID)
	if err != nil {
		return nil, fmt.Errorf("loading events: %w", err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

func (s *EventStore) Tail(ctx context.Context, auctionID string, n int) ([]event.Event, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT * FROM (
		   SELECT id, auction_id, sequence_number, type, payload, reversal_payload, performed_by, is_public, public_message, created_at
		   FROM action_events WHERE auction_id = $1 ORDER BY sequence_number DESC LIMIT $2
		 ) t ORDER BY sequence_number ASC`, auctionID, n)
	if err != nil {
		return nil, fmt.Errorf("loading event tail: %w", err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

func (s *EventStore) LoadByType(ctx context.Context, eventType event.Type) ([]event.Event, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, auction_id, sequence_number, type, payload, reversal_payload, performed_by, is_public, public_message, created_at
		 FROM action_events WHERE type = $1 ORDER BY created_at ASC`, eventType)
	if err != nil {
		return nil, fmt.Errorf("loading events by type: %w", err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

func scanEvents(rows *sql.Rows) ([]event.Event, error) {
	var events []event.Event
	for rows.Next() {
		var e event.Event
		var reversal sql.NullString
		var payload []byte
		if err := rows.Scan(&e.ID, &e.AuctionID, &e.SequenceNumber, &e.Type, &payload, &reversal,
			&e.PerformedBy, &e.IsPublic, &e.PublicMessage, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning event row: %w", err)
		}
		e.Payload = payload
		if reversal.Valid {
			e.ReversalPayload = []byte(reversal.String)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}
