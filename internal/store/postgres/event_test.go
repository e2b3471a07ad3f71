package postgres_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/abhinavece/auctionhub/internal/event"
	"github.com/abhinavece/auctionhub/internal/store/postgres"
)

func TestEventStore_AppendAndLoad(t *testing.T) {
	db := newTestDB(t)
	es := postgres.NewEventStore(db)
	ctx := context.Background()

	auctionID := "auction-001"
	events := []event.Event{
		{AuctionID: auctionID, SequenceNumber: 1, Type: event.AuctionStarted, Payload: json.RawMessage(`{}`), PerformedBy: "admin-1"},
		{AuctionID: auctionID, SequenceNumber: 2, Type: event.BidAccepted, Payload: json.RawMessage(`{"player_id":"p1","amount":100}`), PerformedBy: "team-1"},
	}

	if err := es.Append(ctx, events...); err != nil {
		t.Fatalf("Append: %v", err)
	}

	loaded, err := es.Load(ctx, auctionID)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(loaded) != 2 {
		t.Fatalf("Load returned %d events, want 2", len(loaded))
	}

	// Should be ordered by sequence number.
	if loaded[0].SequenceNumber != 1 || loaded[1].SequenceNumber != 2 {
		t.Errorf("sequence numbers = [%d, %d], want [1, 2]", loaded[0].SequenceNumber, loaded[1].SequenceNumber)
	}
	if loaded[0].Type != event.AuctionStarted {
		t.Errorf("event[0].Type = %q, want %q", loaded[0].Type, event.AuctionStarted)
	}
}

func TestEventStore_Tail(t *testing.T) {
	db := newTestDB(t)
	es := postgres.NewEventStore(db)
	ctx := context.Background()

	auctionID := "auction-tail"
	var events []event.Event
	for i := 1; i <= 5; i++ {
		events = append(events, event.Event{
			AuctionID:      auctionID,
			SequenceNumber: i,
			Type:           event.BidAccepted,
			Payload:        json.RawMessage(`{}`),
			PerformedBy:    "team-1",
		})
	}
	if err := es.Append(ctx, events...); err != nil {
		t.Fatalf("Append: %v", err)
	}

	tail, err := es.Tail(ctx, auctionID, 2)
	if err != nil {
		t.Fatalf("Tail: %v", err)
	}
	if len(tail) != 2 {
		t.Fatalf("Tail returned %d events, want 2", len(tail))
	}
	if tail[0].SequenceNumber != 4 || tail[1].SequenceNumber != 5 {
		t.Errorf("tail sequence numbers = [%d, %d], want [4, 5]", tail[0].SequenceNumber, tail[1].SequenceNumber)
	}
}

func TestEventStore_LoadByType(t *testing.T) {
	db := newTestDB(t)
	es := postgres.NewEventStore(db)
	ctx := context.Background()

	events := []event.Event{
		{AuctionID: "a1", SequenceNumber: 1, Type: event.AuctionStarted, Payload: json.RawMessage(`{}`)},
		{AuctionID: "a1", SequenceNumber: 2, Type: event.BidAccepted, Payload: json.RawMessage(`{}`)},
		{AuctionID: "a2", SequenceNumber: 1, Type: event.AuctionStarted, Payload: json.RawMessage(`{}`)},
	}

	if err := es.Append(ctx, events...); err != nil {
		t.Fatalf("Append: %v", err)
	}

	started, err := es.LoadByType(ctx, event.AuctionStarted)
	if err != nil {
		t.Fatalf("LoadByType: %v", err)
	}
	if len(started) != 2 {
		t.Fatalf("LoadByType(AuctionStarted) returned %d, want 2", len(started))
	}

	bids, err := es.LoadByType(ctx, event.BidAccepted)
	if err != nil {
		t.Fatalf("LoadByType: %v", err)
	}
	if len(bids) != 1 {
		t.Fatalf("LoadByType(BidAccepted) returned %d, want 1", len(bids))
	}
}

func TestEventStore_UniqueAuctionSequence(t *testing.T) {
	db := newTestDB(t)
	es := postgres.NewEventStore(db)
	ctx := context.Background()

	e := event.Event{
		AuctionID:      "dup-test",
		SequenceNumber: 1,
		Type:           event.PlayerSold,
		Payload:        json.RawMessage(`{}`),
	}

	if err := es.Append(ctx, e); err != nil {
		t.Fatalf("first Append: %v", err)
	}

	// Duplicate sequence number for the same auction should fail.
	err := es.Append(ctx, e)
	if err == nil {
		t.Fatal("expected error for duplicate auction_id + sequence_number")
	}
}

func TestEventStore_LoadEmpty(t *testing.T) {
	db := newTestDB(t)
	es := postgres.NewEventStore(db)
	ctx := context.Background()

	loaded, err := es.Load(ctx, "nonexistent")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(loaded) != 0 {
		t.Errorf("expected empty slice, got %d events", len(loaded))
	}
}
