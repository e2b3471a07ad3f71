package event_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/abhinavece/auctionhub/internal/event"
)

// fakeStore is a minimal in-memory event.Store for exercising Replay without
// a database.
type fakeStore struct {
	byAuction map[string][]event.Event
}

func newFakeStore() *fakeStore {
	return &fakeStore{byAuction: make(map[string][]event.Event)}
}

func (f *fakeStore) Append(ctx context.Context, events ...event.Event) error {
	for _, e := range events {
		f.byAuction[e.AuctionID] = append(f.byAuction[e.AuctionID], e)
	}
	return nil
}

func (f *fakeStore) Load(ctx context.Context, auctionID string) ([]event.Event, error) {
	return f.byAuction[auctionID], nil
}

func (f *fakeStore) Tail(ctx context.Context, auctionID string, n int) ([]event.Event, error) {
	all := f.byAuction[auctionID]
	if len(all) <= n {
		return all, nil
	}
	return all[len(all)-n:], nil
}

func (f *fakeStore) LoadByType(ctx context.Context, eventType event.Type) ([]event.Event, error) {
	var out []event.Event
	for _, evs := range f.byAuction {
		for _, e := range evs {
			if e.Type == eventType {
				out = append(out, e)
			}
		}
	}
	return out, nil
}

func mustPayload(t *testing.T, v any) json.RawMessage {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	return b
}

func TestReplay_FoldsLifecycleBidAndSale(t *testing.T) {
	s := newFakeStore()
	ctx := context.Background()
	const auctionID = "auction-1"

	seq := 0
	next := func(typ event.Type, payload json.RawMessage) event.Event {
		seq++
		return event.Event{
			AuctionID:      auctionID,
			SequenceNumber: seq,
			Type:           typ,
			Payload:        payload,
			CreatedAt:      time.Unix(int64(seq), 0).UTC(),
		}
	}

	if err := s.Append(ctx,
		next(event.AuctionCreated, mustPayload(t, event.AuctionLifecyclePayload{Status: "draft"})),
		next(event.AuctionConfigured, mustPayload(t, event.AuctionLifecyclePayload{Status: "configured"})),
		next(event.AuctionStarted, mustPayload(t, event.AuctionLifecyclePayload{Status: "live"})),
		next(event.PlayerLive, mustPayload(t, event.PlayerLivePayload{PlayerID: "p1", Round: 1})),
		next(event.BidAccepted, mustPayload(t, event.BidAcceptedPayload{PlayerID: "p1", TeamID: "t1", Amount: 100})),
		next(event.BidAccepted, mustPayload(t, event.BidAcceptedPayload{PlayerID: "p1", TeamID: "t2", Amount: 110})),
		next(event.PlayerSold, mustPayload(t, event.PlayerSoldPayload{PlayerID: "p1", TeamID: "t2", Amount: 110, Round: 1})),
	); err != nil {
		t.Fatalf("Append: %v", err)
	}

	snap, err := event.Replay(ctx, s, auctionID)
	if err != nil {
		t.Fatalf("Replay: %v", err)
	}
	if snap.Status != "live" {
		t.Errorf("Status = %q, want live", snap.Status)
	}
	if snap.CurrentPlayerID != "" {
		t.Errorf("CurrentPlayerID = %q, want empty after sale", snap.CurrentPlayerID)
	}
	if snap.CurrentBidAmount != 0 {
		t.Errorf("CurrentBidAmount = %d, want 0 after sale resets it", snap.CurrentBidAmount)
	}
	if snap.PlayerStatus["p1"] != "sold" {
		t.Errorf("PlayerStatus[p1] = %q, want sold", snap.PlayerStatus["p1"])
	}
	if snap.TeamPurseDeltas["t2"] != -110 {
		t.Errorf("TeamPurseDeltas[t2] = %d, want -110", snap.TeamPurseDeltas["t2"])
	}
	if snap.LastSequenceNumber != 7 {
		t.Errorf("LastSequenceNumber = %d, want 7", snap.LastSequenceNumber)
	}
}

func TestReplay_FoldsTradeExecutionSettlement(t *testing.T) {
	s := newFakeStore()
	ctx := context.Background()
	const auctionID = "auction-2"

	seq := 0
	next := func(typ event.Type, payload json.RawMessage) event.Event {
		seq++
		return event.Event{AuctionID: auctionID, SequenceNumber: seq, Type: typ, Payload: payload}
	}

	if err := s.Append(ctx,
		next(event.TradeProposed, mustPayload(t, event.TradeStatusPayload{TradeID: "tr1", InitiatorTeamID: "t1", CounterpartyTeamID: "t2"})),
		next(event.TradeAccepted, mustPayload(t, event.TradeStatusPayload{TradeID: "tr1", InitiatorTeamID: "t1", CounterpartyTeamID: "t2"})),
		next(event.TradeExecuted, mustPayload(t, event.TradeExecutedPayload{
			TradeID: "tr1", InitiatorTeamID: "t1", CounterpartyTeamID: "t2",
			SettlementAmount: 50, SettlementDirection: "counterparty_pays", SettlementApplied: true,
		})),
	); err != nil {
		t.Fatalf("Append: %v", err)
	}

	snap, err := event.Replay(ctx, s, auctionID)
	if err != nil {
		t.Fatalf("Replay: %v", err)
	}
	if snap.TradeStatus["tr1"] != "executed" {
		t.Errorf("TradeStatus[tr1] = %q, want executed", snap.TradeStatus["tr1"])
	}
	if snap.TeamPurseDeltas["t2"] != -50 {
		t.Errorf("TeamPurseDeltas[t2] = %d, want -50", snap.TeamPurseDeltas["t2"])
	}
	if snap.TeamPurseDeltas["t1"] != 50 {
		t.Errorf("TeamPurseDeltas[t1] = %d, want 50", snap.TeamPurseDeltas["t1"])
	}
}

func TestReplay_UnknownEventTypeErrors(t *testing.T) {
	s := newFakeStore()
	ctx := context.Background()
	const auctionID = "auction-3"

	if err := s.Append(ctx, event.Event{AuctionID: auctionID, SequenceNumber: 1, Type: "NOT_A_REAL_TYPE"}); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if _, err := event.Replay(ctx, s, auctionID); err == nil {
		t.Fatal("expected Replay to error on an unrecognized event type")
	}
}
