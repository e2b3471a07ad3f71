package auction_test

import (
	"context"
	"testing"

	"github.com/abhinavece/auctionhub/internal/autxerr"
	"github.com/abhinavece/auctionhub/internal/store"
)

func TestPlaceBid_AcceptsFirstBidAtBasePrice(t *testing.T) {
	s := newSeededCoordinator(t, defaultSeedOpts())
	s.configureAndGoLive(t)
	ctx := context.Background()

	if err := s.coord.PlaceBid(ctx, s.teams[0], 100); err != nil {
		t.Fatalf("PlaceBid: %v", err)
	}

	a, err := s.store.GetAuction(ctx, s.auction)
	if err != nil {
		t.Fatalf("GetAuction: %v", err)
	}
	if a.CurrentBidAmount != 100 {
		t.Errorf("CurrentBidAmount = %d, want 100", a.CurrentBidAmount)
	}
	if a.CurrentBidderTeamID == nil || *a.CurrentBidderTeamID != s.teams[0] {
		t.Errorf("CurrentBidderTeamID = %v, want %s", a.CurrentBidderTeamID, s.teams[0])
	}
}

func TestPlaceBid_RejectsWrongAmount(t *testing.T) {
	s := newSeededCoordinator(t, defaultSeedOpts())
	s.configureAndGoLive(t)
	ctx := context.Background()

	err := s.coord.PlaceBid(ctx, s.teams[0], 150)
	if err == nil {
		t.Fatal("expected bid_not_next_increment rejection, got nil")
	}
	if autxerr.ReasonOf(err) != "bid_not_next_increment" {
		t.Errorf("reason = %q, want bid_not_next_increment", autxerr.ReasonOf(err))
	}
}

func TestPlaceBid_RejectsSelfOutbid(t *testing.T) {
	s := newSeededCoordinator(t, defaultSeedOpts())
	s.configureAndGoLive(t)
	ctx := context.Background()

	if err := s.coord.PlaceBid(ctx, s.teams[0], 100); err != nil {
		t.Fatalf("first bid: %v", err)
	}
	err := s.coord.PlaceBid(ctx, s.teams[0], 110)
	if autxerr.ReasonOf(err) != "already_highest_bidder" {
		t.Errorf("reason = %q, want already_highest_bidder", autxerr.ReasonOf(err))
	}
}

func TestPlaceBid_AdvancesIncrementLadder(t *testing.T) {
	opts := defaultSeedOpts()
	opts.tiers = []store.BidIncrementTier{
		{Threshold: 0, Increment: 10},
		{Threshold: 200, Increment: 25},
	}
	s := newSeededCoordinator(t, opts)
	s.configureAndGoLive(t)
	ctx := context.Background()

	if err := s.coord.PlaceBid(ctx, s.teams[0], 100); err != nil {
		t.Fatalf("bid 1: %v", err)
	}
	if err := s.coord.PlaceBid(ctx, s.teams[1], 110); err != nil {
		t.Fatalf("bid 2: %v", err)
	}
	a, _ := s.store.GetAuction(ctx, s.auction)
	expected := a.CurrentBidAmount + store.Increment(opts.tiers, a.CurrentBidAmount)
	if err := s.coord.PlaceBid(ctx, s.teams[0], expected); err != nil {
		t.Fatalf("bid at expected increment %d: %v", expected, err)
	}
}

func TestPlaceBid_RejectsInsufficientPurseForMinSquad(t *testing.T) {
	opts := defaultSeedOpts()
	opts.purseValue = 150
	opts.minSquadSize = 2
	opts.basePrice = 100
	s := newSeededCoordinator(t, opts)
	s.configureAndGoLive(t)
	ctx := context.Background()

	// Team has 150 purse, needs to keep at least basePrice (100) in reserve
	// for the second required squad slot, so a 100 bid leaving 50 remaining
	// should be rejected.
	err := s.coord.PlaceBid(ctx, s.teams[0], 100)
	if autxerr.ReasonOf(err) != "insufficient_purse_for_min_squad" {
		t.Errorf("reason = %q, want insufficient_purse_for_min_squad", autxerr.ReasonOf(err))
	}
}

func TestPlaceBid_RejectsWhenSquadFull(t *testing.T) {
	opts := defaultSeedOpts()
	opts.maxSquadSize = 0
	s := newSeededCoordinator(t, opts)
	s.configureAndGoLive(t)
	ctx := context.Background()

	err := s.coord.PlaceBid(ctx, s.teams[0], 100)
	if autxerr.ReasonOf(err) != "squad_full" {
		t.Errorf("reason = %q, want squad_full", autxerr.ReasonOf(err))
	}
}

func TestPlaceBid_RejectsWhenAuctionNotLive(t *testing.T) {
	s := newSeededCoordinator(t, defaultSeedOpts())
	ctx := context.Background()

	err := s.coord.PlaceBid(ctx, s.teams[0], 100)
	if autxerr.ReasonOf(err) != "auction_not_live" {
		t.Errorf("reason = %q, want auction_not_live", autxerr.ReasonOf(err))
	}
}
