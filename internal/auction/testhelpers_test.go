package auction_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/abhinavece/auctionhub/internal/auction"
	"github.com/abhinavece/auctionhub/internal/clock"
	"github.com/abhinavece/auctionhub/internal/store"
)

// seedOpts configures newSeededCoordinator's auction/team/pool layout.
type seedOpts struct {
	teams           int
	pool            int
	basePrice       int
	purseValue      int
	minSquadSize    int
	maxSquadSize    int
	tiers           []store.BidIncrementTier
	maxTradesPerTeam int
	tradeSettlement bool
	maxUndoActions  int

	// Timer overrides default to 2s/2s/1s/1s (matching defaultSeedOpts) when
	// left zero. Tests that drive a real phase expiry set these short so the
	// test doesn't block for seconds.
	timerDuration   time.Duration
	bidResetTimer   time.Duration
	goingOnceTimer  time.Duration
	goingTwiceTimer time.Duration
}

func defaultSeedOpts() seedOpts {
	return seedOpts{
		teams:            2,
		pool:             4,
		basePrice:        100,
		purseValue:       1000,
		minSquadSize:     1,
		maxSquadSize:     3,
		tiers:            []store.BidIncrementTier{{Threshold: 0, Increment: 10}},
		maxTradesPerTeam: 5,
		tradeSettlement:  true,
		maxUndoActions:   10,
	}
}

// seeded bundles everything a test needs to drive a Coordinator: the
// store, the coordinator itself, and the IDs it created.
type seeded struct {
	store   *memStore
	coord   *auction.Coordinator
	auction string
	teams   []string
	pool    []string
}

func newSeededCoordinator(t *testing.T, opts seedOpts) *seeded {
	t.Helper()
	ctx := context.Background()
	ms := newMemStore()

	timerDuration, bidResetTimer, goingOnceTimer, goingTwiceTimer := 2*time.Second, 2*time.Second, time.Second, time.Second
	if opts.timerDuration > 0 {
		timerDuration = opts.timerDuration
	}
	if opts.bidResetTimer > 0 {
		bidResetTimer = opts.bidResetTimer
	}
	if opts.goingOnceTimer > 0 {
		goingOnceTimer = opts.goingOnceTimer
	}
	if opts.goingTwiceTimer > 0 {
		goingTwiceTimer = opts.goingTwiceTimer
	}

	a := &store.Auction{
		ID:                "auction-1",
		Slug:              "auction-1",
		Status:            store.StatusDraft,
		BasePrice:         opts.basePrice,
		PurseValue:        opts.purseValue,
		BidIncrementTiers: opts.tiers,
		TimerDuration:     timerDuration,
		BidResetTimer:     bidResetTimer,
		GoingOnceTimer:    goingOnceTimer,
		GoingTwiceTimer:   goingTwiceTimer,
		MinSquadSize:      opts.minSquadSize,
		MaxSquadSize:      opts.maxSquadSize,
		TradeWindowHours:  24,
		MaxTradesPerTeam:  opts.maxTradesPerTeam,
		TradeSettlementOn: opts.tradeSettlement,
		MaxUndoActions:    opts.maxUndoActions,
		RequeuePolicy:     "head",
		CreatedAt:         time.Now(),
		UpdatedAt:         time.Now(),
	}
	if err := ms.CreateAuction(ctx, a); err != nil {
		t.Fatalf("seeding auction: %v", err)
	}

	s := &seeded{store: ms, auction: a.ID}
	for i := 0; i < opts.teams; i++ {
		tm := &store.AuctionTeam{
			AuctionID:      a.ID,
			Name:           letterName(i),
			ShortName:      letterName(i),
			PurseValue:     opts.purseValue,
			PurseRemaining: opts.purseValue,
			IsActive:       true,
			CreatedAt:      time.Now(),
		}
		if err := ms.CreateTeam(ctx, tm); err != nil {
			t.Fatalf("seeding team: %v", err)
		}
		s.teams = append(s.teams, tm.ID)
	}
	for i := 0; i < opts.pool; i++ {
		p := &store.AuctionPlayer{
			AuctionID:    a.ID,
			PlayerNumber: i + 1,
			Name:         letterName(i) + "-player",
			Role:         "forward",
			Status:       store.PlayerPool,
			CreatedAt:    time.Now(),
		}
		if err := ms.CreatePlayer(ctx, p); err != nil {
			t.Fatalf("seeding player: %v", err)
		}
		s.pool = append(s.pool, p.ID)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	c, err := auction.NewCoordinator(ctx, a.ID, ms, ms, nil, clock.Real{}, logger)
	if err != nil {
		t.Fatalf("constructing coordinator: %v", err)
	}
	go c.Run()
	t.Cleanup(c.Stop)
	s.coord = c
	return s
}

func letterName(i int) string {
	letters := "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	return string(letters[i%len(letters)])
}

// configureAndGoLive drives a freshly seeded auction through Configure and
// GoLive so bidding tests can start directly from a live first player.
func (s *seeded) configureAndGoLive(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	if err := s.coord.Configure(ctx, "admin"); err != nil {
		t.Fatalf("Configure: %v", err)
	}
	if err := s.coord.GoLive(ctx, "admin"); err != nil {
		t.Fatalf("GoLive: %v", err)
	}
}
