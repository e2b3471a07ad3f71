package auction

import (
	"context"
	"time"

	"github.com/abhinavece/auctionhub/internal/event"
	"github.com/abhinavece/auctionhub/internal/store"
)

const recentEventsWindow = 20

// Snapshot is the full current view of an auction handed to a client on
// subscribe or reconnect (§4.7) — reconnecting clients cannot replay a gap
// in the incremental event stream, so they get a fresh full state instead.
type Snapshot struct {
	AuctionID            string              `json:"auction_id"`
	Status               store.AuctionStatus `json:"status"`
	CurrentPlayerID      *string             `json:"current_player_id,omitempty"`
	CurrentBidAmount     int                 `json:"current_bid_amount"`
	CurrentBidderTeamID  *string             `json:"current_bidder_team_id,omitempty"`
	TimerPhase           store.TimerPhase    `json:"timer_phase"`
	RemainingSeconds     int                 `json:"remaining_seconds"`
	CurrentRound         int                 `json:"current_round"`
	Teams                []TeamPurseView     `json:"teams"`
	RecentEvents         []event.Event       `json:"recent_events"`
}

// TeamPurseView is the subset of a team's state a spectator may see.
type TeamPurseView struct {
	TeamID         string `json:"team_id"`
	Name           string `json:"name"`
	PurseRemaining int    `json:"purse_remaining"`
	SquadSize      int    `json:"squad_size"`
}

// Snapshot builds the current full-state view of the auction for delivery
// to a client on subscribe or reconnect. Runs through the inbox like any
// other command so it reflects a single consistent point in the command
// sequence rather than a torn read of the cache.
func (c *Coordinator) Snapshot(ctx context.Context) (*Snapshot, error) {
	v, err := c.submit(ctx, func(ctx context.Context) (any, error) {
		return c.snapshotLocked(ctx)
	})
	if err != nil {
		return nil, err
	}
	return v.(*Snapshot), nil
}

func (c *Coordinator) snapshotLocked(ctx context.Context) (*Snapshot, error) {
	remaining := 0
	if d := c.auction.CurrentPhaseDeadline.Sub(c.clock.Now()); d > 0 {
		remaining = int(d / time.Second)
	}

	teams := make([]TeamPurseView, 0, len(c.teams))
	for _, t := range c.teams {
		teams = append(teams, TeamPurseView{
			TeamID:         t.ID,
			Name:           t.Name,
			PurseRemaining: t.PurseRemaining,
			SquadSize:      len(t.Players),
		})
	}

	recent, err := c.events.Tail(ctx, c.id, recentEventsWindow)
	if err != nil {
		return nil, err
	}

	return &Snapshot{
		AuctionID:           c.id,
		Status:              c.auction.Status,
		CurrentPlayerID:     c.auction.CurrentPlayerID,
		CurrentBidAmount:    c.auction.CurrentBidAmount,
		CurrentBidderTeamID: c.auction.CurrentBidderTeamID,
		TimerPhase:          c.auction.CurrentTimerPhase,
		RemainingSeconds:    remaining,
		CurrentRound:        c.auction.CurrentRound,
		Teams:               teams,
		RecentEvents:        recent,
	}, nil
}
