package auction

import (
	"context"
	"encoding/json"

	"github.com/abhinavece/auctionhub/internal/autxerr"
	"github.com/abhinavece/auctionhub/internal/event"
	"github.com/abhinavece/auctionhub/internal/store"
)

// PlaceBid validates an attempted bid against the eight ordered
// preconditions of the Bidding Arbiter and, on acceptance, atomically moves
// the current bid forward and restarts the phase timer at bidResetTimer
// (§4.4).
func (c *Coordinator) PlaceBid(ctx context.Context, teamID string, attemptedAmount int) error {
	ctx, span := c.span(ctx, "Coordinator.PlaceBid")
	defer span.End()
	_, err := c.submit(ctx, func(ctx context.Context) (any, error) {
		return nil, c.placeBidLocked(ctx, teamID, attemptedAmount)
	})
	return err
}

func (c *Coordinator) placeBidLocked(ctx context.Context, teamID string, attemptedAmount int) error {
	if c.auction.Status != store.StatusLive {
		return autxerr.StateConflict("auction_not_live")
	}
	if c.auction.CurrentPlayerID == nil {
		return autxerr.StateConflict("no_player_live")
	}
	playerID := *c.auction.CurrentPlayerID

	team, err := c.team(teamID)
	if err != nil {
		return err
	}
	if !team.IsActive || team.AuctionID != c.id {
		return c.rejectBid(ctx, playerID, teamID, attemptedAmount, "team_not_active")
	}
	if c.auction.CurrentBidderTeamID != nil && *c.auction.CurrentBidderTeamID == teamID {
		return c.rejectBid(ctx, playerID, teamID, attemptedAmount, "already_highest_bidder")
	}
	if len(team.Players) >= c.auction.MaxSquadSize {
		return c.rejectBid(ctx, playerID, teamID, attemptedAmount, "squad_full")
	}

	expected := c.auction.BasePrice
	if c.auction.CurrentBidAmount > 0 {
		expected = c.auction.CurrentBidAmount + store.Increment(c.auction.BidIncrementTiers, c.auction.CurrentBidAmount)
	}
	if attemptedAmount != expected {
		return c.rejectBid(ctx, playerID, teamID, attemptedAmount, "bid_not_next_increment")
	}

	minSquadRemainder := c.auction.MinSquadSize - len(team.Players) - 1
	if team.PurseRemaining-attemptedAmount < c.auction.BasePrice*minSquadRemainder {
		return c.rejectBid(ctx, playerID, teamID, attemptedAmount, "insufficient_purse_for_min_squad")
	}
	if attemptedAmount > team.PurseRemaining {
		return c.rejectBid(ctx, playerID, teamID, attemptedAmount, "insufficient_purse")
	}

	deadline := c.clock.Now().Add(c.auction.BidResetTimer)
	_, err = c.commit(ctx, func() (store.Mutation, error) {
		next := *c.auction
		next.CurrentBidAmount = attemptedAmount
		next.CurrentBidderTeamID = &teamID
		next.CurrentTimerPhase = store.PhaseRunning
		next.CurrentPhaseDeadline = deadline
		next.UpdatedAt = c.clock.Now().UTC()

		payload, _ := json.Marshal(event.BidAcceptedPayload{PlayerID: playerID, TeamID: teamID, Amount: attemptedAmount})
		return store.Mutation{
			Auction:         &next,
			ExpectedVersion: c.auction.Version,
			BidAudit: &store.BidAuditLog{
				AuctionID:       c.id,
				PlayerID:        playerID,
				TeamID:          teamID,
				AttemptedAmount: attemptedAmount,
				Type:            store.BidAccepted,
				Timestamp:       c.clock.Now().UTC(),
			},
			Event: c.newEventPayload(event.BidAccepted, payload, teamID, true, ""),
		}, nil
	})
	if err != nil {
		return err
	}
	c.armPhase(ctx, store.PhaseRunning, deadline)
	return nil
}

// rejectBid records the attempt and appends a private BID_REJECTED event
// (PerformedBy carries the bidding team so the broadcast fabric can route it
// to that team alone). The timer is left untouched (§4.4).
func (c *Coordinator) rejectBid(ctx context.Context, playerID, teamID string, attemptedAmount int, reason string) error {
	_, err := c.commit(ctx, func() (store.Mutation, error) {
		payload, _ := json.Marshal(event.BidRejectedPayload{PlayerID: playerID, TeamID: teamID, Amount: attemptedAmount, Reason: reason})
		return store.Mutation{
			BidAudit: &store.BidAuditLog{
				AuctionID:       c.id,
				PlayerID:        playerID,
				TeamID:          teamID,
				AttemptedAmount: attemptedAmount,
				Type:            store.BidRejected,
				Reason:          reason,
				Timestamp:       c.clock.Now().UTC(),
			},
			Event: c.newEventPayload(event.BidRejected, payload, teamID, false, "bid rejected: "+reason),
		}, nil
	})
	if err != nil {
		return err
	}
	return autxerr.Validation(reason)
}
