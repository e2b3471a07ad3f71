package auction

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"sort"
	"time"

	"github.com/abhinavece/auctionhub/internal/autxerr"
	"github.com/abhinavece/auctionhub/internal/event"
	"github.com/abhinavece/auctionhub/internal/store"
)

// ConfigPatch carries the subset of Auction's draft-only configuration a
// caller wants to change; nil fields are left untouched (§6 PATCH
// /auctions/:id/config).
type ConfigPatch struct {
	BasePrice          *int
	PurseValue         *int
	BidIncrementTiers  []store.BidIncrementTier
	TimerDuration      *time.Duration
	BidResetTimer      *time.Duration
	GoingOnceTimer     *time.Duration
	GoingTwiceTimer    *time.Duration
	MinSquadSize       *int
	MaxSquadSize       *int
	RetentionEnabled   *bool
	MaxRetentions      *int
	RetentionCost      *int
	TradeWindowHours   *int
	MaxTradesPerTeam   *int
	TradeSettlementOn  *bool
	MaxUndoActions     *int
	RandomizePoolOrder *bool
	RequeuePolicy      *string
}

// UpdateConfig applies patch to the draft auction's configuration. Rejected
// once the auction has left draft, since Configure snapshots config
// immutably into the live run (§3).
func (c *Coordinator) UpdateConfig(ctx context.Context, patch ConfigPatch, performedBy string) error {
	ctx, span := c.span(ctx, "Coordinator.UpdateConfig")
	defer span.End()
	_, err := c.submit(ctx, func(ctx context.Context) (any, error) {
		if c.auction.Status != store.StatusDraft {
			return nil, autxerr.StateConflict("auction_not_draft")
		}
		return c.commit(ctx, func() (store.Mutation, error) {
			next := *c.auction
			applyConfigPatch(&next, patch)
			next.UpdatedAt = c.clock.Now().UTC()
			return store.Mutation{
				Auction:         &next,
				ExpectedVersion: c.auction.Version,
				Event:           c.newEvent(event.AuctionConfigUpdated, event.AuctionLifecyclePayload{Status: string(next.Status)}, performedBy, true, "auction configuration updated"),
			}, nil
		})
	})
	return err
}

func applyConfigPatch(a *store.Auction, p ConfigPatch) {
	if p.BasePrice != nil {
		a.BasePrice = *p.BasePrice
	}
	if p.PurseValue != nil {
		a.PurseValue = *p.PurseValue
	}
	if p.BidIncrementTiers != nil {
		a.BidIncrementTiers = p.BidIncrementTiers
	}
	if p.TimerDuration != nil {
		a.TimerDuration = *p.TimerDuration
	}
	if p.BidResetTimer != nil {
		a.BidResetTimer = *p.BidResetTimer
	}
	if p.GoingOnceTimer != nil {
		a.GoingOnceTimer = *p.GoingOnceTimer
	}
	if p.GoingTwiceTimer != nil {
		a.GoingTwiceTimer = *p.GoingTwiceTimer
	}
	if p.MinSquadSize != nil {
		a.MinSquadSize = *p.MinSquadSize
	}
	if p.MaxSquadSize != nil {
		a.MaxSquadSize = *p.MaxSquadSize
	}
	if p.RetentionEnabled != nil {
		a.RetentionEnabled = *p.RetentionEnabled
	}
	if p.MaxRetentions != nil {
		a.MaxRetentions = *p.MaxRetentions
	}
	if p.RetentionCost != nil {
		a.RetentionCost = *p.RetentionCost
	}
	if p.TradeWindowHours != nil {
		a.TradeWindowHours = *p.TradeWindowHours
	}
	if p.MaxTradesPerTeam != nil {
		a.MaxTradesPerTeam = *p.MaxTradesPerTeam
	}
	if p.TradeSettlementOn != nil {
		a.TradeSettlementOn = *p.TradeSettlementOn
	}
	if p.MaxUndoActions != nil {
		a.MaxUndoActions = *p.MaxUndoActions
	}
	if p.RandomizePoolOrder != nil {
		a.RandomizePoolOrder = *p.RandomizePoolOrder
	}
	if p.RequeuePolicy != nil {
		a.RequeuePolicy = *p.RequeuePolicy
	}
}

// Configure locks in configuration and moves draft → configured (§4.5).
// Requires at least two active teams and at least as many pool players as
// teams.
func (c *Coordinator) Configure(ctx context.Context, performedBy string) error {
	ctx, span := c.span(ctx, "Coordinator.Configure")
	defer span.End()
	_, err := c.submit(ctx, func(ctx context.Context) (any, error) {
		if c.auction.Status != store.StatusDraft {
			return nil, autxerr.StateConflict("auction_not_draft")
		}
		activeTeams := 0
		for _, t := range c.teams {
			if t.IsActive {
				activeTeams++
			}
		}
		if activeTeams < 2 {
			return nil, autxerr.Validation("at_least_two_active_teams_required")
		}
		poolCount := 0
		for _, p := range c.players {
			if p.Status == store.PlayerPool {
				poolCount++
			}
		}
		if poolCount < activeTeams {
			return nil, autxerr.Validation("insufficient_pool_players")
		}
		return c.commit(ctx, func() (store.Mutation, error) {
			next := *c.auction
			next.Status = store.StatusConfigured
			next.UpdatedAt = c.clock.Now().UTC()
			return store.Mutation{
				Auction:         &next,
				ExpectedVersion: c.auction.Version,
				Event:           c.newEvent(event.AuctionConfigured, event.AuctionLifecyclePayload{Status: string(next.Status)}, performedBy, true, "auction configured"),
			}, nil
		})
	})
	return err
}

// GoLive snapshots the pool into remainingPlayerIds, makes the first player
// live, and arms the running phase (§4.5 start).
func (c *Coordinator) GoLive(ctx context.Context, performedBy string) error {
	ctx, span := c.span(ctx, "Coordinator.GoLive")
	defer span.End()
	_, err := c.submit(ctx, func(ctx context.Context) (any, error) {
		if c.auction.Status != store.StatusConfigured {
			return nil, autxerr.StateConflict("auction_not_configured")
		}
		order := c.poolOrder()
		if len(order) == 0 {
			return nil, autxerr.Validation("no_players_in_pool")
		}
		firstID := order[0]
		remaining := order[1:]

		seq, err := c.commit(ctx, func() (store.Mutation, error) {
			next := *c.auction
			next.Status = store.StatusLive
			next.CurrentPlayerID = &firstID
			next.CurrentBidAmount = 0
			next.CurrentBidderTeamID = nil
			next.CurrentTimerPhase = store.PhaseRunning
			next.CurrentPhaseDeadline = c.clock.Now().Add(next.TimerDuration)
			next.RemainingPlayerIDs = append([]string{}, remaining...)
			next.CurrentRound++
			next.UpdatedAt = c.clock.Now().UTC()

			p := *c.players[firstID]
			p.Status = store.PlayerLive

			payload, _ := json.Marshal(event.PlayerLivePayload{PlayerID: firstID, Round: next.CurrentRound})
			return store.Mutation{
				Auction:         &next,
				ExpectedVersion: c.auction.Version,
				Players:         []store.AuctionPlayer{p},
				Event:           c.newEventPayload(event.PlayerLive, payload, performedBy, true, "player is now live"),
			}, nil
		})
		if err != nil {
			return nil, err
		}
		c.armPhase(ctx, store.PhaseRunning, c.auction.CurrentPhaseDeadline)
		_ = seq
		return nil, nil
	})
	return err
}

// poolOrder returns the ordered list of pool player IDs per the auction's
// configured pool ordering policy (playerNumber ascending, or shuffled).
func (c *Coordinator) poolOrder() []string {
	var pool []*store.AuctionPlayer
	for _, p := range c.players {
		if p.Status == store.PlayerPool {
			pool = append(pool, p)
		}
	}
	sort.Slice(pool, func(i, j int) bool { return pool[i].PlayerNumber < pool[j].PlayerNumber })
	ids := make([]string, len(pool))
	for i, p := range pool {
		ids[i] = p.ID
	}
	if c.auction.RandomizePoolOrder {
		rand.Shuffle(len(ids), func(i, j int) { ids[i], ids[j] = ids[j], ids[i] })
	}
	return ids
}

// onPhaseExpiry advances the timer phase, or — if going_twice has just
// expired — declares the terminal outcome for the current player and moves
// to the next one (§4.3, §4.5).
func (c *Coordinator) onPhaseExpiry(ctx context.Context, gen int, expiredPhase store.TimerPhase) error {
	if !c.timer.validGeneration(gen) {
		return nil // stale fire: a bid or admin action already superseded this phase.
	}
	if c.auction.Status != store.StatusLive {
		return nil
	}

	switch expiredPhase {
	case store.PhaseRunning:
		return c.advancePhase(ctx, store.PhaseGoingOnce, c.auction.GoingOnceTimer)
	case store.PhaseGoingOnce:
		return c.advancePhase(ctx, store.PhaseGoingTwice, c.auction.GoingTwiceTimer)
	case store.PhaseGoingTwice:
		if err := c.declareTerminalOutcome(ctx, "admin"); err != nil {
			return err
		}
		return c.advanceToNextPlayer(ctx, "admin")
	}
	return nil
}

func (c *Coordinator) advancePhase(ctx context.Context, phase store.TimerPhase, d time.Duration) error {
	deadline := c.clock.Now().Add(d)
	fromPhase := c.auction.CurrentTimerPhase
	_, err := c.commit(ctx, func() (store.Mutation, error) {
		next := *c.auction
		next.CurrentTimerPhase = phase
		next.CurrentPhaseDeadline = deadline
		next.UpdatedAt = c.clock.Now().UTC()
		payload, _ := json.Marshal(event.PhaseAdvancedPayload{FromPhase: string(fromPhase), ToPhase: string(phase), Round: next.CurrentRound})
		return store.Mutation{
			Auction:         &next,
			ExpectedVersion: c.auction.Version,
			Event:           c.newEventPayload(event.PhaseAdvanced, payload, "timer", true, ""),
		}, nil
	})
	if err != nil {
		return err
	}
	c.armPhase(ctx, phase, deadline)
	return nil
}

// declareTerminalOutcome sells the current player to the highest bidder, or
// marks it unsold if there was no bid (§4.5).
func (c *Coordinator) declareTerminalOutcome(ctx context.Context, performedBy string) error {
	if c.auction.CurrentPlayerID == nil {
		return nil
	}
	playerID := *c.auction.CurrentPlayerID
	player, err := c.player(playerID)
	if err != nil {
		return err
	}

	if c.auction.CurrentBidderTeamID == nil {
		_, err := c.commit(ctx, func() (store.Mutation, error) {
			p := *player
			p.Status = store.PlayerUnsold

			fwd, _ := json.Marshal(event.PlayerUnsoldPayload{PlayerID: playerID})
			rev, _ := json.Marshal(event.PlayerUnsoldPayload{PlayerID: playerID})
			return store.Mutation{
				Players: []store.AuctionPlayer{p},
				Event:   c.newEventPayloadReversal(event.PlayerUnsold, fwd, rev, performedBy, true, fmt.Sprintf("%s went unsold", player.Name)),
			}, nil
		})
		return err
	}

	teamID := *c.auction.CurrentBidderTeamID
	team, err := c.team(teamID)
	if err != nil {
		return err
	}
	amount := c.auction.CurrentBidAmount

	_, err = c.commit(ctx, func() (store.Mutation, error) {
		p := *player
		p.Status = store.PlayerSold
		p.SoldTo = &teamID
		p.SoldAmount = amount
		p.SoldInRound = c.auction.CurrentRound

		t := *team
		t.PurseRemaining -= amount
		t.Players = append(append([]store.OwnedLot{}, t.Players...), store.OwnedLot{
			PlayerID: playerID, BoughtAt: amount, Round: c.auction.CurrentRound, Timestamp: c.clock.Now().UTC(),
		})

		fwd, _ := json.Marshal(event.PlayerSoldPayload{
			PlayerID: playerID, TeamID: teamID, Amount: amount, Round: c.auction.CurrentRound,
		})
		rev, _ := json.Marshal(event.PlayerSoldPayload{
			PlayerID: playerID, TeamID: teamID, Amount: amount, Round: c.auction.CurrentRound,
			PreviousTeamPurse: team.PurseRemaining, PreviousPlayerState: string(player.Status),
		})
		return store.Mutation{
			Teams:   []store.AuctionTeam{t},
			Players: []store.AuctionPlayer{p},
			Event:   c.newEventPayloadReversal(event.PlayerSold, fwd, rev, performedBy, true, fmt.Sprintf("%s sold to %s for %d", player.Name, team.Name, amount)),
		}, nil
	})
	return err
}

// advanceToNextPlayer picks the next non-disqualified pool candidate, or
// completes the auction if the queue is exhausted (§4.5 next-player).
func (c *Coordinator) advanceToNextPlayer(ctx context.Context, performedBy string) error {
	remaining := c.auction.RemainingPlayerIDs
	var nextID string
	idx := -1
	for i, id := range remaining {
		if p, ok := c.players[id]; ok && !p.IsDisqualified && p.Status == store.PlayerPool {
			nextID, idx = id, i
			break
		}
	}
	if idx == -1 {
		c.timer.disarm()
		_, err := c.commit(ctx, func() (store.Mutation, error) {
			next := *c.auction
			next.Status = store.StatusCompleted
			next.CurrentPlayerID = nil
			next.CurrentBidderTeamID = nil
			next.CurrentBidAmount = 0
			next.RemainingPlayerIDs = nil
			next.UpdatedAt = c.clock.Now().UTC()
			return store.Mutation{
				Auction:         &next,
				ExpectedVersion: c.auction.Version,
				Event:           c.newEvent(event.AuctionCompleted, event.AuctionLifecyclePayload{Status: string(next.Status)}, performedBy, true, "auction completed"),
			}, nil
		})
		return err
	}

	deadline := c.clock.Now().Add(c.auction.TimerDuration)
	_, err := c.commit(ctx, func() (store.Mutation, error) {
		next := *c.auction
		next.CurrentPlayerID = &nextID
		next.CurrentBidAmount = 0
		next.CurrentBidderTeamID = nil
		next.CurrentTimerPhase = store.PhaseRunning
		next.CurrentPhaseDeadline = deadline
		next.RemainingPlayerIDs = append(append([]string{}, remaining[:idx]...), remaining[idx+1:]...)
		next.CurrentRound++
		next.UpdatedAt = c.clock.Now().UTC()

		p := *c.players[nextID]
		p.Status = store.PlayerLive

		payload, _ := json.Marshal(event.PlayerLivePayload{PlayerID: nextID, Round: next.CurrentRound})
		return store.Mutation{
			Auction:         &next,
			ExpectedVersion: c.auction.Version,
			Players:         []store.AuctionPlayer{p},
			Event:           c.newEventPayload(event.PlayerLive, payload, performedBy, true, "next player is live"),
		}, nil
	})
	if err != nil {
		return err
	}
	c.armPhase(ctx, store.PhaseRunning, deadline)
	return nil
}

// Pause disarms the timer and preserves the current bid (§4.5 pause/resume).
func (c *Coordinator) Pause(ctx context.Context, performedBy string) error {
	ctx, span := c.span(ctx, "Coordinator.Pause")
	defer span.End()
	_, err := c.submit(ctx, func(ctx context.Context) (any, error) {
		if c.auction.Status != store.StatusLive {
			return nil, autxerr.StateConflict("auction_not_live")
		}
		c.timer.disarm()
		return c.commit(ctx, func() (store.Mutation, error) {
			next := *c.auction
			next.Status = store.StatusPaused
			next.UpdatedAt = c.clock.Now().UTC()
			return store.Mutation{
				Auction:         &next,
				ExpectedVersion: c.auction.Version,
				Event:           c.newEvent(event.AuctionPaused, event.AuctionLifecyclePayload{Status: string(next.Status)}, performedBy, true, "auction paused"),
			}, nil
		})
	})
	return err
}

// Resume begins a fresh running phase for the current player (§4.5).
func (c *Coordinator) Resume(ctx context.Context, performedBy string) error {
	ctx, span := c.span(ctx, "Coordinator.Resume")
	defer span.End()
	_, err := c.submit(ctx, func(ctx context.Context) (any, error) {
		if c.auction.Status != store.StatusPaused {
			return nil, autxerr.StateConflict("auction_not_paused")
		}
		deadline := c.clock.Now().Add(c.auction.TimerDuration)
		_, err := c.commit(ctx, func() (store.Mutation, error) {
			next := *c.auction
			next.Status = store.StatusLive
			next.CurrentTimerPhase = store.PhaseRunning
			next.CurrentPhaseDeadline = deadline
			next.UpdatedAt = c.clock.Now().UTC()
			return store.Mutation{
				Auction:         &next,
				ExpectedVersion: c.auction.Version,
				Event:           c.newEvent(event.AuctionResumed, event.AuctionLifecyclePayload{Status: string(next.Status)}, performedBy, true, "auction resumed"),
			}, nil
		})
		if err != nil {
			return nil, err
		}
		c.armPhase(ctx, store.PhaseRunning, deadline)
		return nil, nil
	})
	return err
}

// Complete forcibly ends the auction from live or paused (§4.5 complete).
func (c *Coordinator) Complete(ctx context.Context, performedBy string) error {
	ctx, span := c.span(ctx, "Coordinator.Complete")
	defer span.End()
	_, err := c.submit(ctx, func(ctx context.Context) (any, error) {
		if c.auction.Status != store.StatusLive && c.auction.Status != store.StatusPaused {
			return nil, autxerr.StateConflict("auction_not_live_or_paused")
		}
		c.timer.disarm()
		return c.commit(ctx, func() (store.Mutation, error) {
			next := *c.auction
			next.Status = store.StatusCompleted
			next.CurrentPlayerID = nil
			next.CurrentBidderTeamID = nil
			next.CurrentBidAmount = 0
			next.UpdatedAt = c.clock.Now().UTC()
			return store.Mutation{
				Auction:         &next,
				ExpectedVersion: c.auction.Version,
				Event:           c.newEvent(event.AuctionCompleted, event.AuctionLifecyclePayload{Status: string(next.Status)}, performedBy, true, "auction completed by admin"),
			}, nil
		})
	})
	return err
}

// OpenTradeWindow moves completed → trade_window and sets the window's
// expiry (§4.5).
func (c *Coordinator) OpenTradeWindow(ctx context.Context, performedBy string) error {
	ctx, span := c.span(ctx, "Coordinator.OpenTradeWindow")
	defer span.End()
	_, err := c.submit(ctx, func(ctx context.Context) (any, error) {
		if c.auction.Status != store.StatusCompleted {
			return nil, autxerr.StateConflict("auction_not_completed")
		}
		return c.commit(ctx, func() (store.Mutation, error) {
			next := *c.auction
			next.Status = store.StatusTradeWindow
			ends := c.clock.Now().Add(time.Duration(next.TradeWindowHours) * time.Hour)
			next.TradeWindowEndsAt = &ends
			next.UpdatedAt = c.clock.Now().UTC()
			return store.Mutation{
				Auction:         &next,
				ExpectedVersion: c.auction.Version,
				Event:           c.newEvent(event.TradeWindowOpened, event.AuctionLifecyclePayload{Status: string(next.Status)}, performedBy, true, "trade window opened"),
			}, nil
		})
	})
	return err
}

// Finalize expires every outstanding trade and freezes the auction (§4.5,
// S5).
func (c *Coordinator) Finalize(ctx context.Context, performedBy string) error {
	ctx, span := c.span(ctx, "Coordinator.Finalize")
	defer span.End()
	_, err := c.submit(ctx, func(ctx context.Context) (any, error) {
		if c.auction.Status != store.StatusCompleted && c.auction.Status != store.StatusTradeWindow {
			return nil, autxerr.StateConflict("auction_not_completed_or_in_trade_window")
		}
		var pending []store.AuctionTrade
		for _, t := range c.trades {
			if t.Status == store.TradePendingCounterparty || t.Status == store.TradeBothAgreed {
				e := *t
				e.Status = store.TradeExpired
				e.RejectReason = "auction finalized"
				e.UpdatedAt = c.clock.Now().UTC()
				pending = append(pending, e)
			}
		}
		return c.commit(ctx, func() (store.Mutation, error) {
			next := *c.auction
			next.Status = store.StatusFinalized
			now := c.clock.Now().UTC()
			next.FinalizedAt = &now
			next.UpdatedAt = now
			return store.Mutation{
				Auction:         &next,
				ExpectedVersion: c.auction.Version,
				Trades:          pending,
				Event:           c.newEvent(event.AuctionFinalized, event.AuctionLifecyclePayload{Status: string(next.Status)}, performedBy, true, "auction finalized"),
			}, nil
		})
	})
	return err
}

// Undo applies the reversal of the latest reversible event through the
// Event Journal and State Store (§4.2).
func (c *Coordinator) Undo(ctx context.Context, performedBy string) error {
	ctx, span := c.span(ctx, "Coordinator.Undo")
	defer span.End()
	_, err := c.submit(ctx, func(ctx context.Context) (any, error) {
		return nil, c.applyUndo(ctx, performedBy)
	})
	return err
}

func (c *Coordinator) applyUndo(ctx context.Context, performedBy string) error {
	tail, err := c.events.Tail(ctx, c.id, c.auction.MaxUndoActions+1)
	if err != nil {
		return fmt.Errorf("loading event tail: %w", err)
	}
	var target *event.Event
	for i := len(tail) - 1; i >= 0; i-- {
		if event.IsReversible(tail[i].Type) {
			target = &tail[i]
			break
		}
	}
	if target == nil {
		return autxerr.ResourceExhausted("undo_stack_empty")
	}

	switch target.Type {
	case event.PlayerSold:
		var p event.PlayerSoldPayload
		if err := json.Unmarshal(target.ReversalPayload, &p); err != nil {
			return fmt.Errorf("decoding reversal payload: %w", err)
		}
		player, err := c.player(p.PlayerID)
		if err != nil {
			return err
		}
		team, err := c.team(p.TeamID)
		if err != nil {
			return err
		}
		_, err = c.commit(ctx, func() (store.Mutation, error) {
			pl := *player
			pl.Status = store.PlayerStatus(p.PreviousPlayerState)
			pl.SoldTo = nil
			pl.SoldAmount = 0

			t := *team
			t.PurseRemaining = p.PreviousTeamPurse
			lots := make([]store.OwnedLot, 0, len(team.Players))
			for _, lot := range team.Players {
				if lot.PlayerID != p.PlayerID {
					lots = append(lots, lot)
				}
			}
			t.Players = lots

			return store.Mutation{
				Teams:   []store.AuctionTeam{t},
				Players: []store.AuctionPlayer{pl},
				Event:   c.newEvent(event.UndoApplied, event.UndoAppliedPayload{ReversedSequenceNumber: target.SequenceNumber, ReversedType: target.Type}, performedBy, true, "sale undone"),
			}, nil
		})
		return err

	case event.PlayerUnsold:
		var p event.PlayerUnsoldPayload
		if err := json.Unmarshal(target.ReversalPayload, &p); err != nil {
			return fmt.Errorf("decoding reversal payload: %w", err)
		}
		player, err := c.player(p.PlayerID)
		if err != nil {
			return err
		}
		_, err = c.commit(ctx, func() (store.Mutation, error) {
			pl := *player
			pl.Status = store.PlayerPool
			return store.Mutation{
				Players: []store.AuctionPlayer{pl},
				Event:   c.newEvent(event.UndoApplied, event.UndoAppliedPayload{ReversedSequenceNumber: target.SequenceNumber, ReversedType: target.Type}, performedBy, true, "unsold outcome undone"),
			}, nil
		})
		return err

	case event.PlayerDisqualified:
		var p event.PlayerDisqualifiedPayload
		if err := json.Unmarshal(target.ReversalPayload, &p); err != nil {
			return fmt.Errorf("decoding reversal payload: %w", err)
		}
		player, err := c.player(p.PlayerID)
		if err != nil {
			return err
		}
		_, err = c.commit(ctx, func() (store.Mutation, error) {
			pl := *player
			pl.IsDisqualified = false

			var mutTeams []store.AuctionTeam
			if p.WasSold {
				pl.Status = store.PlayerSold
				pl.SoldTo = &p.PreviousTeamID
				pl.SoldAmount = p.PreviousAmount
				if team, err := c.team(p.PreviousTeamID); err == nil {
					t := *team
					t.PurseRemaining = p.PreviousTeamPurse
					t.Players = append(append([]store.OwnedLot{}, t.Players...), store.OwnedLot{
						PlayerID: p.PlayerID, BoughtAt: p.PreviousAmount, Timestamp: c.clock.Now().UTC(),
					})
					mutTeams = []store.AuctionTeam{t}
				}
			} else {
				pl.Status = store.PlayerPool
				pl.SoldTo = nil
				pl.SoldAmount = 0
			}
			return store.Mutation{
				Teams:   mutTeams,
				Players: []store.AuctionPlayer{pl},
				Event:   c.newEvent(event.UndoApplied, event.UndoAppliedPayload{ReversedSequenceNumber: target.SequenceNumber, ReversedType: target.Type}, performedBy, true, "disqualification undone"),
			}, nil
		})
		return err

	case event.TradeExecuted:
		return c.undoTradeExecution(ctx, target, performedBy)

	case event.AdminPurseAdjusted:
		var p event.AdminPurseAdjustedPayload
		if err := json.Unmarshal(target.ReversalPayload, &p); err != nil {
			return fmt.Errorf("decoding reversal payload: %w", err)
		}
		team, err := c.team(p.TeamID)
		if err != nil {
			return err
		}
		_, err = c.commit(ctx, func() (store.Mutation, error) {
			t := *team
			t.PurseRemaining += p.Delta
			return store.Mutation{
				Teams: []store.AuctionTeam{t},
				Event: c.newEvent(event.UndoApplied, event.UndoAppliedPayload{ReversedSequenceNumber: target.SequenceNumber, ReversedType: target.Type}, performedBy, true, "purse adjustment undone"),
			}, nil
		})
		return err
	}
	return autxerr.InvariantViolation("unreversible_event_reached_undo")
}

// ReturnToPool is the admin inverse of a sale: refunds the purse, clears
// ownership, and re-queues the player per the configured requeue policy
// (§4.5 return-to-pool).
func (c *Coordinator) ReturnToPool(ctx context.Context, playerID, performedBy string) error {
	ctx, span := c.span(ctx, "Coordinator.ReturnToPool")
	defer span.End()
	_, err := c.submit(ctx, func(ctx context.Context) (any, error) {
		player, err := c.player(playerID)
		if err != nil {
			return nil, err
		}
		if player.Status != store.PlayerSold {
			return nil, autxerr.StateConflict("player_not_sold")
		}
		team, err := c.team(*player.SoldTo)
		if err != nil {
			return nil, err
		}
		prevPurse := team.PurseRemaining
		prevStatus := player.Status
		amount := player.SoldAmount

		return c.commit(ctx, func() (store.Mutation, error) {
			pl := *player
			pl.Status = store.PlayerPool
			pl.SoldTo = nil
			pl.SoldAmount = 0
			pl.SoldInRound = 0

			t := *team
			t.PurseRemaining += amount
			lots := make([]store.OwnedLot, 0, len(team.Players))
			for _, lot := range team.Players {
				if lot.PlayerID != playerID {
					lots = append(lots, lot)
				}
			}
			t.Players = lots

			next := *c.auction
			if c.auction.RequeuePolicy == "tail" {
				next.RemainingPlayerIDs = append(append([]string{}, c.auction.RemainingPlayerIDs...), playerID)
			} else {
				next.RemainingPlayerIDs = append([]string{playerID}, c.auction.RemainingPlayerIDs...)
			}
			next.UpdatedAt = c.clock.Now().UTC()

			fwd, _ := json.Marshal(event.PlayerSoldPayload{PlayerID: playerID, TeamID: team.ID, Amount: amount})
			rev, _ := json.Marshal(event.PlayerSoldPayload{PlayerID: playerID, TeamID: team.ID, Amount: amount, PreviousTeamPurse: prevPurse, PreviousPlayerState: string(prevStatus)})
			return store.Mutation{
				Auction:         &next,
				ExpectedVersion: c.auction.Version,
				Teams:           []store.AuctionTeam{t},
				Players:         []store.AuctionPlayer{pl},
				Event:           c.newEventPayloadReversal(event.PlayerReturnedToPool, fwd, rev, performedBy, true, fmt.Sprintf("%s returned to pool", player.Name)),
			}, nil
		})
	})
	return err
}

// Disqualify removes a player from competition, refunding the purse and
// squad slot if they had been sold (§4.5 disqualify).
func (c *Coordinator) Disqualify(ctx context.Context, playerID, performedBy string) error {
	ctx, span := c.span(ctx, "Coordinator.Disqualify")
	defer span.End()
	_, err := c.submit(ctx, func(ctx context.Context) (any, error) {
		player, err := c.player(playerID)
		if err != nil {
			return nil, err
		}
		if player.IsDisqualified {
			return nil, autxerr.StateConflict("player_already_disqualified")
		}

		wasSold := player.Status == store.PlayerSold && player.SoldTo != nil
		var teams []store.AuctionTeam
		var prevTeamID string
		var prevAmount, prevTeamPurse int
		if wasSold {
			team, err := c.team(*player.SoldTo)
			if err != nil {
				return nil, err
			}
			prevTeamID = team.ID
			prevAmount = player.SoldAmount
			prevTeamPurse = team.PurseRemaining

			t := *team
			t.PurseRemaining += player.SoldAmount
			lots := make([]store.OwnedLot, 0, len(team.Players))
			for _, lot := range team.Players {
				if lot.PlayerID != playerID {
					lots = append(lots, lot)
				}
			}
			t.Players = lots
			teams = []store.AuctionTeam{t}
		}

		return c.commit(ctx, func() (store.Mutation, error) {
			pl := *player
			pl.IsDisqualified = true
			pl.Status = store.PlayerDisqualified
			pl.SoldTo = nil
			pl.SoldAmount = 0

			fwd, _ := json.Marshal(event.PlayerDisqualifiedPayload{PlayerID: playerID, WasSold: wasSold})
			rev, _ := json.Marshal(event.PlayerDisqualifiedPayload{
				PlayerID: playerID, WasSold: wasSold,
				PreviousTeamID: prevTeamID, PreviousAmount: prevAmount, PreviousTeamPurse: prevTeamPurse,
			})
			return store.Mutation{
				Teams:   teams,
				Players: []store.AuctionPlayer{pl},
				Event:   c.newEventPayloadReversal(event.PlayerDisqualified, fwd, rev, performedBy, true, fmt.Sprintf("%s disqualified", player.Name)),
			}, nil
		})
	})
	return err
}

// AdjustPurse applies an admin-directed purse delta to a team, positive or
// negative.
func (c *Coordinator) AdjustPurse(ctx context.Context, teamID string, delta int, reason, performedBy string) error {
	ctx, span := c.span(ctx, "Coordinator.AdjustPurse")
	defer span.End()
	_, err := c.submit(ctx, func(ctx context.Context) (any, error) {
		team, err := c.team(teamID)
		if err != nil {
			return nil, err
		}
		return c.commit(ctx, func() (store.Mutation, error) {
			t := *team
			t.PurseRemaining += delta

			fwd, _ := json.Marshal(event.AdminPurseAdjustedPayload{TeamID: teamID, Delta: delta, Reason: reason})
			rev, _ := json.Marshal(event.AdminPurseAdjustedPayload{TeamID: teamID, Delta: -delta, Reason: reason})
			return store.Mutation{
				Teams: []store.AuctionTeam{t},
				Event: c.newEventPayloadReversal(event.AdminPurseAdjusted, fwd, rev, performedBy, false, ""),
			}, nil
		})
	})
	return err
}

func (c *Coordinator) newEvent(t event.Type, payload any, performedBy string, isPublic bool, publicMessage string) event.Event {
	raw, _ := json.Marshal(payload)
	return c.newEventPayload(t, raw, performedBy, isPublic, publicMessage)
}

func (c *Coordinator) newEventPayload(t event.Type, payload []byte, performedBy string, isPublic bool, publicMessage string) event.Event {
	if payload == nil {
		payload = []byte("{}")
	}
	return event.Event{
		AuctionID:     c.id,
		Type:          t,
		Payload:       payload,
		PerformedBy:   performedBy,
		IsPublic:      isPublic,
		PublicMessage: publicMessage,
		CreatedAt:     c.clock.Now().UTC(),
	}
}

func (c *Coordinator) newEventPayloadReversal(t event.Type, payload, reversal []byte, performedBy string, isPublic bool, publicMessage string) event.Event {
	e := c.newEventPayload(t, payload, performedBy, isPublic, publicMessage)
	e.ReversalPayload = reversal
	return e
}
