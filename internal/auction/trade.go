package auction

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/abhinavece/auctionhub/internal/autxerr"
	"github.com/abhinavece/auctionhub/internal/event"
	"github.com/abhinavece/auctionhub/internal/store"
)

// ProposeTrade validates ownership and locking, computes the settlement, and
// persists a pending_counterparty trade with the initiator's named players
// locked (§4.6).
func (c *Coordinator) ProposeTrade(ctx context.Context, initiatorTeamID, counterpartyTeamID string, initiatorPlayerIDs, counterpartyPlayerIDs []string, message string) (string, error) {
	ctx, span := c.span(ctx, "Coordinator.ProposeTrade")
	defer span.End()
	val, err := c.submit(ctx, func(ctx context.Context) (any, error) {
		if c.auction.Status != store.StatusTradeWindow {
			return nil, autxerr.StateConflict("auction_not_in_trade_window")
		}
		if c.auction.TradeWindowEndsAt != nil && c.clock.Now().After(*c.auction.TradeWindowEndsAt) {
			return nil, autxerr.StateConflict("trade_window_expired")
		}
		initiator, err := c.team(initiatorTeamID)
		if err != nil {
			return nil, err
		}
		counterparty, err := c.team(counterpartyTeamID)
		if err != nil {
			return nil, err
		}
		if c.executedTradeCount(initiatorTeamID) >= c.auction.MaxTradesPerTeam || c.executedTradeCount(counterpartyTeamID) >= c.auction.MaxTradesPerTeam {
			return nil, autxerr.ResourceExhausted("max_trades_per_team_reached")
		}

		initiatorRefs, err := c.ownedRefs(initiator, initiatorPlayerIDs)
		if err != nil {
			return nil, err
		}
		for _, id := range initiatorPlayerIDs {
			if lockedBy, ok := c.locked[id]; ok {
				return nil, autxerr.StateConflict(fmt.Sprintf("player_%s_already_locked_in_trade_%s", id, lockedBy))
			}
		}
		counterpartyRefs, err := c.ownedRefs(counterparty, counterpartyPlayerIDs)
		if err != nil {
			return nil, err
		}

		initiatorValue, counterpartyValue := sumSold(initiatorRefs), sumSold(counterpartyRefs)
		amount, direction := settlement(initiatorValue, counterpartyValue)

		trade := &store.AuctionTrade{
			AuctionID:              c.id,
			InitiatorTeamID:        initiatorTeamID,
			CounterpartyTeamID:     counterpartyTeamID,
			InitiatorPlayers:       initiatorRefs,
			CounterpartyPlayers:    counterpartyRefs,
			Status:                 store.TradePendingCounterparty,
			InitiatorTotalValue:    initiatorValue,
			CounterpartyTotalValue: counterpartyValue,
			SettlementAmount:       amount,
			SettlementDirection:    direction,
			PurseSettlementEnabled: c.auction.TradeSettlementOn,
			Message:                message,
		}
		// CreateTrade inserts the row directly (Mutation.Trades only ever
		// UPDATEs an existing trade); the ActionEvent append still goes
		// through commit so it lands in the same total order as every other
		// mutation this coordinator makes.
		if err := c.store.CreateTrade(ctx, trade); err != nil {
			return nil, err
		}
		c.trades[trade.ID] = trade

		payload, _ := json.Marshal(event.TradeStatusPayload{TradeID: trade.ID, InitiatorTeamID: initiatorTeamID, CounterpartyTeamID: counterpartyTeamID})
		if _, err := c.commit(ctx, func() (store.Mutation, error) {
			return store.Mutation{Event: c.newEventPayload(event.TradeProposed, payload, initiatorTeamID, false, "")}, nil
		}); err != nil {
			return nil, err
		}
		for _, id := range initiatorPlayerIDs {
			c.locked[id] = trade.ID
		}
		return trade.ID, nil
	})
	if err != nil {
		return "", err
	}
	return val.(string), nil
}

// AcceptTrade locks the counterparty's named players, marks the trade
// both_agreed, and auto-cancels every other pending trade proposing any of
// those players as counterparty candidates (§4.6).
func (c *Coordinator) AcceptTrade(ctx context.Context, tradeID string) error {
	ctx, span := c.span(ctx, "Coordinator.AcceptTrade")
	defer span.End()
	_, err := c.submit(ctx, func(ctx context.Context) (any, error) {
		trade, err := c.trade(tradeID)
		if err != nil {
			return nil, err
		}
		if trade.Status != store.TradePendingCounterparty {
			return nil, autxerr.StateConflict("trade_not_pending")
		}
		counterparty, err := c.team(trade.CounterpartyTeamID)
		if err != nil {
			return nil, err
		}
		ids := make([]string, len(trade.CounterpartyPlayers))
		for i, p := range trade.CounterpartyPlayers {
			ids[i] = p.PlayerID
		}
		if _, err := c.ownedRefs(counterparty, ids); err != nil {
			return nil, err
		}
		for _, id := range ids {
			if lockedBy, ok := c.locked[id]; ok && lockedBy != tradeID {
				return nil, autxerr.StateConflict(fmt.Sprintf("player_%s_already_locked_in_trade_%s", id, lockedBy))
			}
		}

		var cancelled []store.AuctionTrade
		for _, other := range c.trades {
			if other.ID == tradeID || other.Status != store.TradePendingCounterparty {
				continue
			}
			if name, ok := firstReferencedPlayer(other.CounterpartyPlayers, ids); ok {
				o := *other
				o.Status = store.TradeCancelled
				o.RejectReason = fmt.Sprintf("Player %s committed to another trade", name)
				o.UpdatedAt = c.clock.Now().UTC()
				cancelled = append(cancelled, o)
			}
		}

		t := *trade
		t.Status = store.TradeBothAgreed
		t.UpdatedAt = c.clock.Now().UTC()

		payload, _ := json.Marshal(event.TradeStatusPayload{TradeID: tradeID, InitiatorTeamID: trade.InitiatorTeamID, CounterpartyTeamID: trade.CounterpartyTeamID})
		_, err = c.commit(ctx, func() (store.Mutation, error) {
			return store.Mutation{
				Trades: []store.AuctionTrade{t},
				Event:  c.newEventPayload(event.TradeAccepted, payload, trade.CounterpartyTeamID, false, ""),
			}, nil
		})
		if err != nil {
			return nil, err
		}
		for _, id := range ids {
			c.locked[id] = tradeID
		}

		// Each auto-cancelled trade gets its own ActionEvent so the initiator
		// it displaces is individually notified (§4.6), rather than folding
		// every cancellation into the acceptance's single event.
		for i := range cancelled {
			o := cancelled[i]
			cancelPayload, _ := json.Marshal(event.TradeStatusPayload{
				TradeID: o.ID, InitiatorTeamID: o.InitiatorTeamID, CounterpartyTeamID: o.CounterpartyTeamID, Reason: o.RejectReason,
			})
			if _, err := c.commit(ctx, func() (store.Mutation, error) {
				return store.Mutation{
					Trades: []store.AuctionTrade{o},
					Event:  c.newEventPayload(event.TradeCancelled, cancelPayload, o.InitiatorTeamID, false, o.RejectReason),
				}, nil
			}); err != nil {
				return nil, err
			}
			c.unlockTrade(&o)
		}
		return nil, nil
	})
	return err
}

// RejectTrade / WithdrawTrade end a pending or agreed trade without
// executing it, unlocking any players it had claimed.
func (c *Coordinator) RejectTrade(ctx context.Context, tradeID, reason string) error {
	return c.terminateTrade(ctx, tradeID, store.TradeRejected, reason)
}

func (c *Coordinator) WithdrawTrade(ctx context.Context, tradeID string) error {
	return c.terminateTrade(ctx, tradeID, store.TradeWithdrawn, "withdrawn by initiator")
}

func (c *Coordinator) terminateTrade(ctx context.Context, tradeID string, status store.TradeStatus, reason string) error {
	ctx, span := c.span(ctx, "Coordinator.terminateTrade")
	defer span.End()
	_, err := c.submit(ctx, func(ctx context.Context) (any, error) {
		trade, err := c.trade(tradeID)
		if err != nil {
			return nil, err
		}
		if trade.Status != store.TradePendingCounterparty && trade.Status != store.TradeBothAgreed {
			return nil, autxerr.StateConflict("trade_not_open")
		}
		t := *trade
		t.Status = status
		t.RejectReason = reason
		t.UpdatedAt = c.clock.Now().UTC()
		eventType := event.TradeRejected
		if status == store.TradeWithdrawn {
			eventType = event.TradeWithdrawn
		}
		payload, _ := json.Marshal(event.TradeStatusPayload{TradeID: tradeID, InitiatorTeamID: trade.InitiatorTeamID, CounterpartyTeamID: trade.CounterpartyTeamID, Reason: reason})
		_, err = c.commit(ctx, func() (store.Mutation, error) {
			return store.Mutation{
				Trades: []store.AuctionTrade{t},
				Event:  c.newEventPayload(eventType, payload, trade.InitiatorTeamID, false, reason),
			}, nil
		})
		if err != nil {
			return nil, err
		}
		c.unlockTrade(trade)
		return nil, nil
	})
	return err
}

func (c *Coordinator) unlockTrade(trade *store.AuctionTrade) {
	for playerID, tradeID := range c.locked {
		if tradeID == trade.ID {
			delete(c.locked, playerID)
		}
	}
}

// ExecuteTrade re-validates ownership, atomically swaps squad membership,
// applies purse settlement when enabled and affordable, and appends
// TRADE_EXECUTED with a reversal payload (§4.6).
func (c *Coordinator) ExecuteTrade(ctx context.Context, tradeID, performedBy string) error {
	ctx, span := c.span(ctx, "Coordinator.ExecuteTrade")
	defer span.End()
	_, err := c.submit(ctx, func(ctx context.Context) (any, error) {
		trade, err := c.trade(tradeID)
		if err != nil {
			return nil, err
		}
		if trade.Status != store.TradeBothAgreed {
			return nil, autxerr.StateConflict("trade_not_agreed")
		}
		return nil, c.executeTradeLocked(ctx, trade, performedBy)
	})
	return err
}

// AdminInitiateTrade bypasses counterparty acceptance, constructing and
// executing a trade in one step. Permitted only while the auction is
// paused, completed, or in its trade window (§4.6).
func (c *Coordinator) AdminInitiateTrade(ctx context.Context, initiatorTeamID, counterpartyTeamID string, initiatorPlayerIDs, counterpartyPlayerIDs []string, performedBy string) error {
	ctx, span := c.span(ctx, "Coordinator.AdminInitiateTrade")
	defer span.End()
	_, err := c.submit(ctx, func(ctx context.Context) (any, error) {
		switch c.auction.Status {
		case store.StatusTradeWindow, store.StatusCompleted, store.StatusPaused:
		default:
			return nil, autxerr.StateConflict("auction_not_in_admin_tradeable_state")
		}
		initiator, err := c.team(initiatorTeamID)
		if err != nil {
			return nil, err
		}
		counterparty, err := c.team(counterpartyTeamID)
		if err != nil {
			return nil, err
		}
		initiatorRefs, err := c.ownedRefs(initiator, initiatorPlayerIDs)
		if err != nil {
			return nil, err
		}
		counterpartyRefs, err := c.ownedRefs(counterparty, counterpartyPlayerIDs)
		if err != nil {
			return nil, err
		}
		initiatorValue, counterpartyValue := sumSold(initiatorRefs), sumSold(counterpartyRefs)
		amount, direction := settlement(initiatorValue, counterpartyValue)

		trade := &store.AuctionTrade{
			ID:                     "",
			AuctionID:              c.id,
			InitiatorTeamID:        initiatorTeamID,
			CounterpartyTeamID:     counterpartyTeamID,
			InitiatorPlayers:       initiatorRefs,
			CounterpartyPlayers:    counterpartyRefs,
			Status:                 store.TradeBothAgreed,
			InitiatorTotalValue:    initiatorValue,
			CounterpartyTotalValue: counterpartyValue,
			SettlementAmount:       amount,
			SettlementDirection:    direction,
			PurseSettlementEnabled: c.auction.TradeSettlementOn,
		}
		if err := c.store.CreateTrade(ctx, trade); err != nil {
			return nil, err
		}
		c.trades[trade.ID] = trade
		return nil, c.executeTradeLocked(ctx, trade, performedBy)
	})
	return err
}

func (c *Coordinator) executeTradeLocked(ctx context.Context, trade *store.AuctionTrade, performedBy string) error {
	initiator, err := c.team(trade.InitiatorTeamID)
	if err != nil {
		return err
	}
	counterparty, err := c.team(trade.CounterpartyTeamID)
	if err != nil {
		return err
	}
	initiatorIDs := playerIDs(trade.InitiatorPlayers)
	counterpartyIDs := playerIDs(trade.CounterpartyPlayers)
	if _, err := c.ownedRefs(initiator, initiatorIDs); err != nil {
		return c.autoRejectOwnershipChanged(ctx, trade)
	}
	if _, err := c.ownedRefs(counterparty, counterpartyIDs); err != nil {
		return c.autoRejectOwnershipChanged(ctx, trade)
	}

	newInitiatorLots, movedFromInitiator := partitionLots(initiator.Players, initiatorIDs)
	newCounterpartyLots, movedFromCounterparty := partitionLots(counterparty.Players, counterpartyIDs)

	ti := *initiator
	tc := *counterparty
	ti.Players = append(newInitiatorLots, movedFromCounterparty...)
	tc.Players = append(newCounterpartyLots, movedFromInitiator...)

	settlementApplied := false
	if trade.PurseSettlementEnabled && trade.SettlementAmount > 0 {
		switch trade.SettlementDirection {
		case store.SettlementInitiatorPays:
			if ti.PurseRemaining >= trade.SettlementAmount {
				ti.PurseRemaining -= trade.SettlementAmount
				tc.PurseRemaining += trade.SettlementAmount
				settlementApplied = true
			}
		case store.SettlementCounterpartyPays:
			if tc.PurseRemaining >= trade.SettlementAmount {
				tc.PurseRemaining -= trade.SettlementAmount
				ti.PurseRemaining += trade.SettlementAmount
				settlementApplied = true
			}
		}
	}

	var playerRows []store.AuctionPlayer
	for _, id := range initiatorIDs {
		if p, ok := c.players[id]; ok {
			pl := *p
			pl.SoldTo = &trade.CounterpartyTeamID
			playerRows = append(playerRows, pl)
		}
	}
	for _, id := range counterpartyIDs {
		if p, ok := c.players[id]; ok {
			pl := *p
			pl.SoldTo = &trade.InitiatorTeamID
			playerRows = append(playerRows, pl)
		}
	}

	tr := *trade
	tr.Status = store.TradeExecuted
	tr.UpdatedAt = c.clock.Now().UTC()

	fwd, _ := json.Marshal(event.TradeExecutedPayload{
		TradeID: trade.ID, InitiatorTeamID: trade.InitiatorTeamID, CounterpartyTeamID: trade.CounterpartyTeamID,
		InitiatorPlayers: initiatorIDs, CounterpartyPlayers: counterpartyIDs,
		SettlementAmount: trade.SettlementAmount, SettlementDirection: string(trade.SettlementDirection), SettlementApplied: settlementApplied,
	})
	rev := fwd

	_, err = c.commit(ctx, func() (store.Mutation, error) {
		return store.Mutation{
			Teams:   []store.AuctionTeam{ti, tc},
			Players: playerRows,
			Trades:  []store.AuctionTrade{tr},
			Event:   c.newEventPayloadReversal(event.TradeExecuted, fwd, rev, performedBy, true, "trade executed"),
		}, nil
	})
	if err != nil {
		return err
	}
	c.unlockTrade(trade)
	return nil
}

// autoRejectOwnershipChanged handles a trade whose owned-players
// precondition no longer holds at execution time (a player named in the
// agreement was sold, disqualified, or moved by another trade between
// agreement and execution): it auto-transitions the trade to rejected with
// reason "ownership changed" and notifies both sides (§7).
func (c *Coordinator) autoRejectOwnershipChanged(ctx context.Context, trade *store.AuctionTrade) error {
	const reason = "ownership changed"
	t := *trade
	t.Status = store.TradeRejected
	t.RejectReason = reason
	t.UpdatedAt = c.clock.Now().UTC()

	payload, _ := json.Marshal(event.TradeStatusPayload{
		TradeID: trade.ID, InitiatorTeamID: trade.InitiatorTeamID, CounterpartyTeamID: trade.CounterpartyTeamID, Reason: reason,
	})
	_, err := c.commit(ctx, func() (store.Mutation, error) {
		return store.Mutation{
			Trades: []store.AuctionTrade{t},
			Event:  c.newEventPayload(event.TradeRejected, payload, trade.InitiatorTeamID, false, reason),
		}, nil
	})
	if err != nil {
		return err
	}
	c.unlockTrade(trade)
	// adopt's commit already routed the event to the initiator via
	// PerformedBy; the counterparty side gets the same notice explicitly.
	c.broadcast.PublishPrivate(c.id, trade.CounterpartyTeamID, c.newEventPayload(event.TradeRejected, payload, trade.CounterpartyTeamID, false, reason))
	return autxerr.StateConflict("trade_auto_rejected_ownership_changed")
}

// undoTradeExecution reverses a TRADE_EXECUTED event: the forward and
// reversal payload are identical (the trade is its own inverse once roles
// swap), so undo simply re-runs the swap with initiator/counterparty
// exchanged.
func (c *Coordinator) undoTradeExecution(ctx context.Context, target *event.Event, performedBy string) error {
	var p event.TradeExecutedPayload
	if err := json.Unmarshal(target.ReversalPayload, &p); err != nil {
		return fmt.Errorf("decoding reversal payload: %w", err)
	}
	// After the forward trade, the original counterparty team holds
	// InitiatorPlayers and the original initiator team holds
	// CounterpartyPlayers. Swapping which team plays "initiator" here —
	// without swapping which player list belongs to which, and without
	// inverting the settlement direction label — sends each lot, and each
	// purse adjustment, back the way it came: the same ti/tc roles that paid
	// now receive, and vice versa, simply because ti and tc now point at the
	// opposite teams.
	trade := &store.AuctionTrade{
		ID:                     p.TradeID,
		AuctionID:              c.id,
		InitiatorTeamID:        p.CounterpartyTeamID,
		CounterpartyTeamID:     p.InitiatorTeamID,
		InitiatorPlayers:       refsFromIDs(p.InitiatorPlayers),
		CounterpartyPlayers:    refsFromIDs(p.CounterpartyPlayers),
		SettlementAmount:       p.SettlementAmount,
		SettlementDirection:    store.SettlementDirection(p.SettlementDirection),
		PurseSettlementEnabled: p.SettlementApplied,
	}
	return c.executeTradeLocked(ctx, trade, performedBy)
}

func refsFromIDs(ids []string) []store.TradePlayerRef {
	refs := make([]store.TradePlayerRef, len(ids))
	for i, id := range ids {
		refs[i] = store.TradePlayerRef{PlayerID: id}
	}
	return refs
}

// ownedRefs validates that every playerID is currently owned by team, not
// disqualified, and returns their TradePlayerRef snapshots.
func (c *Coordinator) ownedRefs(team *store.AuctionTeam, playerIDs []string) ([]store.TradePlayerRef, error) {
	owned := make(map[string]bool, len(team.Players))
	for _, lot := range team.Players {
		owned[lot.PlayerID] = true
	}
	refs := make([]store.TradePlayerRef, 0, len(playerIDs))
	for _, id := range playerIDs {
		if !owned[id] {
			return nil, autxerr.Validation(fmt.Sprintf("player_%s_not_owned_by_team_%s", id, team.ID))
		}
		p, ok := c.players[id]
		if !ok {
			return nil, autxerr.NotFound("player_not_found")
		}
		if p.IsDisqualified {
			return nil, autxerr.Validation(fmt.Sprintf("player_%s_disqualified", id))
		}
		refs = append(refs, store.TradePlayerRef{PlayerID: p.ID, Name: p.Name, Role: p.Role, SoldAmount: p.SoldAmount})
	}
	return refs, nil
}

func (c *Coordinator) executedTradeCount(teamID string) int {
	n := 0
	for _, t := range c.trades {
		if t.Status == store.TradeExecuted && (t.InitiatorTeamID == teamID || t.CounterpartyTeamID == teamID) {
			n++
		}
	}
	return n
}

func sumSold(refs []store.TradePlayerRef) int {
	total := 0
	for _, r := range refs {
		total += r.SoldAmount
	}
	return total
}

func settlement(initiatorValue, counterpartyValue int) (int, store.SettlementDirection) {
	if initiatorValue == counterpartyValue {
		return 0, store.SettlementEven
	}
	if initiatorValue < counterpartyValue {
		return counterpartyValue - initiatorValue, store.SettlementInitiatorPays
	}
	return initiatorValue - counterpartyValue, store.SettlementCounterpartyPays
}

func playerIDs(refs []store.TradePlayerRef) []string {
	ids := make([]string, len(refs))
	for i, r := range refs {
		ids[i] = r.PlayerID
	}
	return ids
}

// firstReferencedPlayer returns the name (or ID, if the name is blank) of
// the first ref in refs whose PlayerID is in ids, for naming the displaced
// player in an auto-cancellation notice (§4.6, §8 S3).
func firstReferencedPlayer(refs []store.TradePlayerRef, ids []string) (string, bool) {
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	for _, r := range refs {
		if set[r.PlayerID] {
			if r.Name != "" {
				return r.Name, true
			}
			return r.PlayerID, true
		}
	}
	return "", false
}

// partitionLots splits lots into (kept, removed) where removed is every lot
// whose PlayerID is in ids, in the order ids was given.
func partitionLots(lots []store.OwnedLot, ids []string) (kept []store.OwnedLot, removed []store.OwnedLot) {
	byID := make(map[string]store.OwnedLot, len(lots))
	for _, lot := range lots {
		byID[lot.PlayerID] = lot
	}
	removedSet := make(map[string]bool, len(ids))
	for _, id := range ids {
		removedSet[id] = true
		if lot, ok := byID[id]; ok {
			removed = append(removed, lot)
		}
	}
	for _, lot := range lots {
		if !removedSet[lot.PlayerID] {
			kept = append(kept, lot)
		}
	}
	return kept, removed
}
