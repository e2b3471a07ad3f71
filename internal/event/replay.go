package event

import (
	"context"
	"encoding/json"
	"fmt"
)

// AuctionSnapshot is the in-memory Auction aggregate rebuilt by folding an
// auction's ActionEvents in sequence order: status, the current bid, each
// team's net purse movement, and each player's/trade's last known status.
// It does not replace the materialized store as source of truth; it exists
// so recovery can cross-check the store against what the journal implies
// happened.
type AuctionSnapshot struct {
	AuctionID string

	Status               string
	CurrentPlayerID      string
	CurrentBidAmount     int
	CurrentBidderTeamID  string
	CurrentTimerPhase    string
	CurrentRound         int

	// TeamPurseDeltas holds each team's net purse movement implied by the
	// journal (sales debited, admin adjustments and trade settlements
	// applied), not an absolute purse value — the journal alone doesn't know
	// a team's starting purse.
	TeamPurseDeltas map[string]int
	// PlayerStatus maps player ID to its last known status string.
	PlayerStatus map[string]string
	// TradeStatus maps trade ID to its last known status string.
	TradeStatus map[string]string

	LastSequenceNumber int
}

// Replay rebuilds auctionID's AuctionSnapshot by loading its events from s
// and folding them in sequence order. A malformed payload on any one event
// is reported as an error rather than silently skipped, since a snapshot
// folded over a gap can't be trusted for the audit it's built for.
func Replay(ctx context.Context, s Store, auctionID string) (*AuctionSnapshot, error) {
	events, err := s.Load(ctx, auctionID)
	if err != nil {
		return nil, fmt.Errorf("loading events for auction %s: %w", auctionID, err)
	}
	snap := &AuctionSnapshot{
		AuctionID:       auctionID,
		TeamPurseDeltas: make(map[string]int),
		PlayerStatus:    make(map[string]string),
		TradeStatus:     make(map[string]string),
	}
	for _, e := range events {
		if err := fold(snap, e); err != nil {
			return nil, fmt.Errorf("folding event seq=%d type=%s: %w", e.SequenceNumber, e.Type, err)
		}
		snap.LastSequenceNumber = e.SequenceNumber
	}
	return snap, nil
}

func fold(snap *AuctionSnapshot, e Event) error {
	switch e.Type {
	case AuctionCreated:
		snap.Status = "draft"
	case AuctionConfigured:
		snap.Status = "configured"
	case AuctionConfigUpdated:
		// configuration fields aren't part of the snapshot; status unchanged.
	case AuctionStarted:
		snap.Status = "live"
	case AuctionPaused:
		snap.Status = "paused"
	case AuctionResumed:
		snap.Status = "live"
	case AuctionCompleted:
		snap.Status = "completed"
	case TradeWindowOpened:
		snap.Status = "trade_window"
	case AuctionFinalized:
		snap.Status = "finalized"

	case PlayerLive:
		var p PlayerLivePayload
		if err := json.Unmarshal(e.Payload, &p); err != nil {
			return err
		}
		snap.CurrentPlayerID = p.PlayerID
		snap.CurrentRound = p.Round
		snap.CurrentBidAmount = 0
		snap.CurrentBidderTeamID = ""

	case BidAccepted:
		var p BidAcceptedPayload
		if err := json.Unmarshal(e.Payload, &p); err != nil {
			return err
		}
		snap.CurrentBidAmount = p.Amount
		snap.CurrentBidderTeamID = p.TeamID

	case BidRejected:
		// rejections don't move the current bid.

	case PhaseAdvanced:
		var p PhaseAdvancedPayload
		if err := json.Unmarshal(e.Payload, &p); err != nil {
			return err
		}
		snap.CurrentTimerPhase = p.ToPhase
		snap.CurrentRound = p.Round

	case PlayerSold:
		var p PlayerSoldPayload
		if err := json.Unmarshal(e.Payload, &p); err != nil {
			return err
		}
		snap.PlayerStatus[p.PlayerID] = "sold"
		snap.TeamPurseDeltas[p.TeamID] -= p.Amount
		snap.CurrentPlayerID = ""
		snap.CurrentBidAmount = 0
		snap.CurrentBidderTeamID = ""

	case PlayerUnsold:
		var p PlayerUnsoldPayload
		if err := json.Unmarshal(e.Payload, &p); err != nil {
			return err
		}
		snap.PlayerStatus[p.PlayerID] = "unsold"
		snap.CurrentPlayerID = ""
		snap.CurrentBidAmount = 0
		snap.CurrentBidderTeamID = ""

	case PlayerReturnedToPool:
		var p PlayerUnsoldPayload
		if err := json.Unmarshal(e.Payload, &p); err != nil {
			return err
		}
		snap.PlayerStatus[p.PlayerID] = "pool"

	case PlayerDisqualified:
		var p PlayerDisqualifiedPayload
		if err := json.Unmarshal(e.Payload, &p); err != nil {
			return err
		}
		snap.PlayerStatus[p.PlayerID] = "disqualified"
		if p.WasSold {
			snap.TeamPurseDeltas[p.PreviousTeamID] += p.PreviousAmount
		}

	case AdminPurseAdjusted:
		var p AdminPurseAdjustedPayload
		if err := json.Unmarshal(e.Payload, &p); err != nil {
			return err
		}
		snap.TeamPurseDeltas[p.TeamID] += p.Delta

	case TradeProposed:
		var p TradeStatusPayload
		if err := json.Unmarshal(e.Payload, &p); err != nil {
			return err
		}
		snap.TradeStatus[p.TradeID] = "pending_counterparty"
	case TradeAccepted:
		var p TradeStatusPayload
		if err := json.Unmarshal(e.Payload, &p); err != nil {
			return err
		}
		snap.TradeStatus[p.TradeID] = "both_agreed"
	case TradeRejected:
		var p TradeStatusPayload
		if err := json.Unmarshal(e.Payload, &p); err != nil {
			return err
		}
		snap.TradeStatus[p.TradeID] = "rejected"
	case TradeWithdrawn:
		var p TradeStatusPayload
		if err := json.Unmarshal(e.Payload, &p); err != nil {
			return err
		}
		snap.TradeStatus[p.TradeID] = "withdrawn"
	case TradeCancelled:
		var p TradeStatusPayload
		if err := json.Unmarshal(e.Payload, &p); err != nil {
			return err
		}
		snap.TradeStatus[p.TradeID] = "cancelled"

	case TradeExecuted:
		var p TradeExecutedPayload
		if err := json.Unmarshal(e.Payload, &p); err != nil {
			return err
		}
		snap.TradeStatus[p.TradeID] = "executed"
		if p.SettlementApplied {
			switch p.SettlementDirection {
			case "initiator_pays":
				snap.TeamPurseDeltas[p.InitiatorTeamID] -= p.SettlementAmount
				snap.TeamPurseDeltas[p.CounterpartyTeamID] += p.SettlementAmount
			case "counterparty_pays":
				snap.TeamPurseDeltas[p.CounterpartyTeamID] -= p.SettlementAmount
				snap.TeamPurseDeltas[p.InitiatorTeamID] += p.SettlementAmount
			}
		}

	case UndoApplied, ManualOverride:
		// Both are meta-events describing an operator action on the journal
		// itself rather than a domain state change; the events they act on
		// already folded (or will fold) their own effects in sequence order.

	default:
		return fmt.Errorf("unknown event type %q", e.Type)
	}
	return nil
}
