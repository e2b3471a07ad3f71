// Package event defines the append-only ActionEvent journal shared by every
// auction coordinator.
package event

import (
	"encoding/json"
	"time"
)

// Type identifies an ActionEvent kind. This is the authoritative taxonomy;
// every emission point in internal/auction uses one of these constants.
type Type string

const (
	AuctionCreated       Type = "AUCTION_CREATED"
	AuctionConfigUpdated Type = "AUCTION_CONFIG_UPDATED"
	AuctionConfigured    Type = "AUCTION_CONFIGURED"
	AuctionStarted       Type = "AUCTION_STARTED"
	AuctionPaused        Type = "AUCTION_PAUSED"
	AuctionResumed       Type = "AUCTION_RESUMED"
	AuctionCompleted     Type = "AUCTION_COMPLETED"
	TradeWindowOpened    Type = "TRADE_WINDOW_OPENED"
	AuctionFinalized     Type = "AUCTION_FINALIZED"
	TradeProposed        Type = "TRADE_PROPOSED"
	TradeAccepted        Type = "TRADE_ACCEPTED"
	TradeRejected        Type = "TRADE_REJECTED"
	TradeWithdrawn       Type = "TRADE_WITHDRAWN"
	TradeCancelled       Type = "TRADE_CANCELLED"
	PlayerLive           Type = "PLAYER_LIVE"
	BidAccepted          Type = "BID_ACCEPTED"
	BidRejected          Type = "BID_REJECTED"
	PhaseAdvanced        Type = "PHASE_ADVANCED"
	PlayerSold           Type = "PLAYER_SOLD"
	PlayerUnsold         Type = "PLAYER_UNSOLD"
	PlayerReturnedToPool Type = "PLAYER_RETURNED_TO_POOL"
	PlayerDisqualified   Type = "PLAYER_DISQUALIFIED"
	AdminPurseAdjusted   Type = "ADMIN_PURSE_ADJUSTED"
	TradeExecuted        Type = "TRADE_EXECUTED"
	ManualOverride       Type = "MANUAL_OVERRIDE"
	UndoApplied          Type = "UNDO_APPLIED"
)

// reversible is the subset of Type whose Payload carries enough information
// to be undone. Only these may appear on the bounded undo stack.
var reversible = map[Type]bool{
	PlayerSold:         true,
	PlayerUnsold:       true,
	PlayerDisqualified: true,
	TradeExecuted:      true,
	AdminPurseAdjusted: true,
}

// IsReversible reports whether events of type t carry a reversal payload.
func IsReversible(t Type) bool { return reversible[t] }

// Event is a single append-only ActionEvent row.
type Event struct {
	ID              string          `json:"id" db:"id"`
	AuctionID       string          `json:"auction_id" db:"auction_id"`
	SequenceNumber  int             `json:"sequence_number" db:"sequence_number"`
	Type            Type            `json:"type" db:"type"`
	Payload         json.RawMessage `json:"payload" db:"payload"`
	ReversalPayload json.RawMessage `json:"reversal_payload,omitempty" db:"reversal_payload"`
	PerformedBy     string          `json:"performed_by" db:"performed_by"`
	IsPublic        bool            `json:"is_public" db:"is_public"`
	PublicMessage   string          `json:"public_message,omitempty" db:"public_message"`
	CreatedAt       time.Time       `json:"created_at" db:"created_at"`
}

// BidAcceptedPayload is the Payload for a BidAccepted event.
type BidAcceptedPayload struct {
	PlayerID string `json:"player_id"`
	TeamID   string `json:"team_id"`
	Amount   int    `json:"amount"`
}

// BidRejectedPayload is the Payload for a BidRejected event. Rejections are
// only broadcast privately to the bidding team.
type BidRejectedPayload struct {
	PlayerID string `json:"player_id"`
	TeamID   string `json:"team_id"`
	Amount   int    `json:"amount"`
	Reason   string `json:"reason"`
}

// PlayerSoldPayload is the Payload/ReversalPayload pair for a PlayerSold
// event; ReversalPayload carries the pre-sale values to restore on undo.
type PlayerSoldPayload struct {
	PlayerID            string `json:"player_id"`
	TeamID              string `json:"team_id"`
	Amount              int    `json:"amount"`
	Round               int    `json:"round"`
	PreviousTeamPurse   int    `json:"previous_team_purse,omitempty"`
	PreviousPlayerState string `json:"previous_player_state,omitempty"`
}

// PlayerUnsoldPayload is the Payload/ReversalPayload for a PlayerUnsold event.
type PlayerUnsoldPayload struct {
	PlayerID string `json:"player_id"`
}

// PlayerDisqualifiedPayload is the Payload/ReversalPayload for disqualification.
type PlayerDisqualifiedPayload struct {
	PlayerID          string `json:"player_id"`
	WasSold           bool   `json:"was_sold"`
	PreviousTeamID    string `json:"previous_team_id,omitempty"`
	PreviousAmount    int    `json:"previous_amount,omitempty"`
	PreviousTeamPurse int    `json:"previous_team_purse,omitempty"`
}

// AdminPurseAdjustedPayload is the Payload/ReversalPayload for a manual purse
// correction.
type AdminPurseAdjustedPayload struct {
	TeamID string `json:"team_id"`
	Delta  int    `json:"delta"`
	Reason string `json:"reason"`
}

// TradeExecutedPayload is the Payload/ReversalPayload for an executed trade.
type TradeExecutedPayload struct {
	TradeID             string   `json:"trade_id"`
	InitiatorTeamID     string   `json:"initiator_team_id"`
	CounterpartyTeamID  string   `json:"counterparty_team_id"`
	InitiatorPlayers    []string `json:"initiator_players"`
	CounterpartyPlayers []string `json:"counterparty_players"`
	SettlementAmount    int      `json:"settlement_amount"`
	SettlementDirection string   `json:"settlement_direction"`
	SettlementApplied   bool     `json:"settlement_applied"`
}

// PlayerLivePayload is the Payload for a PlayerLive event.
type PlayerLivePayload struct {
	PlayerID string `json:"player_id"`
	Round    int    `json:"round"`
}

// UndoAppliedPayload records which event was reversed. UndoApplied events are
// themselves non-reversible.
type UndoAppliedPayload struct {
	ReversedSequenceNumber int  `json:"reversed_sequence_number"`
	ReversedType           Type `json:"reversed_type"`
}

// AuctionLifecyclePayload covers the simple status-transition events
// (AuctionCreated/Configured/Started/Paused/Resumed/Completed/
// TradeWindowOpened/Finalized) whose payload is just the resulting status.
type AuctionLifecyclePayload struct {
	Status string `json:"status"`
}

// TradeStatusPayload covers the trade-proposal lifecycle events (proposed,
// accepted, rejected, withdrawn, cancelled) whose payload is just an
// identification of the trade and, where relevant, a reason.
type TradeStatusPayload struct {
	TradeID             string `json:"trade_id"`
	InitiatorTeamID     string `json:"initiator_team_id"`
	CounterpartyTeamID  string `json:"counterparty_team_id"`
	Reason              string `json:"reason,omitempty"`
}

// PhaseAdvancedPayload is the Payload for a PhaseAdvanced event.
type PhaseAdvancedPayload struct {
	FromPhase string `json:"from_phase"`
	ToPhase   string `json:"to_phase"`
	Round     int    `json:"round"`
}
