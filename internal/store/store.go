package store

import (
	"context"
	"time"

	"github.com/abhinavece/auctionhub/internal/event"
)

// AuctionStatus is the lifecycle status of an Auction.
type AuctionStatus string

const (
	StatusDraft        AuctionStatus = "draft"
	StatusConfigured   AuctionStatus = "configured"
	StatusLive         AuctionStatus = "live"
	StatusPaused       AuctionStatus = "paused"
	StatusCompleted    AuctionStatus = "completed"
	StatusTradeWindow  AuctionStatus = "trade_window"
	StatusFinalized    AuctionStatus = "finalized"
)

// TimerPhase is the current sub-interval of the bidding timer.
type TimerPhase string

const (
	PhaseRunning    TimerPhase = "running"
	PhaseGoingOnce  TimerPhase = "going_once"
	PhaseGoingTwice TimerPhase = "going_twice"
)

// PlayerStatus is the lifecycle status of an AuctionPlayer.
type PlayerStatus string

const (
	PlayerPool          PlayerStatus = "pool"
	PlayerLive          PlayerStatus = "live"
	PlayerSold          PlayerStatus = "sold"
	PlayerUnsold        PlayerStatus = "unsold"
	PlayerDisqualified  PlayerStatus = "disqualified"
)

// TradeStatus is the lifecycle status of an AuctionTrade.
type TradeStatus string

const (
	TradePendingCounterparty TradeStatus = "pending_counterparty"
	TradeBothAgreed          TradeStatus = "both_agreed"
	TradeExecuted            TradeStatus = "executed"
	TradeRejected            TradeStatus = "rejected"
	TradeWithdrawn           TradeStatus = "withdrawn"
	TradeCancelled           TradeStatus = "cancelled"
	TradeExpired             TradeStatus = "expired"
)

// SettlementDirection says which side of a trade pays the other.
type SettlementDirection string

const (
	SettlementInitiatorPays    SettlementDirection = "initiator_pays"
	SettlementCounterpartyPays SettlementDirection = "counterparty_pays"
	SettlementEven             SettlementDirection = "even"
)

// BidIncrementTier is one rung of the configured increment ladder: a bid at
// or above Threshold advances by Increment (§3, §4.4 rule 6).
type BidIncrementTier struct {
	Threshold int `json:"threshold" db:"threshold"`
	Increment int `json:"increment" db:"increment"`
}

// Increment returns the increment that applies to the next bid above
// current, per the largest threshold not exceeding current.
func Increment(tiers []BidIncrementTier, current int) int {
	best := 0
	applicable := false
	for _, t := range tiers {
		if current >= t.Threshold && (!applicable || t.Threshold >= best) {
			best = t.Threshold
			applicable = true
		}
	}
	for _, t := range tiers {
		if t.Threshold == best {
			return t.Increment
		}
	}
	if len(tiers) > 0 {
		return tiers[0].Increment
	}
	return 1
}

// Auction is the top-level aggregate configuration and dynamic state (§3).
type Auction struct {
	ID      string `db:"id"`
	Slug    string `db:"slug"`
	Version int    `db:"version"`

	// Configuration, immutable once Status != draft.
	BasePrice          int                `db:"base_price"`
	PurseValue         int                `db:"purse_value"`
	BidIncrementTiers  []BidIncrementTier `db:"bid_increment_tiers"`
	TimerDuration      time.Duration      `db:"timer_duration"`
	BidResetTimer      time.Duration      `db:"bid_reset_timer"`
	GoingOnceTimer     time.Duration      `db:"going_once_timer"`
	GoingTwiceTimer    time.Duration      `db:"going_twice_timer"`
	MinSquadSize       int                `db:"min_squad_size"`
	MaxSquadSize       int                `db:"max_squad_size"`
	RetentionEnabled   bool               `db:"retention_enabled"`
	MaxRetentions      int                `db:"max_retentions"`
	RetentionCost      int                `db:"retention_cost"`
	TradeWindowHours   int                `db:"trade_window_hours"`
	MaxTradesPerTeam   int                `db:"max_trades_per_team"`
	TradeSettlementOn  bool               `db:"trade_settlement_enabled"`
	MaxUndoActions     int                `db:"max_undo_actions"`
	RandomizePoolOrder bool               `db:"randomize_pool_order"`
	RequeuePolicy      string             `db:"requeue_policy"` // "head" (default) or "tail"

	// Dynamic state.
	Status               AuctionStatus `db:"status"`
	CurrentPlayerID       *string       `db:"current_player_id"`
	CurrentBidAmount      int           `db:"current_bid_amount"`
	CurrentBidderTeamID   *string       `db:"current_bidder_team_id"`
	CurrentTimerPhase     TimerPhase    `db:"current_timer_phase"`
	CurrentPhaseDeadline  time.Time     `db:"current_phase_deadline"`
	RemainingPlayerIDs    []string      `db:"remaining_player_ids"`
	TradeWindowEndsAt     *time.Time    `db:"trade_window_ends_at"`
	FinalizedAt           *time.Time    `db:"finalized_at"`
	CurrentRound          int           `db:"current_round"`

	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// OwnedLot is one player a team has purchased (or been traded) into its squad.
type OwnedLot struct {
	PlayerID  string    `json:"player_id"`
	BoughtAt  int       `json:"bought_at"`
	Round     int       `json:"round"`
	Timestamp time.Time `json:"timestamp"`
}

// AuctionTeam is a participating bidder (§3).
type AuctionTeam struct {
	ID                   string     `db:"id"`
	AuctionID            string     `db:"auction_id"`
	Name                 string     `db:"name"`
	ShortName            string     `db:"short_name"`
	PurseValue           int        `db:"purse_value"`
	PurseRemaining       int        `db:"purse_remaining"`
	Players              []OwnedLot `db:"players"`
	RetainedPlayers      []string   `db:"retained_players"`
	AccessCredentialHash string     `db:"access_credential_hash"`
	MagicToken           string     `db:"magic_token"`
	IsActive             bool       `db:"is_active"`
	CreatedAt            time.Time  `db:"created_at"`
}

// AuctionPlayer is one lot in the pool (§3).
type AuctionPlayer struct {
	ID             string            `db:"id"`
	AuctionID      string            `db:"auction_id"`
	PlayerNumber   int               `db:"player_number"`
	Name           string            `db:"name"`
	Role           string            `db:"role"`
	CustomFields   map[string]string `db:"custom_fields"`
	Status         PlayerStatus      `db:"status"`
	SoldTo         *string           `db:"sold_to"`
	SoldAmount     int               `db:"sold_amount"`
	SoldInRound    int               `db:"sold_in_round"`
	IsDisqualified bool              `db:"is_disqualified"`
	CreatedAt      time.Time         `db:"created_at"`
}

// BidAuditType classifies a BidAuditLog row.
type BidAuditType string

const (
	BidAccepted BidAuditType = "bid_accepted"
	BidRejected BidAuditType = "bid_rejected"
	BidVoided   BidAuditType = "bid_voided"
)

// BidAuditLog records every bid attempt, accepted or not (§3).
type BidAuditLog struct {
	ID              string       `db:"id"`
	AuctionID       string       `db:"auction_id"`
	PlayerID        string       `db:"player_id"`
	TeamID          string       `db:"team_id"`
	AttemptedAmount int          `db:"attempted_amount"`
	Type            BidAuditType `db:"type"`
	Reason          string       `db:"reason"`
	Timestamp       time.Time    `db:"timestamp"`
}

// TradePlayerRef is one player named in a trade proposal.
type TradePlayerRef struct {
	PlayerID   string `json:"player_id"`
	Name       string `json:"name"`
	Role       string `json:"role"`
	SoldAmount int    `json:"sold_amount"`
}

// AuctionTrade is a bilateral swap proposal (§3, §4.6).
type AuctionTrade struct {
	ID                     string              `db:"id"`
	AuctionID              string              `db:"auction_id"`
	InitiatorTeamID        string              `db:"initiator_team_id"`
	CounterpartyTeamID     string              `db:"counterparty_team_id"`
	InitiatorPlayers       []TradePlayerRef     `db:"initiator_players"`
	CounterpartyPlayers    []TradePlayerRef     `db:"counterparty_players"`
	Status                 TradeStatus          `db:"status"`
	InitiatorTotalValue    int                  `db:"initiator_total_value"`
	CounterpartyTotalValue int                  `db:"counterparty_total_value"`
	SettlementAmount       int                  `db:"settlement_amount"`
	SettlementDirection    SettlementDirection  `db:"settlement_direction"`
	PurseSettlementEnabled bool                 `db:"purse_settlement_enabled"`
	PublicAnnouncement     string               `db:"public_announcement"`
	Message                string               `db:"message"`
	RejectReason           string               `db:"reject_reason"`
	CreatedAt              time.Time            `db:"created_at"`
	UpdatedAt              time.Time            `db:"updated_at"`
}

// Mutation batches every write produced by one coordinator command so the
// State Store can apply them atomically: all rows commit together, or none
// do (§4.1 d). ExpectedVersion enforces the compare-and-swap on Auction.
type Mutation struct {
	Auction         *Auction
	ExpectedVersion int
	Teams           []AuctionTeam
	Players         []AuctionPlayer
	Trades          []AuctionTrade
	BidAudit        *BidAuditLog
	Event           event.Event
}

// AuctionStore is the typed, atomic persistence contract for the Auction
// aggregate (§4.1, Auction State Store / C1).
type AuctionStore interface {
	GetAuction(ctx context.Context, id string) (*Auction, error)
	GetAuctionBySlug(ctx context.Context, slug string) (*Auction, error)
	CreateAuction(ctx context.Context, a *Auction) error
	ListLiveAuctions(ctx context.Context) ([]Auction, error)

	FindTeamsByAuction(ctx context.Context, auctionID string) ([]AuctionTeam, error)
	FindActiveTeamsByAuction(ctx context.Context, auctionID string) ([]AuctionTeam, error)
	GetTeam(ctx context.Context, teamID string) (*AuctionTeam, error)
	CreateTeam(ctx context.Context, t *AuctionTeam) error

	FindPlayersByAuctionAndStatus(ctx context.Context, auctionID string, status PlayerStatus) ([]AuctionPlayer, error)
	GetPlayer(ctx context.Context, playerID string) (*AuctionPlayer, error)
	CreatePlayer(ctx context.Context, p *AuctionPlayer) error

	FindTradesByAuctionAndStatus(ctx context.Context, auctionID string, statuses ...TradeStatus) ([]AuctionTrade, error)
	FindTradesByPlayer(ctx context.Context, auctionID, playerID string) ([]AuctionTrade, error)
	GetTrade(ctx context.Context, tradeID string) (*AuctionTrade, error)
	CreateTrade(ctx context.Context, t *AuctionTrade) error

	FindBidAudit(ctx context.Context, auctionID string, limit int) ([]BidAuditLog, error)

	// Apply commits every row in m in one transaction, including the
	// ActionEvent append, and returns the assigned sequence number. The
	// Auction row (if m.Auction != nil) is only updated when its current
	// version equals m.ExpectedVersion; mismatch returns a stale-version
	// error (see autxerr.KindStateConflict).
	Apply(ctx context.Context, m Mutation) (sequenceNumber int, err error)
}
