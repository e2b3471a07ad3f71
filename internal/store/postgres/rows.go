package postgres

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/abhinavece/auctionhub/internal/store"
)

const teamColumns = `id, auction_id, name, short_name, purse_value, purse_remaining,
	players, retained_players, access_credential_hash, magic_token, is_active, created_at`

type teamRow struct {
	ID                   string    `db:"id"`
	AuctionID            string    `db:"auction_id"`
	Name                 string    `db:"name"`
	ShortName            string    `db:"short_name"`
	PurseValue           int       `db:"purse_value"`
	PurseRemaining       int       `db:"purse_remaining"`
	Players              []byte    `db:"players"`
	RetainedPlayers      []byte    `db:"retained_players"`
	AccessCredentialHash string    `db:"access_credential_hash"`
	MagicToken           string    `db:"magic_token"`
	IsActive             bool      `db:"is_active"`
	CreatedAt            time.Time `db:"created_at"`
}

func (r teamRow) toDomain() (*store.AuctionTeam, error) {
	var players []store.OwnedLot
	if err := json.Unmarshal(nilToEmptyArray(r.Players), &players); err != nil {
		return nil, fmt.Errorf("decoding team players: %w", err)
	}
	var retained []string
	if err := json.Unmarshal(nilToEmptyArray(r.RetainedPlayers), &retained); err != nil {
		return nil, fmt.Errorf("decoding retained players: %w", err)
	}
	return &store.AuctionTeam{
		ID:                   r.ID,
		AuctionID:            r.AuctionID,
		Name:                 r.Name,
		ShortName:            r.ShortName,
		PurseValue:           r.PurseValue,
		PurseRemaining:       r.PurseRemaining,
		Players:              players,
		RetainedPlayers:      retained,
		AccessCredentialHash: r.AccessCredentialHash,
		MagicToken:           r.MagicToken,
		IsActive:             r.IsActive,
		CreatedAt:            r.CreatedAt,
	}, nil
}

const playerColumns = `id, auction_id, player_number, name, role, custom_fields,
	status, sold_to, sold_amount, sold_in_round, is_disqualified, created_at`

type playerRow struct {
	ID             string         `db:"id"`
	AuctionID      string         `db:"auction_id"`
	PlayerNumber   int            `db:"player_number"`
	Name           string         `db:"name"`
	Role           string         `db:"role"`
	CustomFields   []byte         `db:"custom_fields"`
	Status         string         `db:"status"`
	SoldTo         sql.NullString `db:"sold_to"`
	SoldAmount     int            `db:"sold_amount"`
	SoldInRound    int            `db:"sold_in_round"`
	IsDisqualified bool           `db:"is_disqualified"`
	CreatedAt      time.Time      `db:"created_at"`
}

func (r playerRow) toDomain() store.AuctionPlayer {
	fields := map[string]string{}
	_ = json.Unmarshal(nilToEmptyObject(r.CustomFields), &fields)
	p := store.AuctionPlayer{
		ID:             r.ID,
		AuctionID:      r.AuctionID,
		PlayerNumber:   r.PlayerNumber,
		Name:           r.Name,
		Role:           r.Role,
		CustomFields:   fields,
		Status:         store.PlayerStatus(r.Status),
		SoldAmount:     r.SoldAmount,
		SoldInRound:    r.SoldInRound,
		IsDisqualified: r.IsDisqualified,
		CreatedAt:      r.CreatedAt,
	}
	if r.SoldTo.Valid {
		p.SoldTo = &r.SoldTo.String
	}
	return p
}

func nilToEmptyObject(b []byte) []byte {
	if len(b) == 0 {
		return []byte("{}")
	}
	return b
}

const tradeColumns = `id, auction_id, initiator_team_id, counterparty_team_id,
	initiator_players, counterparty_players, status, initiator_total_value, counterparty_total_value,
	settlement_amount, settlement_direction, purse_settlement_enabled, public_announcement, message,
	reject_reason, created_at, updated_at`

type tradeRow struct {
	ID                     string    `db:"id"`
	AuctionID              string    `db:"auction_id"`
	InitiatorTeamID        string    `db:"initiator_team_id"`
	CounterpartyTeamID     string    `db:"counterparty_team_id"`
	InitiatorPlayers       []byte    `db:"initiator_players"`
	CounterpartyPlayers    []byte    `db:"counterparty_players"`
	Status                 string    `db:"status"`
	InitiatorTotalValue    int       `db:"initiator_total_value"`
	CounterpartyTotalValue int       `db:"counterparty_total_value"`
	SettlementAmount       int       `db:"settlement_amount"`
	SettlementDirection    string    `db:"settlement_direction"`
	PurseSettlementEnabled bool      `db:"purse_settlement_enabled"`
	PublicAnnouncement     string    `db:"public_announcement"`
	Message                string    `db:"message"`
	RejectReason           string    `db:"reject_reason"`
	CreatedAt              time.Time `db:"created_at"`
	UpdatedAt              time.Time `db:"updated_at"`
}

func (r tradeRow) toDomain() (*store.AuctionTrade, error) {
	var ip []store.TradePlayerRef
	if err := json.Unmarshal(nilToEmptyArray(r.InitiatorPlayers), &ip); err != nil {
		return nil, fmt.Errorf("decoding initiator players: %w", err)
	}
	var cp []store.TradePlayerRef
	if err := json.Unmarshal(nilToEmptyArray(r.CounterpartyPlayers), &cp); err != nil {
		return nil, fmt.Errorf("decoding counterparty players: %w", err)
	}
	return &store.AuctionTrade{
		ID:                     r.ID,
		AuctionID:              r.AuctionID,
		InitiatorTeamID:        r.InitiatorTeamID,
		CounterpartyTeamID:     r.CounterpartyTeamID,
		InitiatorPlayers:       ip,
		CounterpartyPlayers:    cp,
		Status:                 store.TradeStatus(r.Status),
		InitiatorTotalValue:    r.InitiatorTotalValue,
		CounterpartyTotalValue: r.CounterpartyTotalValue,
		SettlementAmount:       r.SettlementAmount,
		SettlementDirection:    store.SettlementDirection(r.SettlementDirection),
		PurseSettlementEnabled: r.PurseSettlementEnabled,
		PublicAnnouncement:     r.PublicAnnouncement,
		Message:                r.Message,
		RejectReason:           r.RejectReason,
		CreatedAt:              r.CreatedAt,
		UpdatedAt:              r.UpdatedAt,
	}, nil
}
