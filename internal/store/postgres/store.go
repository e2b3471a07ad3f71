package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/abhinavece/auctionhub/internal/autxerr"
	"github.com/abhinavece/auctionhub/internal/clock"
	"github.com/abhinavece/auctionhub/internal/event"
	"github.com/abhinavece/auctionhub/internal/store"
)

// AuctionRepo implements store.AuctionStore with sqlx.
type AuctionRepo struct {
	db    *sqlx.DB
	clock clock.Clock
}

// NewAuctionRepo returns a new AuctionRepo.
func NewAuctionRepo(db *sqlx.DB, clk clock.Clock) *AuctionRepo {
	return &AuctionRepo{db: db, clock: clk}
}

// --- auctionRow: wire representation with JSON columns as raw bytes ---

type auctionRow struct {
	ID                  string         `db:"id"`
	Slug                string         `db:"slug"`
	Version             int            `db:"version"`
	BasePrice           int            `db:"base_price"`
	PurseValue          int            `db:"purse_value"`
	BidIncrementTiers   []byte         `db:"bid_increment_tiers"`
	TimerDurationMs     int64          `db:"timer_duration_ms"`
	BidResetTimerMs     int64          `db:"bid_reset_timer_ms"`
	GoingOnceTimerMs    int64          `db:"going_once_timer_ms"`
	GoingTwiceTimerMs   int64          `db:"going_twice_timer_ms"`
	MinSquadSize        int            `db:"min_squad_size"`
	MaxSquadSize        int            `db:"max_squad_size"`
	RetentionEnabled    bool           `db:"retention_enabled"`
	MaxRetentions       int            `db:"max_retentions"`
	RetentionCost       int            `db:"retention_cost"`
	TradeWindowHours    int            `db:"trade_window_hours"`
	MaxTradesPerTeam    int            `db:"max_trades_per_team"`
	TradeSettlementOn   bool           `db:"trade_settlement_enabled"`
	MaxUndoActions      int            `db:"max_undo_actions"`
	RandomizePoolOrder  bool           `db:"randomize_pool_order"`
	RequeuePolicy       string         `db:"requeue_policy"`
	Status              string         `db:"status"`
	CurrentPlayerID     sql.NullString `db:"current_player_id"`
	CurrentBidAmount    int            `db:"current_bid_amount"`
	CurrentBidderTeamID sql.NullString `db:"current_bidder_team_id"`
	CurrentTimerPhase   string         `db:"current_timer_phase"`
	CurrentPhaseDeadline sql.NullTime  `db:"current_phase_deadline"`
	RemainingPlayerIDs  []byte         `db:"remaining_player_ids"`
	TradeWindowEndsAt   sql.NullTime   `db:"trade_window_ends_at"`
	FinalizedAt         sql.NullTime   `db:"finalized_at"`
	CurrentRound        int            `db:"current_round"`
	CreatedAt           time.Time      `db:"created_at"`
	UpdatedAt           time.Time      `db:"updated_at"`
}

func (r auctionRow) toDomain() (*store.Auction, error) {
	var tiers []store.BidIncrementTier
	if err := json.Unmarshal(nilToEmptyArray(r.BidIncrementTiers), &tiers); err != nil {
		return nil, fmt.Errorf("decoding bid_increment_tiers: %w", err)
	}
	var remaining []string
	if err := json.Unmarshal(nilToEmptyArray(r.RemainingPlayerIDs), &remaining); err != nil {
		return nil, fmt.Errorf("decoding remaining_player_ids: %w", err)
	}
	a := &store.Auction{
		ID:                 r.ID,
		Slug:               r.Slug,
		Version:            r.Version,
		BasePrice:          r.BasePrice,
		PurseValue:         r.PurseValue,
		BidIncrementTiers:  tiers,
		TimerDuration:      time.Duration(r.TimerDurationMs) * time.Millisecond,
		BidResetTimer:      time.Duration(r.BidResetTimerMs) * time.Millisecond,
		GoingOnceTimer:     time.Duration(r.GoingOnceTimerMs) * time.Millisecond,
		GoingTwiceTimer:    time.Duration(r.GoingTwiceTimerMs) * time.Millisecond,
		MinSquadSize:       r.MinSquadSize,
		MaxSquadSize:       r.MaxSquadSize,
		RetentionEnabled:   r.RetentionEnabled,
		MaxRetentions:      r.MaxRetentions,
		RetentionCost:      r.RetentionCost,
		TradeWindowHours:   r.TradeWindowHours,
		MaxTradesPerTeam:   r.MaxTradesPerTeam,
		TradeSettlementOn:  r.TradeSettlementOn,
		MaxUndoActions:     r.MaxUndoActions,
		RandomizePoolOrder: r.RandomizePoolOrder,
		RequeuePolicy:      r.RequeuePolicy,
		Status:             store.AuctionStatus(r.Status),
		CurrentBidAmount:   r.CurrentBidAmount,
		CurrentTimerPhase:  store.TimerPhase(r.CurrentTimerPhase),
		RemainingPlayerIDs: remaining,
		CurrentRound:       r.CurrentRound,
		CreatedAt:          r.CreatedAt,
		UpdatedAt:          r.UpdatedAt,
	}
	if r.CurrentPlayerID.Valid {
		a.CurrentPlayerID = &r.CurrentPlayerID.String
	}
	if r.CurrentBidderTeamID.Valid {
		a.CurrentBidderTeamID = &r.CurrentBidderTeamID.String
	}
	if r.CurrentPhaseDeadline.Valid {
		a.CurrentPhaseDeadline = r.CurrentPhaseDeadline.Time
	}
	if r.TradeWindowEndsAt.Valid {
		a.TradeWindowEndsAt = &r.TradeWindowEndsAt.Time
	}
	if r.FinalizedAt.Valid {
		a.FinalizedAt = &r.FinalizedAt.Time
	}
	return a, nil
}

func nilToEmptyArray(b []byte) []byte {
	if len(b) == 0 {
		return []byte("[]")
	}
	return b
}

const auctionColumns = `id, slug, version, base_price, purse_value, bid_increment_tiers,
	timer_duration_ms, bid_reset_timer_ms, going_once_timer_ms, going_twice_timer_ms,
	min_squad_size, max_squad_size, retention_enabled, max_retentions, retention_cost,
	trade_window_hours, max_trades_per_team, trade_settlement_enabled, max_undo_actions,
	randomize_pool_order, requeue_policy, status, current_player_id, current_bid_amount,
	current_bidder_team_id, current_timer_phase, current_phase_deadline, remaining_player_ids,
	trade_window_ends_at, finalized_at, current_round, created_at, updated_at`

func (r *AuctionRepo) GetAuction(ctx context.Context, id string) (*store.Auction, error) {
	var row auctionRow
	err := r.db.GetContext(ctx, &row, `SELECT `+auctionColumns+` FROM auctions WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, autxerr.NotFound("auction_not_found")
	}
	if err != nil {
		return nil, fmt.Errorf("getting auction: %w", err)
	}
	return row.toDomain()
}

func (r *AuctionRepo) GetAuctionBySlug(ctx context.Context, slug string) (*store.Auction, error) {
	var row auctionRow
	err := r.db.GetContext(ctx, &row, `SELECT `+auctionColumns+` FROM auctions WHERE slug = $1`, slug)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, autxerr.NotFound("auction_not_found")
	}
	if err != nil {
		return nil, fmt.Errorf("getting auction by slug: %w", err)
	}
	return row.toDomain()
}

func (r *AuctionRepo) ListLiveAuctions(ctx context.Context) ([]store.Auction, error) {
	var rows []auctionRow
	err := r.db.SelectContext(ctx, &rows, `SELECT `+auctionColumns+` FROM auctions WHERE status IN ('live','paused') ORDER BY created_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("listing live auctions: %w", err)
	}
	out := make([]store.Auction, 0, len(rows))
	for _, row := range rows {
		a, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, nil
}

func (r *AuctionRepo) CreateAuction(ctx context.Context, a *store.Auction) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	now := r.clock.Now().UTC()
	a.CreatedAt, a.UpdatedAt = now, now
	a.Version = 0
	if a.Status == "" {
		a.Status = store.StatusDraft
	}
	tiers, err := json.Marshal(a.BidIncrementTiers)
	if err != nil {
		return fmt.Errorf("encoding bid_increment_tiers: %w", err)
	}
	remaining, err := json.Marshal(a.RemainingPlayerIDs)
	if err != nil {
		return fmt.Errorf("encoding remaining_player_ids: %w", err)
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO auctions (id, slug, version, base_price, purse_value, bid_increment_tiers,
			timer_duration_ms, bid_reset_timer_ms, going_once_timer_ms, going_twice_timer_ms,
			min_squad_size, max_squad_size, retention_enabled, max_retentions, retention_cost,
			trade_window_hours, max_trades_per_team, trade_settlement_enabled, max_undo_actions,
			randomize_pool_order, requeue_policy, status, current_bid_amount, current_timer_phase,
			remaining_player_ids, current_round, created_at, updated_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23,$24,$25,$26,$27,$28)`,
		a.ID, a.Slug, a.Version, a.BasePrice, a.PurseValue, tiers,
		a.TimerDuration.Milliseconds(), a.BidResetTimer.Milliseconds(), a.GoingOnceTimer.Milliseconds(), a.GoingTwiceTimer.Milliseconds(),
		a.MinSquadSize, a.MaxSquadSize, a.RetentionEnabled, a.MaxRetentions, a.RetentionCost,
		a.TradeWindowHours, a.MaxTradesPerTeam, a.TradeSettlementOn, a.MaxUndoActions,
		a.RandomizePoolOrder, a.RequeuePolicy, string(a.Status), a.CurrentBidAmount, string(store.PhaseRunning),
		remaining, a.CurrentRound, a.CreatedAt, a.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("creating auction: %w", err)
	}
	return nil
}

func (r *AuctionRepo) FindTeamsByAuction(ctx context.Context, auctionID string) ([]store.AuctionTeam, error) {
	return r.findTeams(ctx, `SELECT `+teamColumns+` FROM auction_teams WHERE auction_id = $1 ORDER BY created_at ASC`, auctionID)
}

func (r *AuctionRepo) FindActiveTeamsByAuction(ctx context.Context, auctionID string) ([]store.AuctionTeam, error) {
	return r.findTeams(ctx, `SELECT `+teamColumns+` FROM auction_teams WHERE auction_id = $1 AND is_active = TRUE ORDER BY created_at ASC`, auctionID)
}

func (r *AuctionRepo) findTeams(ctx context.Context, query string, arg any) ([]store.AuctionTeam, error) {
	var rows []teamRow
	if err := r.db.SelectContext(ctx, &rows, query, arg); err != nil {
		return nil, fmt.Errorf("finding teams: %w", err)
	}
	out := make([]store.AuctionTeam, 0, len(rows))
	for _, row := range rows {
		t, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}
	return out, nil
}

func (r *AuctionRepo) GetTeam(ctx context.Context, teamID string) (*store.AuctionTeam, error) {
	var row teamRow
	err := r.db.GetContext(ctx, &row, `SELECT `+teamColumns+` FROM auction_teams WHERE id = $1`, teamID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, autxerr.NotFound("team_not_found")
	}
	if err != nil {
		return nil, fmt.Errorf("getting team: %w", err)
	}
	return row.toDomain()
}

func (r *AuctionRepo) CreateTeam(ctx context.Context, t *store.AuctionTeam) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	t.CreatedAt = r.clock.Now().UTC()
	if t.PurseRemaining == 0 {
		t.PurseRemaining = t.PurseValue
	}
	players, err := json.Marshal(t.Players)
	if err != nil {
		return fmt.Errorf("encoding team players: %w", err)
	}
	retained, err := json.Marshal(t.RetainedPlayers)
	if err != nil {
		return fmt.Errorf("encoding retained players: %w", err)
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO auction_teams (id, auction_id, name, short_name, purse_value, purse_remaining,
			players, retained_players, access_credential_hash, magic_token, is_active, created_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
		t.ID, t.AuctionID, t.Name, t.ShortName, t.PurseValue, t.PurseRemaining,
		players, retained, t.AccessCredentialHash, t.MagicToken, true, t.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("creating team: %w", err)
	}
	return nil
}

func (r *AuctionRepo) FindPlayersByAuctionAndStatus(ctx context.Context, auctionID string, status store.PlayerStatus) ([]store.AuctionPlayer, error) {
	var rows []playerRow
	err := r.db.SelectContext(ctx, &rows,
		`SELECT `+playerColumns+` FROM auction_players WHERE auction_id = $1 AND status = $2 ORDER BY player_number ASC`,
		auctionID, string(status))
	if err != nil {
		return nil, fmt.Errorf("finding players by status: %w", err)
	}
	out := make([]store.AuctionPlayer, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}

func (r *AuctionRepo) GetPlayer(ctx context.Context, playerID string) (*store.AuctionPlayer, error) {
	var row playerRow
	err := r.db.GetContext(ctx, &row, `SELECT `+playerColumns+` FROM auction_players WHERE id = $1`, playerID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, autxerr.NotFound("player_not_found")
	}
	if err != nil {
		return nil, fmt.Errorf("getting player: %w", err)
	}
	p := row.toDomain()
	return &p, nil
}

func (r *AuctionRepo) CreatePlayer(ctx context.Context, p *store.AuctionPlayer) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	p.CreatedAt = r.clock.Now().UTC()
	if p.Status == "" {
		p.Status = store.PlayerPool
	}
	fields, err := json.Marshal(p.CustomFields)
	if err != nil {
		return fmt.Errorf("encoding custom fields: %w", err)
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO auction_players (id, auction_id, player_number, name, role, custom_fields, status, is_disqualified, created_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		p.ID, p.AuctionID, p.PlayerNumber, p.Name, p.Role, fields, string(p.Status), p.IsDisqualified, p.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("creating player: %w", err)
	}
	return nil
}

func (r *AuctionRepo) FindTradesByAuctionAndStatus(ctx context.Context, auctionID string, statuses ...store.TradeStatus) ([]store.AuctionTrade, error) {
	if len(statuses) == 0 {
		return r.findTrades(ctx, `SELECT `+tradeColumns+` FROM auction_trades WHERE auction_id = $1 ORDER BY created_at ASC`, auctionID)
	}
	query, args := expandTradeStatusQuery(auctionID, statuses)
	return r.findTrades(ctx, query, args...)
}

func expandTradeStatusQuery(auctionID string, statuses []store.TradeStatus) (string, []any) {
	args := []any{auctionID}
	q := `SELECT ` + tradeColumns + ` FROM auction_trades WHERE auction_id = $1 AND status IN (`
	for i, s := range statuses {
		if i > 0 {
			q += ","
		}
		args = append(args, string(s))
		q += fmt.Sprintf("$%d", len(args))
	}
	q += `) ORDER BY created_at ASC`
	return q, args
}

func (r *AuctionRepo) FindTradesByPlayer(ctx context.Context, auctionID, playerID string) ([]store.AuctionTrade, error) {
	trades, err := r.findTrades(ctx, `SELECT `+tradeColumns+` FROM auction_trades WHERE auction_id = $1 ORDER BY created_at ASC`, auctionID)
	if err != nil {
		return nil, err
	}
	out := trades[:0]
	for _, t := range trades {
		if tradeHasPlayer(t, playerID) {
			out = append(out, t)
		}
	}
	return out, nil
}

func tradeHasPlayer(t store.AuctionTrade, playerID string) bool {
	for _, p := range t.InitiatorPlayers {
		if p.PlayerID == playerID {
			return true
		}
	}
	for _, p := range t.CounterpartyPlayers {
		if p.PlayerID == playerID {
			return true
		}
	}
	return false
}

func (r *AuctionRepo) findTrades(ctx context.Context, query string, args ...any) ([]store.AuctionTrade, error) {
	var rows []tradeRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("finding trades: %w", err)
	}
	out := make([]store.AuctionTrade, 0, len(rows))
	for _, row := range rows {
		t, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}
	return out, nil
}

func (r *AuctionRepo) GetTrade(ctx context.Context, tradeID string) (*store.AuctionTrade, error) {
	var row tradeRow
	err := r.db.GetContext(ctx, &row, `SELECT `+tradeColumns+` FROM auction_trades WHERE id = $1`, tradeID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, autxerr.NotFound("trade_not_found")
	}
	if err != nil {
		return nil, fmt.Errorf("getting trade: %w", err)
	}
	return row.toDomain()
}

func (r *AuctionRepo) CreateTrade(ctx context.Context, t *store.AuctionTrade) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	now := r.clock.Now().UTC()
	t.CreatedAt, t.UpdatedAt = now, now
	if t.Status == "" {
		t.Status = store.TradePendingCounterparty
	}
	ip, err := json.Marshal(t.InitiatorPlayers)
	if err != nil {
		return fmt.Errorf("encoding initiator players: %w", err)
	}
	cp, err := json.Marshal(t.CounterpartyPlayers)
	if err != nil {
		return fmt.Errorf("encoding counterparty players: %w", err)
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO auction_trades (id, auction_id, initiator_team_id, counterparty_team_id,
			initiator_players, counterparty_players, status, initiator_total_value, counterparty_total_value,
			settlement_amount, settlement_direction, purse_settlement_enabled, public_announcement, message,
			created_at, updated_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)`,
		t.ID, t.AuctionID, t.InitiatorTeamID, t.CounterpartyTeamID,
		ip, cp, string(t.Status), t.InitiatorTotalValue, t.CounterpartyTotalValue,
		t.SettlementAmount, string(t.SettlementDirection), t.PurseSettlementEnabled, t.PublicAnnouncement, t.Message,
		t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("creating trade: %w", err)
	}
	return nil
}

func (r *AuctionRepo) FindBidAudit(ctx context.Context, auctionID string, limit int) ([]store.BidAuditLog, error) {
	var logs []store.BidAuditLog
	err := r.db.SelectContext(ctx, &logs,
		`SELECT id, auction_id, player_id, team_id, attempted_amount, type, reason, timestamp
		 FROM bid_audit_logs WHERE auction_id = $1 ORDER BY timestamp DESC LIMIT $2`, auctionID, limit)
	if err != nil {
		return nil, fmt.Errorf("finding bid audit log: %w", err)
	}
	return logs, nil
}

// Apply commits every part of m in a single transaction (§4.1 d): the
// Auction CAS update, team/player/trade upserts, the optional bid-audit
// row, and the ActionEvent append.
func (r *AuctionRepo) Apply(ctx context.Context, m store.Mutation) (int, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if m.Auction != nil {
		if err := applyAuctionUpdate(ctx, tx, m.Auction, m.ExpectedVersion); err != nil {
			return 0, err
		}
	}
	for i := range m.Teams {
		if err := applyTeamUpdate(ctx, tx, &m.Teams[i]); err != nil {
			return 0, err
		}
	}
	for i := range m.Players {
		if err := applyPlayerUpdate(ctx, tx, &m.Players[i]); err != nil {
			return 0, err
		}
	}
	for i := range m.Trades {
		if err := applyTradeUpdate(ctx, tx, &m.Trades[i]); err != nil {
			return 0, err
		}
	}
	if m.BidAudit != nil {
		if err := insertBidAudit(ctx, tx, m.BidAudit); err != nil {
			return 0, err
		}
	}

	seq, err := nextSequenceNumber(ctx, tx, m.Event.AuctionID)
	if err != nil {
		return 0, err
	}
	m.Event.SequenceNumber = seq
	if m.Event.ID == "" {
		m.Event.ID = uuid.NewString()
	}
	if err := appendEvents(ctx, tx, []event.Event{m.Event}); err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing mutation: %w", err)
	}
	return seq, nil
}

func nextSequenceNumber(ctx context.Context, tx *sqlx.Tx, auctionID string) (int, error) {
	var max sql.NullInt64
	err := tx.GetContext(ctx, &max,
		`SELECT MAX(sequence_number) FROM action_events WHERE auction_id = $1 FOR UPDATE`, auctionID)
	if err != nil {
		return 0, fmt.Errorf("computing next sequence number: %w", err)
	}
	if !max.Valid {
		return 1, nil
	}
	return int(max.Int64) + 1, nil
}

func applyAuctionUpdate(ctx context.Context, tx *sqlx.Tx, a *store.Auction, expectedVersion int) error {
	tiers, err := json.Marshal(a.BidIncrementTiers)
	if err != nil {
		return fmt.Errorf("encoding bid_increment_tiers: %w", err)
	}
	remaining, err := json.Marshal(a.RemainingPlayerIDs)
	if err != nil {
		return fmt.Errorf("encoding remaining_player_ids: %w", err)
	}
	result, err := tx.ExecContext(ctx,
		`UPDATE auctions SET version = version + 1, status = $1, current_player_id = $2,
			current_bid_amount = $3, current_bidder_team_id = $4, current_timer_phase = $5,
			current_phase_deadline = $6, remaining_player_ids = $7, trade_window_ends_at = $8,
			finalized_at = $9, current_round = $10, bid_increment_tiers = $11, updated_at = $12
		 WHERE id = $13 AND version = $14`,
		string(a.Status), a.CurrentPlayerID, a.CurrentBidAmount, a.CurrentBidderTeamID, string(a.CurrentTimerPhase),
		nullableTime(a.CurrentPhaseDeadline), remaining, a.TradeWindowEndsAt, a.FinalizedAt, a.CurrentRound, tiers,
		a.UpdatedAt, a.ID, expectedVersion,
	)
	if err != nil {
		return fmt.Errorf("updating auction: %w", err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return autxerr.StateConflict("stale_version")
	}
	a.Version = expectedVersion + 1
	return nil
}

func nullableTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}

func applyTeamUpdate(ctx context.Context, tx *sqlx.Tx, t *store.AuctionTeam) error {
	players, err := json.Marshal(t.Players)
	if err != nil {
		return fmt.Errorf("encoding team players: %w", err)
	}
	retained, err := json.Marshal(t.RetainedPlayers)
	if err != nil {
		return fmt.Errorf("encoding retained players: %w", err)
	}
	_, err = tx.ExecContext(ctx,
		`UPDATE auction_teams SET purse_remaining = $1, players = $2, retained_players = $3, is_active = $4 WHERE id = $5`,
		t.PurseRemaining, players, retained, t.IsActive, t.ID,
	)
	if err != nil {
		return fmt.Errorf("updating team %s: %w", t.ID, err)
	}
	return nil
}

func applyPlayerUpdate(ctx context.Context, tx *sqlx.Tx, p *store.AuctionPlayer) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE auction_players SET status = $1, sold_to = $2, sold_amount = $3, sold_in_round = $4, is_disqualified = $5 WHERE id = $6`,
		string(p.Status), p.SoldTo, p.SoldAmount, p.SoldInRound, p.IsDisqualified, p.ID,
	)
	if err != nil {
		return fmt.Errorf("updating player %s: %w", p.ID, err)
	}
	return nil
}

func applyTradeUpdate(ctx context.Context, tx *sqlx.Tx, t *store.AuctionTrade) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE auction_trades SET status = $1, settlement_amount = $2, settlement_direction = $3, reject_reason = $4, updated_at = $5 WHERE id = $6`,
		string(t.Status), t.SettlementAmount, string(t.SettlementDirection), t.RejectReason, t.UpdatedAt, t.ID,
	)
	if err != nil {
		return fmt.Errorf("updating trade %s: %w", t.ID, err)
	}
	return nil
}

func insertBidAudit(ctx context.Context, tx *sqlx.Tx, b *store.BidAuditLog) error {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	_, err := tx.ExecContext(ctx,
		`INSERT INTO bid_audit_logs (id, auction_id, player_id, team_id, attempted_amount, type, reason, timestamp)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		b.ID, b.AuctionID, b.PlayerID, b.TeamID, b.AttemptedAmount, string(b.Type), b.Reason, b.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("inserting bid audit: %w", err)
	}
	return nil
}
