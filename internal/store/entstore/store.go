package entstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/abhinavece/auctionhub/internal/autxerr"
	"github.com/abhinavece/auctionhub/internal/clock"
	"github.com/abhinavece/auctionhub/internal/event"
	"github.com/abhinavece/auctionhub/internal/store"
)

// AuctionRepo implements store.AuctionStore using database/sql, the access
// style ent generates under the hood.
type AuctionRepo struct {
	db    *sql.DB
	clock clock.Clock
}

// NewAuctionRepo returns a new AuctionRepo.
func NewAuctionRepo(db *sql.DB, clk clock.Clock) *AuctionRepo {
	return &AuctionRepo{db: db, clock: clk}
}

const auctionColumns = `id, slug, version, base_price, purse_value, bid_increment_tiers,
	timer_duration_ms, bid_reset_timer_ms, going_once_timer_ms, going_twice_timer_ms,
	min_squad_size, max_squad_size, retention_enabled, max_retentions, retention_cost,
	trade_window_hours, max_trades_per_team, trade_settlement_enabled, max_undo_actions,
	randomize_pool_order, requeue_policy, status, current_player_id, current_bid_amount,
	current_bidder_team_id, current_timer_phase, current_phase_deadline, remaining_player_ids,
	trade_window_ends_at, finalized_at, current_round, created_at, updated_at`

func scanAuction(row interface{ Scan(...any) error }) (*store.Auction, error) {
	var a store.Auction
	var tiers, remaining []byte
	var status, phase string
	var currentPlayerID, currentBidderTeamID sql.NullString
	var phaseDeadline, tradeWindowEndsAt, finalizedAt sql.NullTime
	err := row.Scan(&a.ID, &a.Slug, &a.Version, &a.BasePrice, &a.PurseValue, &tiers,
		&a.TimerDuration, &a.BidResetTimer, &a.GoingOnceTimer, &a.GoingTwiceTimer,
		&a.MinSquadSize, &a.MaxSquadSize, &a.RetentionEnabled, &a.MaxRetentions, &a.RetentionCost,
		&a.TradeWindowHours, &a.MaxTradesPerTeam, &a.TradeSettlementOn, &a.MaxUndoActions,
		&a.RandomizePoolOrder, &a.RequeuePolicy, &status, &currentPlayerID, &a.CurrentBidAmount,
		&currentBidderTeamID, &phase, &phaseDeadline, &remaining,
		&tradeWindowEndsAt, &finalizedAt, &a.CurrentRound, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	a.TimerDuration *= time.Millisecond
	a.BidResetTimer *= time.Millisecond
	a.GoingOnceTimer *= time.Millisecond
	a.GoingTwiceTimer *= time.Millisecond
	a.Status = store.AuctionStatus(status)
	a.CurrentTimerPhase = store.TimerPhase(phase)
	if currentPlayerID.Valid {
		a.CurrentPlayerID = &currentPlayerID.String
	}
	if currentBidderTeamID.Valid {
		a.CurrentBidderTeamID = &currentBidderTeamID.String
	}
	if phaseDeadline.Valid {
		a.CurrentPhaseDeadline = phaseDeadline.Time
	}
	if tradeWindowEndsAt.Valid {
		a.TradeWindowEndsAt = &tradeWindowEndsAt.Time
	}
	if finalizedAt.Valid {
		a.FinalizedAt = &finalizedAt.Time
	}
	if err := json.Unmarshal(nilToEmptyArray(tiers), &a.BidIncrementTiers); err != nil {
		return nil, fmt.Errorf("decoding bid_increment_tiers: %w", err)
	}
	if err := json.Unmarshal(nilToEmptyArray(remaining), &a.RemainingPlayerIDs); err != nil {
		return nil, fmt.Errorf("decoding remaining_player_ids: %w", err)
	}
	return &a, nil
}

func nilToEmptyArray(b []byte) []byte {
	if len(b) == 0 {
		return []byte("[]")
	}
	return b
}

func nilToEmptyObject(b []byte) []byte {
	if len(b) == 0 {
		return []byte("{}")
	}
	return b
}

func (r *AuctionRepo) GetAuction(ctx context.Context, id string) (*store.Auction, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+auctionColumns+` FROM auctions WHERE id = $1`, id)
	a, err := scanAuction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, autxerr.NotFound("auction_not_found")
	}
	if err != nil {
		return nil, fmt.Errorf("getting auction: %w", err)
	}
	return a, nil
}

func (r *AuctionRepo) GetAuctionBySlug(ctx context.Context, slug string) (*store.Auction, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+auctionColumns+` FROM auctions WHERE slug = $1`, slug)
	a, err := scanAuction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, autxerr.NotFound("auction_not_found")
	}
	if err != nil {
		return nil, fmt.Errorf("getting auction by slug: %w", err)
	}
	return a, nil
}

func (r *AuctionRepo) ListLiveAuctions(ctx context.Context) ([]store.Auction, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+auctionColumns+` FROM auctions WHERE status IN ('live','paused') ORDER BY created_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("listing live auctions: %w", err)
	}
	defer rows.Close()
	var out []store.Auction
	for rows.Next() {
		a, err := scanAuction(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning auction row: %w", err)
		}
		out = append(out, *a)
	}
	return out, rows.Err()
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

const teamColumns = `id, auction_id, name, short_name, purse_value, purse_remaining,
	players, retained_players, access_credential_hash, magic_token, is_active, created_at`

func scanTeam(row interface{ Scan(...any) error }) (*store.AuctionTeam, error) {
	var t store.AuctionTeam
	var players, retained []byte
	if err := row.Scan(&t.ID, &t.AuctionID, &t.Name, &t.ShortName, &t.PurseValue, &t.PurseRemaining,
		&players, &retained, &t.AccessCredentialHash, &t.MagicToken, &t.IsActive, &t.CreatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(nilToEmptyArray(players), &t.Players); err != nil {
		return nil, fmt.Errorf("decoding team players: %w", err)
	}
	if err := json.Unmarshal(nilToEmptyArray(retained), &t.RetainedPlayers); err != nil {
		return nil, fmt.Errorf("decoding retained players: %w", err)
	}
	return &t, nil
}

func (r *AuctionRepo) FindTeamsByAuction(ctx context.Context, auctionID string) ([]store.AuctionTeam, error) {
	return r.findTeams(ctx, `SELECT `+teamColumns+` FROM auction_teams WHERE auction_id = $1 ORDER BY created_at ASC`, auctionID)
}

func (r *AuctionRepo) FindActiveTeamsByAuction(ctx context.Context, auctionID string) ([]store.AuctionTeam, error) {
	return r.findTeams(ctx, `SELECT `+teamColumns+` FROM auction_teams WHERE auction_id = $1 AND is_active = TRUE ORDER BY created_at ASC`, auctionID)
}

func (r *AuctionRepo) findTeams(ctx context.Context, query string, args ...any) ([]store.AuctionTeam, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("finding teams: %w", err)
	}
	defer rows.Close()
	var out []store.AuctionTeam
	for rows.Next() {
		t, err := scanTeam(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning team row: %w", err)
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}

func (r *AuctionRepo) GetTeam(ctx context.Context, teamID string) (*store.AuctionTeam, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+teamColumns+` FROM auction_teams WHERE id = $1`, teamID)
	t, err := scanTeam(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, autxerr.NotFound("team_not_found")
	}
	if err != nil {
		return nil, fmt.Errorf("getting team: %w", err)
	}
	return t, nil
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

const playerColumns = `id, auction_id, player_number, name, role, custom_fields,
	status, sold_to, sold_amount, sold_in_round, is_disqualified, created_at`

func scanPlayer(row interface{ Scan(...any) error }) (*store.AuctionPlayer, error) {
	var p store.AuctionPlayer
	var fields []byte
	var status string
	var soldTo sql.NullString
	if err := row.Scan(&p.ID, &p.AuctionID, &p.PlayerNumber, &p.Name, &p.Role, &fields,
		&status, &soldTo, &p.SoldAmount, &p.SoldInRound, &p.IsDisqualified, &p.CreatedAt); err != nil {
		return nil, err
	}
	p.Status = store.PlayerStatus(status)
	p.CustomFields = map[string]string{}
	if err := json.Unmarshal(nilToEmptyObject(fields), &p.CustomFields); err != nil {
		return nil, fmt.Errorf("decoding custom fields: %w", err)
	}
	if soldTo.Valid {
		p.SoldTo = &soldTo.String
	}
	return &p, nil
}

func (r *AuctionRepo) FindPlayersByAuctionAndStatus(ctx context.Context, auctionID string, status store.PlayerStatus) ([]store.AuctionPlayer, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+playerColumns+` FROM auction_players WHERE auction_id = $1 AND status = $2 ORDER BY player_number ASC`,
		auctionID, string(status))
	if err != nil {
		return nil, fmt.Errorf("finding players by status: %w", err)
	}
	defer rows.Close()
	var out []store.AuctionPlayer
	for rows.Next() {
		p, err := scanPlayer(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning player row: %w", err)
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

func (r *AuctionRepo) GetPlayer(ctx context.Context, playerID string) (*store.AuctionPlayer, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+playerColumns+` FROM auction_players WHERE id = $1`, playerID)
	p, err := scanPlayer(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, autxerr.NotFound("player_not_found")
	}
	if err != nil {
		return nil, fmt.Errorf("getting player: %w", err)
	}
	return p, nil
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

const tradeColumns = `id, auction_id, initiator_team_id, counterparty_team_id,
	initiator_players, counterparty_players, status, initiator_total_value, counterparty_total_value,
	settlement_amount, settlement_direction, purse_settlement_enabled, public_announcement, message,
	reject_reason, created_at, updated_at`

func scanTrade(row interface{ Scan(...any) error }) (*store.AuctionTrade, error) {
	var t store.AuctionTrade
	var ip, cp []byte
	var status, direction string
	if err := row.Scan(&t.ID, &t.AuctionID, &t.InitiatorTeamID, &t.CounterpartyTeamID,
		&ip, &cp, &status, &t.InitiatorTotalValue, &t.CounterpartyTotalValue,
		&t.SettlementAmount, &direction, &t.PurseSettlementEnabled, &t.PublicAnnouncement, &t.Message,
		&t.RejectReason, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return nil, err
	}
	t.Status = store.TradeStatus(status)
	t.SettlementDirection = store.SettlementDirection(direction)
	if err := json.Unmarshal(nilToEmptyArray(ip), &t.InitiatorPlayers); err != nil {
		return nil, fmt.Errorf("decoding initiator players: %w", err)
	}
	if err := json.Unmarshal(nilToEmptyArray(cp), &t.CounterpartyPlayers); err != nil {
		return nil, fmt.Errorf("decoding counterparty players: %w", err)
	}
	return &t, nil
}

func (r *AuctionRepo) FindTradesByAuctionAndStatus(ctx context.Context, auctionID string, statuses ...store.TradeStatus) ([]store.AuctionTrade, error) {
	if len(statuses) == 0 {
		return r.findTrades(ctx, `SELECT `+tradeColumns+` FROM auction_trades WHERE auction_id = $1 ORDER BY created_at ASC`, auctionID)
	}
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
	return r.findTrades(ctx, q, args...)
}

func (r *AuctionRepo) FindTradesByPlayer(ctx context.Context, auctionID, playerID string) ([]store.AuctionTrade, error) {
	trades, err := r.findTrades(ctx, `SELECT `+tradeColumns+` FROM auction_trades WHERE auction_id = $1 ORDER BY created_at ASC`, auctionID)
	if err != nil {
		return nil, err
	}
	out := trades[:0]
	for _, t := range trades {
		for _, p := range t.InitiatorPlayers {
			if p.PlayerID == playerID {
				out = append(out, t)
			}
		}
		for _, p := range t.CounterpartyPlayers {
			if p.PlayerID == playerID {
				out = append(out, t)
			}
		}
	}
	return out, nil
}

func (r *AuctionRepo) findTrades(ctx context.Context, query string, args ...any) ([]store.AuctionTrade, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("finding trades: %w", err)
	}
	defer rows.Close()
	var out []store.AuctionTrade
	for rows.Next() {
		t, err := scanTrade(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning trade row: %w", err)
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}

func (r *AuctionRepo) GetTrade(ctx context.Context, tradeID string) (*store.AuctionTrade, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+tradeColumns+` FROM auction_trades WHERE id = $1`, tradeID)
	t, err := scanTrade(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, autxerr.NotFound("trade_not_found")
	}
	if err != nil {
		return nil, fmt.Errorf("getting trade: %w", err)
	}
	return t, nil
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
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, auction_id, player_id, team_id, attempted_amount, type, reason, timestamp
		 FROM bid_audit_logs WHERE auction_id = $1 ORDER BY timestamp DESC LIMIT $2`, auctionID, limit)
	if err != nil {
		return nil, fmt.Errorf("finding bid audit log: %w", err)
	}
	defer rows.Close()
	var out []store.BidAuditLog
	for rows.Next() {
		var b store.BidAuditLog
		var typ string
		if err := rows.Scan(&b.ID, &b.AuctionID, &b.PlayerID, &b.TeamID, &b.AttemptedAmount, &typ, &b.Reason, &b.Timestamp); err != nil {
			return nil, fmt.Errorf("scanning bid audit row: %w", err)
		}
		b.Type = store.BidAuditType(typ)
		out = append(out, b)
	}
	return out, rows.Err()
}

// Apply commits every part of m in a single transaction (§4.1 d).
func (r *AuctionRepo) Apply(ctx context.Context, m store.Mutation) (int, error) {
	tx, err := r.db.BeginTx(ctx, nil)
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

	var maxSeq sql.NullInt64
	if err := tx.QueryRowContext(ctx,
		`SELECT MAX(sequence_number) FROM action_events WHERE auction_id = $1 FOR UPDATE`, m.Event.AuctionID,
	).Scan(&maxSeq); err != nil {
		return 0, fmt.Errorf("computing next sequence number: %w", err)
	}
	seq := 1
	if maxSeq.Valid {
		seq = int(maxSeq.Int64) + 1
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

func applyAuctionUpdate(ctx context.Context, tx *sql.Tx, a *store.Auction, expectedVersion int) error {
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

func applyTeamUpdate(ctx context.Context, tx *sql.Tx, t *store.AuctionTeam) error {
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

func applyPlayerUpdate(ctx context.Context, tx *sql.Tx, p *store.AuctionPlayer) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE auction_players SET status = $1, sold_to = $2, sold_amount = $3, sold_in_round = $4, is_disqualified = $5 WHERE id = $6`,
		string(p.Status), p.SoldTo, p.SoldAmount, p.SoldInRound, p.IsDisqualified, p.ID,
	)
	if err != nil {
		return fmt.Errorf("updating player %s: %w", p.ID, err)
	}
	return nil
}

func applyTradeUpdate(ctx context.Context, tx *sql.Tx, t *store.AuctionTrade) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE auction_trades SET status = $1, settlement_amount = $2, settlement_direction = $3, reject_reason = $4, updated_at = $5 WHERE id = $6`,
		string(t.Status), t.SettlementAmount, string(t.SettlementDirection), t.RejectReason, t.UpdatedAt, t.ID,
	)
	if err != nil {
		return fmt.Errorf("updating trade %s: %w", t.ID, err)
	}
	return nil
}

func insertBidAudit(ctx context.Context, tx *sql.Tx, b *store.BidAuditLog) error {
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
