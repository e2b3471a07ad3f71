package httpapi

import (
	"net/http"
	"time"

	"github.com/abhinavece/auctionhub/internal/auction"
	"github.com/abhinavece/auctionhub/internal/autxerr"
	"github.com/abhinavece/auctionhub/internal/store"
)

// createAuctionRequest carries the subset of Auction configuration a create
// call may set (§6 POST /auctions). Omitted timer, squad-size, trade-window,
// trade-limit, undo and requeue fields fall back to the server's
// AuctionDefaults; omitted base price, purse, retention, settlement and
// randomize fields fall back to zero or false, and an omitted tier list
// becomes a single tier of increment 10 from threshold 0. Durations are expressed in seconds on the wire,
// matching spec §3's "timerDuration seconds" phrasing.
type createAuctionRequest struct {
	Slug                   string                   `json:"slug"`
	BasePrice              *int                     `json:"base_price,omitempty"`
	PurseValue             *int                     `json:"purse_value,omitempty"`
	BidIncrementTiers      []store.BidIncrementTier `json:"bid_increment_tiers,omitempty"`
	TimerDurationSeconds   *int                     `json:"timer_duration_seconds,omitempty"`
	BidResetTimerSeconds   *int                     `json:"bid_reset_timer_seconds,omitempty"`
	GoingOnceTimerSeconds  *int                     `json:"going_once_timer_seconds,omitempty"`
	GoingTwiceTimerSeconds *int                     `json:"going_twice_timer_seconds,omitempty"`
	MinSquadSize           *int                     `json:"min_squad_size,omitempty"`
	MaxSquadSize           *int                     `json:"max_squad_size,omitempty"`
	RetentionEnabled       *bool                    `json:"retention_enabled,omitempty"`
	MaxRetentions          *int                     `json:"max_retentions,omitempty"`
	RetentionCost          *int                     `json:"retention_cost,omitempty"`
	TradeWindowHours       *int                     `json:"trade_window_hours,omitempty"`
	MaxTradesPerTeam       *int                     `json:"max_trades_per_team,omitempty"`
	TradeSettlementEnabled *bool                    `json:"trade_settlement_enabled,omitempty"`
	MaxUndoActions         *int                     `json:"max_undo_actions,omitempty"`
	RandomizePoolOrder     *bool                    `json:"randomize_pool_order,omitempty"`
	RequeuePolicy          *string                  `json:"requeue_policy,omitempty"`
}

func intOr(p *int, fallback int) int {
	if p != nil {
		return *p
	}
	return fallback
}

func secondsOr(p *int, fallback time.Duration) time.Duration {
	if p != nil {
		return time.Duration(*p) * time.Second
	}
	return fallback
}

func boolOr(p *bool, fallback bool) bool {
	if p != nil {
		return *p
	}
	return fallback
}

func stringOr(p *string, fallback string) string {
	if p != nil {
		return *p
	}
	return fallback
}

func (s *Server) createAuction(w http.ResponseWriter, r *http.Request) {
	var req createAuctionRequest
	if err := decodeJSON(r, &req); err != nil {
		s.reply(w, r, nil, err)
		return
	}
	if err := requireNonEmpty("slug", req.Slug); err != nil {
		s.reply(w, r, nil, err)
		return
	}

	d := s.defaults
	a := &store.Auction{
		Slug:               req.Slug,
		Status:             store.StatusDraft,
		BasePrice:          intOr(req.BasePrice, 0),
		PurseValue:         intOr(req.PurseValue, 0),
		BidIncrementTiers:  req.BidIncrementTiers,
		TimerDuration:      secondsOr(req.TimerDurationSeconds, d.TimerDuration),
		BidResetTimer:      secondsOr(req.BidResetTimerSeconds, d.BidResetTimer),
		GoingOnceTimer:     secondsOr(req.GoingOnceTimerSeconds, d.GoingOnceTimer),
		GoingTwiceTimer:    secondsOr(req.GoingTwiceTimerSeconds, d.GoingTwiceTimer),
		MinSquadSize:       intOr(req.MinSquadSize, d.MinSquadSize),
		MaxSquadSize:       intOr(req.MaxSquadSize, d.MaxSquadSize),
		RetentionEnabled:   boolOr(req.RetentionEnabled, false),
		MaxRetentions:      intOr(req.MaxRetentions, 0),
		RetentionCost:      intOr(req.RetentionCost, 0),
		TradeWindowHours:   intOr(req.TradeWindowHours, d.TradeWindowHours),
		MaxTradesPerTeam:   intOr(req.MaxTradesPerTeam, d.MaxTradesPerTeam),
		TradeSettlementOn:  boolOr(req.TradeSettlementEnabled, false),
		MaxUndoActions:     intOr(req.MaxUndoActions, d.MaxUndoActions),
		RandomizePoolOrder: boolOr(req.RandomizePoolOrder, false),
		RequeuePolicy:      stringOr(req.RequeuePolicy, d.RequeuePolicy),
	}
	if len(a.BidIncrementTiers) == 0 {
		a.BidIncrementTiers = []store.BidIncrementTier{{Threshold: 0, Increment: 10}}
	}

	if err := s.store.CreateAuction(r.Context(), a); err != nil {
		s.reply(w, r, nil, autxerr.Wrap(autxerr.KindTransient, "creating_auction_failed", err))
		return
	}
	s.reply(w, r, map[string]string{"id": a.ID, "slug": a.Slug, "status": string(a.Status)}, nil)
}

func applyCreatePatch(req createAuctionRequest) auction.ConfigPatch {
	patch := auction.ConfigPatch{
		BasePrice:          req.BasePrice,
		PurseValue:         req.PurseValue,
		BidIncrementTiers:  req.BidIncrementTiers,
		MinSquadSize:       req.MinSquadSize,
		MaxSquadSize:       req.MaxSquadSize,
		RetentionEnabled:   req.RetentionEnabled,
		MaxRetentions:      req.MaxRetentions,
		RetentionCost:      req.RetentionCost,
		TradeWindowHours:   req.TradeWindowHours,
		MaxTradesPerTeam:   req.MaxTradesPerTeam,
		TradeSettlementOn:  req.TradeSettlementEnabled,
		MaxUndoActions:     req.MaxUndoActions,
		RandomizePoolOrder: req.RandomizePoolOrder,
		RequeuePolicy:      req.RequeuePolicy,
	}
	if req.TimerDurationSeconds != nil {
		d := time.Duration(*req.TimerDurationSeconds) * time.Second
		patch.TimerDuration = &d
	}
	if req.BidResetTimerSeconds != nil {
		d := time.Duration(*req.BidResetTimerSeconds) * time.Second
		patch.BidResetTimer = &d
	}
	if req.GoingOnceTimerSeconds != nil {
		d := time.Duration(*req.GoingOnceTimerSeconds) * time.Second
		patch.GoingOnceTimer = &d
	}
	if req.GoingTwiceTimerSeconds != nil {
		d := time.Duration(*req.GoingTwiceTimerSeconds) * time.Second
		patch.GoingTwiceTimer = &d
	}
	return patch
}

func (s *Server) updateConfig(w http.ResponseWriter, r *http.Request) {
	id := pathVar(r, "id")
	var req createAuctionRequest
	if err := decodeJSON(r, &req); err != nil {
		s.reply(w, r, nil, err)
		return
	}
	c, err := s.coordinator(r.Context(), id)
	if err != nil {
		s.reply(w, r, nil, err)
		return
	}
	err = c.UpdateConfig(r.Context(), applyCreatePatch(req), actorFrom(r))
	s.reply(w, r, nil, err)
}

func (s *Server) configure(w http.ResponseWriter, r *http.Request) {
	id := pathVar(r, "id")
	c, err := s.coordinator(r.Context(), id)
	if err != nil {
		s.reply(w, r, nil, err)
		return
	}
	err = c.Configure(r.Context(), actorFrom(r))
	s.reply(w, r, nil, err)
}

func (s *Server) goLive(w http.ResponseWriter, r *http.Request) {
	id := pathVar(r, "id")
	c, err := s.coordinator(r.Context(), id)
	if err != nil {
		s.reply(w, r, nil, err)
		return
	}
	err = c.GoLive(r.Context(), actorFrom(r))
	s.reply(w, r, nil, err)
}

func (s *Server) pause(w http.ResponseWriter, r *http.Request) {
	id := pathVar(r, "id")
	c, err := s.coordinator(r.Context(), id)
	if err != nil {
		s.reply(w, r, nil, err)
		return
	}
	err = c.Pause(r.Context(), actorFrom(r))
	s.reply(w, r, nil, err)
}

func (s *Server) resume(w http.ResponseWriter, r *http.Request) {
	id := pathVar(r, "id")
	c, err := s.coordinator(r.Context(), id)
	if err != nil {
		s.reply(w, r, nil, err)
		return
	}
	err = c.Resume(r.Context(), actorFrom(r))
	s.reply(w, r, nil, err)
}

func (s *Server) complete(w http.ResponseWriter, r *http.Request) {
	id := pathVar(r, "id")
	c, err := s.coordinator(r.Context(), id)
	if err != nil {
		s.reply(w, r, nil, err)
		return
	}
	err = c.Complete(r.Context(), actorFrom(r))
	s.reply(w, r, nil, err)
}

func (s *Server) openTradeWindow(w http.ResponseWriter, r *http.Request) {
	id := pathVar(r, "id")
	c, err := s.coordinator(r.Context(), id)
	if err != nil {
		s.reply(w, r, nil, err)
		return
	}
	err = c.OpenTradeWindow(r.Context(), actorFrom(r))
	s.reply(w, r, nil, err)
}

// finalize ends the auction's engine lifecycle and retires its Coordinator:
// no further commands are expected once AUCTION_FINALIZED has been appended
// (§4.5 finalize), so the Manager stops carrying a run loop for it.
func (s *Server) finalize(w http.ResponseWriter, r *http.Request) {
	id := pathVar(r, "id")
	c, err := s.coordinator(r.Context(), id)
	if err != nil {
		s.reply(w, r, nil, err)
		return
	}
	if err := c.Finalize(r.Context(), actorFrom(r)); err != nil {
		s.reply(w, r, nil, err)
		return
	}
	s.manager.Retire(id)
	s.reply(w, r, nil, nil)
}

func (s *Server) undo(w http.ResponseWriter, r *http.Request) {
	id := pathVar(r, "id")
	c, err := s.coordinator(r.Context(), id)
	if err != nil {
		s.reply(w, r, nil, err)
		return
	}
	err = c.Undo(r.Context(), actorFrom(r))
	s.reply(w, r, nil, err)
}
