package httpapi

import "net/http"

type proposeTradeRequest struct {
	InitiatorTeamID       string   `json:"initiator_team_id"`
	CounterpartyTeamID    string   `json:"counterparty_team_id"`
	InitiatorPlayerIDs    []string `json:"initiator_players"`
	CounterpartyPlayerIDs []string `json:"counterparty_players"`
	Message               string   `json:"message"`
}

// proposeTrade locks the initiator's named players and persists a
// pending_counterparty proposal (§4.6, §6 POST /auctions/:id/trades).
func (s *Server) proposeTrade(w http.ResponseWriter, r *http.Request) {
	id := pathVar(r, "id")
	var req proposeTradeRequest
	if err := decodeJSON(r, &req); err != nil {
		s.reply(w, r, nil, err)
		return
	}
	if err := requireNonEmpty("initiator_team_id", req.InitiatorTeamID); err != nil {
		s.reply(w, r, nil, err)
		return
	}
	if err := requireNonEmpty("counterparty_team_id", req.CounterpartyTeamID); err != nil {
		s.reply(w, r, nil, err)
		return
	}
	c, err := s.coordinator(r.Context(), id)
	if err != nil {
		s.reply(w, r, nil, err)
		return
	}
	tradeID, err := c.ProposeTrade(r.Context(), req.InitiatorTeamID, req.CounterpartyTeamID, req.InitiatorPlayerIDs, req.CounterpartyPlayerIDs, req.Message)
	if err != nil {
		s.reply(w, r, nil, err)
		return
	}
	s.reply(w, r, map[string]string{"trade_id": tradeID}, nil)
}

type adminInitiateTradeRequest struct {
	InitiatorTeamID       string   `json:"initiator_team_id"`
	CounterpartyTeamID    string   `json:"counterparty_team_id"`
	InitiatorPlayerIDs    []string `json:"initiator_players"`
	CounterpartyPlayerIDs []string `json:"counterparty_players"`
}

// adminInitiateTrade bypasses counterparty acceptance, executing the swap in
// one step (§4.6, §6 POST /auctions/:id/trades/admin-initiate).
func (s *Server) adminInitiateTrade(w http.ResponseWriter, r *http.Request) {
	id := pathVar(r, "id")
	var req adminInitiateTradeRequest
	if err := decodeJSON(r, &req); err != nil {
		s.reply(w, r, nil, err)
		return
	}
	c, err := s.coordinator(r.Context(), id)
	if err != nil {
		s.reply(w, r, nil, err)
		return
	}
	err = c.AdminInitiateTrade(r.Context(), req.InitiatorTeamID, req.CounterpartyTeamID, req.InitiatorPlayerIDs, req.CounterpartyPlayerIDs, actorFrom(r))
	s.reply(w, r, nil, err)
}

func (s *Server) acceptTrade(w http.ResponseWriter, r *http.Request) {
	id, tradeID := pathVar(r, "id"), pathVar(r, "tid")
	c, err := s.coordinator(r.Context(), id)
	if err != nil {
		s.reply(w, r, nil, err)
		return
	}
	err = c.AcceptTrade(r.Context(), tradeID)
	s.reply(w, r, nil, err)
}

type rejectTradeRequest struct {
	Reason string `json:"reason"`
}

func (s *Server) rejectTrade(w http.ResponseWriter, r *http.Request) {
	id, tradeID := pathVar(r, "id"), pathVar(r, "tid")
	var req rejectTradeRequest
	if err := decodeOptionalJSON(r, &req); err != nil {
		s.reply(w, r, nil, err)
		return
	}
	c, err := s.coordinator(r.Context(), id)
	if err != nil {
		s.reply(w, r, nil, err)
		return
	}
	reason := req.Reason
	if reason == "" {
		reason = "rejected by counterparty"
	}
	err = c.RejectTrade(r.Context(), tradeID, reason)
	s.reply(w, r, nil, err)
}

func (s *Server) withdrawTrade(w http.ResponseWriter, r *http.Request) {
	id, tradeID := pathVar(r, "id"), pathVar(r, "tid")
	c, err := s.coordinator(r.Context(), id)
	if err != nil {
		s.reply(w, r, nil, err)
		return
	}
	err = c.WithdrawTrade(r.Context(), tradeID)
	s.reply(w, r, nil, err)
}

// adminApproveTrade executes a both_agreed trade (§4.6 execute, §6 PATCH
// .../admin-approve).
func (s *Server) adminApproveTrade(w http.ResponseWriter, r *http.Request) {
	id, tradeID := pathVar(r, "id"), pathVar(r, "tid")
	c, err := s.coordinator(r.Context(), id)
	if err != nil {
		s.reply(w, r, nil, err)
		return
	}
	err = c.ExecuteTrade(r.Context(), tradeID, actorFrom(r))
	s.reply(w, r, nil, err)
}

func (s *Server) adminRejectTrade(w http.ResponseWriter, r *http.Request) {
	id, tradeID := pathVar(r, "id"), pathVar(r, "tid")
	var req rejectTradeRequest
	if err := decodeOptionalJSON(r, &req); err != nil {
		s.reply(w, r, nil, err)
		return
	}
	c, err := s.coordinator(r.Context(), id)
	if err != nil {
		s.reply(w, r, nil, err)
		return
	}
	reason := req.Reason
	if reason == "" {
		reason = "rejected by admin"
	}
	err = c.RejectTrade(r.Context(), tradeID, reason)
	s.reply(w, r, nil, err)
}
