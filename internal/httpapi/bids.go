package httpapi

import "net/http"

type placeBidRequest struct {
	TeamID string `json:"team_id"`
	Amount int    `json:"amount"`
}

// placeBid submits a bid attempt to the Bidding Arbiter (§4.4, §6 POST
// /auctions/:id/bids). A rejection is returned in the same {ok:false,
// error} envelope as any other validation failure; the private
// BID_REJECTED notice to the bidding team travels over the realtime
// channel, not this response (§4.4, §7).
func (s *Server) placeBid(w http.ResponseWriter, r *http.Request) {
	id := pathVar(r, "id")
	var req placeBidRequest
	if err := decodeJSON(r, &req); err != nil {
		s.reply(w, r, nil, err)
		return
	}
	if err := requireNonEmpty("team_id", req.TeamID); err != nil {
		s.reply(w, r, nil, err)
		return
	}
	c, err := s.coordinator(r.Context(), id)
	if err != nil {
		s.reply(w, r, nil, err)
		return
	}
	err = c.PlaceBid(r.Context(), req.TeamID, req.Amount)
	s.reply(w, r, nil, err)
}
