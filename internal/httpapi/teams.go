package httpapi

import "net/http"

type adjustPurseRequest struct {
	Delta  int    `json:"delta"`
	Reason string `json:"reason"`
}

// adjustPurse applies an admin-directed purse delta, positive or negative
// (§6 POST /auctions/:id/teams/:tid/adjust-purse).
func (s *Server) adjustPurse(w http.ResponseWriter, r *http.Request) {
	id := pathVar(r, "id")
	teamID := pathVar(r, "tid")
	var req adjustPurseRequest
	if err := decodeJSON(r, &req); err != nil {
		s.reply(w, r, nil, err)
		return
	}
	c, err := s.coordinator(r.Context(), id)
	if err != nil {
		s.reply(w, r, nil, err)
		return
	}
	err = c.AdjustPurse(r.Context(), teamID, req.Delta, req.Reason, actorFrom(r))
	s.reply(w, r, nil, err)
}
