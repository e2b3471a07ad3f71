package httpapi

import "net/http"

// disqualifyPlayer refunds the purse (if sold) and removes the player from
// competition (§4.5 disqualify, §6 POST /auctions/:id/players/:pid/disqualify).
func (s *Server) disqualifyPlayer(w http.ResponseWriter, r *http.Request) {
	id := pathVar(r, "id")
	playerID := pathVar(r, "pid")
	c, err := s.coordinator(r.Context(), id)
	if err != nil {
		s.reply(w, r, nil, err)
		return
	}
	err = c.Disqualify(r.Context(), playerID, actorFrom(r))
	s.reply(w, r, nil, err)
}
