package auction_test

import (
	"context"
	"sync"

	"github.com/abhinavece/auctionhub/internal/autxerr"
	"github.com/abhinavece/auctionhub/internal/event"
	"github.com/abhinavece/auctionhub/internal/store"
	"github.com/google/uuid"
)

// memStore is an in-memory store.AuctionStore + event.Store good enough to
// drive a Coordinator end to end in tests: it mirrors the compare-and-swap
// and single-transaction-append semantics of the postgres backend (§4.1)
// without a database underneath.
type memStore struct {
	mu       sync.Mutex
	auctions map[string]*store.Auction
	teams    map[string]*store.AuctionTeam
	players  map[string]*store.AuctionPlayer
	trades   map[string]*store.AuctionTrade
	events   map[string][]event.Event
}

func newMemStore() *memStore {
	return &memStore{
		auctions: map[string]*store.Auction{},
		teams:    map[string]*store.AuctionTeam{},
		players:  map[string]*store.AuctionPlayer{},
		trades:   map[string]*store.AuctionTrade{},
		events:   map[string][]event.Event{},
	}
}

func (s *memStore) GetAuction(ctx context.Context, id string) (*store.Auction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.auctions[id]
	if !ok {
		return nil, autxerr.NotFound("auction_not_found")
	}
	cp := *a
	return &cp, nil
}

func (s *memStore) GetAuctionBySlug(ctx context.Context, slug string) (*store.Auction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.auctions {
		if a.Slug == slug {
			cp := *a
			return &cp, nil
		}
	}
	return nil, autxerr.NotFound("auction_not_found")
}

func (s *memStore) CreateAuction(ctx context.Context, a *store.Auction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	cp := *a
	s.auctions[a.ID] = &cp
	return nil
}

func (s *memStore) ListLiveAuctions(ctx context.Context) ([]store.Auction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []store.Auction
	for _, a := range s.auctions {
		if a.Status == store.StatusLive || a.Status == store.StatusPaused {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (s *memStore) FindTeamsByAuction(ctx context.Context, auctionID string) ([]store.AuctionTeam, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []store.AuctionTeam
	for _, t := range s.teams {
		if t.AuctionID == auctionID {
			out = append(out, *t)
		}
	}
	return out, nil
}

func (s *memStore) FindActiveTeamsByAuction(ctx context.Context, auctionID string) ([]store.AuctionTeam, error) {
	all, _ := s.FindTeamsByAuction(ctx, auctionID)
	var out []store.AuctionTeam
	for _, t := range all {
		if t.IsActive {
			out = append(out, t)
		}
	}
	return out, nil
}

func (s *memStore) GetTeam(ctx context.Context, teamID string) (*store.AuctionTeam, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.teams[teamID]
	if !ok {
		return nil, autxerr.NotFound("team_not_found")
	}
	cp := *t
	return &cp, nil
}

func (s *memStore) CreateTeam(ctx context.Context, t *store.AuctionTeam) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	cp := *t
	s.teams[t.ID] = &cp
	return nil
}

func (s *memStore) FindPlayersByAuctionAndStatus(ctx context.Context, auctionID string, status store.PlayerStatus) ([]store.AuctionPlayer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []store.AuctionPlayer
	for _, p := range s.players {
		if p.AuctionID == auctionID && p.Status == status {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (s *memStore) GetPlayer(ctx context.Context, playerID string) (*store.AuctionPlayer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.players[playerID]
	if !ok {
		return nil, autxerr.NotFound("player_not_found")
	}
	cp := *p
	return &cp, nil
}

func (s *memStore) CreatePlayer(ctx context.Context, p *store.AuctionPlayer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	cp := *p
	s.players[p.ID] = &cp
	return nil
}

func (s *memStore) FindTradesByAuctionAndStatus(ctx context.Context, auctionID string, statuses ...store.TradeStatus) ([]store.AuctionTrade, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	want := make(map[store.TradeStatus]bool, len(statuses))
	for _, st := range statuses {
		want[st] = true
	}
	var out []store.AuctionTrade
	for _, t := range s.trades {
		if t.AuctionID != auctionID {
			continue
		}
		if len(statuses) == 0 || want[t.Status] {
			out = append(out, *t)
		}
	}
	return out, nil
}

func (s *memStore) FindTradesByPlayer(ctx context.Context, auctionID, playerID string) ([]store.AuctionTrade, error) {
	all, _ := s.FindTradesByAuctionAndStatus(ctx, auctionID)
	var out []store.AuctionTrade
	for _, t := range all {
		if tradeReferencesPlayer(t, playerID) {
			out = append(out, t)
		}
	}
	return out, nil
}

func tradeReferencesPlayer(t store.AuctionTrade, playerID string) bool {
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

func (s *memStore) GetTrade(ctx context.Context, tradeID string) (*store.AuctionTrade, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.trades[tradeID]
	if !ok {
		return nil, autxerr.NotFound("trade_not_found")
	}
	cp := *t
	return &cp, nil
}

func (s *memStore) CreateTrade(ctx context.Context, t *store.AuctionTrade) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.Status == "" {
		t.Status = store.TradePendingCounterparty
	}
	t.CreatedAt = t.UpdatedAt
	cp := *t
	s.trades[t.ID] = &cp
	return nil
}

func (s *memStore) FindBidAudit(ctx context.Context, auctionID string, limit int) ([]store.BidAuditLog, error) {
	return nil, nil
}

// Apply mirrors the postgres backend's single-transaction semantics: the
// Auction CAS check runs first (version mismatch aborts the whole mutation),
// then every row commits together with one ActionEvent append.
func (s *memStore) Apply(ctx context.Context, m store.Mutation) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if m.Auction != nil {
		cur, ok := s.auctions[m.Auction.ID]
		if !ok {
			return 0, autxerr.NotFound("auction_not_found")
		}
		if cur.Version != m.ExpectedVersion {
			return 0, autxerr.StateConflict("stale_version")
		}
	}

	if m.Auction != nil {
		next := *m.Auction
		next.Version = m.ExpectedVersion + 1
		s.auctions[next.ID] = &next
	}
	for i := range m.Teams {
		t := m.Teams[i]
		s.teams[t.ID] = &t
	}
	for i := range m.Players {
		p := m.Players[i]
		s.players[p.ID] = &p
	}
	for i := range m.Trades {
		t := m.Trades[i]
		s.trades[t.ID] = &t
	}

	seq := len(s.events[m.Event.AuctionID]) + 1
	m.Event.SequenceNumber = seq
	if m.Event.ID == "" {
		m.Event.ID = uuid.NewString()
	}
	s.events[m.Event.AuctionID] = append(s.events[m.Event.AuctionID], m.Event)
	return seq, nil
}

// --- event.Store ---

func (s *memStore) Append(ctx context.Context, events ...event.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range events {
		seq := len(s.events[e.AuctionID]) + 1
		e.SequenceNumber = seq
		s.events[e.AuctionID] = append(s.events[e.AuctionID], e)
	}
	return nil
}

func (s *memStore) Load(ctx context.Context, auctionID string) ([]event.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]event.Event{}, s.events[auctionID]...), nil
}

func (s *memStore) Tail(ctx context.Context, auctionID string, n int) ([]event.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	all := s.events[auctionID]
	if len(all) <= n {
		return append([]event.Event{}, all...), nil
	}
	return append([]event.Event{}, all[len(all)-n:]...), nil
}

func (s *memStore) LoadByType(ctx context.Context, eventType event.Type) ([]event.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []event.Event
	for _, evs := range s.events {
		for _, e := range evs {
			if e.Type == eventType {
				out = append(out, e)
			}
		}
	}
	return out, nil
}
