package httpapi_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/abhinavece/auctionhub/internal/auction"
	"github.com/abhinavece/auctionhub/internal/autxerr"
	"github.com/abhinavece/auctionhub/internal/clock"
	"github.com/abhinavece/auctionhub/internal/config"
	"github.com/abhinavece/auctionhub/internal/event"
	"github.com/abhinavece/auctionhub/internal/httpapi"
	"github.com/abhinavece/auctionhub/internal/store"
	"github.com/google/uuid"
)

// fakeStore is a minimal in-memory store.AuctionStore good enough to drive
// the HTTP adapter end to end: create an auction, spawn its coordinator,
// place a bid. It does not attempt the full CAS semantics the real stores
// provide (that's covered by internal/auction's own memStore-backed tests).
type fakeStore struct {
	mu       sync.Mutex
	auctions map[string]*store.Auction
	teams    map[string]*store.AuctionTeam
	players  map[string]*store.AuctionPlayer
	trades   map[string]*store.AuctionTrade
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		auctions: map[string]*store.Auction{},
		teams:    map[string]*store.AuctionTeam{},
		players:  map[string]*store.AuctionPlayer{},
		trades:   map[string]*store.AuctionTrade{},
	}
}

func (s *fakeStore) GetAuction(ctx context.Context, id string) (*store.Auction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.auctions[id]
	if !ok {
		return nil, autxerr.NotFound("auction_not_found")
	}
	cp := *a
	return &cp, nil
}

func (s *fakeStore) GetAuctionBySlug(ctx context.Context, slug string) (*store.Auction, error) {
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

func (s *fakeStore) CreateAuction(ctx context.Context, a *store.Auction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	a.CreatedAt, a.UpdatedAt = time.Now(), time.Now()
	cp := *a
	s.auctions[a.ID] = &cp
	return nil
}

func (s *fakeStore) ListLiveAuctions(ctx context.Context) ([]store.Auction, error) {
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

func (s *fakeStore) FindTeamsByAuction(ctx context.Context, auctionID string) ([]store.AuctionTeam, error) {
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

func (s *fakeStore) FindActiveTeamsByAuction(ctx context.Context, auctionID string) ([]store.AuctionTeam, error) {
	teams, err := s.FindTeamsByAuction(ctx, auctionID)
	if err != nil {
		return nil, err
	}
	var out []store.AuctionTeam
	for _, t := range teams {
		if t.IsActive {
			out = append(out, t)
		}
	}
	return out, nil
}

func (s *fakeStore) GetTeam(ctx context.Context, teamID string) (*store.AuctionTeam, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.teams[teamID]
	if !ok {
		return nil, autxerr.NotFound("team_not_found")
	}
	cp := *t
	return &cp, nil
}

func (s *fakeStore) CreateTeam(ctx context.Context, t *store.AuctionTeam) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	t.CreatedAt = time.Now()
	cp := *t
	s.teams[t.ID] = &cp
	return nil
}

func (s *fakeStore) FindPlayersByAuctionAndStatus(ctx context.Context, auctionID string, status store.PlayerStatus) ([]store.AuctionPlayer, error) {
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

func (s *fakeStore) GetPlayer(ctx context.Context, playerID string) (*store.AuctionPlayer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.players[playerID]
	if !ok {
		return nil, autxerr.NotFound("player_not_found")
	}
	cp := *p
	return &cp, nil
}

func (s *fakeStore) CreatePlayer(ctx context.Context, p *store.AuctionPlayer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	p.CreatedAt = time.Now()
	cp := *p
	s.players[p.ID] = &cp
	return nil
}

func (s *fakeStore) FindTradesByAuctionAndStatus(ctx context.Context, auctionID string, statuses ...store.TradeStatus) ([]store.AuctionTrade, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	want := map[store.TradeStatus]bool{}
	for _, st := range statuses {
		want[st] = true
	}
	var out []store.AuctionTrade
	for _, t := range s.trades {
		if t.AuctionID == auctionID && (len(want) == 0 || want[t.Status]) {
			out = append(out, *t)
		}
	}
	return out, nil
}

func (s *fakeStore) FindTradesByPlayer(ctx context.Context, auctionID, playerID string) ([]store.AuctionTrade, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []store.AuctionTrade
	for _, t := range s.trades {
		if t.AuctionID != auctionID {
			continue
		}
		for _, ref := range append(append([]store.TradePlayerRef{}, t.InitiatorPlayers...), t.CounterpartyPlayers...) {
			if ref.PlayerID == playerID {
				out = append(out, *t)
				break
			}
		}
	}
	return out, nil
}

func (s *fakeStore) GetTrade(ctx context.Context, tradeID string) (*store.AuctionTrade, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.trades[tradeID]
	if !ok {
		return nil, autxerr.NotFound("trade_not_found")
	}
	cp := *t
	return &cp, nil
}

func (s *fakeStore) CreateTrade(ctx context.Context, t *store.AuctionTrade) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	t.CreatedAt, t.UpdatedAt = time.Now(), time.Now()
	cp := *t
	s.trades[t.ID] = &cp
	return nil
}

func (s *fakeStore) FindBidAudit(ctx context.Context, auctionID string, limit int) ([]store.BidAuditLog, error) {
	return nil, nil
}

func (s *fakeStore) Apply(ctx context.Context, m store.Mutation) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m.Auction != nil {
		existing, ok := s.auctions[m.Auction.ID]
		if ok && existing.Version != m.ExpectedVersion {
			return 0, autxerr.StateConflict("auction_version_mismatch")
		}
		cp := *m.Auction
		cp.Version = m.ExpectedVersion + 1
		s.auctions[cp.ID] = &cp
	}
	for i := range m.Teams {
		cp := m.Teams[i]
		s.teams[cp.ID] = &cp
	}
	for i := range m.Players {
		cp := m.Players[i]
		s.players[cp.ID] = &cp
	}
	for i := range m.Trades {
		cp := m.Trades[i]
		s.trades[cp.ID] = &cp
	}
	return 1, nil
}

// fakeEvents is a minimal in-memory event.Store: the HTTP adapter tests only
// care that commands are accepted and reach the coordinator, not event replay.
type fakeEvents struct {
	mu     sync.Mutex
	events []event.Event
}

func (s *fakeEvents) Append(ctx context.Context, events ...event.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, events...)
	return nil
}

func (s *fakeEvents) Load(ctx context.Context, auctionID string) ([]event.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []event.Event
	for _, e := range s.events {
		if e.AuctionID == auctionID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *fakeEvents) Tail(ctx context.Context, auctionID string, n int) ([]event.Event, error) {
	all, _ := s.Load(ctx, auctionID)
	if len(all) <= n {
		return all, nil
	}
	return all[len(all)-n:], nil
}

func (s *fakeEvents) LoadByType(ctx context.Context, t event.Type) ([]event.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []event.Event
	for _, e := range s.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out, nil
}

func newTestServer(t *testing.T) (*httptest.Server, *fakeStore) {
	t.Helper()
	repo := newFakeStore()
	events := &fakeEvents{}
	mgr := auction.NewManager(repo, events, nil, clock.Real{}, discardLogger())
	t.Cleanup(mgr.Shutdown)
	defaults := config.AuctionDefaults{
		TimerDuration:    30 * time.Second,
		BidResetTimer:    30 * time.Second,
		GoingOnceTimer:   5 * time.Second,
		GoingTwiceTimer:  5 * time.Second,
		MinSquadSize:     1,
		MaxSquadSize:     10,
		TradeWindowHours: 24,
		MaxTradesPerTeam: 5,
		MaxUndoActions:   10,
		RequeuePolicy:    "head",
	}
	api := httpapi.NewServer(mgr, repo, defaults, clock.Real{}, discardLogger())
	srv := httptest.NewServer(api.NewRouter())
	t.Cleanup(srv.Close)
	return srv, repo
}

func doJSON(t *testing.T, method, url string, body any) (*http.Response, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request: %v", err)
		}
		reader = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer resp.Body.Close()
	var decoded map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil && err != io.EOF {
		t.Fatalf("decode response: %v", err)
	}
	return resp, decoded
}

func TestCreateAuction(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, body := doJSON(t, http.MethodPost, srv.URL+"/auctions", map[string]any{
		"slug":        "premier-draft",
		"base_price":  100,
		"purse_value": 1000,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, body = %v", resp.StatusCode, body)
	}
	if ok, _ := body["ok"].(bool); !ok {
		t.Fatalf("expected ok=true, got %v", body)
	}
	data, _ := body["data"].(map[string]any)
	if data["slug"] != "premier-draft" {
		t.Fatalf("expected slug echoed back, got %v", data)
	}
}

func TestCreateAuctionRejectsMissingSlug(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, body := doJSON(t, http.MethodPost, srv.URL+"/auctions", map[string]any{})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, body = %v", resp.StatusCode, body)
	}
	errEnv, _ := body["error"].(map[string]any)
	if errEnv["kind"] != string(autxerr.KindValidation) {
		t.Fatalf("expected validation error, got %v", body)
	}
}

func TestPlaceBidRequiresTeamID(t *testing.T) {
	srv, repo := newTestServer(t)
	ctx := context.Background()

	a := &store.Auction{Slug: "needs-team", Status: store.StatusDraft, BidIncrementTiers: []store.BidIncrementTier{{Threshold: 0, Increment: 10}}}
	if err := repo.CreateAuction(ctx, a); err != nil {
		t.Fatalf("seed auction: %v", err)
	}

	resp, body := doJSON(t, http.MethodPost, srv.URL+"/auctions/"+a.ID+"/bids", map[string]any{"amount": 150})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, body = %v", resp.StatusCode, body)
	}
}

func TestUnknownAuctionReturnsNotFound(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, body := doJSON(t, http.MethodPost, srv.URL+"/auctions/does-not-exist/go-live", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, body = %v", resp.StatusCode, body)
	}
	errEnv, _ := body["error"].(map[string]any)
	if errEnv["kind"] != string(autxerr.KindNotFound) {
		t.Fatalf("expected not_found error, got %v", body)
	}
}
