package broadcast

import (
	"context"
	"io"
	"log/slog"
	"net/http/httptest"
	"testing"

	"github.com/abhinavece/auctionhub/internal/auction"
	"github.com/abhinavece/auctionhub/internal/autxerr"
	"github.com/abhinavece/auctionhub/internal/clock"
	"github.com/abhinavece/auctionhub/internal/event"
	"github.com/abhinavece/auctionhub/internal/store"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
)

// stubStore is a minimal store.AuctionStore + event.Store good enough to
// let a single Coordinator boot and answer a Snapshot call.
type stubStore struct {
	auction *store.Auction
	teams   []store.AuctionTeam
}

func (s *stubStore) GetAuction(ctx context.Context, id string) (*store.Auction, error) {
	if s.auction == nil || s.auction.ID != id {
		return nil, autxerr.NotFound("auction_not_found")
	}
	cp := *s.auction
	return &cp, nil
}
func (s *stubStore) GetAuctionBySlug(ctx context.Context, slug string) (*store.Auction, error) {
	return nil, autxerr.NotFound("auction_not_found")
}
func (s *stubStore) CreateAuction(ctx context.Context, a *store.Auction) error { return nil }
func (s *stubStore) ListLiveAuctions(ctx context.Context) ([]store.Auction, error) { return nil, nil }
func (s *stubStore) FindTeamsByAuction(ctx context.Context, auctionID string) ([]store.AuctionTeam, error) {
	return s.teams, nil
}
func (s *stubStore) FindActiveTeamsByAuction(ctx context.Context, auctionID string) ([]store.AuctionTeam, error) {
	return s.teams, nil
}
func (s *stubStore) GetTeam(ctx context.Context, teamID string) (*store.AuctionTeam, error) {
	for _, t := range s.teams {
		if t.ID == teamID {
			cp := t
			return &cp, nil
		}
	}
	return nil, autxerr.NotFound("team_not_found")
}
func (s *stubStore) CreateTeam(ctx context.Context, t *store.AuctionTeam) error { return nil }
func (s *stubStore) FindPlayersByAuctionAndStatus(ctx context.Context, auctionID string, status store.PlayerStatus) ([]store.AuctionPlayer, error) {
	return nil, nil
}
func (s *stubStore) GetPlayer(ctx context.Context, playerID string) (*store.AuctionPlayer, error) {
	return nil, autxerr.NotFound("player_not_found")
}
func (s *stubStore) CreatePlayer(ctx context.Context, p *store.AuctionPlayer) error { return nil }
func (s *stubStore) FindTradesByAuctionAndStatus(ctx context.Context, auctionID string, statuses ...store.TradeStatus) ([]store.AuctionTrade, error) {
	return nil, nil
}
func (s *stubStore) FindTradesByPlayer(ctx context.Context, auctionID, playerID string) ([]store.AuctionTrade, error) {
	return nil, nil
}
func (s *stubStore) GetTrade(ctx context.Context, tradeID string) (*store.AuctionTrade, error) {
	return nil, autxerr.NotFound("trade_not_found")
}
func (s *stubStore) CreateTrade(ctx context.Context, t *store.AuctionTrade) error { return nil }
func (s *stubStore) FindBidAudit(ctx context.Context, auctionID string, limit int) ([]store.BidAuditLog, error) {
	return nil, nil
}
func (s *stubStore) Apply(ctx context.Context, m store.Mutation) (int, error) { return 0, nil }

func (s *stubStore) Append(ctx context.Context, events ...event.Event) error { return nil }
func (s *stubStore) Load(ctx context.Context, auctionID string) ([]event.Event, error) {
	return nil, nil
}
func (s *stubStore) Tail(ctx context.Context, auctionID string, n int) ([]event.Event, error) {
	return nil, nil
}
func (s *stubStore) LoadByType(ctx context.Context, t event.Type) ([]event.Event, error) {
	return nil, nil
}

type fixedCoordinatorSource struct {
	id    string
	coord *auction.Coordinator
}

func (f *fixedCoordinatorSource) Get(auctionID string) (*auction.Coordinator, error) {
	if auctionID != f.id {
		return nil, autxerr.NotFound("auction_not_running")
	}
	return f.coord, nil
}

func TestUpgradeHandler_SendsSnapshotOnJoin(t *testing.T) {
	ss := &stubStore{
		auction: &store.Auction{
			ID:               "a1",
			Status:           store.StatusLive,
			CurrentBidAmount: 100,
		},
		teams: []store.AuctionTeam{{ID: "t1", Name: "A", PurseRemaining: 900}},
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	coord, err := auction.NewCoordinator(context.Background(), "a1", ss, ss, nil, clock.Real{}, logger)
	if err != nil {
		t.Fatalf("NewCoordinator: %v", err)
	}
	go coord.Run()
	t.Cleanup(coord.Stop)

	hub := testHub()
	handler := NewUpgradeHandler(hub, &fixedCoordinatorSource{id: "a1", coord: coord}, logger)

	router := mux.NewRouter()
	router.Handle("/ws/{id}", handler)
	srv := httptest.NewServer(router)
	defer srv.Close()

	wsAddr := wsURL(srv) + "/ws/a1"
	conn, _, err := websocket.DefaultDialer.Dial(wsAddr, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	msg := readMessage(t, conn)
	if msg.Type != "state_snapshot" {
		t.Fatalf("Type = %q, want state_snapshot", msg.Type)
	}
}
