package httpapi

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/abhinavece/auctionhub/internal/auction"
	"github.com/abhinavece/auctionhub/internal/autxerr"
	"github.com/abhinavece/auctionhub/internal/clock"
	"github.com/abhinavece/auctionhub/internal/config"
	"github.com/abhinavece/auctionhub/internal/store"
	"github.com/gorilla/mux"
)

// Server adapts internal/auction.Manager to the route table in spec §6.
type Server struct {
	manager  *auction.Manager
	store    store.AuctionStore
	defaults config.AuctionDefaults
	clock    clock.Clock
	logger   *slog.Logger
}

// NewServer constructs the HTTP adapter. defaults seeds a new auction's
// configuration for fields a create request omits (§6 POST /auctions).
func NewServer(manager *auction.Manager, repo store.AuctionStore, defaults config.AuctionDefaults, clk clock.Clock, logger *slog.Logger) *Server {
	return &Server{manager: manager, store: repo, defaults: defaults, clock: clk, logger: logger}
}

// NewRouter builds the gorilla/mux router for the route table in spec §6.
// It carries no routing/auth middleware of its own — that collaborator is
// out of scope (§1) and is expected to wrap this router.
func (s *Server) NewRouter() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/auctions", s.createAuction).Methods(http.MethodPost)
	r.HandleFunc("/auctions/{id}/config", s.updateConfig).Methods(http.MethodPatch)
	r.HandleFunc("/auctions/{id}/configure", s.configure).Methods(http.MethodPost)
	r.HandleFunc("/auctions/{id}/go-live", s.goLive).Methods(http.MethodPost)
	r.HandleFunc("/auctions/{id}/pause", s.pause).Methods(http.MethodPost)
	r.HandleFunc("/auctions/{id}/resume", s.resume).Methods(http.MethodPost)
	r.HandleFunc("/auctions/{id}/complete", s.complete).Methods(http.MethodPost)
	r.HandleFunc("/auctions/{id}/open-trade-window", s.openTradeWindow).Methods(http.MethodPost)
	r.HandleFunc("/auctions/{id}/finalize", s.finalize).Methods(http.MethodPost)
	r.HandleFunc("/auctions/{id}/bids", s.placeBid).Methods(http.MethodPost)
	r.HandleFunc("/auctions/{id}/undo", s.undo).Methods(http.MethodPost)
	r.HandleFunc("/auctions/{id}/players/{pid}/disqualify", s.disqualifyPlayer).Methods(http.MethodPost)
	r.HandleFunc("/auctions/{id}/teams/{tid}/adjust-purse", s.adjustPurse).Methods(http.MethodPost)
	r.HandleFunc("/auctions/{id}/trades", s.proposeTrade).Methods(http.MethodPost)
	r.HandleFunc("/auctions/{id}/trades/admin-initiate", s.adminInitiateTrade).Methods(http.MethodPost)
	r.HandleFunc("/auctions/{id}/trades/{tid}/accept", s.acceptTrade).Methods(http.MethodPatch)
	r.HandleFunc("/auctions/{id}/trades/{tid}/reject", s.rejectTrade).Methods(http.MethodPatch)
	r.HandleFunc("/auctions/{id}/trades/{tid}/withdraw", s.withdrawTrade).Methods(http.MethodPatch)
	r.HandleFunc("/auctions/{id}/trades/{tid}/admin-approve", s.adminApproveTrade).Methods(http.MethodPatch)
	r.HandleFunc("/auctions/{id}/trades/{tid}/admin-reject", s.adminRejectTrade).Methods(http.MethodPatch)

	return r
}

// coordinator returns (spawning if necessary) the running Coordinator for
// auctionID. Spawn is idempotent and reloads straight from the State Store,
// so this also covers auctions this replica never recovered at startup
// (drafts and configured-but-not-live auctions are never part of
// RecoverOpenAuctions' live/paused sweep).
func (s *Server) coordinator(ctx context.Context, auctionID string) (*auction.Coordinator, error) {
	return s.manager.Spawn(ctx, auctionID)
}

func pathVar(r *http.Request, name string) string {
	return mux.Vars(r)[name]
}

func (s *Server) reply(w http.ResponseWriter, r *http.Request, data any, err error) {
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	if data == nil {
		data = map[string]bool{"applied": true}
	}
	writeData(w, http.StatusOK, data)
}

// requireNonEmpty is a small validation helper shared by the create/propose
// handlers, which otherwise have nothing enforcing required string fields
// decoding leaves as "".
func requireNonEmpty(field, value string) error {
	if value == "" {
		return autxerr.Validation(field + "_required")
	}
	return nil
}
