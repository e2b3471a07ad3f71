package broadcast

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/abhinavece/auctionhub/internal/auction"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
)

// CoordinatorSource is the subset of auction.Manager the upgrade handler
// needs: a running Coordinator to snapshot on join.
type CoordinatorSource interface {
	Get(auctionID string) (*auction.Coordinator, error)
}

// UpgradeHandler upgrades an HTTP request to a websocket connection,
// subscribes it to the rooms its query parameters name, and sends an
// initial state_snapshot before handing the connection's read loop off to
// the Subscriber (§4.7).
type UpgradeHandler struct {
	hub      *Hub
	manager  CoordinatorSource
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

func NewUpgradeHandler(hub *Hub, manager CoordinatorSource, logger *slog.Logger) *UpgradeHandler {
	return &UpgradeHandler{
		hub:     hub,
		manager: manager,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// Actual origin/auth checks belong to the HTTP layer in front of
			// this handler (§1: auth middleware is out of scope for the core).
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		logger: logger,
	}
}

// ServeHTTP expects to be mounted at a path carrying the auction ID as a
// mux var named "id". Query parameters select the extra rooms to join:
// role=admin for admin:{id}, team_id={teamId} for team:{id}:{teamId}.
// Identity is assumed pre-authenticated upstream; this handler trusts the
// caller-supplied parameters as-is.
func (h *UpgradeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	auctionID := mux.Vars(r)["id"]

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", slog.Any("error", err))
		return
	}

	rooms := []Room{AuctionRoom(auctionID)}
	if r.URL.Query().Get("role") == "admin" {
		rooms = append(rooms, AdminRoom(auctionID))
	}
	if teamID := r.URL.Query().Get("team_id"); teamID != "" {
		rooms = append(rooms, TeamRoom(auctionID, teamID))
	}

	sub := h.hub.Subscribe(conn, rooms...)
	h.sendSnapshot(r.Context(), auctionID, sub)
	go sub.readPump(h.hub.pongTimeout)
}

func (h *UpgradeHandler) sendSnapshot(ctx context.Context, auctionID string, sub *Subscriber) {
	coord, err := h.manager.Get(auctionID)
	if err != nil {
		h.logger.Warn("snapshot unavailable: auction not running", slog.String("auction_id", auctionID), slog.Any("error", err))
		return
	}
	snap, err := coord.Snapshot(ctx)
	if err != nil {
		h.logger.Warn("building snapshot", slog.String("auction_id", auctionID), slog.Any("error", err))
		return
	}
	payload, err := json.Marshal(snap)
	if err != nil {
		h.logger.Error("marshaling snapshot", slog.Any("error", err))
		return
	}
	envelope, err := json.Marshal(Message{Type: "state_snapshot", Payload: payload})
	if err != nil {
		h.logger.Error("marshaling snapshot envelope", slog.Any("error", err))
		return
	}
	sub.send(envelope, h.logger)
}
