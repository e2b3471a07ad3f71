// Package broadcast implements the C7 Broadcast Fabric: a room-based
// websocket pub/sub hub that fans out auction events to subscribed clients
// without ever blocking the coordinator that produced them (§4.7, §5).
package broadcast

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/abhinavece/auctionhub/internal/config"
	"github.com/gorilla/websocket"
)

// Room is a logical subscription channel (§4.7): auction:{id} for any
// participant/spectator, admin:{id} for admins, team:{auctionId}:{teamId}
// for that team alone.
type Room string

func AuctionRoom(auctionID string) Room            { return Room("auction:" + auctionID) }
func AdminRoom(auctionID string) Room              { return Room("admin:" + auctionID) }
func TeamRoom(auctionID, teamID string) Room       { return Room("team:" + auctionID + ":" + teamID) }

// Message is the envelope written to every subscriber: Type is an
// ActionEvent type (the private rejection notice travels as "BID_REJECTED")
// or one of the synthetic "state_snapshot" and "timer_tick" types (§6).
type Message struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Hub owns every room's subscriber set and is safe for concurrent Publish
// calls from any number of auction coordinators.
type Hub struct {
	mu    sync.RWMutex
	rooms map[Room]map[*Subscriber]struct{}

	nextID uint64

	bufferSize   int
	writeTimeout time.Duration
	pingInterval time.Duration
	pongTimeout  time.Duration

	logger *slog.Logger
}

// NewHub constructs a Hub tuned by cfg (§1 config: outbound buffer size,
// write/ping/pong timing).
func NewHub(cfg config.RealtimeConfig, logger *slog.Logger) *Hub {
	return &Hub{
		rooms:        make(map[Room]map[*Subscriber]struct{}),
		bufferSize:   cfg.OutboundBufferSize,
		writeTimeout: cfg.WriteTimeout,
		pingInterval: cfg.PingInterval,
		pongTimeout:  cfg.PongTimeout,
		logger:       logger,
	}
}

// Subscribe registers conn under rooms and starts its outbound write pump.
// The caller is still responsible for running Subscriber.readPump (or
// otherwise draining conn) so the connection's close is observed.
func (h *Hub) Subscribe(conn *websocket.Conn, rooms ...Room) *Subscriber {
	h.mu.Lock()
	h.nextID++
	sub := &Subscriber{
		id:       h.nextID,
		conn:     conn,
		outbound: make(chan []byte, h.bufferSize),
		hub:      h,
		rooms:    make(map[Room]struct{}, len(rooms)),
	}
	for _, r := range rooms {
		sub.rooms[r] = struct{}{}
		if h.rooms[r] == nil {
			h.rooms[r] = make(map[*Subscriber]struct{})
		}
		h.rooms[r][sub] = struct{}{}
	}
	h.mu.Unlock()

	go sub.writePump(h.writeTimeout, h.pingInterval)
	return sub
}

func (h *Hub) unsubscribe(sub *Subscriber) {
	h.mu.Lock()
	for r := range sub.rooms {
		delete(h.rooms[r], sub)
		if len(h.rooms[r]) == 0 {
			delete(h.rooms, r)
		}
	}
	h.mu.Unlock()
	close(sub.outbound)
}

// Publish fans msg out to every current subscriber of room. Never blocks:
// each subscriber has its own buffered channel, and a full buffer drops the
// message for that subscriber alone rather than slowing down the publisher
// (§5 "the fabric must not block the Arbiter or Lifecycle").
func (h *Hub) Publish(room Room, msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("marshaling broadcast message", slog.String("type", msg.Type), slog.Any("error", err))
		return
	}

	h.mu.RLock()
	subs := h.rooms[room]
	targets := make([]*Subscriber, 0, len(subs))
	for s := range subs {
		targets = append(targets, s)
	}
	h.mu.RUnlock()

	for _, s := range targets {
		s.send(data, h.logger)
	}
}
