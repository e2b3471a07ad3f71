package broadcast

import (
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Subscriber is one client connection's membership across some set of
// rooms. Outbound writes go through a buffered channel drained by a single
// writePump goroutine per connection, grounded on the teacher pack's
// websocket session pattern (heroiclabs-nakama's wsSession).
type Subscriber struct {
	id       uint64
	conn     *websocket.Conn
	outbound chan []byte
	hub      *Hub
	rooms    map[Room]struct{}

	mu    sync.Mutex
	stale bool
}

// send enqueues data without blocking. A full buffer drops the message and
// flags the subscriber stale; its next reconnect gets a fresh state_snapshot
// rather than an attempt to replay the gap (§4.7).
func (s *Subscriber) send(data []byte, logger *slog.Logger) {
	select {
	case s.outbound <- data:
	default:
		s.mu.Lock()
		s.stale = true
		s.mu.Unlock()
		logger.Warn("dropping broadcast message: subscriber outbound buffer full", slog.Uint64("subscriber_id", s.id))
	}
}

// Stale reports whether this subscriber has ever missed a message because
// its outbound buffer was full.
func (s *Subscriber) Stale() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stale
}

// writePump drains outbound onto the websocket connection and pings at
// pingInterval to keep intermediaries from closing an idle connection.
// Exits (and closes the underlying connection) once outbound is closed by
// Hub.unsubscribe or a write fails.
func (s *Subscriber) writePump(writeTimeout, pingInterval time.Duration) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	defer s.conn.Close()

	for {
		select {
		case data, ok := <-s.outbound:
			if !ok {
				_ = s.conn.WriteControl(websocket.CloseMessage, []byte{}, time.Now().Add(writeTimeout))
				return
			}
			s.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := s.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump drains (and discards) inbound frames so pong control messages are
// processed and the read deadline is renewed; exits, and unsubscribes, on
// the first read error (client disconnect). Clients are not expected to
// send application messages over this channel — it is publish-only.
func (s *Subscriber) readPump(pongTimeout time.Duration) {
	defer s.hub.unsubscribe(s)
	s.conn.SetReadDeadline(time.Now().Add(pongTimeout))
	s.conn.SetPongHandler(func(string) error {
		s.conn.SetReadDeadline(time.Now().Add(pongTimeout))
		return nil
	})
	for {
		if _, _, err := s.conn.ReadMessage(); err != nil {
			return
		}
	}
}
