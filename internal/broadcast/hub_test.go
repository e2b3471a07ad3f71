package broadcast

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/abhinavece/auctionhub/internal/config"
	"github.com/gorilla/websocket"
)

func testHub() *Hub {
	return NewHub(config.RealtimeConfig{
		OutboundBufferSize: 4,
		WriteTimeout:       time.Second,
		PingInterval:       time.Hour,
		PongTimeout:        time.Hour,
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage: %v", err)
	}
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("unmarshal message: %v", err)
	}
	return msg
}

func expectTimeout(t *testing.T, conn *websocket.Conn) {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Error("expected read to time out (no message should have arrived)")
	}
}

func TestHub_PublishReachesRoomSubscriber(t *testing.T) {
	hub := testHub()
	upgrader := websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		sub := hub.Subscribe(conn, AuctionRoom("a1"))
		go sub.readPump(time.Hour)
	}))
	defer srv.Close()

	conn := dial(t, srv)
	time.Sleep(50 * time.Millisecond) // let Subscribe register before Publish

	hub.Publish(AuctionRoom("a1"), Message{Type: "PLAYER_SOLD"})

	msg := readMessage(t, conn)
	if msg.Type != "PLAYER_SOLD" {
		t.Errorf("Type = %q, want PLAYER_SOLD", msg.Type)
	}
}

func TestHub_PublishDoesNotCrossRooms(t *testing.T) {
	hub := testHub()
	upgrader := websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		sub := hub.Subscribe(conn, AuctionRoom("a1"))
		go sub.readPump(time.Hour)
	}))
	defer srv.Close()

	conn := dial(t, srv)
	time.Sleep(50 * time.Millisecond)

	hub.Publish(AuctionRoom("a2"), Message{Type: "PLAYER_SOLD"})
	expectTimeout(t, conn)
}

func TestHub_FullBufferMarksSubscriberStale(t *testing.T) {
	hub := NewHub(config.RealtimeConfig{
		OutboundBufferSize: 1,
		WriteTimeout:       time.Second,
		PingInterval:       time.Hour,
		PongTimeout:        time.Hour,
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))

	subCh := make(chan *Subscriber, 1)
	upgrader := websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		sub := hub.Subscribe(conn, AuctionRoom("a1"))
		subCh <- sub
		// Deliberately never reads, so the outbound write pump still drains
		// into the OS socket buffer but this test's Publish calls race ahead
		// of it — the channel buffer of size 1 is what actually caps us.
	}))
	defer srv.Close()

	dial(t, srv)
	sub := <-subCh

	for i := 0; i < 10; i++ {
		hub.Publish(AuctionRoom("a1"), Message{Type: "TIMER_TICK"})
	}

	time.Sleep(50 * time.Millisecond)
	if !sub.Stale() {
		t.Error("expected subscriber to be marked stale after its outbound buffer overflowed")
	}
}

func TestFabric_PublicEventReachesAuctionAndAdminRooms(t *testing.T) {
	hub := testHub()
	upgrader := websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		room := AuctionRoom("a1")
		if r.URL.Query().Get("admin") == "1" {
			room = AdminRoom("a1")
		}
		sub := hub.Subscribe(conn, room)
		go sub.readPump(time.Hour)
	}))
	defer srv.Close()

	auctionConn, _, err := websocket.DefaultDialer.Dial(wsURL(srv), nil)
	if err != nil {
		t.Fatalf("dial auction room: %v", err)
	}
	t.Cleanup(func() { auctionConn.Close() })
	adminConn, _, err := websocket.DefaultDialer.Dial(wsURL(srv)+"?admin=1", nil)
	if err != nil {
		t.Fatalf("dial admin room: %v", err)
	}
	t.Cleanup(func() { adminConn.Close() })
	time.Sleep(50 * time.Millisecond)

	fabric := NewFabric(hub)
	fabric.PublishEvent("a1", publicEvent("PLAYER_SOLD"))

	if msg := readMessage(t, auctionConn); msg.Type != "PLAYER_SOLD" {
		t.Errorf("auction room Type = %q, want PLAYER_SOLD", msg.Type)
	}
	if msg := readMessage(t, adminConn); msg.Type != "PLAYER_SOLD" {
		t.Errorf("admin room Type = %q, want PLAYER_SOLD", msg.Type)
	}
}

func TestFabric_PrivateEventReachesOnlyTeamRoom(t *testing.T) {
	hub := testHub()
	upgrader := websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		room := AuctionRoom("a1")
		if tid := r.URL.Query().Get("team"); tid != "" {
			room = TeamRoom("a1", tid)
		}
		sub := hub.Subscribe(conn, room)
		go sub.readPump(time.Hour)
	}))
	defer srv.Close()

	auctionConn, _, err := websocket.DefaultDialer.Dial(wsURL(srv), nil)
	if err != nil {
		t.Fatalf("dial auction room: %v", err)
	}
	t.Cleanup(func() { auctionConn.Close() })
	teamConn, _, err := websocket.DefaultDialer.Dial(wsURL(srv)+"?team=team1", nil)
	if err != nil {
		t.Fatalf("dial team room: %v", err)
	}
	t.Cleanup(func() { teamConn.Close() })
	time.Sleep(50 * time.Millisecond)

	fabric := NewFabric(hub)
	fabric.PublishEvent("a1", privateEvent("BID_REJECTED", "team1"))

	if msg := readMessage(t, teamConn); msg.Type != "BID_REJECTED" {
		t.Errorf("team room Type = %q, want BID_REJECTED", msg.Type)
	}
	expectTimeout(t, auctionConn)
}
