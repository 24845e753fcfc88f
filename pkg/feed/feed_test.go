package feed

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	ws "github.com/gorilla/websocket"
)

func dialTestFeed(t *testing.T, srv *Server) *ws.Conn {
	t.Helper()
	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)

	url := "ws" + strings.TrimPrefix(ts.URL, "http")
	conn, _, err := ws.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestEmitReachesSubscriber(t *testing.T) {
	srv := NewServer()
	defer srv.Close()
	srv.now = func() time.Time {
		return time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	}

	conn := dialTestFeed(t, srv)

	deadline := time.Now().Add(2 * time.Second)
	for srv.Subscribers() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}

	srv.Emit(Event{Kind: KindTurn, Speaker: "USER", Text: "hello"})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, payload, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	var ev Event
	if err := json.Unmarshal(payload, &ev); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if ev.Kind != KindTurn || ev.Text != "hello" {
		t.Errorf("event = %+v", ev)
	}
	if ev.Time != "2024-03-01 12:00:00" {
		t.Errorf("time = %q", ev.Time)
	}
}

func TestClosedSubscriberDropped(t *testing.T) {
	srv := NewServer()
	defer srv.Close()

	conn := dialTestFeed(t, srv)

	deadline := time.Now().Add(2 * time.Second)
	for srv.Subscribers() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}

	conn.Close()

	deadline = time.Now().Add(2 * time.Second)
	for srv.Subscribers() != 0 && time.Now().Before(deadline) {
		srv.Emit(Event{Kind: KindStatus, Status: "idle"})
		time.Sleep(10 * time.Millisecond)
	}
	if n := srv.Subscribers(); n != 0 {
		t.Errorf("subscribers = %d after close", n)
	}
}

func TestEmitWithoutSubscribers(t *testing.T) {
	srv := NewServer()
	defer srv.Close()
	srv.Emit(Event{Kind: KindStatus, Status: "stopped"})
}
