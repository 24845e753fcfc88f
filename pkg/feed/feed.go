// Package feed streams assistant activity to websocket subscribers.
// Companion UIs connect to watch state changes and conversation turns
// live instead of polling the store.
package feed

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	log "log/slog"

	ws "github.com/gorilla/websocket"
)

// Event kinds.
const (
	KindStatus = "status"
	KindTurn   = "turn"
)

type Event struct {
	Kind    string `json:"kind"`
	Status  string `json:"status,omitempty"`
	Speaker string `json:"speaker,omitempty"`
	Text    string `json:"text,omitempty"`
	Time    string `json:"time"`
}

// Server accepts websocket subscribers and fans events out to them.
// Subscribers that stop reading are dropped on the next write error.
type Server struct {
	upgrader ws.Upgrader
	now      func() time.Time

	mu    sync.Mutex
	conns map[*ws.Conn]struct{}
}

func NewServer() *Server {
	return &Server{
		upgrader: ws.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
		now:   time.Now,
		conns: make(map[*ws.Conn]struct{}),
	}
}

// ServeHTTP upgrades the request and registers the subscriber.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn("websocket upgrade failed", "err", err)
		return
	}

	s.mu.Lock()
	s.conns[conn] = struct{}{}
	n := len(s.conns)
	s.mu.Unlock()
	log.Debug("feed subscriber connected", "subscribers", n)

	// Drain incoming frames so close handshakes are noticed.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				s.drop(conn)
				return
			}
		}
	}()
}

func (s *Server) drop(conn *ws.Conn) {
	s.mu.Lock()
	if _, ok := s.conns[conn]; ok {
		delete(s.conns, conn)
		conn.Close()
	}
	s.mu.Unlock()
}

// Emit broadcasts ev to every subscriber. The timestamp is stamped
// here so all subscribers see the same one.
func (s *Server) Emit(ev Event) {
	ev.Time = s.now().Format("2006-01-02 15:04:05")
	payload, err := json.Marshal(ev)
	if err != nil {
		log.Error("marshal feed event", "err", err)
		return
	}

	s.mu.Lock()
	var dead []*ws.Conn
	for conn := range s.conns {
		conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
		if err := conn.WriteMessage(ws.TextMessage, payload); err != nil {
			dead = append(dead, conn)
		}
	}
	for _, conn := range dead {
		delete(s.conns, conn)
		conn.Close()
	}
	s.mu.Unlock()
}

// Subscribers reports the current connection count.
func (s *Server) Subscribers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.conns)
}

// Close disconnects every subscriber.
func (s *Server) Close() {
	s.mu.Lock()
	for conn := range s.conns {
		conn.WriteControl(ws.CloseMessage,
			ws.FormatCloseMessage(ws.CloseGoingAway, "shutting down"),
			time.Now().Add(time.Second))
		conn.Close()
		delete(s.conns, conn)
	}
	s.mu.Unlock()
}
