// Package ipc carries control commands between the companion CLI and
// the daemon over a unix socket. One JSON request per connection,
// answered with one JSON response.
package ipc

import (
	"encoding/json"
	"fmt"
	"net"
	"os"
	"sync"
	"time"

	log "log/slog"

	"aura/internal/store"
)

// Commands understood by the daemon.
const (
	CmdStart         = "start"
	CmdStop          = "stop"
	CmdStatus        = "status"
	CmdTrigger       = "trigger"
	CmdSimulate      = "simulate"
	CmdSimulateAudio = "simulate-audio"
	CmdHistory       = "history"
	CmdStats         = "stats"
	CmdPrefGet       = "pref-get"
	CmdPrefSet       = "pref-set"
)

type Request struct {
	Cmd   string `json:"cmd"`
	Text  string `json:"text,omitempty"`
	Key   string `json:"key,omitempty"`
	Value string `json:"value,omitempty"`
	Limit int    `json:"limit,omitempty"`
	Days  int    `json:"days,omitempty"`
}

type Response struct {
	OK       bool                `json:"ok"`
	Error    string              `json:"error,omitempty"`
	Status   string              `json:"status,omitempty"`
	Reply    string              `json:"reply,omitempty"`
	Value    string              `json:"value,omitempty"`
	Messages []store.Message     `json:"messages,omitempty"`
	Stats    []store.CommandStat `json:"stats,omitempty"`
}

// Fail builds an error response.
func Fail(err error) Response {
	return Response{Error: err.Error()}
}

// Handler processes one request. The server forces OK=true on any
// response with an empty Error.
type Handler func(Request) Response

type Server struct {
	path string
	ln   net.Listener
	h    Handler
	wg   sync.WaitGroup
}

// StartServer listens on a unix socket at path, replacing any stale
// socket file left by a previous run.
func StartServer(path string, h Handler) (*Server, error) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("remove stale socket: %w", err)
	}

	ln, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", path, err)
	}

	s := &Server{path: path, ln: ln, h: h}
	s.wg.Add(1)
	go s.serve()
	return s, nil
}

func (s *Server) serve() {
	defer s.wg.Done()
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			return
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handle(conn)
		}()
	}
}

func (s *Server) handle(conn net.Conn) {
	defer conn.Close()
	conn.SetDeadline(time.Now().Add(30 * time.Second))

	var req Request
	if err := json.NewDecoder(conn).Decode(&req); err != nil {
		log.Warn("bad control request", "err", err)
		return
	}

	resp := s.h(req)
	if resp.Error == "" {
		resp.OK = true
	}
	if err := json.NewEncoder(conn).Encode(resp); err != nil {
		log.Warn("write control response", "err", err)
	}
}

// Close stops accepting, waits for in-flight requests and removes the
// socket file.
func (s *Server) Close() error {
	err := s.ln.Close()
	s.wg.Wait()
	os.Remove(s.path)
	return err
}

// Send performs one request against the daemon socket at path.
func Send(path string, req Request) (Response, error) {
	conn, err := net.DialTimeout("unix", path, 2*time.Second)
	if err != nil {
		return Response{}, fmt.Errorf("dial %s: %w", path, err)
	}
	defer conn.Close()
	conn.SetDeadline(time.Now().Add(30 * time.Second))

	if err := json.NewEncoder(conn).Encode(req); err != nil {
		return Response{}, fmt.Errorf("send request: %w", err)
	}
	var resp Response
	if err := json.NewDecoder(conn).Decode(&resp); err != nil {
		return Response{}, fmt.Errorf("read response: %w", err)
	}
	return resp, nil
}
