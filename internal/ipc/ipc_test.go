package ipc

import (
	"errors"
	"path/filepath"
	"testing"

	"aura/internal/store"
)

func startTestServer(t *testing.T, h Handler) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ctl.sock")
	srv, err := StartServer(path, h)
	if err != nil {
		t.Fatalf("StartServer: %v", err)
	}
	t.Cleanup(func() { srv.Close() })
	return path
}

func TestRoundTrip(t *testing.T) {
	path := startTestServer(t, func(req Request) Response {
		if req.Cmd != CmdStatus {
			t.Errorf("cmd = %q", req.Cmd)
		}
		return Response{Status: "idle"}
	})

	resp, err := Send(path, Request{Cmd: CmdStatus})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if !resp.OK {
		t.Error("expected OK response")
	}
	if resp.Status != "idle" {
		t.Errorf("status = %q", resp.Status)
	}
}

func TestErrorResponse(t *testing.T) {
	path := startTestServer(t, func(Request) Response {
		return Fail(errors.New("not running"))
	})

	resp, err := Send(path, Request{Cmd: CmdStop})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if resp.OK {
		t.Error("expected failure response")
	}
	if resp.Error != "not running" {
		t.Errorf("error = %q", resp.Error)
	}
}

func TestPayloadFields(t *testing.T) {
	path := startTestServer(t, func(req Request) Response {
		if req.Limit != 7 {
			t.Errorf("limit = %d", req.Limit)
		}
		return Response{Messages: []store.Message{
			{Timestamp: "2024-01-01 10:00:00", Speaker: store.SpeakerUser, Text: "hello"},
		}}
	})

	resp, err := Send(path, Request{Cmd: CmdHistory, Limit: 7})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if len(resp.Messages) != 1 || resp.Messages[0].Text != "hello" {
		t.Errorf("messages = %+v", resp.Messages)
	}
}

func TestStaleSocketReplaced(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ctl.sock")
	first, err := StartServer(path, func(Request) Response { return Response{} })
	if err != nil {
		t.Fatalf("first StartServer: %v", err)
	}
	first.Close()

	second, err := StartServer(path, func(Request) Response { return Response{Status: "ok"} })
	if err != nil {
		t.Fatalf("second StartServer: %v", err)
	}
	defer second.Close()

	resp, err := Send(path, Request{Cmd: CmdStatus})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if resp.Status != "ok" {
		t.Errorf("status = %q", resp.Status)
	}
}
