package wiki

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.Client(), srv.URL)
}

func TestSummaryExtract(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/rest_v1/page/summary/Go_(programming_language)" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"type":"standard","extract":"Go is a programming language."}`))
	})

	got, err := c.Summary(context.Background(), "go (programming language)")
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}
	if got != "Go is a programming language." {
		t.Fatalf("extract = %q", got)
	}
}

func TestSummaryDisambiguation(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"type":"disambiguation","extract":"Mercury may refer to:"}`))
	})

	_, err := c.Summary(context.Background(), "mercury")
	if !errors.Is(err, ErrAmbiguous) {
		t.Fatalf("err = %v, want ErrAmbiguous", err)
	}
}

func TestSummaryNotFound(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	_, err := c.Summary(context.Background(), "zzzzzz")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestPageURL(t *testing.T) {
	c := NewClient(nil, "")
	if got, want := c.PageURL("alan turing"), "https://en.wikipedia.org/wiki/Alan_turing"; got != want {
		t.Fatalf("PageURL = %q, want %q", got, want)
	}
}
