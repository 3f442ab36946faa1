package metadata

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"unicode/utf8"
)

func TestLookupReturnsResponseBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("apiKey"); got != "test-key" {
			t.Errorf("unexpected api key: %q", got)
		}
		if got := r.URL.Query().Get("limit"); got != "5" {
			t.Errorf("unexpected limit: %q", got)
		}
		w.Write([]byte(`{"data":[{"title":"A Paper"}]}`))
	}))
	defer srv.Close()

	c := NewCoreClient(srv.URL, "test-key")
	got := c.Lookup(context.Background(), "some academic text")
	if got != `{"data":[{"title":"A Paper"}]}` {
		t.Fatalf("unexpected payload: %s", got)
	}
}

func TestLookupTruncatesQueryText(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := NewCoreClient(srv.URL, "test-key")
	c.Lookup(context.Background(), strings.Repeat("a", 1000))
	if len(gotPath) == 0 {
		t.Fatalf("server not called")
	}
	query := strings.TrimPrefix(gotPath, "/articles/search/")
	if len(query) != queryPrefixLen {
		t.Fatalf("expected %d-char query, got %d", queryPrefixLen, len(query))
	}
}

func TestLookupTruncatesOnRuneBoundary(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := NewCoreClient(srv.URL, "test-key")
	c.Lookup(context.Background(), strings.Repeat("č", 1000))

	query := strings.TrimPrefix(gotPath, "/articles/search/")
	if !utf8.ValidString(query) {
		t.Fatalf("query contains a split rune: %q", query)
	}
	if got := utf8.RuneCountInString(query); got != queryPrefixLen {
		t.Fatalf("expected %d-rune query, got %d", queryPrefixLen, got)
	}
}

func TestLookupAbsorbsNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewCoreClient(srv.URL, "test-key")
	got := c.Lookup(context.Background(), "text")

	var payload struct {
		Error  string `json:"error"`
		Status int    `json:"status"`
	}
	if err := json.Unmarshal([]byte(got), &payload); err != nil {
		t.Fatalf("payload is not JSON: %v (%s)", err, got)
	}
	if payload.Error == "" || payload.Status != http.StatusTooManyRequests {
		t.Fatalf("unexpected payload: %s", got)
	}
}

func TestLookupAbsorbsTransportErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	srv.Close() // immediately, so the request fails

	c := NewCoreClient(srv.URL, "test-key")
	got := c.Lookup(context.Background(), "text")

	var payload struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal([]byte(got), &payload); err != nil {
		t.Fatalf("payload is not JSON: %v (%s)", err, got)
	}
	if payload.Error == "" || payload.Message == "" {
		t.Fatalf("unexpected payload: %s", got)
	}
}

func TestLookupDisabledWithoutAPIKey(t *testing.T) {
	c := NewCoreClient("", "")
	got := c.Lookup(context.Background(), "text")
	if !strings.Contains(got, "disabled") {
		t.Fatalf("unexpected payload: %s", got)
	}
}
