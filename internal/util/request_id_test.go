package util

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestWithRequestIDKeepsClientSuppliedID(t *testing.T) {
	const supplied = "edge-7f3a91c2"

	var seen string
	h := WithRequestID(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		seen = RequestIDFromRequest(r)
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/checks", nil)
	req.Header.Set("X-Request-Id", supplied)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if seen != supplied {
		t.Fatalf("context id = %q, want %q", seen, supplied)
	}
	if got := rec.Header().Get("X-Request-Id"); got != supplied {
		t.Fatalf("response id = %q, want %q", got, supplied)
	}
}

func TestWithRequestIDGeneratesFreshIDs(t *testing.T) {
	var seen string
	h := WithRequestID(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		seen = RequestIDFromRequest(r)
	}))

	ids := make(map[string]bool)
	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/history", nil)
		req.Header.Set("X-Request-Id", "   ")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		if seen == "" {
			t.Fatal("no request id in handler context")
		}
		if got := rec.Header().Get("X-Request-Id"); got != seen {
			t.Fatalf("response id %q does not match context id %q", got, seen)
		}
		ids[seen] = true
	}
	if len(ids) != 2 {
		t.Fatalf("expected distinct generated ids, got %v", ids)
	}
}

func TestRequestIDFromContextMissing(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if got := RequestIDFromRequest(req); got != "" {
		t.Fatalf("got %q, want empty for an unwrapped request", got)
	}
}
