package util

import (
	"crypto/tls"
	"net/http"
	"net/http/httptest"
	"testing"
)

func serveWithSecurityHeaders(t *testing.T, mutate func(*http.Request)) http.Header {
	t.Helper()
	h := WithSecurityHeaders(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	req := httptest.NewRequest(http.MethodGet, "/api/checks", nil)
	if mutate != nil {
		mutate(req)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec.Header()
}

func TestWithSecurityHeaders(t *testing.T) {
	headers := serveWithSecurityHeaders(t, nil)

	for _, want := range securityHeaders {
		if got := headers.Get(want[0]); got != want[1] {
			t.Errorf("%s = %q, want %q", want[0], got, want[1])
		}
	}
	if got := headers.Get("Strict-Transport-Security"); got != "" {
		t.Fatalf("HSTS set on a plain HTTP request: %q", got)
	}
}

func TestWithSecurityHeadersHSTSOverTLS(t *testing.T) {
	headers := serveWithSecurityHeaders(t, func(r *http.Request) {
		r.TLS = &tls.ConnectionState{}
	})
	if got := headers.Get("Strict-Transport-Security"); got != hstsValue {
		t.Fatalf("HSTS = %q, want %q", got, hstsValue)
	}
}

func TestWithSecurityHeadersHSTSBehindTLSProxy(t *testing.T) {
	headers := serveWithSecurityHeaders(t, func(r *http.Request) {
		r.Header.Set("X-Forwarded-Proto", "https, http")
	})
	if got := headers.Get("Strict-Transport-Security"); got != hstsValue {
		t.Fatalf("HSTS = %q, want %q", got, hstsValue)
	}

	headers = serveWithSecurityHeaders(t, func(r *http.Request) {
		r.Header.Set("X-Forwarded-Proto", "http, https")
	})
	if got := headers.Get("Strict-Transport-Security"); got != "" {
		t.Fatalf("HSTS set when the edge protocol is http: %q", got)
	}
}
