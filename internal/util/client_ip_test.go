package util

import (
	"net/http/httptest"
	"net/netip"
	"testing"
)

func TestClientIPDirectPeer(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "203.0.113.40:52011"
	req.Header.Set("X-Forwarded-For", "198.51.100.7")
	req.Header.Set("X-Real-IP", "198.51.100.8")

	// Without a trusted proxy list, forwarding headers are spoofable
	// and must be ignored.
	if got := ClientIP(req, nil); got != "203.0.113.40" {
		t.Fatalf("got %q, want direct peer address", got)
	}
}

func TestClientIPBehindTrustedProxies(t *testing.T) {
	trusted, err := NewTrustedProxies([]string{"172.16.0.0/12", "198.18.0.9", "2001:db8::/32"})
	if err != nil {
		t.Fatalf("NewTrustedProxies: %v", err)
	}

	tests := []struct {
		name       string
		remoteAddr string
		xff        string
		xrip       string
		want       string
	}{
		{
			name:       "single forwarded hop",
			remoteAddr: "172.20.1.4:9902",
			xff:        "203.0.113.40",
			want:       "203.0.113.40",
		},
		{
			name:       "rightmost untrusted hop wins",
			remoteAddr: "172.20.1.4:9902",
			xff:        "198.51.100.7, 203.0.113.40, 172.16.9.9",
			want:       "203.0.113.40",
		},
		{
			name:       "single-address allowlist entry",
			remoteAddr: "198.18.0.9:443",
			xff:        "203.0.113.40",
			want:       "203.0.113.40",
		},
		{
			name:       "ipv6 proxy forwards ipv6 client",
			remoteAddr: "[2001:db8::1]:8443",
			xff:        "2001:db8:ffff::5, 2606:4700::20",
			want:       "2606:4700::20",
		},
		{
			name:       "garbage chain falls back to x-real-ip",
			remoteAddr: "172.20.1.4:9902",
			xff:        "not-an-address",
			xrip:       "203.0.113.41",
			want:       "203.0.113.41",
		},
		{
			name:       "fully trusted chain keeps leftmost hop",
			remoteAddr: "172.20.1.4:9902",
			xff:        "172.16.0.2, 172.16.0.3",
			want:       "172.16.0.2",
		},
		{
			name:       "no headers at all",
			remoteAddr: "172.20.1.4:9902",
			want:       "172.20.1.4",
		},
		{
			name:       "untrusted peer ignores chain",
			remoteAddr: "203.0.113.40:1234",
			xff:        "198.51.100.7",
			want:       "203.0.113.40",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/", nil)
			req.RemoteAddr = tc.remoteAddr
			if tc.xff != "" {
				req.Header.Set("X-Forwarded-For", tc.xff)
			}
			if tc.xrip != "" {
				req.Header.Set("X-Real-IP", tc.xrip)
			}
			if got := ClientIP(req, trusted); got != tc.want {
				t.Fatalf("ClientIP = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestClientIPUnparsableRemoteAddr(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "pipe"
	if got := ClientIP(req, nil); got != "pipe" {
		t.Fatalf("got %q, want raw remote addr passthrough", got)
	}
}

func TestNewTrustedProxies(t *testing.T) {
	trusted, err := NewTrustedProxies([]string{" 172.16.0.0/12 ", "", "198.18.0.9"})
	if err != nil {
		t.Fatalf("NewTrustedProxies: %v", err)
	}
	if !trusted.Contains(netip.MustParseAddr("172.31.255.1")) {
		t.Fatal("address inside CIDR not matched")
	}
	if !trusted.Contains(netip.MustParseAddr("198.18.0.9")) {
		t.Fatal("single-address entry not matched")
	}
	if trusted.Contains(netip.MustParseAddr("198.18.0.10")) {
		t.Fatal("single-address entry matched a neighbor")
	}

	if empty, err := NewTrustedProxies([]string{"", "  "}); err != nil || empty != nil {
		t.Fatalf("blank entries: got (%v, %v), want nil allowlist", empty, err)
	}
	if _, err := NewTrustedProxies([]string{"10.0.0.0/33"}); err == nil {
		t.Fatal("expected error for invalid prefix length")
	}
	if _, err := NewTrustedProxies([]string{"not-an-address"}); err == nil {
		t.Fatal("expected error for unparsable entry")
	}
}
