package store

import (
	"testing"
	"time"
)

func TestJWTSessionRoundTrip(t *testing.T) {
	s, err := NewJWTSessionStore("test-secret", time.Hour, NewMemoryTokenRevoker())
	if err != nil {
		t.Fatalf("NewJWTSessionStore: %v", err)
	}
	token, err := s.NewSession("user-1")
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	uid, ok, err := s.GetUserIDByToken(token)
	if err != nil {
		t.Fatalf("GetUserIDByToken: %v", err)
	}
	if !ok || uid != "user-1" {
		t.Fatalf("got (%q, %v), want (user-1, true)", uid, ok)
	}
}

func TestJWTSessionRejectsGarbage(t *testing.T) {
	s, err := NewJWTSessionStore("test-secret", time.Hour, nil)
	if err != nil {
		t.Fatalf("NewJWTSessionStore: %v", err)
	}
	for _, token := range []string{"", "not-a-jwt", "a.b.c"} {
		if _, ok, err := s.GetUserIDByToken(token); err != nil || ok {
			t.Fatalf("token %q: got ok=%v err=%v, want rejection without error", token, ok, err)
		}
	}
}

func TestJWTSessionRejectsWrongSecret(t *testing.T) {
	issuer, err := NewJWTSessionStore("secret-a", time.Hour, nil)
	if err != nil {
		t.Fatalf("NewJWTSessionStore: %v", err)
	}
	verifier, err := NewJWTSessionStore("secret-b", time.Hour, nil)
	if err != nil {
		t.Fatalf("NewJWTSessionStore: %v", err)
	}
	token, err := issuer.NewSession("user-1")
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	if _, ok, _ := verifier.GetUserIDByToken(token); ok {
		t.Fatal("token signed with a different secret was accepted")
	}
}

func TestJWTSessionDeleteRevokes(t *testing.T) {
	s, err := NewJWTSessionStore("test-secret", time.Hour, NewMemoryTokenRevoker())
	if err != nil {
		t.Fatalf("NewJWTSessionStore: %v", err)
	}
	token, err := s.NewSession("user-1")
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	if err := s.DeleteSession(token); err != nil {
		t.Fatalf("DeleteSession: %v", err)
	}
	if _, ok, _ := s.GetUserIDByToken(token); ok {
		t.Fatal("revoked token was accepted")
	}
}

func TestJWTSessionRequiresSecret(t *testing.T) {
	if _, err := NewJWTSessionStore("  ", time.Hour, nil); err == nil {
		t.Fatal("empty secret accepted")
	}
}
