package auth

import (
	"errors"
	"strings"
	"testing"
)

func TestHashAndCheckPassword(t *testing.T) {
	hash, err := HashPassword("correct horse battery staple")
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	if hash == "correct horse battery staple" {
		t.Fatalf("hash must not equal the password")
	}
	if !CheckPassword("correct horse battery staple", hash) {
		t.Fatalf("expected matching password to verify")
	}
	if CheckPassword("wrong password", hash) {
		t.Fatalf("expected mismatched password to fail")
	}
}

func TestCheckPasswordRejectsMalformedHash(t *testing.T) {
	if CheckPassword("anything", "not-a-bcrypt-hash") {
		t.Fatalf("malformed hash should never verify")
	}
	if CheckPassword("anything", "") {
		t.Fatalf("empty hash should never verify")
	}
}

func TestValidatePassword(t *testing.T) {
	if err := ValidatePassword("short"); !errors.Is(err, ErrPasswordTooShort) {
		t.Fatalf("expected too-short error, got: %v", err)
	}
	if err := ValidatePassword(strings.Repeat("a", 73)); !errors.Is(err, ErrPasswordTooLong) {
		t.Fatalf("expected too-long error, got: %v", err)
	}
	if err := ValidatePassword("long enough password"); err != nil {
		t.Fatalf("expected valid password, got: %v", err)
	}
}
