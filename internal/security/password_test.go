package security

import (
	"errors"
	"strings"
	"testing"
)

func TestHashPasswordRequiresMinimumLength(t *testing.T) {
	_, err := HashPassword("short")
	if !errors.Is(err, ErrPasswordTooShort) {
		t.Fatalf("expected ErrPasswordTooShort, got %v", err)
	}
}

func TestHashPasswordAndVerify(t *testing.T) {
	password := "this-is-a-long-password"
	hash, err := HashPassword(password)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	if !VerifyPassword(password, hash) {
		t.Fatalf("expected password verification to succeed")
	}
	if VerifyPassword("wrong-password-here", hash) {
		t.Fatalf("expected wrong password verification to fail")
	}
}

func TestVerifyPasswordRejectsMalformedHashes(t *testing.T) {
	cases := []string{
		"",
		"v1$abc",
		"v2$180000$c2FsdA$ZGlnZXN0",
		"v1$10$c2FsdA$ZGlnZXN0",
		"v1$180000$$ZGlnZXN0",
	}
	for _, encoded := range cases {
		if VerifyPassword("this-is-a-long-password", encoded) {
			t.Fatalf("expected %q to be rejected", encoded)
		}
	}
}

func TestRandomTokenIsURLSafeAndUnique(t *testing.T) {
	a, err := RandomToken(32)
	if err != nil {
		t.Fatalf("random token: %v", err)
	}
	b, err := RandomToken(32)
	if err != nil {
		t.Fatalf("random token: %v", err)
	}
	if a == b {
		t.Fatalf("expected distinct tokens")
	}
	if strings.ContainsAny(a, "+/=") {
		t.Fatalf("expected url-safe token, got %q", a)
	}
	if _, err := RandomToken(0); err == nil {
		t.Fatalf("expected error for zero length")
	}
}
