package middleware

import (
	"strings"
	"testing"
)

func TestSessionTokenRoundTrip(t *testing.T) {
	t.Setenv("SESSION_JWT_SECRET", "test-secret")

	token, err := IssueSessionToken(12345, "alice")
	if err != nil {
		t.Fatalf("IssueSessionToken: %v", err)
	}

	claims, err := ParseSessionToken(token)
	if err != nil {
		t.Fatalf("ParseSessionToken: %v", err)
	}
	if claims.Fid != 12345 {
		t.Errorf("fid = %d, want 12345", claims.Fid)
	}
	if claims.Username != "alice" {
		t.Errorf("username = %q, want %q", claims.Username, "alice")
	}
	if claims.ExpiresAt == nil {
		t.Error("token has no expiry")
	}
}

func TestParseSessionToken_WrongSecret(t *testing.T) {
	t.Setenv("SESSION_JWT_SECRET", "secret-one")
	token, err := IssueSessionToken(1, "bob")
	if err != nil {
		t.Fatalf("IssueSessionToken: %v", err)
	}

	t.Setenv("SESSION_JWT_SECRET", "secret-two")
	if _, err := ParseSessionToken(token); err == nil {
		t.Error("expected verification failure with a different secret")
	}
}

func TestParseSessionToken_Tampered(t *testing.T) {
	t.Setenv("SESSION_JWT_SECRET", "test-secret")
	token, err := IssueSessionToken(1, "carol")
	if err != nil {
		t.Fatalf("IssueSessionToken: %v", err)
	}

	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		t.Fatalf("unexpected token shape: %d parts", len(parts))
	}
	tampered := parts[0] + "." + parts[1] + ".AAAA"
	if _, err := ParseSessionToken(tampered); err == nil {
		t.Error("expected verification failure for tampered signature")
	}
}
