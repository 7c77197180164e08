package auth

import (
	"testing"
	"time"
)

const testSecret = "test-secret-key-minimum-32-characters-long-for-hmac"

func TestIssue_RoundTrip(t *testing.T) {
	token, expiry, err := Issue(testSecret, "alice", time.Hour)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	if token == "" {
		t.Error("token should not be empty")
	}
	if expiry.Before(time.Now()) {
		t.Error("expiry should be in the future")
	}

	claims, err := Verify(testSecret, token)
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if claims.Username != "alice" {
		t.Errorf("expected username alice, got %s", claims.Username)
	}
	if claims.Subject != "alice" {
		t.Errorf("expected subject alice, got %s", claims.Subject)
	}
}

func TestVerify_WrongSecret(t *testing.T) {
	token, _, err := Issue(testSecret, "alice", time.Hour)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	if _, err := Verify("a-completely-different-signing-secret-value", token); err == nil {
		t.Error("expected verification to fail with the wrong secret")
	}
}

func TestVerify_ExpiredToken(t *testing.T) {
	token, _, err := Issue(testSecret, "alice", -time.Minute)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	_, err = Verify(testSecret, token)
	if err != ErrExpiredToken {
		t.Errorf("expected ErrExpiredToken, got %v", err)
	}
}

func TestVerify_TamperedToken(t *testing.T) {
	token, _, err := Issue(testSecret, "alice", time.Hour)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	tampered := token[:len(token)-2] + "xx"
	if _, err := Verify(testSecret, tampered); err == nil {
		t.Error("expected verification to fail for a tampered token")
	}
}

func TestVerify_MalformedToken(t *testing.T) {
	if _, err := Verify(testSecret, "not-a-jwt"); err == nil {
		t.Error("expected error for a malformed token")
	}
}

func TestIssue_EmptySecret(t *testing.T) {
	if _, _, err := Issue("", "alice", time.Hour); err == nil {
		t.Error("expected error when secret is empty")
	}
}
