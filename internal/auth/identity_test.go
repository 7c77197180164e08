package auth

import (
	"context"
	"testing"
	"time"
)

func newStaticProvider(t *testing.T, username, password string) StaticIdentityProvider {
	t.Helper()
	hash, err := HashPassword(password)
	if err != nil {
		t.Fatalf("HashPassword failed: %v", err)
	}
	return StaticIdentityProvider{username: hash}
}

func TestLogin_Success(t *testing.T) {
	provider := newStaticProvider(t, "alice", "correct-horse")
	token, expiry, err := Login(context.Background(), provider, testSecret, "alice", "correct-horse", time.Hour)
	if err != nil {
		t.Fatalf("Login failed: %v", err)
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
}

func TestLogin_UnknownUser(t *testing.T) {
	provider := newStaticProvider(t, "alice", "correct-horse")
	_, _, err := Login(context.Background(), provider, testSecret, "bob", "whatever", time.Hour)
	if err != ErrUnknownUser {
		t.Errorf("expected ErrUnknownUser, got %v", err)
	}
}

func TestLogin_WrongPassword(t *testing.T) {
	provider := newStaticProvider(t, "alice", "correct-horse")
	_, _, err := Login(context.Background(), provider, testSecret, "alice", "wrong-password", time.Hour)
	if err != ErrWrongPassword {
		t.Errorf("expected ErrWrongPassword, got %v", err)
	}
}
