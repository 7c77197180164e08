package auth

import (
	"context"
	"testing"
)

func TestWithClaims(t *testing.T) {
	ctx := context.Background()
	claims := &Claims{Username: "testuser"}

	ctxWithClaims := WithClaims(ctx, claims)
	if ctxWithClaims == nil {
		t.Error("Context should not be nil")
	}
}

func TestClaimsFromContext(t *testing.T) {
	ctx := context.Background()
	claims := &Claims{Username: "testuser"}

	ctxWithClaims := WithClaims(ctx, claims)
	retrievedClaims := ClaimsFromContext(ctxWithClaims)

	if retrievedClaims == nil {
		t.Fatal("Claims should not be nil")
	}
	if retrievedClaims.Username != claims.Username {
		t.Errorf("Expected Username %s, got %s", claims.Username, retrievedClaims.Username)
	}
}

func TestClaimsFromContext_NoClaims(t *testing.T) {
	ctx := context.Background()
	claims := ClaimsFromContext(ctx)
	if claims != nil {
		t.Error("Claims should be nil when not set in context")
	}
}
