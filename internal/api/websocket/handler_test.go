package websocket

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/telemetry-platform/telemetry/internal/config"
)

func testWSConfig() *config.Config {
	return &config.Config{
		AuthSecret:     "a-test-signing-secret-that-is-at-least-32-bytes",
		AllowedOrigins: []string{"http://localhost:5173"},
	}
}

func TestServeWS_RejectsMissingToken(t *testing.T) {
	hub := NewHub(context.Background())
	go hub.Run()
	defer hub.Stop()

	h := NewHandler(context.Background(), hub, testWSConfig())

	req := httptest.NewRequest(http.MethodGet, "/ws/readings", nil)
	rec := httptest.NewRecorder()
	h.ServeWS(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rec.Code)
	}
}

func TestServeWS_RejectsInvalidToken(t *testing.T) {
	hub := NewHub(context.Background())
	go hub.Run()
	defer hub.Stop()

	h := NewHandler(context.Background(), hub, testWSConfig())

	req := httptest.NewRequest(http.MethodGet, "/ws/readings?token=not-a-real-token", nil)
	rec := httptest.NewRecorder()
	h.ServeWS(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rec.Code)
	}
}
