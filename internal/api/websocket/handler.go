package websocket

import (
	"context"
	"net/http"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/telemetry-platform/telemetry/internal/auth"
	"github.com/telemetry-platform/telemetry/internal/config"
	"github.com/telemetry-platform/telemetry/internal/pkg/logger"
)

// Handler upgrades authenticated HTTP requests to WebSocket connections
// serving the /ws/readings broadcast feed.
type Handler struct {
	hub      *Hub
	ctx      context.Context
	cfg      *config.Config
	upgrader websocket.Upgrader
}

// NewHandler returns a Handler broadcasting from hub, bound to ctx.
func NewHandler(ctx context.Context, hub *Hub, cfg *config.Config) *Handler {
	originMap := make(map[string]bool, len(cfg.AllowedOrigins))
	for _, origin := range cfg.AllowedOrigins {
		originMap[strings.ToLower(origin)] = true
	}

	return &Handler{
		hub: hub,
		ctx: ctx,
		cfg: cfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if origin == "" {
					return true
				}
				return originMap[strings.ToLower(origin)]
			},
		},
	}
}

// ServeWS handles GET /ws/readings. Per §4.D the subscriber must carry a
// valid bearer, same as the /data and /analysis surface; the token may
// arrive in the Authorization header or the ?token= query parameter since
// browser WebSocket clients cannot set arbitrary headers on the handshake.
func (h *Handler) ServeWS(w http.ResponseWriter, r *http.Request) {
	token := extractBearer(r)
	if token == "" {
		http.Error(w, "authentication required", http.StatusUnauthorized)
		return
	}
	claims, err := auth.Verify(h.cfg.AuthSecret, token)
	if err != nil {
		http.Error(w, "invalid or expired token", http.StatusUnauthorized)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.EventLog(os.Stderr, "warn", "", "websocket upgrade failed", err.Error())
		return
	}

	clientID := uuid.New().String()
	client := NewClient(h.ctx, h.hub, conn, clientID, claims)
	h.hub.register <- client

	go client.WritePump()
	go client.ReadPump()
}

func extractBearer(r *http.Request) string {
	s := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(s) > len(prefix) && strings.EqualFold(s[:len(prefix)], prefix) {
		return strings.TrimSpace(s[len(prefix):])
	}
	return r.URL.Query().Get("token")
}
