// Package rest implements the HTTP query surface over the ingestion
// store, the on-demand analysis engine, and the auth boundary.
package rest

import (
	"net/http"
	"strconv"

	"github.com/telemetry-platform/telemetry/internal/analysis"
	"github.com/telemetry-platform/telemetry/internal/auth"
	"github.com/telemetry-platform/telemetry/internal/config"
	"github.com/telemetry-platform/telemetry/internal/ingest"
	"github.com/telemetry-platform/telemetry/internal/pkg/logger"
	"github.com/telemetry-platform/telemetry/internal/store"
)

// Handler holds the dependencies shared by every route.
type Handler struct {
	Store        store.Store
	Engine       *ingest.Engine
	Analysis     *analysis.Engine
	Identity     auth.IdentityProvider
	Cfg          *config.Config
}

// NewHandler constructs a Handler. engine may be nil in tests that only
// exercise query routes.
func NewHandler(st store.Store, engine *ingest.Engine, analysisEngine *analysis.Engine, identity auth.IdentityProvider, cfg *config.Config) *Handler {
	return &Handler{Store: st, Engine: engine, Analysis: analysisEngine, Identity: identity, Cfg: cfg}
}

func requestIDOf(r *http.Request) string {
	return logger.FromContext(r.Context())
}

func parseIntParam(r *http.Request, name string, def, max int) int {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return def
	}
	if max > 0 && n > max {
		return max
	}
	return n
}

func parseFloatParam(r *http.Request, name string) (float64, bool) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// Health handles GET /health: an unauthenticated liveness probe.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
