package rest

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/telemetry-platform/telemetry/internal/auth"
	"github.com/telemetry-platform/telemetry/internal/pkg/audit"
	"github.com/telemetry-platform/telemetry/internal/pkg/metrics"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token       string `json:"token"`
	Type        string `json:"type"`
	Username    string `json:"username"`
	ExpiresInMs int64  `json:"expires_in_ms"`
}

// PostLogin handles POST /auth/login.
func (h *Handler) PostLogin(w http.ResponseWriter, r *http.Request) {
	reqID := requestIDOf(r)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		respondValidationError(w, http.StatusBadRequest, "body", "could not read request body", reqID)
		return
	}
	var req loginRequest
	if err := json.Unmarshal(body, &req); err != nil {
		respondValidationError(w, http.StatusBadRequest, "body", "malformed login request", reqID)
		return
	}

	ttl := time.Duration(h.Cfg.AuthTokenTTLMs) * time.Millisecond
	token, expiry, err := auth.Login(r.Context(), h.Identity, h.Cfg.AuthSecret, req.Username, req.Password, ttl)
	if err != nil {
		outcome := "wrong_password"
		if errors.Is(err, auth.ErrUnknownUser) {
			outcome = "unknown_user"
		}
		audit.LogLogin(reqID, req.Username, outcome, err.Error())
		metrics.AuthLoginAttemptsTotal.WithLabelValues(outcome).Inc()
		respondError(w, http.StatusUnauthorized, ErrCodeUnauthorized, "invalid username or password", reqID)
		return
	}
	audit.LogLogin(reqID, req.Username, "success", "")
	metrics.AuthLoginAttemptsTotal.WithLabelValues("success").Inc()

	respondJSON(w, http.StatusOK, loginResponse{
		Token:       token,
		Type:        "Bearer",
		Username:    req.Username,
		ExpiresInMs: time.Until(expiry).Milliseconds(),
	})
}

type validateResponse struct {
	Valid    bool   `json:"valid"`
	Username string `json:"username,omitempty"`
}

// GetValidate handles GET /auth/validate.
func (h *Handler) GetValidate(w http.ResponseWriter, r *http.Request) {
	token := extractBearerToken(r)
	if token == "" {
		respondJSON(w, http.StatusOK, validateResponse{Valid: false})
		return
	}
	claims, err := auth.Verify(h.Cfg.AuthSecret, token)
	if err != nil {
		respondJSON(w, http.StatusOK, validateResponse{Valid: false})
		return
	}
	respondJSON(w, http.StatusOK, validateResponse{Valid: true, Username: claims.Username})
}

func extractBearerToken(r *http.Request) string {
	s := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(s) > len(prefix) && strings.EqualFold(s[:len(prefix)], prefix) {
		return strings.TrimSpace(s[len(prefix):])
	}
	return ""
}
