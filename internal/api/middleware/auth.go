package middleware

import (
	"net/http"
	"strings"

	"github.com/telemetry-platform/telemetry/internal/auth"
)

// exemptPrefixes are path prefixes this middleware never asks for a bearer
// token: the login/validate surface, the unauthenticated liveness probe,
// and the WebSocket feed, whose handler verifies the bearer itself (from
// the Authorization header or the ?token= query parameter).
var exemptPrefixes = []string{"/auth/", "/health", "/ws/"}

// Auth returns middleware that enforces the bearer-token filter described
// in §4.D: requests to /data/* or /analysis/* must carry a valid bearer;
// /auth/*, /health and /ws/* are exempt, and CORS preflight (OPTIONS) is
// never blocked regardless of path.
func Auth(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodOptions || isExempt(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			token := extractBearer(r)
			if token == "" {
				unauthorized(w)
				return
			}
			claims, err := auth.Verify(secret, token)
			if err != nil {
				unauthorized(w)
				return
			}
			ctx := auth.WithClaims(r.Context(), claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func isExempt(path string) bool {
	for _, prefix := range exemptPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

func unauthorized(w http.ResponseWriter) {
	w.WriteHeader(http.StatusUnauthorized)
}

func extractBearer(r *http.Request) string {
	s := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(s) > len(prefix) && strings.EqualFold(s[:len(prefix)], prefix) {
		return strings.TrimSpace(s[len(prefix):])
	}
	return ""
}
