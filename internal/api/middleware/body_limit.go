// Package middleware provides request body size limiting.
package middleware

import "net/http"

// DefaultMaxBodyBytes caps the size of a POST /data request body (64KB is
// comfortably above a realistic single-reading JSON payload).
const DefaultMaxBodyBytes = 64 * 1024

// MaxBodySize returns middleware that caps request body size to max bytes.
// GET/HEAD/DELETE requests carry no body and are unaffected.
func MaxBodySize(max int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Body == nil {
				next.ServeHTTP(w, r)
				return
			}
			r.Body = http.MaxBytesReader(w, r.Body, max)
			next.ServeHTTP(w, r)
		})
	}
}
