// internal/api/middleware/auth.go
package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/newthinker/orion/internal/api/response"
)

// IngestAuth returns middleware that checks the ingest token on POST
// requests. The token is read from "Authorization: Bearer" or X-API-Key.
// If token is empty, authentication is disabled.
func IngestAuth(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token == "" || r.Method != http.MethodPost {
				next.ServeHTTP(w, r)
				return
			}

			provided := r.Header.Get("X-API-Key")
			if auth := r.Header.Get("Authorization"); provided == "" && strings.HasPrefix(auth, "Bearer ") {
				provided = strings.TrimPrefix(auth, "Bearer ")
			}

			if provided == "" {
				response.Error(w, http.StatusUnauthorized, "unauthorized", "ingest token required")
				return
			}

			// Constant-time comparison to prevent timing attacks
			if subtle.ConstantTimeCompare([]byte(provided), []byte(token)) != 1 {
				response.Error(w, http.StatusUnauthorized, "unauthorized", "invalid ingest token")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
