// internal/api/middleware/recover.go
package middleware

import (
	"fmt"
	"net/http"

	"github.com/newthinker/orion/internal/api/response"
	"go.uber.org/zap"
)

// Recover turns a handler panic into a 500 response.
func Recover(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					if rec == http.ErrAbortHandler {
						panic(rec)
					}
					logger.Error("handler panic",
						zap.String("path", r.URL.Path),
						zap.Any("panic", rec),
						zap.Stack("stack"),
					)
					response.Error(w, http.StatusInternalServerError, "Internal server error", fmt.Sprint(rec))
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
