// internal/api/response/response.go
package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/newthinker/orion/internal/core"
)

// ErrorResponse is the error body returned by every endpoint.
type ErrorResponse struct {
	Error     string    `json:"error"`
	Details   string    `json:"details,omitempty"`
	Status    int       `json:"status,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// JSON writes data as the response body.
func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// Error writes an error body with optional details.
func Error(w http.ResponseWriter, status int, message string, details ...string) {
	JSON(w, status, ErrorResponse{
		Error:     message,
		Details:   strings.Join(details, "; "),
		Timestamp: time.Now().UTC(),
	})
}

// FromError writes err as an error body. Coded errors report their message
// and cause; anything else is reported as an internal error.
func FromError(w http.ResponseWriter, status int, err error) {
	resp := ErrorResponse{
		Error:     "internal server error",
		Timestamp: time.Now().UTC(),
	}

	var coreErr *core.Error
	if errors.As(err, &coreErr) {
		resp.Error = coreErr.Message
		if coreErr.Cause != nil {
			resp.Details = coreErr.Cause.Error()
		}
	} else if err != nil {
		resp.Details = err.Error()
	}

	JSON(w, status, resp)
}

// Upstream mirrors a failed upstream status in the error body.
func Upstream(w http.ResponseWriter, status int, message, details string) {
	JSON(w, status, ErrorResponse{
		Error:     message,
		Details:   details,
		Status:    status,
		Timestamp: time.Now().UTC(),
	})
}
