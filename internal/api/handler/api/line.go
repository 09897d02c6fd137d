// internal/api/handler/api/line.go
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/newthinker/orion/internal/api/response"
	"github.com/newthinker/orion/internal/core"
	"github.com/newthinker/orion/internal/feed"
	"github.com/newthinker/orion/internal/notifier"
	"go.uber.org/zap"
)

// LineSender defines what the handler needs from the LINE notifier.
type LineSender interface {
	Configured() bool
	Send(ctx context.Context, sig core.Signal) error
	SendTest(ctx context.Context, sig *core.Signal) error
}

// LineHandler pushes LINE messages on demand.
type LineHandler struct {
	line    LineSender
	timeout time.Duration
	logger  *zap.Logger
}

// NewLineHandler creates a LINE handler. line may be nil when LINE is not configured.
func NewLineHandler(line LineSender, logger *zap.Logger) *LineHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LineHandler{line: line, timeout: notifier.DefaultTimeout, logger: logger}
}

// LineRequest carries an optional signal.
type LineRequest struct {
	Signal *feed.WireSignal `json:"signal"`
}

// SendNotification sends a flex bubble for the posted signal.
func (h *LineHandler) SendNotification(w http.ResponseWriter, r *http.Request) {
	if !h.configured() {
		response.Error(w, http.StatusInternalServerError, "LINE token not configured")
		return
	}

	var req LineRequest
	if !decodeBody(w, r, &req, "Internal server error") {
		return
	}
	if req.Signal == nil {
		response.Error(w, http.StatusBadRequest, "Signal data required")
		return
	}

	sig, err := req.Signal.ToSignal()
	if err != nil {
		response.Error(w, http.StatusBadRequest, core.ErrValidation.Message, feed.FieldErrors(err)...)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	if err := h.line.Send(ctx, sig); err != nil {
		h.fail(w, err, "LINE API error")
		return
	}

	h.logger.Info("line notification sent", zap.String("signal_id", sig.ID))
	response.JSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"message":   "Notification sent",
		"timestamp": time.Now().UTC(),
	})
}

// SendTest sends the plain text test message. The signal is optional.
func (h *LineHandler) SendTest(w http.ResponseWriter, r *http.Request) {
	if !h.configured() {
		response.Error(w, http.StatusInternalServerError, "LINE token not configured")
		return
	}

	var sig *core.Signal
	if r.ContentLength != 0 {
		var req LineRequest
		if !decodeBody(w, r, &req, "Server error") {
			return
		}
		if req.Signal != nil {
			s, err := req.Signal.ToSignal()
			if err != nil {
				response.Error(w, http.StatusBadRequest, core.ErrValidation.Message, feed.FieldErrors(err)...)
				return
			}
			sig = &s
		}
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	if err := h.line.SendTest(ctx, sig); err != nil {
		h.fail(w, err, "LINE API failed")
		return
	}

	response.JSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"message":   "LINE notification sent successfully!",
		"timestamp": time.Now().UTC(),
	})
}

func (h *LineHandler) configured() bool {
	return h.line != nil && h.line.Configured()
}

// fail mirrors an upstream status when LINE answered, else reports 500.
func (h *LineHandler) fail(w http.ResponseWriter, err error, message string) {
	h.logger.Error("line request failed", zap.Error(err))

	var se *notifier.StatusError
	if errors.As(err, &se) {
		response.Upstream(w, se.StatusCode, message, se.Body)
		return
	}
	response.FromError(w, http.StatusInternalServerError, err)
}
