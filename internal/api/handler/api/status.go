// internal/api/handler/api/status.go
package api

import (
	"net/http"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/newthinker/orion/internal/api/response"
	"github.com/newthinker/orion/internal/core"
)

// FeedControl defines what the handler needs from the feed manager.
type FeedControl interface {
	Mode() string
	Degraded() bool
	Status() core.ConnectionStatus
	Reconnect()
}

// Sizer reports how many signals are on the board.
type Sizer interface {
	Len() int
}

// StatusHandler reports service and feed health.
type StatusHandler struct {
	feed    FeedControl
	store   Sizer
	version string
	started time.Time
	now     func() time.Time
}

// NewStatusHandler creates a status handler. feed and store may be nil.
func NewStatusHandler(feed FeedControl, store Sizer, version string) *StatusHandler {
	return &StatusHandler{
		feed:    feed,
		store:   store,
		version: version,
		started: time.Now(),
		now:     time.Now,
	}
}

// StatusResponse describes the running relay.
type StatusResponse struct {
	Mode       string                `json:"mode"`
	Connection core.ConnectionStatus `json:"connection"`
	Degraded   bool                  `json:"degraded"`
	Signals    int                   `json:"signals"`
	Version    string                `json:"version,omitempty"`
	Started    string                `json:"started"`
	Uptime     float64               `json:"uptime_seconds"`
	Timestamp  time.Time             `json:"timestamp"`
}

// Status returns feed mode, connection state and board size.
func (h *StatusHandler) Status(w http.ResponseWriter, r *http.Request) {
	now := h.now()
	resp := StatusResponse{
		Mode:       "none",
		Connection: core.StatusDisconnected,
		Version:    h.version,
		Started:    humanize.RelTime(h.started, now, "ago", "from now"),
		Uptime:     now.Sub(h.started).Seconds(),
		Timestamp:  now.UTC(),
	}
	if h.feed != nil {
		resp.Mode = h.feed.Mode()
		resp.Connection = h.feed.Status()
		resp.Degraded = h.feed.Degraded()
	}
	if h.store != nil {
		resp.Signals = h.store.Len()
	}

	response.JSON(w, http.StatusOK, resp)
}

// Reconnect forces the live feed to dial again.
func (h *StatusHandler) Reconnect(w http.ResponseWriter, r *http.Request) {
	if h.feed == nil {
		response.Error(w, http.StatusServiceUnavailable, "no feed configured")
		return
	}
	h.feed.Reconnect()
	response.JSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"message":   "Reconnect requested",
		"mode":      h.feed.Mode(),
		"timestamp": h.now().UTC(),
	})
}

// Health is the liveness probe.
func (h *StatusHandler) Health(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, http.StatusOK, map[string]any{
		"status":    "OK",
		"timestamp": h.now().UTC(),
	})
}
