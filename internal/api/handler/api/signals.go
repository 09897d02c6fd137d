// internal/api/handler/api/signals.go
package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/newthinker/orion/internal/api/response"
	"github.com/newthinker/orion/internal/core"
	"github.com/newthinker/orion/internal/feed"
	"github.com/newthinker/orion/internal/storage/signal"
	"go.uber.org/zap"
)

// SourceHTTP labels signals pushed through the ingest endpoint.
const SourceHTTP = "http"

const maxBodyBytes = 1 << 20

// SignalStore defines what the handler needs from the signal board.
type SignalStore interface {
	Upsert(sig core.Signal) bool
	Get(id string) (core.Signal, error)
	List(filter signal.ListFilter) []core.Signal
}

// IngestRecorder counts accepted signals. *metrics.Registry implements it.
type IngestRecorder interface {
	RecordIngested(source string)
}

// SignalsHandler handles signal-related API requests.
type SignalsHandler struct {
	store    SignalStore
	recorder IngestRecorder
	logger   *zap.Logger
}

// NewSignalsHandler creates a new signals handler. recorder may be nil.
func NewSignalsHandler(store SignalStore, recorder IngestRecorder, logger *zap.Logger) *SignalsHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SignalsHandler{store: store, recorder: recorder, logger: logger}
}

// IngestResponse acknowledges a pushed signal.
type IngestResponse struct {
	Success    bool      `json:"success"`
	Message    string    `json:"message"`
	SignalID   string    `json:"signal_id"`
	SignalType string    `json:"signal_type"`
	DryRun     bool      `json:"dry_run"`
	Created    bool      `json:"created"`
	Timestamp  time.Time `json:"timestamp"`
}

// Ingest validates a pushed signal and upserts it unless dry_run is set.
func (h *SignalsHandler) Ingest(w http.ResponseWriter, r *http.Request) {
	var wire feed.WireSignal
	if !decodeBody(w, r, &wire, "Failed to process signal") {
		return
	}

	sig, err := wire.ToSignal()
	if err != nil {
		response.Error(w, http.StatusBadRequest, core.ErrValidation.Message, feed.FieldErrors(err)...)
		return
	}

	signalType := wire.SignalType
	if signalType == "" {
		signalType = "signal"
	}

	h.logger.Info("signal received",
		zap.String("signal_id", sig.ID),
		zap.String("signal_type", signalType),
		zap.String("symbol", sig.Symbol),
		zap.String("direction", string(sig.Direction)),
		zap.String("status", string(sig.Status)),
		zap.Bool("dry_run", wire.DryRun),
	)

	created := false
	if !wire.DryRun {
		created = h.store.Upsert(sig)
		if h.recorder != nil {
			h.recorder.RecordIngested(SourceHTTP)
		}
	}

	response.JSON(w, http.StatusOK, IngestResponse{
		Success:    true,
		Message:    "Signal received successfully",
		SignalID:   sig.ID,
		SignalType: signalType,
		DryRun:     wire.DryRun,
		Created:    created,
		Timestamp:  time.Now().UTC(),
	})
}

// List returns the board newest first, narrowed by query parameters.
// Filters only shape the view; nothing in the store changes.
func (h *SignalsHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	filter := signal.ListFilter{
		Symbol:   strings.ToUpper(strings.TrimSpace(q.Get("symbol"))),
		Killzone: strings.ToLower(strings.TrimSpace(q.Get("killzone"))),
	}

	if raw := q.Get("status"); raw != "" {
		status, ok := core.ParseStatus(raw)
		if !ok {
			response.Error(w, http.StatusBadRequest, core.ErrValidation.Message, "status must be pending, confirmed or invalidated")
			return
		}
		filter.Status = status
	}

	if only, _ := strconv.ParseBool(q.Get("confirmed_only")); only {
		filter.Status = core.StatusConfirmed
	}

	if limit := q.Get("limit"); limit != "" {
		if n, err := strconv.Atoi(limit); err == nil && n > 0 {
			filter.Limit = n
		}
	}

	signals := h.store.List(filter)
	if signals == nil {
		signals = []core.Signal{}
	}

	response.JSON(w, http.StatusOK, map[string]any{
		"signals":   signals,
		"count":     len(signals),
		"timestamp": time.Now().UTC(),
	})
}

// GetByID returns a single signal by ID.
func (h *SignalsHandler) GetByID(w http.ResponseWriter, r *http.Request, id string) {
	sig, err := h.store.Get(id)
	if err != nil {
		if errors.Is(err, core.ErrSignalNotFound) {
			response.FromError(w, http.StatusNotFound, err)
			return
		}
		response.FromError(w, http.StatusInternalServerError, err)
		return
	}

	response.JSON(w, http.StatusOK, sig)
}

// decodeBody reads a JSON body into v. It writes the error response itself
// and reports whether the caller should continue.
func decodeBody(w http.ResponseWriter, r *http.Request, v any, failure string) bool {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			response.Error(w, http.StatusRequestEntityTooLarge, "request body too large")
			return false
		}
		response.Error(w, http.StatusInternalServerError, failure, err.Error())
		return false
	}

	if len(strings.TrimSpace(string(body))) == 0 {
		response.Error(w, http.StatusBadRequest, "request body required")
		return false
	}

	if err := json.Unmarshal(body, v); err != nil {
		response.Error(w, http.StatusBadRequest, "invalid JSON body", err.Error())
		return false
	}
	return true
}
