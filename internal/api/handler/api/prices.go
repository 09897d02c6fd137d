// internal/api/handler/api/prices.go
package api

import (
	"net/http"
	"time"

	"github.com/newthinker/orion/internal/api/response"
	"github.com/newthinker/orion/internal/core"
	"github.com/newthinker/orion/internal/feed"
)

// TickBoard defines what the handler needs from the price board.
type TickBoard interface {
	Update(tick core.PriceTick)
	All() []core.PriceTick
}

// TickRecorder counts accepted ticks. *metrics.Registry implements it.
type TickRecorder interface {
	RecordTick(symbol string)
}

// PricesHandler handles price updates.
type PricesHandler struct {
	ticks    TickBoard
	recorder TickRecorder
}

// NewPricesHandler creates a prices handler. recorder may be nil.
func NewPricesHandler(ticks TickBoard, recorder TickRecorder) *PricesHandler {
	return &PricesHandler{ticks: ticks, recorder: recorder}
}

// PriceResponse acknowledges a pushed price update.
type PriceResponse struct {
	Success   bool      `json:"success"`
	Message   string    `json:"message"`
	Symbol    string    `json:"symbol"`
	Price     float64   `json:"price"`
	Timestamp time.Time `json:"timestamp"`
}

// Ingest validates a price update and stores it on the board.
func (h *PricesHandler) Ingest(w http.ResponseWriter, r *http.Request) {
	var wire feed.WirePrice
	if !decodeBody(w, r, &wire, "Internal server error") {
		return
	}

	tick, err := wire.ToTick()
	if err != nil {
		response.Error(w, http.StatusBadRequest, core.ErrValidation.Message, feed.FieldErrors(err)...)
		return
	}

	h.ticks.Update(tick)
	if h.recorder != nil {
		h.recorder.RecordTick(tick.Symbol)
	}

	response.JSON(w, http.StatusOK, PriceResponse{
		Success:   true,
		Message:   "Price update received",
		Symbol:    tick.Symbol,
		Price:     tick.Price,
		Timestamp: time.Now().UTC(),
	})
}

// List returns the latest tick per symbol.
func (h *PricesHandler) List(w http.ResponseWriter, r *http.Request) {
	ticks := h.ticks.All()
	if ticks == nil {
		ticks = []core.PriceTick{}
	}
	response.JSON(w, http.StatusOK, map[string]any{
		"prices":    ticks,
		"count":     len(ticks),
		"timestamp": time.Now().UTC(),
	})
}
