package core

import (
	"strconv"
	"strings"
	"time"
)

// Direction is the side of a trade setup
type Direction string

const (
	DirectionLong  Direction = "long"
	DirectionShort Direction = "short"
)

// ParseDirection accepts both dashboard ("long") and backend ("LONG") spellings.
func ParseDirection(s string) (Direction, bool) {
	switch Direction(strings.ToLower(strings.TrimSpace(s))) {
	case DirectionLong:
		return DirectionLong, true
	case DirectionShort:
		return DirectionShort, true
	}
	return "", false
}

// Status is the lifecycle state of a signal
type Status string

const (
	StatusPending     Status = "pending"
	StatusConfirmed   Status = "confirmed"
	StatusInvalidated Status = "invalidated"
)

// ParseStatus normalises a status value. Empty input means pending.
func ParseStatus(s string) (Status, bool) {
	switch Status(strings.ToLower(strings.TrimSpace(s))) {
	case "", StatusPending:
		return StatusPending, true
	case StatusConfirmed:
		return StatusConfirmed, true
	case StatusInvalidated:
		return StatusInvalidated, true
	}
	return "", false
}

// IsTerminal reports whether no further transition is allowed.
func (s Status) IsTerminal() bool {
	return s == StatusConfirmed || s == StatusInvalidated
}

// Signal is a proposed trade setup with its lifecycle status.
// Zero price levels mean "not set".
type Signal struct {
	ID          string    `json:"id"`
	Symbol      string    `json:"symbol"`
	Direction   Direction `json:"direction"`
	Status      Status    `json:"status"`
	EntryTime   time.Time `json:"entry_time"`
	EntryPrice  float64   `json:"entry_price,omitempty"`
	StopLoss    float64   `json:"stop_loss,omitempty"`
	TakeProfits []float64 `json:"take_profits,omitempty"`
	TPModes     []string  `json:"tp_modes,omitempty"`
	Reason      string    `json:"reason,omitempty"`
	Confidence  float64   `json:"confidence"`
	RRTarget    float64   `json:"rr_target,omitempty"`
	Killzone    string    `json:"killzone,omitempty"`
}

// Clone returns a deep copy so callers never share slices with the owner.
func (s Signal) Clone() Signal {
	if s.TakeProfits != nil {
		s.TakeProfits = append([]float64(nil), s.TakeProfits...)
	}
	if s.TPModes != nil {
		s.TPModes = append([]string(nil), s.TPModes...)
	}
	return s
}

// IsLong is shorthand for Direction == DirectionLong.
func (s Signal) IsLong() bool {
	return s.Direction == DirectionLong
}

// TPLabel returns the mode label for the i-th take profit, or "TP<n>".
func (s Signal) TPLabel(i int) string {
	if i < len(s.TPModes) && s.TPModes[i] != "" {
		return s.TPModes[i]
	}
	return "TP" + strconv.Itoa(i+1)
}

// PriceTick is the latest price for a symbol.
type PriceTick struct {
	Symbol        string    `json:"symbol"`
	Price         float64   `json:"price"`
	Change        float64   `json:"change"`
	ChangePercent float64   `json:"change_percent"`
	Volume        float64   `json:"volume"`
	Timestamp     time.Time `json:"timestamp"`
}

// IsValid checks if the tick has required fields
func (t PriceTick) IsValid() bool {
	return t.Symbol != "" && t.Price > 0
}

// ConnectionStatus describes the state of a feed source.
type ConnectionStatus string

const (
	StatusConnecting   ConnectionStatus = "connecting"
	StatusConnected    ConnectionStatus = "connected"
	StatusDisconnected ConnectionStatus = "disconnected"
)
