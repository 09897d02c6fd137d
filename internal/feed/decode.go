// Package feed decodes inbound signal traffic and runs the live sources.
package feed

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/newthinker/orion/internal/core"
)

// Message kinds
const (
	KindSignal  = "signal"
	KindPrice   = "price_update"
	KindUnknown = "unknown"
)

var validate = newValidator()

// newValidator reports fields by their JSON names.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// WireSignal is the inbound signal shape. It accepts the dashboard form
// (direction, entry_time, lowercase status) and the backend form (side,
// time, uppercase status), plus the legacy price field.
type WireSignal struct {
	ID          string    `json:"id" validate:"required"`
	Symbol      string    `json:"symbol" validate:"required"`
	Direction   string    `json:"direction" validate:"required_without=Side"`
	Side        string    `json:"side" validate:"required_without=Direction"`
	Status      string    `json:"status"`
	EntryTime   string    `json:"entry_time"`
	Time        string    `json:"time"`
	Price       *float64  `json:"price" validate:"omitempty,gte=0"`
	EntryPrice  *float64  `json:"entry_price" validate:"omitempty,gte=0"`
	StopLoss    *float64  `json:"stop_loss" validate:"omitempty,gte=0"`
	TakeProfits []float64 `json:"take_profits" validate:"omitempty,dive,gt=0"`
	TPModes     []string  `json:"tp_modes"`
	Reason      string    `json:"reason"`
	Confidence  *float64  `json:"confidence" validate:"omitempty,gte=0,lte=100"`
	RRTarget    *float64  `json:"rr_target"`
	Killzone    string    `json:"killzone"`
	SignalType  string    `json:"signal_type"`
	DryRun      bool      `json:"dry_run"`
}

// WirePrice is the inbound price update shape.
type WirePrice struct {
	Symbol        string  `json:"symbol" validate:"required"`
	Price         float64 `json:"price" validate:"required,gt=0"`
	Change        float64 `json:"change"`
	ChangePercent float64 `json:"change_percent"`
	Volume        float64 `json:"volume" validate:"gte=0"`
	Timestamp     string  `json:"timestamp"`
}

// Message is one decoded feed frame.
type Message struct {
	Kind   string
	Type   string
	Signal core.Signal
	Tick   core.PriceTick
}

type envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Decode parses a feed frame. Frames without a type are treated as a bare
// signal. Unknown types decode to KindUnknown without error.
func Decode(data []byte) (Message, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Message{}, core.WrapError(core.ErrMalformedMessage, err)
	}

	switch env.Type {
	case "":
		sig, err := DecodeSignal(data)
		return Message{Kind: KindSignal, Signal: sig}, err
	case KindSignal:
		sig, err := DecodeSignal(env.Payload)
		return Message{Kind: KindSignal, Type: env.Type, Signal: sig}, err
	case KindPrice:
		tick, err := DecodePrice(env.Payload)
		return Message{Kind: KindPrice, Type: env.Type, Tick: tick}, err
	default:
		return Message{Kind: KindUnknown, Type: env.Type}, nil
	}
}

// DecodeSignal parses, validates and normalises a signal payload.
func DecodeSignal(data []byte) (core.Signal, error) {
	var w WireSignal
	if err := unmarshal(data, &w); err != nil {
		return core.Signal{}, err
	}
	return w.ToSignal()
}

// DecodePrice parses and validates a price payload.
func DecodePrice(data []byte) (core.PriceTick, error) {
	var w WirePrice
	if err := unmarshal(data, &w); err != nil {
		return core.PriceTick{}, err
	}
	return w.ToTick()
}

func unmarshal(data []byte, v any) error {
	if len(data) == 0 || string(data) == "null" {
		return core.WrapError(core.ErrMalformedMessage, errors.New("empty payload"))
	}
	if err := json.Unmarshal(data, v); err != nil {
		return core.WrapError(core.ErrMalformedMessage, err)
	}
	return nil
}

// ToSignal validates w and converts it to the domain type.
func (w WireSignal) ToSignal() (core.Signal, error) {
	if err := validateStruct(w); err != nil {
		return core.Signal{}, err
	}

	raw := w.Direction
	if raw == "" {
		raw = w.Side
	}
	dir, ok := core.ParseDirection(raw)
	if !ok {
		return core.Signal{}, invalid("direction must be long or short, got %q", raw)
	}

	status, ok := core.ParseStatus(w.Status)
	if !ok {
		return core.Signal{}, invalid("status must be pending, confirmed or invalidated, got %q", w.Status)
	}

	if len(w.TPModes) > 0 && len(w.TPModes) != len(w.TakeProfits) {
		return core.Signal{}, invalid("tp_modes has %d entries for %d take_profits", len(w.TPModes), len(w.TakeProfits))
	}

	stamp := w.EntryTime
	if stamp == "" {
		stamp = w.Time
	}
	entryTime, err := parseTime(stamp)
	if err != nil {
		return core.Signal{}, invalid("entry_time: %v", err)
	}

	entry := deref(w.EntryPrice)
	if entry == 0 {
		entry = deref(w.Price)
	}

	confidence := deref(w.Confidence)
	if confidence > 1 {
		// percent form
		confidence /= 100
	}

	return core.Signal{
		ID:          strings.TrimSpace(w.ID),
		Symbol:      strings.ToUpper(strings.TrimSpace(w.Symbol)),
		Direction:   dir,
		Status:      status,
		EntryTime:   entryTime,
		EntryPrice:  entry,
		StopLoss:    deref(w.StopLoss),
		TakeProfits: w.TakeProfits,
		TPModes:     w.TPModes,
		Reason:      w.Reason,
		Confidence:  confidence,
		RRTarget:    deref(w.RRTarget),
		Killzone:    strings.ToLower(w.Killzone),
	}, nil
}

// ToTick validates w and converts it to the domain type.
func (w WirePrice) ToTick() (core.PriceTick, error) {
	if err := validateStruct(w); err != nil {
		return core.PriceTick{}, err
	}

	ts, err := parseTime(w.Timestamp)
	if err != nil {
		return core.PriceTick{}, invalid("timestamp: %v", err)
	}
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	return core.PriceTick{
		Symbol:        strings.ToUpper(strings.TrimSpace(w.Symbol)),
		Price:         w.Price,
		Change:        w.Change,
		ChangePercent: w.ChangePercent,
		Volume:        w.Volume,
		Timestamp:     ts,
	}, nil
}

// FieldErrors returns human readable validation messages from err.
func FieldErrors(err error) []string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		out := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			out = append(out, fieldMessage(fe))
		}
		return out
	}
	var cerr *core.Error
	if errors.As(err, &cerr) && cerr.Cause != nil {
		return []string{cerr.Cause.Error()}
	}
	if err != nil {
		return []string{err.Error()}
	}
	return nil
}

func validateStruct(v any) error {
	if err := validate.Struct(v); err != nil {
		return core.WrapError(core.ErrValidation, err)
	}
	return nil
}

func fieldMessage(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "required_without":
		return fmt.Sprintf("%s or %s is required", field, strings.ToLower(fe.Param()))
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be greater than or equal to %s", field, fe.Param())
	case "lte":
		return fmt.Sprintf("%s must be less than or equal to %s", field, fe.Param())
	default:
		return fmt.Sprintf("%s failed validation: %s", field, fe.Tag())
	}
}

func invalid(format string, args ...any) error {
	return core.WrapError(core.ErrValidation, fmt.Errorf(format, args...))
}

func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised time %q", s)
}

func deref(p *float64) float64 {
	if p == nil {
		return 0
	}
	return *p
}
