package format

import (
	"testing"
	"time"

	"github.com/newthinker/orion/internal/core"
)

func TestPrice(t *testing.T) {
	tests := []struct {
		symbol string
		px     float64
		want   string
	}{
		{"MNQ", 19012.25, "19,012.25"},
		{"NQ", 17000, "17,000.00"},
		{"YM", 39125.4, "39,125"},
		{"GC", 2350.46, "2,350.5"},
		{"EURUSD", 1.085, "1.08500"},
		{"USDJPY", 151.2346, "151.235"},
		{"XYZ", 12.3, "12.30"},
	}

	for _, tt := range tests {
		t.Run(tt.symbol, func(t *testing.T) {
			if got := Price(tt.symbol, tt.px); got != tt.want {
				t.Errorf("Price(%s, %v) = %s, want %s", tt.symbol, tt.px, got, tt.want)
			}
		})
	}
}

func TestPercent(t *testing.T) {
	if got := Percent(0.856); got != "86%" {
		t.Errorf("expected 86%%, got %s", got)
	}
	if got := Percent(1); got != "100%" {
		t.Errorf("expected 100%%, got %s", got)
	}
}

func TestClock(t *testing.T) {
	ts := time.Date(2025, 3, 4, 9, 5, 7, 0, time.UTC)
	if got := Clock(ts); got != "09:05:07" {
		t.Errorf("expected 09:05:07, got %s", got)
	}
}

func TestTradeMessage(t *testing.T) {
	s := core.Signal{
		Symbol:      "MNQ",
		Direction:   core.DirectionLong,
		EntryPrice:  19000.5,
		StopLoss:    18980,
		TakeProfits: []float64{19030, 19060},
		TPModes:     []string{"TP1 50%"},
		Confidence:  0.82,
		Killzone:    "ny_am",
	}

	want := "MNQ | LONG\n" +
		"Entry 19,000.50\n" +
		"SL 18,980.00\n" +
		"TP TP1 50% 19,030.00, TP2 19,060.00\n" +
		"Confidence 82%\n" +
		"Killzone NY_AM"

	if got := TradeMessage(s); got != want {
		t.Errorf("unexpected message:\n%s\nwant:\n%s", got, want)
	}
}

func TestTradeMessage_Minimal(t *testing.T) {
	s := core.Signal{Symbol: "EURUSD", Direction: core.DirectionShort, Confidence: 0.6}

	want := "EURUSD | SHORT\nConfidence 60%"
	if got := TradeMessage(s); got != want {
		t.Errorf("unexpected message: %q", got)
	}
}
