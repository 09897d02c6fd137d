// Package format renders prices and signals as human-readable text.
package format

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/newthinker/orion/internal/core"
)

// Decimals returns the display precision for a symbol's price.
func Decimals(symbol string) int {
	switch strings.ToUpper(symbol) {
	case "MYM", "YM":
		return 0
	case "GC":
		return 1
	case "MNQ", "NQ", "MES", "ES", "CL":
		return 2
	}
	if isForexPair(symbol) {
		if strings.HasSuffix(strings.ToUpper(symbol), "JPY") {
			return 3
		}
		return 5
	}
	return 2
}

// Price formats px with the symbol's precision and thousands separators.
func Price(symbol string, px float64) string {
	return grouped(px, Decimals(symbol))
}

// Percent renders a [0,1] confidence as a whole percentage.
func Percent(v float64) string {
	return fmt.Sprintf("%d%%", int(math.Round(v*100)))
}

// Clock renders a timestamp as HH:MM:SS in UTC.
func Clock(t time.Time) string {
	return t.UTC().Format("15:04:05")
}

// Stamp renders a timestamp for notification footers.
func Stamp(t time.Time) string {
	return t.UTC().Format("Jan 2 15:04:05 UTC")
}

// TradeMessage is the copy-paste block used by the dashboard's copy action.
func TradeMessage(s core.Signal) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("%s | %s", s.Symbol, strings.ToUpper(string(s.Direction))))

	if s.EntryPrice != 0 {
		sb.WriteString("\nEntry " + grouped(s.EntryPrice, 2))
	}
	if s.StopLoss != 0 {
		sb.WriteString("\nSL " + grouped(s.StopLoss, 2))
	}
	if len(s.TakeProfits) > 0 {
		parts := make([]string, len(s.TakeProfits))
		for i, tp := range s.TakeProfits {
			parts[i] = s.TPLabel(i) + " " + grouped(tp, 2)
		}
		sb.WriteString("\nTP " + strings.Join(parts, ", "))
	}

	sb.WriteString("\nConfidence " + Percent(s.Confidence))

	if s.Killzone != "" {
		sb.WriteString("\nKillzone " + strings.ToUpper(s.Killzone))
	}

	return sb.String()
}

func grouped(v float64, decimals int) string {
	pattern := "#,###."
	if decimals > 0 {
		pattern += strings.Repeat("#", decimals)
	}
	return humanize.FormatFloat(pattern, v)
}

func isForexPair(symbol string) bool {
	if len(symbol) != 6 {
		return false
	}
	for _, r := range symbol {
		if (r < 'A' || r > 'Z') && (r < 'a' || r > 'z') {
			return false
		}
	}
	return true
}
