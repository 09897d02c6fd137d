// Package rr computes reward:risk ratios for a signal's take-profit levels.
package rr

import (
	"github.com/newthinker/orion/internal/core"
	"github.com/shopspring/decimal"
)

// PerTarget returns reward/risk for one target, rounded to 2 decimals.
// ok is false when a level is missing or the stop sits on the entry.
func PerTarget(entry, stop, tp float64, dir core.Direction) (float64, bool) {
	if entry == 0 || stop == 0 || tp == 0 {
		return 0, false
	}

	e := decimal.NewFromFloat(entry)
	risk, reward := legs(e, decimal.NewFromFloat(stop), decimal.NewFromFloat(tp), dir)
	if risk.IsZero() {
		return 0, false
	}
	return reward.Div(risk).Round(2).InexactFloat64(), true
}

// Targets returns PerTarget for every take profit of s. Missing ratios are 0.
func Targets(s core.Signal) []float64 {
	out := make([]float64, len(s.TakeProfits))
	for i, tp := range s.TakeProfits {
		out[i], _ = PerTarget(s.EntryPrice, s.StopLoss, tp, s.Direction)
	}
	return out
}

// Overall returns the allocation-weighted reward/risk across all targets.
// Nil allocations mean an equal split.
func Overall(entry, stop float64, tps []float64, dir core.Direction, allocations []float64) (float64, bool) {
	if entry == 0 || stop == 0 || len(tps) == 0 {
		return 0, false
	}

	e := decimal.NewFromFloat(entry)
	s := decimal.NewFromFloat(stop)

	weighted := decimal.Zero
	var risk decimal.Decimal
	for i, tp := range tps {
		r, reward := legs(e, s, decimal.NewFromFloat(tp), dir)
		risk = r

		alloc := decimal.NewFromInt(1).Div(decimal.NewFromInt(int64(len(tps))))
		if allocations != nil {
			alloc = decimal.Zero
			if i < len(allocations) {
				alloc = decimal.NewFromFloat(allocations[i])
			}
		}
		weighted = weighted.Add(reward.Mul(alloc))
	}

	if risk.IsZero() {
		return 0, false
	}
	return weighted.Div(risk).Round(2).InexactFloat64(), true
}

// Round2 rounds half away from zero to 2 decimals.
func Round2(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}

func legs(entry, stop, tp decimal.Decimal, dir core.Direction) (risk, reward decimal.Decimal) {
	if dir == core.DirectionShort {
		return stop.Sub(entry), entry.Sub(tp)
	}
	return entry.Sub(stop), tp.Sub(entry)
}
