package rr

import (
	"testing"

	"github.com/newthinker/orion/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPerTarget_LongLadder(t *testing.T) {
	entry, stop := 1.0850, 1.0820
	tps := []float64{1.0880, 1.0920, 1.0960}
	want := []float64{1.0, 2.33, 3.67}

	prev := 0.0
	for i, tp := range tps {
		got, ok := PerTarget(entry, stop, tp, core.DirectionLong)
		require.True(t, ok)
		assert.InDelta(t, want[i], got, 1e-9, "tp %d", i)
		assert.Greater(t, got, prev, "ratios should increase")
		prev = got
	}
}

func TestPerTarget_Short(t *testing.T) {
	got, ok := PerTarget(19000, 19020, 18960, core.DirectionShort)
	require.True(t, ok)
	assert.Equal(t, 2.0, got)
}

func TestPerTarget_Missing(t *testing.T) {
	tests := []struct {
		name            string
		entry, stop, tp float64
	}{
		{"no entry", 0, 1.08, 1.09},
		{"no stop", 1.08, 0, 1.09},
		{"no target", 1.08, 1.07, 0},
		{"zero risk", 1.08, 1.08, 1.09},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := PerTarget(tt.entry, tt.stop, tt.tp, core.DirectionLong)
			assert.False(t, ok)
		})
	}
}

func TestTargets(t *testing.T) {
	s := core.Signal{
		Direction:   core.DirectionLong,
		EntryPrice:  1.0850,
		StopLoss:    1.0820,
		TakeProfits: []float64{1.0880, 1.0920, 1.0960},
	}
	assert.Equal(t, []float64{1, 2.33, 3.67}, Targets(s))
}

func TestOverall_EqualSplit(t *testing.T) {
	// Rewards 30, 70, 110 pips on 30 risk: mean 70/30
	got, ok := Overall(1.0850, 1.0820, []float64{1.0880, 1.0920, 1.0960}, core.DirectionLong, nil)
	require.True(t, ok)
	assert.Equal(t, 2.33, got)
}

func TestOverall_Allocations(t *testing.T) {
	got, ok := Overall(100, 90, []float64{110, 130}, core.DirectionLong, []float64{0.5, 0.5})
	require.True(t, ok)
	assert.Equal(t, 2.0, got)

	// Missing allocations weigh zero
	got, ok = Overall(100, 90, []float64{110, 130}, core.DirectionLong, []float64{1})
	require.True(t, ok)
	assert.Equal(t, 1.0, got)
}

func TestOverall_Empty(t *testing.T) {
	_, ok := Overall(100, 90, nil, core.DirectionLong, nil)
	assert.False(t, ok)
}

func TestRound2(t *testing.T) {
	assert.Equal(t, 19012.35, Round2(19012.345))
	assert.Equal(t, -1.5, Round2(-1.499999))
}
