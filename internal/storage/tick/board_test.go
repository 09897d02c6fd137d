// internal/storage/tick/board_test.go
package tick

import (
	"testing"
	"time"

	"github.com/newthinker/orion/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBoard_UpdateAndGet(t *testing.T) {
	b := NewBoard()
	now := time.Now()

	b.Update(core.PriceTick{Symbol: "MNQ", Price: 19000, Timestamp: now})

	got, ok := b.Get("MNQ")
	require.True(t, ok)
	assert.Equal(t, 19000.0, got.Price)

	_, ok = b.Get("NQ")
	assert.False(t, ok)
}

func TestBoard_DerivesChange(t *testing.T) {
	b := NewBoard()

	b.Update(core.PriceTick{Symbol: "MES", Price: 4500})
	b.Update(core.PriceTick{Symbol: "MES", Price: 4545})

	got, _ := b.Get("MES")
	assert.InDelta(t, 45.0, got.Change, 1e-9)
	assert.InDelta(t, 1.0, got.ChangePercent, 1e-9)
}

func TestBoard_KeepsSourceChange(t *testing.T) {
	b := NewBoard()

	b.Update(core.PriceTick{Symbol: "NQ", Price: 17000})
	b.Update(core.PriceTick{Symbol: "NQ", Price: 17010, Change: -3, ChangePercent: -0.02})

	got, _ := b.Get("NQ")
	assert.Equal(t, -3.0, got.Change)
}

func TestBoard_AllSorted(t *testing.T) {
	b := NewBoard()
	for _, sym := range []string{"NQ", "MES", "MNQ"} {
		b.Update(core.PriceTick{Symbol: sym, Price: 1})
	}

	var symbols []string
	for _, tk := range b.All() {
		symbols = append(symbols, tk.Symbol)
	}
	assert.Equal(t, []string{"MES", "MNQ", "NQ"}, symbols)
}

func TestBoard_Subscribe(t *testing.T) {
	b := NewBoard()

	var seen []string
	b.Subscribe(func(tk core.PriceTick) { seen = append(seen, tk.Symbol) })

	b.Update(core.PriceTick{Symbol: "MNQ", Price: 1})
	b.Update(core.PriceTick{Symbol: "NQ", Price: 2})

	assert.Equal(t, []string{"MNQ", "NQ"}, seen)
}
