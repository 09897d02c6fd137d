// internal/storage/tick/board.go
package tick

import (
	"sort"
	"sync"

	"github.com/newthinker/orion/internal/core"
)

// Board keeps the latest price tick per symbol.
type Board struct {
	mu        sync.RWMutex
	ticks     map[string]core.PriceTick
	listeners []func(core.PriceTick)
}

// NewBoard creates an empty board.
func NewBoard() *Board {
	return &Board{ticks: make(map[string]core.PriceTick)}
}

// Subscribe registers fn to run after every update. fn must not block.
func (b *Board) Subscribe(fn func(core.PriceTick)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.listeners = append(b.listeners, fn)
}

// Update stores tick as the latest for its symbol. When the source omits the
// change fields they are derived from the previous tick.
func (b *Board) Update(t core.PriceTick) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if prev, ok := b.ticks[t.Symbol]; ok && t.Change == 0 && t.ChangePercent == 0 {
		t.Change = t.Price - prev.Price
		if prev.Price != 0 {
			t.ChangePercent = t.Change / prev.Price * 100
		}
	}
	b.ticks[t.Symbol] = t

	for _, fn := range b.listeners {
		fn(t)
	}
}

// Get returns the latest tick for symbol.
func (b *Board) Get(symbol string) (core.PriceTick, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	t, ok := b.ticks[symbol]
	return t, ok
}

// All returns every tick sorted by symbol.
func (b *Board) All() []core.PriceTick {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]core.PriceTick, 0, len(b.ticks))
	for _, t := range b.ticks {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}
