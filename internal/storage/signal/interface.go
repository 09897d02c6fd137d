// internal/storage/signal/interface.go
package signal

import (
	"github.com/newthinker/orion/internal/core"
)

// Store is the authoritative signal board.
type Store interface {
	// Upsert replaces a signal with the same ID in place or inserts it at
	// the front. Reports whether the signal was new.
	Upsert(signal core.Signal) bool

	// Expire invalidates a signal that is still pending. Reports whether a
	// transition happened.
	Expire(id string) bool

	// Resolve moves a pending signal to a terminal status.
	Resolve(id string, status core.Status) bool

	// Snapshot returns a copy of all signals, newest first.
	Snapshot() []core.Signal

	// Get retrieves a signal by its ID.
	Get(id string) (core.Signal, error)

	// List returns signals matching the filter, newest first.
	List(filter ListFilter) []core.Signal
}

// Listener observes every store mutation. It runs while the store is
// locked, in mutation order, and must not block or call back into the store.
type Listener interface {
	OnChange(prev, next []core.Signal)
}

// ListenerFunc adapts a function to Listener.
type ListenerFunc func(prev, next []core.Signal)

func (f ListenerFunc) OnChange(prev, next []core.Signal) { f(prev, next) }

// Recorder receives lifecycle counters. *metrics.Registry implements it.
type Recorder interface {
	RecordTransition(status, cause string)
	RecordEvicted(n int)
	SetStoreSize(n int)
}

// ListFilter defines view-only criteria for listing signals.
type ListFilter struct {
	Symbol   string
	Killzone string
	Status   core.Status
	Limit    int
}

// Matches reports whether sig passes the filter.
func (f ListFilter) Matches(sig core.Signal) bool {
	if f.Symbol != "" && sig.Symbol != f.Symbol {
		return false
	}
	if f.Killzone != "" && sig.Killzone != f.Killzone {
		return false
	}
	if f.Status != "" && sig.Status != f.Status {
		return false
	}
	return true
}
