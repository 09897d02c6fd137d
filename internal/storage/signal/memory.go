// internal/storage/signal/memory.go
package signal

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/newthinker/orion/internal/core"
	"go.uber.org/zap"
)

// Transition causes
const (
	CauseUpdate = "update"
	CauseExpiry = "expiry"
)

// Defaults
const (
	DefaultCapacity = 20
	DefaultExpiry   = 5 * time.Minute
)

// Options configures a MemoryStore.
type Options struct {
	Capacity int
	Expiry   time.Duration
	Clock    clockwork.Clock
	Logger   *zap.Logger
	Recorder Recorder
}

type expiryTimer struct {
	timer clockwork.Timer
	gen   uint64
}

// MemoryStore is a bounded in-memory store with per-signal expiry timers.
// All mutations are serialised by mu; timer callbacks re-enter through it.
type MemoryStore struct {
	mu        sync.Mutex
	signals   []core.Signal // newest first
	timers    map[string]expiryTimer
	gen       uint64
	listeners []Listener
	closed    bool

	capacity int
	expiry   time.Duration
	clock    clockwork.Clock
	logger   *zap.Logger
	recorder Recorder
}

// NewMemoryStore creates a new in-memory store.
func NewMemoryStore(opts Options) *MemoryStore {
	if opts.Capacity <= 0 {
		opts.Capacity = DefaultCapacity
	}
	if opts.Expiry <= 0 {
		opts.Expiry = DefaultExpiry
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	return &MemoryStore{
		signals:  make([]core.Signal, 0, opts.Capacity+1),
		timers:   make(map[string]expiryTimer),
		capacity: opts.Capacity,
		expiry:   opts.Expiry,
		clock:    opts.Clock,
		logger:   opts.Logger,
		recorder: opts.Recorder,
	}
}

// Subscribe registers a listener for subsequent mutations.
func (m *MemoryStore) Subscribe(l Listener) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, l)
}

// Upsert applies an inserted or updated signal.
func (m *MemoryStore) Upsert(signal core.Signal) bool {
	signal = signal.Clone()
	if signal.Status == "" {
		signal.Status = core.StatusPending
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	prev := m.snapshotLocked()

	idx := m.indexLocked(signal.ID)
	created := idx < 0

	if created {
		if signal.EntryTime.IsZero() {
			signal.EntryTime = m.clock.Now().UTC()
		}
		m.signals = append(m.signals, core.Signal{})
		copy(m.signals[1:], m.signals)
		m.signals[0] = signal
	} else {
		old := m.signals[idx]
		if old.Status.IsTerminal() && signal.Status != old.Status {
			m.logger.Warn("ignoring status change on resolved signal",
				zap.String("signal_id", signal.ID),
				zap.String("status", string(old.Status)),
				zap.String("incoming", string(signal.Status)),
			)
			signal.Status = old.Status
		}
		if signal.Direction != old.Direction && signal.Direction != "" {
			m.logger.Warn("ignoring direction change on existing signal",
				zap.String("signal_id", signal.ID),
				zap.String("direction", string(old.Direction)),
				zap.String("incoming", string(signal.Direction)),
			)
		}
		// entry time and direction are fixed at creation; the expiry
		// deadline is measured from the original entry time
		signal.EntryTime = old.EntryTime
		signal.Direction = old.Direction
		if old.Status == core.StatusPending && signal.Status.IsTerminal() && m.recorder != nil {
			m.recorder.RecordTransition(string(signal.Status), CauseUpdate)
		}
		m.signals[idx] = signal
	}

	if signal.Status == core.StatusPending {
		m.scheduleLocked(signal)
	} else {
		m.cancelLocked(signal.ID)
	}

	m.evictLocked()
	m.notifyLocked(prev)

	return created
}

// Expire invalidates id if it is still pending. Idempotent.
func (m *MemoryStore) Expire(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.resolveLocked(id, core.StatusInvalidated, CauseExpiry)
}

// Resolve moves id from pending to a terminal status. Missing or already
// resolved signals are left alone.
func (m *MemoryStore) Resolve(id string, status core.Status) bool {
	if !status.IsTerminal() {
		return false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.resolveLocked(id, status, CauseUpdate)
}

func (m *MemoryStore) resolveLocked(id string, status core.Status, cause string) bool {
	idx := m.indexLocked(id)
	if idx < 0 || m.signals[idx].Status != core.StatusPending {
		return false
	}

	prev := m.snapshotLocked()

	m.signals[idx].Status = status
	m.cancelLocked(id)

	if m.recorder != nil {
		m.recorder.RecordTransition(string(status), cause)
	}
	m.logger.Info("signal resolved",
		zap.String("signal_id", id),
		zap.String("symbol", m.signals[idx].Symbol),
		zap.String("status", string(status)),
		zap.String("cause", cause),
	)

	m.notifyLocked(prev)
	return true
}

// Snapshot returns a deep copy of the board, newest first.
func (m *MemoryStore) Snapshot() []core.Signal {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

// Get retrieves a signal by ID.
func (m *MemoryStore) Get(id string) (core.Signal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	idx := m.indexLocked(id)
	if idx < 0 {
		return core.Signal{}, core.ErrSignalNotFound
	}
	return m.signals[idx].Clone(), nil
}

// List returns signals matching the filter.
func (m *MemoryStore) List(filter ListFilter) []core.Signal {
	m.mu.Lock()
	defer m.mu.Unlock()

	result := []core.Signal{}
	for _, sig := range m.signals {
		if !filter.Matches(sig) {
			continue
		}
		result = append(result, sig.Clone())
		if filter.Limit > 0 && len(result) == filter.Limit {
			break
		}
	}
	return result
}

// Len returns the number of signals held.
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.signals)
}

// PendingTimers returns the number of armed expiry timers.
func (m *MemoryStore) PendingTimers() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.timers)
}

// Close cancels every expiry timer. Later pending upserts are not armed.
func (m *MemoryStore) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for id := range m.timers {
		m.cancelLocked(id)
	}
	m.closed = true
}

// scheduleLocked arms the expiry timer for a pending signal. The deadline is
// measured from entry time, so a re-arm never extends it.
func (m *MemoryStore) scheduleLocked(signal core.Signal) {
	m.cancelLocked(signal.ID)
	if m.closed {
		return
	}

	delay := signal.EntryTime.Add(m.expiry).Sub(m.clock.Now())
	if delay < 0 {
		delay = 0
	}

	m.gen++
	gen := m.gen
	id := signal.ID
	m.timers[id] = expiryTimer{
		timer: m.clock.AfterFunc(delay, func() { m.fire(id, gen) }),
		gen:   gen,
	}
}

func (m *MemoryStore) fire(id string, gen uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.timers[id]
	if !ok || t.gen != gen {
		// re-armed or cancelled after this timer was already running
		return
	}
	delete(m.timers, id)
	m.resolveLocked(id, core.StatusInvalidated, CauseExpiry)
}

func (m *MemoryStore) cancelLocked(id string) {
	if t, ok := m.timers[id]; ok {
		t.timer.Stop()
		delete(m.timers, id)
	}
}

func (m *MemoryStore) evictLocked() {
	evicted := 0
	for len(m.signals) > m.capacity {
		last := m.signals[len(m.signals)-1]
		m.cancelLocked(last.ID)
		m.signals = m.signals[:len(m.signals)-1]
		evicted++

		m.logger.Debug("signal evicted",
			zap.String("signal_id", last.ID),
			zap.String("status", string(last.Status)),
		)
	}

	if m.recorder != nil {
		if evicted > 0 {
			m.recorder.RecordEvicted(evicted)
		}
		m.recorder.SetStoreSize(len(m.signals))
	}
}

func (m *MemoryStore) notifyLocked(prev []core.Signal) {
	if len(m.listeners) == 0 {
		return
	}
	for _, l := range m.listeners {
		l.OnChange(prev, m.snapshotLocked())
	}
}

func (m *MemoryStore) snapshotLocked() []core.Signal {
	out := make([]core.Signal, len(m.signals))
	for i, sig := range m.signals {
		out[i] = sig.Clone()
	}
	return out
}

func (m *MemoryStore) indexLocked(id string) int {
	for i := range m.signals {
		if m.signals[i].ID == id {
			return i
		}
	}
	return -1
}
