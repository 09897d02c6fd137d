package feed

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/newthinker/orion/internal/core"
	"go.uber.org/zap"
)

// ModeSimulator is reported when no live source is configured.
const ModeSimulator = "simulator"

// Simulated is the degraded-mode producer.
type Simulated interface {
	Start(ctx context.Context) error
	Stop()
	Running() bool
}

// Manager runs the live source when one is configured and falls back to
// the simulator otherwise.
type Manager struct {
	source Source
	sim    Simulated
	logger *zap.Logger

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	running bool
}

// NewManager creates a manager. A nil source selects the simulator.
func NewManager(source Source, sim Simulated, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{source: source, sim: sim, logger: logger}
}

// Mode names the active producer.
func (m *Manager) Mode() string {
	if m.source != nil {
		return m.source.Name()
	}
	return ModeSimulator
}

// Degraded reports whether demo data is being served.
func (m *Manager) Degraded() bool {
	return m.source == nil
}

// Start launches the producer in the background.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return fmt.Errorf("feed manager already running")
	}

	if m.source == nil {
		if m.sim == nil {
			return core.WrapError(core.ErrConfigMissing, errors.New("no live source and no simulator"))
		}
		m.logger.Warn("no live feed configured, serving simulated signals")
		if err := m.sim.Start(ctx); err != nil {
			return err
		}
		m.running = true
		return nil
	}

	ctx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.done = make(chan struct{})
	m.running = true

	go func() {
		defer close(m.done)
		if err := m.source.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			m.logger.Error("feed stopped", zap.String("source", m.source.Name()), zap.Error(err))
		}
	}()

	m.logger.Info("feed started", zap.String("source", m.source.Name()))
	return nil
}

// Stop halts the producer and waits for it to exit.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	m.running = false
	cancel, done := m.cancel, m.done
	m.mu.Unlock()

	if m.source == nil {
		m.sim.Stop()
		return
	}
	cancel()
	<-done
}

// Status reports the producer's connection state. The simulator counts as
// connected while it runs.
func (m *Manager) Status() core.ConnectionStatus {
	if m.source != nil {
		return m.source.Status()
	}
	if m.sim != nil && m.sim.Running() {
		return core.StatusConnected
	}
	return core.StatusDisconnected
}

// Reconnect forces the live source to dial again. No-op for the simulator.
func (m *Manager) Reconnect() {
	if m.source != nil {
		m.logger.Info("feed reconnect requested", zap.String("source", m.source.Name()))
		m.source.Reconnect()
	}
}
