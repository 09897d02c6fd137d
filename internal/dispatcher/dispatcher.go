package dispatcher

import (
	"context"
	"sync"
	"time"

	"github.com/newthinker/orion/internal/core"
	"github.com/newthinker/orion/internal/notifier"
	"go.uber.org/zap"
)

// Delivery outcomes
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Config holds dispatcher configuration
type Config struct {
	MinConfidence float64       `mapstructure:"min_confidence"`
	Symbols       []string      `mapstructure:"symbols"`
	Timeout       time.Duration `mapstructure:"timeout"`
}

// DefaultConfig returns default dispatcher configuration
func DefaultConfig() Config {
	return Config{
		Timeout: 10 * time.Second,
	}
}

// Recorder receives delivery outcomes. *metrics.Registry implements it.
type Recorder interface {
	RecordNotification(notifier, status string)
}

// Dispatcher watches store changes and fans newly confirmed signals out to
// every registered notifier. Deliveries run in their own goroutines so a
// slow or failing notifier never blocks the store or its peers.
type Dispatcher struct {
	cfg      Config
	registry *notifier.Registry
	logger   *zap.Logger
	recorder Recorder

	wg        sync.WaitGroup
	mu        sync.RWMutex
	closed    bool
	delivered int
	failed    int
}

// New creates a new dispatcher
func New(cfg Config, registry *notifier.Registry, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultConfig().Timeout
	}
	return &Dispatcher{
		cfg:      cfg,
		registry: registry,
		logger:   logger,
	}
}

// SetRecorder sets the metrics recorder
func (d *Dispatcher) SetRecorder(r Recorder) {
	d.recorder = r
}

// OnChange implements the store listener. It runs under the store lock and
// only schedules work.
func (d *Dispatcher) OnChange(prev, next []core.Signal) {
	for _, sig := range NewlyConfirmed(prev, next) {
		d.Route(sig)
	}
}

// NewlyConfirmed returns signals confirmed in next that were not confirmed
// under the same id in prev.
func NewlyConfirmed(prev, next []core.Signal) []core.Signal {
	seen := make(map[string]bool, len(prev))
	for _, s := range prev {
		if s.Status == core.StatusConfirmed {
			seen[s.ID] = true
		}
	}

	var out []core.Signal
	for _, s := range next {
		if s.Status == core.StatusConfirmed && !seen[s.ID] {
			out = append(out, s)
		}
	}
	return out
}

// Route applies filters and starts one delivery per notifier.
func (d *Dispatcher) Route(signal core.Signal) {
	if !d.passesFilters(signal) {
		d.logger.Debug("signal filtered out",
			zap.String("signal_id", signal.ID),
			zap.String("symbol", signal.Symbol),
			zap.Float64("confidence", signal.Confidence),
		)
		return
	}

	// nil registry is allowed
	if d.registry == nil {
		return
	}

	d.mu.RLock()
	closed := d.closed
	if !closed {
		// Add under the read lock so Close cannot start waiting in between.
		for _, n := range d.registry.GetAll() {
			d.wg.Add(1)
			go d.deliver(n, signal)
		}
	}
	d.mu.RUnlock()

	if closed {
		d.logger.Warn("dispatcher closed, dropping signal", zap.String("signal_id", signal.ID))
		return
	}

	d.logger.Info("signal dispatched",
		zap.String("signal_id", signal.ID),
		zap.String("symbol", signal.Symbol),
		zap.String("direction", string(signal.Direction)),
		zap.Float64("confidence", signal.Confidence),
		zap.Int("notifiers", d.registry.Len()),
	)
}

func (d *Dispatcher) deliver(n notifier.Notifier, signal core.Signal) {
	defer d.wg.Done()

	ctx, cancel := context.WithTimeout(context.Background(), d.cfg.Timeout)
	defer cancel()

	start := time.Now()
	err := n.Send(ctx, signal)

	outcome := OutcomeSuccess
	d.mu.Lock()
	if err != nil {
		outcome = OutcomeFailure
		d.failed++
	} else {
		d.delivered++
	}
	d.mu.Unlock()

	if d.recorder != nil {
		d.recorder.RecordNotification(n.Name(), outcome)
	}

	if err != nil {
		d.logger.Error("notifier failed",
			zap.String("notifier", n.Name()),
			zap.String("signal_id", signal.ID),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err),
		)
		return
	}

	d.logger.Debug("notification delivered",
		zap.String("notifier", n.Name()),
		zap.String("signal_id", signal.ID),
		zap.Duration("elapsed", time.Since(start)),
	)
}

// passesFilters checks if a signal passes all configured filters
func (d *Dispatcher) passesFilters(signal core.Signal) bool {
	// Check confidence threshold
	if signal.Confidence < d.cfg.MinConfidence {
		return false
	}

	// Check symbol allow-list
	if len(d.cfg.Symbols) > 0 {
		for _, s := range d.cfg.Symbols {
			if signal.Symbol == s {
				return true
			}
		}
		return false
	}

	return true
}

// Wait blocks until all in-flight deliveries finish.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// Close stops accepting signals and drains in-flight deliveries.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()
	d.wg.Wait()
}

// GetStats returns dispatcher statistics
func (d *Dispatcher) GetStats() map[string]any {
	d.mu.RLock()
	defer d.mu.RUnlock()

	notifiers := []string{}
	if d.registry != nil {
		notifiers = d.registry.Names()
	}

	return map[string]any{
		"notifiers":       notifiers,
		"delivered":       d.delivered,
		"failed":          d.failed,
		"min_confidence":  d.cfg.MinConfidence,
		"symbols":         d.cfg.Symbols,
		"timeout_seconds": d.cfg.Timeout.Seconds(),
	}
}
