// Package simulator produces demo signals and price ticks when no live feed
// is available.
package simulator

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/newthinker/orion/internal/core"
	"github.com/newthinker/orion/internal/rr"
	"go.uber.org/zap"
)

// Killzones are the trading session labels attached to demo signals.
var Killzones = []string{"asia", "london", "ny_am", "lunch", "pm"}

// Reasons are the setup labels attached to demo signals.
var Reasons = []string{
	"MSS+FVG setup",
	"Order Block retest",
	"Liquidity sweep",
	"SMT divergence",
	"BOS confirmation",
	"Premium/Discount entry",
}

// BasePrices anchor entry prices per symbol. Unknown symbols use 4500.
var BasePrices = map[string]float64{
	"MNQ": 19000,
	"NQ":  17000,
	"MES": 4500,
}

// Generation ranges
const (
	entrySpread     = 1000.0 // entries land within base ±500
	stopMin         = 15.0
	stopSpread      = 35.0
	multiplierRange = 1.5
	confidenceMin   = 0.6
	confidenceRange = 0.4
	tickStep        = 0.0005
)

// Config holds the simulator ranges
type Config struct {
	IntervalMin        time.Duration
	IntervalMax        time.Duration
	ResolveMin         time.Duration
	ResolveMax         time.Duration
	ConfirmProbability float64
	InitialSignals     int
	MaxTakeProfits     int
	TickInterval       time.Duration
	Symbols            []string
}

// DefaultConfig returns the demo defaults
func DefaultConfig() Config {
	return Config{
		IntervalMin:        5 * time.Second,
		IntervalMax:        15 * time.Second,
		ResolveMin:         15 * time.Second,
		ResolveMax:         45 * time.Second,
		ConfirmProbability: 0.7,
		InitialSignals:     3,
		MaxTakeProfits:     4,
		TickInterval:       2 * time.Second,
		Symbols:            []string{"MNQ", "NQ", "MES"},
	}
}

// Board receives generated signals and their resolutions.
type Board interface {
	Upsert(signal core.Signal) bool
	Resolve(id string, status core.Status) bool
}

// TickSink receives generated price ticks.
type TickSink interface {
	Update(tick core.PriceTick)
}

// Option configures a Simulator
type Option func(*Simulator)

// WithClock sets the clock used for scheduling
func WithClock(c clockwork.Clock) Option {
	return func(s *Simulator) { s.clock = c }
}

// WithRand sets the random source
func WithRand(r *rand.Rand) Option {
	return func(s *Simulator) { s.rng = r }
}

// WithLogger sets the logger
func WithLogger(l *zap.Logger) Option {
	return func(s *Simulator) { s.logger = l }
}

// WithTicks sets the price tick sink
func WithTicks(t TickSink) Option {
	return func(s *Simulator) { s.ticks = t }
}

// Simulator generates pending signals at random intervals and resolves each
// one after a random delay.
type Simulator struct {
	cfg    Config
	board  Board
	ticks  TickSink
	clock  clockwork.Clock
	logger *zap.Logger

	rngMu sync.Mutex
	rng   *rand.Rand

	mu       sync.Mutex
	timers   map[string]clockwork.Timer
	prices   map[string]float64
	opens    map[string]float64
	cancel   context.CancelFunc
	run      uint64
	wg       sync.WaitGroup
	running  bool
	produced int
}

// New creates a simulator writing to board
func New(cfg Config, board Board, opts ...Option) *Simulator {
	def := DefaultConfig()
	if cfg.IntervalMax <= cfg.IntervalMin || cfg.IntervalMin <= 0 {
		cfg.IntervalMin, cfg.IntervalMax = def.IntervalMin, def.IntervalMax
	}
	if cfg.ResolveMax <= cfg.ResolveMin || cfg.ResolveMin <= 0 {
		cfg.ResolveMin, cfg.ResolveMax = def.ResolveMin, def.ResolveMax
	}
	if cfg.MaxTakeProfits <= 0 {
		cfg.MaxTakeProfits = def.MaxTakeProfits
	}
	if len(cfg.Symbols) == 0 {
		cfg.Symbols = def.Symbols
	}

	s := &Simulator{
		cfg:    cfg,
		board:  board,
		clock:  clockwork.NewRealClock(),
		logger: zap.NewNop(),
		rng:    rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0x9e3779b97f4a7c15)),
		timers: make(map[string]clockwork.Timer),
		prices: make(map[string]float64),
		opens:  make(map[string]float64),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start emits the initial signals and begins background generation.
func (s *Simulator) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("simulator already running")
	}
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.running = true
	s.run++
	run := s.run
	s.mu.Unlock()

	s.logger.Info("simulator started",
		zap.Strings("symbols", s.cfg.Symbols),
		zap.Duration("interval_min", s.cfg.IntervalMin),
		zap.Duration("interval_max", s.cfg.IntervalMax),
	)

	for i := 0; i < s.cfg.InitialSignals; i++ {
		s.emit()
	}

	s.wg.Add(1)
	go s.generateLoop(ctx)

	if s.ticks != nil && s.cfg.TickInterval > 0 {
		s.wg.Add(1)
		go s.tickLoop(ctx)
	}

	go func() {
		<-ctx.Done()
		s.stopRun(run)
	}()

	return nil
}

// Stop halts generation and cancels every pending resolution.
func (s *Simulator) Stop() {
	s.mu.Lock()
	run := s.run
	s.mu.Unlock()
	s.stopRun(run)
}

// stopRun stops the simulator only if run is still the active start.
func (s *Simulator) stopRun(run uint64) {
	s.mu.Lock()
	if !s.running || s.run != run {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.cancel()
	for id, t := range s.timers {
		t.Stop()
		delete(s.timers, id)
	}
	s.mu.Unlock()

	s.wg.Wait()
	s.logger.Info("simulator stopped")
}

// Running reports whether the simulator is active
func (s *Simulator) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// PendingResolutions returns the number of armed resolve timers
func (s *Simulator) PendingResolutions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}

// Produced returns how many signals have been emitted
func (s *Simulator) Produced() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.produced
}

func (s *Simulator) generateLoop(ctx context.Context) {
	defer s.wg.Done()

	for {
		wait := s.uniformDuration(s.cfg.IntervalMin, s.cfg.IntervalMax)
		select {
		case <-ctx.Done():
			return
		case <-s.clock.After(wait):
			s.emit()
		}
	}
}

func (s *Simulator) tickLoop(ctx context.Context) {
	defer s.wg.Done()

	ticker := s.clock.NewTicker(s.cfg.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			for _, sym := range s.cfg.Symbols {
				s.ticks.Update(s.nextTick(sym))
			}
		}
	}
}

// emit generates one signal, stores it and arms its resolution.
func (s *Simulator) emit() {
	if !s.Running() {
		return
	}

	sig := s.Generate()
	s.board.Upsert(sig)

	delay := s.uniformDuration(s.cfg.ResolveMin, s.cfg.ResolveMax)
	id := sig.ID

	s.mu.Lock()
	s.produced++
	if s.running {
		s.timers[id] = s.clock.AfterFunc(delay, func() { s.resolve(id) })
	}
	s.mu.Unlock()

	s.logger.Debug("simulated signal",
		zap.String("signal_id", sig.ID),
		zap.String("symbol", sig.Symbol),
		zap.String("direction", string(sig.Direction)),
		zap.Duration("resolve_in", delay),
	)
}

func (s *Simulator) resolve(id string) {
	s.mu.Lock()
	if _, ok := s.timers[id]; !ok {
		s.mu.Unlock()
		return
	}
	delete(s.timers, id)
	s.mu.Unlock()

	status := core.StatusInvalidated
	if s.randFloat() < s.cfg.ConfirmProbability {
		status = core.StatusConfirmed
	}

	if s.board.Resolve(id, status) {
		s.logger.Debug("simulated resolution",
			zap.String("signal_id", id),
			zap.String("status", string(status)),
		)
	}
}

// Generate builds a random pending signal.
func (s *Simulator) Generate() core.Signal {
	s.rngMu.Lock()
	defer s.rngMu.Unlock()

	symbol := s.cfg.Symbols[s.rng.IntN(len(s.cfg.Symbols))]
	direction := core.DirectionShort
	if s.rng.Float64() > 0.5 {
		direction = core.DirectionLong
	}

	base, ok := BasePrices[symbol]
	if !ok {
		base = BasePrices["MES"]
	}
	entry := base + (s.rng.Float64()-0.5)*entrySpread
	stopDistance := stopMin + s.rng.Float64()*stopSpread

	// sign moves a level away from entry toward profit
	sign := 1.0
	if direction == core.DirectionShort {
		sign = -1.0
	}
	stop := entry - sign*stopDistance

	n := s.rng.IntN(s.cfg.MaxTakeProfits) + 1
	tps := make([]float64, n)
	modes := make([]string, n)
	// each target adds at least one more stop distance, so levels move
	// strictly away from entry
	multiplier := 0.0
	for i := 0; i < n; i++ {
		multiplier += 1 + s.rng.Float64()*multiplierRange
		tps[i] = rr.Round2(entry + sign*stopDistance*multiplier)

		if i == n-1 && n > 1 {
			modes[i] = fmt.Sprintf("Runner %d%%", 20+s.rng.IntN(31))
		} else {
			modes[i] = fmt.Sprintf("TP%d %d%%", i+1, 30+s.rng.IntN(41))
		}
	}

	entry, stop = rr.Round2(entry), rr.Round2(stop)
	target, _ := rr.PerTarget(entry, stop, tps[n-1], direction)

	return core.Signal{
		ID:          uuid.NewString(),
		Symbol:      symbol,
		Direction:   direction,
		Status:      core.StatusPending,
		EntryTime:   s.clock.Now().UTC(),
		EntryPrice:  entry,
		StopLoss:    stop,
		TakeProfits: tps,
		TPModes:     modes,
		Reason:      Reasons[s.rng.IntN(len(Reasons))],
		Confidence:  confidenceMin + s.rng.Float64()*confidenceRange,
		RRTarget:    target,
		Killzone:    Killzones[s.rng.IntN(len(Killzones))],
	}
}

// nextTick advances the random walk for symbol.
func (s *Simulator) nextTick(symbol string) core.PriceTick {
	step := (s.randFloat() - 0.5) * 2

	s.mu.Lock()
	defer s.mu.Unlock()

	price, ok := s.prices[symbol]
	if !ok {
		price = BasePrices[symbol]
		if price == 0 {
			price = BasePrices["MES"]
		}
		s.opens[symbol] = price
	}
	price = rr.Round2(price * (1 + step*tickStep))
	s.prices[symbol] = price

	open := s.opens[symbol]
	change := rr.Round2(price - open)

	return core.PriceTick{
		Symbol:        symbol,
		Price:         price,
		Change:        change,
		ChangePercent: rr.Round2(change / open * 100),
		Timestamp:     s.clock.Now().UTC(),
	}
}

func (s *Simulator) uniformDuration(lo, hi time.Duration) time.Duration {
	s.rngMu.Lock()
	defer s.rngMu.Unlock()
	return lo + time.Duration(s.rng.Int64N(int64(hi-lo)))
}

func (s *Simulator) randFloat() float64 {
	s.rngMu.Lock()
	defer s.rngMu.Unlock()
	return s.rng.Float64()
}
