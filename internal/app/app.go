// Package app wires the signal board, its producers and its consumers.
package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/newthinker/orion/internal/api"
	"github.com/newthinker/orion/internal/config"
	"github.com/newthinker/orion/internal/core"
	"github.com/newthinker/orion/internal/dispatcher"
	"github.com/newthinker/orion/internal/feed"
	"github.com/newthinker/orion/internal/metrics"
	"github.com/newthinker/orion/internal/notifier"
	"github.com/newthinker/orion/internal/notifier/line"
	"github.com/newthinker/orion/internal/realtime"
	"github.com/newthinker/orion/internal/simulator"
	"github.com/newthinker/orion/internal/storage/signal"
	"github.com/newthinker/orion/internal/storage/tick"
	"go.uber.org/zap"
)

const shutdownTimeout = 30 * time.Second

// Option configures an App
type Option func(*options)

type options struct {
	clock   clockwork.Clock
	bellOut io.Writer
	version string
}

// WithClock sets the clock shared by the store and the simulator
func WithClock(c clockwork.Clock) Option {
	return func(o *options) { o.clock = c }
}

// WithBellOutput sets where the bell notifier writes
func WithBellOutput(w io.Writer) Option {
	return func(o *options) { o.bellOut = w }
}

// WithVersion sets the version reported by /api/status
func WithVersion(v string) Option {
	return func(o *options) { o.version = v }
}

// App is the main application orchestrator
type App struct {
	cfg    *config.Config
	logger *zap.Logger

	metrics    *metrics.Registry
	store      *signal.MemoryStore
	ticks      *tick.Board
	notifiers  *notifier.Registry
	line       *line.Line
	dispatcher *dispatcher.Dispatcher
	simulator  *simulator.Simulator
	feed       *feed.Manager
	stream     *realtime.Broker
	server     *api.Server

	mu      sync.Mutex
	running bool
}

// statusSource is implemented by the live feed sources.
type statusSource interface {
	OnStatus(fn func(core.ConnectionStatus))
}

// New builds every component from cfg and wires them together. Nothing
// runs until Start or Serve.
func New(cfg *config.Config, logger *zap.Logger, opts ...Option) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	o := options{clock: clockwork.NewRealClock(), bellOut: os.Stdout}
	for _, opt := range opts {
		opt(&o)
	}

	a := &App{cfg: cfg, logger: logger}

	if cfg.Metrics.Enabled {
		a.metrics = metrics.NewRegistry()
	}

	storeOpts := signal.Options{
		Capacity: cfg.Store.Capacity,
		Expiry:   cfg.Store.Expiry,
		Clock:    o.clock,
		Logger:   logger.Named("store"),
	}
	if a.metrics != nil {
		storeOpts.Recorder = a.metrics
	}
	a.store = signal.NewMemoryStore(storeOpts)
	a.ticks = tick.NewBoard()

	registry, lineClient, err := BuildNotifiers(cfg, o.bellOut, logger)
	if err != nil {
		return nil, err
	}
	a.notifiers = registry
	a.line = lineClient

	a.dispatcher = dispatcher.New(dispatcher.Config{
		MinConfidence: cfg.Dispatcher.MinConfidence,
		Symbols:       cfg.Dispatcher.Symbols,
		Timeout:       cfg.Dispatcher.Timeout,
	}, registry, logger.Named("dispatcher"))
	if a.metrics != nil {
		a.dispatcher.SetRecorder(a.metrics)
	}
	a.store.Subscribe(a.dispatcher)

	a.stream = realtime.NewBroker(
		realtime.WithLogger(logger.Named("stream")),
		realtime.WithInitialSnapshot(a.store.Snapshot),
	)
	a.store.Subscribe(a.stream)
	a.ticks.Subscribe(a.stream.OnTick)

	a.simulator = simulator.New(simulator.Config{
		IntervalMin:        cfg.Simulator.IntervalMin,
		IntervalMax:        cfg.Simulator.IntervalMax,
		ResolveMin:         cfg.Simulator.ResolveMin,
		ResolveMax:         cfg.Simulator.ResolveMax,
		ConfirmProbability: cfg.Simulator.ConfirmProbability,
		InitialSignals:     cfg.Simulator.InitialSignals,
		MaxTakeProfits:     cfg.Simulator.MaxTakeProfits,
		TickInterval:       cfg.Simulator.TickInterval,
		Symbols:            cfg.Simulator.Symbols,
	}, a.store,
		simulator.WithClock(o.clock),
		simulator.WithLogger(logger.Named("simulator")),
		simulator.WithTicks(a.ticks),
	)

	source, err := a.buildSource()
	if err != nil {
		return nil, err
	}
	a.feed = feed.NewManager(source, a.simulator, logger.Named("feed"))

	deps := api.Dependencies{
		Signals: a.store,
		Sizer:   a.store,
		Ticks:   a.ticks,
		Feed:    a.feed,
		Stream:  a.stream,
		Metrics: a.metrics,
		Version: o.version,
	}
	if a.line != nil {
		deps.Line = a.line
	}
	a.server, err = api.NewServer(api.Config{
		Host:        cfg.Server.Host,
		Port:        cfg.Server.Port,
		IngestToken: cfg.Server.IngestToken,
		MetricsPath: cfg.Metrics.Path,
	}, deps, logger.Named("http"))
	if err != nil {
		return nil, fmt.Errorf("creating server: %w", err)
	}

	return a, nil
}

// buildSource returns the live source for the configured feed type, or nil
// for the simulator.
func (a *App) buildSource() (feed.Source, error) {
	var recorder feed.Recorder
	if a.metrics != nil {
		recorder = a.metrics
	}
	applier := feed.NewApplier(a.store, a.ticks, a.logger.Named("feed"), recorder)

	var source feed.Source
	switch kind := a.cfg.FeedType(); kind {
	case config.FeedSimulator:
		return nil, nil
	case config.FeedWebsocket:
		source = feed.NewWebsocketSource(feed.WebsocketConfig{
			URL:          a.cfg.Feed.URL,
			Token:        a.cfg.Feed.Token,
			BackoffMin:   a.cfg.Feed.BackoffMin,
			BackoffMax:   a.cfg.Feed.BackoffMax,
			PingInterval: a.cfg.Feed.PingInterval,
		}, func(data []byte) { applier.Apply(feed.SourceWebsocket, data) }, a.logger.Named("websocket"))
	case config.FeedRedis:
		source = feed.NewRedisSource(feed.RedisConfig{
			Addr:       a.cfg.Feed.RedisAddr,
			Password:   a.cfg.Feed.RedisPassword,
			Channel:    a.cfg.Feed.RedisChannel,
			BackoffMin: a.cfg.Feed.BackoffMin,
			BackoffMax: a.cfg.Feed.BackoffMax,
		}, func(data []byte) { applier.Apply(feed.SourceRedis, data) }, a.logger.Named("redis"))
	default:
		return nil, core.WrapError(core.ErrConfigInvalid, fmt.Errorf("unknown feed type %q", kind))
	}

	if s, ok := source.(statusSource); ok {
		s.OnStatus(a.onFeedStatus)
	}
	return source, nil
}

func (a *App) onFeedStatus(status core.ConnectionStatus) {
	a.logger.Info("feed status changed", zap.String("status", string(status)))
	if a.metrics != nil {
		a.metrics.SetFeedConnected(status == core.StatusConnected)
	}
	a.stream.OnStatus(status)
}

// Start launches the feed, or the simulator when no feed is configured.
func (a *App) Start(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.running {
		return fmt.Errorf("app already running")
	}

	a.logger.Info("Orion starting",
		zap.String("feed", a.feed.Mode()),
		zap.Bool("degraded", a.feed.Degraded()),
		zap.Strings("notifiers", a.notifiers.Names()),
		zap.Int("capacity", a.cfg.Store.Capacity),
		zap.Duration("expiry", a.cfg.Store.Expiry),
	)

	if err := a.feed.Start(ctx); err != nil {
		return fmt.Errorf("starting feed: %w", err)
	}
	if a.feed.Degraded() && a.metrics != nil {
		a.metrics.SetFeedConnected(true)
	}
	a.running = true
	return nil
}

// Serve starts the app and the HTTP server and blocks until ctx is done.
func (a *App) Serve(ctx context.Context) error {
	if err := a.Start(ctx); err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() { errCh <- a.server.Start() }()

	var serveErr error
	select {
	case <-ctx.Done():
	case serveErr = <-errCh:
	}

	// open streams would hold Shutdown until its deadline
	a.stream.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := a.server.Shutdown(shutdownCtx); err != nil && serveErr == nil {
		serveErr = err
	}

	a.Stop()
	return serveErr
}

// Stop halts producers, cancels expiry timers and drains deliveries.
func (a *App) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.running {
		return
	}
	a.running = false

	a.feed.Stop()
	a.stream.Close()
	a.store.Close()
	a.dispatcher.Close()
	a.logger.Info("Orion stopped")
}

// Store returns the signal board
func (a *App) Store() *signal.MemoryStore { return a.store }

// Ticks returns the price board
func (a *App) Ticks() *tick.Board { return a.ticks }

// Notifiers returns the notifier registry
func (a *App) Notifiers() *notifier.Registry { return a.notifiers }

// Line returns the LINE client, or nil when no token is configured
func (a *App) Line() *line.Line { return a.line }

// Feed returns the feed manager
func (a *App) Feed() *feed.Manager { return a.feed }

// Simulator returns the demo producer
func (a *App) Simulator() *simulator.Simulator { return a.simulator }

// Metrics returns the metrics registry, or nil when disabled
func (a *App) Metrics() *metrics.Registry { return a.metrics }

// Server returns the HTTP server
func (a *App) Server() *api.Server { return a.server }

// GetStats returns application statistics
func (a *App) GetStats() map[string]any {
	a.mu.Lock()
	running := a.running
	a.mu.Unlock()

	return map[string]any{
		"running":    running,
		"feed":       a.feed.Mode(),
		"connection": string(a.feed.Status()),
		"signals":    a.store.Len(),
		"symbols":    len(a.ticks.All()),
		"stream":     a.stream.Clients(),
		"dispatcher": a.dispatcher.GetStats(),
	}
}
