package feed

import (
	"context"
	"errors"
	"time"

	"github.com/newthinker/orion/internal/core"
	"go.uber.org/zap"
)

// Source labels
const (
	SourceWebsocket = "websocket"
	SourceRedis     = "redis"
)

// Drop reasons
const (
	DropMalformed   = "malformed"
	DropInvalid     = "invalid"
	DropUnknownType = "unknown_type"
)

// Source is a live signal feed.
type Source interface {
	// Name identifies the source in logs and status output
	Name() string

	// Run connects and pumps frames until ctx is cancelled
	Run(ctx context.Context) error

	// Status reports the current connection state
	Status() core.ConnectionStatus

	// Reconnect drops the current connection and dials again
	Reconnect()
}

// SignalSink receives decoded signals.
type SignalSink interface {
	Upsert(signal core.Signal) bool
}

// TickSink receives decoded price ticks.
type TickSink interface {
	Update(tick core.PriceTick)
}

// Recorder receives feed counters. *metrics.Registry implements it.
type Recorder interface {
	RecordIngested(source string)
	RecordDropped(reason string)
	RecordTick(symbol string)
	SetFeedConnected(connected bool)
}

// Applier decodes frames and applies them to the store and tick board.
// Bad frames are logged and counted, never propagated.
type Applier struct {
	signals  SignalSink
	ticks    TickSink
	logger   *zap.Logger
	recorder Recorder
}

// NewApplier creates an applier. ticks and recorder may be nil.
func NewApplier(signals SignalSink, ticks TickSink, logger *zap.Logger, recorder Recorder) *Applier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Applier{
		signals:  signals,
		ticks:    ticks,
		logger:   logger,
		recorder: recorder,
	}
}

// Apply handles one raw frame from source.
func (a *Applier) Apply(source string, data []byte) {
	msg, err := Decode(data)
	if err != nil {
		reason := DropInvalid
		if errors.Is(err, core.ErrMalformedMessage) {
			reason = DropMalformed
		}
		a.drop(source, reason, err)
		return
	}

	switch msg.Kind {
	case KindSignal:
		created := a.signals.Upsert(msg.Signal)
		if a.recorder != nil {
			a.recorder.RecordIngested(source)
		}
		a.logger.Debug("signal received",
			zap.String("source", source),
			zap.String("signal_id", msg.Signal.ID),
			zap.String("status", string(msg.Signal.Status)),
			zap.Bool("created", created),
		)
	case KindPrice:
		if a.ticks != nil {
			a.ticks.Update(msg.Tick)
		}
		if a.recorder != nil {
			a.recorder.RecordTick(msg.Tick.Symbol)
		}
	default:
		if a.recorder != nil {
			a.recorder.RecordDropped(DropUnknownType)
		}
		a.logger.Debug("ignoring feed message",
			zap.String("source", source),
			zap.String("type", msg.Type),
		)
	}
}

func (a *Applier) drop(source, reason string, err error) {
	if a.recorder != nil {
		a.recorder.RecordDropped(reason)
	}
	a.logger.Warn("dropping feed message",
		zap.String("source", source),
		zap.String("reason", reason),
		zap.Strings("details", FieldErrors(err)),
	)
}

// Backoff doubles a retry delay between min and max.
type Backoff struct {
	Min     time.Duration
	Max     time.Duration
	current time.Duration
}

// Next returns the delay to wait before the next attempt.
func (b *Backoff) Next() time.Duration {
	if b.current == 0 {
		b.current = b.Min
		return b.current
	}
	b.current *= 2
	if b.current > b.Max {
		b.current = b.Max
	}
	return b.current
}

// Reset starts the sequence over after a successful connection.
func (b *Backoff) Reset() {
	b.current = 0
}

// sleep waits d or until ctx is done. Reports whether ctx is still live.
func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
