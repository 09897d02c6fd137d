package feed

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/newthinker/orion/internal/core"
	"go.uber.org/zap"
)

const writeWait = 10 * time.Second

// WebsocketSource reads signal frames from a websocket endpoint and
// reconnects with exponential backoff.
type WebsocketSource struct {
	url          string
	header       http.Header
	dialer       *websocket.Dialer
	pingInterval time.Duration
	backoff      Backoff
	apply        func(data []byte)
	onStatus     func(core.ConnectionStatus)
	logger       *zap.Logger

	mu        sync.Mutex
	status    core.ConnectionStatus
	conn      *websocket.Conn
	writeMu   sync.Mutex
	reconnect chan struct{}
}

// WebsocketConfig configures a WebsocketSource.
type WebsocketConfig struct {
	URL          string
	Token        string
	BackoffMin   time.Duration
	BackoffMax   time.Duration
	PingInterval time.Duration
}

// NewWebsocketSource creates a source that hands every frame to apply.
func NewWebsocketSource(cfg WebsocketConfig, apply func(data []byte), logger *zap.Logger) *WebsocketSource {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.BackoffMin <= 0 {
		cfg.BackoffMin = time.Second
	}
	if cfg.BackoffMax < cfg.BackoffMin {
		cfg.BackoffMax = 30 * time.Second
	}

	header := make(http.Header)
	if cfg.Token != "" {
		header.Set("Authorization", "Bearer "+cfg.Token)
	}

	return &WebsocketSource{
		url:          cfg.URL,
		header:       header,
		dialer:       websocket.DefaultDialer,
		pingInterval: cfg.PingInterval,
		backoff:      Backoff{Min: cfg.BackoffMin, Max: cfg.BackoffMax},
		apply:        apply,
		logger:       logger,
		status:       core.StatusDisconnected,
		reconnect:    make(chan struct{}, 1),
	}
}

// OnStatus registers a callback for connection state changes.
func (w *WebsocketSource) OnStatus(fn func(core.ConnectionStatus)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onStatus = fn
}

func (w *WebsocketSource) Name() string { return SourceWebsocket }

// Status reports the current connection state.
func (w *WebsocketSource) Status() core.ConnectionStatus {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.status
}

// Reconnect closes the live connection so Run dials again immediately.
func (w *WebsocketSource) Reconnect() {
	select {
	case w.reconnect <- struct{}{}:
	default:
	}

	w.mu.Lock()
	conn := w.conn
	w.mu.Unlock()
	if conn != nil {
		conn.Close()
	}
}

// Run dials and reads until ctx is cancelled.
func (w *WebsocketSource) Run(ctx context.Context) error {
	defer w.setStatus(core.StatusDisconnected)

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		w.setStatus(core.StatusConnecting)
		conn, _, err := w.dialer.DialContext(ctx, w.url, w.header)
		if err != nil {
			w.setStatus(core.StatusDisconnected)
			delay := w.backoff.Next()
			w.logger.Warn("websocket dial failed",
				zap.String("url", w.url),
				zap.Duration("retry_in", delay),
				zap.Error(err),
			)
			if !w.wait(ctx, delay) {
				return ctx.Err()
			}
			continue
		}

		w.backoff.Reset()
		w.mu.Lock()
		w.conn = conn
		w.mu.Unlock()
		w.setStatus(core.StatusConnected)
		w.logger.Info("websocket connected", zap.String("url", w.url))

		err = w.readLoop(ctx, conn)

		w.mu.Lock()
		w.conn = nil
		w.mu.Unlock()
		conn.Close()
		w.setStatus(core.StatusDisconnected)

		if ctx.Err() != nil {
			return ctx.Err()
		}

		delay := w.backoff.Next()
		select {
		case <-w.reconnect:
			delay = 0
		default:
		}
		w.logger.Warn("websocket disconnected",
			zap.Duration("retry_in", delay),
			zap.Error(err),
		)
		if delay > 0 && !w.wait(ctx, delay) {
			return ctx.Err()
		}
	}
}

func (w *WebsocketSource) readLoop(ctx context.Context, conn *websocket.Conn) error {
	done := make(chan struct{})
	defer close(done)

	// unblock ReadMessage on shutdown
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	if w.pingInterval > 0 {
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(2 * w.pingInterval))
		})
		conn.SetReadDeadline(time.Now().Add(2 * w.pingInterval))
		go w.pingLoop(conn, done)
	}

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("websocket read: %w", err)
		}
		if w.pingInterval > 0 {
			conn.SetReadDeadline(time.Now().Add(2 * w.pingInterval))
		}
		w.apply(data)
	}
}

func (w *WebsocketSource) pingLoop(conn *websocket.Conn, done <-chan struct{}) {
	ticker := time.NewTicker(w.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			w.writeMu.Lock()
			err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
			w.writeMu.Unlock()
			if err != nil {
				w.logger.Debug("websocket ping failed", zap.Error(err))
				return
			}
		}
	}
}

// wait sleeps for d, cut short by ctx or a reconnect request.
func (w *WebsocketSource) wait(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-w.reconnect:
		return true
	case <-t.C:
		return true
	}
}

func (w *WebsocketSource) setStatus(s core.ConnectionStatus) {
	w.mu.Lock()
	if w.status == s {
		w.mu.Unlock()
		return
	}
	w.status = s
	fn := w.onStatus
	w.mu.Unlock()

	if fn != nil {
		fn(s)
	}
}
