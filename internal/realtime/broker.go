// Package realtime streams store and price changes to dashboards over
// Server-Sent Events.
package realtime

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/newthinker/orion/internal/core"
	"go.uber.org/zap"
)

// Event names
const (
	EventSnapshot = "snapshot"
	EventPrice    = "price"
	EventStatus   = "status"
)

const (
	defaultClientBuffer = 16
	defaultKeepAlive    = 15 * time.Second
)

type message struct {
	event string
	data  []byte
}

// Broker fans events out to connected SSE clients. Slow clients miss
// events instead of blocking the publisher.
type Broker struct {
	logger    *zap.Logger
	buffer    int
	keepAlive time.Duration
	initial   func() []core.Signal

	mu      sync.RWMutex
	clients map[chan message]struct{}
	closed  bool
}

// Option configures a Broker.
type Option func(*Broker)

// WithLogger sets the broker's logger.
func WithLogger(l *zap.Logger) Option {
	return func(b *Broker) { b.logger = l }
}

// WithBuffer sets the per-client queue length.
func WithBuffer(n int) Option {
	return func(b *Broker) { b.buffer = n }
}

// WithKeepAlive sets the comment heartbeat interval.
func WithKeepAlive(d time.Duration) Option {
	return func(b *Broker) { b.keepAlive = d }
}

// WithInitialSnapshot sends fn's result to every client on connect.
func WithInitialSnapshot(fn func() []core.Signal) Option {
	return func(b *Broker) { b.initial = fn }
}

// NewBroker creates a broker.
func NewBroker(opts ...Option) *Broker {
	b := &Broker{
		logger:    zap.NewNop(),
		buffer:    defaultClientBuffer,
		keepAlive: defaultKeepAlive,
		clients:   make(map[chan message]struct{}),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// OnChange publishes the new board. It runs under the store lock and never blocks.
func (b *Broker) OnChange(_, next []core.Signal) {
	if next == nil {
		next = []core.Signal{}
	}
	b.Broadcast(EventSnapshot, next)
}

// OnTick publishes a price update.
func (b *Broker) OnTick(tick core.PriceTick) {
	b.Broadcast(EventPrice, tick)
}

// OnStatus publishes a feed connection change.
func (b *Broker) OnStatus(status core.ConnectionStatus) {
	b.Broadcast(EventStatus, map[string]string{"status": string(status)})
}

// Broadcast sends payload to every client as a named event.
func (b *Broker) Broadcast(event string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		b.logger.Error("marshal sse event", zap.String("event", event), zap.Error(err))
		return
	}
	msg := message{event: event, data: data}

	b.mu.RLock()
	defer b.mu.RUnlock()
	for client := range b.clients {
		select {
		case client <- msg:
		default:
			b.logger.Debug("sse client slow, dropping event", zap.String("event", event))
		}
	}
}

// Clients returns the number of connected clients.
func (b *Broker) Clients() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.clients)
}

// Close disconnects every client and rejects new ones.
func (b *Broker) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for client := range b.clients {
		delete(b.clients, client)
		close(client)
	}
}

// ServeHTTP streams events until the client goes away or the broker closes.
func (b *Broker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	client := make(chan message, b.buffer)
	if !b.register(client) {
		http.Error(w, "stream closed", http.StatusServiceUnavailable)
		return
	}
	defer b.unregister(client)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	if b.initial != nil {
		if data, err := json.Marshal(b.initial()); err == nil {
			writeEvent(w, message{event: EventSnapshot, data: data})
		}
	}
	flusher.Flush()

	b.logger.Debug("sse client connected", zap.String("remote", r.RemoteAddr))

	ticker := time.NewTicker(b.keepAlive)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			b.logger.Debug("sse client disconnected", zap.String("remote", r.RemoteAddr))
			return
		case msg, ok := <-client:
			if !ok {
				return
			}
			writeEvent(w, msg)
			flusher.Flush()
		case <-ticker.C:
			fmt.Fprint(w, ": ping\n\n")
			flusher.Flush()
		}
	}
}

func (b *Broker) register(client chan message) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return false
	}
	b.clients[client] = struct{}{}
	return true
}

func (b *Broker) unregister(client chan message) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.clients[client]; ok {
		delete(b.clients, client)
		close(client)
	}
}

func writeEvent(w http.ResponseWriter, msg message) {
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", msg.event, msg.data)
}
