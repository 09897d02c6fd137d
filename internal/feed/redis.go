package feed

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/newthinker/orion/internal/core"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisConfig configures a RedisSource.
type RedisConfig struct {
	Addr       string
	Password   string
	Channel    string
	BackoffMin time.Duration
	BackoffMax time.Duration
}

// RedisSource consumes signal frames published on a Redis channel.
type RedisSource struct {
	client   *redis.Client
	channel  string
	backoff  Backoff
	apply    func(data []byte)
	onStatus func(core.ConnectionStatus)
	logger   *zap.Logger

	mu        sync.Mutex
	status    core.ConnectionStatus
	pubsub    *redis.PubSub
	reconnect chan struct{}
}

// NewRedisSource creates a subscriber that hands every payload to apply.
func NewRedisSource(cfg RedisConfig, apply func(data []byte), logger *zap.Logger) *RedisSource {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
	})
	return newRedisSource(client, cfg, apply, logger)
}

func newRedisSource(client *redis.Client, cfg RedisConfig, apply func(data []byte), logger *zap.Logger) *RedisSource {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.BackoffMin <= 0 {
		cfg.BackoffMin = time.Second
	}
	if cfg.BackoffMax < cfg.BackoffMin {
		cfg.BackoffMax = 30 * time.Second
	}
	if cfg.Channel == "" {
		cfg.Channel = "orion:signals"
	}

	return &RedisSource{
		client:    client,
		channel:   cfg.Channel,
		backoff:   Backoff{Min: cfg.BackoffMin, Max: cfg.BackoffMax},
		apply:     apply,
		logger:    logger,
		status:    core.StatusDisconnected,
		reconnect: make(chan struct{}, 1),
	}
}

// OnStatus registers a callback for connection state changes.
func (r *RedisSource) OnStatus(fn func(core.ConnectionStatus)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onStatus = fn
}

func (r *RedisSource) Name() string { return SourceRedis }

// Status reports the current connection state.
func (r *RedisSource) Status() core.ConnectionStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status
}

// Reconnect closes the subscription so Run subscribes again.
func (r *RedisSource) Reconnect() {
	select {
	case r.reconnect <- struct{}{}:
	default:
	}

	r.mu.Lock()
	ps := r.pubsub
	r.mu.Unlock()
	if ps != nil {
		ps.Close()
	}
}

// Run subscribes and consumes until ctx is cancelled.
func (r *RedisSource) Run(ctx context.Context) error {
	defer r.client.Close()
	defer r.setStatus(core.StatusDisconnected)

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		err := r.consume(ctx)
		r.setStatus(core.StatusDisconnected)
		if ctx.Err() != nil {
			return ctx.Err()
		}

		delay := r.backoff.Next()
		select {
		case <-r.reconnect:
			delay = 0
		default:
		}
		r.logger.Warn("redis subscription lost",
			zap.String("channel", r.channel),
			zap.Duration("retry_in", delay),
			zap.Error(err),
		)
		if delay > 0 && !sleep(ctx, delay) {
			return ctx.Err()
		}
	}
}

func (r *RedisSource) consume(ctx context.Context) error {
	r.setStatus(core.StatusConnecting)

	ps := r.client.Subscribe(ctx, r.channel)
	defer ps.Close()

	// Receive waits for the subscription confirmation
	if _, err := ps.Receive(ctx); err != nil {
		return fmt.Errorf("redis subscribe %s: %w", r.channel, err)
	}

	r.mu.Lock()
	r.pubsub = ps
	r.mu.Unlock()
	defer func() {
		r.mu.Lock()
		r.pubsub = nil
		r.mu.Unlock()
	}()

	r.backoff.Reset()
	r.setStatus(core.StatusConnected)
	r.logger.Info("redis subscribed", zap.String("channel", r.channel))

	ch := ps.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return core.WrapError(core.ErrFeedDisconnected, fmt.Errorf("redis channel %s closed", r.channel))
			}
			r.apply([]byte(msg.Payload))
		}
	}
}

func (r *RedisSource) setStatus(s core.ConnectionStatus) {
	r.mu.Lock()
	if r.status == s {
		r.mu.Unlock()
		return
	}
	r.status = s
	fn := r.onStatus
	r.mu.Unlock()

	if fn != nil {
		fn(s)
	}
}
