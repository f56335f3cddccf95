package bus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/platinummonkey/nexus/pkg/async"
	"github.com/sirupsen/logrus"
)

// RedisConfig configures the Redis pub/sub transport
type RedisConfig struct {
	URL             string
	NodeID          string
	Workers         int
	HandlerTimeout  time.Duration
	ShutdownTimeout time.Duration
}

// RedisBus carries JSON-encoded messages over Redis pub/sub channels.
// Channel names are the topic names.
type RedisBus struct {
	client   *redis.Client
	config   RedisConfig
	handlers map[string][]Handler
	pubsub   *redis.PubSub
	pool     *async.WorkerPool
	closed   bool
	mu       sync.RWMutex
	log      *logrus.Logger
}

// NewRedisBus connects to Redis and returns an idle bus. Call Run to start receiving.
func NewRedisBus(config RedisConfig, log *logrus.Logger) (*RedisBus, error) {
	if log == nil {
		log = logrus.New()
	}

	opts, err := redis.ParseURL(config.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}
	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second
	opts.PoolTimeout = 4 * time.Second

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	if config.Workers <= 0 {
		config.Workers = 8
	}
	if config.ShutdownTimeout <= 0 {
		config.ShutdownTimeout = 30 * time.Second
	}

	return &RedisBus{
		client:   client,
		config:   config,
		handlers: make(map[string][]Handler),
		log:      log,
	}, nil
}

// Subscribe registers a handler. Topics subscribed after Run starts are
// added to the live subscription.
func (b *RedisBus) Subscribe(topic string, handler Handler) error {
	if topic == "" {
		return ErrNoTopic
	}
	if handler == nil {
		return ErrNilHandler
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrClosed
	}

	_, known := b.handlers[topic]
	b.handlers[topic] = append(b.handlers[topic], handler)

	if b.pubsub != nil && !known {
		if err := b.pubsub.Subscribe(context.Background(), topic); err != nil {
			return fmt.Errorf("failed to subscribe to %s: %w", topic, err)
		}
	}
	return nil
}

// PublishEvent wraps payload in an EVENT envelope and publishes it
func (b *RedisBus) PublishEvent(ctx context.Context, topic string, payload map[string]interface{}) error {
	if topic == "" {
		return ErrNoTopic
	}
	return b.Publish(ctx, NewEvent(b.config.NodeID, topic, payload))
}

// Publish sends a fully formed message on its header topic
func (b *RedisBus) Publish(ctx context.Context, msg Message) error {
	b.mu.RLock()
	closed := b.closed
	b.mu.RUnlock()
	if closed {
		return ErrClosed
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}
	if err := b.client.Publish(ctx, msg.Header.Topic, data).Err(); err != nil {
		return fmt.Errorf("redis publish to %s failed: %w", msg.Header.Topic, err)
	}
	return nil
}

// Run subscribes to every registered topic and dispatches deliveries until
// ctx is canceled or the bus is closed. It returns once the subscription is
// torn down; in-flight handlers are drained by Close.
func (b *RedisBus) Run(ctx context.Context) error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return ErrClosed
	}
	if b.pubsub != nil {
		b.mu.Unlock()
		return fmt.Errorf("bus already running")
	}
	topics := make([]string, 0, len(b.handlers))
	for topic := range b.handlers {
		topics = append(topics, topic)
	}
	pubsub := b.client.Subscribe(ctx, topics...)
	b.pubsub = pubsub
	b.pool = async.NewWorkerPool(context.Background(), b.config.Workers, "bus delivery", b.config.HandlerTimeout, b.log)
	b.mu.Unlock()

	// Wait for the server to confirm each channel before reporting ready
	for range topics {
		if _, err := pubsub.Receive(ctx); err != nil {
			return fmt.Errorf("failed to confirm subscription: %w", err)
		}
	}
	b.log.WithField("topics", topics).Info("bus subscribed")

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case m, ok := <-ch:
			if !ok {
				return nil
			}
			b.dispatch(m)
		}
	}
}

// Ready reports whether Run has established its subscription
func (b *RedisBus) Ready() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.pubsub != nil && !b.closed
}

// Client exposes the underlying Redis client for health checks
func (b *RedisBus) Client() *redis.Client {
	return b.client
}

// Close stops receiving, waits for in-flight handlers, then closes the connection
func (b *RedisBus) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	pubsub := b.pubsub
	pool := b.pool
	b.mu.Unlock()

	var firstErr error
	if pubsub != nil {
		if err := pubsub.Close(); err != nil {
			firstErr = err
		}
	}
	if pool != nil {
		if err := pool.Shutdown(b.config.ShutdownTimeout); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if err := b.client.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

func (b *RedisBus) dispatch(m *redis.Message) {
	msg, err := DecodeMessage([]byte(m.Payload))
	var headerErr *HeaderError
	switch {
	case errors.As(err, &headerErr):
		b.log.WithFields(logrus.Fields{
			"channel": m.Channel,
			"fields":  headerErr.Fields,
		}).Warn("delivering message with undecodable header fields")
	case err != nil:
		b.log.WithField("channel", m.Channel).WithError(err).Warn("dropping undecodable message")
		return
	}
	// Subscribers are selected by channel; a missing header topic is filled
	// from it so handlers routing on the header still see the topic
	if msg.Header.Topic == "" {
		msg.Header.Topic = m.Channel
	}

	b.mu.RLock()
	handlers := append([]Handler(nil), b.handlers[m.Channel]...)
	pool := b.pool
	b.mu.RUnlock()

	for _, h := range handlers {
		h := h
		err := pool.Submit(func(ctx context.Context) error {
			h(ctx, msg)
			return nil
		})
		if err != nil {
			b.log.WithFields(logrus.Fields{
				"topic":      m.Channel,
				"message_id": msg.Header.MessageID,
			}).WithError(err).Warn("failed to dispatch message")
		}
	}
}
