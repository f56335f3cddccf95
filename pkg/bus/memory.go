package bus

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"
)

// MemoryBus is an in-process Bus. Deliveries run synchronously on the
// publishing goroutine, in subscription order, and every published message
// is recorded for inspection.
type MemoryBus struct {
	nodeID    string
	handlers  map[string][]Handler
	published []Message
	closed    bool
	mu        sync.RWMutex
	log       *logrus.Logger
}

// NewMemoryBus creates an in-process bus for the given node
func NewMemoryBus(nodeID string) *MemoryBus {
	return &MemoryBus{
		nodeID:   nodeID,
		handlers: make(map[string][]Handler),
		log:      logrus.New(),
	}
}

// SetLogger replaces the bus logger
func (b *MemoryBus) SetLogger(log *logrus.Logger) {
	if log == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.log = log
}

// Subscribe registers a handler for a topic
func (b *MemoryBus) Subscribe(topic string, handler Handler) error {
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
	b.handlers[topic] = append(b.handlers[topic], handler)
	return nil
}

// PublishEvent wraps payload in an EVENT envelope and delivers it
func (b *MemoryBus) PublishEvent(ctx context.Context, topic string, payload map[string]interface{}) error {
	if topic == "" {
		return ErrNoTopic
	}
	return b.Publish(ctx, NewEvent(b.nodeID, topic, payload))
}

// Publish records msg and delivers it to the handlers of msg.Header.Topic
func (b *MemoryBus) Publish(ctx context.Context, msg Message) error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return ErrClosed
	}
	b.published = append(b.published, msg)
	handlers := append([]Handler(nil), b.handlers[msg.Header.Topic]...)
	log := b.log
	b.mu.Unlock()

	log.WithFields(logrus.Fields{
		"topic":      msg.Header.Topic,
		"message_id": msg.Header.MessageID,
		"handlers":   len(handlers),
	}).Debug("delivering message")

	// Handlers may publish replies, so no lock is held while they run
	for _, h := range handlers {
		h(ctx, msg)
	}
	return nil
}

// Published returns the recorded messages for topic, oldest first
func (b *MemoryBus) Published(topic string) []Message {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var result []Message
	for _, msg := range b.published {
		if msg.Header.Topic == topic {
			result = append(result, msg)
		}
	}
	return result
}

// Reset clears the recorded messages
func (b *MemoryBus) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.published = nil
}

// HasSubscribers reports whether any handler is registered for topic
func (b *MemoryBus) HasSubscribers(topic string) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.handlers[topic]) > 0
}

// Close rejects further publishes and subscriptions
func (b *MemoryBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	return nil
}
