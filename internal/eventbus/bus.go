// Package eventbus carries named in-process signals between components that
// hold no references to each other. Delivery is synchronous and happens in
// registration order within the publishing goroutine.
package eventbus

import (
	"log/slog"
	"sync"
)

type Topic string

const (
	TopicSessionAcquired Topic = "session-acquired"
	TopicSessionCleared  Topic = "session-cleared"
	TopicCartChanged     Topic = "cart-changed"
)

type Handler func(payload any)

type subscription struct {
	topic   Topic
	handler Handler
}

type Bus struct {
	mu   sync.Mutex
	subs map[Topic][]*subscription
	log  *slog.Logger
}

func New(log *slog.Logger) *Bus {
	return &Bus{
		subs: make(map[Topic][]*subscription),
		log:  log,
	}
}

// Subscribe registers a handler and returns its unsubscribe capability.
// After the returned function runs, no later publish reaches the handler.
// A publish already dispatching keeps its snapshot of subscribers, so an
// unsubscribe during dispatch does not alter the current pass.
func (b *Bus) Subscribe(topic Topic, h Handler) func() {
	sub := &subscription{topic: topic, handler: h}

	b.mu.Lock()
	b.subs[topic] = append(b.subs[topic], sub)
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		list := b.subs[topic]
		for i, s := range list {
			if s == sub {
				b.subs[topic] = append(list[:i:i], list[i+1:]...)
				return
			}
		}
	}
}

// Publish delivers payload to every subscriber of topic. A panicking handler
// is logged and skipped; the remaining handlers still run.
func (b *Bus) Publish(topic Topic, payload any) {
	b.mu.Lock()
	snapshot := make([]*subscription, len(b.subs[topic]))
	copy(snapshot, b.subs[topic])
	b.mu.Unlock()

	for _, sub := range snapshot {
		b.dispatch(sub, topic, payload)
	}
}

func (b *Bus) dispatch(sub *subscription, topic Topic, payload any) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Error("event_handler_panic", "topic", string(topic), "panic", r)
		}
	}()
	sub.handler(payload)
}
