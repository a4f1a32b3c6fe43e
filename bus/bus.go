// Package bus is the subscriber side in-process event bus: inbound events are
// published once and every interested component receives them synchronously.
package bus

import (
	"community-pulse/domain/event"
	"log/slog"
	"sync"
)

type Handler func(evt event.DomainEvent)

type subscription struct {
	id      uint64
	handler Handler
}

// Bus is owned by one subscriber runtime instance, never shared globally.
type Bus struct {
	mu     sync.RWMutex
	log    *slog.Logger
	nextID uint64
	byType map[event.Type][]subscription
	all    []subscription
}

func New(log *slog.Logger) *Bus {
	return &Bus{log: log, byType: make(map[event.Type][]subscription)}
}

// Subscribe registers a typed handler for the event type of P.
// The returned function cancels the subscription and is safe to call twice.
func Subscribe[P event.Payload](b *Bus, handler func(P)) (cancel func()) {
	var zero P
	t := zero.EventType()
	return b.subscribe(t, func(evt event.DomainEvent) {
		if payload, ok := evt.Payload.(P); ok {
			handler(payload)
		}
	})
}

// SubscribeAll registers a handler receiving every event.
func (b *Bus) SubscribeAll(handler Handler) (cancel func()) {
	return b.subscribe("", handler)
}

func (b *Bus) subscribe(t event.Type, handler Handler) func() {
	b.mu.Lock()
	b.nextID++
	sub := subscription{id: b.nextID, handler: handler}
	if t == "" {
		b.all = append(b.all, sub)
	} else {
		b.byType[t] = append(b.byType[t], sub)
	}
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { b.unsubscribe(t, sub.id) })
	}
}

func (b *Bus) unsubscribe(t event.Type, id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	remove := func(subs []subscription) []subscription {
		kept := make([]subscription, 0, len(subs))
		for _, s := range subs {
			if s.id != id {
				kept = append(kept, s)
			}
		}
		return kept
	}
	if t == "" {
		b.all = remove(b.all)
		return
	}
	b.byType[t] = remove(b.byType[t])
	if len(b.byType[t]) == 0 {
		delete(b.byType, t)
	}
}

// Publish calls typed handlers then catch-all handlers, in subscription order,
// on a snapshot taken before the first call. A handler may (un)subscribe freely.
func (b *Bus) Publish(evt event.DomainEvent) {
	b.mu.RLock()
	snapshot := make([]subscription, 0, len(b.byType[evt.Type])+len(b.all))
	snapshot = append(snapshot, b.byType[evt.Type]...)
	snapshot = append(snapshot, b.all...)
	b.mu.RUnlock()

	for _, sub := range snapshot {
		b.call(sub, evt)
	}
}

func (b *Bus) call(sub subscription, evt event.DomainEvent) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Error("Bus handler panicked", "type", evt.Type, "panic", r)
		}
	}()
	sub.handler(evt)
}

// Len returns the number of live subscriptions.
func (b *Bus) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	n := len(b.all)
	for _, subs := range b.byType {
		n += len(subs)
	}
	return n
}
