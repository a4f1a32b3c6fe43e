// Package runtime handles server-side event propagation: connection registry,
// room routing and the dispatch queue feeding them.
// It orchestrates the system without containing business logic or domain rules.
package runtime

import (
	"community-pulse/contract"
	"community-pulse/domain/event"
	"community-pulse/errors"
	"context"
	"fmt"
	"log/slog"
	"time"
)

var (
	_ contract.IDispatcher = (*Dispatcher)(nil)
	_ contract.Worker      = (*Dispatcher)(nil)
)

// Dispatcher turns domain events emitted by external collaborators into room fan-outs.
//
// Events are validated on Dispatch and queued; a single Run loop drains the queue in
// FIFO order, which is what keeps events for the same room in issue order.
type Dispatcher struct {
	log    *slog.Logger
	router contract.IRouter
	queue  chan event.DomainEvent
	now    func() time.Time
}

func NewDispatcher(log *slog.Logger, router contract.IRouter, bufferSize int) *Dispatcher {
	return &Dispatcher{
		log:    log,
		router: router,
		queue:  make(chan event.DomainEvent, bufferSize),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Dispatch never blocks: a full queue rejects the event.
func (d *Dispatcher) Dispatch(evt event.DomainEvent) error {
	if err := evt.Validate(); err != nil {
		d.log.Warn("Malformed event dropped", "type", evt.Type, "error", err)
		return fmt.Errorf("%w: %w", errors.ErrMalformedEvent, err)
	}
	select {
	case d.queue <- evt:
		return nil
	default:
		d.log.Warn("Dispatch queue full, dropping event", "type", evt.Type, "capacity", cap(d.queue))
		return errors.ErrDispatchQueueFull
	}
}

func (d *Dispatcher) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			d.log.Debug("Context done, stopping dispatcher")
			return nil
		case evt := <-d.queue:
			d.Deliver(evt)
		}
	}
}

// Deliver resolves the event scope to a room and fans it out.
// It returns the number of connections reached; an empty room is not an error.
func (d *Dispatcher) Deliver(evt event.DomainEvent) (delivered int) {
	defer func() {
		if r := recover(); r != nil {
			d.log.Error("Delivery panicked", "type", evt.Type, "panic", r)
			delivered = 0
		}
	}()

	roomID, err := evt.Scope.Room()
	if err != nil {
		d.log.Warn("Event scope cannot be resolved", "type", evt.Type, "error", err)
		return 0
	}
	payload, err := event.EncodeFrame(evt, roomID, d.now())
	if err != nil {
		d.log.Warn("Event cannot be encoded", "type", evt.Type, "error", err)
		return 0
	}
	delivered = d.router.Route(roomID, payload)
	d.log.Debug("Event delivered", "type", evt.Type, "room", roomID, "connections", delivered)
	return delivered
}

// Queue exposes the dispatch channel for capacity sampling.
func (d *Dispatcher) Queue() chan event.DomainEvent {
	return d.queue
}
