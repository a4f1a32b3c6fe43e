// Package client is the subscriber runtime: it owns the single connection of a
// session, replays room joins after every reconnect and republishes inbound
// events on the session bus.
package client

import (
	"community-pulse/bus"
	"community-pulse/domain"
	"community-pulse/domain/event"
	"community-pulse/errors"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/samber/lo"
)

type State int32

const (
	Disconnected State = iota
	Connecting
	Joined
)

func (s State) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Joined:
		return "joined"
	default:
		return "disconnected"
	}
}

type Options struct {
	UserID           string
	HandshakeTimeout time.Duration
	Backoff          Backoff
}

// Runtime drives Disconnected -> Connecting -> Joined -> Disconnected.
// Topic membership is owned here and replayed on each connection: the server
// forgets it when the socket closes.
type Runtime struct {
	log      *slog.Logger
	dialer   Dialer
	bus      *bus.Bus
	opts     Options
	userRoom domain.RoomID
	sleep    func(ctx context.Context, d time.Duration) error
	running  atomic.Bool

	mu       sync.Mutex
	state    State
	topics   map[domain.RoomID]struct{}
	joined   map[domain.RoomID]struct{}
	current  Transport
	onChange func(State)
}

func NewRuntime(log *slog.Logger, dialer Dialer, b *bus.Bus, opts Options) *Runtime {
	return &Runtime{
		log:      log,
		dialer:   dialer,
		bus:      b,
		opts:     opts,
		userRoom: domain.UserRoom(opts.UserID),
		sleep:    sleepContext,
		topics:   make(map[domain.RoomID]struct{}),
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (r *Runtime) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// OnStateChange registers the hook surfacing the connection indicator. Set it before Run.
func (r *Runtime) OnStateChange(fn func(State)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onChange = fn
}

// Topics returns the subscribed topic rooms, sorted.
func (r *Runtime) Topics() []domain.RoomID {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sortedTopicsLocked()
}

func (r *Runtime) sortedTopicsLocked() []domain.RoomID {
	topics := lo.Keys(r.topics)
	slices.Sort(topics)
	return topics
}

// Subscribe adds a topic room. It is joined right away when connected,
// otherwise on the next successful connection.
func (r *Runtime) Subscribe(room domain.RoomID) error {
	if _, err := domain.ParseRoom(string(room)); err != nil {
		return err
	}
	if room.Kind() != domain.SectorRoomKind {
		return fmt.Errorf("%w: %s is not a topic", errors.ErrInvalidRoom, room)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.topics[room] = struct{}{}
	if r.state == Joined {
		r.joinLocked(room)
	}
	return nil
}

func (r *Runtime) Unsubscribe(room domain.RoomID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.topics, room)
	if r.state == Joined {
		r.leaveLocked(room)
	}
}

func (r *Runtime) joinLocked(room domain.RoomID) {
	if _, ok := r.joined[room]; ok {
		return
	}
	if err := r.current.WriteFrame(event.JoinFrame(room)); err != nil {
		// The read loop sees the broken connection and the next one replays the join
		r.log.Warn("Join not sent", "room", room, "error", err)
		return
	}
	r.joined[room] = struct{}{}
}

func (r *Runtime) leaveLocked(room domain.RoomID) {
	if _, ok := r.joined[room]; !ok {
		return
	}
	if err := r.current.WriteFrame(event.LeaveFrame(room)); err != nil {
		r.log.Warn("Leave not sent", "room", room, "error", err)
	}
	delete(r.joined, room)
}

// Run owns the connection until ctx is cancelled. Only one Run may be active.
// Connection failures are retried with backoff and never returned.
func (r *Runtime) Run(ctx context.Context) error {
	if !r.running.CompareAndSwap(false, true) {
		return errors.ErrAlreadyRunning
	}
	defer r.running.Store(false)

	attempt := 0
	for {
		if ctx.Err() != nil {
			return nil
		}
		joined, err := r.connect(ctx)
		r.detach()
		if ctx.Err() != nil {
			return nil
		}
		if joined {
			attempt = 0
		}
		delay := r.opts.Backoff.Delay(attempt)
		attempt++
		r.log.Warn("Disconnected, retrying", "error", err, "retry_in", delay, "attempt", attempt)
		if err = r.sleep(ctx, delay); err != nil {
			return nil
		}
	}
}

// connect performs one connection attempt and returns when it ends.
// joined reports whether the handshake completed.
func (r *Runtime) connect(ctx context.Context) (joined bool, err error) {
	r.setState(Connecting)
	t, err := r.dialer.Dial(ctx)
	if err != nil {
		return false, err
	}
	defer func() { _ = t.Close() }()
	stop := context.AfterFunc(ctx, func() { _ = t.Close() })
	defer stop()

	r.mu.Lock()
	rooms := append([]domain.RoomID{r.userRoom, domain.BroadcastRoom}, r.sortedTopicsLocked()...)
	r.mu.Unlock()
	for _, room := range rooms {
		if err = t.WriteFrame(event.JoinFrame(room)); err != nil {
			return false, err
		}
	}
	if err = r.awaitAck(t); err != nil {
		return false, err
	}
	r.attach(t, rooms)

	for {
		f, err := t.ReadFrame()
		if err != nil {
			return true, err
		}
		r.handle(f)
	}
}

// awaitAck reads until the server acknowledges the user room, or gives up after
// HandshakeTimeout by closing the transport.
func (r *Runtime) awaitAck(t Transport) error {
	var timedOut atomic.Bool
	timer := time.AfterFunc(r.opts.HandshakeTimeout, func() {
		timedOut.Store(true)
		_ = t.Close()
	})
	defer timer.Stop()

	for {
		f, err := t.ReadFrame()
		if err != nil {
			if timedOut.Load() {
				return errors.ErrHandshakeTimeout
			}
			return err
		}
		switch {
		case f.Op == event.OpAck && f.Room == r.userRoom:
			if !timer.Stop() {
				return errors.ErrHandshakeTimeout
			}
			return nil
		case f.Op == event.OpError && f.Room == r.userRoom:
			return fmt.Errorf("%w: %s", errors.ErrJoinRefused, f.Error)
		default:
			r.handle(f)
		}
	}
}

// attach enters Joined. Topics changed while the handshake was in flight are
// reconciled here so each room is joined once per connection.
func (r *Runtime) attach(t Transport, sent []domain.RoomID) {
	r.mu.Lock()
	r.current = t
	r.joined = lo.SliceToMap(sent, func(room domain.RoomID) (domain.RoomID, struct{}) {
		return room, struct{}{}
	})
	for _, topic := range r.sortedTopicsLocked() {
		r.joinLocked(topic)
	}
	for _, room := range sent {
		_, wanted := r.topics[room]
		if room.Kind() == domain.SectorRoomKind && !wanted {
			r.leaveLocked(room)
		}
	}
	notify := r.setStateLocked(Joined)
	r.mu.Unlock()

	notify()
	r.log.Info("Joined", "user_room", r.userRoom, "topics", len(sent)-2)
}

func (r *Runtime) detach() {
	r.mu.Lock()
	r.current = nil
	r.joined = nil
	notify := r.setStateLocked(Disconnected)
	r.mu.Unlock()
	notify()
}

func (r *Runtime) setState(s State) {
	r.mu.Lock()
	notify := r.setStateLocked(s)
	r.mu.Unlock()
	notify()
}

// setStateLocked changes the state under r.mu and returns the hook call to run once unlocked.
func (r *Runtime) setStateLocked(s State) func() {
	if r.state == s || r.onChange == nil {
		r.state = s
		return func() {}
	}
	r.state = s
	onChange := r.onChange
	return func() { onChange(s) }
}

// handle never fails: malformed frames are logged and dropped.
func (r *Runtime) handle(f event.Frame) {
	switch f.Op {
	case event.OpEvent:
		received, err := event.DecodeFrame(f)
		if err != nil {
			r.log.Warn("Malformed event dropped", "type", f.Type, "room", f.Room, "error", err)
			return
		}
		r.bus.Publish(event.DomainEvent{
			Type:    received.Type,
			Payload: received.Payload,
			Scope:   scopeOf(received.Room),
		})
	case event.OpAck:
		r.log.Debug("Acknowledged", "op", f.Type, "room", f.Room)
	case event.OpError:
		r.log.Warn("Server refused request", "room", f.Room, "error", f.Error)
	default:
		r.log.Debug("Unexpected frame dropped", "op", f.Op)
	}
}

func scopeOf(room domain.RoomID) event.Scope {
	switch room.Kind() {
	case domain.UserRoomKind:
		return event.UserScope(room.Name())
	case domain.SectorRoomKind:
		return event.TopicScope(room.Name())
	default:
		return event.AllScope()
	}
}
