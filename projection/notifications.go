// Package projection builds the subscriber's local views from observed events.
// It never emits events and never touches the transport.
package projection

import (
	"community-pulse/domain"
	"community-pulse/domain/event"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

type StoreOptions struct {
	PersistedCapacity int
	ToastCapacity     int
	ToastTTL          time.Duration
}

func DefaultStoreOptions() StoreOptions {
	return StoreOptions{PersistedCapacity: 10, ToastCapacity: 5, ToastTTL: 5 * time.Second}
}

// stopFunc cancels a pending expiry; false means it already fired or was stopped.
type stopFunc func() bool

type toast struct {
	notification domain.Notification
	stop         stopFunc
}

// NotificationStore keeps two bounded newest-first lists: the persisted list carrying
// read state and the ephemeral toasts, each toast with its own expiry timer.
type NotificationStore struct {
	mu        sync.Mutex
	opts      StoreOptions
	persisted []*domain.Notification
	toasts    []*toast
	unread    int
	closed    bool
	afterFunc func(d time.Duration, f func()) stopFunc
}

func NewNotificationStore(opts StoreOptions) *NotificationStore {
	return &NotificationStore{
		opts: opts,
		afterFunc: func(d time.Duration, f func()) stopFunc {
			return time.AfterFunc(d, f).Stop
		},
	}
}

// Append inserts at the head of both lists. Overflow silently evicts the oldest entry.
func (s *NotificationStore) Append(n domain.Notification) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}

	stored := n
	s.persisted = slices.Insert(s.persisted, 0, &stored)
	if !stored.Read {
		s.unread++
	}
	if len(s.persisted) > s.opts.PersistedCapacity {
		evicted := s.persisted[len(s.persisted)-1]
		s.persisted = s.persisted[:len(s.persisted)-1]
		if !evicted.Read {
			s.unread--
		}
	}

	t := &toast{notification: n}
	t.stop = s.afterFunc(s.opts.ToastTTL, func() { s.expire(t) })
	s.toasts = slices.Insert(s.toasts, 0, t)
	if len(s.toasts) > s.opts.ToastCapacity {
		evicted := s.toasts[len(s.toasts)-1]
		s.toasts = s.toasts[:len(s.toasts)-1]
		evicted.stop()
	}
}

// expire removes exactly the toast it was armed for. A newer toast with the same id
// is a different entry and survives.
func (s *NotificationStore) expire(t *toast) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.toasts = slices.DeleteFunc(s.toasts, func(candidate *toast) bool { return candidate == t })
}

func (s *NotificationStore) MarkRead(id uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, n := range s.persisted {
		if n.ID == id {
			if !n.Read {
				n.Read = true
				s.unread--
			}
			return true
		}
	}
	return false
}

func (s *NotificationStore) MarkAllRead() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, n := range s.persisted {
		n.Read = true
	}
	s.unread = 0
}

// Remove drops a persisted entry.
func (s *NotificationStore) Remove(id uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := slices.IndexFunc(s.persisted, func(n *domain.Notification) bool { return n.ID == id })
	if i < 0 {
		return false
	}
	if !s.persisted[i].Read {
		s.unread--
	}
	s.persisted = slices.Delete(s.persisted, i, i+1)
	return true
}

// Dismiss removes a toast before its expiry and cancels the timer.
func (s *NotificationStore) Dismiss(id uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := slices.IndexFunc(s.toasts, func(t *toast) bool { return t.notification.ID == id })
	if i < 0 {
		return false
	}
	s.toasts[i].stop()
	s.toasts = slices.Delete(s.toasts, i, i+1)
	return true
}

func (s *NotificationStore) Unread() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.unread
}

// Notifications returns a copy of the persisted list, newest first.
func (s *NotificationStore) Notifications() []domain.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	return lo.Map(s.persisted, func(n *domain.Notification, _ int) domain.Notification { return *n })
}

// Toasts returns a copy of the live toasts, newest first.
func (s *NotificationStore) Toasts() []domain.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	return lo.Map(s.toasts, func(t *toast, _ int) domain.Notification { return t.notification })
}

// Close cancels every pending expiry. Later appends are ignored.
func (s *NotificationStore) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.toasts {
		t.stop()
	}
	s.toasts = nil
	s.closed = true
}

// Consume turns a received event into a notification.
// Events without a template are ignored.
func (s *NotificationStore) Consume(evt event.DomainEvent) {
	if n, ok := FromEvent(evt, time.Now().UTC()); ok {
		s.Append(n)
	}
}

func FromEvent(evt event.DomainEvent, now time.Time) (domain.Notification, bool) {
	title, message, ok := event.Render(evt.Payload)
	if !ok {
		return domain.Notification{}, false
	}
	return domain.Notification{
		ID:        uuid.New(),
		Type:      string(evt.Type),
		Title:     title,
		Message:   message,
		Timestamp: now,
	}, true
}
