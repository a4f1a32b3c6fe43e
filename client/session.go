package client

import (
	"community-pulse/bus"
	"community-pulse/domain"
	"community-pulse/errors"
	"community-pulse/prayer"
	"community-pulse/projection"
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

type SessionConfig struct {
	UserID           string
	Topics           []string
	HandshakeTimeout time.Duration
	Backoff          Backoff
	Store            projection.StoreOptions
}

func DefaultSessionConfig(userID string) SessionConfig {
	return SessionConfig{
		UserID:           userID,
		HandshakeTimeout: 5 * time.Second,
		Backoff:          DefaultBackoff(),
		Store:            projection.DefaultStoreOptions(),
	}
}

// Session is what the UI talks to. It owns one bus, one runtime, one notification
// store and one prayer tracker; all reads are synchronous over local state.
type Session struct {
	log     *slog.Logger
	bus     *bus.Bus
	runtime *Runtime
	store   *projection.NotificationStore
	tracker *prayer.Tracker

	mu          sync.Mutex
	started     bool
	closed      bool
	cancel      context.CancelFunc
	done        chan struct{}
	unsubscribe func()
}

func NewSession(log *slog.Logger, dialer Dialer, fetcher prayer.ScheduleFetcher, cfg SessionConfig) (*Session, error) {
	b := bus.New(log)
	runtime := NewRuntime(log, dialer, b, Options{
		UserID:           cfg.UserID,
		HandshakeTimeout: cfg.HandshakeTimeout,
		Backoff:          cfg.Backoff,
	})
	for _, topic := range cfg.Topics {
		if err := runtime.Subscribe(domain.SectorRoom(topic)); err != nil {
			return nil, err
		}
	}
	return &Session{
		log:     log,
		bus:     b,
		runtime: runtime,
		store:   projection.NewNotificationStore(cfg.Store),
		tracker: prayer.NewTracker(log, b, fetcher),
	}, nil
}

// Start fetches the schedule, then connects in the background.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return errors.ErrAlreadyRunning
	}

	s.unsubscribe = s.bus.SubscribeAll(s.store.Consume)
	if err := s.tracker.Start(ctx); err != nil {
		s.unsubscribe()
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	go func() {
		defer close(s.done)
		if err := s.runtime.Run(runCtx); err != nil {
			s.log.Error("Subscriber runtime stopped", "error", err)
		}
	}()
	s.started = true
	return nil
}

// Close disconnects and releases every timer and subscription. Safe to call twice;
// a closed session cannot be started again.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started || s.closed {
		return
	}
	s.closed = true
	s.cancel()
	<-s.done
	s.tracker.Stop()
	s.unsubscribe()
	s.store.Close()
}

func (s *Session) Bus() *bus.Bus { return s.bus }

func (s *Session) GetUnreadCount() int { return s.store.Unread() }
func (s *Session) GetNotifications() []domain.Notification { return s.store.Notifications() }
func (s *Session) GetToasts() []domain.Notification { return s.store.Toasts() }
func (s *Session) MarkRead(id uuid.UUID) bool { return s.store.MarkRead(id) }
func (s *Session) MarkAllRead() { s.store.MarkAllRead() }
func (s *Session) Dismiss(id uuid.UUID) bool { return s.store.Dismiss(id) }
func (s *Session) GetNextEventState() domain.NextEventState { return s.tracker.State() }
func (s *Session) GetSchedule() domain.DailySchedule { return s.tracker.Schedule() }
func (s *Session) ConnectionState() State { return s.runtime.State() }
func (s *Session) OnStateChange(fn func(State)) { s.runtime.OnStateChange(fn) }
func (s *Session) OnNextEvent(fn func(domain.NextEventState)) { s.tracker.OnChange(fn) }

func (s *Session) Subscribe(topic string) error { return s.runtime.Subscribe(domain.SectorRoom(topic)) }
func (s *Session) Unsubscribe(topic string) { s.runtime.Unsubscribe(domain.SectorRoom(topic)) }
