package prayer

import (
	"community-pulse/bus"
	"community-pulse/domain"
	"community-pulse/domain/event"
	"community-pulse/errors"
	"context"
	"log/slog"
	"sync"
	"time"
)

// ScheduleFetcher performs the one-off initial schedule request.
type ScheduleFetcher interface {
	FetchSchedule(ctx context.Context) (domain.DailySchedule, error)
}

// Tracker keeps NextEventState current: one timer re-armed on every minute
// boundary, plus an immediate recompute when a new schedule is pushed.
type Tracker struct {
	mu        sync.Mutex
	log       *slog.Logger
	bus       *bus.Bus
	fetcher   ScheduleFetcher
	now       func() time.Time
	afterFunc func(d time.Duration, f func()) func() bool

	schedule  domain.DailySchedule
	state     domain.NextEventState
	onChange  func(domain.NextEventState)
	stopTimer func() bool
	cancelSub func()
	running   bool
	// generation identifies the current Start; ticks of an older run never re-arm.
	generation uint64
}

func NewTracker(log *slog.Logger, b *bus.Bus, fetcher ScheduleFetcher) *Tracker {
	schedule := domain.DefaultSchedule()
	return &Tracker{
		log:     log,
		bus:     b,
		fetcher: fetcher,
		now:     time.Now,
		afterFunc: func(d time.Duration, f func()) func() bool {
			return time.AfterFunc(d, f).Stop
		},
		schedule: schedule,
		state:    Next(schedule, MinuteOfDay(time.Now())),
	}
}

// OnChange registers a callback run after each recompute. Set it before Start.
func (t *Tracker) OnChange(fn func(domain.NextEventState)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onChange = fn
}

// Start fetches the initial schedule once, falling back to the default one,
// then subscribes to schedule updates and arms the minute timer.
func (t *Tracker) Start(ctx context.Context) error {
	t.mu.Lock()
	if t.running {
		t.mu.Unlock()
		return errors.ErrAlreadyRunning
	}
	t.running = true
	t.generation++
	generation := t.generation
	t.mu.Unlock()

	schedule := domain.DefaultSchedule()
	if t.fetcher != nil {
		fetched, err := t.fetcher.FetchSchedule(ctx)
		switch {
		case err != nil:
			t.log.Warn("Initial schedule fetch failed, using default schedule", "error", err)
		case fetched.Validate() != nil:
			t.log.Warn("Fetched schedule is invalid, using default schedule", "error", fetched.Validate())
		default:
			schedule = fetched
		}
	}

	cancelSub := bus.Subscribe(t.bus, func(p event.PrayerTimeUpdated) {
		t.SetSchedule(p.DailySchedule)
	})

	t.mu.Lock()
	if !t.running || t.generation != generation {
		// Stopped while fetching
		t.mu.Unlock()
		cancelSub()
		return nil
	}
	t.cancelSub = cancelSub
	t.schedule = schedule
	t.mu.Unlock()

	t.tick(generation)
	return nil
}

// SetSchedule replaces the schedule and recomputes right away.
// An invalid schedule is ignored and the current one kept.
func (t *Tracker) SetSchedule(schedule domain.DailySchedule) {
	if err := schedule.Validate(); err != nil {
		t.log.Warn("Ignoring invalid schedule update", "error", err)
		return
	}
	t.mu.Lock()
	t.schedule = schedule
	t.mu.Unlock()
	t.recompute()
}

// tick recomputes and re-arms the timer for the next minute boundary,
// as long as the run that armed it is still the current one.
func (t *Tracker) tick(generation uint64) {
	t.recompute()

	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.running || t.generation != generation {
		return
	}
	now := t.now()
	delay := now.Truncate(time.Minute).Add(time.Minute).Sub(now)
	t.stopTimer = t.afterFunc(delay, func() { t.tick(generation) })
}

func (t *Tracker) recompute() {
	t.mu.Lock()
	state := Next(t.schedule, MinuteOfDay(t.now()))
	t.state = state
	onChange := t.onChange
	t.mu.Unlock()

	if onChange != nil {
		onChange(state)
	}
}

// Stop releases the timer and the bus subscription. Safe to call twice.
func (t *Tracker) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.running = false
	if t.stopTimer != nil {
		t.stopTimer()
		t.stopTimer = nil
	}
	if t.cancelSub != nil {
		t.cancelSub()
		t.cancelSub = nil
	}
}

func (t *Tracker) State() domain.NextEventState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

func (t *Tracker) Schedule() domain.DailySchedule {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.schedule
}
