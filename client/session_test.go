package client

import (
	"community-pulse/domain"
	"community-pulse/domain/event"
	"community-pulse/errors"
	"context"
	stderrors "errors"
	"log/slog"
	"testing"
	"time"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

type stubFetcher struct {
	schedule domain.DailySchedule
	err      error
}

func (f stubFetcher) FetchSchedule(context.Context) (domain.DailySchedule, error) {
	return f.schedule, f.err
}

func newTestSession(t *testing.T, fetcher stubFetcher) (*Session, *fakeDialer) {
	dialer := &fakeDialer{}
	cfg := DefaultSessionConfig("42")
	cfg.Topics = []string{"tajweed"}
	cfg.Backoff = testBackoff
	s, err := NewSession(logs.GetLoggerFromLevel(slog.LevelDebug), dialer, fetcher, cfg)
	require.NoError(t, err)
	require.NoError(t, s.Start(context.Background()))
	t.Cleanup(s.Close)
	require.Eventually(t, func() bool {
		return s.ConnectionState() == Joined
	}, 2*time.Second, 5*time.Millisecond)
	return s, dialer
}

func TestSession_EventsBecomeNotifications(t *testing.T) {
	req := require.New(t)
	s, dialer := newTestSession(t, stubFetcher{err: stderrors.New("offline")})
	tr := dialer.transport(0)
	req.Contains(tr.rooms(event.OpJoin), domain.SectorRoom("tajweed"))

	// When two events arrive
	tr.push(eventFrame(t, event.New(event.ProgressUpdated{UserID: "42", Sector: "Quran", Percent: 62}, event.UserScope("42")), "user:42"))
	tr.push(eventFrame(t, event.New(event.MessageReceived{SenderName: "Amina", Preview: "Salam"}, event.UserScope("42")), "user:42"))

	// Then both are listed newest first, unread, and shown as toasts
	req.Eventually(func() bool { return s.GetUnreadCount() == 2 }, time.Second, 5*time.Millisecond)
	notifications := s.GetNotifications()
	req.Len(notifications, 2)
	req.Equal("New message", notifications[0].Title)
	req.Equal("Quran progress: 62%", notifications[1].Message)
	req.Len(s.GetToasts(), 2)

	req.True(s.MarkRead(notifications[1].ID))
	req.Equal(1, s.GetUnreadCount())
	req.True(s.Dismiss(notifications[0].ID))
	req.Len(s.GetToasts(), 1)
	s.MarkAllRead()
	req.Zero(s.GetUnreadCount())
}

func TestSession_PrayerUpdateReplacesSchedule(t *testing.T) {
	req := require.New(t)
	s, dialer := newTestSession(t, stubFetcher{err: stderrors.New("offline")})
	req.Equal(domain.DefaultSchedule(), s.GetSchedule())

	updated := domain.DailySchedule{Location: "Lyon", Fajr: 300, Dhuhr: 780, Asr: 1000, Maghrib: 1190, Isha: 1290}
	dialer.transport(0).push(eventFrame(t, event.New(event.PrayerTimeUpdated{DailySchedule: updated}, event.AllScope()), domain.BroadcastRoom))

	req.Eventually(func() bool { return s.GetSchedule() == updated }, time.Second, 5*time.Millisecond)
	req.Equal(1, s.GetUnreadCount())
	state := s.GetNextEventState()
	req.NotEmpty(state.Name)
	req.GreaterOrEqual(state.MinutesRemaining, 0)
}

func TestSession_UsesFetchedSchedule(t *testing.T) {
	fetched := domain.DailySchedule{Location: "Lyon", Fajr: 300, Dhuhr: 780, Asr: 1000, Maghrib: 1190, Isha: 1290}
	s, _ := newTestSession(t, stubFetcher{schedule: fetched})

	require.Equal(t, fetched, s.GetSchedule())
}

func TestSession_SubscribeWhileJoined(t *testing.T) {
	req := require.New(t)
	s, dialer := newTestSession(t, stubFetcher{})

	req.NoError(s.Subscribe("fiqh"))
	s.Unsubscribe("tajweed")

	tr := dialer.transport(0)
	req.Contains(tr.rooms(event.OpJoin), domain.SectorRoom("fiqh"))
	req.Equal([]domain.RoomID{"sector:tajweed"}, tr.rooms(event.OpLeave))
}

func TestSession_StartTwiceAndClose(t *testing.T) {
	req := require.New(t)
	s, _ := newTestSession(t, stubFetcher{})

	req.ErrorIs(s.Start(context.Background()), errors.ErrAlreadyRunning)

	s.Close()
	s.Close()
	req.Equal(Disconnected, s.ConnectionState())
	req.ErrorIs(s.Start(context.Background()), errors.ErrAlreadyRunning)
}

func TestNewSession_RejectsInvalidTopic(t *testing.T) {
	cfg := DefaultSessionConfig("42")
	cfg.Topics = []string{""}
	_, err := NewSession(logs.GetLoggerFromLevel(slog.LevelDebug), &fakeDialer{}, nil, cfg)

	require.ErrorIs(t, err, errors.ErrInvalidRoom)
}
