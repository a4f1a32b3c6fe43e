package runtime

import (
	"community-pulse/domain"
	"community-pulse/domain/event"
	"community-pulse/errors"
	"community-pulse/mocks"
	"context"
	"encoding/json"
	stderrors "errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestDispatcher_Deliver_ResolvesScopeToRoom(t *testing.T) {
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	tests := []struct {
		name string
		evt  event.DomainEvent
		room domain.RoomID
	}{
		{"habit to user room", event.New(event.HabitUpdated{UserID: "42", HabitID: "quran", Value: 1}, event.UserScope("42")), "user:42"},
		{"announcement to topic", event.Announcement("Tajweed class at 6", "tajweed"), "sector:tajweed"},
		{"announcement to all", event.Announcement("Eid mubarak", ""), domain.BroadcastRoom},
		{"prayer times to all", event.New(event.PrayerTimeUpdated{DailySchedule: domain.DefaultSchedule()}, event.AllScope()), domain.BroadcastRoom},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := require.New(t)
			ctrl := gomock.NewController(t)
			router := mocks.NewMockIRouter(ctrl)
			dispatcher := NewDispatcher(log, router, 10)

			var sent []byte
			router.EXPECT().Route(tt.room, gomock.Any()).
				DoAndReturn(func(_ domain.RoomID, payload []byte) int {
					sent = payload
					return 3
				}).Times(1)

			req.Equal(3, dispatcher.Deliver(tt.evt))

			var frame event.Frame
			req.NoError(json.Unmarshal(sent, &frame))
			req.Equal(event.OpEvent, frame.Op)
			req.Equal(tt.evt.Type, frame.Type)
			req.Equal(tt.room, frame.Room)
		})
	}
}

func TestDispatcher_Deliver_EmptyRoom_IsNotAnError(t *testing.T) {
	ctrl := gomock.NewController(t)
	router := mocks.NewMockIRouter(ctrl)
	dispatcher := NewDispatcher(slog.Default(), router, 1)

	router.EXPECT().Route(domain.SectorRoom("empty"), gomock.Any()).Return(0).Times(1)

	require.Zero(t, dispatcher.Deliver(event.Announcement("Anyone?", "empty")))
}

func TestDispatcher_Dispatch_RejectsMalformedEvents(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	router := mocks.NewMockIRouter(ctrl)
	dispatcher := NewDispatcher(slog.Default(), router, 10)

	// Given events that break the routing table or the payload rules
	malformed := []event.DomainEvent{
		{Type: "unknown", Scope: event.AllScope()},
		event.New(event.HabitUpdated{UserID: "42", HabitID: "quran"}, event.AllScope()),
		event.New(event.MessageReceived{Preview: "no sender"}, event.UserScope("42")),
	}

	// Then each one is refused and never queued
	for _, evt := range malformed {
		err := dispatcher.Dispatch(evt)
		req.True(stderrors.Is(err, errors.ErrMalformedEvent), "got %v", err)
	}
	req.Zero(len(dispatcher.Queue()))
}

func TestDispatcher_Dispatch_QueueFull(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	dispatcher := NewDispatcher(slog.Default(), mocks.NewMockIRouter(ctrl), 1)

	req.NoError(dispatcher.Dispatch(event.Announcement("first", "")))
	err := dispatcher.Dispatch(event.Announcement("second", ""))

	req.True(stderrors.Is(err, errors.ErrDispatchQueueFull))
}

func TestDispatcher_Run_PreservesOrderWithinRoom(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry(slog.Default())
	member := newFakeConn("42")
	registry.Register(member)
	dispatcher := NewDispatcher(slog.Default(), registry, 100)

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = dispatcher.Run(ctx)
	}()

	// When many events are issued for the same user room
	const count = 50
	for i := 0; i < count; i++ {
		req.NoError(dispatcher.Dispatch(event.New(
			event.HabitUpdated{UserID: "42", HabitID: "dhikr", Value: float64(i)},
			event.UserScope("42"))))
	}

	// Then the member receives them in issue order
	req.Eventually(func() bool { return len(member.received()) == count }, time.Second, 5*time.Millisecond)
	cancel()
	wg.Wait()

	for i, raw := range member.received() {
		var frame event.Frame
		req.NoError(json.Unmarshal(raw, &frame))
		received, err := event.DecodeFrame(frame)
		req.NoError(err)
		req.Equal(float64(i), received.Payload.(event.HabitUpdated).Value)
	}
}
