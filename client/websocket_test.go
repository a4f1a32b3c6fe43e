package client_test

import (
	"community-pulse/auth"
	"community-pulse/bus"
	"community-pulse/client"
	"community-pulse/domain"
	"community-pulse/domain/event"
	"community-pulse/runtime"
	"community-pulse/transport/ws"
	"context"
	"log/slog"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

func TestRuntime_OverWebsocket(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)

	// Given a server with a registry and a dispatcher
	registry := runtime.NewRegistry(log)
	dispatcher := runtime.NewDispatcher(log, registry, 16)
	tokens := auth.NewTokens("test-secret", "community-pulse")
	server := httptest.NewServer(ws.NewHandler(log, registry, tokens, ws.DefaultOptions()))
	t.Cleanup(server.Close)

	token, err := tokens.GenerateToken("42", []string{auth.RoleSubscriber}, time.Minute)
	req.NoError(err)
	url := "ws" + strings.TrimPrefix(server.URL, "http")

	// And a subscriber following the tajweed topic
	b := bus.New(log)
	var (
		mu       sync.Mutex
		received []event.DomainEvent
	)
	b.SubscribeAll(func(evt event.DomainEvent) {
		mu.Lock()
		defer mu.Unlock()
		received = append(received, evt)
	})
	r := client.NewRuntime(log, client.NewWSDialer(url, token), b, client.Options{
		UserID:           "42",
		HandshakeTimeout: 2 * time.Second,
		Backoff:          client.DefaultBackoff(),
	})
	req.NoError(r.Subscribe(domain.SectorRoom("tajweed")))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	req.Eventually(func() bool {
		return r.State() == client.Joined && len(registry.Members(domain.SectorRoom("tajweed"))) == 1
	}, 2*time.Second, 10*time.Millisecond)

	// When events are delivered to the user, the topic and another topic
	req.Equal(1, dispatcher.Deliver(event.New(event.HabitUpdated{UserID: "42", HabitID: "dhikr", Value: 33}, event.UserScope("42"))))
	req.Equal(1, dispatcher.Deliver(event.Announcement("Tajweed class moved", "tajweed")))
	req.Equal(0, dispatcher.Deliver(event.Announcement("Fiqh class moved", "fiqh")))

	// Then the subscriber receives exactly the first two, in order
	req.Eventually(func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(received) == 2
	}, 2*time.Second, 10*time.Millisecond)
	mu.Lock()
	req.Equal(event.HabitUpdatedType, received[0].Type)
	req.Equal(event.TopicScope("tajweed"), received[1].Scope)
	mu.Unlock()

	cancel()
	req.NoError(<-done)
	req.Eventually(func() bool { return registry.ConnectionCount() == 0 }, 2*time.Second, 10*time.Millisecond)
}
