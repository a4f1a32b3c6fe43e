package main

import (
	"community-pulse/auth"
	"community-pulse/client"
	"community-pulse/domain"
	"community-pulse/domain/event"
	"community-pulse/projection"
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Netflix/go-env"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"
)

// Exit codes for the subscriber application.
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

func main() {
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Subscriber error: %v\n", err)
	}
	os.Exit(code)
}

func run() (int, error) {
	// 1. Configuration
	_ = godotenv.Load()
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}
	claims, err := auth.UnverifiedClaims(config.Token)
	if err != nil {
		return exitConfig, fmt.Errorf("PULSE_TOKEN: %w", err)
	}
	log := logs.GetLoggerFromString(config.LogLevel)
	out := printer{out: os.Stdout, colours: config.Colours}

	// 2. Session
	cfg := client.DefaultSessionConfig(claims.UserID)
	cfg.Topics = config.TopicList()
	cfg.HandshakeTimeout = config.HandshakeTimeout
	cfg.Store = projection.StoreOptions{
		PersistedCapacity: projection.DefaultStoreOptions().PersistedCapacity,
		ToastCapacity:     projection.DefaultStoreOptions().ToastCapacity,
		ToastTTL:          config.ToastTTL,
	}
	session, err := client.NewSession(log,
		client.NewWSDialer(config.WebsocketURL(), config.Token),
		client.NewScheduleClient(config.ServerURL),
		cfg)
	if err != nil {
		return exitConfig, err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Start: schedule fetch, then background connection
	watch(session, out)
	if err = session.Start(ctx); err != nil {
		return exitRuntime, err
	}
	defer session.Close()
	out.schedule(session.GetSchedule())
	fmt.Fprintf(os.Stdout, "Listening as user %s on %d topic(s) (Ctrl+C to quit)...\n", claims.UserID, len(cfg.Topics))

	<-ctx.Done()
	fmt.Fprintln(os.Stdout, "Stopping subscriber...")
	return exitOK, nil
}

// watch prints connection changes, toasts and the countdown. The countdown
// follows the session's own minute timer. Call it before Start.
func watch(session *client.Session, out printer) {
	session.OnStateChange(out.connection)
	session.OnNextEvent(func(next domain.NextEventState) {
		out.countdown(next, session.GetUnreadCount())
	})
	session.Bus().SubscribeAll(func(evt event.DomainEvent) {
		if n, ok := projection.FromEvent(evt, time.Now()); ok {
			out.toast(n)
		}
		if evt.Type == event.PrayerTimeUpdatedType {
			out.schedule(session.GetSchedule())
		}
	})
}
