package main

import (
	"community-pulse/api"
	"community-pulse/auth"
	"community-pulse/internal"
	"community-pulse/moderation"
	"community-pulse/repositories"
	"community-pulse/runtime"
	"community-pulse/runtime/workers"
	"community-pulse/services"
	"community-pulse/transport/ws"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/Netflix/go-env"
	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"
)

// Exit codes to provide meaningful status to the service manager.
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

func main() {
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Server terminated with error: %v\n", err)
	}
	os.Exit(code)
}

// run wires every component and owns their lifecycle, so deferred cleanup
// always happens before the process exits.
func run() (int, error) {
	// 1. Configuration & Logger
	_ = godotenv.Load()
	var config internal.Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}
	if err := config.Validate(); err != nil {
		return exitConfig, err
	}
	charReplacement, err := internal.CharacterRune(config.CharReplacement)
	if err != nil {
		return exitConfig, err
	}
	logger := logs.GetLoggerFromString(config.LogLevel)
	moderator, err := moderation.NewModerator(logger, config.CensoredWordList(), charReplacement)
	if err != nil {
		return exitConfig, fmt.Errorf("moderation dictionary: %w", err)
	}

	// 2. Database (BadgerDB)
	db, err := badger.Open(badger.DefaultOptions(config.BadgerFilepath).WithLoggingLevel(badger.WARNING))
	if err != nil {
		return exitRuntime, fmt.Errorf("database opening failed: %w", err)
	}
	defer func() {
		logger.Info("Closing BadgerDB...")
		_ = db.Close()
	}()

	// 3. Routing core
	registry := runtime.NewRegistry(logger)
	dispatcher := runtime.NewDispatcher(logger, registry, config.DispatchBufferSize)
	scheduleRepository := repositories.NewScheduleRepository(db, logger)
	scheduleService := services.NewScheduleService(logger, scheduleRepository, dispatcher)
	eventService := services.NewEventService(logger, dispatcher, scheduleService, moderator)
	tokens := auth.NewTokens(config.JWTSecret, config.JWTIssuer)

	// 4. Supervised workers
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sup := workers.NewSupervisor(logger, config.RestartInterval)
	sup.Add(
		dispatcher,
		workers.NewHealthWorker(logger, registry, config.MetricInterval),
		workers.NewChannelCapacityWorker(logger, []workers.NamedChannel{
			{Name: "dispatch", Channel: dispatcher.Queue()},
		}, config.MetricInterval, config.LowCapacityThreshold),
	)
	supDone := make(chan struct{})
	go func() {
		defer close(supDone)
		sup.Run(ctx)
	}()

	if logger.Enabled(ctx, slog.LevelDebug) {
		debug := internal.StartDebugServer(logger, scheduleRepository, config.DebugPort)
		logger.Info("Schedule inspector available", "url", fmt.Sprintf("http://%s/inspect", debug.Addr))
		defer func() { _ = debug.Close() }()
	}

	// 5. HTTP & websocket
	server := api.NewServer(logger, api.Options{
		Schedules: scheduleService,
		Events:    eventService,
		Stats:     registry,
		Tokens:    tokens,
		Websocket: ws.NewHandler(logger, registry, tokens, config.Websocket()),
	})
	errChan := make(chan error, 1)
	go func() {
		logger.Info("Starting HTTP server", "address", config.Address())
		if err := server.Start(config.Address()); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("http server error: %w", err)
		}
	}()

	// 6. Wait for Stop or Error
	code := exitOK
	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
	case err = <-errChan:
		logger.Error("Server failed", "error", err)
		code = exitRuntime
	}

	// 7. Graceful shutdown: stop accepting, then drain the workers
	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.ShutdownTimeout)
	defer cancel()
	if shutdownErr := server.Shutdown(shutdownCtx); shutdownErr != nil {
		logger.Warn("HTTP shutdown incomplete", "error", shutdownErr)
	}
	stop()
	<-supDone
	logger.Info("Program stopped cleanly")

	return code, err
}
