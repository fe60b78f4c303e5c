package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"streakly/internal/config"
	"streakly/internal/db"
	"streakly/internal/events"
	"streakly/internal/handlers"
	"streakly/internal/history"
	"streakly/internal/logging"
	"streakly/internal/server"
	"streakly/internal/services"
	"streakly/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(logging.Options{Development: cfg.Development(), Level: cfg.LogLevel, File: cfg.LogFile})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: LOG_LEVEL: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server failed", zap.Error(err))
	}
}

func run(cfg config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dbConn, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer dbConn.Close()
	if err := db.RunMigrations(ctx, dbConn); err != nil {
		return fmt.Errorf("failed migrations: %w", err)
	}

	encSvc, err := services.NewEncryptionService(cfg.EncryptionKey, cfg.BlindIndexKey)
	if err != nil {
		return err
	}

	st := store.New(dbConn)
	sessions := history.NewSessions(st, cfg.HistoryTTL, logger.Named("history"))

	var bus events.Bus = events.NewLocalBus()
	if cfg.RedisURL != "" {
		redisBus, err := events.NewRedisBus(ctx, cfg.RedisURL, logger.Named("events"))
		if err != nil {
			return err
		}
		defer redisBus.Close()
		go redisBus.Relay(ctx, sessions.InvalidateAll)
		bus = redisBus
	} else {
		logger.Info("REDIS_URL not set; history invalidation is local to this instance")
	}
	bus.Subscribe(sessions.NotifyJournalWritten)
	go sessions.Sweep(ctx, cfg.SessionIdle)

	router := server.NewRouter(server.Deps{
		Store:      st,
		Encryption: encSvc,
		Sessions:   sessions,
		Bus:        bus,
		Clock:      handlers.SystemClock(cfg.Location),
		JWTSecret:  cfg.JWTSecret,
		Logger:     logger,
	})

	srv := &http.Server{Addr: ":" + cfg.Port, Handler: router, ReadHeaderTimeout: 10 * time.Second}
	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	logger.Info("shutdown initiated")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	logger.Info("server stopped")
	return nil
}
