package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"trade-journal/internal/config"
	"trade-journal/internal/database"
	"trade-journal/internal/functions"
	"trade-journal/internal/journal"
	"trade-journal/internal/logger"
	"trade-journal/internal/store"
	"trade-journal/internal/trace"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig("./configs")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log, err := logger.NewLogger(cfg.Logger.Level, cfg.Logger.Format, cfg.Logger.File)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := trace.Init(cfg.Tracing.Enabled, nil); err != nil {
		log.Fatal("Failed to initialize tracing", zap.Error(err))
	}

	// Connect to the database
	db, err := database.NewDatabase(cfg.Database.DSN)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	log.Info("Database connection successful and schema migrated.")

	st := store.New(db, log)
	fn := functions.NewClient(&cfg.Functions, log)
	svc := journal.NewService(cfg.Journal, st, fn, log)

	// Setup context for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go journal.NewRefresher(svc, cfg.Journal.RefreshInterval, log).Run(ctx)

	server := NewServer(cfg.Server.Port, cfg.Server.StaticDir, NewAPIHandler(log, svc, st.Feed(), cfg.Journal.DefaultUser), log)
	errs := server.Start()

	select {
	case <-ctx.Done():
		log.Info("Shutdown signal received, gracefully shutting down...")
	case err := <-errs:
		if err != nil {
			log.Error("Web server stopped unexpectedly", zap.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Stop(shutdownCtx); err != nil {
		log.Error("Failed to stop web server", zap.Error(err))
	}
	if err := trace.Shutdown(shutdownCtx); err != nil {
		log.Error("Failed to flush traces", zap.Error(err))
	}
	log.Info("Journal server has been shut down.")
}
