package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"dividi/internal/amqp"
	"dividi/internal/config"
	apphttp "dividi/internal/http"
	applog "dividi/internal/log"
	"dividi/internal/notify"
	"dividi/internal/services"
	"dividi/internal/storage"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	// Setup structured logging
	logger := applog.New(applog.DefaultConfig())
	applog.SetDefault(logger)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", "error", err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()
	logger.Info("Storage initialized", "database", cfg.SQLiteDBPath)

	notifications := notify.NewFileStore(cfg.NotificationsPath)
	watcher := notify.NewBudgetWatcher(notifications)
	logger.Info("Notification store initialized",
		"path", cfg.NotificationsPath, "hydrated", notifications.Hydrated())

	// AMQP is optional for the API: without it expenses are still saved
	// and the in-process budget check still runs; only ledger mirroring
	// waits for the worker.
	var publisher services.EventPublisher
	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Warn("AMQP unavailable, events disabled", "error", err)
	} else {
		defer amqpClient.Close()
		publisher = amqpClient
		logger.Info("AMQP initialized", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	}

	service := services.NewSplitService(repo, publisher)
	srv := apphttp.NewServer(":"+cfg.Port, service, repo, notifications, watcher)

	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 10 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	// Graceful shutdown handling
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		cancel()
	}()

	logger.Info("Starting dividi server", "port", cfg.Port)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	<-ctx.Done()
	logger.Info("Server stopped gracefully")
}
