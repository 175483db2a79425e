package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"dividi/internal/amqp"
	"dividi/internal/config"
	"dividi/internal/ledger"
	gsheet "dividi/internal/ledger/google"
	mem "dividi/internal/ledger/memory"
	applog "dividi/internal/log"
	"dividi/internal/notify"
	"dividi/internal/storage"
	"dividi/internal/worker"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	// Setup structured logging
	logger := applog.New(applog.Config{
		Level:     slog.LevelInfo,
		Component: applog.ComponentWorker,
	})
	applog.SetDefault(logger)

	logger.Info("Starting dividi-worker")

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

	notifications := notify.NewFileStore(cfg.NotificationsPath)
	watcher := notify.NewBudgetWatcher(notifications)

	var (
		expenseMirror    ledger.ExpenseMirror
		settlementMirror ledger.SettlementMirror
	)
	switch cfg.LedgerBackend {
	case "sheets":
		cli, err := gsheet.NewFromEnv(context.Background())
		if err != nil {
			logger.Error("Failed to initialize Google Sheets ledger", "error", err)
			os.Exit(1)
		}
		expenseMirror, settlementMirror = cli, cli
		logger.Info("Google Sheets ledger initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	case "memory":
		m := mem.New()
		expenseMirror, settlementMirror = m, m
		logger.Info("In-memory ledger initialized")
	default:
		logger.Info("Ledger mirroring disabled", "backend", cfg.LedgerBackend)
	}

	alertWorker := worker.NewAlertWorker(repo, watcher, expenseMirror, settlementMirror)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Catch up on anything recorded while the worker was down.
	if err := alertWorker.EvaluateBudgets(ctx); err != nil {
		logger.Error("Startup budget evaluation failed", "error", err)
		// Don't exit - the periodic tick retries.
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return amqp.ConsumeWithReconnect(gctx, cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue,
			alertWorker.HandleExpenseRecorded, alertWorker.HandleShareSettled)
	})

	g.Go(func() error {
		ticker := time.NewTicker(cfg.EvaluateInterval)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return gctx.Err()
			case <-ticker.C:
				if err := alertWorker.EvaluateBudgets(gctx); err != nil {
					logger.Error("Periodic budget evaluation failed", "error", err)
				}
			}
		}
	})

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logger.Info("Shutdown signal received", "signal", sig.String())
		cancel()
	case <-gctx.Done():
	}

	if err := g.Wait(); err != nil && err != context.Canceled {
		logger.Error("Worker stopped with error", "error", err)
		os.Exit(1)
	}
	logger.Info("Worker stopped gracefully")
}
