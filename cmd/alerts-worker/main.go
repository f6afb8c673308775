package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"laksha/internal/alerts"
	"laksha/internal/amqp"
	"laksha/internal/config"
	"laksha/internal/log"
	"laksha/internal/services"
	"laksha/internal/storage"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := log.New(log.Config{Component: log.ComponentAlerts})
	log.SetDefault(logger)

	logger.Info("Starting alerts-worker")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	store, err := storage.NewRepository(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", "error", err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer store.Close()

	var amqpClient *amqp.Client
	if cfg.AMQPURL != "" {
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, continuing without delivery", "error", err)
			amqpClient = nil
		} else {
			defer amqpClient.Close()
		}
	}

	evaluator := alerts.NewEvaluator(store, store, store)
	sweep := services.NewAlertSweep(store, evaluator, amqpClient)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("Alert sweep configured",
		"interval", cfg.SweepInterval,
		"sqlite_db", cfg.SQLiteDBPath)

	// Run once on startup so a restart never skips a period boundary.
	if fired, err := sweep.Run(ctx, time.Now()); err != nil {
		logger.Error("Initial sweep failed", "error", err)
	} else {
		logger.Info("Initial sweep complete", "notifications_fired", fired)
	}

	ticker := time.NewTicker(cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("Shutdown signal received")
			return
		case now := <-ticker.C:
			fired, err := sweep.Run(ctx, now)
			if err != nil {
				logger.Error("Periodic sweep failed", "error", err)
				continue
			}
			logger.Info("Periodic sweep complete",
				"notifications_fired", fired,
				"next_check", now.Add(cfg.SweepInterval).Format("15:04:05"))
		}
	}
}
