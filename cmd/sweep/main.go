// Command sweep deletes stored rows older than the retention window. It runs
// once and exits; schedule it externally (cron, a Kubernetes CronJob).
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/navid-fn/mandi/configs"
	"github.com/navid-fn/mandi/internal/service"
	"github.com/navid-fn/mandi/internal/storage"
)

func main() {
	cfg := configs.AppLoad()

	var retentionDays int
	flag.IntVar(&retentionDays, "days", cfg.RetentionDays, "Delete rows older than this many days")
	flag.Parse()

	logger := configs.NewLogger(cfg.LogLevel)
	for _, w := range cfg.Validate() {
		logger.Warn(w)
	}
	if retentionDays < 0 {
		logger.Fatalf("-days must not be negative, got %d", retentionDays)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := storage.Open(cfg.DB.Driver, cfg.DB.DSN, logger)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	store := storage.NewGormStore(db, logger)
	defer store.Close()

	svc := service.NewMarketService(nil, store, service.Options{Location: cfg.Location()}, logger)
	deleted, err := svc.Sweep(ctx, retentionDays)
	if err != nil {
		logger.WithError(err).Error("Retention sweep failed")
		os.Exit(1)
	}
	logger.WithFields(logrus.Fields{
		"deleted":        deleted,
		"retention_days": retentionDays,
	}).Info("Done")
}
