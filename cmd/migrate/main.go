package main

import (
	"github.com/navid-fn/mandi/configs"
	"github.com/navid-fn/mandi/internal/storage"
)

func main() {
	cfg := configs.AppLoad()
	logger := configs.NewLogger(cfg.LogLevel)
	for _, w := range cfg.Validate() {
		logger.Warn(w)
	}

	db, err := storage.Open(cfg.DB.Driver, cfg.DB.DSN, logger)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		logger.Fatalf("Failed to get sql.DB: %v", err)
	}
	defer sqlDB.Close()

	// Verify connection
	if err := sqlDB.Ping(); err != nil {
		logger.Fatalf("Failed to ping database: %v", err)
	}

	logger.WithField("driver", cfg.DB.Driver).Info("Running database migrations...")
	if err := storage.Migrate(db, cfg.DB.Driver, logger); err != nil {
		logger.Fatalf("Migration failed: %v", err)
	}

	logger.Info("Migrations completed successfully")
}
