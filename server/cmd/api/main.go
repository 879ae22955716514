package main

import (
	"flag"
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/navid-fn/mandi/configs"
	"github.com/navid-fn/mandi/internal/resolver"
	"github.com/navid-fn/mandi/internal/service"
	"github.com/navid-fn/mandi/internal/source"
	"github.com/navid-fn/mandi/internal/storage"
	"github.com/navid-fn/mandi/server/internal/handler"
	"github.com/navid-fn/mandi/server/internal/middleware"
	"github.com/navid-fn/mandi/server/internal/router"
)

func main() {
	migrateFlag := flag.Bool("migrate", false, "Run database migrations before serving")
	flag.Parse()

	cfg := configs.AppLoad()
	logger := configs.NewLogger(cfg.LogLevel)
	for _, w := range cfg.Validate() {
		logger.Warn(w)
	}

	db, err := storage.Open(cfg.DB.Driver, cfg.DB.DSN, logger)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	if *migrateFlag {
		logger.Info("Running database migrations...")
		if err := storage.Migrate(db, cfg.DB.Driver, logger); err != nil {
			logger.Fatalf("Migration failed: %v", err)
		}
	}
	store := storage.NewGormStore(db, logger)
	defer store.Close()

	gate, err := middleware.NewGate(cfg.Policy.AuthMode, cfg.Auth)
	if err != nil {
		logger.WithError(err).Warn("Auth gate misconfigured, row writes are disabled")
		gate = middleware.DenyAll{}
	}

	httpCfg := source.DefaultHTTPConfig(cfg.Source.BaseURL, cfg.Source.APIKey, cfg.Source.RatePerSecond)
	client := source.NewClient(httpCfg, source.Defaults{
		State:    cfg.Source.DefaultState,
		District: cfg.Source.DefaultDistrict,
	}, logger)

	opts := []resolver.Option{resolver.WithLocation(cfg.Location())}
	if cfg.Policy.PersistOnFetch {
		opts = append(opts, resolver.WithPersister(store, cfg.Policy.PersistFallbackDates))
	}
	res := resolver.New(client, logger, opts...)

	marketService := service.NewMarketService(res, store, service.Options{
		DefaultState:    cfg.Source.DefaultState,
		DefaultDistrict: cfg.Source.DefaultDistrict,
		DashboardSource: cfg.Policy.DashboardSource,
		Location:        cfg.Location(),
	}, logger)

	if !cfg.Server.DebugMode {
		gin.SetMode(gin.ReleaseMode)
	}
	routerConfig := &router.Config{
		MarketHandler: handler.NewMarketHandler(marketService),
		ViewHandler:   handler.NewViewHandler(marketService),
		RowHandler:    handler.NewRowHandler(marketService),
		Gate:          gate,
	}

	r := router.NewRouter(routerConfig)

	logger.WithFields(logrus.Fields{
		"port":             cfg.Server.Port,
		"auth_mode":        cfg.Policy.AuthMode,
		"persist_on_fetch": cfg.Policy.PersistOnFetch,
		"dashboard_source": cfg.Policy.DashboardSource,
	}).Info("Starting API server")
	if err := r.Run(fmt.Sprintf(":%s", cfg.Server.Port)); err != nil {
		logger.Fatalf("Server stopped: %v", err)
	}
}
