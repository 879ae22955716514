// Command fetch resolves one query against the source and prints the result
// as JSON. With PERSIST_ON_FETCH set the batch is stored as well.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/navid-fn/mandi/configs"
	"github.com/navid-fn/mandi/internal/models"
	"github.com/navid-fn/mandi/internal/resolver"
	"github.com/navid-fn/mandi/internal/source"
	"github.com/navid-fn/mandi/internal/storage"
	"github.com/navid-fn/mandi/utils"
)

func main() {
	var filter models.QueryFilter
	flag.StringVar(&filter.State, "state", "", "State filter (default DEFAULT_STATE)")
	flag.StringVar(&filter.District, "district", "", "District filter (default DEFAULT_DISTRICT)")
	flag.StringVar(&filter.Commodity, "commodity", "", "Commodity filter")
	flag.StringVar(&filter.Date, "date", "", "Fixed arrival date DD/MM/YYYY; walks back from today when empty")
	flag.Parse()

	if filter.Date != "" {
		if _, err := utils.ParseSourceDate(filter.Date); err != nil {
			fmt.Fprintf(os.Stderr, "Error: -date must be DD/MM/YYYY, got %q\n", filter.Date)
			os.Exit(2)
		}
	}

	cfg := configs.AppLoad()
	logger := configs.NewLogger(cfg.LogLevel)
	logger.SetOutput(os.Stderr)
	for _, w := range cfg.Validate() {
		logger.Warn(w)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	httpCfg := source.DefaultHTTPConfig(cfg.Source.BaseURL, cfg.Source.APIKey, cfg.Source.RatePerSecond)
	client := source.NewClient(httpCfg, source.Defaults{
		State:    cfg.Source.DefaultState,
		District: cfg.Source.DefaultDistrict,
	}, logger)

	opts := []resolver.Option{resolver.WithLocation(cfg.Location())}
	if cfg.Policy.PersistOnFetch {
		db, err := storage.Open(cfg.DB.Driver, cfg.DB.DSN, logger)
		if err != nil {
			logger.Fatalf("Failed to connect to database: %v", err)
		}
		store := storage.NewGormStore(db, logger)
		defer store.Close()
		opts = append(opts, resolver.WithPersister(store, cfg.Policy.PersistFallbackDates))
	}

	result := resolver.New(client, logger, opts...).Resolve(ctx, filter)

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		logger.Fatalf("Failed to encode result: %v", err)
	}
	if result.PersistError != "" {
		logger.Errorf("Records were not stored: %s", result.PersistError)
		os.Exit(1)
	}
}
