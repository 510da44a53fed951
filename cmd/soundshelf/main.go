package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"soundshelf/internal/config"
	"soundshelf/internal/logging"
	"soundshelf/internal/schema"
	"soundshelf/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.New(logging.Config{}).Fatal(err, "load config")
	}

	logger := logging.New(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})
	logging.SetGlobalLogger(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := openDatabase(ctx, cfg.Database, logger)
	if err != nil {
		logger.Fatal(err, "open database")
	}
	defer db.Close()

	caps, err := schema.Detect(ctx, db)
	if err != nil {
		logger.Fatal(err, "detect schema capabilities")
	}
	logger.Zerolog().Info().
		Uint("migration_version", caps.Version()).
		Strs("optional_columns", caps.Present()).
		Msg("schema capabilities detected")

	dataStore := store.New(db, caps)

	if cfg.Catalog.SeedDemo {
		if err := bootstrapDemoData(ctx, dataStore, logger); err != nil {
			logger.Error(err, "seed demo data")
		}
	}

	if err := serve(ctx, cfg, logger, dataStore); err != nil {
		logger.Fatal(err, "server error")
	}
}
