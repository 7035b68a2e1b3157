// Command provision prepares the catalog collection: it creates the text
// index used by search and optionally upserts items from a JSON seed file.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/utafrali/mongomart/internal/config"
	"github.com/utafrali/mongomart/internal/domain"
	"github.com/utafrali/mongomart/internal/seed"
	"github.com/utafrali/mongomart/internal/store/mongodb"
	"github.com/utafrali/mongomart/pkg/database"
	"github.com/utafrali/mongomart/pkg/logger"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	seedPath := flag.String("seed", "", "JSON file of items to upsert into the catalog")
	timeout := flag.Duration("timeout", 2*time.Minute, "Overall deadline for provisioning")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cfg.Store != config.StoreMongoDB {
		return fmt.Errorf("provisioning requires CATALOG_STORE=%s, got %q", config.StoreMongoDB, cfg.Store)
	}

	log := logger.New("catalog-provision", cfg.LogLevel)

	// Read the seed before connecting so a bad file fails fast.
	var items []domain.Item
	if *seedPath != "" {
		items, err = seed.LoadFile(*seedPath)
		if err != nil {
			return err
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	client, err := database.NewMongoClient(ctx, cfg.MongoConfig("catalog-provision"), log)
	if err != nil {
		return fmt.Errorf("connect to mongodb: %w", err)
	}
	defer func() {
		if err := client.Disconnect(context.Background()); err != nil {
			log.Error("failed to disconnect from mongodb", slog.String("error", err.Error()))
		}
	}()

	st := mongodb.NewStore(client.Database(cfg.MongoDatabase))

	name, err := st.EnsureTextIndex(ctx)
	if err != nil {
		return err
	}
	log.Info("text index ready",
		slog.String("collection", mongodb.CollectionName),
		slog.String("index", name),
	)

	if len(items) == 0 {
		return nil
	}
	res, err := st.Seed(ctx, items)
	if err != nil {
		return err
	}
	log.Info("catalog seeded",
		slog.Int("items", len(items)),
		slog.Int64("inserted", res.Inserted),
		slog.Int64("replaced", res.Replaced),
	)
	return nil
}
