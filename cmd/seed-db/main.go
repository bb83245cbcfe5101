// Command seed-db loads the starter ingredients, menu and an API key.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"

	"github.com/go-faster/errors"

	"github.com/xenking/larder/internal/domain/auth"
	"github.com/xenking/larder/internal/domain/menu"
	"github.com/xenking/larder/internal/domain/stock"
	"github.com/xenking/larder/internal/storage/postgres"
)

func main() {
	var (
		databaseURL  string
		seedFile     string
		apiKey       string
		apiKeyPepper string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&seedFile, "seed-file", "", "path to a menu JSON file, optionally gzip-compressed (.gz); defaults to the built-in menu")
	flag.StringVar(&apiKey, "api-key", "", "API key to seed (or LARDER_SEED_API_KEY env)")
	flag.StringVar(&apiKeyPepper, "api-key-pepper", "", "HMAC pepper for API key hashing (or LARDER_API_KEY_PEPPER env)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}
	if apiKey == "" {
		apiKey = os.Getenv("LARDER_SEED_API_KEY")
	}
	if apiKey == "" {
		slog.Error("API key is required: set --api-key or LARDER_SEED_API_KEY")
		os.Exit(1)
	}
	if apiKeyPepper == "" {
		apiKeyPepper = os.Getenv("LARDER_API_KEY_PEPPER")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, seedFile, apiKey, apiKeyPepper); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, seedFile, apiKey, pepper string) error {
	seed, err := loadSeed(seedFile)
	if err != nil {
		return errors.Wrap(err, "load seed")
	}

	slog.Info("connecting to database")

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	slog.Info("running migrations")

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	store := postgres.NewStore(pool)

	if err := seedIngredients(ctx, stock.NewService(store), seed.Ingredients); err != nil {
		return errors.Wrap(err, "seed ingredients")
	}

	if err := seedMenu(ctx, menu.NewService(store), seed.Menu); err != nil {
		return errors.Wrap(err, "seed menu")
	}

	if err := seedAPIKey(ctx, postgres.NewAPIKeyRepository(pool), apiKey, pepper); err != nil {
		return errors.Wrap(err, "seed api key")
	}

	return nil
}

func seedAPIKey(ctx context.Context, keys auth.Repository, apiKey, pepper string) error {
	slog.Info("seeding default API key")

	key := &auth.APIKey{
		ID:      "default",
		KeyHash: auth.HashKey([]byte(pepper), apiKey),
		Name:    "Default admin key",
		Scopes: []string{
			auth.ScopeManageStock,
			auth.ScopeManageMenu,
			auth.ScopeOrders,
			auth.ScopeClients,
		},
		Active: true,
	}
	if err := keys.Upsert(ctx, key); err != nil {
		return errors.Wrap(err, "upsert default API key")
	}

	slog.Info("upserted API key", slog.String("id", key.ID), slog.String("name", key.Name))

	return nil
}
