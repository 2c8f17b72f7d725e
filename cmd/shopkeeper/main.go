package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/shopkeeper/internal/catalog"
	"github.com/angelmondragon/shopkeeper/internal/checkout"
	"github.com/angelmondragon/shopkeeper/internal/recordstore"
	"github.com/angelmondragon/shopkeeper/pkg/config"
	pkgerrors "github.com/angelmondragon/shopkeeper/pkg/errors"
	"github.com/angelmondragon/shopkeeper/pkg/logger"
	"github.com/angelmondragon/shopkeeper/pkg/metrics"
)

func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	logg := logger.New(logger.Options{ServiceName: "shopkeeper", Output: stderr})

	if err := godotenv.Load(); err != nil {
		logg.Debug(ctx, ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(ctx, "failed to load config", err)
		return 1
	}

	logg = logger.New(logger.Options{
		ServiceName: "shopkeeper",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Format:      cfg.App.LogFormat,
		Output:      stderr,
	})
	ctx = logg.WithFields(ctx, map[string]any{
		"env":    cfg.App.Env,
		"driver": cfg.Store.Driver,
	})

	registry := prometheus.NewRegistry()
	storeMetrics := metrics.NewStoreMetrics(registry)
	salesMetrics := metrics.NewSalesMetrics(registry)
	if path := cfg.Metrics.TextfilePath; path != "" {
		defer func() {
			if err := metrics.WriteTextfile(registry, path); err != nil {
				logg.Error(ctx, "failed to write metrics textfile", err)
			}
		}()
	}

	store, err := recordstore.New(ctx, cfg.Store, logg, storeMetrics)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap record store", err)
		fmt.Fprintln(stderr, "error:", pkgerrors.PublicMessage(err))
		return 1
	}
	defer func() {
		if err := store.Close(); err != nil {
			logg.Error(ctx, "error closing record store", err)
		}
	}()

	catalogSvc, err := catalog.NewService(ctx, store, store.Counters(), logg, catalog.Options{
		NearExpiryDays: cfg.Inventory.NearExpiryDays,
	})
	if err != nil {
		logg.Error(ctx, "failed to create catalog service", err)
		return 1
	}
	manager, err := checkout.NewManager(ctx, store, catalogSvc, store.Counters(), logg, salesMetrics, nil)
	if err != nil {
		logg.Error(ctx, "failed to create sales manager", err)
		return 1
	}

	a := &app{catalog: catalogSvc, sales: manager, out: stdout}
	if err := a.dispatch(ctx, args); err != nil {
		if err == errUsage {
			return 2
		}
		fmt.Fprintln(stderr, "error:", pkgerrors.PublicMessage(err))
		return 1
	}
	return 0
}
