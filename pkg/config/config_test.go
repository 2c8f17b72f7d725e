package config

import (
	"os"
	"testing"
)

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned unexpected error: %v", err)
	}

	if !cfg.App.IsDev() {
		t.Fatalf("expected dev env by default, got %q", cfg.App.Env)
	}
	if cfg.Store.Driver != DriverFile {
		t.Fatalf("expected file driver, got %q", cfg.Store.Driver)
	}
	if cfg.Store.CatalogPath != "data/products.csv" {
		t.Fatalf("unexpected catalog path %q", cfg.Store.CatalogPath)
	}
	if cfg.App.LogFormat != "json" {
		t.Fatalf("expected json log format, got %q", cfg.App.LogFormat)
	}
	if cfg.Inventory.NearExpiryDays != 4 {
		t.Fatalf("expected near expiry window of 4 days, got %d", cfg.Inventory.NearExpiryDays)
	}
}

func TestLoad_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvAppEnv, "prod")
	t.Setenv(EnvStoreDriver, DriverSQLite)
	t.Setenv(EnvSQLitePath, "/tmp/shop.db")
	t.Setenv(EnvNearExpiryDays, "7")
	t.Setenv(EnvMetricsTextfile, "/tmp/shop.prom")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned unexpected error: %v", err)
	}
	if !cfg.App.IsProd() {
		t.Fatalf("expected prod env, got %q", cfg.App.Env)
	}
	if cfg.Store.Driver != DriverSQLite || cfg.Store.SQLitePath != "/tmp/shop.db" {
		t.Fatalf("unexpected store config %+v", cfg.Store)
	}
	if cfg.Inventory.NearExpiryDays != 7 {
		t.Fatalf("expected 7, got %d", cfg.Inventory.NearExpiryDays)
	}
	if cfg.Metrics.TextfilePath != "/tmp/shop.prom" {
		t.Fatalf("unexpected textfile path %q", cfg.Metrics.TextfilePath)
	}
}

func TestLoad_UnknownDriver(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvStoreDriver, "postgres")

	if _, err := Load(); err == nil {
		t.Fatal("expected unknown driver to return an error")
	}
}

func TestLoad_NearExpiryBelowOne(t *testing.T) {
	for _, value := range []string{"-1", "0"} {
		t.Run(value, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(EnvNearExpiryDays, value)

			if _, err := Load(); err == nil {
				t.Fatalf("expected near expiry window %s to fail", value)
			}
		})
	}
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		EnvAppEnv, EnvLogLevel, EnvLogWarnStack, EnvLogFormat, EnvStoreDriver, EnvCatalogPath,
		EnvSalesPath, EnvSQLitePath, EnvAutoMigrate, EnvNearExpiryDays, EnvMetricsTextfile,
	} {
		t.Setenv(key, "")
		if err := os.Unsetenv(key); err != nil {
			t.Fatalf("failed to unset %s: %v", key, err)
		}
	}
}
