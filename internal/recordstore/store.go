package recordstore

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/shopkeeper/internal/product"
	"github.com/angelmondragon/shopkeeper/internal/sales"
	"github.com/angelmondragon/shopkeeper/pkg/config"
	"github.com/angelmondragon/shopkeeper/pkg/db"
	pkgerrors "github.com/angelmondragon/shopkeeper/pkg/errors"
	"github.com/angelmondragon/shopkeeper/pkg/logger"
	"github.com/angelmondragon/shopkeeper/pkg/metrics"
	"github.com/angelmondragon/shopkeeper/pkg/migrate"
)

const (
	kindCatalog = "catalog"
	kindSales   = "sales"
)

// Store persists the whole catalog and the whole sale history. Loads return
// whatever decoded; a non-nil error from a load means storage itself could
// not be read. Saves replace everything previously stored.
type Store interface {
	LoadCatalog(ctx context.Context) ([]*product.Product, error)
	SaveCatalog(ctx context.Context, entries []*product.Product) error
	LoadSales(ctx context.Context, catalog []*product.Product) ([]*sales.Sale, error)
	SaveSales(ctx context.Context, history []*sales.Sale) error
	Counters() *Counters
	Close() error
}

// New builds the backend selected by cfg.Driver.
func New(ctx context.Context, cfg config.StoreConfig, logg *logger.Logger, m *metrics.StoreMetrics) (Store, error) {
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	switch cfg.Driver {
	case config.DriverFile:
		return NewFileStore(cfg.CatalogPath, cfg.SalesPath, logg, m)
	case config.DriverSQLite:
		client, err := db.Open(ctx, cfg.SQLitePath, logg)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "open sqlite store")
		}
		if err := migrate.MaybeRun(ctx, cfg.AutoMigrate, logg, client); err != nil {
			_ = client.Close()
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "migrate sqlite store")
		}
		return NewSQLiteStore(client, logg, m)
	default:
		return nil, fmt.Errorf("unsupported store driver %q", cfg.Driver)
	}
}

// reportSkipped logs and counts every skipped record in err and returns the
// first failure that was not a skip.
func reportSkipped(ctx context.Context, logg *logger.Logger, m *metrics.StoreMetrics, kind string, err error) error {
	skipped := Skipped(err)
	for _, skip := range skipped {
		fields := map[string]any{"kind": kind, "record": skip.Record, "reason": skip.Err.Error()}
		logg.Warn(logg.WithFields(ctx, fields), "skipping malformed record")
	}
	m.AddSkipped(kind, len(skipped))
	return fatal(err)
}

func observe(m *metrics.StoreMetrics, operation string, started time.Time) {
	m.ObserveDuration(operation, time.Since(started))
}
