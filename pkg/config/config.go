package config

import (
	"fmt"
	"strings"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = "SHOPKEEPER"

	EnvAppEnv          = "SHOPKEEPER_APP_ENV"
	EnvLogLevel        = "SHOPKEEPER_LOG_LEVEL"
	EnvLogWarnStack    = "SHOPKEEPER_LOG_WARN_STACK"
	EnvLogFormat       = "SHOPKEEPER_LOG_FORMAT"
	EnvStoreDriver     = "SHOPKEEPER_STORE_DRIVER"
	EnvCatalogPath     = "SHOPKEEPER_CATALOG_PATH"
	EnvSalesPath       = "SHOPKEEPER_SALES_PATH"
	EnvSQLitePath      = "SHOPKEEPER_SQLITE_PATH"
	EnvAutoMigrate     = "SHOPKEEPER_AUTO_MIGRATE"
	EnvNearExpiryDays  = "SHOPKEEPER_NEAR_EXPIRY_DAYS"
	EnvMetricsTextfile = "SHOPKEEPER_METRICS_TEXTFILE"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	DriverFile   = "file"
	DriverSQLite = "sqlite"
)

type Config struct {
	App       AppConfig
	Store     StoreConfig
	Inventory InventoryConfig
	Metrics   MetricsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks cross-field constraints envconfig cannot express.
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case DriverFile:
		if strings.TrimSpace(c.Store.CatalogPath) == "" || strings.TrimSpace(c.Store.SalesPath) == "" {
			return fmt.Errorf("%s and %s are required for the file driver", EnvCatalogPath, EnvSalesPath)
		}
	case DriverSQLite:
		if strings.TrimSpace(c.Store.SQLitePath) == "" {
			return fmt.Errorf("%s is required for the sqlite driver", EnvSQLitePath)
		}
	default:
		return fmt.Errorf("unsupported %s %q", EnvStoreDriver, c.Store.Driver)
	}
	if c.Inventory.NearExpiryDays < 1 {
		return fmt.Errorf("%s must be at least 1", EnvNearExpiryDays)
	}
	return nil
}

type AppConfig struct {
	Env          string `envconfig:"SHOPKEEPER_APP_ENV" default:"dev"`
	LogLevel     string `envconfig:"SHOPKEEPER_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"SHOPKEEPER_LOG_WARN_STACK" default:"false"`
	LogFormat    string `envconfig:"SHOPKEEPER_LOG_FORMAT" default:"json"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type StoreConfig struct {
	Driver      string `envconfig:"SHOPKEEPER_STORE_DRIVER" default:"file"`
	CatalogPath string `envconfig:"SHOPKEEPER_CATALOG_PATH" default:"data/products.csv"`
	SalesPath   string `envconfig:"SHOPKEEPER_SALES_PATH" default:"data/sales.csv"`
	SQLitePath  string `envconfig:"SHOPKEEPER_SQLITE_PATH" default:"data/shopkeeper.db"`
	AutoMigrate bool   `envconfig:"SHOPKEEPER_AUTO_MIGRATE" default:"true"`
}

type InventoryConfig struct {
	NearExpiryDays int `envconfig:"SHOPKEEPER_NEAR_EXPIRY_DAYS" default:"4"`
}

type MetricsConfig struct {
	TextfilePath string `envconfig:"SHOPKEEPER_METRICS_TEXTFILE"`
}
