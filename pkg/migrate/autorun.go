package migrate

import (
	"context"
	"fmt"
	"os"

	"github.com/angelmondragon/shopkeeper/pkg/db"
	"github.com/angelmondragon/shopkeeper/pkg/logger"
	"github.com/pressly/goose/v3"
)

// MaybeRun applies pending migrations when auto-migrate is enabled.
func MaybeRun(ctx context.Context, enabled bool, logg *logger.Logger, client *db.Client) error {
	if !enabled {
		return nil
	}

	sqlDB, err := client.DB().DB()
	if err != nil {
		return fmt.Errorf("extracting sql.DB: %w", err)
	}

	ctx = logg.WithField(ctx, "dir", DefaultDir)
	goose.SetLogger(gooseLogger{ctx: ctx, logg: logg})
	logg.Debug(ctx, "running goose migrations")

	if err := Run(ctx, sqlDB, "up"); err != nil {
		return fmt.Errorf("running goose up: %w", err)
	}

	logg.Debug(ctx, "goose migrations completed")
	return nil
}

// gooseLogger routes goose output through the structured logger.
type gooseLogger struct {
	ctx  context.Context
	logg *logger.Logger
}

func (g gooseLogger) Printf(format string, v ...any) {
	g.logg.Debug(g.ctx, fmt.Sprintf(format, v...))
}

func (g gooseLogger) Fatalf(format string, v ...any) {
	g.logg.Error(g.ctx, "goose fatal", fmt.Errorf(format, v...))
	os.Exit(1)
}
