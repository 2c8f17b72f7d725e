package migrate

import (
	"context"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/angelmondragon/shopkeeper/pkg/db"
	"github.com/angelmondragon/shopkeeper/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbeddedMigrationsAreValid(t *testing.T) {
	require.NoError(t, Validate())
}

func TestValidateFSRejectsBadMigrations(t *testing.T) {
	cases := map[string]fstest.MapFS{
		"badName": {
			"migrations/create_things.sql": {Data: []byte("-- +goose Up\n-- +goose Down\n")},
		},
		"missingDown": {
			"migrations/20250101000000_things.sql": {Data: []byte("-- +goose Up\n")},
		},
		"duplicateVersion": {
			"migrations/20250101000000_a.sql": {Data: []byte("-- +goose Up\n-- +goose Down\n")},
			"migrations/20250101000000_b.sql": {Data: []byte("-- +goose Up\n-- +goose Down\n")},
		},
		"empty": {
			"migrations/README.md": {Data: []byte("docs")},
		},
	}
	for name, fsys := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Error(t, ValidateFS(fsys, "migrations"))
		})
	}
}

func TestMaybeRunAppliesSchema(t *testing.T) {
	ctx := context.Background()
	client, err := db.Open(ctx, filepath.Join(t.TempDir(), "shop.db"), logger.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	require.NoError(t, MaybeRun(ctx, true, logger.Nop(), client))
	// Re-running is a no-op.
	require.NoError(t, MaybeRun(ctx, true, logger.Nop(), client))

	for _, table := range []string{"products", "sales", "sale_items"} {
		assert.True(t, client.DB().Migrator().HasTable(table), "missing table %s", table)
	}

	sqlDB, err := client.DB().DB()
	require.NoError(t, err)
	version, err := Version(sqlDB)
	require.NoError(t, err)
	assert.Equal(t, int64(20250601090100), version)

	require.NoError(t, MigrateToVersion(ctx, sqlDB, "20250601090000"))
	assert.False(t, client.DB().Migrator().HasTable("sales"))
	assert.True(t, client.DB().Migrator().HasTable("products"))
}

func TestMaybeRunDisabled(t *testing.T) {
	require.NoError(t, MaybeRun(context.Background(), false, logger.Nop(), nil))
}

func TestMigrateToVersionRejectsBadInput(t *testing.T) {
	assert.Error(t, MigrateToVersion(context.Background(), nil, ""))
	assert.Error(t, MigrateToVersion(context.Background(), nil, "latest"))
}
