package database_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pageza/nutrilog/backend/config"
	"github.com/pageza/nutrilog/backend/internal/database"
	"github.com/pageza/nutrilog/backend/internal/logger"
	"github.com/pageza/nutrilog/backend/internal/testhelpers"
)

const migrationsDir = "../../migrations"

func TestNewSQLiteAndAutoMigrate(t *testing.T) {
	cfg := config.Defaults()
	cfg.DBDriver = "sqlite"
	cfg.SQLitePath = filepath.Join(t.TempDir(), "nutrilog.db")

	db, err := database.New(cfg, logger.NewNop())
	require.NoError(t, err)
	require.NoError(t, database.RunMigrations(db, migrationsDir, logger.NewNop()))

	for _, table := range []string{"food_log_entries", "daily_nutrition_summaries", "aggregated_submissions"} {
		assert.True(t, db.Migrator().HasTable(table), table)
	}
	assert.NoError(t, database.HealthCheck(context.Background(), db))
}

func TestNewUnsupportedDriver(t *testing.T) {
	cfg := config.Defaults()
	cfg.DBDriver = "mysql"

	_, err := database.New(cfg, logger.NewNop())
	assert.ErrorContains(t, err, `unsupported database driver "mysql"`)
}

func TestUpMigrations(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"0002_b.up.sql", "0001_a.up.sql", "0001_a.down.sql", "README.md"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("SELECT 1;"), 0o600))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "0003_dir.up.sql"), 0o700))

	names, err := database.UpMigrations(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"0001_a.up.sql", "0002_b.up.sql"}, names)

	_, err = database.UpMigrations(filepath.Join(dir, "missing"))
	assert.Error(t, err)
}

func TestShippedMigrationsPresent(t *testing.T) {
	names, err := database.UpMigrations(migrationsDir)
	require.NoError(t, err)
	assert.Contains(t, names, "0001_food_logs.up.sql")
	_, err = os.Stat(filepath.Join(migrationsDir, "0001_food_logs.down.sql"))
	assert.NoError(t, err)
}

func TestRunMigrationsPostgres(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping postgres container test in short mode")
	}
	db := testhelpers.SetupPostgresDB(t)

	require.NoError(t, database.RunMigrations(db, migrationsDir, logger.NewNop()))
	// a second run skips files already recorded
	require.NoError(t, database.RunMigrations(db, migrationsDir, logger.NewNop()))

	var applied int64
	require.NoError(t, db.Table("migrations").Where("name = ?", "0001_food_logs.up.sql").Count(&applied).Error)
	assert.Equal(t, int64(1), applied)
	assert.True(t, db.Migrator().HasTable("aggregated_submissions"))
}
