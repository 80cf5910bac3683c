package database

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wonny/astrostocks/pkg/config"
)

func liveDB(t *testing.T) *DB {
	t.Helper()
	if testing.Short() || os.Getenv("DATABASE_URL") == "" {
		t.Skip("DATABASE_URL not set, skipping integration test")
	}

	cfg, err := config.Load()
	require.NoError(t, err)

	db, err := New(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(db.Close)
	return db
}

func TestNewWithInvalidURL(t *testing.T) {
	cfg := &config.Config{
		Database: config.DatabaseConfig{
			URL:             "invalid://url",
			MaxConns:        25,
			MinConns:        5,
			MaxConnLifetime: time.Hour,
			MaxConnIdleTime: 30 * time.Minute,
		},
	}

	_, err := New(context.Background(), cfg)
	assert.Error(t, err)
}

func TestMigrationsAreOrderedAndEmbedded(t *testing.T) {
	migrations, err := Migrations()
	require.NoError(t, err)
	require.Len(t, migrations, 4)

	for i := 1; i < len(migrations); i++ {
		assert.Less(t, migrations[i-1].Version, migrations[i].Version)
	}

	var all strings.Builder
	for _, m := range migrations {
		assert.NotEmpty(t, strings.TrimSpace(m.SQL), m.Version)
		all.WriteString(m.SQL)
	}

	for _, table := range []string{
		"transits", "sector_predictions", "sector_archive",
		"analyze_cache", "prediction_cache", "market_data_cache",
	} {
		assert.Contains(t, all.String(), "CREATE TABLE IF NOT EXISTS "+table+" ", table)
	}
	assert.Contains(t, all.String(), "UNIQUE (analysis_date, endpoint_type)")
	assert.Contains(t, all.String(), "UNIQUE (date, planet)")
}

func TestHealthCheck(t *testing.T) {
	db := liveDB(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	status := db.HealthCheck(ctx)
	assert.True(t, status.Healthy)
	assert.NotZero(t, status.Stats.MaxConns)
}

func TestMigrateIsIdempotent(t *testing.T) {
	db := liveDB(t)
	ctx := context.Background()

	_, err := db.Migrate(ctx)
	require.NoError(t, err)

	applied, err := db.Migrate(ctx)
	require.NoError(t, err)
	assert.Empty(t, applied)
}

func TestCloseTwice(t *testing.T) {
	db := liveDB(t)
	assert.NotPanics(t, func() {
		db.Close()
		db.Close()
	})
}
