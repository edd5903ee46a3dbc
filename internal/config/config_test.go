package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLoadDefaults(t *testing.T) {
	// Change to temp dir so no config.yaml is found
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, int32(10), cfg.Store.Pool.MaxConns)
	assert.Equal(t, int32(2), cfg.Store.Pool.MinConns)
	assert.Equal(t, 8, cfg.ETL.Concurrency)
	assert.InDelta(t, 0.0, cfg.ETL.PriceMin, 0.001)
	assert.InDelta(t, 1000000.0, cfg.ETL.PriceMax, 0.001)
	assert.InDelta(t, 4.5, cfg.ETL.FeaturedMinRating, 0.001)
	assert.Equal(t, 100, cfg.ETL.FeaturedMinReviews)
	assert.Equal(t, "Uncategorized", cfg.ETL.DefaultCategory)
	assert.Equal(t, "Unknown", cfg.ETL.DefaultCompany)
}

func TestLoadFromYAML(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	yaml := `
store:
  database_url: postgres://localhost/listings
log:
  level: debug
  format: console
etl:
  concurrency: 4
  featured_min_reviews: 50
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres://localhost/listings", cfg.Store.DatabaseURL)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, 4, cfg.ETL.Concurrency)
	assert.Equal(t, 50, cfg.ETL.FeaturedMinReviews)
	// Defaults still apply for unset values
	assert.Equal(t, "Uncategorized", cfg.ETL.DefaultCategory)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	yaml := `
log:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	t.Setenv("LISTINGS_LOG_LEVEL", "warn")
	t.Setenv("LISTINGS_ETL_CONCURRENCY", "16")
	t.Setenv("LISTINGS_STORE_DATABASE_URL", "postgres://db:5432/listings")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, 16, cfg.ETL.Concurrency)
	assert.Equal(t, "postgres://db:5432/listings", cfg.Store.DatabaseURL)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg := &Config{}
		cfg.Store.DatabaseURL = "postgres://localhost/listings"
		cfg.ETL.Concurrency = 8
		cfg.ETL.PriceMax = 1000000
		cfg.ETL.FeaturedMinRating = 4.5
		cfg.ETL.FeaturedMinReviews = 100
		return cfg
	}

	assert.NoError(t, valid().Validate())

	cfg := valid()
	cfg.Store.DatabaseURL = ""
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store.database_url is required")

	cfg = valid()
	cfg.ETL.Concurrency = 0
	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "concurrency must be between 1 and 64")

	cfg = valid()
	cfg.ETL.PriceMax = 0
	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "price_max must be greater")

	cfg = valid()
	cfg.ETL.FeaturedMinRating = 5.5
	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "featured_min_rating")
}

func TestInitLoggerConsole(t *testing.T) {
	err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerJSON(t *testing.T) {
	err := InitLogger(LogConfig{Level: "info", Format: "json"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerInvalidLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "invalid", Format: "json"})
	assert.Error(t, err)
}
