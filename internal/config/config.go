// Package config loads application configuration and initializes logging.
package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sells-group/listings-etl/internal/db"
)

// Config holds the full application configuration.
type Config struct {
	Store StoreConfig `yaml:"store" mapstructure:"store"`
	ETL   ETLConfig   `yaml:"etl" mapstructure:"etl"`
	Log   LogConfig   `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the Postgres backend.
type StoreConfig struct {
	DatabaseURL string        `yaml:"database_url" mapstructure:"database_url"`
	Pool        db.PoolConfig `yaml:"pool" mapstructure:"pool"`
}

// ETLConfig configures transform and load behavior.
type ETLConfig struct {
	Concurrency        int     `yaml:"concurrency" mapstructure:"concurrency"`
	PriceMin           float64 `yaml:"price_min" mapstructure:"price_min"`
	PriceMax           float64 `yaml:"price_max" mapstructure:"price_max"`
	FeaturedMinRating  float64 `yaml:"featured_min_rating" mapstructure:"featured_min_rating"`
	FeaturedMinReviews int     `yaml:"featured_min_reviews" mapstructure:"featured_min_reviews"`
	DefaultCategory    string  `yaml:"default_category" mapstructure:"default_category"`
	DefaultCompany     string  `yaml:"default_company" mapstructure:"default_company"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("LISTINGS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults. database_url gets an empty default so the env var is
	// visible to Unmarshal even without a config file.
	v.SetDefault("store.database_url", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("store.pool.max_conns", 10)
	v.SetDefault("store.pool.min_conns", 2)
	v.SetDefault("etl.concurrency", 8)
	v.SetDefault("etl.price_min", 0.0)
	v.SetDefault("etl.price_max", 1000000.0)
	v.SetDefault("etl.featured_min_rating", 4.5)
	v.SetDefault("etl.featured_min_reviews", 100)
	v.SetDefault("etl.default_category", "Uncategorized")
	v.SetDefault("etl.default_company", "Unknown")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the settings every command depends on.
func (c *Config) Validate() error {
	var problems []string

	if c.Store.DatabaseURL == "" {
		problems = append(problems, "store.database_url is required (LISTINGS_STORE_DATABASE_URL)")
	}
	if c.ETL.Concurrency < 1 || c.ETL.Concurrency > 64 {
		problems = append(problems, "etl.concurrency must be between 1 and 64")
	}
	if c.ETL.PriceMin < 0 || c.ETL.PriceMax <= c.ETL.PriceMin {
		problems = append(problems, "etl.price_max must be greater than etl.price_min (>= 0)")
	}
	if c.ETL.FeaturedMinRating < 0 || c.ETL.FeaturedMinRating > 5 {
		problems = append(problems, "etl.featured_min_rating must be within [0, 5]")
	}
	if c.ETL.FeaturedMinReviews < 0 {
		problems = append(problems, "etl.featured_min_reviews must be >= 0")
	}

	if len(problems) > 0 {
		return eris.New("config: " + strings.Join(problems, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
