package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration
type Config struct {
	// Fortnite API
	FortniteAPIToken string        `envconfig:"FORTNITE_API_TOKEN" required:"true"`
	LookupURL        string        `envconfig:"FORTNITE_API_USER_URL" default:"https://fortniteapi.io/v1/lookup"`
	StatsURL         string        `envconfig:"FORTNITE_API_STATS_URL" default:"https://fortniteapi.io/v1/stats"`
	SeasonsURL       string        `envconfig:"SEASONS_API_URL" default:"https://fortniteapi.io/v1/seasons/list"`
	APITimeout       time.Duration `envconfig:"FORTNITE_API_TIMEOUT" default:"10s"`
	APIMaxRetries    int           `envconfig:"FORTNITE_API_MAX_RETRIES" default:"3"`
	APIRetryDelay    time.Duration `envconfig:"FORTNITE_API_RETRY_DELAY" default:"1s"`
	APIRetryDelayCap time.Duration `envconfig:"FORTNITE_API_RETRY_DELAY_CAP" default:"30s"`

	// InfluxDB
	InfluxURL          string `envconfig:"INFLUXDB_URL" required:"true"`
	InfluxToken        string `envconfig:"INFLUXDB_TOKEN" required:"true"`
	InfluxOrg          string `envconfig:"INFLUXDB_ORG" required:"true"`
	InfluxBucket       string `envconfig:"INFLUXDB_BUCKET" required:"true"`
	InfluxBatchSize    int    `envconfig:"INFLUXDB_BATCH_SIZE" default:"500"`
	InfluxWriteRetries int    `envconfig:"INFLUXDB_WRITE_RETRIES" default:"3"`

	// Player list
	PlayerFile string `envconfig:"PLAYER_FILE" required:"true"`

	// Collection
	Workers      int    `envconfig:"COLLECT_WORKERS" default:"2"`
	CronSchedule string `envconfig:"COLLECT_CRON" default:""`

	// Monitoring
	PushgatewayURL string `envconfig:"PUSHGATEWAY_URL" default:""`
	MetricsPort    int    `envconfig:"METRICS_PORT" default:"9090"`

	// Application
	AppEnv   string `envconfig:"APP_ENV" default:"production"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
}

// Load loads configuration from environment variables
// It first attempts to load from .env file if present
func Load() (*Config, error) {
	// Try to load .env file (ignore error if doesn't exist)
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment config: %w", err)
	}

	// Validate
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.FortniteAPIToken == "" {
		return fmt.Errorf("FORTNITE_API_TOKEN is required")
	}

	if c.InfluxURL == "" || c.InfluxToken == "" || c.InfluxOrg == "" || c.InfluxBucket == "" {
		return fmt.Errorf("INFLUXDB_URL, INFLUXDB_TOKEN, INFLUXDB_ORG and INFLUXDB_BUCKET are required")
	}

	if c.PlayerFile == "" {
		return fmt.Errorf("PLAYER_FILE is required")
	}

	if c.InfluxBatchSize < 1 {
		return fmt.Errorf("INFLUXDB_BATCH_SIZE must be at least 1")
	}

	if c.APIMaxRetries < 0 || c.InfluxWriteRetries < 0 {
		return fmt.Errorf("retry counts must not be negative")
	}

	return nil
}

// WorkerCount returns the configured worker count clamped to the range the
// upstream API tolerates
func (c *Config) WorkerCount() int {
	if c.Workers < 1 {
		return 1
	}
	if c.Workers > 4 {
		return 4
	}
	return c.Workers
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// MustLoad loads configuration or exits on error
// Use this in main() where we want to fail fast
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	return cfg
}
