package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog/log"
)

// Environment represents different deployment environments
type Environment string

const (
	EnvDevelopment Environment = "development"
	EnvTesting     Environment = "testing"
	EnvProduction  Environment = "production"
)

// Config holds the configuration for the lookup bot.
// Environment variables are parsed with the LOOKUP_BOT_ prefix.
type Config struct {
	Environment Environment `envconfig:"ENVIRONMENT" default:"development"`
	LogLevel    string      `envconfig:"LOG_LEVEL" default:"info"`

	// Chat transport
	BotToken    string `envconfig:"BOT_TOKEN" default:""`
	BotUsername string `envconfig:"BOT_USERNAME" default:"YourBot"`
	PollTimeout int    `envconfig:"POLL_TIMEOUT_SECONDS" default:"60"`
	// SendRate caps outbound messages per second.
	SendRate float64 `envconfig:"SEND_RATE" default:"25"`

	// Lookup service
	APIURL        string        `envconfig:"API_URL" default:"https://anishexploits.site/api/api.php"`
	APIKey        string        `envconfig:"API_KEY" default:""`
	LookupTimeout time.Duration `envconfig:"LOOKUP_TIMEOUT" default:"15s"`

	// Storage
	DBDriver    string `envconfig:"DB_DRIVER" default:"sqlite"`
	SQLitePath  string `envconfig:"SQLITE_PATH" default:"data/lookup.db"`
	PostgresDSN string `envconfig:"POSTGRES_DSN" default:""`

	// Dispatch
	Shards         int           `envconfig:"SHARDS" default:"8"`
	QueueSize      int           `envconfig:"QUEUE_SIZE" default:"64"`
	EnqueueTimeout time.Duration `envconfig:"ENQUEUE_TIMEOUT" default:"2s"`
	SessionIdleTTL time.Duration `envconfig:"SESSION_IDLE_TTL" default:"30m"`

	// Ops listener (health + metrics). Empty disables it.
	OpsAddr              string        `envconfig:"OPS_ADDR" default:""`
	HealthInterval       time.Duration `envconfig:"HEALTH_INTERVAL" default:"15s"`
	HealthProbeTimeout   time.Duration `envconfig:"HEALTH_PROBE_TIMEOUT" default:"2s"`
	BootstrapTimeoutSecs int           `envconfig:"BOOTSTRAP_TIMEOUT_SECONDS" default:"10"`
}

// ResolveDefaults validates the driver selection and clamps tuning values.
func (c *Config) ResolveDefaults() error {
	c.DBDriver = strings.ToLower(strings.TrimSpace(c.DBDriver))
	if c.DBDriver == "" || c.DBDriver == "auto" {
		c.DBDriver = "sqlite"
		if c.PostgresDSN != "" {
			c.DBDriver = "postgres"
		}
	}

	switch c.DBDriver {
	case "sqlite":
		if c.SQLitePath == "" {
			return fmt.Errorf("SQLITE_PATH is required for sqlite driver")
		}
	case "postgres":
		if c.PostgresDSN == "" {
			return fmt.Errorf("POSTGRES_DSN is required for postgres driver")
		}
	default:
		return fmt.Errorf("unsupported DB_DRIVER: %s", c.DBDriver)
	}

	if c.Shards <= 0 {
		c.Shards = 8
	}
	if c.QueueSize <= 0 {
		c.QueueSize = 64
	}
	if c.LookupTimeout <= 0 {
		c.LookupTimeout = 15 * time.Second
	}
	if c.SendRate <= 0 {
		c.SendRate = 25
	}
	return nil
}

// New creates a new Config by parsing environment variables. A .env file in
// the working directory is loaded first when present; real environment values win.
// Example: LOOKUP_BOT_BOT_TOKEN, LOOKUP_BOT_API_URL
func New() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("LOOKUP_BOT", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment variables: %w", err)
	}

	if err := cfg.ResolveDefaults(); err != nil {
		return nil, err
	}

	log.Info().
		Str("environment", string(cfg.Environment)).
		Str("db_driver", cfg.DBDriver).
		Str("api_url", cfg.APIURL).
		Bool("api_key_present", cfg.APIKey != "").
		Bool("bot_token_present", cfg.BotToken != "").
		Dur("lookup_timeout", cfg.LookupTimeout).
		Int("shards", cfg.Shards).
		Str("ops_addr", cfg.OpsAddr).
		Msg("Configuration loaded")

	return &cfg, nil
}

// NewForTesting creates a config specifically for testing
func NewForTesting() *Config {
	return &Config{
		Environment:          EnvTesting,
		LogLevel:             "debug",
		BotUsername:          "TestBot",
		PollTimeout:          1,
		SendRate:             1000,
		APIURL:               "http://localhost:0/api.php",
		APIKey:               "test-key",
		LookupTimeout:        2 * time.Second,
		DBDriver:             "sqlite",
		SQLitePath:           "lookup-test.db",
		Shards:               2,
		QueueSize:            8,
		EnqueueTimeout:       100 * time.Millisecond,
		SessionIdleTTL:       time.Minute,
		HealthInterval:       time.Second,
		HealthProbeTimeout:   time.Second,
		BootstrapTimeoutSecs: 2,
	}
}

// IsTesting returns true if the environment is set to testing
func (c *Config) IsTesting() bool {
	return c.Environment == EnvTesting
}

// IsProduction returns true if the environment is set to production
func (c *Config) IsProduction() bool {
	return c.Environment == EnvProduction
}

// ReferralLink builds the deep link that starts the bot with a referral code.
func (c *Config) ReferralLink(code string) string {
	return fmt.Sprintf("https://t.me/%s?start=%s", c.BotUsername, code)
}
