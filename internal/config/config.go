package config

import (
	"fmt"

	"github.com/shopspring/decimal"

	pkgconfig "github.com/curatedcode/toshi-sub000/pkg/config"
	"github.com/curatedcode/toshi-sub000/pkg/database"
)

// Config holds all configuration for the storefront.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// HTTP server
	HTTPPort int `env:"HTTP_PORT" envDefault:"8080"`

	// Postgres
	PostgresHost     string `env:"POSTGRES_HOST" envDefault:"localhost"`
	PostgresPort     int    `env:"POSTGRES_PORT" envDefault:"5432"`
	PostgresUser     string `env:"POSTGRES_USER" envDefault:"toshi"`
	PostgresPassword string `env:"POSTGRES_PASSWORD" envDefault:"toshi"`
	PostgresDB       string `env:"POSTGRES_DB" envDefault:"toshi"`
	PostgresSSLMode  string `env:"POSTGRES_SSLMODE" envDefault:"disable"`

	// Redis
	RedisHost string `env:"REDIS_HOST" envDefault:"localhost"`
	RedisPort int    `env:"REDIS_PORT" envDefault:"6379"`
	RedisPass string `env:"REDIS_PASSWORD" envDefault:""`
	RedisDB   int    `env:"REDIS_DB" envDefault:"0"`

	// Cart TTL in hours (default: 7 days)
	CartTTL int `env:"CART_TTL_HOURS" envDefault:"168"`

	// Kafka
	KafkaBrokers []string `env:"KAFKA_BROKERS" envDefault:"localhost:9092" envSeparator:","`

	// Auth
	JWTSecret          string `env:"JWT_SECRET" envDefault:"dev-secret-change-me"`
	AccessTokenExpiry  int    `env:"ACCESS_TOKEN_EXPIRY_MINUTES" envDefault:"15"`
	RefreshTokenExpiry int    `env:"REFRESH_TOKEN_EXPIRY_HOURS" envDefault:"720"`

	// Sales tax rate applied at checkout, as a decimal fraction.
	TaxRate string `env:"TAX_RATE" envDefault:"0.07"`

	// CORS
	AllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envDefault:"*" envSeparator:","`

	// Tracing
	TracingEnabled    bool    `env:"TRACING_ENABLED" envDefault:"false"`
	TracingEndpoint   string  `env:"TRACING_ENDPOINT" envDefault:"localhost:4318"`
	TracingSampleRate float64 `env:"TRACING_SAMPLE_RATE" envDefault:"1.0"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.Load(cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// validate checks configuration invariants.
func (c *Config) validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTPPort)
	}
	if c.Environment != "development" {
		if c.JWTSecret == "dev-secret-change-me" {
			return fmt.Errorf("JWT_SECRET must be explicitly set in %s", c.Environment)
		}
		if len(c.JWTSecret) < 32 {
			return fmt.Errorf("JWT_SECRET must be at least 32 characters in %s", c.Environment)
		}
	}
	rate, err := decimal.NewFromString(c.TaxRate)
	if err != nil {
		return fmt.Errorf("invalid tax rate %q: %w", c.TaxRate, err)
	}
	if rate.IsNegative() || rate.GreaterThan(decimal.NewFromInt(1)) {
		return fmt.Errorf("tax rate must be between 0 and 1, got %s", c.TaxRate)
	}
	return nil
}

// TaxRateDecimal returns the configured tax rate as a decimal. Load validates
// the rate, so this never fails after a successful Load.
func (c *Config) TaxRateDecimal() decimal.Decimal {
	rate, _ := decimal.NewFromString(c.TaxRate)
	return rate
}

// PostgresConfig returns the pool configuration for the configured database.
func (c *Config) PostgresConfig() *database.PostgresConfig {
	pg := database.DefaultPostgresConfig()
	pg.Host = c.PostgresHost
	pg.Port = c.PostgresPort
	pg.User = c.PostgresUser
	pg.Password = c.PostgresPassword
	pg.DBName = c.PostgresDB
	pg.SSLMode = c.PostgresSSLMode
	return &pg
}

// RedisConfig returns the client configuration for the configured Redis.
func (c *Config) RedisConfig() database.RedisConfig {
	return database.RedisConfig{
		Host:     c.RedisHost,
		Port:     c.RedisPort,
		Password: c.RedisPass,
		DB:       c.RedisDB,
	}
}
