package config

import (
	"fmt"
	"time"

	pkgconfig "github.com/utafrali/mongomart/pkg/config"
	"github.com/utafrali/mongomart/pkg/database"
	"github.com/utafrali/mongomart/pkg/tracing"
)

// Store backends selectable with CATALOG_STORE.
const (
	StoreMongoDB = "mongodb"
	StoreMemory  = "memory"
)

// Config holds all configuration for the catalog service.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// HTTP server
	HTTPPort           int      `env:"CATALOG_HTTP_PORT" envDefault:"8080"`
	CORSAllowedOrigins []string `env:"CATALOG_CORS_ORIGINS" envDefault:"*" envSeparator:","`

	// Catalog
	Store        string `env:"CATALOG_STORE" envDefault:"mongodb"`
	ItemsPerPage int    `env:"CATALOG_ITEMS_PER_PAGE" envDefault:"5"`
	SeedFile     string `env:"CATALOG_SEED_FILE"`

	// MongoDB
	MongoURI                   string `env:"MONGODB_URI" envDefault:"mongodb://localhost:27017"`
	MongoDatabase              string `env:"MONGODB_DATABASE" envDefault:"mongomart"`
	MongoConnectTimeoutSeconds int    `env:"MONGODB_CONNECT_TIMEOUT_SECONDS" envDefault:"10"`
	MongoMaxPoolSize           uint64 `env:"MONGODB_MAX_POOL_SIZE" envDefault:"100"`

	// Review write throttling, per client address
	ReviewRateLimitRPS   float64 `env:"REVIEW_RATE_LIMIT_RPS" envDefault:"2"`
	ReviewRateLimitBurst int     `env:"REVIEW_RATE_LIMIT_BURST" envDefault:"5"`
	// Key clients by X-Forwarded-For/X-Real-IP. Only safe behind a proxy that sets them.
	ReviewRateLimitTrustProxy bool `env:"REVIEW_RATE_LIMIT_TRUST_PROXY" envDefault:"false"`

	// Kafka
	KafkaEnabled bool     `env:"KAFKA_ENABLED" envDefault:"false"`
	KafkaBrokers []string `env:"KAFKA_BROKERS" envDefault:"localhost:9092" envSeparator:","`

	// OpenTelemetry
	OTELEnabled    bool    `env:"OTEL_ENABLED" envDefault:"false"`
	OTELEndpoint   string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:"localhost:4318"`
	OTELSampleRate float64 `env:"OTEL_SAMPLE_RATE" envDefault:"1.0"`

	// Slow query logging
	SlowQueryThresholdMs int `env:"LOG_SLOW_QUERY_MS" envDefault:"500"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.Load(cfg); err != nil {
		return nil, fmt.Errorf("load catalog config: %w", err)
	}
	return cfg, nil
}

// Validate checks configuration invariants. pkgconfig.Load calls it.
func (c *Config) Validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTPPort)
	}
	switch c.Store {
	case StoreMongoDB:
		if c.MongoURI == "" {
			return fmt.Errorf("MONGODB_URI is required when CATALOG_STORE=mongodb")
		}
		if c.MongoDatabase == "" {
			return fmt.Errorf("MONGODB_DATABASE is required when CATALOG_STORE=mongodb")
		}
	case StoreMemory:
	default:
		return fmt.Errorf("CATALOG_STORE must be %q or %q, got %q", StoreMongoDB, StoreMemory, c.Store)
	}
	if c.ItemsPerPage < 1 {
		return fmt.Errorf("CATALOG_ITEMS_PER_PAGE must be positive, got %d", c.ItemsPerPage)
	}
	if c.MongoConnectTimeoutSeconds < 1 {
		return fmt.Errorf("MONGODB_CONNECT_TIMEOUT_SECONDS must be positive, got %d", c.MongoConnectTimeoutSeconds)
	}
	if c.ReviewRateLimitRPS <= 0 || c.ReviewRateLimitBurst < 1 {
		return fmt.Errorf("review rate limit must be positive, got %.2f rps burst %d", c.ReviewRateLimitRPS, c.ReviewRateLimitBurst)
	}
	if c.KafkaEnabled && len(c.KafkaBrokers) == 0 {
		return fmt.Errorf("KAFKA_BROKERS is required when KAFKA_ENABLED=true")
	}
	if c.OTELSampleRate < 0 || c.OTELSampleRate > 1.0 {
		return fmt.Errorf("OTEL_SAMPLE_RATE must be between 0.0 and 1.0, got %f", c.OTELSampleRate)
	}
	return nil
}

// MongoConfig returns the driver settings for the catalog database.
func (c *Config) MongoConfig(appName string) database.MongoConfig {
	return database.MongoConfig{
		URI:            c.MongoURI,
		Database:       c.MongoDatabase,
		AppName:        appName,
		ConnectTimeout: time.Duration(c.MongoConnectTimeoutSeconds) * time.Second,
		MaxPoolSize:    c.MongoMaxPoolSize,
	}
}

// TracingConfig returns the OpenTelemetry settings for serviceName.
func (c *Config) TracingConfig(serviceName, version string) tracing.Config {
	return tracing.Config{
		ServiceName:    serviceName,
		ServiceVersion: version,
		Environment:    c.Environment,
		OTLPEndpoint:   c.OTELEndpoint,
		SampleRate:     c.OTELSampleRate,
		Enabled:        c.OTELEnabled,
	}
}

// SlowQueryThreshold is LOG_SLOW_QUERY_MS as a duration. Zero disables it.
func (c *Config) SlowQueryThreshold() time.Duration {
	return time.Duration(c.SlowQueryThresholdMs) * time.Millisecond
}
