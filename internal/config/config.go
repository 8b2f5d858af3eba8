// Package config loads service configuration from the environment.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/fx"
)

var Module = fx.Module("config",
	fx.Provide(Load),
)

// Config holds all runtime settings for the service.
type Config struct {
	Addr        string
	Environment string

	Database  Database
	Bootstrap Bootstrap
	Scoring   Scoring
	Tracing   Tracing
}

// Database configures the gorm connection.
type Database struct {
	Driver       string
	DSN          string
	MaxOpenConns int
	MaxIdleConns int
}

// Bootstrap controls optional startup behavior.
type Bootstrap struct {
	// SeedSampleData populates demo customers when the store is empty.
	SeedSampleData bool
}

// Scoring configures the prediction pipeline.
type Scoring struct {
	// HistoryRetention caps prediction history rows kept per customer.
	// Zero keeps the full history.
	HistoryRetention int
	// RecomputeInterval enables the background recompute worker when > 0.
	RecomputeInterval time.Duration
	// RecomputeConcurrency bounds the bulk recompute fan-out.
	RecomputeConcurrency int
}

// Tracing configures the OTLP exporter.
type Tracing struct {
	Enabled          bool
	ExporterEndpoint string
	ExporterProtocol string
	SamplingRatio    float64
}

// Load reads configuration from environment variables with defaults
// suitable for local development.
func Load() Config {
	// Load .env if present; already-set variables win.
	_ = godotenv.Load()

	return Config{
		Addr:        envString("CHURNGUARD_ADDR", ":8080"),
		Environment: envString("CHURNGUARD_ENV", "development"),
		Database: Database{
			Driver:       envString("CHURNGUARD_DB_DRIVER", "sqlite"),
			DSN:          envString("CHURNGUARD_DB_DSN", "churnguard.db"),
			MaxOpenConns: envInt("CHURNGUARD_DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns: envInt("CHURNGUARD_DB_MAX_IDLE_CONNS", 5),
		},
		Bootstrap: Bootstrap{
			SeedSampleData: envBool("CHURNGUARD_SEED_SAMPLE_DATA", false),
		},
		Scoring: Scoring{
			HistoryRetention:     envInt("CHURNGUARD_HISTORY_RETENTION", 0),
			RecomputeInterval:    envDuration("CHURNGUARD_RECOMPUTE_INTERVAL", 0),
			RecomputeConcurrency: envInt("CHURNGUARD_RECOMPUTE_CONCURRENCY", 8),
		},
		Tracing: Tracing{
			Enabled:          envBool("CHURNGUARD_TRACING_ENABLED", false),
			ExporterEndpoint: envString("CHURNGUARD_OTLP_ENDPOINT", ""),
			ExporterProtocol: envString("CHURNGUARD_OTLP_PROTOCOL", "grpc"),
			SamplingRatio:    envFloat("CHURNGUARD_TRACE_SAMPLING_RATIO", 0.1),
		},
	}
}

// IsProduction reports whether the service runs in production mode.
func (c Config) IsProduction() bool {
	return strings.EqualFold(c.Environment, "production")
}

func envString(key, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return fallback
}
