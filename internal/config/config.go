package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string

	OTLPEndpoint string

	HTTPAddr string

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	EventChannel  string

	DBType            string
	DBHost            string
	DBPort            string
	DBName            string
	DBUser            string
	DBPassword        string
	DBSSLMode         string
	DBMaxIdleConn     int
	DBMaxOpenConn     int
	DBConnMaxLifetime int
	DBConnMaxIdleTime int

	Pricing   PricingConfig
	RateLimit RateLimitConfig
}

// RateLimitConfig throttles delivery fact ingestion. Disabled by
// default; when enabled the limiter shares the redis connection
// settings above.
type RateLimitConfig struct {
	Enabled        bool
	IngestRate     float64
	IngestBurst    int
	RouteRate      float64
	RouteBurst     int
	LockTTLSeconds int
}

// PricingConfig carries the regulated engine tunables. Values are
// decimal strings in the environment so currency precision survives.
type PricingConfig struct {
	// Sanity bounds for a computed ex-pump price, GHS per litre.
	PriceFloor   decimal.Decimal
	PriceCeiling decimal.Decimal

	// Fallback tariff when no UPPF rate component is active,
	// GHS per litre per km.
	DefaultTariff decimal.Decimal

	// Base reconciliation tolerance as a fraction (0.01 = 1%).
	BaseTolerance decimal.Decimal

	// Maximum claimable fraction of the value moved.
	MaxClaimFraction decimal.Decimal

	// Days after window close before late-submission penalties accrue.
	SubmissionDeadlineDays int
}

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	cfg := Config{
		AppName:     getenv("APP_SERVICE", "pumpline"),
		AppVersion:  getenv("APP_VERSION", "0.1.0"),
		Environment: getenv("ENVIRONMENT", "development"),

		OTLPEndpoint: getenv("OTLP_ENDPOINT", "localhost:4317"),

		HTTPAddr: getenv("HTTP_ADDR", ":8080"),

		RedisAddr:     getenv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getenv("REDIS_PASSWORD", ""),
		RedisDB:       getenvInt("REDIS_DB", 0),
		EventChannel:  getenv("EVENT_CHANNEL", "pumpline.events"),

		DBType:            getenv("DATABASE_TYPE", "postgres"),
		DBHost:            getenv("DATABASE_HOST", "localhost"),
		DBPort:            getenv("DATABASE_PORT", "5432"),
		DBName:            getenv("DATABASE_NAME", "pumpline"),
		DBUser:            getenv("DATABASE_USER", "postgres"),
		DBPassword:        getenv("DATABASE_PASSWORD", "postgres"),
		DBSSLMode:         getenv("DATABASE_SSLMODE", "disable"),
		DBMaxIdleConn:     getenvInt("DATABASE_MAX_IDLE_CONN", 5),
		DBMaxOpenConn:     getenvInt("DATABASE_MAX_OPEN_CONN", 25),
		DBConnMaxLifetime: getenvInt("DATABASE_CONN_MAX_LIFETIME", 3600),
		DBConnMaxIdleTime: getenvInt("DATABASE_CONN_MAX_IDLE_TIME", 600),

		Pricing: PricingConfig{
			PriceFloor:             getenvDecimal("PRICING_FLOOR", "1.00"),
			PriceCeiling:           getenvDecimal("PRICING_CEILING", "100.00"),
			DefaultTariff:          getenvDecimal("PRICING_DEFAULT_TARIFF", "0.0012"),
			BaseTolerance:          getenvDecimal("PRICING_BASE_TOLERANCE", "0.01"),
			MaxClaimFraction:       getenvDecimal("PRICING_MAX_CLAIM_FRACTION", "0.35"),
			SubmissionDeadlineDays: getenvInt("PRICING_SUBMISSION_DEADLINE_DAYS", 14),
		},

		RateLimit: RateLimitConfig{
			Enabled:        getenvBool("RATE_LIMIT_ENABLED", false),
			IngestRate:     getenvFloat("RATE_LIMIT_INGEST_RATE", 50),
			IngestBurst:    getenvInt("RATE_LIMIT_INGEST_BURST", 100),
			RouteRate:      getenvFloat("RATE_LIMIT_ROUTE_RATE", 5),
			RouteBurst:     getenvInt("RATE_LIMIT_ROUTE_BURST", 10),
			LockTTLSeconds: getenvInt("RATE_LIMIT_LOCK_TTL_SECONDS", 15),
		},
	}

	return cfg
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return parsed
}

func getenvBool(key string, def bool) bool {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return def
	}
	return parsed
}

func getenvFloat(key string, def float64) float64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return def
	}
	return parsed
}

func getenvDecimal(key, def string) decimal.Decimal {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		value = def
	}
	parsed, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.RequireFromString(def)
	}
	return parsed
}
