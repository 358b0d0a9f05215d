package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

type Config struct {
	// Server Settings
	AppPort string
	HOST    string

	// Database Settings
	DatabaseDriver string // postgres, sqlite
	DatabaseURL    string

	// JWT Settings
	JWTSecret     string
	JWTExpiration time.Duration

	// Storage Settings
	StorageDriver  string // local, gridfs
	UploadDir      string
	MaxUploadBytes int
	MongoURI       string
	MongoDatabase  string

	// Logging
	LogLevel  string
	LogFormat string

	// Per-line delivery fees by delivery method
	DeliveryFeeCampus  decimal.Decimal
	DeliveryFeeCourier decimal.Decimal

	// CORS Settings
	CORSAllowOrigins []string
	CORSAllowMethods []string
	CORSAllowHeaders []string
}

// LoadConfig reads .env (if present) and the process environment.
func LoadConfig() *Config {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	return &Config{
		AppPort:        getEnv("PORT", "8080"),
		HOST:           getEnv("HOST", "0.0.0.0"),
		DatabaseDriver: getEnv("DATABASE_DRIVER", "postgres"),
		DatabaseURL:    os.Getenv("DATABASE_URL"),

		JWTSecret:     os.Getenv("JWT_SECRET"),
		JWTExpiration: getDuration("JWT_EXPIRES_IN", 72*time.Hour),

		StorageDriver:  getEnv("STORAGE_DRIVER", "local"),
		UploadDir:      getEnv("UPLOAD_DIR", "./uploads"),
		MaxUploadBytes: 5 << 20,
		MongoURI:       os.Getenv("MONGO_URI"),
		MongoDatabase:  getEnv("MONGO_DB", "campus_market"),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),

		DeliveryFeeCampus:  getDecimal("DELIVERY_FEE_CAMPUS", decimal.NewFromInt(15)),
		DeliveryFeeCourier: getDecimal("DELIVERY_FEE_COURIER", decimal.NewFromInt(50)),

		CORSAllowOrigins: getList("CORS_ALLOW_ORIGINS", []string{"*"}),
		CORSAllowMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		CORSAllowHeaders: []string{"Origin", "Content-Type", "Accept", "Authorization", "Idempotency-Key"},
	}
}

// Validate reports settings the server cannot start without.
func (c *Config) Validate() error {
	var errs []error
	if c.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	if c.DatabaseURL == "" {
		errs = append(errs, errors.New("DATABASE_URL is required"))
	}
	switch c.DatabaseDriver {
	case "postgres", "sqlite":
	default:
		errs = append(errs, fmt.Errorf("unsupported DATABASE_DRIVER %q", c.DatabaseDriver))
	}
	switch c.StorageDriver {
	case "local":
	case "gridfs":
		if c.MongoURI == "" {
			errs = append(errs, errors.New("MONGO_URI is required when STORAGE_DRIVER=gridfs"))
		}
	default:
		errs = append(errs, fmt.Errorf("unsupported STORAGE_DRIVER %q", c.StorageDriver))
	}
	return errors.Join(errs...)
}

// Addr is the listen address.
func (c *Config) Addr() string {
	return c.HOST + ":" + c.AppPort
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return d
}

func getDecimal(key string, fallback decimal.Decimal) decimal.Decimal {
	d, err := decimal.NewFromString(os.Getenv(key))
	if err != nil || d.IsNegative() {
		return fallback
	}
	return d
}

func getList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
