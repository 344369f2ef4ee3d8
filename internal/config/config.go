package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"farmlink-be/internal/utils"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

const (
	defaultCommissionRate     = "0.10"
	defaultDeliveryCodeLength = 4
	defaultOrderCacheTTL      = 30 * time.Second
	defaultCORSOrigin         = "http://localhost:5173"

	// Matches the precision of payouts.commission_rate.
	maxCommissionPlaces = 4
)

type Config struct {
	DBHost     string
	DBUser     string
	DBPassword string
	DBName     string
	DBPort     string
	AppPort    string
	AppEnv     string
	JWTSecret  string
	CORSOrigin string

	RedisAddr     string
	RedisPassword string
	OrderCacheTTL time.Duration

	// Fallback when platform_settings has no commission row.
	CommissionRate     decimal.Decimal
	DeliveryCodeLength int
}

func LoadConfig() *Config {
	_ = godotenv.Load()

	cfg := &Config{
		DBHost:             os.Getenv("DB_HOST"),
		DBUser:             os.Getenv("DB_USER"),
		DBPassword:         os.Getenv("DB_PASSWORD"),
		DBName:             os.Getenv("DB_NAME"),
		DBPort:             os.Getenv("DB_PORT"),
		AppPort:            os.Getenv("APP_PORT"),
		AppEnv:             os.Getenv("APP_ENV"),
		JWTSecret:          os.Getenv("JWT_SECRET"),
		CORSOrigin:         getEnv("CORS_ORIGIN", defaultCORSOrigin),
		RedisAddr:          os.Getenv("REDIS_ADDR"),
		RedisPassword:      os.Getenv("REDIS_PASSWORD"),
		OrderCacheTTL:      getDuration("ORDER_CACHE_TTL", defaultOrderCacheTTL),
		CommissionRate:     getDecimal("PLATFORM_COMMISSION_RATE", defaultCommissionRate),
		DeliveryCodeLength: getBoundedInt("DELIVERY_CODE_LENGTH", defaultDeliveryCodeLength, utils.MaxCodeDigits),
	}

	if cfg.DBHost == "" {
		log.Fatal("Environment variables not loaded properly")
	}

	if cfg.AppPort == "" {
		cfg.AppPort = "8080"
	}

	return cfg
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getBoundedInt(key string, fallback, max int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil || v <= 0 || v > max {
		return fallback
	}
	return v
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v, err := time.ParseDuration(os.Getenv(key))
	if err != nil || v <= 0 {
		return fallback
	}
	return v
}

func getDecimal(key, fallback string) decimal.Decimal {
	v, err := decimal.NewFromString(getEnv(key, fallback))
	if err != nil || v.IsNegative() || v.GreaterThanOrEqual(decimal.NewFromInt(1)) || !v.Equal(v.Truncate(maxCommissionPlaces)) {
		return decimal.RequireFromString(fallback)
	}
	return v
}
