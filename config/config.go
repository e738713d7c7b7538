// Package config loads application configuration from environment
// variables, with an optional .env file for local development.
package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// Config holds all application configuration
type Config struct {
	// Market data
	Symbol         string `env:"SYMBOL" envDefault:"BTCUSDT"`
	BitfinexSymbol string `env:"BITFINEX_SYMBOL" envDefault:"tBTCUSD"`
	Timeframe      string `env:"TIMEFRAME" envDefault:"1w"`
	DataSource     string `env:"DATA_SOURCE" envDefault:"binance"`
	HistoryStart   string `env:"HISTORY_START" envDefault:""` // RFC3339 date, source default when empty
	BinanceAPIKey  string `env:"BINANCE_API_KEY" envDefault:""`
	BinanceSecret  string `env:"BINANCE_SECRET_KEY" envDefault:""`

	// Signal engine
	MinConfidence      float64 `env:"MIN_CONFIDENCE" envDefault:"0.5"`
	SignalTimeoutHours int     `env:"SIGNAL_TIMEOUT_HOURS" envDefault:"168"`
	MinBodyRatio       float64 `env:"MIN_BODY_RATIO" envDefault:"0.6"`
	MinEngulfmentRatio float64 `env:"MIN_ENGULFMENT_RATIO" envDefault:"1.1"`

	// Infrastructure
	RedisAddr      string `env:"REDIS_ADDR" envDefault:""`
	RedisPassword  string `env:"REDIS_PASSWORD" envDefault:""`
	CacheTTL       int    `env:"CACHE_TTL" envDefault:"3600"` // seconds
	RequestTimeout int    `env:"REQUEST_TIMEOUT" envDefault:"30"`
	LogLevel       string `env:"LOG_LEVEL" envDefault:"info"`
	HTTPAddr       string `env:"HTTP_ADDR" envDefault:":8080"`

	// Persistence (optional; features degrade when unset)
	DBHost     string `env:"DB_HOST" envDefault:""`
	DBPort     string `env:"DB_PORT" envDefault:"5432"`
	DBUser     string `env:"DB_USER" envDefault:""`
	DBPassword string `env:"DB_PASSWORD" envDefault:""`
	DBName     string `env:"DB_NAME" envDefault:""`
	DBSSLMode  string `env:"DB_SSLMODE" envDefault:"disable"`

	// Notifications
	TelegramBotToken string `env:"TELEGRAM_BOT_TOKEN" envDefault:""`
}

// Load initializes configuration from environment variables
func Load() (*Config, error) {
	// Load environment variables from .env file if present
	if err := godotenv.Load(); err != nil {
		log.Warn().Msg(".env file not found, relying on actual environment variables")
	}

	var cfg Config

	cfg.Symbol = getEnvWithDefault("SYMBOL", "BTCUSDT")
	cfg.BitfinexSymbol = getEnvWithDefault("BITFINEX_SYMBOL", "tBTCUSD")
	cfg.Timeframe = getEnvWithDefault("TIMEFRAME", "1w")
	cfg.DataSource = getEnvWithDefault("DATA_SOURCE", "binance")
	cfg.HistoryStart = os.Getenv("HISTORY_START")
	cfg.BinanceAPIKey = os.Getenv("BINANCE_API_KEY")
	cfg.BinanceSecret = os.Getenv("BINANCE_SECRET_KEY")

	cfg.MinConfidence = getEnvFloatWithDefault("MIN_CONFIDENCE", 0.5)
	cfg.SignalTimeoutHours = getEnvIntWithDefault("SIGNAL_TIMEOUT_HOURS", 168)
	cfg.MinBodyRatio = getEnvFloatWithDefault("MIN_BODY_RATIO", 0.6)
	cfg.MinEngulfmentRatio = getEnvFloatWithDefault("MIN_ENGULFMENT_RATIO", 1.1)

	cfg.RedisAddr = os.Getenv("REDIS_ADDR")
	cfg.RedisPassword = os.Getenv("REDIS_PASSWORD")
	cfg.CacheTTL = getEnvIntWithDefault("CACHE_TTL", 3600)
	cfg.RequestTimeout = getEnvIntWithDefault("REQUEST_TIMEOUT", 30)
	cfg.LogLevel = getEnvWithDefault("LOG_LEVEL", "info")
	cfg.HTTPAddr = getEnvWithDefault("HTTP_ADDR", ":8080")

	cfg.DBHost = os.Getenv("DB_HOST")
	cfg.DBPort = getEnvWithDefault("DB_PORT", "5432")
	cfg.DBUser = os.Getenv("DB_USER")
	cfg.DBPassword = os.Getenv("DB_PASSWORD")
	cfg.DBName = os.Getenv("DB_NAME")
	cfg.DBSSLMode = getEnvWithDefault("DB_SSLMODE", "disable")

	cfg.TelegramBotToken = os.Getenv("TELEGRAM_BOT_TOKEN")

	return &cfg, nil
}

// DatabaseConfigured reports whether enough settings are present to open a
// PostgreSQL connection.
func (c *Config) DatabaseConfigured() bool {
	return c.DBHost != "" && c.DBUser != "" && c.DBName != ""
}

// Helper functions for environment variable handling
func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntWithDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloatWithDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}
