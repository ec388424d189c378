// Package config handles loading and validating configuration from
// environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration values for the tracker.
type Config struct {
	// Solana endpoints
	RPCURL string
	WSURL  string

	// Telegram
	TelegramBotToken string

	// Market data
	BirdeyeAPIKey  string
	PumpFunBaseURL string
	DexScreenerURL string
	CoinGeckoURL   string
	BirdeyeBaseURL string

	// Polling cadences
	RPCPollInterval        time.Duration
	AggregatorPollInterval time.Duration
	StreamSyncInterval     time.Duration
	HandoffInterval        time.Duration

	// Tracking behaviour
	SignatureLimit      int
	AggregatorLimit     int
	HandoffMaxAttempts  int
	DefaultThresholdUSD float64
	MaxSignatureAge     time.Duration // 0 disables the age cutoff

	// Database; empty keeps subscriptions in memory only
	PostgresDSN string

	// Metrics; empty disables the endpoint
	MetricsAddr string

	// Logging
	LogLevel string
}

// Load reads configuration from environment variables with fallback to a
// .env file. Priority order: environment variables > .env file > defaults.
func Load() (*Config, error) {
	// Attempt to load .env file (ignore error if not found)
	_ = godotenv.Load()

	cfg := &Config{
		RPCURL: getEnv("SOLANA_RPC_URL", "https://api.mainnet-beta.solana.com"),
		WSURL:  getEnv("SOLANA_WS_URL", "wss://api.mainnet-beta.solana.com"),

		TelegramBotToken: getEnv("TELEGRAM_BOT_TOKEN", ""),

		BirdeyeAPIKey:  getEnv("BIRDEYE_API_KEY", ""),
		PumpFunBaseURL: getEnv("PUMPFUN_BASE_URL", ""),
		DexScreenerURL: getEnv("DEXSCREENER_BASE_URL", ""),
		CoinGeckoURL:   getEnv("COINGECKO_BASE_URL", ""),
		BirdeyeBaseURL: getEnv("BIRDEYE_BASE_URL", ""),

		RPCPollInterval:        time.Duration(getEnvInt("RPC_POLL_INTERVAL_SECONDS", 20)) * time.Second,
		AggregatorPollInterval: time.Duration(getEnvInt("AGGREGATOR_POLL_INTERVAL_SECONDS", 60)) * time.Second,
		StreamSyncInterval:     time.Duration(getEnvInt("STREAM_SYNC_INTERVAL_SECONDS", 30)) * time.Second,
		HandoffInterval:        time.Duration(getEnvInt("HANDOFF_INTERVAL_SECONDS", 60)) * time.Second,

		SignatureLimit:      getEnvInt("SIGNATURE_LIMIT", 5),
		AggregatorLimit:     getEnvInt("AGGREGATOR_LIMIT", 50),
		HandoffMaxAttempts:  getEnvInt("HANDOFF_MAX_ATTEMPTS", 60),
		DefaultThresholdUSD: getEnvFloat("DEFAULT_THRESHOLD_USD", 1000),
		MaxSignatureAge:     time.Duration(getEnvInt("MAX_SIGNATURE_AGE_SECONDS", 0)) * time.Second,

		PostgresDSN: getEnv("POSTGRES_DSN", ""),
		MetricsAddr: getEnv("METRICS_ADDR", ""),

		LogLevel: getEnv("LOG_LEVEL", "info"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that required configuration values are set and valid.
func (c *Config) Validate() error {
	if c.RPCURL == "" {
		return fmt.Errorf("SOLANA_RPC_URL is required")
	}
	if c.WSURL == "" {
		return fmt.Errorf("SOLANA_WS_URL is required")
	}
	if c.DefaultThresholdUSD <= 0 {
		return fmt.Errorf("DEFAULT_THRESHOLD_USD must be positive")
	}
	if c.SignatureLimit < 1 {
		return fmt.Errorf("SIGNATURE_LIMIT must be at least 1")
	}
	if c.AggregatorLimit < 1 {
		return fmt.Errorf("AGGREGATOR_LIMIT must be at least 1")
	}
	if c.HandoffMaxAttempts < 1 {
		return fmt.Errorf("HANDOFF_MAX_ATTEMPTS must be at least 1")
	}
	return nil
}

// MaskedBotToken returns the bot token with most characters hidden for
// logging.
func (c *Config) MaskedBotToken() string {
	return maskSecret(c.TelegramBotToken)
}

// maskSecret hides all but the first and last 4 characters of a secret.
func maskSecret(s string) string {
	if len(s) <= 8 {
		if len(s) == 0 {
			return "(not set)"
		}
		return "****"
	}
	return s[:4] + "****" + s[len(s)-4:]
}

// getEnv retrieves an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt retrieves an environment variable as an integer or returns a
// default.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvFloat retrieves an environment variable as a float64 or returns a
// default.
func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}
