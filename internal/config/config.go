package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Config holds all configuration for the bot
type Config struct {
	// Telegram
	TelegramToken string

	// Mode
	Debug bool

	// AI extraction
	AIBaseURL      string
	AIAPIKey       string
	TextModels     []string
	VisionModels   []string
	RequestTimeout time.Duration // per model call
	CascadeTimeout time.Duration // whole fallback chain

	// Reports
	ClaimThreshold decimal.Decimal // pending yield above this => advise claiming

	// Sessions
	SessionTTL time.Duration

	// Database
	DatabasePath string
}

// Default model fallback orders. Kept as data so the cascade is configurable
// per deployment via AI_TEXT_MODELS / AI_VISION_MODELS.
var (
	defaultTextModels = []string{
		"google/gemini-2.0-flash-001",
		"openai/gpt-4o-mini",
		"meta-llama/llama-3.3-70b-instruct",
	}
	defaultVisionModels = []string{
		"google/gemini-2.0-flash-001",
		"openai/gpt-4o-mini",
	}
)

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		TelegramToken: os.Getenv("TELEGRAM_BOT_TOKEN"),
		Debug:         getEnvBool("DEBUG", false),

		AIBaseURL:      getEnv("AI_API_URL", "https://openrouter.ai/api/v1"),
		AIAPIKey:       os.Getenv("AI_API_KEY"),
		TextModels:     getEnvList("AI_TEXT_MODELS", defaultTextModels),
		VisionModels:   getEnvList("AI_VISION_MODELS", defaultVisionModels),
		RequestTimeout: getEnvDuration("AI_REQUEST_TIMEOUT", 45*time.Second),
		CascadeTimeout: getEnvDuration("AI_CASCADE_TIMEOUT", 150*time.Second),

		ClaimThreshold: getEnvDecimal("CLAIM_THRESHOLD", decimal.NewFromInt(1)),
		SessionTTL:     getEnvDuration("SESSION_TTL", 15*time.Minute),

		DatabasePath: getEnv("DATABASE_PATH", "data/lpfolio.db"),
	}

	if cfg.TelegramToken == "" {
		return nil, fmt.Errorf("TELEGRAM_BOT_TOKEN is required")
	}

	return cfg, nil
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1" || value == "yes"
	}
	return defaultValue
}

func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvDecimal(key string, defaultValue decimal.Decimal) decimal.Decimal {
	if value := os.Getenv(key); value != "" {
		if d, err := decimal.NewFromString(value); err == nil {
			return d
		}
	}
	return defaultValue
}
